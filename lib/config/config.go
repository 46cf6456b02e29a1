package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"regexp"
	"time"

	"github.com/uvensys/gatekeeper"
	"github.com/uvensys/gatekeeper/data"
	"k8s.io/apimachinery/pkg/util/yaml"
)

var (
	ErrNoStoreDefined            = errors.New("config: no store defined")
	ErrEmojiMustHaveName         = errors.New("config.Emoji: must set name")
	ErrEmojiIDNotNumeric         = errors.New("config.Emoji: id must be a numeric snowflake")
	ErrDurationDoesNotParse      = errors.New("config.Verification: duration does not parse, see https://pkg.go.dev/time#ParseDuration (formatted like 5m -> 5 minutes, 2h -> 2 hours, etc)")
	ErrDurationMustBePositive    = errors.New("config.Verification: duration must be positive")
	ErrAttemptsMustBePositive    = errors.New("config.Verification: attempts must be at least 1")
	ErrPuzzleKindsMustBeSelected = errors.New("config.Verification: at least one of text or math puzzles must be enabled")
)

// DefaultFname is the name of the built-in configuration in the data package.
const DefaultFname = "gatekeeper.yaml"

var snowflake = regexp.MustCompile(`^\d{15,25}$`)

// Emoji is a custom (usually application) emoji shown on a button. Unicode
// emoji only set Name.
type Emoji struct {
	ID       string `json:"id,omitempty" yaml:"id,omitempty"`
	Name     string `json:"name" yaml:"name"`
	Animated bool   `json:"animated,omitempty" yaml:"animated,omitempty"`
}

func (e Emoji) Valid() error {
	var errs []error

	if e.Name == "" {
		errs = append(errs, ErrEmojiMustHaveName)
	}

	if e.ID != "" && !snowflake.MatchString(e.ID) {
		errs = append(errs, fmt.Errorf("%w: %q", ErrEmojiIDNotNumeric, e.ID))
	}

	if len(errs) != 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Emojis holds the optional button emojis. A nil entry means the button has
// no emoji.
type Emojis struct {
	Verify *Emoji `json:"verify,omitempty" yaml:"verify,omitempty"`
	Solve  *Emoji `json:"solve,omitempty" yaml:"solve,omitempty"`
}

func (e Emojis) Valid() error {
	var errs []error

	for name, em := range map[string]*Emoji{"verify": e.Verify, "solve": e.Solve} {
		if em == nil {
			continue
		}
		if err := em.Valid(); err != nil {
			errs = append(errs, fmt.Errorf("emoji %s: %w", name, err))
		}
	}

	if len(errs) != 0 {
		return errors.Join(errs...)
	}

	return nil
}

type verificationFileConfig struct {
	TTL           string `json:"ttl" yaml:"ttl"`
	Attempts      int    `json:"attempts" yaml:"attempts"`
	Cooldown      string `json:"cooldown" yaml:"cooldown"`
	SweepInterval string `json:"sweep_interval" yaml:"sweep_interval"`
	TextPuzzles   *bool  `json:"text_puzzles,omitempty" yaml:"text_puzzles,omitempty"`
	MathPuzzles   *bool  `json:"math_puzzles,omitempty" yaml:"math_puzzles,omitempty"`
}

func parsePositiveDuration(name, value string) (time.Duration, error) {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: ParseDuration(%q) returned: %w", ErrDurationDoesNotParse, name, value, err)
	}

	if d <= 0 {
		return 0, fmt.Errorf("%w: %s is %s", ErrDurationMustBePositive, name, d)
	}

	return d, nil
}

func (v *verificationFileConfig) parse() (Verification, error) {
	var errs []error
	result := Verification{
		Attempts:    v.Attempts,
		TextPuzzles: v.TextPuzzles == nil || *v.TextPuzzles,
		MathPuzzles: v.MathPuzzles == nil || *v.MathPuzzles,
	}

	for _, d := range []struct {
		name  string
		value string
		into  *time.Duration
	}{
		{"ttl", v.TTL, &result.TTL},
		{"cooldown", v.Cooldown, &result.Cooldown},
		{"sweep_interval", v.SweepInterval, &result.SweepInterval},
	} {
		parsed, err := parsePositiveDuration(d.name, d.value)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		*d.into = parsed
	}

	if v.Attempts < 1 {
		errs = append(errs, fmt.Errorf("%w: got %d", ErrAttemptsMustBePositive, v.Attempts))
	}

	if !result.TextPuzzles && !result.MathPuzzles {
		errs = append(errs, ErrPuzzleKindsMustBeSelected)
	}

	if len(errs) != 0 {
		return Verification{}, errors.Join(errs...)
	}

	return result, nil
}

// Verification tunes the challenge store and the verification handlers.
type Verification struct {
	TTL           time.Duration
	Attempts      int
	Cooldown      time.Duration
	SweepInterval time.Duration
	TextPuzzles   bool
	MathPuzzles   bool
}

type fileConfig struct {
	Store        *Store                 `json:"store"`
	Emojis       Emojis                 `json:"emojis"`
	Verification verificationFileConfig `json:"verification"`
	Footer       string                 `json:"footer"`
}

func (c *fileConfig) Valid() error {
	var errs []error

	if c.Store == nil {
		errs = append(errs, ErrNoStoreDefined)
	} else if err := c.Store.Valid(); err != nil {
		errs = append(errs, err)
	}

	if err := c.Emojis.Valid(); err != nil {
		errs = append(errs, err)
	}

	if len(errs) != 0 {
		return fmt.Errorf("config is not valid:\n%w", errors.Join(errs...))
	}

	return nil
}

// Config is the validated bot configuration.
type Config struct {
	Store        Store
	Emojis       Emojis
	Verification Verification
	Footer       string
}

// Load parses a YAML (or JSON) configuration document. Fields the document
// leaves out keep their built-in defaults.
func Load(fin io.Reader, fname string) (*Config, error) {
	c := &fileConfig{
		Verification: verificationFileConfig{
			TTL:           gatekeeper.ChallengeTTL.String(),
			Attempts:      gatekeeper.ChallengeAttempts,
			Cooldown:      gatekeeper.VerifyCooldown.String(),
			SweepInterval: gatekeeper.SweepInterval.String(),
		},
		Footer: "Gatekeeper",
	}

	if err := yaml.NewYAMLToJSONDecoder(fin).Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("can't parse config YAML %s: %w", fname, err)
	}

	if err := c.Valid(); err != nil {
		return nil, fmt.Errorf("%s: %w", fname, err)
	}

	verification, err := c.Verification.parse()
	if err != nil {
		return nil, fmt.Errorf("errors validating config %s: %w", fname, err)
	}

	return &Config{
		Store:        *c.Store,
		Emojis:       c.Emojis,
		Verification: verification,
		Footer:       c.Footer,
	}, nil
}

// Default loads the configuration embedded in the binary.
func Default() (*Config, error) {
	raw, err := fs.ReadFile(data.Defaults, DefaultFname)
	if err != nil {
		return nil, fmt.Errorf("[unexpected] can't read built-in config: %w", err)
	}

	return Load(bytes.NewReader(raw), "(data)/"+DefaultFname)
}

// LoadFile loads fname, or the built-in configuration when fname is empty.
func LoadFile(fname string) (*Config, error) {
	if fname == "" {
		return Default()
	}

	fin, err := os.Open(fname)
	if err != nil {
		return nil, fmt.Errorf("can't open config %s: %w", fname, err)
	}
	defer fin.Close()

	return Load(fin, fname)
}

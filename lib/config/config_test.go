package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/uvensys/gatekeeper"
)

func TestDefault(t *testing.T) {
	c, err := Default()
	if err != nil {
		t.Fatalf("built-in config does not load: %v", err)
	}

	if c.Store.Backend != "memory" {
		t.Errorf("wanted memory backend, got %q", c.Store.Backend)
	}

	want := Verification{
		TTL:           gatekeeper.ChallengeTTL,
		Attempts:      gatekeeper.ChallengeAttempts,
		Cooldown:      gatekeeper.VerifyCooldown,
		SweepInterval: gatekeeper.SweepInterval,
		TextPuzzles:   true,
		MathPuzzles:   true,
	}
	if c.Verification != want {
		t.Errorf("want %+v, got %+v", want, c.Verification)
	}

	if c.Emojis.Verify != nil || c.Emojis.Solve != nil {
		t.Errorf("built-in config should not set emojis: %+v", c.Emojis)
	}
}

func TestLoad(t *testing.T) {
	for _, tt := range []struct {
		name  string
		input string
		err   error
		check func(t *testing.T, c *Config)
	}{
		{
			name: "defaults fill the gaps",
			input: `
store:
  backend: memory
`,
			check: func(t *testing.T, c *Config) {
				if c.Verification.TTL != 10*time.Minute || c.Verification.Attempts != 5 {
					t.Errorf("defaults not applied: %+v", c.Verification)
				}
				if c.Footer != "Gatekeeper" {
					t.Errorf("wanted default footer, got %q", c.Footer)
				}
			},
		},
		{
			name: "emojis and tuning",
			input: `
store:
  backend: memory
emojis:
  verify:
    name: verify_green
    id: "123456789012345678"
  solve:
    name: "✏️"
verification:
  ttl: 5m
  attempts: 3
  cooldown: 2s
  sweep_interval: 1m
  math_puzzles: false
footer: Example Guild
`,
			check: func(t *testing.T, c *Config) {
				if c.Emojis.Verify == nil || c.Emojis.Verify.ID != "123456789012345678" {
					t.Errorf("verify emoji not loaded: %+v", c.Emojis.Verify)
				}
				if c.Emojis.Solve == nil || c.Emojis.Solve.Name != "✏️" {
					t.Errorf("solve emoji not loaded: %+v", c.Emojis.Solve)
				}
				want := Verification{
					TTL:           5 * time.Minute,
					Attempts:      3,
					Cooldown:      2 * time.Second,
					SweepInterval: time.Minute,
					TextPuzzles:   true,
				}
				if c.Verification != want {
					t.Errorf("want %+v, got %+v", want, c.Verification)
				}
				if c.Footer != "Example Guild" {
					t.Errorf("wanted custom footer, got %q", c.Footer)
				}
			},
		},
		{
			name:  "no store",
			input: `footer: nope`,
			err:   ErrNoStoreDefined,
		},
		{
			name: "unknown store",
			input: `
store:
  backend: sqlite
`,
			err: ErrUnknownStoreBackend,
		},
		{
			name: "emoji without name",
			input: `
store:
  backend: memory
emojis:
  verify:
    id: "123456789012345678"
`,
			err: ErrEmojiMustHaveName,
		},
		{
			name: "emoji with bad id",
			input: `
store:
  backend: memory
emojis:
  solve:
    name: solve
    id: solve
`,
			err: ErrEmojiIDNotNumeric,
		},
		{
			name: "ttl does not parse",
			input: `
store:
  backend: memory
verification:
  ttl: ten minutes
`,
			err: ErrDurationDoesNotParse,
		},
		{
			name: "negative cooldown",
			input: `
store:
  backend: memory
verification:
  cooldown: -4s
`,
			err: ErrDurationMustBePositive,
		},
		{
			name: "zero attempts",
			input: `
store:
  backend: memory
verification:
  attempts: 0
`,
			err: ErrAttemptsMustBePositive,
		},
		{
			name: "no puzzle kinds",
			input: `
store:
  backend: memory
verification:
  text_puzzles: false
  math_puzzles: false
`,
			err: ErrPuzzleKindsMustBeSelected,
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			c, err := Load(strings.NewReader(tt.input), tt.name+".yaml")
			if !errors.Is(err, tt.err) {
				t.Logf("want: %v", tt.err)
				t.Logf("got:  %v", err)
				t.Fatal("invalid error returned")
			}

			if tt.check != nil {
				tt.check(t, c)
			}
		})
	}
}

func TestLoadFile(t *testing.T) {
	fname := filepath.Join(t.TempDir(), "gatekeeper.yaml")
	dbPath := filepath.Join(t.TempDir(), "verifybot.bdb")

	if err := os.WriteFile(fname, []byte("store:\n  backend: bbolt\n  parameters:\n    path: "+dbPath+"\n"), 0600); err != nil {
		t.Fatal(err)
	}

	c, err := LoadFile(fname)
	if err != nil {
		t.Fatalf("can't load %s: %v", fname, err)
	}

	if c.Store.Backend != "bbolt" {
		t.Errorf("wanted bbolt backend, got %q", c.Store.Backend)
	}

	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("wanted an error for a missing file")
	}

	if _, err := LoadFile(""); err != nil {
		t.Errorf("empty file name should load the built-in config, got %v", err)
	}
}

package valkey

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/uvensys/gatekeeper/lib/store"
	valkey "github.com/redis/go-redis/v9"
)

var (
	ErrNoURL  = errors.New("valkey.Config: no URL defined")
	ErrBadURL = errors.New("valkey.Config: URL is invalid")
	ErrPrefix = errors.New("valkey.Config: prefix must not contain whitespace")
)

// DefaultPrefix is used when the config does not set one.
const DefaultPrefix = "gatekeeper:"


func init() {
	store.Register("valkey", Factory{})
}

type Factory struct{}

func parse(data json.RawMessage) (Config, error) {
	var config Config
	if err := json.Unmarshal([]byte(data), &config); err != nil {
		return config, fmt.Errorf("%w: %w", store.ErrBadConfig, err)
	}

	if err := config.Valid(); err != nil {
		return config, fmt.Errorf("%w: %w", store.ErrBadConfig, err)
	}

	if config.Prefix == nil {
		p := DefaultPrefix
		config.Prefix = &p
	}

	return config, nil
}

func (Factory) Build(ctx context.Context, data json.RawMessage) (store.Interface, error) {
	config, err := parse(data)
	if err != nil {
		return nil, err
	}

	opts, err := valkey.ParseURL(config.URL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", store.ErrBadConfig, err)
	}

	rdb := valkey.NewClient(opts)

	if _, err := rdb.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("can't ping valkey instance: %w", err)
	}

	return &Store{
		rdb:    rdb,
		prefix: *config.Prefix,
	}, nil
}

func (Factory) Valid(data json.RawMessage) error {
	_, err := parse(data)
	return err
}

type Config struct {
	URL string `json:"url"`

	// Prefix is put in front of every key. Nil means DefaultPrefix, an
	// empty string disables prefixing.
	Prefix *string `json:"prefix,omitempty"`
}

func (c Config) Valid() error {
	var errs []error

	if c.URL == "" {
		errs = append(errs, ErrNoURL)
	}

	if _, err := valkey.ParseURL(c.URL); err != nil {
		errs = append(errs, ErrBadURL)
	}

	if c.Prefix != nil && strings.ContainsFunc(*c.Prefix, unicode.IsSpace) {
		errs = append(errs, ErrPrefix)
	}

	if len(errs) != 0 {
		return fmt.Errorf("valkey.Config: invalid config: %w", errors.Join(errs...))
	}

	return nil
}

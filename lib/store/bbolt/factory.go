package bbolt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/uvensys/gatekeeper/lib/store"
	"go.etcd.io/bbolt"
)

var (
	ErrMissingPath     = errors.New("bbolt: path is missing from config")
	ErrCantWriteToPath = errors.New("bbolt: can't write to path")
	ErrBadLockTimeout  = errors.New("bbolt: lock_timeout must be a positive duration such as 10s")
)

// DefaultLockTimeout is how long Build waits for another process to release
// the database file.
const DefaultLockTimeout = 10 * time.Second

func init() {
	store.Register("bbolt", Factory{})
}

// Factory builds bbolt stores from the parameters of the store config block.
type Factory struct{}

func parse(data json.RawMessage) (Config, error) {
	var config Config
	if err := json.Unmarshal([]byte(data), &config); err != nil {
		return config, fmt.Errorf("%w: %w", store.ErrBadConfig, err)
	}

	if err := config.Valid(); err != nil {
		return config, fmt.Errorf("%w: %w", store.ErrBadConfig, err)
	}

	return config, nil
}

// Build opens the database and starts the expiry cleanup, which stops when
// ctx is done.
func (Factory) Build(ctx context.Context, data json.RawMessage) (store.Interface, error) {
	config, err := parse(data)
	if err != nil {
		return nil, err
	}

	bdb, err := bbolt.Open(config.Path, 0600, &bbolt.Options{Timeout: config.lockTimeout()})
	if errors.Is(err, bbolt.ErrTimeout) {
		return nil, fmt.Errorf("can't open bbolt database %s: locked by another process (is the other bot using the same file?): %w", config.Path, err)
	}
	if err != nil {
		return nil, fmt.Errorf("can't open bbolt database %s: %w", config.Path, err)
	}

	result := &Store{
		bdb: bdb,
	}

	go result.cleanupThread(ctx)

	return result, nil
}

func (Factory) Valid(data json.RawMessage) error {
	_, err := parse(data)
	return err
}

// Config is the bbolt storage backend configuration.
type Config struct {
	// Path is the filesystem path of the database. The folder must be writable by the bot.
	Path string `json:"path"`

	// LockTimeout bounds the wait for the file lock, as a Go duration.
	// Empty means DefaultLockTimeout.
	LockTimeout string `json:"lock_timeout,omitempty"`
}

func (c Config) lockTimeout() time.Duration {
	d, err := time.ParseDuration(c.LockTimeout)
	if err != nil || d <= 0 {
		return DefaultLockTimeout
	}
	return d
}

// Valid validates the configuration including checking if its containing folder is writable.
func (c Config) Valid() error {
	var errs []error

	if c.Path == "" {
		errs = append(errs, ErrMissingPath)
	} else {
		dir := filepath.Dir(c.Path)
		if err := os.WriteFile(filepath.Join(dir, ".test-file"), []byte(""), 0600); err != nil {
			errs = append(errs, ErrCantWriteToPath)
		}
		os.Remove(filepath.Join(dir, ".test-file"))
	}

	if c.LockTimeout != "" {
		if d, err := time.ParseDuration(c.LockTimeout); err != nil || d <= 0 {
			errs = append(errs, ErrBadLockTimeout)
		}
	}

	if len(errs) != 0 {
		return errors.Join(errs...)
	}

	return nil
}

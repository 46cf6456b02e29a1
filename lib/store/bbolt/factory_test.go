package bbolt

import (
	"encoding/json"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestFactoryValid(t *testing.T) {
	f := Factory{}
	dir := t.TempDir()

	t.Run("bad config", func(t *testing.T) {
		if err := f.Valid(json.RawMessage(`}`)); err == nil {
			t.Error("wanted parsing failure but got a successful result")
		}
	})

	for _, tt := range []struct {
		name string
		cfg  Config
		err  error
	}{
		{
			name: "valid",
			cfg:  Config{Path: filepath.Join(dir, "ok.bdb")},
		},
		{
			name: "valid with lock timeout",
			cfg:  Config{Path: filepath.Join(dir, "ok.bdb"), LockTimeout: "2s"},
		},
		{
			name: "missing path",
			cfg:  Config{},
			err:  ErrMissingPath,
		},
		{
			name: "unwritable folder",
			cfg:  Config{Path: filepath.Join(dir, "does", "not", "exist", "db.bdb")},
			err:  ErrCantWriteToPath,
		},
		{
			name: "garbage lock timeout",
			cfg:  Config{Path: filepath.Join(dir, "ok.bdb"), LockTimeout: "soon"},
			err:  ErrBadLockTimeout,
		},
		{
			name: "negative lock timeout",
			cfg:  Config{Path: filepath.Join(dir, "ok.bdb"), LockTimeout: "-1s"},
			err:  ErrBadLockTimeout,
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.cfg)
			if err != nil {
				t.Fatal(err)
			}

			err = f.Valid(json.RawMessage(data))
			if tt.err == nil && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.err != nil && !errors.Is(err, tt.err) {
				t.Errorf("wanted %v, got %v", tt.err, err)
			}
		})
	}
}

func TestConfigLockTimeout(t *testing.T) {
	for _, tt := range []struct {
		in   string
		want time.Duration
	}{
		{"", DefaultLockTimeout},
		{"250ms", 250 * time.Millisecond},
		{"nope", DefaultLockTimeout},
	} {
		if got := (Config{LockTimeout: tt.in}).lockTimeout(); got != tt.want {
			t.Errorf("lockTimeout(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestFactoryBuildLocked(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shared.bdb")
	data, err := json.Marshal(Config{Path: path, LockTimeout: "100ms"})
	if err != nil {
		t.Fatal(err)
	}

	first, err := Factory{}.Build(t.Context(), json.RawMessage(data))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { first.(io.Closer).Close() })

	_, err = Factory{}.Build(t.Context(), json.RawMessage(data))
	if err == nil {
		t.Fatal("second Build on a locked file succeeded")
	}
	if !strings.Contains(err.Error(), "locked by another process") {
		t.Errorf("unexpected error: %v", err)
	}
}

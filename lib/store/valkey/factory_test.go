package valkey

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestFactoryValid(t *testing.T) {
	empty := ""
	spaced := "gate keeper:"
	custom := "gk-test:"

	for _, tt := range []struct {
		name string
		cfg  Config
		err  error
	}{
		{
			name: "valid",
			cfg:  Config{URL: "redis://valkey:6379/0"},
		},
		{
			name: "custom prefix",
			cfg:  Config{URL: "redis://valkey:6379/0", Prefix: &custom},
		},
		{
			name: "prefix disabled",
			cfg:  Config{URL: "redis://valkey:6379/0", Prefix: &empty},
		},
		{
			name: "no url",
			cfg:  Config{},
			err:  ErrNoURL,
		},
		{
			name: "bad url",
			cfg:  Config{URL: "http://valkey:6379"},
			err:  ErrBadURL,
		},
		{
			name: "whitespace in prefix",
			cfg:  Config{URL: "redis://valkey:6379/0", Prefix: &spaced},
			err:  ErrPrefix,
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.cfg)
			if err != nil {
				t.Fatal(err)
			}

			err = Factory{}.Valid(json.RawMessage(data))
			if tt.err == nil && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.err != nil && !errors.Is(err, tt.err) {
				t.Errorf("wanted %v, got %v", tt.err, err)
			}
		})
	}
}

func TestParseDefaultPrefix(t *testing.T) {
	cfg, err := parse(json.RawMessage(`{"url": "redis://valkey:6379/0"}`))
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Prefix == nil || *cfg.Prefix != DefaultPrefix {
		t.Errorf("wanted default prefix %q, got %v", DefaultPrefix, cfg.Prefix)
	}

	s := &Store{prefix: *cfg.Prefix}
	if got := s.key("verify:guild:1"); got != "gatekeeper:verify:guild:1" {
		t.Errorf("key = %q", got)
	}
}

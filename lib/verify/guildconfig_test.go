package verify

import (
	"errors"
	"io"
	"path/filepath"
	"testing"

	"github.com/uvensys/gatekeeper/lib/store"
	"github.com/uvensys/gatekeeper/lib/store/bbolt"
	"github.com/uvensys/gatekeeper/lib/store/memory"
)

func TestConfigs(t *testing.T) {
	bdb, err := bbolt.Factory{}.Build(t.Context(), []byte(`{"path": "`+filepath.ToSlash(filepath.Join(t.TempDir(), "verify.bdb"))+`"}`))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if c, ok := bdb.(io.Closer); ok {
			c.Close()
		}
	})

	for name, st := range map[string]store.Interface{
		"memory": memory.New(t.Context()),
		"bbolt":  bdb,
	} {
		t.Run(name, func(t *testing.T) {
			c := NewConfigs(st)

			if _, ok, err := c.Get(t.Context(), guildID); ok || err != nil {
				t.Fatalf("empty store: ok=%v err=%v", ok, err)
			}

			want := GuildConfig{VerifiedRoleID: verifiedRoleID, UnverifiedRoleID: unverified, ChannelID: channelID}
			if err := c.Set(t.Context(), guildID, want); err != nil {
				t.Fatal(err)
			}

			raw, err := st.Get(t.Context(), GuildConfigPrefix+guildID)
			if err != nil {
				t.Fatalf("config not stored under its prefix: %v", err)
			}
			if len(raw) == 0 {
				t.Error("stored config is empty")
			}

			got, ok, err := c.Get(t.Context(), guildID)
			if err != nil || !ok || got != want {
				t.Fatalf("want %+v, got %+v (ok=%v err=%v)", want, got, ok, err)
			}

			if err := c.Delete(t.Context(), guildID); err != nil {
				t.Fatal(err)
			}
			if err := c.Delete(t.Context(), guildID); err != nil {
				t.Errorf("deleting twice should not fail: %v", err)
			}
		})
	}
}

func TestConfigsCorrupt(t *testing.T) {
	st := memory.New(t.Context())
	if err := st.Set(t.Context(), GuildConfigPrefix+guildID, []byte("{"), 0); err != nil {
		t.Fatal(err)
	}

	if _, _, err := NewConfigs(st).Get(t.Context(), guildID); !errors.Is(err, store.ErrCantDecode) {
		t.Errorf("wanted ErrCantDecode, got %v", err)
	}
}

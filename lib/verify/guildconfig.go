package verify

import (
	"context"
	"errors"
	"fmt"

	"github.com/uvensys/gatekeeper"
	"github.com/uvensys/gatekeeper/lib/store"
)

// GuildConfigPrefix namespaces guild configuration keys in the store.
const GuildConfigPrefix = "verify:guild:"

// GuildConfig is what /setupverification saves for a guild.
type GuildConfig struct {
	VerifiedRoleID   string `json:"verified_role_id"`
	UnverifiedRoleID string `json:"not_verified_role_id"`
	ChannelID        string `json:"channel_id"`
}

// Configs reads and writes GuildConfig values. Entries never expire.
type Configs struct {
	store *store.JSON[GuildConfig]
}

func NewConfigs(st store.Interface) *Configs {
	return &Configs{
		store: &store.JSON[GuildConfig]{
			Underlying: st,
			Prefix:     GuildConfigPrefix,
		},
	}
}

// Get returns the guild's configuration. ok is false when the guild never ran
// /setupverification.
func (c *Configs) Get(ctx context.Context, guildID string) (cfg GuildConfig, ok bool, err error) {
	cfg, err = c.store.Get(ctx, guildID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return GuildConfig{}, false, nil
	case err != nil:
		return GuildConfig{}, false, fmt.Errorf("can't load verification config for guild %s: %w", guildID, err)
	}

	return cfg, true, nil
}

func (c *Configs) Set(ctx context.Context, guildID string, cfg GuildConfig) error {
	if err := c.store.Set(ctx, guildID, cfg, gatekeeper.StoreNeverExpires); err != nil {
		return fmt.Errorf("can't save verification config for guild %s: %w", guildID, err)
	}

	return nil
}

// Delete forgets the guild's configuration. Deleting a guild that has none
// is not an error.
func (c *Configs) Delete(ctx context.Context, guildID string) error {
	if err := c.store.Delete(ctx, guildID); err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("can't delete verification config for guild %s: %w", guildID, err)
	}

	return nil
}

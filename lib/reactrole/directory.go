package reactrole

import (
	"context"
	"slices"

	"github.com/bwmarrin/discordgo"
)

// Directory answers questions about guilds the bot is in.
type Directory interface {
	// SelfID is the bot's own user ID.
	SelfID() string
	Roles(ctx context.Context, guildID string) ([]*discordgo.Role, error)
	Emojis(ctx context.Context, guildID string) ([]*discordgo.Emoji, error)
	Channel(ctx context.Context, channelID string) (*discordgo.Channel, error)
	Member(ctx context.Context, guildID, userID string) (*discordgo.Member, error)
}

// StateDirectory reads the gateway state cache and falls back to the REST
// API for anything that is not cached.
type StateDirectory struct {
	Session *discordgo.Session
}

func (d StateDirectory) state() *discordgo.State {
	if d.Session.StateEnabled {
		return d.Session.State
	}
	return nil
}

func (d StateDirectory) SelfID() string {
	st := d.state()
	if st == nil || st.User == nil {
		return ""
	}
	return st.User.ID
}

func (d StateDirectory) Roles(ctx context.Context, guildID string) ([]*discordgo.Role, error) {
	if st := d.state(); st != nil {
		if g, err := st.Guild(guildID); err == nil {
			st.RLock()
			cached := slices.Clone(g.Roles)
			st.RUnlock()
			if len(cached) != 0 {
				return cached, nil
			}
		}
	}

	return d.Session.GuildRoles(guildID, discordgo.WithContext(ctx))
}

func (d StateDirectory) Emojis(ctx context.Context, guildID string) ([]*discordgo.Emoji, error) {
	if st := d.state(); st != nil {
		if g, err := st.Guild(guildID); err == nil {
			st.RLock()
			cached := slices.Clone(g.Emojis)
			st.RUnlock()
			if cached != nil {
				return cached, nil
			}
		}
	}

	return d.Session.GuildEmojis(guildID, discordgo.WithContext(ctx))
}

func (d StateDirectory) Channel(ctx context.Context, channelID string) (*discordgo.Channel, error) {
	if st := d.state(); st != nil {
		if ch, err := st.Channel(channelID); err == nil {
			return ch, nil
		}
	}

	return d.Session.Channel(channelID, discordgo.WithContext(ctx))
}

func (d StateDirectory) Member(ctx context.Context, guildID, userID string) (*discordgo.Member, error) {
	if st := d.state(); st != nil {
		if m, err := st.Member(guildID, userID); err == nil {
			return m, nil
		}
	}

	return d.Session.GuildMember(guildID, userID, discordgo.WithContext(ctx))
}

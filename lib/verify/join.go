package verify

import (
	"context"
	"log/slog"

	"github.com/bwmarrin/discordgo"
	"github.com/uvensys/gatekeeper/lib/localization"
	"github.com/uvensys/gatekeeper/lib/roles"
)

// HandleMemberJoin gives new members the not-verified role and sends them a
// welcome DM pointing at the verification channel.
func (b *Bot) HandleMemberJoin(ctx context.Context, m *discordgo.GuildMemberAdd) {
	if m.Member == nil || m.User == nil || m.User.Bot {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	lg := slog.With("guild", m.GuildID, "user", m.User.ID)

	cfg, ok, err := b.configs.Get(ctx, m.GuildID)
	if err != nil {
		lg.Error("can't load guild config", "err", err)
		return
	}
	if !ok {
		return
	}

	if cfg.UnverifiedRoleID != "" {
		if result, err := roles.Grant(ctx, b.session, m.GuildID, m.User.ID, cfg.UnverifiedRoleID, "New member verification pending"); result != roles.OK {
			lg.Warn("can't assign not-verified role", "outcome", result.String(), "err", err)
		}
	}

	l := localization.ForLocale()
	desc := l.T("verify_welcome")
	if cfg.ChannelID != "" {
		desc = l.TD("verify_welcome_channel", map[string]any{"Channel": channelMention(cfg.ChannelID)})
	}

	if err := b.sendDM(ctx, m.User.ID, b.embeds.Info(l.T("verify_welcome_title"), desc)); err != nil {
		joins.WithLabelValues("failed").Inc()
		lg.Info("can't DM new member, DMs are probably closed", "err", err)
		return
	}

	joins.WithLabelValues("sent").Inc()
}

func (b *Bot) sendDM(ctx context.Context, userID string, e *discordgo.MessageEmbed) error {
	ch, err := b.session.UserChannelCreate(userID, discordgo.WithContext(ctx))
	if err != nil {
		return err
	}

	_, err = b.session.ChannelMessageSendComplex(ch.ID, &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{e},
	}, discordgo.WithContext(ctx))
	return err
}

package verify

import (
	"context"
	"log/slog"

	"github.com/bwmarrin/discordgo"
	"github.com/uvensys/gatekeeper/lib/localization"
)

// setupOptions pulls the role and channel IDs out of /setupverification.
// ok is false when one is missing or the channel is not a text channel.
func setupOptions(data discordgo.ApplicationCommandInteractionData) (cfg GuildConfig, ok bool) {
	for _, o := range data.Options {
		v, isString := o.Value.(string)
		if !isString {
			continue
		}

		switch o.Name {
		case optionVerifiedRole:
			cfg.VerifiedRoleID = v
		case optionUnverifiedRole:
			cfg.UnverifiedRoleID = v
		case optionChannel:
			cfg.ChannelID = v
		}
	}

	if cfg.VerifiedRoleID == "" || cfg.UnverifiedRoleID == "" || cfg.ChannelID == "" {
		return GuildConfig{}, false
	}

	if data.Resolved != nil {
		if ch, found := data.Resolved.Channels[cfg.ChannelID]; found && ch.Type != discordgo.ChannelTypeGuildText {
			return GuildConfig{}, false
		}
	}

	return cfg, true
}

func (b *Bot) handleSetup(ctx context.Context, lg *slog.Logger, i *discordgo.InteractionCreate) {
	l := localization.GetLocalizer(i)

	if i.GuildID == "" || i.Member == nil {
		b.replyEmbed(lg, i, b.embeds.Error(l.T("server_only_title"), l.T("server_only")))
		return
	}

	if i.Member.Permissions&discordgo.PermissionAdministrator == 0 {
		b.replyEmbed(lg, i, b.embeds.Error(l.T("permission_denied_title"), l.T("permission_denied")))
		return
	}

	cfg, ok := setupOptions(i.ApplicationCommandData())
	if !ok {
		b.replyEmbed(lg, i, b.embeds.Error(l.T("error_title"), l.T("verify_setup_missing_option")))
		return
	}

	if err := b.configs.Set(ctx, i.GuildID, cfg); err != nil {
		lg.Error("can't save guild config", "err", err)
		b.replyEmbed(lg, i, b.embeds.Error(l.T("error_title"), l.T("verify_setup_save_failed")))
		return
	}

	panel := b.embeds.Success(l.T("verify_panel_title"), l.T("verify_panel"))
	if _, err := b.session.ChannelMessageSendComplex(cfg.ChannelID, &discordgo.MessageSend{
		Embeds:     []*discordgo.MessageEmbed{panel},
		Components: []discordgo.MessageComponent{b.verifyButton(l)},
	}, discordgo.WithContext(ctx)); err != nil {
		lg.Error("can't post verification panel", "channel_id", cfg.ChannelID, "err", err)
		b.replyEmbed(lg, i, b.embeds.Error(
			l.T("verify_setup_post_failed_title"),
			l.TD("verify_setup_post_failed", map[string]any{
				"Channel": channelMention(cfg.ChannelID),
				"Error":   err.Error(),
			}),
		))
		return
	}

	b.replyEmbed(lg, i, b.embeds.Success(
		l.T("verify_setup_title"),
		l.TD("verify_setup", map[string]any{
			"Channel":    channelMention(cfg.ChannelID),
			"Verified":   roleMention(cfg.VerifiedRoleID),
			"Unverified": roleMention(cfg.UnverifiedRoleID),
		}),
	))
	lg.Info("verification set up", "verified_role", cfg.VerifiedRoleID, "not_verified_role", cfg.UnverifiedRoleID, "channel_id", cfg.ChannelID)
}

package reactrole

import (
	"context"
	"log/slog"

	"github.com/bwmarrin/discordgo"
	"github.com/uvensys/gatekeeper/lib/localization"
	"github.com/uvensys/gatekeeper/lib/roles"
)

// roleFor returns the role a reaction maps to. ok is false for the bot's own
// reactions, for messages that are not reaction-role messages and for emojis
// that are not part of the mapping.
func (b *Bot) roleFor(ctx context.Context, lg *slog.Logger, r *discordgo.MessageReaction) (roleID string, ok bool) {
	if r.UserID == b.dir.SelfID() {
		return "", false
	}

	mm, found, err := b.messages.Get(ctx, r.MessageID)
	if err != nil {
		lg.Error("can't look up reaction roles", "err", err)
		return "", false
	}
	if !found || mm.GuildID != r.GuildID {
		return "", false
	}

	roleID, ok = mm.Mappings[ReactionKey(r.Emoji)]
	return roleID, ok
}

func reactionLogger(r *discordgo.MessageReaction) *slog.Logger {
	return slog.With(
		"guild", r.GuildID,
		"channel", r.ChannelID,
		"message_id", r.MessageID,
		"user", r.UserID,
		"emoji", string(ReactionKey(r.Emoji)),
	)
}

// HandleReactionAdd grants the mapped role. When Discord refuses for lack of
// permission the member gets a DM explaining what the admins need to fix.
func (b *Bot) HandleReactionAdd(ctx context.Context, r *discordgo.MessageReactionAdd) {
	if r.MessageReaction == nil {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	lg := reactionLogger(r.MessageReaction)

	roleID, ok := b.roleFor(ctx, lg, r.MessageReaction)
	if !ok {
		return
	}
	lg = lg.With("role", roleID)

	member := r.Member
	if member == nil {
		var err error
		if member, err = b.dir.Member(ctx, r.GuildID, r.UserID); err != nil {
			lg.Warn("can't look up member", "err", err)
			return
		}
	}

	if roles.HasRole(member, roleID) {
		reactions.WithLabelValues("add", "unchanged").Inc()
		return
	}

	result, err := roles.Grant(ctx, b.session, r.GuildID, r.UserID, roleID, "Reaction role via message "+r.MessageID)
	reactions.WithLabelValues("add", result.String()).Inc()

	switch result {
	case roles.OK:
		lg.Info("granted reaction role")
	case roles.PermissionDenied:
		lg.Warn("can't grant reaction role", "outcome", result.String(), "err", err)
		b.explainDenied(ctx, lg, r.UserID, roleID)
	default:
		lg.Warn("can't grant reaction role", "outcome", result.String(), "err", err)
	}
}

func (b *Bot) explainDenied(ctx context.Context, lg *slog.Logger, userID, roleID string) {
	l := localization.ForLocale()
	mention := "<@&" + roleID + ">"

	ch, err := b.session.UserChannelCreate(userID, discordgo.WithContext(ctx))
	if err == nil {
		_, err = b.session.ChannelMessageSendComplex(ch.ID, &discordgo.MessageSend{
			Embeds: []*discordgo.MessageEmbed{b.embeds.Error(
				l.T("rr_assign_failed_title"),
				l.TD("rr_assign_failed", map[string]any{"Role": mention}),
			)},
		}, discordgo.WithContext(ctx))
	}

	if err != nil {
		lg.Info("can't DM member about the missing permission", "err", err)
	}
}

// HandleReactionRemove takes the mapped role away again.
func (b *Bot) HandleReactionRemove(ctx context.Context, r *discordgo.MessageReactionRemove) {
	if r.MessageReaction == nil {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	lg := reactionLogger(r.MessageReaction)

	roleID, ok := b.roleFor(ctx, lg, r.MessageReaction)
	if !ok {
		return
	}
	lg = lg.With("role", roleID)

	member, err := b.dir.Member(ctx, r.GuildID, r.UserID)
	if err != nil {
		lg.Warn("can't look up member", "err", err)
		return
	}

	if !roles.HasRole(member, roleID) {
		reactions.WithLabelValues("remove", "unchanged").Inc()
		return
	}

	result, err := roles.Revoke(ctx, b.session, r.GuildID, r.UserID, roleID, "Reaction role removal via message "+r.MessageID)
	reactions.WithLabelValues("remove", result.String()).Inc()

	if result != roles.OK {
		lg.Warn("can't revoke reaction role", "outcome", result.String(), "err", err)
		return
	}

	lg.Info("revoked reaction role")
}

func (b *Bot) forget(ctx context.Context, messageID string) {
	deleted, err := b.messages.Delete(ctx, messageID)
	switch {
	case err != nil:
		slog.Error("can't forget deleted reaction roles message", "message_id", messageID, "err", err)
	case deleted:
		messagesForgotten.Inc()
		slog.Info("reaction roles message deleted, forgot its mapping", "message_id", messageID)
	}
}

// HandleMessageDelete drops the mapping of a deleted reaction-role message.
func (b *Bot) HandleMessageDelete(ctx context.Context, m *discordgo.MessageDelete) {
	if m.Message == nil {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	b.forget(ctx, m.ID)
}

func (b *Bot) HandleMessageDeleteBulk(ctx context.Context, m *discordgo.MessageDeleteBulk) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	for _, id := range m.Messages {
		b.forget(ctx, id)
	}
}

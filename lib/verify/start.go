package verify

import (
	"bytes"
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/uvensys/gatekeeper"
	"github.com/uvensys/gatekeeper/internal"
	"github.com/uvensys/gatekeeper/lib/challenge"
	"github.com/uvensys/gatekeeper/lib/embeds"
	"github.com/uvensys/gatekeeper/lib/localization"
	"github.com/uvensys/gatekeeper/lib/roles"
)

// cooldownSeconds rounds the remaining cooldown down to whole seconds but
// never reports less than one.
func cooldownSeconds(left time.Duration) int {
	return max(int(left/time.Second), 1)
}

// minutesLeft rounds up so a challenge with 30 seconds left shows "1 minutes"
// rather than 0.
func minutesLeft(d time.Duration) int {
	return max(int(math.Ceil(d.Minutes())), 1)
}

func (b *Bot) handleStart(ctx context.Context, lg *slog.Logger, i *discordgo.InteractionCreate) {
	l := localization.GetLocalizer(i)

	user := internal.InteractionUser(i)
	if user == nil {
		lg.Warn("interaction without a user")
		return
	}

	if ok, left := b.cooldowns.SetIfAbsent(user.ID, struct{}{}, b.cooldown); !ok {
		throttled.Inc()
		b.replyEmbed(lg, i, b.embeds.Notice(
			l.T("verify_slow_down_title"),
			l.TD("verify_slow_down", map[string]any{"Seconds": cooldownSeconds(left)}),
		))
		return
	}

	if i.GuildID == "" {
		b.replyEmbed(lg, i, b.embeds.Error(l.T("server_only_title"), l.T("server_only")))
		return
	}

	cfg, ok, err := b.configs.Get(ctx, i.GuildID)
	if err != nil {
		lg.Error("can't load guild config", "err", err)
		b.replyEmbed(lg, i, b.embeds.Error(l.T("error_title"), l.T("generic_error")))
		return
	}
	if !ok {
		b.replyEmbed(lg, i, b.embeds.Error(l.T("verify_not_configured_title"), l.T("verify_not_configured")))
		return
	}

	if i.Member == nil {
		b.replyEmbed(lg, i, b.embeds.Error(l.T("error_title"), l.T("verify_member_unresolved")))
		return
	}

	if roles.HasRole(i.Member, cfg.VerifiedRoleID) {
		if roles.HasRole(i.Member, cfg.UnverifiedRoleID) {
			if result, err := roles.Revoke(ctx, b.session, i.GuildID, user.ID, cfg.UnverifiedRoleID, "Already verified"); result != roles.OK {
				lg.Warn("can't remove lingering not-verified role", "outcome", result.String(), "err", err)
			}
		}

		b.replyEmbed(lg, i, b.embeds.Success(l.T("verify_already_title"), l.T("verify_already")))
		return
	}

	ch, err := b.challenges.GetOrCreate(ctx, i.GuildID, user.ID)
	if err != nil {
		lg.Error("can't create challenge", "err", err)
		b.replyEmbed(lg, i, b.embeds.Error(l.T("error_title"), l.T("verify_generation_failed")))
		return
	}

	e := b.embeds.Info(
		l.T("verify_challenge_title"),
		l.TD("verify_challenge_start", map[string]any{"Attempts": ch.AttemptsLeft}),
	)
	e.Footer = &discordgo.MessageEmbedFooter{
		Text: l.TD("verify_challenge_footer", map[string]any{"Minutes": minutesLeft(ch.ExpiresAt.Sub(b.now()))}),
	}

	b.sendChallenge(lg, i, l, e, ch)
	lg.Info("started verification challenge", "challenge", ch.ID, "kind", ch.Kind)
}

// sendChallenge replies with the puzzle image attached and a Solve button.
func (b *Bot) sendChallenge(lg *slog.Logger, i *discordgo.InteractionCreate, l *localization.SimpleLocalizer, e *discordgo.MessageEmbed, ch challenge.Challenge) {
	b.reply(lg, i, &discordgo.InteractionResponseData{
		Embeds: []*discordgo.MessageEmbed{embeds.WithImage(e, gatekeeper.ChallengeImageName)},
		Files: []*discordgo.File{
			{
				Name:        gatekeeper.ChallengeImageName,
				ContentType: "image/png",
				Reader:      bytes.NewReader(ch.Image),
			},
		},
		Components: []discordgo.MessageComponent{b.solveButton(l)},
	})
}

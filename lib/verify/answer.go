package verify

import (
	"context"
	"log/slog"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/uvensys/gatekeeper"
	"github.com/uvensys/gatekeeper/internal"
	"github.com/uvensys/gatekeeper/lib/challenge"
	"github.com/uvensys/gatekeeper/lib/localization"
	"github.com/uvensys/gatekeeper/lib/roles"
)

func (b *Bot) handleSolve(lg *slog.Logger, i *discordgo.InteractionCreate) {
	l := localization.GetLocalizer(i)

	if err := b.session.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: &discordgo.InteractionResponseData{
			CustomID: gatekeeper.CustomIDVerifyModal,
			Title:    l.T("verify_modal_title"),
			Components: []discordgo.MessageComponent{
				discordgo.ActionsRow{
					Components: []discordgo.MessageComponent{
						discordgo.TextInput{
							CustomID:    gatekeeper.CustomIDVerifyInput,
							Label:       l.T("verify_modal_label"),
							Style:       discordgo.TextInputShort,
							Placeholder: l.T("verify_modal_placeholder"),
							Required:    true,
							MinLength:   1,
							MaxLength:   16,
						},
					},
				},
			},
		},
	}); err != nil {
		lg.Error("can't open answer modal", "err", err)
	}
}

// modalValue returns the value of the text input customID in a submitted
// modal.
func modalValue(data discordgo.ModalSubmitInteractionData, customID string) string {
	for _, c := range data.Components {
		row, ok := c.(*discordgo.ActionsRow)
		if !ok {
			continue
		}

		for _, inner := range row.Components {
			if in, ok := inner.(*discordgo.TextInput); ok && in.CustomID == customID {
				return in.Value
			}
		}
	}

	return ""
}

func (b *Bot) handleAnswer(ctx context.Context, lg *slog.Logger, i *discordgo.InteractionCreate) {
	l := localization.GetLocalizer(i)

	user := internal.InteractionUser(i)
	if user == nil || i.GuildID == "" {
		b.replyEmbed(lg, i, b.embeds.Error(l.T("server_only_title"), l.T("server_only")))
		return
	}

	answer := modalValue(i.ModalSubmitData(), gatekeeper.CustomIDVerifyInput)
	res := b.challenges.Submit(i.GuildID, user.ID, answer)
	lg = lg.With("outcome", res.Outcome.String(), "attempts_left", res.AttemptsLeft)

	switch {
	case res.Outcome == challenge.OutcomeCorrect:
		b.grantVerified(ctx, lg, i, l, user.ID)

	case res.Retry():
		e := b.embeds.Notice(
			l.T("verify_challenge_title"),
			l.TD("verify_challenge_wrong", map[string]any{"Attempts": res.AttemptsLeft}),
		)
		b.sendChallenge(lg, i, l, e, res.Challenge)
		lg.Info("incorrect answer")

	case res.Exhausted:
		b.replyEmbed(lg, i, b.embeds.Error(
			l.T("verify_failed_title"),
			l.TD("verify_failed", map[string]any{"Attempts": b.challenges.Attempts()}),
		))
		lg.Info("verification failed, attempts exhausted")

	default:
		b.replyEmbed(lg, i, b.embeds.Notice(l.T("verify_expired_title"), l.T("verify_expired")))
	}
}

func (b *Bot) grantVerified(ctx context.Context, lg *slog.Logger, i *discordgo.InteractionCreate, l *localization.SimpleLocalizer, userID string) {
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

	var lines []string

	if cfg.VerifiedRoleID != "" {
		result, err := roles.Grant(ctx, b.session, i.GuildID, userID, cfg.VerifiedRoleID, "Verification success")
		switch result {
		case roles.OK:
			lines = append(lines, l.TD("verify_role_granted", map[string]any{"Role": roleMention(cfg.VerifiedRoleID)}))
		case roles.PermissionDenied:
			lg.Warn("can't add verified role", "outcome", result.String(), "err", err)
			lines = append(lines, l.T("verify_role_grant_denied"))
		default:
			lg.Warn("can't add verified role", "outcome", result.String(), "err", err)
			lines = append(lines, l.T("verify_role_grant_failed"))
		}
	}

	if cfg.UnverifiedRoleID != "" {
		result, err := roles.Revoke(ctx, b.session, i.GuildID, userID, cfg.UnverifiedRoleID, "Verification success")
		switch result {
		case roles.OK:
			lines = append(lines, l.TD("verify_role_revoked", map[string]any{"Role": roleMention(cfg.UnverifiedRoleID)}))
		case roles.PermissionDenied:
			lg.Warn("can't remove not-verified role", "outcome", result.String(), "err", err)
			lines = append(lines, l.T("verify_role_revoke_denied"))
		default:
			lg.Warn("can't remove not-verified role", "outcome", result.String(), "err", err)
			lines = append(lines, l.T("verify_role_revoke_failed"))
		}
	}

	verified.Inc()
	b.replyEmbed(lg, i, b.embeds.Success(l.T("verify_success_title"), strings.Join(lines, " ")))
	lg.Info("member verified")
}

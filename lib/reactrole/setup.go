package reactrole

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/uvensys/gatekeeper"
	"github.com/uvensys/gatekeeper/internal"
	"github.com/uvensys/gatekeeper/lib/localization"
)

// Text input custom IDs of the builder modal.
const (
	inputTitle   = "rr:title"
	inputBody    = "rr:body"
	inputPairs   = "rr:pairs"
	inputChannel = "rr:channel"
)

// fallbackTitle is used when neither the administrator nor the template
// gives a title.
const fallbackTitle = "Reaction Roles"

func (b *Bot) handleSetup(lg *slog.Logger, i *discordgo.InteractionCreate) {
	l := localization.GetLocalizer(i)

	if i.GuildID == "" || i.Member == nil || i.Member.User == nil {
		b.replyEmbed(lg, i, b.embeds.Error(l.T("server_only_title"), l.T("server_only")))
		return
	}

	if i.Member.Permissions&discordgo.PermissionAdministrator == 0 {
		b.replyEmbed(lg, i, b.embeds.Error(l.T("permission_denied_title"), l.T("rr_admin_only")))
		return
	}

	b.selections.Delete(selectionKey(i.GuildID, i.Member.User.ID))

	options := make([]discordgo.SelectMenuOption, 0, len(b.templates))
	for _, tpl := range b.templates {
		options = append(options, discordgo.SelectMenuOption{
			Label:       tpl.Label,
			Value:       tpl.Key,
			Description: l.TD("rr_template_option", map[string]any{"Label": tpl.Label}),
		})
	}

	one := 1
	b.reply(lg, i, &discordgo.InteractionResponseData{
		Embeds: []*discordgo.MessageEmbed{b.embeds.Info(l.T("rr_setup_title"), l.T("rr_setup_guide"))},
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{
				Components: []discordgo.MessageComponent{
					discordgo.SelectMenu{
						MenuType:    discordgo.StringSelectMenu,
						CustomID:    gatekeeper.CustomIDRoleTemplate,
						Placeholder: l.T("rr_template_placeholder"),
						MinValues:   &one,
						MaxValues:   1,
						Options:     options,
					},
				},
			},
			discordgo.ActionsRow{
				Components: []discordgo.MessageComponent{
					discordgo.Button{
						Label:    l.T("rr_open_builder"),
						Style:    discordgo.PrimaryButton,
						CustomID: gatekeeper.CustomIDRoleBuilder,
						Emoji:    &discordgo.ComponentEmoji{Name: "⚙️"},
					},
				},
			},
		},
	})
}

func (b *Bot) handleTemplate(lg *slog.Logger, i *discordgo.InteractionCreate) {
	l := localization.GetLocalizer(i)

	user := internal.InteractionUser(i)
	values := i.MessageComponentData().Values
	if user == nil || len(values) == 0 {
		return
	}

	tpl := b.templates.Get(values[0])
	b.selections.Set(selectionKey(i.GuildID, user.ID), tpl.Key, b.selectionTTL)

	b.replyEmbed(lg, i, Preview(b.embeds, l, tpl))
}

func textInput(customID, label, placeholder string, style discordgo.TextInputStyle, required bool, maxLength int) discordgo.MessageComponent {
	return discordgo.ActionsRow{
		Components: []discordgo.MessageComponent{
			discordgo.TextInput{
				CustomID:    customID,
				Label:       label,
				Style:       style,
				Placeholder: placeholder,
				Required:    required,
				MaxLength:   maxLength,
			},
		},
	}
}

func (b *Bot) handleBuilder(lg *slog.Logger, i *discordgo.InteractionCreate) {
	l := localization.GetLocalizer(i)

	key := b.templates[0].Key
	if user := internal.InteractionUser(i); user != nil {
		if picked, ok := b.selections.Get(selectionKey(i.GuildID, user.ID)); ok {
			key = picked
		}
	}

	if err := b.session.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: &discordgo.InteractionResponseData{
			CustomID: gatekeeper.CustomIDRoleModal + ":" + key,
			Title:    l.T("rr_modal_title"),
			Components: []discordgo.MessageComponent{
				textInput(inputTitle, l.T("rr_modal_title_label"), l.T("rr_modal_title_placeholder"), discordgo.TextInputShort, false, 200),
				textInput(inputBody, l.T("rr_modal_body_label"), l.T("rr_modal_body_placeholder"), discordgo.TextInputParagraph, false, 4000),
				textInput(inputPairs, l.T("rr_modal_pairs_label"), l.T("rr_modal_pairs_placeholder"), discordgo.TextInputParagraph, true, 4000),
				textInput(inputChannel, l.T("rr_modal_channel_label"), l.T("rr_modal_channel_placeholder"), discordgo.TextInputShort, true, 64),
			},
		},
	}); err != nil {
		lg.Error("can't open builder modal", "err", err)
	}
}

// modalValues collects the text inputs of a submitted modal by custom ID.
func modalValues(data discordgo.ModalSubmitInteractionData) map[string]string {
	result := map[string]string{}
	for _, c := range data.Components {
		row, ok := c.(*discordgo.ActionsRow)
		if !ok {
			continue
		}

		for _, inner := range row.Components {
			if in, ok := inner.(*discordgo.TextInput); ok {
				result[in.CustomID] = in.Value
			}
		}
	}
	return result
}

// bullets renders errors as a list for the validation embed.
func bullets(errs []error) string {
	lines := make([]string, 0, len(errs))
	for _, err := range errs {
		lines = append(lines, "• "+strings.ReplaceAll(err.Error(), "reactrole: ", ""))
	}
	return strings.Join(lines, "\n")
}

// draft is a validated builder submission.
type draft struct {
	pairs      Pairs
	channel    *discordgo.Channel
	guildRoles []*discordgo.Role
	emojis     []*discordgo.Emoji
}

// validate runs every check on a submission and returns all problems at
// once so the administrator can fix them in one go.
func (b *Bot) validate(ctx context.Context, guildID string, values map[string]string) (draft, []error, error) {
	var d draft

	pairs, errs := ParseMappings(values[inputPairs])

	if len(pairs) != 0 {
		emojis, err := b.dir.Emojis(ctx, guildID)
		if err != nil {
			return d, nil, fmt.Errorf("can't list emojis: %w", err)
		}

		var resolveErrs []error
		d.emojis = emojis
		d.pairs, resolveErrs = Resolve(pairs, emojis)
		errs = append(errs, resolveErrs...)
	}

	if id, ok := ChannelID(values[inputChannel]); ok {
		if ch, err := b.dir.Channel(ctx, id); err == nil && TextChannel(ch, guildID) {
			d.channel = ch
		}
	}
	if d.channel == nil {
		errs = append(errs, ErrInvalidChannel)
	}

	if len(d.pairs) != 0 {
		guildRoles, err := b.dir.Roles(ctx, guildID)
		if err != nil {
			return d, nil, fmt.Errorf("can't list roles: %w", err)
		}

		me, err := b.dir.Member(ctx, guildID, b.dir.SelfID())
		if err != nil {
			return d, nil, fmt.Errorf("can't look up own member: %w", err)
		}

		d.guildRoles = guildRoles
		errs = append(errs, ValidateRoles(d.pairs, guildID, guildRoles, me)...)
	}

	return d, errs, nil
}

func (b *Bot) handleBuild(ctx context.Context, lg *slog.Logger, i *discordgo.InteractionCreate, templateKey string) {
	l := localization.GetLocalizer(i)

	user := internal.InteractionUser(i)
	if i.GuildID == "" || user == nil {
		b.replyEmbed(lg, i, b.embeds.Error(l.T("server_only_title"), l.T("server_only")))
		return
	}

	tpl := b.templates.Get(templateKey)
	values := modalValues(i.ModalSubmitData())

	d, problems, err := b.validate(ctx, i.GuildID, values)
	if err != nil {
		lg.Error("can't validate reaction roles", "err", err)
		b.replyEmbed(lg, i, b.embeds.Error(l.T("error_title"), l.T("generic_error")))
		return
	}

	if len(problems) != 0 {
		validationFailures.Inc()
		lg.Debug("reaction roles rejected", "problems", len(problems))
		b.replyEmbed(lg, i, b.embeds.Error(l.T("rr_validation_failed_title"), bullets(problems)))
		return
	}

	// Posting and reacting can take longer than the initial response window.
	if err := b.session.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral},
	}); err != nil {
		lg.Error("can't defer interaction", "err", err)
		return
	}

	title := strings.TrimSpace(values[inputTitle])
	if title == "" {
		title = tpl.Title
	}
	if title == "" {
		title = fallbackTitle
	}

	description := strings.TrimSpace(values[inputBody])
	if description == "" {
		description = strings.TrimSpace(tpl.Description)
	}

	e := b.embeds.Info(title, description)
	e.Fields = append(e.Fields, LegendFields(l.T("rr_react_with"), LegendLines(d.pairs, d.guildRoles, d.emojis))...)
	e.Fields = append(e.Fields, &discordgo.MessageEmbedField{Name: l.T("rr_how_it_works"), Value: l.T("rr_how_it_works_posted")})

	msg, err := b.session.ChannelMessageSendComplex(d.channel.ID, &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{e},
	}, discordgo.WithContext(ctx))
	if err != nil {
		lg.Error("can't post reaction roles message", "channel_id", d.channel.ID, "err", err)
		b.finish(lg, i, b.embeds.Error(
			l.T("rr_send_failed_title"),
			l.TD("rr_send_failed", map[string]any{"Channel": d.channel.Mention(), "Error": err.Error()}),
		))
		return
	}

	var reactErrs []string
	for _, p := range d.pairs {
		if err := b.session.MessageReactionAdd(d.channel.ID, msg.ID, reactionID(p.Key, d.emojis), discordgo.WithContext(ctx)); err != nil {
			lg.Warn("can't add reaction", "message_id", msg.ID, "emoji", string(p.Key), "err", err)
			reactErrs = append(reactErrs, fmt.Sprintf("• %s: %v", p.Key, err))
		}
	}

	if err := b.messages.Set(ctx, msg.ID, MessageMapping{
		GuildID:     i.GuildID,
		ChannelID:   d.channel.ID,
		Mappings:    d.pairs.Map(),
		CreatedBy:   user.ID,
		Title:       title,
		Description: description,
	}); err != nil {
		lg.Error("can't save reaction roles", "message_id", msg.ID, "err", err)
		b.finish(lg, i, b.embeds.Error(l.T("error_title"), l.T("rr_save_failed")))
		return
	}

	messagesCreated.Inc()
	lg.Info("reaction roles message created", "message_id", msg.ID, "channel_id", d.channel.ID, "template", tpl.Key, "pairs", len(d.pairs))

	desc := l.TD("rr_complete", map[string]any{
		"Template": tpl.Label,
		"Channel":  d.channel.Mention(),
		"URL":      jumpURL(i.GuildID, d.channel.ID, msg.ID),
	})
	if len(reactErrs) != 0 {
		desc += "\n\n" + l.T("rr_reactions_failed") + "\n" + strings.Join(reactErrs, "\n")
	}

	b.finish(lg, i, b.embeds.Success(l.T("rr_complete_title"), desc))
}

// finish replaces the deferred response with e.
func (b *Bot) finish(lg *slog.Logger, i *discordgo.InteractionCreate, e *discordgo.MessageEmbed) {
	list := []*discordgo.MessageEmbed{e}
	if _, err := b.session.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{Embeds: &list}); err != nil {
		lg.Error("can't edit deferred response", "err", err)
	}
}

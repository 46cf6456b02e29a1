package reactrole

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/uvensys/gatekeeper"
	"github.com/uvensys/gatekeeper/decaymap"
	"github.com/uvensys/gatekeeper/internal"
	"github.com/uvensys/gatekeeper/lib/embeds"
	"github.com/uvensys/gatekeeper/lib/roles"
)

// Session is the part of *discordgo.Session the bot uses.
type Session interface {
	roles.Mutator
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
	UserChannelCreate(recipientID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	InteractionResponseEdit(interaction *discordgo.Interaction, newresp *discordgo.WebhookEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
	MessageReactionAdd(channelID, messageID, emojiID string, options ...discordgo.RequestOption) error
}

type Options struct {
	Messages  *Messages
	Directory Directory
	Templates Templates
	Embeds    *embeds.Builder

	// SelectionTTL is how long a template picked in /setup is remembered
	// for the Open Builder button. Zero means 10 minutes.
	SelectionTTL time.Duration

	// Now replaces time.Now, mostly for tests.
	Now func() time.Time

	// InteractionTimeout bounds the work done for one event, including
	// posting a message and adding its reactions. Zero means 30 seconds.
	InteractionTimeout time.Duration
}

// Bot runs the /setup builder and toggles roles on reactions.
type Bot struct {
	session      Session
	dir          Directory
	messages     *Messages
	templates    Templates
	embeds       *embeds.Builder
	selectionTTL time.Duration
	selections   *decaymap.Impl[string, string]
	timeout      time.Duration
}

func New(session Session, opts Options) *Bot {
	b := &Bot{
		session:      session,
		dir:          opts.Directory,
		messages:     opts.Messages,
		templates:    opts.Templates,
		embeds:       opts.Embeds,
		selectionTTL: opts.SelectionTTL,
		timeout:      opts.InteractionTimeout,
	}

	if b.selectionTTL == 0 {
		b.selectionTTL = 10 * time.Minute
	}

	if b.timeout == 0 {
		b.timeout = 30 * time.Second
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	b.selections = decaymap.New[string, string]().WithClock(now)

	return b
}

const CommandSetup = "setup"

// Commands are registered with Discord when the bot connects.
func Commands() []*discordgo.ApplicationCommand {
	var (
		adminOnly int64 = discordgo.PermissionAdministrator
		dm              = false
	)

	return []*discordgo.ApplicationCommand{
		{
			Name:                     CommandSetup,
			Description:              "Create a reaction roles message via an interactive builder.",
			DefaultMemberPermissions: &adminOnly,
			DMPermission:             &dm,
		},
	}
}

// HandleInteraction routes an interaction to its handler. Interactions that
// belong to another bot are ignored.
func (b *Bot) HandleInteraction(ctx context.Context, i *discordgo.InteractionCreate) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	lg := internal.GetInteractionLogger(i)

	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		if i.ApplicationCommandData().Name == CommandSetup {
			interactions.WithLabelValues(CommandSetup).Inc()
			b.handleSetup(lg, i)
		}
	case discordgo.InteractionMessageComponent:
		switch id := i.MessageComponentData().CustomID; id {
		case gatekeeper.CustomIDRoleTemplate:
			interactions.WithLabelValues(id).Inc()
			b.handleTemplate(lg, i)
		case gatekeeper.CustomIDRoleBuilder:
			interactions.WithLabelValues(id).Inc()
			b.handleBuilder(lg, i)
		}
	case discordgo.InteractionModalSubmit:
		if key, ok := strings.CutPrefix(i.ModalSubmitData().CustomID, gatekeeper.CustomIDRoleModal+":"); ok {
			interactions.WithLabelValues(gatekeeper.CustomIDRoleModal).Inc()
			b.handleBuild(ctx, lg, i, key)
		}
	}
}

// Sweep drops stale template selections every interval until ctx is done.
func (b *Bot) Sweep(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			b.selections.Cleanup()
		}
	}
}

func selectionKey(guildID, userID string) string {
	return internal.FastHash(guildID + ":" + userID)
}

func (b *Bot) reply(lg *slog.Logger, i *discordgo.InteractionCreate, data *discordgo.InteractionResponseData) {
	data.Flags |= discordgo.MessageFlagsEphemeral

	if err := b.session.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	}); err != nil {
		lg.Error("can't respond to interaction", "err", err)
	}
}

func (b *Bot) replyEmbed(lg *slog.Logger, i *discordgo.InteractionCreate, e *discordgo.MessageEmbed) {
	b.reply(lg, i, &discordgo.InteractionResponseData{Embeds: []*discordgo.MessageEmbed{e}})
}

func jumpURL(guildID, channelID, messageID string) string {
	return "https://discord.com/channels/" + guildID + "/" + channelID + "/" + messageID
}

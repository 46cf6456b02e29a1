// Package verify implements the verification bot: the setup command, the
// Verify panel, the CAPTCHA challenge flow and the role changes that follow.
package verify

import (
	"context"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/uvensys/gatekeeper"
	"github.com/uvensys/gatekeeper/decaymap"
	"github.com/uvensys/gatekeeper/internal"
	"github.com/uvensys/gatekeeper/lib/challenge"
	"github.com/uvensys/gatekeeper/lib/config"
	"github.com/uvensys/gatekeeper/lib/embeds"
	"github.com/uvensys/gatekeeper/lib/localization"
	"github.com/uvensys/gatekeeper/lib/roles"
)

// Session is the part of *discordgo.Session the verification bot uses.
type Session interface {
	roles.Mutator
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
	UserChannelCreate(recipientID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
}

// Options configures a Bot.
type Options struct {
	Challenges *challenge.Store
	Configs    *Configs
	Embeds     *embeds.Builder
	Emojis     config.Emojis

	// Cooldown is the minimum delay between two Verify presses by the same
	// user. Zero means gatekeeper.VerifyCooldown.
	Cooldown time.Duration

	// Now replaces time.Now, mostly for tests.
	Now func() time.Time

	// InteractionTimeout bounds the work done for one interaction. Zero
	// means 10 seconds.
	InteractionTimeout time.Duration
}

// Bot handles verification interactions and member joins.
type Bot struct {
	session    Session
	challenges *challenge.Store
	configs    *Configs
	embeds     *embeds.Builder
	emojis     config.Emojis
	cooldown   time.Duration
	cooldowns  *decaymap.Impl[string, struct{}]
	now        func() time.Time
	timeout    time.Duration
}

func New(session Session, opts Options) *Bot {
	b := &Bot{
		session:    session,
		challenges: opts.Challenges,
		configs:    opts.Configs,
		embeds:     opts.Embeds,
		emojis:     opts.Emojis,
		cooldown:   opts.Cooldown,
		now:        opts.Now,
		timeout:    opts.InteractionTimeout,
	}

	if b.cooldown == 0 {
		b.cooldown = gatekeeper.VerifyCooldown
	}

	if b.now == nil {
		b.now = time.Now
	}

	if b.timeout == 0 {
		b.timeout = 10 * time.Second
	}

	b.cooldowns = decaymap.New[string, struct{}]().WithClock(b.now)

	return b
}

const (
	CommandSetup = "setupverification"

	optionVerifiedRole   = "verifiedrole"
	optionUnverifiedRole = "notverifiedrole"
	optionChannel        = "channelofverification"
)

// Commands returns the slash commands the bot registers.
func Commands() []*discordgo.ApplicationCommand {
	admin := int64(discordgo.PermissionAdministrator)
	dm := false

	return []*discordgo.ApplicationCommand{
		{
			Name:                     CommandSetup,
			Description:              "Setup verification for this server",
			DefaultMemberPermissions: &admin,
			DMPermission:             &dm,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionRole,
					Name:        optionVerifiedRole,
					Description: "Role to grant when user verifies",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionRole,
					Name:        optionUnverifiedRole,
					Description: "Role to assign to new members before verification",
					Required:    true,
				},
				{
					Type:         discordgo.ApplicationCommandOptionChannel,
					Name:         optionChannel,
					Description:  "Channel where the Verify button will be posted",
					Required:     true,
					ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildText},
				},
			},
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
			b.handleSetup(ctx, lg, i)
		}
	case discordgo.InteractionMessageComponent:
		switch id := i.MessageComponentData().CustomID; id {
		case gatekeeper.CustomIDVerifyStart:
			interactions.WithLabelValues(id).Inc()
			b.handleStart(ctx, lg, i)
		case gatekeeper.CustomIDVerifySolve:
			interactions.WithLabelValues(id).Inc()
			b.handleSolve(lg, i)
		}
	case discordgo.InteractionModalSubmit:
		if id := i.ModalSubmitData().CustomID; id == gatekeeper.CustomIDVerifyModal {
			interactions.WithLabelValues(id).Inc()
			b.handleAnswer(ctx, lg, i)
		}
	}
}

// HandleGuildDelete forgets the configuration of guilds the bot was removed
// from. Outages (Unavailable) keep it.
func (b *Bot) HandleGuildDelete(ctx context.Context, g *discordgo.GuildDelete) {
	if g.Guild == nil || g.Unavailable {
		return
	}

	if err := b.configs.Delete(ctx, g.ID); err != nil {
		slog.Error("can't forget guild", "guild", g.ID, "err", err)
		return
	}

	slog.Info("removed from guild, forgot verification config", "guild", g.ID)
}

// Sweep drops expired challenges every interval until ctx is done.
func (b *Bot) Sweep(ctx context.Context, interval time.Duration) {
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				b.cooldowns.Cleanup()
			}
		}
	}()

	b.challenges.Sweep(ctx, interval)
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
	b.reply(lg, i, &discordgo.InteractionResponseData{
		Embeds: []*discordgo.MessageEmbed{e},
	})
}

func componentEmoji(e *config.Emoji) *discordgo.ComponentEmoji {
	if e == nil {
		return nil
	}

	return &discordgo.ComponentEmoji{
		ID:       e.ID,
		Name:     e.Name,
		Animated: e.Animated,
	}
}

func (b *Bot) verifyButton(l *localization.SimpleLocalizer) discordgo.MessageComponent {
	return discordgo.ActionsRow{
		Components: []discordgo.MessageComponent{
			discordgo.Button{
				Label:    l.T("button_verify"),
				Style:    discordgo.SuccessButton,
				CustomID: gatekeeper.CustomIDVerifyStart,
				Emoji:    componentEmoji(b.emojis.Verify),
			},
		},
	}
}

func (b *Bot) solveButton(l *localization.SimpleLocalizer) discordgo.MessageComponent {
	return discordgo.ActionsRow{
		Components: []discordgo.MessageComponent{
			discordgo.Button{
				Label:    l.T("button_solve"),
				Style:    discordgo.PrimaryButton,
				CustomID: gatekeeper.CustomIDVerifySolve,
				Emoji:    componentEmoji(b.emojis.Solve),
			},
		},
	}
}

func roleMention(id string) string    { return "<@&" + id + ">" }
func channelMention(id string) string { return "<#" + id + ">" }

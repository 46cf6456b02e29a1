package internal

import (
	"errors"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/bwmarrin/discordgo"
)

var ErrNoToken = errors.New("internal: no Discord bot token, set DISCORD_TOKEN or --discord-token")

// Gateway is a Discord session that tracks whether it is connected and
// registers its slash commands every time it becomes ready.
type Gateway struct {
	Session *discordgo.Session

	// Status is shown as the bot's "Playing" activity. Set it before Open.
	Status string

	commands []*discordgo.ApplicationCommand
	ready    atomic.Bool
}

// NewGateway prepares a session. Add event handlers before calling Open.
func NewGateway(token string, intents discordgo.Intent, commands []*discordgo.ApplicationCommand) (*Gateway, error) {
	token = strings.TrimSpace(token)
	if rest, ok := strings.CutPrefix(token, "Bot"); ok && (rest == "" || rest[0] == ' ' || rest[0] == '\t') {
		token = strings.TrimSpace(rest)
	}
	if token == "" {
		return nil, ErrNoToken
	}

	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, err
	}
	s.Identify.Intents = intents

	g := &Gateway{Session: s, commands: commands}

	s.AddHandler(g.onReady)
	s.AddHandler(func(*discordgo.Session, *discordgo.Resumed) { g.ready.Store(true) })
	s.AddHandler(func(*discordgo.Session, *discordgo.Disconnect) {
		g.ready.Store(false)
		slog.Warn("disconnected from the Discord gateway")
	})

	return g, nil
}

func (g *Gateway) onReady(s *discordgo.Session, r *discordgo.Ready) {
	slog.Info("connected to Discord", "user", r.User.String(), "guilds", len(r.Guilds))

	if len(g.commands) != 0 {
		if _, err := s.ApplicationCommandBulkOverwrite(r.User.ID, "", g.commands); err != nil {
			slog.Error("can't register slash commands", "err", err)
		} else {
			slog.Debug("registered slash commands", "count", len(g.commands))
		}
	}

	if g.Status != "" {
		if err := s.UpdateGameStatus(0, g.Status); err != nil {
			slog.Warn("can't set presence", "status", g.Status, "err", err)
		}
	}

	g.ready.Store(true)
}

// Ready reports whether the gateway connection is up.
func (g *Gateway) Ready() bool {
	return g.ready.Load()
}

func (g *Gateway) Open() error {
	return g.Session.Open()
}

func (g *Gateway) Close() error {
	g.ready.Store(false)
	return g.Session.Close()
}

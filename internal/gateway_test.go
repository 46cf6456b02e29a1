package internal

import (
	"errors"
	"testing"

	"github.com/bwmarrin/discordgo"
)

func TestNewGateway(t *testing.T) {
	for _, tt := range []struct {
		name  string
		token string
		want  string
		err   error
	}{
		{name: "empty", token: "", err: ErrNoToken},
		{name: "only prefix", token: "Bot ", err: ErrNoToken},
		{name: "bare prefix", token: "Bot", err: ErrNoToken},
		{name: "padded prefix", token: "  Bot   ", err: ErrNoToken},
		{name: "plain token", token: "abc.def.ghi", want: "Bot abc.def.ghi"},
		{name: "prefixed token", token: "Bot abc.def.ghi", want: "Bot abc.def.ghi"},
		{name: "prefixed token with padding", token: " Bot  abc.def.ghi\n", want: "Bot abc.def.ghi"},
		{name: "token starting with Bot", token: "BotQ1.def.ghi", want: "Bot BotQ1.def.ghi"},
	} {
		t.Run(tt.name, func(t *testing.T) {
			g, err := NewGateway(tt.token, discordgo.IntentsGuilds, nil)
			if !errors.Is(err, tt.err) {
				t.Fatalf("want %v, got %v", tt.err, err)
			}
			if err != nil {
				return
			}

			if g.Session.Token != tt.want {
				t.Errorf("unexpected token %q", g.Session.Token)
			}
			if g.Session.Identify.Intents != discordgo.IntentsGuilds {
				t.Errorf("unexpected intents %d", g.Session.Identify.Intents)
			}
			if g.Ready() {
				t.Error("a gateway that was never opened is not ready")
			}
		})
	}
}

func TestOnReady(t *testing.T) {
	g, err := NewGateway("abc.def.ghi", discordgo.IntentsGuilds, nil)
	if err != nil {
		t.Fatal(err)
	}
	g.Status = "/setup"

	// Without a websocket the presence update fails; that must not keep the
	// gateway from becoming ready.
	g.onReady(g.Session, &discordgo.Ready{User: &discordgo.User{ID: "1", Username: "gatekeeper"}})

	if !g.Ready() {
		t.Error("gateway not ready after the Ready event")
	}

	if err := g.Close(); err != nil {
		t.Logf("close: %v", err)
	}
	if g.Ready() {
		t.Error("gateway still ready after Close")
	}
}

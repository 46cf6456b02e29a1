package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/facebookgo/flagenv"
	_ "github.com/joho/godotenv/autoload"
	"github.com/uvensys/gatekeeper"
	"github.com/uvensys/gatekeeper/internal"
	"github.com/uvensys/gatekeeper/lib/config"
	"github.com/uvensys/gatekeeper/lib/embeds"
	"github.com/uvensys/gatekeeper/lib/reactrole"
)

var (
	configFname        = flag.String("config-fname", "", "full path to the gatekeeper configuration file (defaults to a built-in config with an in-memory store)")
	templatesFname     = flag.String("templates-fname", "", "full path to a YAML list of reaction-role message templates (defaults to the built-in templates)")
	discordToken       = flag.String("discord-token", "", "Discord bot token")
	healthcheck        = flag.Bool("healthcheck", false, "run a health check against a running rolebot")
	metricsBind        = flag.String("metrics-bind", ":9091", "network address to bind metrics and health checks to, empty to disable")
	metricsBindNetwork = flag.String("metrics-bind-network", "tcp", "network family for the metrics server to bind to")
	socketMode         = flag.String("socket-mode", "0770", "socket mode (permissions) for unix domain sockets.")
	slogLevel          = flag.String("slog-level", "INFO", "logging level (see https://pkg.go.dev/log/slog#hdr-Levels)")
	versionFlag        = flag.Bool("version", false, "print gatekeeper version")
)

func loadTemplates() (reactrole.Templates, error) {
	if *templatesFname == "" {
		return reactrole.DefaultTemplates()
	}

	return reactrole.LoadTemplates(os.DirFS(filepath.Dir(*templatesFname)), filepath.Base(*templatesFname))
}

func main() {
	flagenv.Parse()
	flag.Parse()

	if *versionFlag {
		fmt.Println("gatekeeper rolebot", gatekeeper.Version)
		return
	}

	internal.InitSlog(*slogLevel)

	if *healthcheck {
		if err := internal.DoHealthCheck(context.Background(), *metricsBind); err != nil {
			log.Fatal(err)
		}
		return
	}

	cfg, err := config.LoadFile(*configFname)
	if err != nil {
		log.Fatalf("can't load configuration: %v", err)
	}

	templates, err := loadTemplates()
	if err != nil {
		log.Fatalf("can't load templates: %v", err)
	}

	// install signal handler
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Store.Backend == "memory" {
		slog.Warn("reaction-role messages are kept in memory and are forgotten on restart, configure the bbolt or valkey store to keep them")
	}

	st, err := cfg.Store.Build(ctx)
	if err != nil {
		log.Fatalf("can't build %s store: %v", cfg.Store.Backend, err)
	}
	if c, ok := st.(io.Closer); ok {
		defer c.Close()
	}

	intents := discordgo.IntentsGuilds |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMessageReactions |
		discordgo.IntentsGuildEmojis

	gw, err := internal.NewGateway(*discordToken, intents, reactrole.Commands())
	if err != nil {
		log.Fatal(err)
	}
	gw.Status = "/setup"

	bot := reactrole.New(gw.Session, reactrole.Options{
		Messages:  reactrole.NewMessages(st),
		Directory: reactrole.StateDirectory{Session: gw.Session},
		Templates: templates,
		Embeds:    &embeds.Builder{Footer: cfg.Footer},
	})

	gw.Session.AddHandler(func(_ *discordgo.Session, i *discordgo.InteractionCreate) {
		bot.HandleInteraction(ctx, i)
	})
	gw.Session.AddHandler(func(_ *discordgo.Session, r *discordgo.MessageReactionAdd) {
		bot.HandleReactionAdd(ctx, r)
	})
	gw.Session.AddHandler(func(_ *discordgo.Session, r *discordgo.MessageReactionRemove) {
		bot.HandleReactionRemove(ctx, r)
	})
	gw.Session.AddHandler(func(_ *discordgo.Session, m *discordgo.MessageDelete) {
		bot.HandleMessageDelete(ctx, m)
	})
	gw.Session.AddHandler(func(_ *discordgo.Session, m *discordgo.MessageDeleteBulk) {
		bot.HandleMessageDeleteBulk(ctx, m)
	})

	wg := new(sync.WaitGroup)

	if *metricsBind != "" {
		ms := &internal.MetricsServer{
			Network:    *metricsBindNetwork,
			Bind:       *metricsBind,
			SocketMode: *socketMode,
			Ready:      gw.Ready,
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := ms.Run(ctx); err != nil {
				log.Fatalf("metrics server failed: %v", err)
			}
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		bot.Sweep(ctx, time.Minute)
	}()

	if err := gw.Open(); err != nil {
		log.Fatalf("can't connect to Discord: %v", err)
	}

	slog.Info(
		"rolebot running",
		"version", gatekeeper.Version,
		"store", cfg.Store.Backend,
		"templates", len(templates),
	)

	<-ctx.Done()
	slog.Info("shutting down")

	if err := gw.Close(); err != nil {
		slog.Error("can't close Discord session", "err", err)
	}
	wg.Wait()
}

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
	"sync"
	"syscall"

	"github.com/bwmarrin/discordgo"
	"github.com/facebookgo/flagenv"
	_ "github.com/joho/godotenv/autoload"
	"github.com/uvensys/gatekeeper"
	"github.com/uvensys/gatekeeper/internal"
	"github.com/uvensys/gatekeeper/lib/challenge"
	"github.com/uvensys/gatekeeper/lib/challenge/render"
	"github.com/uvensys/gatekeeper/lib/config"
	"github.com/uvensys/gatekeeper/lib/embeds"
	"github.com/uvensys/gatekeeper/lib/verify"
)

var (
	configFname        = flag.String("config-fname", "", "full path to the gatekeeper configuration file (defaults to a built-in config with an in-memory store)")
	discordToken       = flag.String("discord-token", "", "Discord bot token")
	healthcheck        = flag.Bool("healthcheck", false, "run a health check against a running verifybot")
	metricsBind        = flag.String("metrics-bind", ":9090", "network address to bind metrics and health checks to, empty to disable")
	metricsBindNetwork = flag.String("metrics-bind-network", "tcp", "network family for the metrics server to bind to")
	socketMode         = flag.String("socket-mode", "0770", "socket mode (permissions) for unix domain sockets.")
	slogLevel          = flag.String("slog-level", "INFO", "logging level (see https://pkg.go.dev/log/slog#hdr-Levels)")
	versionFlag        = flag.Bool("version", false, "print gatekeeper version")
)

// Puzzle image sizes.
const (
	captchaWidth, captchaHeight = 280, 100
	plainWidth, plainHeight     = 420, 140
	plainFontSize               = 48
)

func newGenerator(v config.Verification) (challenge.Generator, error) {
	captcha := render.NewCaptcha(captchaWidth, captchaHeight)
	plain, err := render.NewPlain(plainWidth, plainHeight, plainFontSize)
	if err != nil {
		return nil, err
	}

	switch {
	case v.TextPuzzles && v.MathPuzzles:
		return challenge.NewGenerator(captcha, plain), nil
	case v.MathPuzzles:
		return &challenge.Math{Renderer: plain}, nil
	default:
		return &challenge.Text{Renderer: captcha}, nil
	}
}

func main() {
	flagenv.Parse()
	flag.Parse()

	if *versionFlag {
		fmt.Println("gatekeeper verifybot", gatekeeper.Version)
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

	// install signal handler
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := cfg.Store.Build(ctx)
	if err != nil {
		log.Fatalf("can't build %s store: %v", cfg.Store.Backend, err)
	}
	if c, ok := st.(io.Closer); ok {
		defer c.Close()
	}

	gen, err := newGenerator(cfg.Verification)
	if err != nil {
		log.Fatalf("can't set up puzzle rendering: %v", err)
	}

	gw, err := internal.NewGateway(*discordToken, discordgo.IntentsGuilds|discordgo.IntentsGuildMembers, verify.Commands())
	if err != nil {
		log.Fatal(err)
	}
	gw.Status = "/setupverification"

	bot := verify.New(gw.Session, verify.Options{
		Challenges: challenge.NewStore(gen,
			challenge.WithTTL(cfg.Verification.TTL),
			challenge.WithAttempts(cfg.Verification.Attempts),
		),
		Configs:  verify.NewConfigs(st),
		Embeds:   &embeds.Builder{Footer: cfg.Footer},
		Emojis:   cfg.Emojis,
		Cooldown: cfg.Verification.Cooldown,
	})

	gw.Session.AddHandler(func(_ *discordgo.Session, i *discordgo.InteractionCreate) {
		bot.HandleInteraction(ctx, i)
	})
	gw.Session.AddHandler(func(_ *discordgo.Session, m *discordgo.GuildMemberAdd) {
		bot.HandleMemberJoin(ctx, m)
	})
	gw.Session.AddHandler(func(_ *discordgo.Session, g *discordgo.GuildDelete) {
		bot.HandleGuildDelete(ctx, g)
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
		bot.Sweep(ctx, cfg.Verification.SweepInterval)
	}()

	if err := gw.Open(); err != nil {
		log.Fatalf("can't connect to Discord: %v", err)
	}

	slog.Info(
		"verifybot running",
		"version", gatekeeper.Version,
		"store", cfg.Store.Backend,
		"challenge-ttl", cfg.Verification.TTL,
		"attempts", cfg.Verification.Attempts,
		"cooldown", cfg.Verification.Cooldown,
		"sweep-interval", cfg.Verification.SweepInterval,
		"text-puzzles", cfg.Verification.TextPuzzles,
		"math-puzzles", cfg.Verification.MathPuzzles,
	)

	<-ctx.Done()
	slog.Info("shutting down")

	if err := gw.Close(); err != nil {
		slog.Error("can't close Discord session", "err", err)
	}
	wg.Wait()
}

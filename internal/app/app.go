// Package app wires the service components together and manages their
// lifecycle.
package app

import (
	"context"
	"fmt"
	"log/slog"

	tgbot "github.com/go-telegram/bot"
	"golang.org/x/sync/errgroup"

	"github.com/apirelay/featbot/internal/config"
	"github.com/apirelay/featbot/internal/feature"
	"github.com/apirelay/featbot/internal/keepalive"
	"github.com/apirelay/featbot/internal/notify"
	"github.com/apirelay/featbot/internal/outbound"
	"github.com/apirelay/featbot/internal/queue"
	"github.com/apirelay/featbot/internal/server"
	"github.com/apirelay/featbot/internal/webhook"
)

// spamwatch documents a retryable lookup; the ban-list service is flaky
// enough that the reference behavior always reattempted twice.
const spamwatchRetries = 2

// App holds the wired components of the service.
type App struct {
	cfg    *config.Config
	log    *slog.Logger
	tg     *tgbot.Bot
	server *server.Server
	pinger *keepalive.Pinger
}

// New constructs every component from the loaded configuration.
func New(cfg *config.Config, log *slog.Logger) (*App, error) {
	tg, err := tgbot.New(cfg.Telegram.Token, tgbot.WithSkipGetMe())
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	spamwatch := feature.NewSpamwatchClient(outbound.NewClient(
		cfg.Features.SpamwatchURL,
		cfg.Client.Timeout,
		outbound.WithBearerToken(cfg.Features.SpamwatchToken),
		outbound.WithRetries(spamwatchRetries),
	))
	lyrics := feature.NewLyricsClient(
		outbound.NewClient(
			cfg.Features.GeniusURL,
			cfg.Client.Timeout,
			outbound.WithBearerToken(cfg.Features.GeniusToken),
			outbound.WithRetries(cfg.Client.Retries),
		),
		outbound.NewClient("", cfg.Client.Timeout, outbound.WithRetries(cfg.Client.Retries)),
	)
	registry := feature.NewRegistry(log, spamwatch, lyrics)

	pinger, err := keepalive.NewPinger(cfg.Server.PublicURL, cfg.KeepAlive.Interval, cfg.KeepAlive.Timeout, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create keep-alive pinger: %w", err)
	}

	dispatcher := queue.NewDispatcher(
		int64(cfg.Queue.Concurrency),
		pinger,
		cfg.Queue.DelayMin,
		cfg.Queue.DelayMax,
		log,
	)

	sink := notify.NewSink(tg, cfg.Telegram.LogChatID, cfg.Notify.Timeout,
		cfg.Telegram.LinkName, cfg.Telegram.LinkURL, log)
	handler := webhook.NewHandler(tg, cfg.Webhook.MaxAge, cfg.Webhook.BlockedPhrases, log)
	srv := server.NewServer(cfg, log, registry, dispatcher, sink, handler)

	return &App{
		cfg:    cfg,
		log:    log.With("component", "app"),
		tg:     tg,
		server: srv,
		pinger: pinger,
	}, nil
}

// Run starts the HTTP server, the keep-alive scheduler, and the webhook
// registration sequence, then blocks until ctx is cancelled or a component
// fails.
func (a *App) Run(ctx context.Context) error {
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.server.Run(gCtx)
	})

	g.Go(func() error {
		a.pinger.Start()
		<-gCtx.Done()
		if err := a.pinger.Stop(); err != nil {
			a.log.Error("error stopping keep-alive scheduler", "error", err)
		}
		return nil
	})

	g.Go(func() error {
		if a.cfg.IsProduction() {
			// Registration is best effort; the ping only arms once it ran.
			webhook.Setup(gCtx, a.tg, a.cfg.Server.PublicURL, a.cfg.Telegram.Token, a.log)
			a.pinger.Enable()
		} else {
			webhook.Identify(gCtx, a.tg, a.log)
		}
		return nil
	})

	return g.Wait()
}

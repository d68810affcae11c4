// Package app is the composition root: it loads configuration, brings up
// the infrastructure, assembles the services, and runs the bot.
package app

import (
	"context"
	"fmt"
	"log/slog"

	tele "gopkg.in/telebot.v4"

	"filmgate/core/bootstrap"
	coreconfig "filmgate/core/config"
	"filmgate/core/logger"
	tg "filmgate/core/telegram"
	tgsender "filmgate/core/telegram/sender"
	"filmgate/internal/bot"
	"filmgate/internal/content"
	"filmgate/internal/flow"
	"filmgate/internal/gate"
	"filmgate/internal/storage"
)

// Run boots the application and blocks until ctx is cancelled or the bot
// stops on its own.
func Run(ctx context.Context, cfg *coreconfig.Config) error {
	infra, err := bootstrap.Run(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := infra.DB.Close(); err != nil {
			logger.DB.Warn("db close failed",
				slog.String("event", "db.close"),
				slog.String("err", err.Error()),
			)
		}
	}()

	store := storage.New(infra.DB)

	// The configured owner is always an admin; this also self-heals a
	// database restored without one.
	if err := store.Users.EnsureAdmin(ctx, cfg.Telegram.OwnerID, "owner"); err != nil {
		return fmt.Errorf("seed owner: %w", err)
	}
	logger.SEED.Info("owner seeded",
		slog.String("event", "seed.owner"),
		slog.Int64("chat_id", cfg.Telegram.OwnerID),
	)

	reg := tg.NewRegistry()
	digest := newDigest(cfg.Digest, store.Users)

	opts := tg.RunOptions{
		Config:   cfg,
		Registry: reg,
		DispatcherOptions: tgsender.Options{
			Workers: 4,
		},
		BuildRoutes: func(b *tele.Bot) []tg.Route {
			adapter := bot.NewAdapter(b)
			gk := gate.New(store.Channels, adapter)
			registry := content.NewRegistry(store.Films)
			svc := flow.New(store.Users, store.Actions, store.Channels, gk, registry, adapter)
			handlers := bot.NewHandlers(svc)
			handlers.Register(reg)
			return handlers.Routes(reg)
		},
		Middlewares: tg.DefaultMiddlewares(cfg, nil),
		OnStart: func(ctx context.Context, rt tg.Runtime) error {
			digest.start(ctx, rt.Bot, rt.Dispatcher)
			return nil
		},
		OnStop: func(context.Context, tg.Runtime) error {
			digest.stop()
			return nil
		},
	}

	return tg.RunTelegram(ctx, opts)
}

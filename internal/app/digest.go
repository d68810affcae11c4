package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
	tele "gopkg.in/telebot.v4"

	coreconfig "filmgate/core/config"
	"filmgate/core/logger"
	tgsender "filmgate/core/telegram/sender"
	"filmgate/internal/storage"
)

// digest sends a scheduled user-count summary to every admin. An empty
// schedule disables it entirely.
type digest struct {
	schedule string
	users    *storage.UserRepo
	cron     *cron.Cron
}

func newDigest(cfg coreconfig.DigestConfig, users *storage.UserRepo) *digest {
	return &digest{schedule: cfg.Schedule, users: users}
}

func (d *digest) start(ctx context.Context, b *tele.Bot, disp *tgsender.Dispatcher) {
	if d.schedule == "" {
		return
	}
	c := cron.New()
	_, err := c.AddFunc(d.schedule, func() {
		d.run(ctx, b, disp)
	})
	if err != nil {
		logger.L.Warn("digest schedule invalid",
			slog.String("component", "digest"),
			slog.String("event", "digest.schedule"),
			slog.String("err", err.Error()),
		)
		return
	}
	c.Start()
	d.cron = c
	logger.L.Info("digest scheduled",
		slog.String("component", "digest"),
		slog.String("event", "digest.schedule"),
		slog.String("payload", d.schedule),
	)
}

func (d *digest) stop() {
	if d.cron == nil {
		return
	}
	<-d.cron.Stop().Done()
	d.cron = nil
}

func (d *digest) run(ctx context.Context, b *tele.Bot, disp *tgsender.Dispatcher) {
	count, err := d.users.Count(ctx)
	if err != nil {
		logger.L.Warn("digest count failed",
			slog.String("component", "digest"),
			slog.String("event", "digest.run"),
			slog.String("err", err.Error()),
		)
		return
	}
	admins, err := d.users.Admins(ctx)
	if err != nil {
		logger.L.Warn("digest admins failed",
			slog.String("component", "digest"),
			slog.String("event", "digest.run"),
			slog.String("err", err.Error()),
		)
		return
	}
	text := fmt.Sprintf("📊 Daily digest: %d users have started the bot.", count)
	sent := 0
	for _, a := range admins {
		chatID := a.ChatID
		send := func() error {
			_, err := b.Send(tele.ChatID(chatID), text)
			return err
		}
		// Digest deliveries are independent per admin, so they ride the
		// async sender; a saturated queue falls back to an inline send.
		if disp != nil {
			if err := disp.Enqueue(ctx, "digest.send", "sendMessage", send); err == nil {
				sent++
				continue
			}
		}
		if err := send(); err != nil {
			logger.L.Warn("digest send failed",
				slog.String("component", "digest"),
				slog.String("event", "digest.run"),
				slog.Int64("chat_id", chatID),
				slog.String("err", err.Error()),
			)
			continue
		}
		sent++
	}
	logger.L.Info("digest delivered",
		slog.String("component", "digest"),
		slog.String("event", "digest.run"),
		slog.Int("count", sent),
	)
}

package middleware

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"filmgate/core/logger"
	"log/slog"

	tele "gopkg.in/telebot.v4"
)

// RateLimitOptions configures behaviour of the rate limit middleware.
type RateLimitOptions struct {
	Interval  time.Duration
	Burst     int
	Exclude   map[string]struct{}
	OnLimited tele.HandlerFunc
}

// RateLimitMiddleware returns a middleware that enforces a per-user token
// bucket: one token per Interval with the configured Burst capacity.
func RateLimitMiddleware(opts RateLimitOptions) tele.MiddlewareFunc {
	var (
		limiters   = make(map[int64]*rate.Limiter)
		limitersMu sync.Mutex
	)
	burst := opts.Burst
	if burst <= 0 {
		burst = 1
	}
	limiterFor := func(userID int64) *rate.Limiter {
		limitersMu.Lock()
		defer limitersMu.Unlock()
		lim, ok := limiters[userID]
		if !ok {
			lim = rate.NewLimiter(rate.Every(opts.Interval), burst)
			limiters[userID] = lim
		}
		return lim
	}
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			user := c.Sender()
			if user == nil || opts.Interval <= 0 {
				return next(c)
			}

			// Determine update kind and apply configured exclusions
			upd := c.Update()
			kind := "other"
			switch {
			case upd.Callback != nil:
				kind = "callback"
			case upd.Message != nil:
				kind = "message"
			}
			if _, skip := opts.Exclude[kind]; skip {
				return next(c)
			}

			if !limiterFor(user.ID).Allow() {
				attrs := []slog.Attr{
					slog.String("event", "tg.rate_limit"),
					slog.Int64("user_id", user.ID),
				}
				if chat := c.Chat(); chat != nil {
					attrs = append(attrs, slog.Int64("chat_id", chat.ID))
				}
				logger.TG.LogAttrs(logger.Background(), slog.LevelWarn, "rate limit", attrs...)
				if opts.OnLimited != nil {
					_ = opts.OnLimited(c)
				}
				return nil
			}
			return next(c)
		}
	}
}

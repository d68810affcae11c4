package middleware

import (
	"testing"
	"time"

	tele "gopkg.in/telebot.v4"

	coreconfig "filmgate/core/config"
	"filmgate/core/logger"
)

// rlContext stubs the slice of tele.Context the limiter reads.
type rlContext struct {
	tele.Context
	user *tele.User
	upd  tele.Update
}

func (c *rlContext) Sender() *tele.User  { return c.user }
func (c *rlContext) Update() tele.Update { return c.upd }
func (c *rlContext) Chat() *tele.Chat    { return nil }

func messageFrom(userID int64) *rlContext {
	return &rlContext{
		user: &tele.User{ID: userID},
		upd:  tele.Update{Message: &tele.Message{}},
	}
}

func callbackFrom(userID int64) *rlContext {
	return &rlContext{
		user: &tele.User{ID: userID},
		upd:  tele.Update{Callback: &tele.Callback{}},
	}
}

func initTestLogger(t *testing.T) {
	t.Helper()
	cfg := &coreconfig.Config{}
	cfg.Logging.Level = "error"
	cfg.Logging.Format = "kv"
	if err := logger.InitLogger(cfg); err != nil {
		t.Fatalf("init logger: %v", err)
	}
}

func TestRateLimitBurstThenLimited(t *testing.T) {
	initTestLogger(t)

	passed, limited := 0, 0
	mw := RateLimitMiddleware(RateLimitOptions{
		Interval: time.Hour,
		Burst:    2,
		OnLimited: func(tele.Context) error {
			limited++
			return nil
		},
	})
	handler := mw(func(tele.Context) error {
		passed++
		return nil
	})

	for i := 0; i < 4; i++ {
		if err := handler(messageFrom(7)); err != nil {
			t.Fatalf("handler: %v", err)
		}
	}
	if passed != 2 {
		t.Fatalf("expected burst of 2 to pass, got %d", passed)
	}
	if limited != 2 {
		t.Fatalf("expected 2 limited updates, got %d", limited)
	}
}

func TestRateLimitIsolatesUsers(t *testing.T) {
	initTestLogger(t)

	passed := 0
	mw := RateLimitMiddleware(RateLimitOptions{Interval: time.Hour, Burst: 1})
	handler := mw(func(tele.Context) error {
		passed++
		return nil
	})

	// First user exhausts their bucket; the second is unaffected.
	_ = handler(messageFrom(1))
	_ = handler(messageFrom(1))
	_ = handler(messageFrom(2))

	if passed != 2 {
		t.Fatalf("expected one pass per user, got %d", passed)
	}
}

func TestRateLimitExclusions(t *testing.T) {
	initTestLogger(t)

	passed := 0
	mw := RateLimitMiddleware(RateLimitOptions{
		Interval: time.Hour,
		Burst:    1,
		Exclude:  map[string]struct{}{"callback": {}},
	})
	handler := mw(func(tele.Context) error {
		passed++
		return nil
	})

	for i := 0; i < 4; i++ {
		if err := handler(callbackFrom(7)); err != nil {
			t.Fatalf("handler: %v", err)
		}
	}
	if passed != 4 {
		t.Fatalf("excluded kind must never be limited, got %d of 4", passed)
	}
}

func TestRateLimitPassesWithoutSender(t *testing.T) {
	initTestLogger(t)

	passed := 0
	mw := RateLimitMiddleware(RateLimitOptions{Interval: time.Hour, Burst: 1})
	handler := mw(func(tele.Context) error {
		passed++
		return nil
	})

	c := &rlContext{upd: tele.Update{Message: &tele.Message{}}}
	for i := 0; i < 3; i++ {
		if err := handler(c); err != nil {
			t.Fatalf("handler: %v", err)
		}
	}
	if passed != 3 {
		t.Fatalf("sender-less updates must pass, got %d of 3", passed)
	}
}

package flow

import (
	"context"
	"log/slog"

	"filmgate/core/logger"
)

// Start handles first contact and every later /start. The user record and
// its pending-action row are created once; the membership gate runs on
// every call.
func (s *Service) Start(ctx context.Context, chatID int64, fullName string) error {
	unlock := s.locks.acquire(chatID)
	defer unlock()

	u, err := s.ensureUser(ctx, chatID, fullName)
	if err != nil {
		return err
	}

	unmet, err := s.gate.Unmet(ctx, u.ChatID)
	if err != nil {
		return err
	}
	if len(unmet) > 0 {
		logger.Debug(ctx, "service.flow", "gate.blocked",
			slog.Int64("user_id", u.ID),
			slog.Int("count", len(unmet)),
		)
		return s.out.SendJoinPrompt(ctx, chatID, unmet)
	}
	return s.out.SendText(ctx, chatID, msgWelcome)
}

// Verify re-runs the membership gate from the verify button. The existing
// join prompt is edited in place: either with the channels still missing,
// or with the unlocked message once nothing is left.
func (s *Service) Verify(ctx context.Context, chatID int64, fullName string, messageID int) error {
	unlock := s.locks.acquire(chatID)
	defer unlock()

	u, err := s.ensureUser(ctx, chatID, fullName)
	if err != nil {
		return err
	}

	unmet, err := s.gate.Unmet(ctx, u.ChatID)
	if err != nil {
		return err
	}
	logger.Debug(ctx, "service.flow", "gate.verify",
		slog.Int64("user_id", u.ID),
		slog.Int("count", len(unmet)),
	)
	return s.out.EditJoinPrompt(ctx, chatID, messageID, unmet)
}

// MyID echoes the caller's chat id so it can be handed to an admin for
// promotion.
func (s *Service) MyID(ctx context.Context, chatID int64) error {
	return s.out.SendText(ctx, chatID, formatMyID(chatID))
}

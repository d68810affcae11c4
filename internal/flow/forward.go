package flow

import (
	"context"
	"log/slog"

	"filmgate/core/logger"
	"filmgate/internal/domain"
)

// HandleForward routes a message forwarded from a channel. Depending on
// the pending state it is film content to register or a broadcast source;
// with nothing pending it is rejected with a single message.
func (s *Service) HandleForward(ctx context.Context, chatID int64, fullName string, origin domain.Origin) error {
	unlock := s.locks.acquire(chatID)
	defer unlock()

	u, err := s.ensureUser(ctx, chatID, fullName)
	if err != nil {
		return err
	}
	action, err := s.actions.Get(ctx, u.ID)
	if err != nil {
		return err
	}

	switch action {
	case domain.ActionAwaitFilmForward:
		return s.registerFilm(ctx, u, origin)
	case domain.ActionAwaitBroadcastForward:
		return s.broadcast(ctx, u, origin)
	default:
		return s.out.SendText(ctx, chatID, msgUnexpectedForward)
	}
}

// registerFilm stores the forwarded origin as an incomplete film and moves
// the admin to the key-entry step. The state write lands before the
// prompt goes out.
func (s *Service) registerFilm(ctx context.Context, u domain.User, origin domain.Origin) error {
	film, err := s.content.RegisterIncomplete(ctx, u.ID, origin)
	if err != nil {
		return err
	}
	if err := s.setAction(ctx, u.ID, domain.ActionAwaitKey); err != nil {
		return err
	}
	logger.Debug(ctx, "service.flow", "film.awaiting_key",
		slog.Int64("user_id", u.ID),
		slog.Int64("film_id", film.ID),
	)
	return s.out.SendText(ctx, u.ChatID, msgPromptKey)
}

// broadcast copies the forwarded post to every non-admin user and notifies
// all admins. One failed recipient never aborts the rest.
func (s *Service) broadcast(ctx context.Context, u domain.User, origin domain.Origin) error {
	// Clear the state before any delivery so a concurrent forward cannot
	// trigger a second broadcast.
	if err := s.clearAction(ctx, u.ID); err != nil {
		return err
	}

	recipients, err := s.users.NonAdmins(ctx)
	if err != nil {
		return err
	}
	delivered, failed := 0, 0
	for _, r := range recipients {
		if err := s.out.CopyMessage(ctx, r.ChatID, origin); err != nil {
			failed++
			logger.Warn(ctx, "service.flow", "broadcast.copy_failed",
				slog.Int64("chat_id", r.ChatID),
				slog.String("err", err.Error()),
			)
			continue
		}
		delivered++
	}

	admins, err := s.users.Admins(ctx)
	if err != nil {
		return err
	}
	notice := formatBroadcastNotice(u.ChatID, u.FullName, delivered, failed)
	for _, a := range admins {
		if err := s.out.SendText(ctx, a.ChatID, notice); err != nil {
			logger.Warn(ctx, "service.flow", "broadcast.notice_failed",
				slog.Int64("chat_id", a.ChatID),
				slog.String("err", err.Error()),
			)
		}
	}
	logger.Info(ctx, "service.flow", "broadcast.done",
		slog.Int64("user_id", u.ID),
		slog.Int("count", delivered),
		slog.Int("failed", failed),
	)
	return nil
}

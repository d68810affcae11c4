package flow

import (
	"context"
	"log/slog"

	"filmgate/core/logger"
	"filmgate/internal/domain"
)

// Menu shows the admin reply keyboard; non-admins get a rejection and no
// state change.
func (s *Service) Menu(ctx context.Context, chatID int64, fullName string) error {
	unlock := s.locks.acquire(chatID)
	defer unlock()

	u, err := s.ensureUser(ctx, chatID, fullName)
	if err != nil {
		return err
	}
	if !u.IsAdmin {
		return s.out.SendText(ctx, chatID, msgNoAdminRights)
	}
	return s.out.SendAdminMenu(ctx, chatID)
}

// Stats reports the user count to an admin.
func (s *Service) Stats(ctx context.Context, chatID int64, fullName string) error {
	unlock := s.locks.acquire(chatID)
	defer unlock()

	u, err := s.ensureUser(ctx, chatID, fullName)
	if err != nil {
		return err
	}
	if !u.IsAdmin {
		return s.out.SendText(ctx, chatID, msgNoAdminRights)
	}
	count, err := s.users.Count(ctx)
	if err != nil {
		return err
	}
	return s.out.SendText(ctx, chatID, formatStats(count))
}

// BeginAddAdmin arms the promote-admin workflow.
func (s *Service) BeginAddAdmin(ctx context.Context, chatID int64, fullName string) error {
	return s.beginWorkflow(ctx, chatID, fullName, domain.ActionAwaitAdminTarget, msgPromptAdminTarget)
}

// BeginAddChannel arms the add-required-channel workflow.
func (s *Service) BeginAddChannel(ctx context.Context, chatID int64, fullName string) error {
	return s.beginWorkflow(ctx, chatID, fullName, domain.ActionAwaitChannel, msgPromptChannel)
}

// BeginAddFilm arms the film registration workflow.
func (s *Service) BeginAddFilm(ctx context.Context, chatID int64, fullName string) error {
	return s.beginWorkflow(ctx, chatID, fullName, domain.ActionAwaitFilmForward, msgPromptFilm)
}

// BeginBroadcast arms the broadcast workflow.
func (s *Service) BeginBroadcast(ctx context.Context, chatID int64, fullName string) error {
	return s.beginWorkflow(ctx, chatID, fullName, domain.ActionAwaitBroadcastForward, msgPromptBroadcast)
}

// beginWorkflow is the shared admin-only entry: persist the pending state
// first, then prompt for the next input.
func (s *Service) beginWorkflow(ctx context.Context, chatID int64, fullName string, action domain.PendingAction, prompt string) error {
	unlock := s.locks.acquire(chatID)
	defer unlock()

	u, err := s.ensureUser(ctx, chatID, fullName)
	if err != nil {
		return err
	}
	if !u.IsAdmin {
		return s.out.SendText(ctx, chatID, msgNoAdminRights)
	}
	if err := s.setAction(ctx, u.ID, action); err != nil {
		return err
	}
	logger.Info(ctx, "service.flow", "workflow.armed",
		slog.Int64("user_id", u.ID),
		slog.String("state", string(action)),
	)
	return s.out.SendText(ctx, chatID, prompt)
}

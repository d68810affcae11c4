package flow

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"filmgate/core/logger"
	"filmgate/internal/content"
	"filmgate/internal/domain"
	"filmgate/internal/storage"
)

// HandleText routes a plain text message through the state machine. With
// no workflow pending the text is treated as a content-key lookup.
func (s *Service) HandleText(ctx context.Context, chatID int64, fullName, text string) error {
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

	text = strings.TrimSpace(text)
	switch action {
	case domain.ActionAwaitKey:
		return s.attachKey(ctx, u, text)
	case domain.ActionAwaitChannel:
		return s.addChannel(ctx, u, text)
	case domain.ActionAwaitAdminTarget:
		return s.promoteAdmin(ctx, u, text)
	default:
		return s.lookupKey(ctx, u, text)
	}
}

// attachKey completes a film registration with the submitted key and
// closes the open registration.
func (s *Service) attachKey(ctx context.Context, u domain.User, key string) error {
	film, err := s.content.OpenRegistrationFor(ctx, u.ID)
	if err != nil {
		return err
	}
	if film == nil {
		// Pending state without an open registration; nothing to key.
		if err := s.clearAction(ctx, u.ID); err != nil {
			return err
		}
		return s.out.SendText(ctx, u.ChatID, msgNoOpenFilm)
	}

	if err := s.content.AttachKey(ctx, film.ID, key); err != nil {
		if errors.Is(err, content.ErrAlreadyKeyed) {
			if err := s.content.CloseRegistration(ctx, u.ID); err != nil {
				return err
			}
			if err := s.clearAction(ctx, u.ID); err != nil {
				return err
			}
			return s.out.SendText(ctx, u.ChatID, msgKeyAlreadySet)
		}
		return err
	}
	if err := s.content.CloseRegistration(ctx, u.ID); err != nil {
		return err
	}
	if err := s.clearAction(ctx, u.ID); err != nil {
		return err
	}
	return s.out.SendText(ctx, u.ChatID, formatKeySaved(key))
}

// addChannel resolves the submitted @username and stores the requirement.
// Resolution failures keep the pending state so the admin can retry.
func (s *Service) addChannel(ctx context.Context, u domain.User, text string) error {
	username := strings.TrimPrefix(text, "@")
	chatID, title, err := s.out.ResolveChannel(ctx, username)
	if err != nil {
		logger.Warn(ctx, "service.flow", "channel.resolve_failed",
			slog.String("channel", username),
			slog.String("err", err.Error()),
		)
		return s.out.SendText(ctx, u.ChatID, msgChannelFailed)
	}
	ch, err := s.channels.Create(ctx, username, title, chatID)
	if err != nil {
		return err
	}
	if err := s.clearAction(ctx, u.ID); err != nil {
		return err
	}
	logger.Info(ctx, "service.flow", "channel.added",
		slog.Int64("channel_id", ch.ChatID),
		slog.String("channel", ch.Username),
	)
	return s.out.SendText(ctx, u.ChatID, formatChannelAdded(ch.Username, ch.ChatID))
}

// promoteAdmin grants admin rights to the chat id received as text.
// Malformed or unknown ids keep the pending state for a corrected retry.
func (s *Service) promoteAdmin(ctx context.Context, u domain.User, text string) error {
	targetChatID, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return s.out.SendText(ctx, u.ChatID, msgBadChatID)
	}

	target, err := s.users.Promote(ctx, targetChatID)
	if errors.Is(err, storage.ErrNotFound) {
		return s.out.SendText(ctx, u.ChatID, msgUnknownTarget)
	}
	if err != nil {
		return err
	}
	if err := s.clearAction(ctx, u.ID); err != nil {
		return err
	}
	logger.Info(ctx, "service.flow", "admin.promoted",
		slog.Int64("user_id", target.ID),
	)
	if err := s.out.SendText(ctx, u.ChatID, formatPromoted(targetChatID)); err != nil {
		return err
	}
	return s.out.SendText(ctx, targetChatID, formatPromotedNotice())
}

// lookupKey replays every stored film registered under the key. Delivery
// failures are isolated per film; the user gets one explanatory message
// only when nothing could be delivered.
func (s *Service) lookupKey(ctx context.Context, u domain.User, key string) error {
	films, err := s.content.Resolve(ctx, key)
	if err != nil {
		return err
	}
	if len(films) == 0 {
		return s.out.SendText(ctx, u.ChatID, msgKeyNotFound)
	}

	delivered := 0
	for _, f := range films {
		if err := s.out.CopyMessage(ctx, u.ChatID, f.Origin); err != nil {
			logger.Warn(ctx, "service.flow", "film.copy_failed",
				slog.Int64("film_id", f.ID),
				slog.String("err", err.Error()),
			)
			continue
		}
		delivered++
	}
	logger.Info(ctx, "service.flow", "film.replayed",
		slog.Int64("user_id", u.ID),
		slog.Int("count", delivered),
	)
	if delivered == 0 {
		return s.out.SendText(ctx, u.ChatID, msgDeliveryFailed)
	}
	return nil
}

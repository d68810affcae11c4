// Package flow is the update orchestrator: it reads the user's pending
// workflow state, decides what an incoming message means, advances or
// clears the state, and produces the outbound replies.
package flow

import (
	"context"
	"errors"
	"fmt"

	"filmgate/internal/domain"
	"filmgate/internal/storage"
)

// UserStore is the slice of user persistence the orchestrator needs.
type UserStore interface {
	ByChatID(ctx context.Context, chatID int64) (domain.User, error)
	Create(ctx context.Context, chatID int64, fullName string) (domain.User, error)
	Promote(ctx context.Context, chatID int64) (domain.User, error)
	Count(ctx context.Context) (int, error)
	NonAdmins(ctx context.Context) ([]domain.User, error)
	Admins(ctx context.Context) ([]domain.User, error)
}

// ActionStore persists the per-user pending workflow marker.
type ActionStore interface {
	Get(ctx context.Context, userID int64) (domain.PendingAction, error)
	Set(ctx context.Context, userID int64, action domain.PendingAction) error
	Clear(ctx context.Context, userID int64) error
}

// ChannelStore creates subscription requirements.
type ChannelStore interface {
	Create(ctx context.Context, username, title string, chatID int64) (domain.Channel, error)
}

// Gatekeeper reports unmet subscription requirements.
type Gatekeeper interface {
	Unmet(ctx context.Context, userID int64) ([]domain.Channel, error)
}

// ContentRegistry is the key-indexed content store.
type ContentRegistry interface {
	RegisterIncomplete(ctx context.Context, userID int64, origin domain.Origin) (domain.Film, error)
	AttachKey(ctx context.Context, filmID int64, key string) error
	Resolve(ctx context.Context, key string) ([]domain.Film, error)
	OpenRegistrationFor(ctx context.Context, userID int64) (*domain.Film, error)
	CloseRegistration(ctx context.Context, userID int64) error
}

// Messenger is the narrow outbound surface of the messaging transport.
// Implementations may deliver asynchronously but must preserve per-chat
// ordering of the calls made while a user lock is held.
type Messenger interface {
	SendText(ctx context.Context, chatID int64, text string) error
	SendAdminMenu(ctx context.Context, chatID int64) error
	SendJoinPrompt(ctx context.Context, chatID int64, channels []domain.Channel) error
	// EditJoinPrompt rewrites an existing prompt in place. An empty channel
	// list replaces the prompt with the unlocked message.
	EditJoinPrompt(ctx context.Context, chatID int64, messageID int, channels []domain.Channel) error
	CopyMessage(ctx context.Context, toChatID int64, origin domain.Origin) error
	ResolveChannel(ctx context.Context, username string) (chatID int64, title string, err error)
}

// Service wires the stores, the gate, the registry, and the transport into
// the per-user state machine.
type Service struct {
	users    UserStore
	actions  ActionStore
	channels ChannelStore
	gate     Gatekeeper
	content  ContentRegistry
	out      Messenger

	locks userLocks
}

// New builds the orchestrator.
func New(users UserStore, actions ActionStore, channels ChannelStore, gk Gatekeeper, reg ContentRegistry, out Messenger) *Service {
	return &Service{
		users:    users,
		actions:  actions,
		channels: channels,
		gate:     gk,
		content:  reg,
		out:      out,
	}
}

// ensureUser loads the user, creating it (with an empty pending action) on
// first contact. Must be called with the user's lock held.
func (s *Service) ensureUser(ctx context.Context, chatID int64, fullName string) (domain.User, error) {
	u, err := s.users.ByChatID(ctx, chatID)
	if errors.Is(err, storage.ErrNotFound) {
		return s.users.Create(ctx, chatID, fullName)
	}
	if err != nil {
		return domain.User{}, err
	}
	return u, nil
}

// setAction persists a state transition. A missing pending-action row for
// a known user is an invariant violation, not a recoverable condition.
func (s *Service) setAction(ctx context.Context, userID int64, action domain.PendingAction) error {
	if err := s.actions.Set(ctx, userID, action); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("invariant: pending action row missing for user %d: %w", userID, err)
		}
		return err
	}
	return nil
}

func (s *Service) clearAction(ctx context.Context, userID int64) error {
	return s.setAction(ctx, userID, domain.ActionNone)
}

// Package content maps admin-registered channel posts to lookup keys and
// resolves keys back to replayable origins.
package content

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"filmgate/core/logger"
	"filmgate/internal/domain"
	"filmgate/internal/storage"
)

// ErrAlreadyKeyed reports that the film already carries a lookup key.
// A second key submission leaves the stored key unchanged.
var ErrAlreadyKeyed = errors.New("content: film already keyed")

// FilmStore is the persistence surface the registry needs.
type FilmStore interface {
	CreateWithRegistration(ctx context.Context, userID int64, origin domain.Origin) (domain.Film, error)
	AttachKey(ctx context.Context, filmID int64, key string) error
	ActiveByKey(ctx context.Context, key string) ([]domain.Film, error)
	OpenRegistration(ctx context.Context, userID int64) (*domain.Film, error)
	DeleteRegistration(ctx context.Context, userID int64) error
}

// Registry owns film registration and key resolution semantics.
type Registry struct {
	films FilmStore
}

// NewRegistry builds a registry over the given store.
func NewRegistry(films FilmStore) *Registry {
	return &Registry{films: films}
}

// RegisterIncomplete stores a key-less film from the forwarded origin and
// opens a registration so the submitting admin can attach the key next.
func (r *Registry) RegisterIncomplete(ctx context.Context, userID int64, origin domain.Origin) (domain.Film, error) {
	film, err := r.films.CreateWithRegistration(ctx, userID, origin)
	if err != nil {
		return domain.Film{}, fmt.Errorf("register film: %w", err)
	}
	logger.Info(ctx, "service.films", "film.registered",
		slog.Int64("film_id", film.ID),
		slog.Int64("channel_id", origin.ChatID),
		slog.Int("message_id", origin.MessageID),
	)
	return film, nil
}

// AttachKey binds a key to an incomplete film. Submitting a key twice for
// the same film yields ErrAlreadyKeyed and does not overwrite the first.
func (r *Registry) AttachKey(ctx context.Context, filmID int64, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("content: empty key")
	}
	err := r.films.AttachKey(ctx, filmID, key)
	if errors.Is(err, storage.ErrConflict) {
		return ErrAlreadyKeyed
	}
	if err != nil {
		return fmt.Errorf("attach key: %w", err)
	}
	logger.Info(ctx, "service.films", "film.keyed",
		slog.Int64("film_id", filmID),
	)
	return nil
}

// Resolve returns every active keyed film matching the key in registration
// order. An empty result is "not found", not an error; incomplete films
// never appear.
func (r *Registry) Resolve(ctx context.Context, key string) ([]domain.Film, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, nil
	}
	films, err := r.films.ActiveByKey(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("resolve key: %w", err)
	}
	return films, nil
}

// OpenRegistrationFor returns the incomplete film awaiting a key from this
// user, or nil when there is none.
func (r *Registry) OpenRegistrationFor(ctx context.Context, userID int64) (*domain.Film, error) {
	film, err := r.films.OpenRegistration(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("open registration: %w", err)
	}
	return film, nil
}

// CloseRegistration drops the user's open registration after the key is
// attached or the workflow is abandoned.
func (r *Registry) CloseRegistration(ctx context.Context, userID int64) error {
	if err := r.films.DeleteRegistration(ctx, userID); err != nil {
		return fmt.Errorf("close registration: %w", err)
	}
	return nil
}

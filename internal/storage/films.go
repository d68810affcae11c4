package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"filmgate/internal/domain"
)

// FilmRepo persists registered content and the open-registration join.
type FilmRepo struct {
	s *Store
}

// CreateWithRegistration inserts a key-less film and opens a registration
// for the submitting user in one transaction. The primary key on
// film_registrations.user_id keeps at most one registration open per user.
func (r *FilmRepo) CreateWithRegistration(ctx context.Context, userID int64, origin domain.Origin) (domain.Film, error) {
	var f domain.Film
	err := r.s.withTx(ctx, func(tx *sqlx.Tx) error {
		if err := tx.GetContext(ctx, &f,
			`INSERT INTO films (source_chat_id, source_message_id) VALUES ($1, $2)
			 RETURNING id, key, source_chat_id, source_message_id, is_active, created_at`,
			origin.ChatID, origin.MessageID); err != nil {
			return fmt.Errorf("insert film: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO film_registrations (user_id, film_id) VALUES ($1, $2)
			 ON CONFLICT (user_id) DO UPDATE SET film_id = EXCLUDED.film_id, created_at = now()`,
			userID, f.ID); err != nil {
			return fmt.Errorf("open registration: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.Film{}, err
	}
	return f, nil
}

// AttachKey sets the lookup key on a film that does not have one yet.
// Returns ErrConflict when the film is already keyed and ErrNotFound when
// it does not exist.
func (r *FilmRepo) AttachKey(ctx context.Context, filmID int64, key string) error {
	res, err := r.s.db.ExecContext(ctx,
		`UPDATE films SET key = $2 WHERE id = $1 AND key IS NULL`, filmID, key)
	if err != nil {
		return fmt.Errorf("attach key: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("attach key: %w", err)
	}
	if n > 0 {
		return nil
	}
	var exists bool
	if err := r.s.db.GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM films WHERE id = $1)`, filmID); err != nil {
		return fmt.Errorf("attach key: %w", err)
	}
	if exists {
		return ErrConflict
	}
	return ErrNotFound
}

// ActiveByKey returns every active keyed film matching the key, oldest
// first. Keys are intentionally not unique.
func (r *FilmRepo) ActiveByKey(ctx context.Context, key string) ([]domain.Film, error) {
	var films []domain.Film
	if err := r.s.db.SelectContext(ctx, &films,
		`SELECT id, key, source_chat_id, source_message_id, is_active, created_at
		 FROM films WHERE is_active AND key = $1 ORDER BY id`, key); err != nil {
		return nil, fmt.Errorf("select films by key: %w", err)
	}
	return films, nil
}

// OpenRegistration returns the key-less film the user is expected to name,
// or nil when nothing is pending. Registrations pointing at films that
// already received a key are ignored, so an interrupted close self-heals.
func (r *FilmRepo) OpenRegistration(ctx context.Context, userID int64) (*domain.Film, error) {
	var f domain.Film
	err := r.s.db.GetContext(ctx, &f,
		`SELECT f.id, f.key, f.source_chat_id, f.source_message_id, f.is_active, f.created_at
		 FROM film_registrations fr
		 JOIN films f ON f.id = fr.film_id
		 WHERE fr.user_id = $1 AND f.key IS NULL`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select open registration: %w", err)
	}
	return &f, nil
}

// DeleteRegistration closes the user's open registration.
func (r *FilmRepo) DeleteRegistration(ctx context.Context, userID int64) error {
	if _, err := r.s.db.ExecContext(ctx,
		`DELETE FROM film_registrations WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("delete registration: %w", err)
	}
	return nil
}

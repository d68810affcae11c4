package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"filmgate/internal/domain"
)

// UserRepo persists bot users and their admin flag.
type UserRepo struct {
	s *Store
}

// ByChatID returns the user with the given Telegram chat id.
func (r *UserRepo) ByChatID(ctx context.Context, chatID int64) (domain.User, error) {
	var u domain.User
	err := r.s.db.GetContext(ctx, &u,
		`SELECT id, chat_id, full_name, is_admin, created_at FROM users WHERE chat_id = $1`, chatID)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, ErrNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("select user by chat id: %w", err)
	}
	return u, nil
}

// Create inserts the user together with an empty pending-action record in
// one transaction. This is the first-contact path.
func (r *UserRepo) Create(ctx context.Context, chatID int64, fullName string) (domain.User, error) {
	var u domain.User
	err := r.s.withTx(ctx, func(tx *sqlx.Tx) error {
		if err := tx.GetContext(ctx, &u,
			`INSERT INTO users (chat_id, full_name) VALUES ($1, $2)
			 RETURNING id, chat_id, full_name, is_admin, created_at`,
			chatID, fullName); err != nil {
			return fmt.Errorf("insert user: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO pending_actions (user_id, action) VALUES ($1, $2)`,
			u.ID, domain.ActionNone); err != nil {
			return fmt.Errorf("insert pending action: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.User{}, err
	}
	return u, nil
}

// Promote flips the admin flag for the user with the given chat id.
func (r *UserRepo) Promote(ctx context.Context, chatID int64) (domain.User, error) {
	var u domain.User
	err := r.s.db.GetContext(ctx, &u,
		`UPDATE users SET is_admin = TRUE WHERE chat_id = $1
		 RETURNING id, chat_id, full_name, is_admin, created_at`, chatID)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, ErrNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("promote user: %w", err)
	}
	return u, nil
}

// EnsureAdmin creates the user as admin, or promotes it when it already
// exists. Used to seed the configured owner at startup.
func (r *UserRepo) EnsureAdmin(ctx context.Context, chatID int64, fullName string) error {
	err := r.s.withTx(ctx, func(tx *sqlx.Tx) error {
		var id int64
		if err := tx.GetContext(ctx, &id,
			`INSERT INTO users (chat_id, full_name, is_admin) VALUES ($1, $2, TRUE)
			 ON CONFLICT (chat_id) DO UPDATE SET is_admin = TRUE
			 RETURNING id`, chatID, fullName); err != nil {
			return fmt.Errorf("upsert admin: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO pending_actions (user_id, action) VALUES ($1, $2)
			 ON CONFLICT (user_id) DO NOTHING`, id, domain.ActionNone); err != nil {
			return fmt.Errorf("ensure pending action: %w", err)
		}
		return nil
	})
	return err
}

// Count reports the total number of users known to the bot.
func (r *UserRepo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM users`); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

// NonAdmins lists broadcast recipients.
func (r *UserRepo) NonAdmins(ctx context.Context) ([]domain.User, error) {
	var users []domain.User
	if err := r.s.db.SelectContext(ctx, &users,
		`SELECT id, chat_id, full_name, is_admin, created_at FROM users
		 WHERE NOT is_admin ORDER BY id`); err != nil {
		return nil, fmt.Errorf("select non-admins: %w", err)
	}
	return users, nil
}

// Admins lists administrator users.
func (r *UserRepo) Admins(ctx context.Context) ([]domain.User, error) {
	var users []domain.User
	if err := r.s.db.SelectContext(ctx, &users,
		`SELECT id, chat_id, full_name, is_admin, created_at FROM users
		 WHERE is_admin ORDER BY id`); err != nil {
		return nil, fmt.Errorf("select admins: %w", err)
	}
	return users, nil
}

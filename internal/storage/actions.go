package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"filmgate/internal/domain"
)

// ActionRepo persists the per-user pending workflow state. The single
// action column replaces the old per-workflow boolean flags, so two
// workflows can never be marked in progress at once.
type ActionRepo struct {
	s *Store
}

// Get returns the user's pending action. A stored value outside the known
// enum is reported as an error rather than silently treated as none.
func (r *ActionRepo) Get(ctx context.Context, userID int64) (domain.PendingAction, error) {
	var a domain.PendingAction
	err := r.s.db.GetContext(ctx, &a,
		`SELECT action FROM pending_actions WHERE user_id = $1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("select pending action: %w", err)
	}
	if !a.Valid() {
		return "", fmt.Errorf("pending action for user %d holds unknown state %q", userID, a)
	}
	return a, nil
}

// Set replaces the user's pending action. Setting a state implicitly
// clears whatever was pending before; there is no partial update.
func (r *ActionRepo) Set(ctx context.Context, userID int64, action domain.PendingAction) error {
	if !action.Valid() {
		return fmt.Errorf("refusing to store unknown pending action %q", action)
	}
	res, err := r.s.db.ExecContext(ctx,
		`UPDATE pending_actions SET action = $2, updated_at = now() WHERE user_id = $1`,
		userID, action)
	if err != nil {
		return fmt.Errorf("update pending action: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update pending action: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Clear resets the user to no pending workflow.
func (r *ActionRepo) Clear(ctx context.Context, userID int64) error {
	return r.Set(ctx, userID, domain.ActionNone)
}

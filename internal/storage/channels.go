package storage

import (
	"context"
	"fmt"

	"filmgate/internal/domain"
)

// ChannelRepo persists required subscription channels.
type ChannelRepo struct {
	s *Store
}

// Active lists channels that currently gate access, in creation order.
func (r *ChannelRepo) Active(ctx context.Context) ([]domain.Channel, error) {
	var channels []domain.Channel
	if err := r.s.db.SelectContext(ctx, &channels,
		`SELECT id, username, COALESCE(title, '') AS title, chat_id, is_active
		 FROM required_channels WHERE is_active ORDER BY id`); err != nil {
		return nil, fmt.Errorf("select active channels: %w", err)
	}
	return channels, nil
}

// Create registers a new required channel.
func (r *ChannelRepo) Create(ctx context.Context, username, title string, chatID int64) (domain.Channel, error) {
	var ch domain.Channel
	if err := r.s.db.GetContext(ctx, &ch,
		`INSERT INTO required_channels (username, title, chat_id) VALUES ($1, $2, $3)
		 RETURNING id, username, COALESCE(title, '') AS title, chat_id, is_active`,
		username, title, chatID); err != nil {
		return domain.Channel{}, fmt.Errorf("insert channel: %w", err)
	}
	return ch, nil
}

// Deactivate soft-disables a channel; the row stays for history.
func (r *ChannelRepo) Deactivate(ctx context.Context, id int64) error {
	res, err := r.s.db.ExecContext(ctx,
		`UPDATE required_channels SET is_active = FALSE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deactivate channel: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

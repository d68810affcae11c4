// Package gate verifies channel-subscription prerequisites before a user
// may use the bot.
package gate

import (
	"context"
	"fmt"
	"log/slog"

	"filmgate/core/logger"
	"filmgate/internal/domain"
)

// Statuses the messaging transport may report for a channel member.
// Membership is satisfied by member, administrator, or creator.
const (
	StatusMember        = "member"
	StatusAdministrator = "administrator"
	StatusCreator       = "creator"
)

// ChannelSource lists the channels that currently gate access.
type ChannelSource interface {
	Active(ctx context.Context) ([]domain.Channel, error)
}

// MembershipChecker queries the transport for a user's status in a channel.
type MembershipChecker interface {
	MemberStatus(ctx context.Context, channel domain.Channel, userID int64) (string, error)
}

// Gate computes the set of unmet subscription requirements.
type Gate struct {
	channels ChannelSource
	checker  MembershipChecker
}

// New builds a gate over the channel table and the transport.
func New(channels ChannelSource, checker MembershipChecker) *Gate {
	return &Gate{channels: channels, checker: checker}
}

// Unmet returns the active channels the user has not joined. A failed
// membership query counts the channel as unmet and the check continues:
// partial failures degrade to "still blocked", never to "allowed". The
// empty result is the unlock signal. The method is side-effect free and
// safe to call repeatedly.
func (g *Gate) Unmet(ctx context.Context, userID int64) ([]domain.Channel, error) {
	channels, err := g.channels.Active(ctx)
	if err != nil {
		return nil, fmt.Errorf("list required channels: %w", err)
	}

	var unmet []domain.Channel
	for _, ch := range channels {
		status, err := g.checker.MemberStatus(ctx, ch, userID)
		if err != nil {
			logger.Warn(ctx, "service.gate", "membership.check_failed",
				slog.Int64("channel_id", ch.ChatID),
				slog.String("channel", ch.Username),
				slog.String("err", err.Error()),
			)
			unmet = append(unmet, ch)
			continue
		}
		if !met(status) {
			unmet = append(unmet, ch)
		}
	}
	return unmet, nil
}

func met(status string) bool {
	switch status {
	case StatusMember, StatusAdministrator, StatusCreator:
		return true
	}
	return false
}

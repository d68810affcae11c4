package gate

import (
	"context"
	"errors"
	"testing"

	"filmgate/internal/domain"
)

type staticChannels []domain.Channel

func (s staticChannels) Active(context.Context) ([]domain.Channel, error) {
	return s, nil
}

type failingChannels struct{}

func (failingChannels) Active(context.Context) ([]domain.Channel, error) {
	return nil, errors.New("db down")
}

type statusChecker struct {
	statuses map[int64]string
	errs     map[int64]error
}

func (c statusChecker) MemberStatus(_ context.Context, ch domain.Channel, _ int64) (string, error) {
	if err := c.errs[ch.ChatID]; err != nil {
		return "", err
	}
	return c.statuses[ch.ChatID], nil
}

func TestUnmetAllJoined(t *testing.T) {
	channels := staticChannels{
		{ID: 1, Username: "alpha", ChatID: -100},
		{ID: 2, Username: "beta", ChatID: -200},
	}
	checker := statusChecker{statuses: map[int64]string{
		-100: StatusMember,
		-200: StatusAdministrator,
	}}
	g := New(channels, checker)

	unmet, err := g.Unmet(context.Background(), 7)
	if err != nil {
		t.Fatalf("unmet: %v", err)
	}
	if len(unmet) != 0 {
		t.Fatalf("expected no unmet channels, got %d", len(unmet))
	}
}

func TestUnmetReportsMissing(t *testing.T) {
	channels := staticChannels{
		{ID: 1, Username: "alpha", ChatID: -100},
		{ID: 2, Username: "beta", ChatID: -200},
		{ID: 3, Username: "gamma", ChatID: -300},
	}
	checker := statusChecker{statuses: map[int64]string{
		-100: StatusCreator,
		-200: "left",
		-300: "kicked",
	}}
	g := New(channels, checker)

	unmet, err := g.Unmet(context.Background(), 7)
	if err != nil {
		t.Fatalf("unmet: %v", err)
	}
	if len(unmet) != 2 {
		t.Fatalf("expected 2 unmet channels, got %d", len(unmet))
	}
	if unmet[0].Username != "beta" || unmet[1].Username != "gamma" {
		t.Fatalf("unexpected unmet set: %+v", unmet)
	}
}

func TestUnmetFailsClosedOnCheckerError(t *testing.T) {
	channels := staticChannels{
		{ID: 1, Username: "alpha", ChatID: -100},
		{ID: 2, Username: "beta", ChatID: -200},
	}
	checker := statusChecker{
		statuses: map[int64]string{-200: StatusMember},
		errs:     map[int64]error{-100: errors.New("api timeout")},
	}
	g := New(channels, checker)

	unmet, err := g.Unmet(context.Background(), 7)
	if err != nil {
		t.Fatalf("unmet: %v", err)
	}
	if len(unmet) != 1 || unmet[0].Username != "alpha" {
		t.Fatalf("expected the failed channel to stay unmet, got %+v", unmet)
	}
}

func TestUnmetPropagatesSourceError(t *testing.T) {
	g := New(failingChannels{}, statusChecker{})
	if _, err := g.Unmet(context.Background(), 7); err == nil {
		t.Fatal("expected error from channel source")
	}
}

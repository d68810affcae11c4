// Package domain declares the persistent entities shared by storage and
// services.
package domain

import (
	"fmt"
	"time"
)

// PendingAction marks which multi-step workflow, if any, awaits the user's
// next input. Exactly one value is stored per user; the enum makes
// simultaneous workflow flags unrepresentable.
type PendingAction string

const (
	ActionNone                  PendingAction = "none"
	ActionAwaitAdminTarget      PendingAction = "await_admin_target"
	ActionAwaitChannel          PendingAction = "await_channel"
	ActionAwaitFilmForward      PendingAction = "await_film_forward"
	ActionAwaitKey              PendingAction = "await_key"
	ActionAwaitBroadcastForward PendingAction = "await_broadcast_forward"
)

// Valid reports whether the value is one of the known workflow states.
func (a PendingAction) Valid() bool {
	switch a {
	case ActionNone, ActionAwaitAdminTarget, ActionAwaitChannel,
		ActionAwaitFilmForward, ActionAwaitKey, ActionAwaitBroadcastForward:
		return true
	}
	return false
}

// User is a bot account created on first contact. Users are never deleted;
// the admin flag is flipped only by an existing admin.
type User struct {
	ID        int64     `db:"id"`
	ChatID    int64     `db:"chat_id"`
	FullName  string    `db:"full_name"`
	IsAdmin   bool      `db:"is_admin"`
	CreatedAt time.Time `db:"created_at"`
}

// Channel is a subscription requirement. Deactivated channels stay in the
// table so existing references remain valid.
type Channel struct {
	ID       int64  `db:"id"`
	Username string `db:"username"`
	Title    string `db:"title"`
	ChatID   int64  `db:"chat_id"`
	IsActive bool   `db:"is_active"`
}

// URL returns the public t.me link for the channel handle.
func (c Channel) URL() string {
	return fmt.Sprintf("https://t.me/%s", c.Username)
}

// Origin identifies a replayable message inside a source channel.
type Origin struct {
	ChatID    int64 `db:"source_chat_id"`
	MessageID int   `db:"source_message_id"`
}

// Film is a registered piece of content. A nil Key means the registration
// is incomplete and the film must not be returned by key lookup.
type Film struct {
	ID        int64   `db:"id"`
	Key       *string `db:"key"`
	Origin
	IsActive  bool      `db:"is_active"`
	CreatedAt time.Time `db:"created_at"`
}

// Keyed reports whether a lookup key has been attached.
func (f Film) Keyed() bool {
	return f.Key != nil && *f.Key != ""
}

// Registration links a user to the incomplete film currently awaiting a key
// from them. At most one open registration exists per user.
type Registration struct {
	UserID    int64     `db:"user_id"`
	FilmID    int64     `db:"film_id"`
	CreatedAt time.Time `db:"created_at"`
}

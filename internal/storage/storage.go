// Package storage is the persistence port of the bot: every table is
// reached through one Store so multi-record writes share a transaction.
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

var (
	// ErrNotFound is returned when the referenced record does not exist.
	ErrNotFound = errors.New("storage: not found")
	// ErrConflict is returned when a guarded update loses to existing state,
	// e.g. attaching a key to a film that already has one.
	ErrConflict = errors.New("storage: conflict")
)

// Store bundles the repositories over a single connection pool.
type Store struct {
	db *sqlx.DB

	Users    *UserRepo
	Actions  *ActionRepo
	Channels *ChannelRepo
	Films    *FilmRepo
}

// New wires repositories around the given pool.
func New(db *sqlx.DB) *Store {
	s := &Store{db: db}
	s.Users = &UserRepo{s: s}
	s.Actions = &ActionRepo{s: s}
	s.Channels = &ChannelRepo{s: s}
	s.Films = &FilmRepo{s: s}
	return s
}

// withTx runs fn inside a transaction, rolling back on error or panic.
func (s *Store) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

package session

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	ErrNotFound = errors.New("session not found")
	ErrExists   = errors.New("session already exists")
)

// Store persists per-customer conversation sessions. Exactly one session
// exists per customer id at a time; mutations for a given id are serialized
// by the orchestrator.
type Store interface {
	// Get returns a copy of the session, or ErrNotFound.
	Get(ctx context.Context, customerID string) (*Session, error)
	// Create makes a fresh INITIAL session. Returns ErrExists when one is
	// already present; callers wanting lookup-or-create check Get first.
	Create(ctx context.Context, customerID string) (*Session, error)
	// Update applies mutate to the stored session and bumps UpdatedAt. If no
	// session exists one is created first (upsert).
	Update(ctx context.Context, customerID string, mutate func(*Session)) (*Session, error)
	// AppendHistory adds one turn to the session history. A missing session
	// is a no-op, not an error.
	AppendHistory(ctx context.Context, customerID string, speaker Speaker, text string) error
	// Remove deletes the session. Removing an absent session is not an error.
	Remove(ctx context.Context, customerID string) error
	// SweepExpired removes sessions whose UpdatedAt is older than ttl and
	// returns how many were removed.
	SweepExpired(ctx context.Context, ttl time.Duration) (int, error)
	// Active returns summaries of all live sessions, for the stats endpoint.
	Active(ctx context.Context) ([]*Session, error)
	Close() error
}

// NewStore creates a postgres-backed store when configured, otherwise
// in-memory.
func NewStore(ctx context.Context, databaseURL string) (Store, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return NewMemoryStore(), nil
	}
	return NewPostgresStore(ctx, databaseURL)
}

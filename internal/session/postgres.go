package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists sessions in PostgreSQL as one JSONB document per
// customer. updated_at is kept in a column so the TTL sweep stays in SQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := initSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

func initSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			customer_id TEXT PRIMARY KEY,
			doc JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_updated ON sessions (updated_at);`,
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema failed on %q: %w", stmt, err)
		}
	}
	return nil
}

func (p *PostgresStore) Get(ctx context.Context, customerID string) (*Session, error) {
	var doc []byte
	err := p.pool.QueryRow(ctx,
		`SELECT doc FROM sessions WHERE customer_id=$1`, customerID).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query session: %w", err)
	}
	var s Session
	if err := json.Unmarshal(doc, &s); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &s, nil
}

func (p *PostgresStore) Create(ctx context.Context, customerID string) (*Session, error) {
	s := newSession(customerID)
	doc, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode session: %w", err)
	}
	tag, err := p.pool.Exec(ctx,
		`INSERT INTO sessions (customer_id, doc, created_at, updated_at)
		 VALUES ($1, $2, $3, $4) ON CONFLICT (customer_id) DO NOTHING`,
		customerID, doc, s.CreatedAt, s.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrExists
	}
	return s, nil
}

func (p *PostgresStore) Update(ctx context.Context, customerID string, mutate func(*Session)) (*Session, error) {
	s, err := p.Get(ctx, customerID)
	if errors.Is(err, ErrNotFound) {
		s = newSession(customerID)
	} else if err != nil {
		return nil, err
	}

	if mutate != nil {
		mutate(s)
	}
	s.CustomerID = customerID
	s.UpdatedAt = time.Now().UTC()

	doc, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode session: %w", err)
	}
	_, err = p.pool.Exec(ctx,
		`INSERT INTO sessions (customer_id, doc, created_at, updated_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (customer_id) DO UPDATE SET doc=EXCLUDED.doc, updated_at=EXCLUDED.updated_at`,
		customerID, doc, s.CreatedAt, s.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("upsert session: %w", err)
	}
	return s, nil
}

func (p *PostgresStore) AppendHistory(ctx context.Context, customerID string, speaker Speaker, text string) error {
	if _, err := p.Get(ctx, customerID); errors.Is(err, ErrNotFound) {
		return nil
	} else if err != nil {
		return err
	}
	_, err := p.Update(ctx, customerID, func(s *Session) {
		s.History = append(s.History, HistoryEntry{
			ID:        uuid.NewString(),
			Speaker:   speaker,
			Text:      text,
			Timestamp: time.Now().UTC(),
		})
	})
	return err
}

func (p *PostgresStore) Remove(ctx context.Context, customerID string) error {
	if _, err := p.pool.Exec(ctx, `DELETE FROM sessions WHERE customer_id=$1`, customerID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (p *PostgresStore) SweepExpired(ctx context.Context, ttl time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-ttl)
	tag, err := p.pool.Exec(ctx, `DELETE FROM sessions WHERE updated_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("sweep sessions: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (p *PostgresStore) Active(ctx context.Context) ([]*Session, error) {
	rows, err := p.pool.Query(ctx, `SELECT doc FROM sessions ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var out []*Session
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("scan session row: %w", err)
		}
		var s Session
		if err := json.Unmarshal(doc, &s); err != nil {
			return nil, fmt.Errorf("decode session: %w", err)
		}
		out = append(out, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate session rows: %w", err)
	}
	return out, nil
}

func (p *PostgresStore) Close() error {
	p.pool.Close()
	return nil
}

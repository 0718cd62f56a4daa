package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is the default in-process session store.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	onExpire func(*Session)
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*Session)}
}

// SetExpireHook registers a callback invoked for every session removed by
// the TTL sweep.
func (m *MemoryStore) SetExpireHook(hook func(*Session)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onExpire = hook
}

func (m *MemoryStore) Get(_ context.Context, customerID string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[customerID]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(s), nil
}

func (m *MemoryStore) Create(_ context.Context, customerID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[customerID]; ok {
		return nil, ErrExists
	}
	s := newSession(customerID)
	m.sessions[customerID] = s
	return clone(s), nil
}

func (m *MemoryStore) Update(_ context.Context, customerID string, mutate func(*Session)) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[customerID]
	if !ok {
		s = newSession(customerID)
		m.sessions[customerID] = s
	}
	if mutate != nil {
		mutate(s)
	}
	s.CustomerID = customerID
	s.UpdatedAt = time.Now().UTC()
	return clone(s), nil
}

func (m *MemoryStore) AppendHistory(_ context.Context, customerID string, speaker Speaker, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[customerID]
	if !ok {
		return nil
	}
	s.History = append(s.History, HistoryEntry{
		ID:        uuid.NewString(),
		Speaker:   speaker,
		Text:      text,
		Timestamp: time.Now().UTC(),
	})
	s.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *MemoryStore) Remove(_ context.Context, customerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, customerID)
	return nil
}

func (m *MemoryStore) SweepExpired(_ context.Context, ttl time.Duration) (int, error) {
	now := time.Now().UTC()
	var expired []*Session

	m.mu.Lock()
	for id, s := range m.sessions {
		if now.Sub(s.UpdatedAt) < ttl {
			continue
		}
		expired = append(expired, clone(s))
		delete(m.sessions, id)
	}
	hook := m.onExpire
	m.mu.Unlock()

	if hook != nil {
		for _, s := range expired {
			hook(s)
		}
	}
	return len(expired), nil
}

func (m *MemoryStore) Active(_ context.Context) ([]*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, clone(s))
	}
	return out, nil
}

func (m *MemoryStore) Close() error { return nil }

// StartJanitor runs the TTL sweep on a ticker until ctx is cancelled.
func (m *MemoryStore) StartJanitor(ctx context.Context, interval, ttl time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				_, _ = m.SweepExpired(ctx, ttl)
			}
		}
	}()
}

func newSession(customerID string) *Session {
	now := time.Now().UTC()
	return &Session{
		CustomerID:    customerID,
		State:         StateInitial,
		PreferredLang: LangPortuguese,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func clone(s *Session) *Session {
	c := *s
	if s.History != nil {
		c.History = make([]HistoryEntry, len(s.History))
		copy(c.History, s.History)
	}
	if s.Data != nil {
		d := *s.Data
		c.Data = &d
	}
	if s.PendingHandoff != nil {
		h := *s.PendingHandoff
		c.PendingHandoff = &h
	}
	if s.LastQuotation != nil {
		q := *s.LastQuotation
		c.LastQuotation = &q
	}
	return &c
}

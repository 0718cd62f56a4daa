package orchestrator

import (
	"sync"
	"time"

	"github.com/cotafacil/cotabot/internal/session"
)

// EventType classifies conversation events published to operators.
type EventType string

const (
	EventInbound     EventType = "inbound_message"
	EventOutbound    EventType = "outbound_message"
	EventStateChange EventType = "state_change"
	EventHandoff     EventType = "handoff"
	EventQuote       EventType = "quote"
)

// Event is one conversation occurrence. The websocket stream and the
// metrics layer both consume these.
type Event struct {
	Type       EventType      `json:"type"`
	CustomerID string         `json:"customer_id"`
	State      session.State  `json:"state,omitempty"`
	PrevState  session.State  `json:"prev_state,omitempty"`
	Text       string         `json:"text,omitempty"`
	Detail     map[string]any `json:"detail,omitempty"`
	At         time.Time      `json:"at"`
}

// Hub fans conversation events out to subscribers. Publishing never
// blocks; a subscriber that falls behind loses events.
type Hub struct {
	mu   sync.Mutex
	subs map[chan Event]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[chan Event]struct{})}
}

// Subscribe registers a buffered event channel. The returned cancel
// function unregisters and closes it.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 64)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ch)
			h.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

func (h *Hub) Publish(e Event) {
	if e.At.IsZero() {
		e.At = time.Now()
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

// SubscriberCount reports how many listeners are attached.
func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/cotafacil/cotabot/internal/config"
	"github.com/cotafacil/cotabot/internal/hours"
	"github.com/cotafacil/cotabot/internal/observability"
	"github.com/cotafacil/cotabot/internal/orchestrator"
	"github.com/cotafacil/cotabot/internal/session"
)

var metricsSeq int64

type processedCall struct {
	customerID string
	text       string
}

type fakeProcessor struct {
	mu    sync.Mutex
	calls []processedCall
	done  chan struct{}
	store session.Store
}

func newFakeProcessor(store session.Store) *fakeProcessor {
	return &fakeProcessor{done: make(chan struct{}, 16), store: store}
}

func (p *fakeProcessor) ProcessMessage(ctx context.Context, customerID, text string) error {
	p.mu.Lock()
	p.calls = append(p.calls, processedCall{customerID: customerID, text: text})
	p.mu.Unlock()
	if p.store != nil {
		_, _ = p.store.Update(ctx, customerID, func(s *session.Session) {
			s.State = session.StateConversational
		})
	}
	p.done <- struct{}{}
	return nil
}

func (p *fakeProcessor) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}

type env struct {
	ts    *httptest.Server
	store session.Store
	proc  *fakeProcessor
	hub   *orchestrator.Hub
}

func newEnv(t *testing.T, cfg config.Config) *env {
	t.Helper()
	store := session.NewMemoryStore()
	proc := newFakeProcessor(store)
	hub := orchestrator.NewHub()
	metrics := observability.NewMetrics(fmt.Sprintf("test_httpapi_%d", atomic.AddInt64(&metricsSeq, 1)))
	srv := New(cfg, store, proc, hub, hours.NewChecker(false, ""), metrics)

	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return &env{ts: ts, store: store, proc: proc, hub: hub}
}

func postJSON(t *testing.T, url string, payload string) (*http.Response, map[string]any) {
	t.Helper()
	res, err := http.Post(url, "application/json", bytes.NewReader([]byte(payload)))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	t.Cleanup(func() { res.Body.Close() })
	var body map[string]any
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return res, body
}

func TestStatusAndHealth(t *testing.T) {
	e := newEnv(t, config.Config{})

	res, err := http.Get(e.ts.URL + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	defer res.Body.Close()
	var body map[string]any
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["service"] != "cotabot" || body["status"] != "ok" {
		t.Fatalf("unexpected status body: %v", body)
	}
	if _, ok := body["business_hours"]; !ok {
		t.Fatal("status missing business_hours block")
	}

	for _, path := range []string{"/healthz", "/readyz"} {
		res, err := http.Get(e.ts.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		res.Body.Close()
		if res.StatusCode != http.StatusOK {
			t.Fatalf("GET %s status = %d", path, res.StatusCode)
		}
	}
}

func TestWebhookProcessesAsync(t *testing.T) {
	e := newEnv(t, config.Config{})

	res, body := postJSON(t, e.ts.URL+"/webhook",
		`{"phone":"5511999990000","text":{"message":"oi"}}`)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", res.StatusCode)
	}
	if body["accepted"] != true {
		t.Fatalf("body = %v, want accepted", body)
	}

	select {
	case <-e.proc.done:
	case <-time.After(2 * time.Second):
		t.Fatal("processor never ran")
	}
	if e.proc.calls[0].customerID != "5511999990000" || e.proc.calls[0].text != "oi" {
		t.Fatalf("unexpected call %+v", e.proc.calls[0])
	}
}

func TestWebhookMessageShapes(t *testing.T) {
	e := newEnv(t, config.Config{})

	payloads := []string{
		`{"phone":"c1","message":"plain string"}`,
		`{"phone":"c2","message":{"text":"nested text"}}`,
		`{"phone":"c3","text":{"message":"zapi envelope"}}`,
	}
	for _, p := range payloads {
		res, body := postJSON(t, e.ts.URL+"/webhook", p)
		if res.StatusCode != http.StatusOK || body["accepted"] != true {
			t.Fatalf("payload %s: status=%d body=%v", p, res.StatusCode, body)
		}
		select {
		case <-e.proc.done:
		case <-time.After(2 * time.Second):
			t.Fatalf("payload %s never processed", p)
		}
	}

	e.proc.mu.Lock()
	defer e.proc.mu.Unlock()
	got := map[string]string{}
	for _, c := range e.proc.calls {
		got[c.customerID] = c.text
	}
	want := map[string]string{"c1": "plain string", "c2": "nested text", "c3": "zapi envelope"}
	for id, text := range want {
		if got[id] != text {
			t.Errorf("customer %s: got %q, want %q", id, got[id], text)
		}
	}
}

func TestWebhookIgnoresOwnTraffic(t *testing.T) {
	e := newEnv(t, config.Config{BusinessNumbers: []string{"5511777770000"}})

	cases := []string{
		`{"phone":"5511777770000","text":{"message":"oi"}}`,
		`{"phone":"5511999990000","fromMe":true,"text":{"message":"oi"}}`,
		`{"phone":"5511999990000","isGroup":true,"text":{"message":"oi"}}`,
		`{"phone":"","text":{"message":"oi"}}`,
	}
	for _, p := range cases {
		res, body := postJSON(t, e.ts.URL+"/webhook", p)
		if res.StatusCode != http.StatusOK {
			t.Fatalf("payload %s: status = %d", p, res.StatusCode)
		}
		if body["ignored"] != true {
			t.Fatalf("payload %s should be ignored, got %v", p, body)
		}
	}

	time.Sleep(50 * time.Millisecond)
	if n := e.proc.callCount(); n != 0 {
		t.Fatalf("ignored traffic reached the processor %d times", n)
	}
}

func TestTestMessageIsSynchronous(t *testing.T) {
	e := newEnv(t, config.Config{})

	res, body := postJSON(t, e.ts.URL+"/test-message",
		`{"phone":"5511999990000","message":"oi"}`)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", res.StatusCode)
	}
	if body["processed"] != true {
		t.Fatalf("body = %v", body)
	}
	// Synchronous: the session state the processor wrote is already visible.
	if body["state"] != string(session.StateConversational) {
		t.Fatalf("state = %v, want %s", body["state"], session.StateConversational)
	}
	if e.proc.callCount() != 1 {
		t.Fatalf("processor calls = %d, want 1", e.proc.callCount())
	}
}

func TestStats(t *testing.T) {
	e := newEnv(t, config.Config{})
	ctx := context.Background()

	for _, id := range []string{"c1", "c2"} {
		if _, err := e.store.Create(ctx, id); err != nil {
			t.Fatalf("seed session %s: %v", id, err)
		}
	}
	if _, err := e.store.Update(ctx, "c2", func(s *session.Session) {
		s.State = session.StateCompleted
		s.LastQuotation = &session.Quotation{ID: "q1"}
	}); err != nil {
		t.Fatalf("seed quotation: %v", err)
	}

	res, err := http.Get(e.ts.URL + "/stats")
	if err != nil {
		t.Fatalf("GET /stats: %v", err)
	}
	defer res.Body.Close()
	var body map[string]any
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["active_sessions"] != float64(2) {
		t.Fatalf("active_sessions = %v, want 2", body["active_sessions"])
	}
}

func TestEventsWS(t *testing.T) {
	e := newEnv(t, config.Config{})

	wsURL := "ws" + strings.TrimPrefix(e.ts.URL, "http") + "/v1/events/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", wsURL, err)
	}
	defer conn.Close()

	// Give the server a beat to register the subscription.
	deadline := time.Now().Add(2 * time.Second)
	for e.hub.SubscriberCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("subscription never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	e.hub.Publish(orchestrator.Event{
		Type:       orchestrator.EventInbound,
		CustomerID: "5511999990000",
		Text:       "oi",
	})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got orchestrator.Event
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("read event: %v", err)
	}
	if got.Type != orchestrator.EventInbound || got.CustomerID != "5511999990000" {
		t.Fatalf("unexpected event %+v", got)
	}
}

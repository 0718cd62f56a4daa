// Package httpapi exposes the webhook, operator and health endpoints.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/cotafacil/cotabot/internal/config"
	"github.com/cotafacil/cotabot/internal/hours"
	"github.com/cotafacil/cotabot/internal/observability"
	"github.com/cotafacil/cotabot/internal/orchestrator"
	"github.com/cotafacil/cotabot/internal/session"
)

// Processor runs one customer turn through the state machine.
type Processor interface {
	ProcessMessage(ctx context.Context, customerID, text string) error
}

type Server struct {
	cfg       config.Config
	store     session.Store
	processor Processor
	hub       *orchestrator.Hub
	hours     *hours.Checker
	metrics   *observability.Metrics
	upgrader  websocket.Upgrader

	businessNumbers map[string]bool
}

func New(cfg config.Config, store session.Store, processor Processor, hub *orchestrator.Hub, hrs *hours.Checker, metrics *observability.Metrics) *Server {
	business := make(map[string]bool, len(cfg.BusinessNumbers))
	for _, n := range cfg.BusinessNumbers {
		business[n] = true
	}
	return &Server{
		cfg:             cfg,
		store:           store,
		processor:       processor,
		hub:             hub,
		hours:           hrs,
		metrics:         metrics,
		businessNumbers: business,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				// Operator stream is same-origin only unless explicitly opened
				// up; non-browser clients without an Origin header pass.
				if cfg.AllowAnyOrigin {
					return true
				}
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/", s.handleStatus)
	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})

	r.Post("/webhook", s.handleWebhook)
	r.Post("/test-message", s.handleTestMessage)
	r.Get("/stats", s.handleStats)
	r.Get("/v1/events/ws", s.handleEventsWS)

	return r
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"service":        "cotabot",
		"status":         "ok",
		"business_hours": s.hours.Info(),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}

type webhookText struct {
	Message string `json:"message"`
}

// webhookRequest tolerates the provider's shapes: message as a plain
// string, message as {"text": ...}, or the Z-API text.message envelope.
type webhookRequest struct {
	Phone   string          `json:"phone"`
	Message json.RawMessage `json:"message"`
	Text    *webhookText    `json:"text"`
	FromMe  bool            `json:"fromMe"`
	IsGroup bool            `json:"isGroup"`
}

func (r webhookRequest) messageText() string {
	if len(r.Message) > 0 {
		var plain string
		if json.Unmarshal(r.Message, &plain) == nil && plain != "" {
			return plain
		}
		var obj struct {
			Text string `json:"text"`
		}
		if json.Unmarshal(r.Message, &obj) == nil && obj.Text != "" {
			return obj.Text
		}
	}
	if r.Text != nil {
		return r.Text.Message
	}
	return ""
}

// handleWebhook acknowledges immediately and processes in the background;
// the provider retries on anything but a fast 200.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	var req webhookRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	phone := strings.TrimSpace(req.Phone)
	text := strings.TrimSpace(req.messageText())
	if phone == "" || text == "" {
		respondJSON(w, http.StatusOK, map[string]any{"ignored": true, "reason": "empty"})
		return
	}
	if req.FromMe || req.IsGroup || s.businessNumbers[phone] {
		respondJSON(w, http.StatusOK, map[string]any{"ignored": true, "reason": "own_traffic"})
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		if err := s.processor.ProcessMessage(ctx, phone, text); err != nil {
			log.Printf("httpapi: webhook processing for %s: %v", phone, err)
		}
	}()

	respondJSON(w, http.StatusOK, map[string]any{"accepted": true})
}

type testMessageRequest struct {
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

// handleTestMessage processes synchronously, for manual poking without the
// provider in the loop.
func (s *Server) handleTestMessage(w http.ResponseWriter, r *http.Request) {
	var req testMessageRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	phone := strings.TrimSpace(req.Phone)
	text := strings.TrimSpace(req.Message)
	if phone == "" || text == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "phone and message are required")
		return
	}

	if err := s.processor.ProcessMessage(r.Context(), phone, text); err != nil {
		respondError(w, http.StatusInternalServerError, "processing_failed", err.Error())
		return
	}

	sess, err := s.store.Get(r.Context(), phone)
	if err != nil {
		respondJSON(w, http.StatusOK, map[string]any{"processed": true})
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"processed":    true,
		"state":        sess.State,
		"product_type": sess.ProductType,
	})
}

type sessionSummary struct {
	CustomerID  string              `json:"customer_id"`
	State       session.State       `json:"state"`
	ProductType session.ProductType `json:"product_type,omitempty"`
	Turns       int                 `json:"turns"`
	HasQuote    bool                `json:"has_quote"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	active, err := s.store.Active(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "store_failed", err.Error())
		return
	}
	summaries := make([]sessionSummary, 0, len(active))
	for _, sess := range active {
		summaries = append(summaries, sessionSummary{
			CustomerID:  sess.CustomerID,
			State:       sess.State,
			ProductType: sess.ProductType,
			Turns:       len(sess.History),
			HasQuote:    sess.LastQuotation != nil,
			UpdatedAt:   sess.UpdatedAt,
		})
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"active_sessions": len(summaries),
		"sessions":        summaries,
		"business_hours":  s.hours.Info(),
	})
}

// handleEventsWS streams conversation events to an operator client. The
// stream is write-only; inbound frames are drained just to notice closes.
func (s *Server) handleEventsWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	s.metrics.SessionEvents.WithLabelValues("ws_connected").Inc()
	defer s.metrics.SessionEvents.WithLabelValues("ws_disconnected").Inc()

	events, cancelSub := s.hub.Subscribe()
	defer cancelSub()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	go func() {
		defer cancel()
		conn.SetReadLimit(1 << 16)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(30 * time.Second)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case e, ok := <-events:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteJSON(e); err != nil {
				return
			}
		}
	}
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var errEmptyBody = errors.New("empty body")

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(out); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "eof") {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}

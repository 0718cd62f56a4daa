// Package gateway is the thin client for the WhatsApp messaging provider
// (Z-API style REST). Sends are fire-and-forget from the orchestrator's
// perspective: failures are logged and counted, never retried here.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/cotafacil/cotabot/internal/matching"
	"github.com/cotafacil/cotabot/internal/session"
)

// Client sends outbound messages to customers and the admin channel.
type Client interface {
	SendMessage(ctx context.Context, customerID, text string) error
	SendQuotation(ctx context.Context, customerID string, match *matching.Match, productType session.ProductType, lang session.Language) error
	RequestHumanHandoff(ctx context.Context, customerID, reason string, payload map[string]string, lang session.Language) error
}

// Config controls client construction.
type Config struct {
	Mode        string
	BaseURL     string
	InstanceID  string
	Token       string
	AdminNumber string
}

// NewClient returns the Z-API client when credentials are configured,
// otherwise the logging client used in development and tests.
func NewClient(cfg Config) (Client, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.Mode))
	if mode == "" {
		mode = "auto"
	}

	switch mode {
	case "auto":
		if strings.TrimSpace(cfg.InstanceID) != "" && strings.TrimSpace(cfg.Token) != "" {
			return NewHTTPClient(cfg), nil
		}
		return NewLogClient(), nil
	case "zapi":
		if strings.TrimSpace(cfg.InstanceID) == "" || strings.TrimSpace(cfg.Token) == "" {
			return nil, fmt.Errorf("zapi gateway requires instance id and token")
		}
		return NewHTTPClient(cfg), nil
	case "log":
		return NewLogClient(), nil
	default:
		return nil, fmt.Errorf("unsupported gateway mode %q", cfg.Mode)
	}
}

// HTTPClient posts messages to a Z-API compatible endpoint.
type HTTPClient struct {
	apiURL      string
	adminNumber string
	client      *http.Client
}

func NewHTTPClient(cfg Config) *HTTPClient {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = "https://api.z-api.io"
	}
	return &HTTPClient{
		apiURL:      fmt.Sprintf("%s/instances/%s/token/%s", base, cfg.InstanceID, cfg.Token),
		adminNumber: strings.TrimSpace(cfg.AdminNumber),
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

type sendTextRequest struct {
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

func (c *HTTPClient) SendMessage(ctx context.Context, customerID, text string) error {
	payload, err := json.Marshal(sendTextRequest{Phone: customerID, Message: text})
	if err != nil {
		return fmt.Errorf("marshal send-text: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+"/send-text", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create send-text request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("send-text: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
		return fmt.Errorf("send-text status %d: %s", res.StatusCode, string(body))
	}
	return nil
}

func (c *HTTPClient) SendQuotation(ctx context.Context, customerID string, match *matching.Match, productType session.ProductType, lang session.Language) error {
	return c.SendMessage(ctx, customerID, RenderQuotation(match, productType, lang))
}

func (c *HTTPClient) RequestHumanHandoff(ctx context.Context, customerID, reason string, payload map[string]string, lang session.Language) error {
	if c.adminNumber != "" {
		if err := c.SendMessage(ctx, c.adminNumber, renderHandoffAlert(customerID, reason, payload)); err != nil {
			// The customer-facing confirmation still goes out; the operator
			// channel failing must not strand the customer.
			log.Printf("gateway: handoff alert to admin failed: %v", err)
		}
	}
	return c.SendMessage(ctx, customerID, HandoffConfirmation(lang))
}

// LogClient records outbound traffic instead of sending it. Used in tests
// and keyless development.
type LogClient struct {
	mu   sync.Mutex
	sent []OutboundMessage
}

// OutboundMessage is one captured send.
type OutboundMessage struct {
	CustomerID string
	Text       string
	Kind       string // message, quotation, handoff
}

func NewLogClient() *LogClient { return &LogClient{} }

func (c *LogClient) SendMessage(_ context.Context, customerID, text string) error {
	c.record(OutboundMessage{CustomerID: customerID, Text: text, Kind: "message"})
	log.Printf("gateway[test]: -> %s: %s", customerID, firstLine(text))
	return nil
}

func (c *LogClient) SendQuotation(_ context.Context, customerID string, match *matching.Match, productType session.ProductType, lang session.Language) error {
	text := RenderQuotation(match, productType, lang)
	c.record(OutboundMessage{CustomerID: customerID, Text: text, Kind: "quotation"})
	log.Printf("gateway[test]: quotation -> %s: %s", customerID, firstLine(text))
	return nil
}

func (c *LogClient) RequestHumanHandoff(_ context.Context, customerID, reason string, payload map[string]string, _ session.Language) error {
	c.record(OutboundMessage{CustomerID: customerID, Text: reason, Kind: "handoff"})
	log.Printf("gateway[test]: handoff -> %s (%s)", customerID, reason)
	return nil
}

// Sent returns a copy of everything captured so far.
func (c *LogClient) Sent() []OutboundMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]OutboundMessage, len(c.sent))
	copy(out, c.sent)
	return out
}

func (c *LogClient) record(m OutboundMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, m)
}

func firstLine(text string) string {
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		return text[:i]
	}
	return text
}

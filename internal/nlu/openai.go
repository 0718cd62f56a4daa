package nlu

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cotafacil/cotabot/internal/session"
)

const defaultChatEndpoint = "https://api.openai.com/v1/chat/completions"
const defaultChatModel = "gpt-4o-mini"

// OpenAIAdapter implements Adapter on an OpenAI-compatible chat-completions
// endpoint.
type OpenAIAdapter struct {
	apiKey       string
	endpoint     string
	model        string
	historyLimit int
	client       *http.Client
}

func NewOpenAIAdapter(cfg Config) *OpenAIAdapter {
	endpoint := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if endpoint == "" {
		endpoint = defaultChatEndpoint
	} else if !strings.HasSuffix(endpoint, "/chat/completions") {
		endpoint += "/chat/completions"
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultChatModel
	}
	limit := cfg.HistoryLimit
	if limit <= 0 {
		limit = 10
	}
	return &OpenAIAdapter{
		apiKey:       strings.TrimSpace(cfg.APIKey),
		endpoint:     endpoint,
		model:        model,
		historyLimit: limit,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (a *OpenAIAdapter) complete(ctx context.Context, system, user string, temperature float64, maxTokens int) (string, error) {
	payload, err := json.Marshal(chatRequest{
		Model: a.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.apiKey)

	res, err := a.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
		return "", fmt.Errorf("chat completion status %d: %s", res.StatusCode, string(body))
	}

	var parsed chatResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}

func (a *OpenAIAdapter) ClassifyProductType(ctx context.Context, message string) (session.ProductType, error) {
	prompt := fmt.Sprintf(`Classify which consortium product the customer is asking about:
- VEHICLE: car or automobile consortium (motorcycles do NOT count)
- PROPERTY: house, apartment or land consortium
- OTHER: motorcycles, consulting, anything else

Customer message: %q

Answer with exactly one word: VEHICLE, PROPERTY or OTHER`, message)

	out, err := a.complete(ctx, "You classify consortium quote requests.", prompt, 0.3, 10)
	if err != nil {
		return session.ProductOther, err
	}
	switch strings.ToUpper(strings.TrimSpace(out)) {
	case "VEHICLE":
		return session.ProductVehicle, nil
	case "PROPERTY":
		return session.ProductProperty, nil
	default:
		return session.ProductOther, nil
	}
}

func (a *OpenAIAdapter) DetectIntent(ctx context.Context, message string, history []session.HistoryEntry) (Intent, error) {
	prompt := fmt.Sprintf(`Conversation so far:
%s

Current customer message: %q

Classify the main intent:
- QUESTION: the customer asks for information about consortium products, fees or how things work
- QUOTE_REQUEST: the customer asks for a quote, asks prices for a value/term, asks for another quote, or sends structured quote data (Valor, Prazo, Nome, CPF, Data Nascimento, Email)
- HUMAN_REQUEST: the customer explicitly asks to talk to a human, agent or consultant
- OTHER: anything else

Messages containing structured quote data are ALWAYS QUOTE_REQUEST.
Only explicit requests for a person are HUMAN_REQUEST.

Answer with exactly one word: QUESTION, QUOTE_REQUEST, HUMAN_REQUEST or OTHER`,
		renderHistory(history, 5), message)

	out, err := a.complete(ctx, "You detect customer intent in consortium conversations.", prompt, 0.3, 20)
	if err != nil {
		return IntentOther, err
	}
	switch strings.ToUpper(strings.TrimSpace(out)) {
	case "QUESTION":
		return IntentQuestion, nil
	case "QUOTE_REQUEST":
		return IntentQuoteRequest, nil
	case "HUMAN_REQUEST":
		return IntentHumanRequest, nil
	default:
		return IntentOther, nil
	}
}

type extractionPayload struct {
	Value      *float64 `json:"value"`
	TermMonths *int     `json:"term_months"`
	Name       *string  `json:"name"`
	TaxID      *string  `json:"tax_id"`
	BirthDate  *string  `json:"birth_date"`
	Email      *string  `json:"email"`
}

func (a *OpenAIAdapter) ExtractFields(ctx context.Context, message string, productType session.ProductType) (*session.CustomerData, error) {
	prompt := fmt.Sprintf(`Product type: %s

Extract customer data from the message below:
- value: asset value in BRL (number only)
- term_months: desired term in months (number only)
- name: full name
- tax_id: CPF, digits only
- birth_date: DD/MM/YYYY
- email: email address

Customer message:
%q

Answer ONLY with valid JSON:
{"value": 50000, "term_months": 60, "name": "João Silva", "tax_id": "12345678900", "birth_date": "01/01/1990", "email": "joao@email.com"}

Use null for anything not present.`, productType, message)

	out, err := a.complete(ctx, "You extract structured customer data from text.", prompt, 0.1, 200)
	if err != nil {
		return nil, err
	}

	out = strings.TrimPrefix(out, "```json")
	out = strings.Trim(out, "` \n")
	var p extractionPayload
	if err := json.Unmarshal([]byte(out), &p); err != nil {
		return nil, fmt.Errorf("parse extraction payload: %w", err)
	}
	if p.Value == nil && p.TermMonths == nil && p.Name == nil && p.TaxID == nil && p.BirthDate == nil && p.Email == nil {
		return nil, nil
	}

	data := &session.CustomerData{}
	if p.Value != nil {
		data.Value = *p.Value
	}
	if p.TermMonths != nil {
		data.TermMonths = *p.TermMonths
	}
	if p.Name != nil {
		data.Name = strings.TrimSpace(*p.Name)
	}
	if p.TaxID != nil {
		data.TaxID = strings.TrimSpace(*p.TaxID)
	}
	if p.BirthDate != nil {
		data.BirthDate = strings.TrimSpace(*p.BirthDate)
	}
	if p.Email != nil {
		data.Email = strings.TrimSpace(*p.Email)
	}
	return data, nil
}

func (a *OpenAIAdapter) GenerateReply(ctx context.Context, message string, history []session.HistoryEntry, productType session.ProductType, lang session.Language) (string, error) {
	var langInstr, productCtx string
	if lang == session.LangEnglish {
		langInstr = "Respond in English; the customer asked for English replies."
	} else {
		langInstr = "Responda em português brasileiro."
	}
	if productType == session.ProductVehicle {
		productCtx = "\nThe customer has shown interest in a vehicle consortium but has not requested a quote yet."
	} else if productType == session.ProductProperty {
		productCtx = "\nThe customer has shown interest in a property consortium but has not requested a quote yet."
	}

	prompt := fmt.Sprintf(`You are the virtual assistant of CotaFácil Alphaville, a consortium broker.
Answer questions about consortium products naturally and helpfully.
Do not offer quotes unless the customer explicitly asks for one.
%s%s

Conversation so far:
%s

Customer message: %q`, langInstr, productCtx, renderHistory(history, a.historyLimit), message)

	return a.complete(ctx, "You are a friendly, conversational consortium assistant.", prompt, 0.8, 500)
}

func renderHistory(history []session.HistoryEntry, limit int) string {
	if len(history) == 0 {
		return "(no previous conversation)"
	}
	if limit > 0 && len(history) > limit {
		history = history[len(history)-limit:]
	}
	var b strings.Builder
	for _, h := range history {
		role := "Customer"
		if h.Speaker == session.SpeakerBot {
			role = "Assistant"
		}
		fmt.Fprintf(&b, "%s: %s\n", role, h.Text)
	}
	return strings.TrimRight(b.String(), "\n")
}

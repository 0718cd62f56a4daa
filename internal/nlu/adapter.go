// Package nlu bridges the orchestrator with the language-model services it
// depends on: intent detection, product classification, structured field
// extraction and reply generation. Adapters are fallible and occasionally
// wrong; callers degrade to safe defaults instead of failing the turn.
package nlu

import (
	"context"
	"errors"
	"strings"

	"github.com/cotafacil/cotabot/internal/session"
)

// Intent is the coarse classification of an inbound message.
type Intent string

const (
	IntentQuestion     Intent = "QUESTION"
	IntentQuoteRequest Intent = "QUOTE_REQUEST"
	IntentHumanRequest Intent = "HUMAN_REQUEST"
	IntentOther        Intent = "OTHER"
)

// Adapter is the language-model surface the orchestrator consumes.
type Adapter interface {
	ClassifyProductType(ctx context.Context, message string) (session.ProductType, error)
	DetectIntent(ctx context.Context, message string, history []session.HistoryEntry) (Intent, error)
	// ExtractFields returns (nil, nil) when nothing recognizable was found.
	ExtractFields(ctx context.Context, message string, productType session.ProductType) (*session.CustomerData, error)
	GenerateReply(ctx context.Context, message string, history []session.HistoryEntry, productType session.ProductType, lang session.Language) (string, error)
}

// Config controls adapter construction.
type Config struct {
	Mode         string
	APIKey       string
	BaseURL      string
	Model        string
	HistoryLimit int
}

func NewAdapter(cfg Config) (Adapter, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.Mode))
	if mode == "" {
		mode = "auto"
	}

	switch mode {
	case "auto":
		if strings.TrimSpace(cfg.APIKey) != "" {
			return NewOpenAIAdapter(cfg), nil
		}
		return NewMockAdapter(), nil
	case "openai":
		if strings.TrimSpace(cfg.APIKey) == "" {
			return nil, errors.New("openai API key is required for openai mode")
		}
		return NewOpenAIAdapter(cfg), nil
	case "mock":
		return NewMockAdapter(), nil
	default:
		return nil, errors.New("unsupported nlu mode " + cfg.Mode)
	}
}

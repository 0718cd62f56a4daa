package nlu

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/cotafacil/cotabot/internal/session"
)

// MockAdapter provides deterministic keyword/regex behavior for tests and
// keyless development. Extraction understands the structured format the bot
// itself asks customers to use.
type MockAdapter struct{}

func NewMockAdapter() *MockAdapter { return &MockAdapter{} }

var vehicleWords = []string{"carro", "automóvel", "automovel", "veículo", "veiculo", "car", "vehicle"}
var propertyWords = []string{"imóvel", "imovel", "casa", "apartamento", "terreno", "property", "house", "apartment"}
var humanWords = []string{"humano", "atendente", "consultor", "human", "agent", "falar com alguém", "falar com alguem"}
var questionWords = []string{"o que", "como", "qual", "quais", "quanto", "por que", "porque", "what", "how", "why"}

func (a *MockAdapter) ClassifyProductType(_ context.Context, message string) (session.ProductType, error) {
	msg := strings.ToLower(message)
	if strings.Contains(msg, "moto") {
		return session.ProductOther, nil
	}
	for _, w := range vehicleWords {
		if strings.Contains(msg, w) {
			return session.ProductVehicle, nil
		}
	}
	for _, w := range propertyWords {
		if strings.Contains(msg, w) {
			return session.ProductProperty, nil
		}
	}
	return session.ProductOther, nil
}

func (a *MockAdapter) DetectIntent(_ context.Context, message string, _ []session.HistoryEntry) (Intent, error) {
	if LooksLikeQuoteData(message) {
		return IntentQuoteRequest, nil
	}
	msg := strings.ToLower(message)
	for _, w := range humanWords {
		if strings.Contains(msg, w) {
			return IntentHumanRequest, nil
		}
	}
	for _, w := range []string{"cotação", "cotacao", "cotar", "quote", "quanto custa"} {
		if strings.Contains(msg, w) {
			return IntentQuoteRequest, nil
		}
	}
	if strings.Contains(message, "?") {
		return IntentQuestion, nil
	}
	for _, w := range questionWords {
		if strings.HasPrefix(msg, w) {
			return IntentQuestion, nil
		}
	}
	return IntentOther, nil
}

var (
	reXValue = regexp.MustCompile(`(?i)(?:VALOR|VALUE)\s*:?\s*R?\$?\s*([\d.,]+)`)
	reXTerm  = regexp.MustCompile(`(?i)(?:PRAZO|TERM)\s*:?\s*(\d+)`)
	reXName  = regexp.MustCompile(`(?i)(?:NOME|NAME)\s*:\s*([^\n]+)`)
	reXCPF   = regexp.MustCompile(`(?i)CPF\s*:?\s*([\d.\- ]+)`)
	reXBirth = regexp.MustCompile(`(?i)(?:DATA\s*(?:DE\s*)?NASCIMENTO|DATE\s*OF\s*BIRTH)\s*:?\s*([\d/]+)`)
	reXEmail = regexp.MustCompile(`(?i)E?-?MAIL\s*:?\s*(\S+@\S+)`)
)

func (a *MockAdapter) ExtractFields(_ context.Context, message string, _ session.ProductType) (*session.CustomerData, error) {
	data := &session.CustomerData{}
	found := false

	if m := reXValue.FindStringSubmatch(message); m != nil {
		data.Value = parseMockMoney(m[1])
		found = found || data.Value > 0
	}
	if m := reXTerm.FindStringSubmatch(message); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
			data.TermMonths = n
			found = true
		}
	}
	if m := reXName.FindStringSubmatch(message); m != nil {
		data.Name = strings.TrimSpace(m[1])
		found = found || data.Name != ""
	}
	if m := reXCPF.FindStringSubmatch(message); m != nil {
		data.TaxID = strings.Map(keepDigit, m[1])
		found = found || data.TaxID != ""
	}
	if m := reXBirth.FindStringSubmatch(message); m != nil {
		data.BirthDate = strings.TrimSpace(m[1])
		found = found || data.BirthDate != ""
	}
	if m := reXEmail.FindStringSubmatch(message); m != nil {
		data.Email = strings.TrimSpace(m[1])
		found = found || data.Email != ""
	}

	if !found {
		return nil, nil
	}
	return data, nil
}

func (a *MockAdapter) GenerateReply(_ context.Context, message string, _ []session.HistoryEntry, _ session.ProductType, lang session.Language) (string, error) {
	if lang == session.LangEnglish {
		return "I can help with consortium questions and quotes. Just let me know what you need!", nil
	}
	return "Posso ajudar com dúvidas e cotações de consórcio. É só me dizer o que você precisa!", nil
}

func keepDigit(r rune) rune {
	if r >= '0' && r <= '9' {
		return r
	}
	return -1
}

func parseMockMoney(text string) float64 {
	cleaned := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' || r == ',' {
			return r
		}
		return -1
	}, text)
	cleaned = strings.ReplaceAll(cleaned, ",", ".")
	if n := strings.Count(cleaned, "."); n > 1 {
		idx := strings.LastIndex(cleaned, ".")
		cleaned = strings.ReplaceAll(cleaned[:idx], ".", "") + cleaned[idx:]
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0
	}
	return v
}

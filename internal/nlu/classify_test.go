package nlu

import (
	"testing"

	"github.com/cotafacil/cotabot/internal/session"
)

func TestDetectConfirmation(t *testing.T) {
	cases := []struct {
		in   string
		want Confirmation
	}{
		{"sim", ConfirmAffirmative},
		{"Sim, por favor", ConfirmAffirmative},
		{"yes", ConfirmAffirmative},
		{"ok", ConfirmAffirmative},
		{"quero", ConfirmAffirmative},
		{"não", ConfirmNegative},
		{"nao", ConfirmNegative},
		{"no", ConfirmNegative},
		{"não quero", ConfirmNegative},
		{"nao obrigado", ConfirmNegative},
		{"cancelar", ConfirmNegative},
		{"talvez", ConfirmUnclear},
		{"me explica melhor", ConfirmUnclear},
		{"", ConfirmUnclear},
	}
	for _, tc := range cases {
		if got := DetectConfirmation(tc.in); got != tc.want {
			t.Errorf("DetectConfirmation(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestDetectConfirmationNegationBeatsEmbeddedYes(t *testing.T) {
	// "não quero" ends in an affirmative word; the negation must win.
	if got := DetectConfirmation("não quero"); got != ConfirmNegative {
		t.Fatalf("DetectConfirmation(\"não quero\") = %v, want negative", got)
	}
}

func TestDetectBotRequest(t *testing.T) {
	cases := []struct {
		in       string
		want     bool
		wantOnly bool
	}{
		{"quero falar com o bot", true, true},
		{"bot", true, true},
		{"quero falar com o bot, preciso de uma cotação de carro urgente", true, false},
		{"talk to the bot", true, true},
		{"qual o horário de atendimento?", false, false},
	}
	for _, tc := range cases {
		if got := DetectBotRequest(tc.in); got != tc.want {
			t.Errorf("DetectBotRequest(%q) = %v, want %v", tc.in, got, tc.want)
		}
		if got := IsOnlyBotRequest(tc.in); got != tc.wantOnly {
			t.Errorf("IsOnlyBotRequest(%q) = %v, want %v", tc.in, got, tc.wantOnly)
		}
	}
}

func TestDetectLanguagePreference(t *testing.T) {
	if got := DetectLanguagePreference("please answer in english from now on", nil); got != session.LangEnglish {
		t.Fatalf("explicit english request = %q, want en", got)
	}
	if got := DetectLanguagePreference("responda em português", nil); got != session.LangPortuguese {
		t.Fatalf("explicit portuguese request = %q, want pt", got)
	}
	if got := DetectLanguagePreference("quanto custa?", nil); got != "" {
		t.Fatalf("no request detected as %q, want empty", got)
	}

	history := []session.HistoryEntry{
		{Speaker: session.SpeakerUser, Text: "speak english please"},
		{Speaker: session.SpeakerBot, Text: "Sure!"},
	}
	if got := DetectLanguagePreference("how much is it?", history); got != session.LangEnglish {
		t.Fatalf("recent history request = %q, want en", got)
	}
}

func TestLooksLikeQuoteData(t *testing.T) {
	full := "Valor: R$ 50000\nPrazo: 60 meses\nNome: João Silva\nCPF: 12345678900\nData Nascimento: 01/01/1990\nEmail: joao@x.com"
	if !LooksLikeQuoteData(full) {
		t.Fatalf("complete structured message not recognized")
	}
	if LooksLikeQuoteData("quero uma cotação de carro") {
		t.Fatalf("plain quote request should not look like structured data")
	}
	if LooksLikeQuoteData("Valor: R$ 50000\nPrazo: 60 meses") {
		t.Fatalf("value+term alone must not qualify (needs two more fields)")
	}
}

func TestMightBeQuoteRequest(t *testing.T) {
	for _, msg := range []string{"e se fosse 50 mil?", "quero outra cotação", "R$ 30000 dá?"} {
		if !MightBeQuoteRequest(msg) {
			t.Errorf("MightBeQuoteRequest(%q) = false, want true", msg)
		}
	}
	if MightBeQuoteRequest("obrigado pela ajuda") {
		t.Fatalf("thanks message flagged as quote-shaped")
	}
}

func TestDetectClosingIntent(t *testing.T) {
	if !DetectClosingIntent("quero fechar o negócio") {
		t.Fatalf("closing message not detected")
	}
	if DetectClosingIntent("qual a taxa de administração?") {
		t.Fatalf("question detected as closing intent")
	}
}

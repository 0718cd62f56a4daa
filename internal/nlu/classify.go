package nlu

import (
	"regexp"
	"strings"

	"github.com/cotafacil/cotabot/internal/session"
)

// Confirmation is the tri-state outcome of a yes/no question.
type Confirmation int

const (
	ConfirmUnclear Confirmation = iota
	ConfirmAffirmative
	ConfirmNegative
)

var yesWords = []string{
	"sim", "yes", "s", "y", "ok", "okay", "confirmo", "confirm",
	"aceito", "aceitar", "quero", "gostaria", "prosseguir", "continuar",
}

var noWords = []string{
	"não", "nao", "no", "n", "não quero", "nao quero", "don't", "dont",
	"cancelar", "cancel", "voltar", "não obrigado", "nao obrigado",
}

// DetectConfirmation classifies a reply to a yes/no prompt. Negations are
// checked first so "não quero" never reads as affirmative.
func DetectConfirmation(message string) Confirmation {
	msg := strings.ToLower(strings.TrimSpace(message))
	if msg == "" {
		return ConfirmUnclear
	}
	if matchesWord(msg, noWords) {
		return ConfirmNegative
	}
	if matchesWord(msg, yesWords) {
		return ConfirmAffirmative
	}
	return ConfirmUnclear
}

func matchesWord(msg string, words []string) bool {
	for _, w := range words {
		if msg == w || strings.HasPrefix(msg, w+" ") || strings.HasSuffix(msg, " "+w) {
			return true
		}
	}
	return false
}

var closingWords = []string{
	"fechar", "contratar", "aceito", "prosseguir", "vamos em frente", "quero este",
}

// DetectClosingIntent reports whether the customer wants to close the deal.
func DetectClosingIntent(message string) bool {
	msg := strings.ToLower(message)
	for _, w := range closingWords {
		if strings.Contains(msg, w) {
			return true
		}
	}
	return false
}

var botRequestPhrases = []string{
	"quero falar com o bot", "quero falar com bot",
	"falar com o bot", "falar com bot",
	"i want to talk to the bot", "talk to the bot", "talk to bot",
}

// DetectBotRequest reports whether a customer parked with a human agent is
// asking for the bot back.
func DetectBotRequest(message string) bool {
	msg := strings.ToLower(strings.TrimSpace(message))
	if msg == "bot" {
		return true
	}
	for _, p := range botRequestPhrases {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

// IsOnlyBotRequest reports whether the message carries nothing beyond the
// bot request itself, so the turn can stop after reactivation.
func IsOnlyBotRequest(message string) bool {
	msg := strings.ToLower(strings.TrimSpace(message))
	if msg == "bot" {
		return true
	}
	for _, p := range botRequestPhrases {
		if msg == p || strings.HasPrefix(msg, p+",") || strings.HasPrefix(msg, p+".") {
			return true
		}
	}
	return false
}

var englishCues = []string{
	"english", "in english", "answer in english", "respond in english", "speak english",
}

var portugueseCues = []string{
	"português", "portugues", "em português", "responda em português", "falar português",
}

// DetectLanguagePreference finds an explicit language request in the message
// or the recent history. Returns "" when nothing was asked; the preference
// is sticky, so callers only update on a non-empty result.
func DetectLanguagePreference(message string, history []session.HistoryEntry) session.Language {
	if lang := languageInText(strings.ToLower(message)); lang != "" {
		return lang
	}
	recent := history
	if len(recent) > 5 {
		recent = recent[len(recent)-5:]
	}
	for _, h := range recent {
		if h.Speaker != session.SpeakerUser {
			continue
		}
		if lang := languageInText(strings.ToLower(h.Text)); lang != "" {
			return lang
		}
	}
	return ""
}

func languageInText(text string) session.Language {
	for _, cue := range englishCues {
		if strings.Contains(text, cue) {
			return session.LangEnglish
		}
	}
	for _, cue := range portugueseCues {
		if strings.Contains(text, cue) {
			return session.LangPortuguese
		}
	}
	return ""
}

var (
	reValor    = regexp.MustCompile(`(?i)VALOR\s*:?\s*R?\$?\s*\d+`)
	rePrazo    = regexp.MustCompile(`(?i)PRAZO\s*:?\s*\d+\s*(MES|MESES|M)`)
	reNome     = regexp.MustCompile(`(?i)NOME\s*:`)
	reCPF      = regexp.MustCompile(`(?i)CPF\s*:`)
	reNascim   = regexp.MustCompile(`(?i)DATA\s*(DE\s*)?NASCIMENTO\s*:`)
	reEmail    = regexp.MustCompile(`(?i)EMAIL\s*:`)
	reAtSign   = regexp.MustCompile(`@`)
	reCurrency = regexp.MustCompile(`(?i)r\$\s*\d+`)
	reThousand = regexp.MustCompile(`(?i)\d+\s*(mil|milh)`)
)

// LooksLikeQuoteData reports whether a message follows the structured quote
// format closely enough to treat it as quote data regardless of the detected
// intent. Requires value and term plus at least two more labeled fields.
func LooksLikeQuoteData(message string) bool {
	if !reValor.MatchString(message) || !rePrazo.MatchString(message) {
		return false
	}
	count := 2
	if reNome.MatchString(message) {
		count++
	}
	if reCPF.MatchString(message) {
		count++
	}
	if reNascim.MatchString(message) {
		count++
	}
	if reEmail.MatchString(message) || reAtSign.MatchString(message) {
		count++
	}
	return count >= 4
}

var quoteHintWords = []string{"cotação", "cotacao", "cotar", "valor", "preço", "preco", "quote"}

// MightBeQuoteRequest is the looser probe used for ambiguous post-quote
// messages; a hit triggers a clarification prompt, never an escalation.
func MightBeQuoteRequest(message string) bool {
	msg := strings.ToLower(message)
	for _, w := range quoteHintWords {
		if strings.Contains(msg, w) {
			return true
		}
	}
	return reCurrency.MatchString(message) || reThousand.MatchString(message)
}

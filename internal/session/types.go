package session

import "time"

// State identifies where a customer is in the quote conversation.
type State string

const (
	StateInitial              State = "INITIAL"
	StateConversational       State = "CONVERSATIONAL"
	StateAwaitingType         State = "AWAITING_TYPE"
	StateAwaitingData         State = "AWAITING_DATA"
	StateProcessing           State = "PROCESSING"
	StateCompleted            State = "COMPLETED"
	StateAwaitingHumanConfirm State = "AWAITING_HUMAN_CONFIRMATION"
	StateForwardedToHuman     State = "FORWARDED_TO_HUMAN"
)

// AllStates lists every conversation state. The orchestrator checks its
// handler table against this at construction time.
var AllStates = []State{
	StateInitial,
	StateConversational,
	StateAwaitingType,
	StateAwaitingData,
	StateProcessing,
	StateCompleted,
	StateAwaitingHumanConfirm,
	StateForwardedToHuman,
}

// ProductType is the consortium product a customer is asking about.
type ProductType string

const (
	ProductVehicle  ProductType = "vehicle"
	ProductProperty ProductType = "property"
	ProductOther    ProductType = "other"
	ProductUnknown  ProductType = ""
)

// Language is the customer's sticky reply-language preference.
type Language string

const (
	LangPortuguese Language = "pt"
	LangEnglish    Language = "en"
)

type Speaker string

const (
	SpeakerUser Speaker = "user"
	SpeakerBot  Speaker = "bot"
)

// HistoryEntry is one conversational turn. Insertion order is significant:
// the NLU adapter uses the tail of the history as its context window.
type HistoryEntry struct {
	ID        string    `json:"id"`
	Speaker   Speaker   `json:"speaker"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// CustomerData holds the fields required to run a quote. Zero values mean
// the field has not been collected yet.
type CustomerData struct {
	Value      float64 `json:"value"`
	TermMonths int     `json:"term_months"`
	Name       string  `json:"name"`
	TaxID      string  `json:"tax_id"`
	BirthDate  string  `json:"birth_date"`
	Email      string  `json:"email"`
}

// Handoff is a deferred human-escalation request awaiting yes/no
// confirmation from the customer.
type Handoff struct {
	ID      string            `json:"id"`
	Reason  string            `json:"reason"`
	Payload map[string]string `json:"payload,omitempty"`
}

// Quotation records the outcome of the most recent successful plan match.
type Quotation struct {
	ID               string      `json:"id"`
	ProductType      ProductType `json:"product_type"`
	AssetName        string      `json:"asset_name"`
	Value            float64     `json:"value"`
	TermMonths       int         `json:"term_months"`
	FirstInstallment float64     `json:"first_installment"`
	PlanCode         string      `json:"plan_code"`
	IsExactMatch     bool        `json:"is_exact_match"`
	CreatedAt        time.Time   `json:"created_at"`
}

// Session is the per-customer conversation record. State transitions go
// through the orchestrator only.
type Session struct {
	CustomerID       string         `json:"customer_id"`
	State            State          `json:"state"`
	ProductType      ProductType    `json:"product_type,omitempty"`
	Data             *CustomerData  `json:"data,omitempty"`
	History          []HistoryEntry `json:"history"`
	PendingHandoff   *Handoff       `json:"pending_handoff,omitempty"`
	PreferredLang    Language       `json:"preferred_language"`
	LastQuotation    *Quotation     `json:"last_quotation,omitempty"`
	OriginalMessage  string         `json:"original_message,omitempty"`
	OffHoursNotified bool           `json:"off_hours_notified,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

// RecentHistory returns the last n turns in chronological order.
func (s *Session) RecentHistory(n int) []HistoryEntry {
	if n <= 0 || n >= len(s.History) {
		return s.History
	}
	return s.History[len(s.History)-n:]
}

// Package orchestrator is the conversation state machine. It owns every
// session state transition: inbound messages come in through
// ProcessMessage, side effects go out through the gateway, and nothing
// else mutates session state.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cotafacil/cotabot/internal/catalog"
	"github.com/cotafacil/cotabot/internal/gateway"
	"github.com/cotafacil/cotabot/internal/hours"
	"github.com/cotafacil/cotabot/internal/matching"
	"github.com/cotafacil/cotabot/internal/nlu"
	"github.com/cotafacil/cotabot/internal/observability"
	"github.com/cotafacil/cotabot/internal/session"
)

type handlerFunc func(ctx context.Context, sess *session.Session, text string) error

// Orchestrator routes each inbound message through the handler for the
// session's current state.
type Orchestrator struct {
	store        session.Store
	catalog      *catalog.Store
	adapter      nlu.Adapter
	gateway      gateway.Client
	hours        *hours.Checker
	hub          *Hub
	metrics      *observability.Metrics
	historyLimit int

	locks    *keyedLocks
	handlers map[session.State]handlerFunc
}

func New(store session.Store, cat *catalog.Store, adapter nlu.Adapter, gw gateway.Client, hrs *hours.Checker, hub *Hub, metrics *observability.Metrics, historyLimit int) (*Orchestrator, error) {
	if historyLimit <= 0 {
		historyLimit = 10
	}
	o := &Orchestrator{
		store:        store,
		catalog:      cat,
		adapter:      adapter,
		gateway:      gw,
		hours:        hrs,
		hub:          hub,
		metrics:      metrics,
		historyLimit: historyLimit,
		locks:        newKeyedLocks(),
	}
	o.handlers = map[session.State]handlerFunc{
		session.StateInitial:              o.handleInitial,
		session.StateConversational:       o.handleConversational,
		session.StateAwaitingType:         o.handleAwaitingType,
		session.StateAwaitingData:         o.handleAwaitingData,
		session.StateProcessing:           o.handleProcessing,
		session.StateCompleted:            o.handleCompleted,
		session.StateAwaitingHumanConfirm: o.handleAwaitingHumanConfirm,
		session.StateForwardedToHuman:     o.handleForwardedToHuman,
	}
	for _, st := range session.AllStates {
		if _, ok := o.handlers[st]; !ok {
			return nil, fmt.Errorf("orchestrator: no handler for state %s", st)
		}
	}
	return o, nil
}

// Hub exposes the event stream for the websocket server.
func (o *Orchestrator) Hub() *Hub { return o.hub }

// ProcessMessage runs one customer turn. Turns for the same customer are
// serialized; distinct customers run concurrently.
func (o *Orchestrator) ProcessMessage(ctx context.Context, customerID, text string) error {
	unlock := o.locks.Lock(customerID)
	defer unlock()

	start := time.Now()
	defer func() { o.metrics.ObserveProcessing(time.Since(start)) }()

	defer func() {
		if r := recover(); r != nil {
			log.Printf("orchestrator: panic processing message from %s: %v", customerID, r)
			o.metrics.SessionEvents.WithLabelValues("panic").Inc()
			o.recoverTurn(ctx, customerID)
		}
	}()

	o.metrics.Messages.WithLabelValues("inbound").Inc()
	o.hub.Publish(Event{Type: EventInbound, CustomerID: customerID, Text: text})

	sess, err := o.lookupOrCreate(ctx, customerID)
	if err != nil {
		return fmt.Errorf("load session %s: %w", customerID, err)
	}

	if err := o.store.AppendHistory(ctx, customerID, session.SpeakerUser, text); err != nil {
		log.Printf("orchestrator: append history for %s: %v", customerID, err)
	}
	sess.History = append(sess.History, session.HistoryEntry{
		ID: uuid.NewString(), Speaker: session.SpeakerUser, Text: text, Timestamp: time.Now(),
	})

	if lang := nlu.DetectLanguagePreference(text, sess.History); lang != "" && lang != sess.PreferredLang {
		sess = o.mutate(ctx, sess, func(s *session.Session) { s.PreferredLang = lang })
	}

	// MENU resets unconditionally, bypassing the state machine.
	if strings.Contains(strings.ToUpper(text), "MENU") {
		return o.resetToMenu(ctx, customerID)
	}

	// Parked with a human agent: stay silent unless the customer explicitly
	// asks for the bot back.
	if sess.State == session.StateForwardedToHuman {
		if !nlu.DetectBotRequest(text) {
			return nil
		}
		target := session.StateConversational
		if sess.LastQuotation != nil {
			target = session.StateCompleted
		}
		sess = o.mutate(ctx, sess, func(s *session.Session) { s.State = target })
		o.send(ctx, sess, gateway.BotReactivated(sess.PreferredLang))
		if nlu.IsOnlyBotRequest(text) || len(strings.TrimSpace(text)) < 30 {
			return nil
		}
	}

	if o.hours != nil && o.hours.Enabled() && !o.hours.Open() && !sess.OffHoursNotified {
		o.send(ctx, sess, gateway.OffHoursNotice(sess.PreferredLang))
		sess = o.mutate(ctx, sess, func(s *session.Session) { s.OffHoursNotified = true })
	}

	if err := o.handlers[sess.State](ctx, sess, text); err != nil {
		log.Printf("orchestrator: turn for %s failed: %v", customerID, err)
		o.metrics.SessionEvents.WithLabelValues("turn_error").Inc()
		o.recoverTurn(ctx, customerID)
	}
	return nil
}

func (o *Orchestrator) lookupOrCreate(ctx context.Context, customerID string) (*session.Session, error) {
	sess, err := o.store.Get(ctx, customerID)
	if err == nil {
		return sess, nil
	}
	if !errors.Is(err, session.ErrNotFound) {
		return nil, err
	}
	sess, err = o.store.Create(ctx, customerID)
	if err != nil {
		return nil, err
	}
	o.metrics.SessionEvents.WithLabelValues("created").Inc()
	o.refreshActiveGauge(ctx)
	return sess, nil
}

func (o *Orchestrator) refreshActiveGauge(ctx context.Context) {
	active, err := o.store.Active(ctx)
	if err != nil {
		return
	}
	o.metrics.ActiveSessions.Set(float64(len(active)))
}

// mutate applies fn through the store and accounts for any state change it
// caused. All session writes in this package go through here.
func (o *Orchestrator) mutate(ctx context.Context, sess *session.Session, fn func(*session.Session)) *session.Session {
	from := sess.State
	updated, err := o.store.Update(ctx, sess.CustomerID, fn)
	if err != nil {
		log.Printf("orchestrator: update session %s: %v", sess.CustomerID, err)
		fn(sess)
		updated = sess
	}
	if updated.State != from {
		o.metrics.StateTransitions.WithLabelValues(string(from), string(updated.State)).Inc()
		o.hub.Publish(Event{
			Type:       EventStateChange,
			CustomerID: sess.CustomerID,
			State:      updated.State,
			PrevState:  from,
		})
	}
	return updated
}

func (o *Orchestrator) transition(ctx context.Context, sess *session.Session, to session.State) *session.Session {
	if sess.State == to {
		return sess
	}
	return o.mutate(ctx, sess, func(s *session.Session) { s.State = to })
}

// send delivers text to the customer and records it as a bot turn.
func (o *Orchestrator) send(ctx context.Context, sess *session.Session, text string) {
	if err := o.gateway.SendMessage(ctx, sess.CustomerID, text); err != nil {
		o.metrics.GatewayErrors.WithLabelValues("send_message").Inc()
		log.Printf("orchestrator: send to %s failed: %v", sess.CustomerID, err)
	}
	if err := o.store.AppendHistory(ctx, sess.CustomerID, session.SpeakerBot, text); err != nil {
		log.Printf("orchestrator: append bot history for %s: %v", sess.CustomerID, err)
	}
	o.metrics.Messages.WithLabelValues("outbound").Inc()
	o.hub.Publish(Event{Type: EventOutbound, CustomerID: sess.CustomerID, Text: text})
}

// resetToMenu discards the session and starts over. The recreated session
// stays in the initial state with no history, so repeated resets are
// idempotent; a menu choice on the next turn is honored by handleInitial.
func (o *Orchestrator) resetToMenu(ctx context.Context, customerID string) error {
	if err := o.store.Remove(ctx, customerID); err != nil {
		return fmt.Errorf("reset session %s: %w", customerID, err)
	}
	if _, err := o.store.Create(ctx, customerID); err != nil {
		return fmt.Errorf("recreate session %s: %w", customerID, err)
	}
	o.metrics.SessionEvents.WithLabelValues("reset").Inc()
	o.refreshActiveGauge(ctx)

	if err := o.gateway.SendMessage(ctx, customerID, gateway.WelcomeMessage()); err != nil {
		o.metrics.GatewayErrors.WithLabelValues("send_message").Inc()
		log.Printf("orchestrator: send menu to %s failed: %v", customerID, err)
	}
	o.metrics.Messages.WithLabelValues("outbound").Inc()
	return nil
}

// recoverTurn answers a failed turn with an apology and makes sure the
// session is re-attemptable, never wedged mid-processing.
func (o *Orchestrator) recoverTurn(ctx context.Context, customerID string) {
	sess, err := o.store.Get(ctx, customerID)
	if err != nil {
		return
	}
	if sess.State == session.StateProcessing {
		sess = o.transition(ctx, sess, session.StateAwaitingData)
	}

	reply := o.safeReply(ctx, sess)
	if strings.TrimSpace(reply) == "" {
		reply = gateway.GenericError(sess.PreferredLang)
	}
	o.send(ctx, sess, reply)
}

// safeReply asks the adapter for an apology reply but never lets the
// recovery path itself fail.
func (o *Orchestrator) safeReply(ctx context.Context, sess *session.Session) (reply string) {
	defer func() {
		if recover() != nil {
			reply = ""
		}
	}()
	reply, err := o.adapter.GenerateReply(ctx, "", sess.RecentHistory(o.historyLimit), sess.ProductType, sess.PreferredLang)
	if err != nil {
		return ""
	}
	return reply
}

// --- state handlers ---

func (o *Orchestrator) handleInitial(ctx context.Context, sess *session.Session, text string) error {
	// Very first contact gets the menu before any classification runs. A
	// bare option number means the customer already saw the menu (a reset
	// just re-sent it), so the choice is honored directly.
	if len(sess.History) <= 1 {
		if isMenuChoice(text) {
			return o.handleAwaitingType(ctx, sess, text)
		}
		sess = o.transition(ctx, sess, session.StateAwaitingType)
		o.send(ctx, sess, gateway.FirstContactMenu())
		return nil
	}
	return o.route(ctx, sess, text)
}

func isMenuChoice(text string) bool {
	switch strings.TrimSpace(text) {
	case "1", "2", "3", "4":
		return true
	}
	return false
}

func (o *Orchestrator) handleConversational(ctx context.Context, sess *session.Session, text string) error {
	return o.route(ctx, sess, text)
}

// route is the shared intent dispatch for states with no pending prompt.
func (o *Orchestrator) route(ctx context.Context, sess *session.Session, text string) error {
	// Structured quote data short-circuits intent detection entirely.
	if nlu.LooksLikeQuoteData(text) {
		return o.handleStructuredData(ctx, sess, text)
	}

	intent := o.detectIntent(ctx, text, sess)
	switch intent {
	case nlu.IntentHumanRequest:
		return o.beginHandoff(ctx, sess, "Cliente solicitou atendimento humano")
	case nlu.IntentQuoteRequest:
		return o.startQuoteFlow(ctx, sess, text)
	default:
		return o.converse(ctx, sess, text)
	}
}

func (o *Orchestrator) detectIntent(ctx context.Context, text string, sess *session.Session) nlu.Intent {
	intent, err := o.adapter.DetectIntent(ctx, text, sess.RecentHistory(o.historyLimit))
	if err != nil {
		o.metrics.NLUErrors.WithLabelValues("detect_intent").Inc()
		log.Printf("orchestrator: intent detection for %s: %v", sess.CustomerID, err)
		intent = nlu.IntentOther
	}
	o.metrics.Intents.WithLabelValues(string(intent)).Inc()
	return intent
}

// startQuoteFlow picks the product type and asks for the data set.
func (o *Orchestrator) startQuoteFlow(ctx context.Context, sess *session.Session, text string) error {
	pt, err := o.adapter.ClassifyProductType(ctx, text)
	if err != nil {
		o.metrics.NLUErrors.WithLabelValues("classify_product").Inc()
		log.Printf("orchestrator: product classification for %s: %v", sess.CustomerID, err)
		pt = session.ProductUnknown
	}

	switch pt {
	case session.ProductVehicle:
		return o.selectProduct(ctx, sess, session.ProductVehicle)
	case session.ProductProperty:
		return o.selectProduct(ctx, sess, session.ProductProperty)
	default:
		sess = o.transition(ctx, sess, session.StateAwaitingType)
		o.send(ctx, sess, gateway.WelcomeMessage())
		return nil
	}
}

func (o *Orchestrator) selectProduct(ctx context.Context, sess *session.Session, pt session.ProductType) error {
	sess = o.mutate(ctx, sess, func(s *session.Session) {
		s.ProductType = pt
		s.State = session.StateAwaitingData
	})
	if pt == session.ProductProperty {
		o.send(ctx, sess, gateway.RequestPropertyData(sess.PreferredLang))
	} else {
		o.send(ctx, sess, gateway.RequestVehicleData(sess.PreferredLang))
	}
	return nil
}

// handleStructuredData is the one-shot path: a message already shaped like
// the data form gets extracted and, when complete, quoted immediately.
func (o *Orchestrator) handleStructuredData(ctx context.Context, sess *session.Session, text string) error {
	pt := sess.ProductType
	if pt != session.ProductVehicle && pt != session.ProductProperty {
		cls, err := o.adapter.ClassifyProductType(ctx, text)
		if err != nil {
			o.metrics.NLUErrors.WithLabelValues("classify_product").Inc()
			cls = session.ProductUnknown
		}
		// Structured data with no recognizable product reads as a vehicle
		// request, the dominant case.
		pt = session.ProductVehicle
		if cls == session.ProductProperty {
			pt = session.ProductProperty
		}
		sess = o.mutate(ctx, sess, func(s *session.Session) { s.ProductType = pt })
	}
	return o.extractAndAdvance(ctx, sess, text)
}

func (o *Orchestrator) handleAwaitingType(ctx context.Context, sess *session.Session, text string) error {
	choice := strings.ToLower(strings.TrimSpace(text))

	switch {
	case choice == "1" || containsAny(choice, "carro", "automóvel", "automovel", "veículo", "veiculo", "car"):
		return o.selectProduct(ctx, sess, session.ProductVehicle)
	case choice == "2" || containsAny(choice, "imóvel", "imovel", "casa", "apartamento", "terreno", "property", "house"):
		return o.selectProduct(ctx, sess, session.ProductProperty)
	case choice == "3" || containsAny(choice, "serviço", "servico", "consultoria", "reforma", "solar", "placas"):
		// Services quotes are handled by the sales team, not the catalog.
		sess = o.mutate(ctx, sess, func(s *session.Session) { s.ProductType = session.ProductOther })
		return o.beginHandoff(ctx, sess, "Interesse em consórcio de serviços")
	case choice == "4" || containsAny(choice, "não sei", "nao sei", "don't know", "dont know", "not sure"):
		sess = o.transition(ctx, sess, session.StateConversational)
		o.send(ctx, sess, gateway.DontKnowYetMessage(sess.PreferredLang))
		return nil
	}

	// Free-text answers still get a classification attempt before re-prompting.
	pt, err := o.adapter.ClassifyProductType(ctx, text)
	if err != nil {
		o.metrics.NLUErrors.WithLabelValues("classify_product").Inc()
		pt = session.ProductUnknown
	}
	switch pt {
	case session.ProductVehicle, session.ProductProperty:
		return o.selectProduct(ctx, sess, pt)
	default:
		o.send(ctx, sess, gateway.WelcomeMessage())
		return nil
	}
}

func (o *Orchestrator) handleAwaitingData(ctx context.Context, sess *session.Session, text string) error {
	if nlu.DetectClosingIntent(text) {
		return o.beginHandoff(ctx, sess, "Cliente deseja fechar negócio")
	}
	if !nlu.LooksLikeQuoteData(text) {
		if o.detectIntent(ctx, text, sess) == nlu.IntentHumanRequest {
			return o.beginHandoff(ctx, sess, "Cliente solicitou atendimento humano")
		}
	}
	return o.extractAndAdvance(ctx, sess, text)
}

// extractAndAdvance merges newly extracted fields into the collected data
// and either runs the quote or re-prompts for exactly what is missing.
func (o *Orchestrator) extractAndAdvance(ctx context.Context, sess *session.Session, text string) error {
	data, err := o.adapter.ExtractFields(ctx, text, sess.ProductType)
	if err != nil {
		o.metrics.NLUErrors.WithLabelValues("extract_fields").Inc()
		log.Printf("orchestrator: extraction for %s: %v", sess.CustomerID, err)
		data = nil
	}
	if data == nil && sess.Data == nil {
		if sess.State != session.StateAwaitingData {
			sess = o.transition(ctx, sess, session.StateAwaitingData)
		}
		o.send(ctx, sess, gateway.VagueDataPrompt(sess.ProductType, sess.PreferredLang))
		return nil
	}

	merged := mergeData(sess.Data, data)
	sess = o.mutate(ctx, sess, func(s *session.Session) { s.Data = merged })

	result := nlu.Validate(merged)
	switch {
	case result.Valid:
		return o.runQuote(ctx, sess, merged)
	case len(result.MissingFields) > 0:
		if sess.State != session.StateAwaitingData {
			sess = o.transition(ctx, sess, session.StateAwaitingData)
		}
		o.send(ctx, sess, nlu.MissingFieldsMessage(result.MissingFields, sess.ProductType, sess.PreferredLang))
		return nil
	default:
		if sess.State != session.StateAwaitingData {
			sess = o.transition(ctx, sess, session.StateAwaitingData)
		}
		o.send(ctx, sess, gateway.FormatProblemPrompt(result.Problem, sess.PreferredLang))
		return nil
	}
}

// runQuote loads the catalog fresh, matches, and delivers the quotation.
func (o *Orchestrator) runQuote(ctx context.Context, sess *session.Session, data *session.CustomerData) error {
	sess = o.transition(ctx, sess, session.StateProcessing)
	o.send(ctx, sess, gateway.ProcessingNotice(sess.PreferredLang))

	records, err := o.catalog.LoadLatest(sess.ProductType)
	if err != nil {
		if !errors.Is(err, catalog.ErrNoData) {
			log.Printf("orchestrator: catalog load for %s: %v", sess.CustomerID, err)
		}
		return o.quoteUnavailable(ctx, sess)
	}
	m := matching.FindBestMatch(records, data.Value, data.TermMonths)
	if m == nil {
		return o.quoteUnavailable(ctx, sess)
	}

	if err := o.gateway.SendQuotation(ctx, sess.CustomerID, m, sess.ProductType, sess.PreferredLang); err != nil {
		o.metrics.GatewayErrors.WithLabelValues("send_quotation").Inc()
		log.Printf("orchestrator: quotation to %s failed: %v", sess.CustomerID, err)
	}
	rendered := gateway.RenderQuotation(m, sess.ProductType, sess.PreferredLang)
	if err := o.store.AppendHistory(ctx, sess.CustomerID, session.SpeakerBot, rendered); err != nil {
		log.Printf("orchestrator: append quotation history for %s: %v", sess.CustomerID, err)
	}
	o.metrics.Messages.WithLabelValues("outbound").Inc()

	q := &session.Quotation{
		ID:               uuid.NewString(),
		ProductType:      sess.ProductType,
		AssetName:        m.Record.AssetName,
		Value:            m.Record.Value,
		TermMonths:       m.Record.TermMonths,
		FirstInstallment: m.Record.FirstInstallment,
		PlanCode:         m.Record.PlanCode,
		IsExactMatch:     m.IsExactMatch,
		CreatedAt:        time.Now(),
	}
	sess = o.mutate(ctx, sess, func(s *session.Session) {
		s.LastQuotation = q
		s.State = session.StateCompleted
	})

	result := "approximate"
	if m.IsExactMatch {
		result = "exact"
	}
	o.metrics.Quotes.WithLabelValues(string(sess.ProductType), result).Inc()
	o.hub.Publish(Event{
		Type:       EventQuote,
		CustomerID: sess.CustomerID,
		State:      sess.State,
		Detail: map[string]any{
			"quotation_id": q.ID,
			"product_type": string(q.ProductType),
			"value":        q.Value,
			"term_months":  q.TermMonths,
			"exact":        q.IsExactMatch,
		},
	})
	return nil
}

// clearQuoteState drops the collected data, product type and stored
// quotation so a repeat quote starts from scratch instead of backfilling
// fields from the previous one.
func (o *Orchestrator) clearQuoteState(ctx context.Context, sess *session.Session) *session.Session {
	return o.mutate(ctx, sess, func(s *session.Session) {
		s.Data = nil
		s.ProductType = session.ProductUnknown
		s.LastQuotation = nil
	})
}

// quoteUnavailable apologizes and resets, leaving the quote re-attemptable.
func (o *Orchestrator) quoteUnavailable(ctx context.Context, sess *session.Session) error {
	o.metrics.Quotes.WithLabelValues(string(sess.ProductType), "unavailable").Inc()
	o.send(ctx, sess, gateway.CatalogUnavailable(sess.PreferredLang))
	o.transition(ctx, sess, session.StateInitial)
	return nil
}

func (o *Orchestrator) handleProcessing(ctx context.Context, sess *session.Session, _ string) error {
	o.send(ctx, sess, gateway.PleaseWaitNotice(sess.PreferredLang))
	return nil
}

// handleCompleted resolves post-quote messages in a fixed priority order.
// Ambiguous messages clarify or converse; they never escalate on their own.
func (o *Orchestrator) handleCompleted(ctx context.Context, sess *session.Session, text string) error {
	if nlu.LooksLikeQuoteData(text) {
		return o.handleStructuredData(ctx, o.clearQuoteState(ctx, sess), text)
	}
	if nlu.DetectClosingIntent(text) {
		return o.beginHandoff(ctx, sess, "Cliente quer fechar a cotação")
	}

	switch o.detectIntent(ctx, text, sess) {
	case nlu.IntentHumanRequest:
		return o.beginHandoff(ctx, sess, "Cliente solicitou atendimento humano")
	case nlu.IntentQuoteRequest:
		return o.startQuoteFlow(ctx, o.clearQuoteState(ctx, sess), text)
	default:
		if nlu.MightBeQuoteRequest(text) {
			o.send(ctx, sess, gateway.QuoteClarification(sess.PreferredLang))
			return nil
		}
		return o.converse(ctx, sess, text)
	}
}

func (o *Orchestrator) handleAwaitingHumanConfirm(ctx context.Context, sess *session.Session, text string) error {
	switch nlu.DetectConfirmation(text) {
	case nlu.ConfirmAffirmative:
		reason := "Atendimento humano solicitado"
		payload := handoffPayload(sess)
		if sess.PendingHandoff != nil {
			reason = sess.PendingHandoff.Reason
			if len(sess.PendingHandoff.Payload) > 0 {
				payload = sess.PendingHandoff.Payload
			}
		}
		sess = o.mutate(ctx, sess, func(s *session.Session) {
			s.State = session.StateForwardedToHuman
			s.PendingHandoff = nil
		})
		if err := o.gateway.RequestHumanHandoff(ctx, sess.CustomerID, reason, payload, sess.PreferredLang); err != nil {
			o.metrics.GatewayErrors.WithLabelValues("request_handoff").Inc()
			log.Printf("orchestrator: handoff for %s failed: %v", sess.CustomerID, err)
		}
		o.metrics.Handoffs.WithLabelValues("forwarded").Inc()
		o.hub.Publish(Event{
			Type:       EventHandoff,
			CustomerID: sess.CustomerID,
			State:      sess.State,
			Detail:     map[string]any{"reason": reason},
		})
		return nil

	case nlu.ConfirmNegative:
		target := session.StateConversational
		if sess.ProductType == session.ProductVehicle || sess.ProductType == session.ProductProperty {
			target = session.StateCompleted
		}
		sess = o.mutate(ctx, sess, func(s *session.Session) {
			s.State = target
			s.PendingHandoff = nil
		})
		o.metrics.Handoffs.WithLabelValues("declined").Inc()
		o.send(ctx, sess, gateway.HandoffDeclined(sess.PreferredLang))
		return nil

	default:
		o.send(ctx, sess, gateway.ConfirmClarification(sess.PreferredLang))
		return nil
	}
}

// handleForwardedToHuman never runs in practice: ProcessMessage gates the
// state before dispatch. Present so the handler table stays total.
func (o *Orchestrator) handleForwardedToHuman(_ context.Context, _ *session.Session, _ string) error {
	return nil
}

// beginHandoff parks the conversation behind an explicit yes/no question.
// The actual forward only happens on confirmation.
func (o *Orchestrator) beginHandoff(ctx context.Context, sess *session.Session, reason string) error {
	payload := handoffPayload(sess)
	sess = o.mutate(ctx, sess, func(s *session.Session) {
		s.State = session.StateAwaitingHumanConfirm
		s.PendingHandoff = &session.Handoff{
			ID:      uuid.NewString(),
			Reason:  reason,
			Payload: payload,
		}
	})
	o.metrics.Handoffs.WithLabelValues("requested").Inc()
	o.send(ctx, sess, gateway.HumanConfirmPrompt(sess.PreferredLang))
	return nil
}

func (o *Orchestrator) converse(ctx context.Context, sess *session.Session, text string) error {
	reply, err := o.adapter.GenerateReply(ctx, text, sess.RecentHistory(o.historyLimit), sess.ProductType, sess.PreferredLang)
	if err != nil || strings.TrimSpace(reply) == "" {
		if err != nil {
			o.metrics.NLUErrors.WithLabelValues("generate_reply").Inc()
			log.Printf("orchestrator: reply generation for %s: %v", sess.CustomerID, err)
		}
		reply = "Desculpe, não consegui processar sua mensagem agora. Pode tentar de novo?"
		if sess.PreferredLang == session.LangEnglish {
			reply = "Sorry, I couldn't process your message right now. Could you try again?"
		}
	}
	if sess.State == session.StateInitial {
		sess = o.transition(ctx, sess, session.StateConversational)
	}
	o.send(ctx, sess, reply)
	return nil
}

func mergeData(base, add *session.CustomerData) *session.CustomerData {
	out := session.CustomerData{}
	if base != nil {
		out = *base
	}
	if add != nil {
		if add.Value > 0 {
			out.Value = add.Value
		}
		if add.TermMonths > 0 {
			out.TermMonths = add.TermMonths
		}
		if strings.TrimSpace(add.Name) != "" {
			out.Name = add.Name
		}
		if strings.TrimSpace(add.TaxID) != "" {
			out.TaxID = add.TaxID
		}
		if strings.TrimSpace(add.BirthDate) != "" {
			out.BirthDate = add.BirthDate
		}
		if strings.TrimSpace(add.Email) != "" {
			out.Email = add.Email
		}
	}
	return &out
}

func handoffPayload(sess *session.Session) map[string]string {
	payload := map[string]string{}
	if sess.ProductType != session.ProductUnknown {
		payload["Tipo"] = string(sess.ProductType)
	}
	if d := sess.Data; d != nil {
		if d.Name != "" {
			payload["Nome"] = d.Name
		}
		if d.TaxID != "" {
			payload["CPF"] = d.TaxID
		}
		if d.Value > 0 {
			payload["Valor"] = strconv.FormatFloat(d.Value, 'f', 2, 64)
		}
		if d.TermMonths > 0 {
			payload["Prazo"] = strconv.Itoa(d.TermMonths) + " meses"
		}
		if d.Email != "" {
			payload["Email"] = d.Email
		}
	}
	if q := sess.LastQuotation; q != nil {
		payload["Última cotação"] = fmt.Sprintf("R$ %.2f em %d meses (%s)", q.Value, q.TermMonths, q.PlanCode)
	}
	return payload
}

func containsAny(text string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}

// Package flow is the per-turn routing state machine: it decides whether a
// turn continues the session's active flow, switches to a new one, or takes
// one of the two special-cased paths (human escalation, utility-billing
// hand-off).
package flow

import (
	"context"
	"errors"
	"fmt"

	"github.com/civica/ventanilla/internal/domain"
	"github.com/civica/ventanilla/internal/logging"
	"github.com/civica/ventanilla/internal/oracle"
	"github.com/civica/ventanilla/internal/ticket"
)

// welcomeText is the fixed reply to a bare greeting.
const welcomeText = "¡Hola! Soy la ventanilla digital de atencion ciudadana. " +
	"Cuentame en que puedo ayudarte: reportes de servicios, pagos, tramites o dudas generales."

// clarifyText is the reply when the classifier could not decide on a topic.
const clarifyText = "No estoy seguro de haber entendido tu solicitud. " +
	"¿Podrias contarme con mas detalle que tramite o servicio necesitas?"

// handoffText accompanies the utility-billing contact card.
const handoffText = "Los temas de facturacion de energia se atienden en el canal especializado. " +
	"Te comparto el contacto para continuar tu tramite."

// ErrClassification is returned when the classifier produced no usable
// verdict; the orchestrator converts it into the generic apology.
var ErrClassification = errors.New("classification unavailable")

// Bindings maps each dispatchable classification to its responder. The two
// special-cased classifications (human escalation and utility billing) are
// deliberately not bindable; they are explicit code paths in the engine.
type Bindings struct {
	responders map[domain.Classification]oracle.Responder
}

// NewBindings creates an empty binding table.
func NewBindings() *Bindings {
	return &Bindings{responders: make(map[domain.Classification]oracle.Responder)}
}

// Bind registers a responder for a classification.
func (b *Bindings) Bind(c domain.Classification, r oracle.Responder) *Bindings {
	b.responders[c] = r
	return b
}

// BindAll registers one responder for every dispatchable classification.
func (b *Bindings) BindAll(r oracle.Responder) *Bindings {
	for _, c := range domain.Classifications() {
		switch c {
		case domain.ClassificationUndecided, domain.ClassificationHuman, domain.ClassificationUtilityBill:
			continue
		}
		b.responders[c] = r
	}
	return b
}

// For returns the responder bound to a classification.
func (b *Bindings) For(c domain.Classification) (oracle.Responder, bool) {
	r, ok := b.responders[c]
	return r, ok
}

// classificationTicketTypes maps a service domain to the case category its
// tickets are filed under.
var classificationTicketTypes = map[domain.Classification]domain.TicketType{
	domain.ClassificationWaterLeak:     domain.TicketTypeWaterLeak,
	domain.ClassificationStreetLight:   domain.TicketTypeStreetLight,
	domain.ClassificationPothole:       domain.TicketTypePothole,
	domain.ClassificationGarbage:       domain.TicketTypeGarbage,
	domain.ClassificationDrainage:      domain.TicketTypeDrainage,
	domain.ClassificationPropertyTax:   domain.TicketTypePropertyTax,
	domain.ClassificationLicenses:      domain.TicketTypeLicense,
	domain.ClassificationTrafficFines:  domain.TicketTypeFine,
	domain.ClassificationSecurity:      domain.TicketTypeSecurity,
	domain.ClassificationParks:         domain.TicketTypeParks,
	domain.ClassificationCivilRegistry: domain.TicketTypeCivilRegistry,
	domain.ClassificationComplaint:     domain.TicketTypeComplaint,
	domain.ClassificationGeneralInfo:   domain.TicketTypeGeneral,
}

// ticketTypeFor returns the case category for a classification.
func ticketTypeFor(c domain.Classification) domain.TicketType {
	if t, ok := classificationTicketTypes[c]; ok {
		return t
	}
	return domain.TicketTypeGeneral
}

// Result is the outcome of routing one turn.
type Result struct {
	Text           string
	Classification domain.Classification
	TicketFolio    string
	Actions        []string
	ContactCard    *domain.ContactCard
}

// Engine routes turns. It mutates the session it is given; the orchestrator
// guarantees turns of one conversation are never routed concurrently.
type Engine struct {
	classifier oracle.Classifier
	bindings   *Bindings
	tickets    *ticket.Service
	handoff    domain.ContactCard
	log        *logging.Logger
}

// NewEngine creates the flow engine.
func NewEngine(
	classifier oracle.Classifier,
	bindings *Bindings,
	tickets *ticket.Service,
	handoff domain.ContactCard,
	log *logging.Logger,
) *Engine {
	return &Engine{
		classifier: classifier,
		bindings:   bindings,
		tickets:    tickets,
		handoff:    handoff,
		log:        log.Sub("flow"),
	}
}

// Route processes one turn against the session's flow state.
func (e *Engine) Route(ctx context.Context, sess *domain.Session, text, preamble string) (Result, error) {
	// A bare greeting always resets the conversation; no routing happens
	// this turn.
	if isGreeting(text) {
		sess.LeaveFlow()
		sess.LastClass = domain.ClassificationUndecided
		return Result{Text: welcomeText, Classification: domain.ClassificationUndecided}, nil
	}

	class, sub, err := e.resolveClassification(ctx, sess, text, preamble)
	if err != nil {
		return Result{}, err
	}

	switch class {
	case domain.ClassificationUndecided:
		// An undecided verdict is not a flow; ask the citizen to elaborate
		// and classify again on the next turn.
		sess.LeaveFlow()
		sess.LastClass = domain.ClassificationUndecided
		return Result{Text: clarifyText, Classification: domain.ClassificationUndecided}, nil
	case domain.ClassificationHuman:
		return e.escalateToHuman(ctx, sess, text)
	case domain.ClassificationUtilityBill:
		// The billing domain is handled by an external specialized channel;
		// no in-process responder exists for it.
		sess.LeaveFlow()
		card := e.handoff
		return Result{
			Text:           handoffText,
			Classification: domain.ClassificationUtilityBill,
			ContactCard:    &card,
		}, nil
	}

	return e.dispatch(ctx, sess, class, sub, text, preamble)
}

// resolveClassification applies rules 2 and 3: classify when there is no
// active flow or the citizen asked to switch; otherwise stay pinned.
func (e *Engine) resolveClassification(
	ctx context.Context,
	sess *domain.Session,
	text, preamble string,
) (domain.Classification, domain.SubClassification, error) {
	if sess.InFlow() && !wantsSwitch(text) {
		// Pinned: no re-classification, but the raw input may still carry a
		// fresher account number.
		if acct := findAccountNumber(text); acct != "" {
			sess.AccountNumber = acct
		}
		return sess.ActiveFlow, sess.ActiveSubFlow, nil
	}

	outcome, err := e.classifier.Classify(ctx, oracle.ClassifyInput{
		Preamble: preamble,
		History:  sess.History,
		Text:     text,
	})
	if err != nil {
		e.log.Warn().Err(err).Str("conversation", sess.ConversationID).Msg("classifier failed")
		return "", "", fmt.Errorf("%w: %s", ErrClassification, err)
	}
	if verr := domain.ValidatePair(outcome.Classification, outcome.SubClassification); verr != nil {
		e.log.Warn().Err(verr).Msg("classifier returned inconsistent verdict")
		return "", "", fmt.Errorf("%w: %s", ErrClassification, verr)
	}

	// Only a decided verdict pins the session; "indecisa" has no responder
	// and must leave the next turn free to classify again.
	if outcome.Classification != domain.ClassificationUndecided {
		sess.EnterFlow(outcome.Classification, outcome.SubClassification)
	}
	if outcome.AccountNumber != "" {
		sess.AccountNumber = outcome.AccountNumber
	}
	return outcome.Classification, outcome.SubClassification, nil
}

// escalateToHuman opens an urgent ticket and ends the flow; an agent will
// pick the case up from the tracking store.
func (e *Engine) escalateToHuman(ctx context.Context, sess *domain.Session, text string) (Result, error) {
	res := e.tickets.Create(ctx, ticket.CreateInput{
		Type:          domain.TicketTypeEscalation,
		Title:         "Solicitud de atencion humana",
		Description:   text,
		Priority:      domain.TicketPriorityUrgent,
		AccountNumber: sess.AccountNumber,
		Contact:       sess.Contact,
	})
	sess.LeaveFlow()
	sess.LastClass = domain.ClassificationUndecided

	return Result{
		Text: fmt.Sprintf(
			"Un agente te atendera a la brevedad. Tu folio de seguimiento es %s.",
			res.Folio,
		),
		Classification: domain.ClassificationHuman,
		TicketFolio:    res.Folio,
		Actions:        []string{"crear_ticket"},
	}, nil
}

// dispatch hands the turn to the responder bound to the classification and
// applies the ticket-creation flow-termination rule.
func (e *Engine) dispatch(
	ctx context.Context,
	sess *domain.Session,
	class domain.Classification,
	sub domain.SubClassification,
	text, preamble string,
) (Result, error) {
	responder, ok := e.bindings.For(class)
	if !ok {
		return Result{}, fmt.Errorf("no responder bound for %q", class)
	}

	runner := &ticketRunner{
		svc:     e.tickets,
		class:   class,
		account: sess.AccountNumber,
		contact: sess.Contact,
	}

	reply, err := responder.Respond(ctx, oracle.RespondInput{
		Classification:    class,
		SubClassification: sub,
		Preamble:          preamble,
		History:           sess.History,
		Text:              text,
		Tools:             runner,
	})
	if err != nil {
		return Result{}, fmt.Errorf("responder for %q: %w", class, err)
	}

	result := Result{
		Text:           reply.Text,
		Classification: class,
		Actions:        reply.Actions,
		TicketFolio:    runner.folio,
	}

	// Ticket creation always ends the flow, whatever state the responder
	// left the conversation in.
	for _, action := range reply.Actions {
		if isTicketAction(action) {
			sess.LeaveFlow()
			break
		}
	}

	return result, nil
}

// ticketRunner executes the crear_ticket side effect for responders,
// carrying the session's sticky account number and contact linkage into the
// ticket service.
type ticketRunner struct {
	svc     *ticket.Service
	class   domain.Classification
	account string
	contact domain.ContactLink
	folio   string
}

func (r *ticketRunner) Run(ctx context.Context, name string, args map[string]string) (string, error) {
	if !isTicketAction(name) {
		return "", fmt.Errorf("unknown tool %q", name)
	}

	title := args["titulo"]
	if title == "" {
		title = "Reporte ciudadano"
	}
	var metadata map[string]string
	if loc := args["ubicacion"]; loc != "" {
		metadata = map[string]string{"ubicacion": loc}
	}

	res := r.svc.Create(ctx, ticket.CreateInput{
		Type:          ticketTypeFor(r.class),
		Title:         title,
		Description:   args["descripcion"],
		AccountNumber: r.account,
		Contact:       r.contact,
		Metadata:      metadata,
	})
	r.folio = res.Folio

	if res.Warning != "" {
		return fmt.Sprintf("folio: %s (%s)", res.Folio, res.Warning), nil
	}
	return "folio: " + res.Folio, nil
}

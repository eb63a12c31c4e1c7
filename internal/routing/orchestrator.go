// Package routing turns an inbound channel message into a routed turn: it
// resolves the session, serializes turns per conversation, hands the text to
// the flow engine and assembles the uniform response envelope.
package routing

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"regexp"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/civica/ventanilla/internal/domain"
	"github.com/civica/ventanilla/internal/flow"
	"github.com/civica/ventanilla/internal/logging"
	"github.com/civica/ventanilla/internal/session"
)

// apologyText is the only user-visible failure message. Internal reasons stay
// in the logs.
const apologyText = "Lo siento, en este momento no puedo atender tu solicitud. " +
	"Por favor intenta de nuevo en unos minutos."

// phoneShaped matches identifiers that look like raw phone numbers. Some
// channels put the sender's number where a conversation id belongs; routing on
// it would collapse every citizen behind a shared line into one session.
var phoneShaped = regexp.MustCompile(`^\+?[0-9][0-9 ()./-]{6,17}$`)

// lockStripes bounds the lock table; conversations hash onto a stripe.
const lockStripes = 64

// Orchestrator owns the turn pipeline in front of the flow engine.
type Orchestrator struct {
	sessions *session.Manager
	engine   *flow.Engine
	now      func() time.Time
	log      *logging.Logger
	locks    [lockStripes]sync.Mutex
}

// NewOrchestrator creates the turn orchestrator.
func NewOrchestrator(sessions *session.Manager, engine *flow.Engine, log *logging.Logger) *Orchestrator {
	return &Orchestrator{
		sessions: sessions,
		engine:   engine,
		now:      time.Now,
		log:      log.Sub("routing"),
	}
}

// HandleTurn processes one citizen message end to end. It never returns an
// error to the channel: failures become an apologetic envelope and the
// session's flow state is left untouched.
func (o *Orchestrator) HandleTurn(ctx context.Context, req domain.TurnRequest) domain.TurnResult {
	turnID := uuid.NewString()
	tlog := o.log.With("turnId", turnID)

	convID := o.resolveConversationID(req, tlog)
	tlog = tlog.With("conversationId", convID)

	unlock := o.lockConversation(convID)
	defer unlock()

	sess := o.sessions.Get(convID)
	if req.ContactID != 0 {
		sess.Contact.ContactID = req.ContactID
	}
	if sess.Contact.ConversationID == "" {
		sess.Contact.ConversationID = convID
	}

	res, err := o.engine.Route(ctx, sess, req.Text, o.preamble())
	if err != nil {
		if errors.Is(err, flow.ErrClassification) {
			tlog.Warn().Err(err).Msg("classification unavailable, answering with apology")
		} else {
			tlog.Error().Err(err).Msg("turn routing failed")
		}
		return domain.TurnResult{
			OutputText: apologyText,
			Error:      "turn_failed",
		}
	}

	now := o.now()
	o.sessions.Append(convID, domain.Exchange{Role: "user", Content: req.Text, Timestamp: now})
	o.sessions.Append(convID, domain.Exchange{Role: "assistant", Content: res.Text, Timestamp: now})

	tlog.Info().
		Str("classification", string(res.Classification)).
		Str("folio", res.TicketFolio).
		Int("actions", len(res.Actions)).
		Msg("turn routed")

	return domain.TurnResult{
		OutputText:     res.Text,
		Classification: res.Classification,
		TicketFolio:    res.TicketFolio,
		ToolsUsed:      res.Actions,
		ContactCard:    res.ContactCard,
	}
}

// resolveConversationID picks the session key for a request. Missing or
// phone-shaped identifiers get a fresh one so unrelated citizens never share
// state.
func (o *Orchestrator) resolveConversationID(req domain.TurnRequest, tlog *logging.Logger) string {
	id := req.ConversationID
	switch {
	case id == "":
		id = uuid.NewString()
	case phoneShaped.MatchString(id):
		tlog.Warn().Str("rejected", id).Msg("conversation id looks like a phone number, issuing a new one")
		id = uuid.NewString()
	}
	return id
}

// lockConversation serializes turns of one conversation. The flow engine
// mutates session state without its own locking and relies on this.
// Unrelated conversations sharing a stripe just wait a turn.
func (o *Orchestrator) lockConversation(convID string) func() {
	h := fnv.New32a()
	h.Write([]byte(convID))
	l := &o.locks[h.Sum32()%lockStripes]
	l.Lock()
	return l.Unlock
}

var spanishDays = [...]string{
	"domingo", "lunes", "martes", "miércoles", "jueves", "viernes", "sábado",
}

var spanishMonths = [...]string{
	"enero", "febrero", "marzo", "abril", "mayo", "junio",
	"julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre",
}

// preamble renders the current date and time in es-MX prose so the
// collaborators can resolve relative expressions like "mañana" or "el lunes".
func (o *Orchestrator) preamble() string {
	t := o.now()
	return fmt.Sprintf("Fecha y hora actual: %s %d de %s de %d, %02d:%02d (hora local).",
		spanishDays[t.Weekday()], t.Day(), spanishMonths[int(t.Month())-1],
		t.Year(), t.Hour(), t.Minute())
}

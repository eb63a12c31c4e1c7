package routing

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civica/ventanilla/internal/domain"
	"github.com/civica/ventanilla/internal/flow"
	"github.com/civica/ventanilla/internal/logging"
	"github.com/civica/ventanilla/internal/oracle"
	"github.com/civica/ventanilla/internal/session"
	"github.com/civica/ventanilla/internal/store"
	"github.com/civica/ventanilla/internal/ticket"
)

func testOrchestrator(t *testing.T, classifier oracle.Classifier, responder oracle.Responder) (*Orchestrator, *session.Manager) {
	t.Helper()
	db, err := store.Open(":memory:", logging.Silent())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	svc := ticket.New(store.NewTicketStore(db), store.NewContactStore(db), nil, logging.Silent())
	engine := flow.NewEngine(
		classifier,
		flow.NewBindings().BindAll(responder),
		svc,
		domain.ContactCard{FullName: "Modulo de Facturacion", PhoneNumber: "800-555-0100"},
		logging.Silent(),
	)
	sessions := session.NewManager(session.Options{}, logging.Silent())
	return NewOrchestrator(sessions, engine, logging.Silent()), sessions
}

func TestHandleTurn_CreatesSessionAndAppendsHistory(t *testing.T) {
	classifier := &oracle.MockClassifier{
		Outcome: oracle.Outcome{Classification: domain.ClassificationGeneralInfo},
	}
	responder := &oracle.MockResponder{Reply: oracle.Reply{Text: "El horario es de 8 a 15 horas."}}
	o, sessions := testOrchestrator(t, classifier, responder)

	res := o.HandleTurn(context.Background(), domain.TurnRequest{
		Text:           "¿A que hora abren las oficinas?",
		ConversationID: "conv-1",
	})

	assert.Equal(t, "El horario es de 8 a 15 horas.", res.OutputText)
	assert.Equal(t, domain.ClassificationGeneralInfo, res.Classification)
	assert.Empty(t, res.Error)

	sess := sessions.Get("conv-1")
	require.Len(t, sess.History, 2)
	assert.Equal(t, "user", sess.History[0].Role)
	assert.Equal(t, "¿A que hora abren las oficinas?", sess.History[0].Content)
	assert.Equal(t, "assistant", sess.History[1].Role)
	assert.Equal(t, res.OutputText, sess.History[1].Content)
}

func TestHandleTurn_GeneratesConversationIDWhenMissing(t *testing.T) {
	classifier := &oracle.MockClassifier{
		Outcome: oracle.Outcome{Classification: domain.ClassificationGeneralInfo},
	}
	o, sessions := testOrchestrator(t, classifier, &oracle.MockResponder{Reply: oracle.Reply{Text: "ok"}})

	res := o.HandleTurn(context.Background(), domain.TurnRequest{Text: "informacion"})

	assert.Empty(t, res.Error)
	assert.Equal(t, 1, sessions.Len())
}

func TestHandleTurn_PhoneShapedConversationIDRejected(t *testing.T) {
	classifier := &oracle.MockClassifier{
		Outcome: oracle.Outcome{Classification: domain.ClassificationGeneralInfo},
	}
	o, sessions := testOrchestrator(t, classifier, &oracle.MockResponder{Reply: oracle.Reply{Text: "ok"}})

	// Two citizens behind the same shared line must not end in one session.
	o.HandleTurn(context.Background(), domain.TurnRequest{Text: "hola que tal", ConversationID: "+52 55 1234 5678"})
	o.HandleTurn(context.Background(), domain.TurnRequest{Text: "buen dia oficina", ConversationID: "+52 55 1234 5678"})

	assert.Equal(t, 2, sessions.Len())
}

func TestHandleTurn_UUIDConversationIDAccepted(t *testing.T) {
	classifier := &oracle.MockClassifier{
		Outcome: oracle.Outcome{Classification: domain.ClassificationGeneralInfo},
	}
	o, sessions := testOrchestrator(t, classifier, &oracle.MockResponder{Reply: oracle.Reply{Text: "ok"}})

	const id = "5f0c6f0a-1b9e-4f6a-9a3c-7d2f1e8b4c01"
	o.HandleTurn(context.Background(), domain.TurnRequest{Text: "primer turno", ConversationID: id})
	o.HandleTurn(context.Background(), domain.TurnRequest{Text: "segundo turno", ConversationID: id})

	assert.Equal(t, 1, sessions.Len())
	assert.Len(t, sessions.Get(id).History, 4)
}

func TestHandleTurn_ClassifierFailureApologizes(t *testing.T) {
	classifier := &oracle.MockClassifier{Err: errors.New("upstream down")}
	o, sessions := testOrchestrator(t, classifier, &oracle.MockResponder{})

	res := o.HandleTurn(context.Background(), domain.TurnRequest{
		Text:           "hay un bache enorme",
		ConversationID: "conv-1",
	})

	assert.Equal(t, apologyText, res.OutputText)
	assert.Equal(t, "turn_failed", res.Error)
	assert.Empty(t, res.Classification)

	// The failed turn leaves no trace in the session.
	sess := sessions.Get("conv-1")
	assert.Empty(t, sess.History)
	assert.False(t, sess.InFlow())
}

func TestHandleTurn_ContactIDLinked(t *testing.T) {
	classifier := &oracle.MockClassifier{
		Outcome: oracle.Outcome{Classification: domain.ClassificationGeneralInfo},
	}
	o, sessions := testOrchestrator(t, classifier, &oracle.MockResponder{Reply: oracle.Reply{Text: "ok"}})

	o.HandleTurn(context.Background(), domain.TurnRequest{
		Text:           "hola necesito ayuda con un tramite",
		ConversationID: "conv-1",
		ContactID:      42,
	})

	sess := sessions.Get("conv-1")
	assert.Equal(t, int64(42), sess.Contact.ContactID)
	assert.Equal(t, "conv-1", sess.Contact.ConversationID)
}

func TestHandleTurn_PreambleIsLocalizedSpanish(t *testing.T) {
	classifier := &oracle.MockClassifier{
		Outcome: oracle.Outcome{Classification: domain.ClassificationGeneralInfo},
	}
	responder := &oracle.MockResponder{Reply: oracle.Reply{Text: "ok"}}
	o, _ := testOrchestrator(t, classifier, responder)
	o.now = func() time.Time {
		return time.Date(2026, time.January, 5, 9, 5, 0, 0, time.Local)
	}

	o.HandleTurn(context.Background(), domain.TurnRequest{Text: "informacion", ConversationID: "conv-1"})

	want := "Fecha y hora actual: lunes 5 de enero de 2026, 09:05 (hora local)."
	assert.Equal(t, want, responder.LastInput.Preamble)
	require.Len(t, classifier.Inputs, 1)
	assert.Equal(t, want, classifier.Inputs[0].Preamble)
}

func TestHandleTurn_SerializesTurnsPerConversation(t *testing.T) {
	classifier := &oracle.MockClassifier{
		Outcome: oracle.Outcome{Classification: domain.ClassificationGeneralInfo},
	}
	o, sessions := testOrchestrator(t, classifier, &oracle.MockResponder{Reply: oracle.Reply{Text: "ok"}})

	const turns = 16
	var wg sync.WaitGroup
	for i := 0; i < turns; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			o.HandleTurn(context.Background(), domain.TurnRequest{Text: "informacion", ConversationID: "conv-1"})
		}()
	}
	wg.Wait()

	assert.Len(t, sessions.Get("conv-1").History, turns*2)
}

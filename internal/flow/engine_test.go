package flow

import (
	"context"
	"testing"

	"github.com/civica/ventanilla/internal/domain"
	"github.com/civica/ventanilla/internal/logging"
	"github.com/civica/ventanilla/internal/oracle"
	"github.com/civica/ventanilla/internal/store"
	"github.com/civica/ventanilla/internal/ticket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testHandoff = domain.ContactCard{
	FullName:     "Modulo de Facturacion",
	PhoneNumber:  "800-555-0100",
	Organization: "Comision de Energia",
}

func testEngine(t *testing.T, classifier oracle.Classifier, responder oracle.Responder) (*Engine, *store.DB) {
	t.Helper()
	db, err := store.Open(":memory:", logging.Silent())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	svc := ticket.New(store.NewTicketStore(db), store.NewContactStore(db), nil, logging.Silent())
	bindings := NewBindings().BindAll(responder)
	return NewEngine(classifier, bindings, svc, testHandoff, logging.Silent()), db
}

func newSession(id string) *domain.Session {
	return &domain.Session{ConversationID: id, LastClass: domain.ClassificationUndecided}
}

func TestRoute_GreetingResetsAndWelcomes(t *testing.T) {
	classifier := &oracle.MockClassifier{}
	e, _ := testEngine(t, classifier, &oracle.MockResponder{})

	sess := newSession("conv-1")
	sess.EnterFlow(domain.ClassificationPothole, domain.SubClassificationNone)

	res, err := e.Route(context.Background(), sess, "Hola", "")
	require.NoError(t, err)

	assert.Equal(t, welcomeText, res.Text)
	assert.Equal(t, domain.ClassificationUndecided, res.Classification)
	assert.Empty(t, res.TicketFolio)
	assert.Empty(t, res.Actions)
	assert.False(t, sess.InFlow())
	// The greeting short-circuits: the classifier is never consulted.
	assert.Equal(t, 0, classifier.Calls)
}

func TestRoute_FirstTurnClassifiesAndPinsFlow(t *testing.T) {
	classifier := &oracle.MockClassifier{
		Outcome: oracle.Outcome{Classification: domain.ClassificationWaterLeak},
	}
	responder := &oracle.MockResponder{Reply: oracle.Reply{Text: "¿En que direccion esta la fuga?"}}
	e, _ := testEngine(t, classifier, responder)

	sess := newSession("conv-1")
	res, err := e.Route(context.Background(), sess, "Hay una fuga de agua", "")
	require.NoError(t, err)

	assert.Equal(t, domain.ClassificationWaterLeak, res.Classification)
	assert.Equal(t, domain.ClassificationWaterLeak, sess.ActiveFlow)
	assert.Equal(t, 1, classifier.Calls)
}

func TestRoute_PinnedFlowSkipsReclassification(t *testing.T) {
	classifier := &oracle.MockClassifier{
		Outcome: oracle.Outcome{Classification: domain.ClassificationWaterLeak},
	}
	responder := &oracle.MockResponder{Reply: oracle.Reply{Text: "Gracias, registrado."}}
	e, _ := testEngine(t, classifier, responder)

	sess := newSession("conv-1")
	_, err := e.Route(context.Background(), sess, "Hay una fuga de agua", "")
	require.NoError(t, err)

	// A follow-up with only an address stays in the leak flow without a
	// second classification call.
	res, err := e.Route(context.Background(), sess, "Av. Juarez 123, colonia Centro", "")
	require.NoError(t, err)

	assert.Equal(t, domain.ClassificationWaterLeak, res.Classification)
	assert.Equal(t, 1, classifier.Calls)
	assert.Equal(t, domain.ClassificationWaterLeak, responder.LastInput.Classification)
}

func TestRoute_UndecidedVerdictAsksForDetailWithoutPinning(t *testing.T) {
	classifier := &oracle.MockClassifier{
		Outcome: oracle.Outcome{Classification: domain.ClassificationUndecided},
	}
	e, _ := testEngine(t, classifier, &oracle.MockResponder{})

	sess := newSession("conv-1")
	res, err := e.Route(context.Background(), sess, "este... lo de la cosa", "")
	require.NoError(t, err)

	assert.Equal(t, clarifyText, res.Text)
	assert.Equal(t, domain.ClassificationUndecided, res.Classification)
	assert.Empty(t, res.TicketFolio)
	assert.False(t, sess.InFlow())

	// The next turn classifies again instead of staying stuck.
	classifier.Outcome = oracle.Outcome{Classification: domain.ClassificationWaterLeak}
	res, err = e.Route(context.Background(), sess, "Hay una fuga de agua", "")
	require.NoError(t, err)

	assert.Equal(t, domain.ClassificationWaterLeak, res.Classification)
	assert.Equal(t, 2, classifier.Calls)
}

func TestRoute_SwitchRequestReclassifies(t *testing.T) {
	classifier := &oracle.MockClassifier{
		Outcome: oracle.Outcome{Classification: domain.ClassificationPothole},
	}
	e, _ := testEngine(t, classifier, &oracle.MockResponder{Reply: oracle.Reply{Text: "ok"}})

	sess := newSession("conv-1")
	sess.EnterFlow(domain.ClassificationWaterLeak, domain.SubClassificationNone)

	res, err := e.Route(context.Background(), sess, "quiero cambiar de tema, hay un bache", "")
	require.NoError(t, err)

	assert.Equal(t, 1, classifier.Calls)
	assert.Equal(t, domain.ClassificationPothole, res.Classification)
	assert.Equal(t, domain.ClassificationPothole, sess.ActiveFlow)
}

func TestRoute_PinnedFlowRefreshesStickyAccount(t *testing.T) {
	classifier := &oracle.MockClassifier{
		Outcome: oracle.Outcome{Classification: domain.ClassificationComplaint},
	}
	e, _ := testEngine(t, classifier, &oracle.MockResponder{Reply: oracle.Reply{Text: "ok"}})

	sess := newSession("conv-1")
	_, err := e.Route(context.Background(), sess, "tengo una queja del servicio", "")
	require.NoError(t, err)

	_, err = e.Route(context.Background(), sess, "mi numero de servicio es 87654321", "")
	require.NoError(t, err)
	assert.Equal(t, "87654321", sess.AccountNumber)
}

func TestRoute_ClassifierAccountPersisted(t *testing.T) {
	classifier := &oracle.MockClassifier{
		Outcome: oracle.Outcome{
			Classification: domain.ClassificationGeneralInfo,
			AccountNumber:  "12345678",
		},
	}
	e, _ := testEngine(t, classifier, &oracle.MockResponder{Reply: oracle.Reply{Text: "ok"}})

	sess := newSession("conv-1")
	_, err := e.Route(context.Background(), sess, "cuanto debo de la cuenta 12345678", "")
	require.NoError(t, err)
	assert.Equal(t, "12345678", sess.AccountNumber)
}

func TestRoute_HumanEscalationCreatesUrgentTicketAndResets(t *testing.T) {
	classifier := &oracle.MockClassifier{
		Outcome: oracle.Outcome{Classification: domain.ClassificationHuman},
	}
	e, db := testEngine(t, classifier, &oracle.MockResponder{})

	sess := newSession("conv-1")
	res, err := e.Route(context.Background(), sess, "quiero hablar con una persona", "")
	require.NoError(t, err)

	// A ticket is always produced within the same turn, and the flow resets.
	require.NotEmpty(t, res.TicketFolio)
	assert.Regexp(t, ticket.FolioPattern, res.TicketFolio)
	assert.Equal(t, domain.ClassificationHuman, res.Classification)
	assert.Contains(t, res.Actions, "crear_ticket")
	assert.False(t, sess.InFlow())
	assert.Equal(t, domain.ClassificationUndecided, sess.LastClass)

	got, err := store.NewTicketStore(db).Get(res.TicketFolio)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketPriorityUrgent, got.Priority)
	assert.Equal(t, domain.TicketTypeEscalation, got.Type)
}

func TestRoute_UtilityBillingHandsOff(t *testing.T) {
	classifier := &oracle.MockClassifier{
		Outcome: oracle.Outcome{
			Classification:    domain.ClassificationUtilityBill,
			SubClassification: domain.SubClassificationDebt,
		},
	}
	responder := &oracle.MockResponder{}
	e, _ := testEngine(t, classifier, responder)

	sess := newSession("conv-1")
	res, err := e.Route(context.Background(), sess, "tengo dudas con mi recibo de luz", "")
	require.NoError(t, err)

	require.NotNil(t, res.ContactCard)
	assert.Equal(t, testHandoff, *res.ContactCard)
	assert.Equal(t, handoffText, res.Text)
	assert.Empty(t, res.TicketFolio)
	assert.False(t, sess.InFlow())
	// No in-process responder runs for the billing domain.
	assert.Equal(t, 0, responder.Calls)
}

func TestRoute_TicketActionEndsFlow(t *testing.T) {
	classifier := &oracle.MockClassifier{
		Outcome: oracle.Outcome{Classification: domain.ClassificationWaterLeak},
	}
	responder := &oracle.MockResponder{
		Reply:      oracle.Reply{Text: "Listo, tu reporte quedo registrado."},
		InvokeTool: "crear_ticket",
		ToolArgs:   map[string]string{"titulo": "Fuga en via publica", "ubicacion": "Av. Juarez 123"},
	}
	e, db := testEngine(t, classifier, responder)

	sess := newSession("conv-1")
	res, err := e.Route(context.Background(), sess, "hay una fuga en avenida juarez 123", "")
	require.NoError(t, err)

	require.NotEmpty(t, res.TicketFolio)
	assert.Regexp(t, ticket.FolioPattern, res.TicketFolio)
	assert.Contains(t, res.Actions, "crear_ticket")
	assert.False(t, sess.InFlow(), "ticket creation must end the flow")

	got, err := store.NewTicketStore(db).Get(res.TicketFolio)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketTypeWaterLeak, got.Type)
	assert.Equal(t, "Av. Juarez 123", got.Metadata["ubicacion"])
}

func TestRoute_ResponderWithoutTicketKeepsFlow(t *testing.T) {
	classifier := &oracle.MockClassifier{
		Outcome: oracle.Outcome{Classification: domain.ClassificationWaterLeak},
	}
	responder := &oracle.MockResponder{Reply: oracle.Reply{Text: "¿Me das la ubicacion exacta?"}}
	e, _ := testEngine(t, classifier, responder)

	sess := newSession("conv-1")
	_, err := e.Route(context.Background(), sess, "hay una fuga", "")
	require.NoError(t, err)
	assert.True(t, sess.InFlow())
}

func TestRoute_ClassifierFailureLeavesSessionUntouched(t *testing.T) {
	classifier := &oracle.MockClassifier{Err: context.DeadlineExceeded}
	e, _ := testEngine(t, classifier, &oracle.MockResponder{})

	sess := newSession("conv-1")
	_, err := e.Route(context.Background(), sess, "no entiendo nada", "")
	require.ErrorIs(t, err, ErrClassification)
	assert.False(t, sess.InFlow())
	assert.Empty(t, sess.AccountNumber)
}

func TestRoute_InconsistentVerdictRejected(t *testing.T) {
	classifier := &oracle.MockClassifier{
		Outcome: oracle.Outcome{
			Classification:    domain.ClassificationPothole,
			SubClassification: domain.SubClassificationDebt, // invalid pairing
		},
	}
	e, _ := testEngine(t, classifier, &oracle.MockResponder{})

	sess := newSession("conv-1")
	_, err := e.Route(context.Background(), sess, "hay un bache", "")
	assert.ErrorIs(t, err, ErrClassification)
}

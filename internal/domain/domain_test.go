package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePair_SubOnlyForUtilityBilling(t *testing.T) {
	// The sub-classification enum is reserved for the billing domain.
	require.NoError(t, ValidatePair(ClassificationUtilityBill, SubClassificationDebt))
	require.NoError(t, ValidatePair(ClassificationUtilityBill, SubClassificationNone))
	require.NoError(t, ValidatePair(ClassificationWaterLeak, SubClassificationNone))

	err := ValidatePair(ClassificationWaterLeak, SubClassificationDebt)
	assert.Error(t, err)

	err = ValidatePair(ClassificationHuman, SubClassificationPayments)
	assert.Error(t, err)
}

func TestValidatePair_UnknownValues(t *testing.T) {
	assert.Error(t, ValidatePair(Classification("astrologia"), SubClassificationNone))
	assert.Error(t, ValidatePair(ClassificationUtilityBill, SubClassification("otros")))
}

func TestClassifications_ClosedSet(t *testing.T) {
	all := Classifications()
	assert.Len(t, all, 16) // 15 domains + undecided
	for _, c := range all {
		assert.True(t, c.Valid())
	}
}

func TestTicketType_Codes(t *testing.T) {
	assert.Equal(t, "FUG", TicketTypeWaterLeak.Code())
	assert.Equal(t, "URG", TicketTypeEscalation.Code())
	assert.Equal(t, "ACL", TicketTypeBillingDispute.Code())
	assert.Equal(t, "GEN", TicketType("desconocido").Code())
}

func TestTicketEnums_Valid(t *testing.T) {
	assert.True(t, TicketStatusResolved.Valid())
	assert.False(t, TicketStatus("pendiente").Valid())
	assert.True(t, TicketPriorityUrgent.Valid())
	assert.False(t, TicketPriority("critica").Valid())
	assert.True(t, TicketTypePothole.Valid())
	assert.False(t, TicketType("").Valid())
}

func TestSession_FlowTransitions(t *testing.T) {
	s := &Session{ConversationID: "conv-1"}
	assert.False(t, s.InFlow())

	s.EnterFlow(ClassificationUtilityBill, SubClassificationUsage)
	assert.True(t, s.InFlow())
	assert.Equal(t, SubClassificationUsage, s.ActiveSubFlow)

	// Entering a non-billing flow clears the sub-flow.
	s.EnterFlow(ClassificationWaterLeak, SubClassificationUsage)
	assert.Equal(t, ClassificationWaterLeak, s.ActiveFlow)
	assert.Equal(t, SubClassificationNone, s.ActiveSubFlow)

	s.LeaveFlow()
	assert.False(t, s.InFlow())
	assert.Equal(t, SubClassificationNone, s.ActiveSubFlow)
}

func TestSession_AppendCapsHistory(t *testing.T) {
	s := &Session{ConversationID: "conv-1"}
	for i := 0; i < 10; i++ {
		s.Append(Exchange{Role: "user", Content: "m", Timestamp: time.Now()}, 4)
	}
	assert.Len(t, s.History, 4)
}

package og

import (
	"testing"
	"time"

	"carrytrader/internal/schema"
	"carrytrader/pkg/exception"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yanun0323/errors"
)

func TestStateMachineSubmitAndReports(t *testing.T) {
	m := NewStateMachine()
	o := marketOrder(t)
	now := time.Now()

	_, err := m.ApplySubmit(o, Response{Status: "rejected"}, now)
	assert.True(t, errors.Is(err, exception.ErrOrderEmptyResponseID))

	tracked, err := m.ApplySubmit(o, Response{BrokerOrderID: "c1", ProprietaryID: "PBCP", Status: StatusOK}, now)
	require.NoError(t, err)
	assert.Equal(t, OrderStateSent, tracked.State)
	assert.Equal(t, o.ID(), tracked.SignalID)

	_, err = m.ApplySubmit(o, Response{BrokerOrderID: "c1", Status: StatusOK}, now)
	assert.True(t, errors.Is(err, exception.ErrOrderDuplicate))

	testCases := []struct {
		desc   string
		report schema.OrderReport
		state  OrderState
		leaves float64
	}{
		{"new", schema.OrderReport{ClOrdID: "c1", Status: "NEW", LeavesQty: 1}, OrderStateNew, 1},
		{"filled", schema.OrderReport{ClOrdID: "c1", Status: "FILLED", CumQty: 1, AvgPx: 104}, OrderStateFilled, 0},
	}
	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			got, err := m.ApplyReport(tc.report, now)
			require.NoError(t, err)
			assert.Equal(t, tc.state, got.State)
			assert.Equal(t, tc.leaves, got.LeavesQty)
		})
	}

	_, err = m.ApplyReport(schema.OrderReport{ClOrdID: "c1", Status: "CANCELLED"}, now)
	assert.True(t, errors.Is(err, exception.ErrOrderInvalidTransit))
	got, ok := m.Order("c1")
	require.True(t, ok)
	assert.Equal(t, OrderStateFilled, got.State)
	assert.Empty(t, m.Open())
}

func TestStateMachineForeignReport(t *testing.T) {
	m := NewStateMachine()

	_, err := m.ApplyReport(schema.OrderReport{Status: "NEW"}, time.Now())
	assert.True(t, errors.Is(err, exception.ErrOrderUnknown))

	got, err := m.ApplyReport(schema.OrderReport{
		ClOrdID:      "x",
		Side:         "SELL",
		InstrumentID: schema.InstrumentID{Symbol: "GGAL/DIC23"},
		Status:       "PARTIALLY_FILLED",
		CumQty:       1,
		LeavesQty:    2,
	}, time.Now())
	require.NoError(t, err)
	assert.Equal(t, OrderStatePartFilled, got.State)
	assert.Equal(t, schema.OrderSideSell, got.Side)
	assert.Equal(t, []string{"x"}, m.Open())
	assert.Equal(t, map[OrderState]int{OrderStatePartFilled: 1}, m.Counts())
	assert.Len(t, m.Orders(), 1)
}

func TestParseOrderState(t *testing.T) {
	assert.Equal(t, OrderStateCanceled, ParseOrderState("cancelled"))
	assert.Equal(t, OrderStatePendingNew, ParseOrderState("PENDING_NEW"))
	assert.Equal(t, OrderStateUnknown, ParseOrderState("???"))
	assert.True(t, OrderStateExpired.Terminal())
	assert.False(t, OrderStateNew.Terminal())
}

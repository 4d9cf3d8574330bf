package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllOrderStatusesAreValid(t *testing.T) {
	statuses := AllOrderStatuses()
	assert.Len(t, statuses, 9)
	for _, s := range statuses {
		assert.True(t, s.IsValid(), "%q should be valid", s)
	}
	assert.False(t, OrderStatus("Shipped").IsValid())
	assert.False(t, OrderStatus("").IsValid())
}

func TestParseOrderStatus(t *testing.T) {
	s, err := ParseOrderStatus("  waiting for payment ")
	require.NoError(t, err)
	assert.Equal(t, StatusWaitingForPayment, s)

	_, err = ParseOrderStatus("pending")
	assert.Error(t, err)
}

func TestTransitionsFollowForwardPath(t *testing.T) {
	tests := []struct {
		from    OrderStatus
		to      OrderStatus
		allowed bool
	}{
		{StatusForEvaluation, StatusContractSigning, true},
		{StatusContractSigning, StatusWaitingForPayment, true},
		{StatusWaitingForPayment, StatusVerifyingPayment, true},
		{StatusVerifyingPayment, StatusInProduction, true},
		{StatusVerifyingPayment, StatusWaitingForPayment, true},
		{StatusInProduction, StatusWaitingForShipment, true},
		{StatusWaitingForShipment, StatusInTransit, true},
		{StatusInTransit, StatusCompleted, true},
		{StatusForEvaluation, StatusInProduction, false},
		{StatusInTransit, StatusForEvaluation, false},
		{StatusCompleted, StatusCancelled, false},
		{StatusCancelled, StatusForEvaluation, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestCancelledOnlyReachableFromTwoEarliestCancellableStatuses(t *testing.T) {
	for _, s := range AllOrderStatuses() {
		canCancel := s.CanTransitionTo(StatusCancelled)
		assert.Equal(t, s == StatusForEvaluation || s == StatusWaitingForPayment, canCancel, "status %q", s)
		assert.Equal(t, canCancel, s.IsCancellable(), "status %q", s)
	}
}

func TestTerminalStatusesHaveNoSuccessors(t *testing.T) {
	for _, s := range AllOrderStatuses() {
		if s.IsTerminal() {
			assert.Empty(t, s.NextStatuses(), "status %q", s)
		} else {
			assert.NotEmpty(t, s.NextStatuses(), "status %q", s)
		}
	}
}

func TestRank(t *testing.T) {
	assert.Equal(t, 0, StatusForEvaluation.Rank())
	assert.Equal(t, 7, StatusCompleted.Rank())
	assert.Equal(t, -1, StatusCancelled.Rank())
	assert.Equal(t, -1, OrderStatus("bogus").Rank())
}

func TestOrderTransitionNeverWritesUnknownStatus(t *testing.T) {
	order := Order{Status: StatusForEvaluation}

	err := order.Transition(OrderStatus("Lost"))
	var terr *TransitionError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, StatusForEvaluation, order.Status)

	err = order.Transition(StatusCompleted)
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, StatusForEvaluation, order.Status)

	require.NoError(t, order.Transition(StatusContractSigning))
	assert.Equal(t, StatusContractSigning, order.Status)
}

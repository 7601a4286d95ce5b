package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDebtOrderStatus_CanTransitionTo(t *testing.T) {
	cases := []struct {
		from, to DebtOrderStatus
		want     bool
	}{
		{DebtOrderStatusPending, DebtOrderStatusFulfillable, true},
		{DebtOrderStatusPending, DebtOrderStatusCompleted, false},
		{DebtOrderStatusFulfillable, DebtOrderStatusCompleted, true},
		//引当の解除は無い
		{DebtOrderStatusFulfillable, DebtOrderStatusPending, false},
		{DebtOrderStatusCompleted, DebtOrderStatusPending, false},
		{DebtOrderStatusCompleted, DebtOrderStatusFulfillable, false},
		{DebtOrderStatus("UNKNOWN"), DebtOrderStatusFulfillable, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, tc.from.CanTransitionTo(tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestTransferRequestStatus_CanTransitionTo(t *testing.T) {
	assert.True(t, TransferRequestStatusPending.CanTransitionTo(TransferRequestStatusPartial))
	assert.True(t, TransferRequestStatusPending.CanTransitionTo(TransferRequestStatusRejected))
	assert.True(t, TransferRequestStatusPartial.CanTransitionTo(TransferRequestStatusCompleted))
	assert.False(t, TransferRequestStatusPartial.CanTransitionTo(TransferRequestStatusRejected))
	assert.False(t, TransferRequestStatusCompleted.CanTransitionTo(TransferRequestStatusPartial))
	assert.False(t, TransferRequestStatusRejected.CanTransitionTo(TransferRequestStatusCompleted))
}

func TestParseDebtOrderStatus(t *testing.T) {
	st, err := ParseDebtOrderStatus("FULFILLABLE")
	assert.NoError(t, err)
	assert.Equal(t, DebtOrderStatusFulfillable, st)

	_, err = ParseDebtOrderStatus("fulfillable")
	assert.Error(t, err)
}

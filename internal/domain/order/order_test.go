package order

import (
	"testing"

	"github.com/cassiomorais/checkout-gateway/internal/domain/transaction"
	"github.com/stretchr/testify/assert"
)

func TestKeyForState(t *testing.T) {
	cases := []struct {
		state transaction.State
		key   StatusKey
	}{
		{transaction.StateConfirmed, StatusRedirected},
		{transaction.StateProcessing, StatusRedirected},
		{transaction.StateAuthorized, StatusAuthorized},
		{transaction.StateCompleted, StatusWaiting},
		{transaction.StateFulfill, StatusCompleted},
		{transaction.StateDecline, StatusManual},
		{transaction.StateFailed, StatusFailed},
		{transaction.StateVoided, StatusFailed},
	}
	for _, tc := range cases {
		key, ok := KeyForState(tc.state)
		assert.True(t, ok, string(tc.state))
		assert.Equal(t, tc.key, key, string(tc.state))
	}
}

func TestKeyForState_PendingIrrelevant(t *testing.T) {
	_, ok := KeyForState(transaction.StatePending)
	assert.False(t, ok)
}

func TestDefaults_PaidFlags(t *testing.T) {
	paid := map[StatusKey]bool{}
	for _, s := range Defaults() {
		paid[s.Key] = s.Paid
	}
	assert.True(t, paid[StatusAuthorized])
	assert.True(t, paid[StatusCompleted])
	assert.False(t, paid[StatusFailed])
	assert.False(t, paid[StatusRedirected])
}

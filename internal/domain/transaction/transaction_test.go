package transaction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransaction_IsPending(t *testing.T) {
	tx := &Transaction{State: StatePending}
	assert.True(t, tx.IsPending())

	for _, s := range []State{StateConfirmed, StateProcessing, StateAuthorized, StateCompleted, StateFulfill, StateFailed, StateDecline, StateVoided} {
		tx.State = s
		assert.False(t, tx.IsPending(), string(s))
	}
}

func TestTransaction_NextPendingBumpsVersion(t *testing.T) {
	tx := &Transaction{
		ID:      1001,
		Version: 4,
		Draft:   Draft{CurrencyCode: "EUR", MerchantReference: "cart-7"},
	}

	p := tx.NextPending()
	require.NotNil(t, p)
	assert.Equal(t, int64(1001), p.ID)
	assert.Equal(t, int64(5), p.Version)
	assert.Equal(t, "EUR", p.CurrencyCode)
	assert.Equal(t, "cart-7", p.MerchantReference)
}

func TestMapping_Matches(t *testing.T) {
	mp := Mapping{SpaceID: 5, TransactionID: 1001}
	assert.True(t, mp.Matches(5))
	assert.False(t, mp.Matches(6))
	assert.False(t, Mapping{SpaceID: 5}.Matches(5))
}

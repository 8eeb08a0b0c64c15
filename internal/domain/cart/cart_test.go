package cart

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func testCart() *Cart {
	return &Cart{
		ID:           7,
		CurrencyCode: "EUR",
		CustomerID:   3,
		Items: []Item{
			{ProductID: 10, SKU: "SKU-10", Name: "Widget", Quantity: 2, TotalCents: 5000},
			{ProductID: 11, SKU: "SKU-11", Name: "Gadget", Quantity: 1, TotalCents: 2599},
		},
		ShippingCents: 500,
		DiscountCents: 100,
	}
}

func TestCart_TotalCents(t *testing.T) {
	c := testCart()
	assert.Equal(t, int64(5000+2599+500-100), c.TotalCents())
}

func TestCart_FingerprintDeterministic(t *testing.T) {
	a := testCart()
	b := testCart()
	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
}

func TestCart_FingerprintIgnoresItemOrder(t *testing.T) {
	a := testCart()
	b := testCart()
	b.Items[0], b.Items[1] = b.Items[1], b.Items[0]
	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
}

func TestCart_FingerprintChangesWithContents(t *testing.T) {
	base := testCart().Fingerprint()

	quantity := testCart()
	quantity.Items[0].Quantity = 3
	assert.NotEqual(t, base, quantity.Fingerprint())

	currency := testCart()
	currency.CurrencyCode = "USD"
	assert.NotEqual(t, base, currency.Fingerprint())

	customer := testCart()
	customer.CustomerID = 0
	assert.NotEqual(t, base, customer.Fingerprint())

	address := testCart()
	address.BillingAddressID = 12
	assert.NotEqual(t, base, address.Fingerprint())

	shipping := testCart()
	shipping.ShippingCents = 0
	assert.NotEqual(t, base, shipping.Fingerprint())
}

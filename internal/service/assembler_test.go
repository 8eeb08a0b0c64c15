package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/cassiomorais/checkout-gateway/internal/domain/order"
	"github.com/cassiomorais/checkout-gateway/internal/domain/platform"
	"github.com/cassiomorais/checkout-gateway/internal/domain/transaction"
	"github.com/cassiomorais/checkout-gateway/internal/infrastructure/config"
	"github.com/cassiomorais/checkout-gateway/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type assemblerFixture struct {
	entities *testutil.MockEntityResolver
	orders   *testutil.MockOrderRepository
	asm      *Assembler
}

func newAssemblerFixture(t *testing.T) *assemblerFixture {
	t.Helper()
	f := &assemblerFixture{
		entities: testutil.NewMockEntityResolver(),
		orders:   testutil.NewMockOrderRepository(),
	}
	f.asm = NewAssembler(f.entities, f.orders,
		config.GatewayConfig{SpaceID: testSpaceID, AppSecret: "0123456789abcdef0123456789abcdef"},
		config.CheckoutConfig{ReturnBaseURL: "https://shop.example.com"},
	)
	return f
}

func TestDraft_GuestCheckout(t *testing.T) {
	f := newAssemblerFixture(t)
	c := testutil.NewTestCart(7, "EUR")
	c.ShippingCents = 500
	c.DiscountCents = 100

	draft, err := f.asm.Draft(context.Background(), c)
	require.NoError(t, err)

	assert.Empty(t, draft.CustomerID)
	assert.Empty(t, draft.CustomerEmail)
	assert.Nil(t, draft.BillingAddress)
	assert.Nil(t, draft.ShippingAddress)
	assert.Equal(t, "EUR", draft.CurrencyCode)
	assert.Equal(t, "cart-7", draft.MerchantReference)
	assert.NotEmpty(t, draft.DeviceSessionIdentifier)
	assert.Equal(t, "7", draft.MetaData["cart_id"])
}

func TestDraft_LineItemsIncludeShippingAndDiscount(t *testing.T) {
	f := newAssemblerFixture(t)
	c := testutil.NewTestCart(7, "EUR")
	c.ShippingCents = 500
	c.DiscountCents = 100

	draft, err := f.asm.Draft(context.Background(), c)
	require.NoError(t, err)
	require.Len(t, draft.LineItems, 4)

	byID := map[string]transaction.LineItem{}
	for _, li := range draft.LineItems {
		byID[li.UniqueID] = li
	}
	assert.Equal(t, int64(5000), byID["item-10"].AmountCents)
	assert.Equal(t, transaction.LineItemShipping, byID["shipping"].Type)
	assert.Equal(t, int64(500), byID["shipping"].AmountCents)
	assert.Equal(t, transaction.LineItemDiscount, byID["discount"].Type)
	assert.Equal(t, int64(-100), byID["discount"].AmountCents)
}

func TestDraft_CustomerWithAddress(t *testing.T) {
	f := newAssemblerFixture(t)
	f.entities.AddCustomer(testutil.NewTestCustomer(3))
	f.entities.AddAddress(testutil.NewTestAddress(12))
	f.entities.AddCountry(&platform.Country{ID: 1, ISO: "CH"})
	f.entities.AddState(&platform.State{ID: 1, ISO: "CH-ZH"})

	draft, err := f.asm.Draft(context.Background(), testutil.NewCustomerCart(7, 3, 12))
	require.NoError(t, err)

	assert.Equal(t, "3", draft.CustomerID)
	assert.Equal(t, "ada@example.com", draft.CustomerEmail)
	require.NotNil(t, draft.BillingAddress)
	assert.Equal(t, "Zurich", draft.BillingAddress.City)
	assert.Equal(t, "CH", draft.BillingAddress.Country)
	assert.Equal(t, "CH-ZH", draft.BillingAddress.PostalState)
	assert.Equal(t, transaction.GenderFemale, draft.BillingAddress.Gender)
	require.NotNil(t, draft.BillingAddress.DateOfBirth)
	assert.Equal(t, time.Date(1985, 12, 10, 0, 0, 0, 0, time.UTC), *draft.BillingAddress.DateOfBirth)
}

func TestDraft_UnresolvableCountryAndStateOmitted(t *testing.T) {
	f := newAssemblerFixture(t)
	f.entities.AddCustomer(testutil.NewTestCustomer(3))
	addr := testutil.NewTestAddress(12)
	addr.CountryID = 99
	addr.StateID = 99
	f.entities.AddAddress(addr)

	draft, err := f.asm.Draft(context.Background(), testutil.NewCustomerCart(7, 3, 12))
	require.NoError(t, err)
	require.NotNil(t, draft.BillingAddress)
	assert.Empty(t, draft.BillingAddress.Country)
	assert.Empty(t, draft.BillingAddress.PostalState)
}

func TestDraft_InvalidBirthdayAndGenderOmitted(t *testing.T) {
	f := newAssemblerFixture(t)
	customer := testutil.NewTestCustomer(3)
	customer.Birthday = "0000-00-00"
	customer.Gender = "X"
	f.entities.AddCustomer(customer)
	f.entities.AddAddress(testutil.NewTestAddress(12))

	draft, err := f.asm.Draft(context.Background(), testutil.NewCustomerCart(7, 3, 12))
	require.NoError(t, err)
	require.NotNil(t, draft.BillingAddress)
	assert.Nil(t, draft.BillingAddress.DateOfBirth)
	assert.Empty(t, draft.BillingAddress.Gender)
}

func TestDraft_StreetTruncatedTo300(t *testing.T) {
	f := newAssemblerFixture(t)
	f.entities.AddCustomer(testutil.NewTestCustomer(3))
	addr := testutil.NewTestAddress(12)
	addr.Street1 = strings.Repeat("a", 280)
	addr.Street2 = strings.Repeat("b", 320)
	f.entities.AddAddress(addr)

	draft, err := f.asm.Draft(context.Background(), testutil.NewCustomerCart(7, 3, 12))
	require.NoError(t, err)
	require.NotNil(t, draft.BillingAddress)
	assert.Len(t, draft.BillingAddress.Street, 300)
	assert.True(t, strings.HasPrefix(draft.BillingAddress.Street, strings.Repeat("a", 280)))
}

func TestDraft_VanishedCustomerFallsBackToGuest(t *testing.T) {
	f := newAssemblerFixture(t)
	c := testutil.NewTestCart(7, "EUR")
	c.CustomerID = 999

	draft, err := f.asm.Draft(context.Background(), c)
	require.NoError(t, err)
	assert.Empty(t, draft.CustomerID)
}

func TestDraft_CarrierNameAsShippingMethod(t *testing.T) {
	f := newAssemblerFixture(t)
	f.entities.AddCarrier(&platform.Carrier{ID: 4, Name: "Swiss Post Priority"})
	c := testutil.NewTestCart(7, "EUR")
	c.CarrierID = 4

	draft, err := f.asm.Draft(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, "Swiss Post Priority", draft.ShippingMethod)
}

func TestConfirmFields_JoinsOrderReferences(t *testing.T) {
	f := newAssemblerFixture(t)
	c := testutil.NewTestCart(7, "EUR")
	orders := []*order.Order{
		testutil.NewTestOrder(42, 7, "O-1001"),
		testutil.NewTestOrder(43, 7, "O-1002"),
	}

	pending := &transaction.Pending{ID: 1001, Version: 2}
	require.NoError(t, f.asm.ConfirmFields(context.Background(), pending, c, orders, 31))

	assert.Equal(t, "O-1001,O-1002", pending.MerchantReference)
	assert.Equal(t, []int64{31}, pending.AllowedPaymentMethods)
}

func TestConfirmFields_ReturnURLsCarryToken(t *testing.T) {
	f := newAssemblerFixture(t)
	c := testutil.NewTestCart(7, "EUR")
	lead := testutil.NewTestOrder(42, 7, "O-1001")

	pending := &transaction.Pending{ID: 1001, Version: 2}
	require.NoError(t, f.asm.ConfirmFields(context.Background(), pending, c, []*order.Order{lead}, 31))

	token := f.asm.ReturnToken(lead)
	assert.Equal(t, "https://shop.example.com/return/42?outcome=success&token="+token, pending.SuccessURL)
	assert.Equal(t, "https://shop.example.com/return/42?outcome=failure&token="+token, pending.FailedURL)
}

func TestConfirmFields_PreservesDeviceSession(t *testing.T) {
	f := newAssemblerFixture(t)
	c := testutil.NewTestCart(7, "EUR")

	pending := &transaction.Pending{ID: 1001, Version: 2}
	pending.DeviceSessionIdentifier = "device-abc"
	require.NoError(t, f.asm.ConfirmFields(context.Background(), pending, c, []*order.Order{testutil.NewTestOrder(42, 7, "O-1001")}, 31))

	assert.Equal(t, "device-abc", pending.DeviceSessionIdentifier)
}

func TestConfirmFields_AggregatesComments(t *testing.T) {
	f := newAssemblerFixture(t)
	c := testutil.NewTestCart(7, "EUR")
	orders := []*order.Order{
		testutil.NewTestOrder(42, 7, "O-1001"),
		testutil.NewTestOrder(43, 7, "O-1002"),
	}
	f.orders.AddMessage(42, "Please gift wrap")
	f.orders.AddMessage(42, "<b>Please gift wrap</b>")
	f.orders.AddMessage(43, "Leave at the door\x07")

	pending := &transaction.Pending{ID: 1001, Version: 2}
	require.NoError(t, f.asm.ConfirmFields(context.Background(), pending, c, orders, 31))

	assert.Equal(t, "Leave at the door\nPlease gift wrap", pending.CustomerComment)
}

func TestConfirmFields_CommentCappedAt512(t *testing.T) {
	f := newAssemblerFixture(t)
	c := testutil.NewTestCart(7, "EUR")
	o := testutil.NewTestOrder(42, 7, "O-1001")
	f.orders.AddMessage(42, strings.Repeat("x", 600))

	pending := &transaction.Pending{ID: 1001, Version: 2}
	require.NoError(t, f.asm.ConfirmFields(context.Background(), pending, c, []*order.Order{o}, 31))

	assert.Len(t, pending.CustomerComment, 512)
}

func TestReturnToken_Verifies(t *testing.T) {
	f := newAssemblerFixture(t)
	o := testutil.NewTestOrder(42, 7, "O-1001")

	token := f.asm.ReturnToken(o)
	assert.True(t, f.asm.VerifyReturnToken(o, token))
	assert.False(t, f.asm.VerifyReturnToken(o, token+"0"))

	other := testutil.NewTestOrder(43, 7, "O-1002")
	assert.False(t, f.asm.VerifyReturnToken(other, token))
}

func TestReturnToken_BoundToAmount(t *testing.T) {
	f := newAssemblerFixture(t)
	o := testutil.NewTestOrder(42, 7, "O-1001")
	token := f.asm.ReturnToken(o)

	tampered := *o
	tampered.TotalCents = 1
	assert.False(t, f.asm.VerifyReturnToken(&tampered, token))
}

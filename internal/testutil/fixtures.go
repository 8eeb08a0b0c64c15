package testutil

import (
	"github.com/cassiomorais/checkout-gateway/internal/domain/cart"
	"github.com/cassiomorais/checkout-gateway/internal/domain/order"
	"github.com/cassiomorais/checkout-gateway/internal/domain/platform"
)

func NewTestCart(id int64, currency string, items ...cart.Item) *cart.Cart {
	if len(items) == 0 {
		items = []cart.Item{
			{ProductID: 10, SKU: "SKU-10", Name: "Widget", Quantity: 2, TotalCents: 5000},
			{ProductID: 11, SKU: "SKU-11", Name: "Gadget", Quantity: 1, TotalCents: 2599},
		}
	}
	return &cart.Cart{
		ID:           id,
		CurrencyCode: currency,
		LanguageCode: "en-US",
		Items:        items,
	}
}

// NewCustomerCart builds a cart with a customer and addresses attached.
func NewCustomerCart(id, customerID, addressID int64) *cart.Cart {
	c := NewTestCart(id, "EUR")
	c.CustomerID = customerID
	c.BillingAddressID = addressID
	c.ShippingAddressID = addressID
	return c
}

func NewTestOrder(id, cartID int64, reference string) *order.Order {
	return &order.Order{
		ID:           id,
		CartID:       cartID,
		CurrencyCode: "EUR",
		Reference:    reference,
		TotalCents:   7599,
	}
}

func NewTestCustomer(id int64) *platform.Customer {
	return &platform.Customer{
		ID:        id,
		FirstName: "Ada",
		LastName:  "Lovelace",
		Email:     "ada@example.com",
		Phone:     "+41 44 000 00 00",
		Birthday:  "1985-12-10",
		Gender:    "F",
	}
}

func NewTestAddress(id int64) *platform.Address {
	return &platform.Address{
		ID:        id,
		FirstName: "Ada",
		LastName:  "Lovelace",
		City:      "Zurich",
		Phone:     "+41 44 000 00 00",
		CountryID: 1,
		StateID:   1,
		PostCode:  "8005",
		Street1:   "Technikumstrasse 12",
	}
}

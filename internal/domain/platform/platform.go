// Package platform models the host e-commerce platform's entities as the
// gateway consumes them: simple records resolved by numeric id.
package platform

import (
	"context"
)

// Customer is the platform customer entity. Birthday is kept as the raw
// platform string; the assembler validates it before use. Gender uses the
// platform's binary encoding ("M"/"F"), empty when unset.
type Customer struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Company   string `json:"company"`
	Phone     string `json:"phone"`
	Birthday  string `json:"birthday"`
	Gender    string `json:"gender"`
}

// Address is the platform address entity.
type Address struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Company   string `json:"company"`
	City      string `json:"city"`
	Phone     string `json:"phone"`
	CountryID int64  `json:"country_id"`
	StateID   int64  `json:"state_id"`
	PostCode  string `json:"post_code"`
	Street1   string `json:"street1"`
	Street2   string `json:"street2"`
}

// Country is the platform country entity; ISO is the two-letter code.
type Country struct {
	ID  int64  `json:"id"`
	ISO string `json:"iso"`
}

// State is a country subdivision; ISO is the region code.
type State struct {
	ID  int64  `json:"id"`
	ISO string `json:"iso"`
}

// Carrier is the platform shipping carrier entity.
type Carrier struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// EntityResolver is the host platform's lookup-by-numeric-id capability. A
// missing entity returns a not-found error; the assembler treats unresolvable
// countries, states and similar as fields to omit, never as failures.
type EntityResolver interface {
	Customer(ctx context.Context, id int64) (*Customer, error)
	Address(ctx context.Context, id int64) (*Address, error)
	Country(ctx context.Context, id int64) (*Country, error)
	State(ctx context.Context, id int64) (*State, error)
	Carrier(ctx context.Context, id int64) (*Carrier, error)
}

package transaction

import (
	"time"
)

// State represents the lifecycle state of a remote transaction.
type State string

const (
	StatePending    State = "PENDING"
	StateConfirmed  State = "CONFIRMED"
	StateProcessing State = "PROCESSING"
	StateAuthorized State = "AUTHORIZED"
	StateCompleted  State = "COMPLETED"
	StateFulfill    State = "FULFILL"
	StateFailed     State = "FAILED"
	StateDecline    State = "DECLINE"
	StateVoided     State = "VOIDED"
)

// Gender is the remote address gender enum.
type Gender string

const (
	GenderMale   Gender = "MALE"
	GenderFemale Gender = "FEMALE"
)

// LineItemType distinguishes products from shipping and discount lines.
type LineItemType string

const (
	LineItemProduct  LineItemType = "PRODUCT"
	LineItemShipping LineItemType = "SHIPPING"
	LineItemDiscount LineItemType = "DISCOUNT"
	LineItemFee      LineItemType = "FEE"
)

// Address is the remote transaction address payload. Optional fields are left
// empty and omitted on the wire.
type Address struct {
	City             string     `json:"city,omitempty"`
	FamilyName       string     `json:"family_name,omitempty"`
	GivenName        string     `json:"given_name,omitempty"`
	OrganizationName string     `json:"organization_name,omitempty"`
	Phone            string     `json:"phone,omitempty"`
	Country          string     `json:"country,omitempty"`
	PostalState      string     `json:"postal_state,omitempty"`
	PostCode         string     `json:"post_code,omitempty"`
	Street           string     `json:"street,omitempty"`
	Email            string     `json:"email_address,omitempty"`
	DateOfBirth      *time.Time `json:"date_of_birth,omitempty"`
	Gender           Gender     `json:"gender,omitempty"`
}

// LineItem is one line of the remote transaction, amount in minor units,
// tax included.
type LineItem struct {
	UniqueID    string       `json:"unique_id"`
	SKU         string       `json:"sku,omitempty"`
	Name        string       `json:"name"`
	Quantity    int          `json:"quantity"`
	AmountCents int64        `json:"amount_cents"`
	Type        LineItemType `json:"type"`
}

// Draft carries every customer-mutable field of a transaction. It is the
// create payload and the embedded body of Pending.
type Draft struct {
	CurrencyCode            string            `json:"currency"`
	CustomerID              string            `json:"customer_id,omitempty"`
	CustomerEmail           string            `json:"customer_email_address,omitempty"`
	Language                string            `json:"language,omitempty"`
	MerchantReference       string            `json:"merchant_reference,omitempty"`
	DeviceSessionIdentifier string            `json:"device_session_identifier,omitempty"`
	BillingAddress          *Address          `json:"billing_address,omitempty"`
	ShippingAddress         *Address          `json:"shipping_address,omitempty"`
	ShippingMethod          string            `json:"shipping_method,omitempty"`
	LineItems               []LineItem        `json:"line_items"`
	AllowedPaymentMethods   []int64           `json:"allowed_payment_method_configurations,omitempty"`
	SuccessURL              string            `json:"success_url,omitempty"`
	FailedURL               string            `json:"failed_url,omitempty"`
	CustomerComment         string            `json:"meta_data_comment,omitempty"`
	MetaData                map[string]string `json:"meta_data,omitempty"`
}

// Pending is the update/confirm payload: a Draft submitted against a known
// version. The remote service rejects it when the version is stale.
type Pending struct {
	ID      int64 `json:"id"`
	Version int64 `json:"version"`
	Draft
}

// Transaction is a read-through snapshot of the remote, versioned resource.
// The remote service owns it; local copies are never authoritative.
type Transaction struct {
	SpaceID int64 `json:"space_id"`
	ID      int64 `json:"id"`
	State   State `json:"state"`
	Version int64 `json:"version"`
	Draft
}

// IsPending reports whether the transaction can still be mutated by the
// customer. Every other state is terminal from the storefront's perspective.
func (t *Transaction) IsPending() bool {
	return t.State == StatePending
}

// NextPending returns an update payload carrying the transaction's current
// fields and version+1, as the remote update contract requires.
func (t *Transaction) NextPending() *Pending {
	return &Pending{
		ID:      t.ID,
		Version: t.Version + 1,
		Draft:   t.Draft,
	}
}

// Mapping is the per-cart association with a remote transaction, persisted in
// cart metadata.
type Mapping struct {
	SpaceID       int64 `json:"space_id"`
	TransactionID int64 `json:"transaction_id"`
}

// Matches reports whether the mapping belongs to the given space. A space
// change in shop configuration orphans old mappings.
func (m Mapping) Matches(spaceID int64) bool {
	return m.SpaceID == spaceID && m.TransactionID > 0
}

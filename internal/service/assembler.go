package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/cassiomorais/checkout-gateway/internal/domain/cart"
	"github.com/cassiomorais/checkout-gateway/internal/domain/order"
	"github.com/cassiomorais/checkout-gateway/internal/domain/platform"
	"github.com/cassiomorais/checkout-gateway/internal/domain/transaction"
	"github.com/cassiomorais/checkout-gateway/internal/infrastructure/config"
	"github.com/google/uuid"
)

// Field length caps. The remote API rejects overlong values, so truncation
// happens locally and deterministically before submission.
const (
	maxCity         = 100
	maxFamilyName   = 100
	maxGivenName    = 100
	maxOrganization = 100
	maxPhone        = 100
	maxPostCode     = 40
	maxStreet       = 300
	maxEmail        = 254
	maxLineItemName = 200
	maxReference    = 100
	maxComment      = 512
)

const birthdayLayout = "2006-01-02"

var markupPattern = regexp.MustCompile(`<[^>]*>`)

// Assembler translates local cart/order/address/customer state into the
// remote transaction payload shape. Unresolvable optional fields (country,
// state, gender, birthdate) are omitted, never guessed.
type Assembler struct {
	entities platform.EntityResolver
	orders   order.Repository
	gateway  config.GatewayConfig
	checkout config.CheckoutConfig
}

// NewAssembler creates an Assembler.
func NewAssembler(entities platform.EntityResolver, orders order.Repository, gatewayCfg config.GatewayConfig, checkoutCfg config.CheckoutConfig) *Assembler {
	return &Assembler{
		entities: entities,
		orders:   orders,
		gateway:  gatewayCfg,
		checkout: checkoutCfg,
	}
}

// Draft builds the transaction-create payload from a cart.
func (a *Assembler) Draft(ctx context.Context, c *cart.Cart) (*transaction.Draft, error) {
	customer := a.resolveCustomer(ctx, c.CustomerID)

	billing, err := a.address(ctx, c.BillingAddressID, customer)
	if err != nil {
		return nil, err
	}
	shipping, err := a.address(ctx, c.ShippingAddressID, customer)
	if err != nil {
		return nil, err
	}

	draft := &transaction.Draft{
		CurrencyCode:            c.CurrencyCode,
		Language:                c.LanguageCode,
		MerchantReference:       fmt.Sprintf("cart-%d", c.ID),
		DeviceSessionIdentifier: uuid.New().String(),
		BillingAddress:          billing,
		ShippingAddress:         shipping,
		LineItems:               a.lineItems(c),
		MetaData: map[string]string{
			"cart_id": fmt.Sprintf("%d", c.ID),
		},
	}

	// Guest checkouts omit customer identity per field, not wholesale.
	if customer != nil {
		draft.CustomerID = fmt.Sprintf("%d", customer.ID)
		if customer.Email != "" {
			draft.CustomerEmail = truncate(customer.Email, maxEmail)
		}
	}

	if c.CarrierID != 0 {
		if carrier, err := a.entities.Carrier(ctx, c.CarrierID); err == nil {
			draft.ShippingMethod = carrier.Name
		}
	}

	return draft, nil
}

// ConfirmFields fills the order-level fields of a confirm payload: addresses
// and line items from the cart, allowed payment method, return URLs and the
// aggregated customer comment across every order confirmed together.
func (a *Assembler) ConfirmFields(ctx context.Context, pending *transaction.Pending, c *cart.Cart, orders []*order.Order, methodID int64) error {
	draft, err := a.Draft(ctx, c)
	if err != nil {
		return err
	}

	refs := make([]string, 0, len(orders))
	for _, o := range orders {
		refs = append(refs, o.Reference)
	}
	draft.MerchantReference = truncate(strings.Join(refs, ","), maxReference)
	draft.AllowedPaymentMethods = []int64{methodID}
	draft.CustomerComment = a.aggregateComments(ctx, orders)

	if len(orders) > 0 {
		lead := orders[0]
		token := a.ReturnToken(lead)
		draft.SuccessURL = fmt.Sprintf("%s/return/%d?outcome=success&token=%s", a.checkout.ReturnBaseURL, lead.ID, token)
		draft.FailedURL = fmt.Sprintf("%s/return/%d?outcome=failure&token=%s", a.checkout.ReturnBaseURL, lead.ID, token)
	}

	// Keep the device session from the original create; the browser fingerprint
	// does not change at confirm time.
	draft.DeviceSessionIdentifier = pending.DeviceSessionIdentifier

	pending.Draft = *draft
	return nil
}

// ReturnToken computes the secret embedded in return URLs so the return
// endpoint can authenticate the redirect without a session.
func (a *Assembler) ReturnToken(o *order.Order) string {
	mac := hmac.New(sha256.New, []byte(a.gateway.AppSecret))
	fmt.Fprintf(mac, "%d:%d:%d:%s", o.ID, o.CartID, o.TotalCents, o.CurrencyCode)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyReturnToken checks a redirect token in constant time.
func (a *Assembler) VerifyReturnToken(o *order.Order, token string) bool {
	return hmac.Equal([]byte(a.ReturnToken(o)), []byte(token))
}

// resolveCustomer returns nil for guest checkouts and lookup failures; a
// missing customer never blocks payload assembly.
func (a *Assembler) resolveCustomer(ctx context.Context, customerID int64) *platform.Customer {
	if customerID == 0 {
		return nil
	}
	customer, err := a.entities.Customer(ctx, customerID)
	if err != nil {
		return nil
	}
	return customer
}

// address translates a platform address into the remote shape. Returns nil
// when the cart has no such address.
func (a *Assembler) address(ctx context.Context, addressID int64, customer *platform.Customer) (*transaction.Address, error) {
	if addressID == 0 {
		return nil, nil
	}
	src, err := a.entities.Address(ctx, addressID)
	if err != nil {
		return nil, err
	}

	out := &transaction.Address{
		City:             truncate(src.City, maxCity),
		FamilyName:       truncate(src.LastName, maxFamilyName),
		GivenName:        truncate(src.FirstName, maxGivenName),
		OrganizationName: truncate(src.Company, maxOrganization),
		Phone:            truncate(src.Phone, maxPhone),
		PostCode:         truncate(src.PostCode, maxPostCode),
		Street:           truncate(joinStreet(src.Street1, src.Street2), maxStreet),
	}

	// Country and region codes only when resolvable.
	if src.CountryID != 0 {
		if country, err := a.entities.Country(ctx, src.CountryID); err == nil {
			out.Country = country.ISO
		}
	}
	if src.StateID != 0 {
		if state, err := a.entities.State(ctx, src.StateID); err == nil {
			out.PostalState = state.ISO
		}
	}

	if customer != nil {
		if customer.Email != "" {
			out.Email = truncate(customer.Email, maxEmail)
		}
		if dob, ok := parseBirthday(customer.Birthday); ok {
			out.DateOfBirth = &dob
		}
		if g, ok := mapGender(customer.Gender); ok {
			out.Gender = g
		}
	}

	return out, nil
}

func (a *Assembler) lineItems(c *cart.Cart) []transaction.LineItem {
	items := make([]transaction.LineItem, 0, len(c.Items)+2)
	for _, it := range c.Items {
		items = append(items, transaction.LineItem{
			UniqueID:    fmt.Sprintf("item-%d", it.ProductID),
			SKU:         it.SKU,
			Name:        truncate(it.Name, maxLineItemName),
			Quantity:    it.Quantity,
			AmountCents: it.TotalCents,
			Type:        transaction.LineItemProduct,
		})
	}
	if c.ShippingCents > 0 {
		items = append(items, transaction.LineItem{
			UniqueID:    "shipping",
			Name:        "Shipping",
			Quantity:    1,
			AmountCents: c.ShippingCents,
			Type:        transaction.LineItemShipping,
		})
	}
	if c.DiscountCents > 0 {
		items = append(items, transaction.LineItem{
			UniqueID:    "discount",
			Name:        "Discount",
			Quantity:    1,
			AmountCents: -c.DiscountCents,
			Type:        transaction.LineItemDiscount,
		})
	}
	return items
}

// aggregateComments collects all distinct message bodies across the orders,
// strips markup and control characters, deduplicates, joins with newlines
// and caps the length.
func (a *Assembler) aggregateComments(ctx context.Context, orders []*order.Order) string {
	seen := make(map[string]struct{})
	var bodies []string
	for _, o := range orders {
		messages, err := a.orders.Messages(ctx, o.ID)
		if err != nil {
			continue
		}
		for _, m := range messages {
			body := sanitizeComment(m.Body)
			if body == "" {
				continue
			}
			if _, dup := seen[body]; dup {
				continue
			}
			seen[body] = struct{}{}
			bodies = append(bodies, body)
		}
	}
	sort.Strings(bodies)
	return truncate(strings.Join(bodies, "\n"), maxComment)
}

func sanitizeComment(s string) string {
	s = markupPattern.ReplaceAllString(s, "")
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && r != '\n' {
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(s)
}

func joinStreet(street1, street2 string) string {
	if street2 == "" {
		return street1
	}
	return street1 + "\n" + street2
}

// truncate left-truncates to n characters.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// parseBirthday accepts only syntactically valid local dates; anything else
// is omitted from the payload.
func parseBirthday(s string) (time.Time, bool) {
	if s == "" || strings.HasPrefix(s, "0000") {
		return time.Time{}, false
	}
	t, err := time.Parse(birthdayLayout, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// mapGender maps the platform's binary gender type into the remote enum.
// Unrecognized or missing values are omitted, never guessed.
func mapGender(g string) (transaction.Gender, bool) {
	switch strings.ToUpper(g) {
	case "M":
		return transaction.GenderMale, true
	case "F":
		return transaction.GenderFemale, true
	default:
		return "", false
	}
}

package cart

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// Item is one cart line as the host platform stores it, totals in minor units
// and tax included.
type Item struct {
	ProductID  int64  `json:"product_id"`
	SKU        string `json:"sku"`
	Name       string `json:"name"`
	Quantity   int    `json:"quantity"`
	TotalCents int64  `json:"total_cents"`
}

// Cart mirrors the host platform's cart entity. Address, customer and carrier
// are references resolved through entity lookups when the payload is built.
type Cart struct {
	ID                int64  `json:"id"`
	CurrencyCode      string `json:"currency_code"`
	LanguageCode      string `json:"language_code"`
	CustomerID        int64  `json:"customer_id"` // 0 for guest checkouts
	BillingAddressID  int64  `json:"billing_address_id"`
	ShippingAddressID int64  `json:"shipping_address_id"`
	CarrierID         int64  `json:"carrier_id"`
	Items             []Item `json:"items"`
	ShippingCents     int64  `json:"shipping_cents"`
	DiscountCents     int64  `json:"discount_cents"`
}

// TotalCents returns the cart total: items plus shipping minus discounts.
func (c *Cart) TotalCents() int64 {
	var total int64
	for _, it := range c.Items {
		total += it.TotalCents
	}
	return total + c.ShippingCents - c.DiscountCents
}

// Fingerprint is a content hash over everything the remote transaction
// depends on: addresses, currency, customer and line items. Cache entries
// keyed by it are valid only while it is unchanged.
func (c *Cart) Fingerprint() string {
	lines := make([]string, 0, len(c.Items))
	for _, it := range c.Items {
		lines = append(lines, fmt.Sprintf("%d:%s:%d:%d", it.ProductID, it.SKU, it.Quantity, it.TotalCents))
	}
	sort.Strings(lines)

	var b strings.Builder
	fmt.Fprintf(&b, "%d|%s|%d|%d|%d|%d|%d|%d|",
		c.ID, c.CurrencyCode, c.CustomerID,
		c.BillingAddressID, c.ShippingAddressID, c.CarrierID,
		c.ShippingCents, c.DiscountCents)
	b.WriteString(strings.Join(lines, ";"))

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

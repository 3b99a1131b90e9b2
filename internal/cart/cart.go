// Package cart holds the shopper cart: a pure line-item collection keyed by
// (product, variant), a redis-backed guest store, a database-backed store for
// signed-in shoppers, and the Engine that moves a guest cart into the bound
// cart exactly once per sign-in.
package cart

import (
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/nilgirisfresh-backend/pkg/types"
)

// NoVariant is the variant key of lines whose product has no variant. It can
// never equal a real variant key because those are UUID strings.
const NoVariant = "~"

// ErrInvalidQuantity is returned when an add would leave a line below one unit.
var ErrInvalidQuantity = errors.New("quantity must be at least 1")

// Key identifies a line item. Lines are located, merged and removed by key only.
type Key struct {
	ProductID  uuid.UUID
	VariantKey string
}

// KeyFor builds the key of a product and optional variant.
func KeyFor(productID uuid.UUID, variantID *uuid.UUID) Key {
	return Key{ProductID: productID, VariantKey: VariantKey(variantID)}
}

// VariantKey maps an optional variant id to its stored key.
func VariantKey(variantID *uuid.UUID) string {
	if variantID == nil || *variantID == uuid.Nil {
		return NoVariant
	}
	return variantID.String()
}

// LineItem is one cart entry.
type LineItem struct {
	ProductID    uuid.UUID       `json:"product_id"`
	VariantID    *uuid.UUID      `json:"variant_id,omitempty"`
	DisplayName  string          `json:"display_name"`
	VariantLabel *string         `json:"variant_label,omitempty"`
	Description  *string         `json:"description,omitempty"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	PackSize     string          `json:"pack_size"`
	ImageRef     *string         `json:"image_ref,omitempty"`
	Quantity     int             `json:"quantity"`
}

// Key returns the composite key of the line.
func (l LineItem) Key() Key {
	return KeyFor(l.ProductID, l.VariantID)
}

// LineTotal is unit price times quantity.
func (l LineItem) LineTotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Totals are derived from the lines on every call and never stored.
type Totals struct {
	TotalItems  int             `json:"total_items"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

// Cart is an ordered collection of line items with unique keys.
type Cart struct {
	Items []LineItem `json:"items"`
}

func (c *Cart) index(key Key) int {
	for i, item := range c.Items {
		if item.Key() == key {
			return i
		}
	}
	return -1
}

// Find returns the line stored under key.
func (c *Cart) Find(key Key) (LineItem, bool) {
	if i := c.index(key); i >= 0 {
		return c.Items[i], true
	}
	return LineItem{}, false
}

// Add increases the quantity of the matching line or appends item as a new
// line. The stored price and labels of an existing line are kept.
func (c *Cart) Add(item LineItem, quantity int) error {
	if quantity < 1 {
		return ErrInvalidQuantity
	}
	if i := c.index(item.Key()); i >= 0 {
		c.Items[i].Quantity += quantity
		return nil
	}
	if item.VariantID != nil && *item.VariantID == uuid.Nil {
		item.VariantID = nil
	}
	item.Quantity = quantity
	c.Items = append(c.Items, item)
	return nil
}

// Update sets the quantity of the line under key. A quantity of zero or less
// removes the line. It reports whether a line matched.
func (c *Cart) Update(key Key, quantity int) bool {
	i := c.index(key)
	if i < 0 {
		return false
	}
	if quantity <= 0 {
		c.removeAt(i)
		return true
	}
	c.Items[i].Quantity = quantity
	return true
}

// Remove deletes the line under key. Removing an absent key is a no-op.
func (c *Cart) Remove(key Key) bool {
	i := c.index(key)
	if i < 0 {
		return false
	}
	c.removeAt(i)
	return true
}

func (c *Cart) removeAt(i int) {
	c.Items = append(c.Items[:i], c.Items[i+1:]...)
}

// Clear drops every line.
func (c *Cart) Clear() {
	c.Items = nil
}

// Empty reports whether the cart has no lines.
func (c Cart) Empty() bool {
	return len(c.Items) == 0
}

// Totals recomputes item count and amount from the current lines.
func (c Cart) Totals() Totals {
	totals := Totals{TotalAmount: decimal.Zero}
	for _, item := range c.Items {
		totals.TotalItems += item.Quantity
		totals.TotalAmount = totals.TotalAmount.Add(item.LineTotal())
	}
	return totals
}

// Snapshot copies the lines into the immutable form stored on orders.
func (c Cart) Snapshot() types.OrderLines {
	lines := make(types.OrderLines, 0, len(c.Items))
	for _, item := range c.Items {
		line := types.OrderLine{
			ProductID: item.ProductID,
			Name:      item.DisplayName,
			PackSize:  item.PackSize,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
			LineTotal: item.LineTotal(),
		}
		if item.VariantID != nil {
			id := *item.VariantID
			line.VariantID = &id
		}
		if item.VariantLabel != nil {
			label := *item.VariantLabel
			line.VariantLabel = &label
		}
		lines = append(lines, line)
	}
	return lines
}

// View is the API shape of a cart: its lines plus freshly derived totals.
type View struct {
	Items       []LineItem      `json:"items"`
	TotalItems  int             `json:"total_items"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

// NewView derives the response body from a cart.
func NewView(c Cart) View {
	totals := c.Totals()
	items := c.Items
	if items == nil {
		items = []LineItem{}
	}
	return View{Items: items, TotalItems: totals.TotalItems, TotalAmount: totals.TotalAmount}
}

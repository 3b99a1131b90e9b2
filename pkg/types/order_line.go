package types

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderLine is the immutable copy of a cart line stored on an order. It holds
// values, never references to live catalog rows.
type OrderLine struct {
	ProductID    uuid.UUID       `json:"product_id"`
	VariantID    *uuid.UUID      `json:"variant_id,omitempty"`
	Name         string          `json:"name"`
	VariantLabel *string         `json:"variant_label,omitempty"`
	PackSize     string          `json:"pack_size"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	Quantity     int             `json:"quantity"`
	LineTotal    decimal.Decimal `json:"line_total"`
}

// OrderLines is the jsonb payload persisted on orders and payment attempts.
type OrderLines []OrderLine

// Total sums every line total.
func (l OrderLines) Total() decimal.Decimal {
	total := decimal.Zero
	for _, line := range l {
		total = total.Add(line.LineTotal)
	}
	return total
}

// Clone returns a deep copy so callers cannot alias pointer fields.
func (l OrderLines) Clone() OrderLines {
	if l == nil {
		return nil
	}
	out := make(OrderLines, len(l))
	for i, line := range l {
		out[i] = line
		if line.VariantID != nil {
			id := *line.VariantID
			out[i].VariantID = &id
		}
		if line.VariantLabel != nil {
			label := *line.VariantLabel
			out[i].VariantLabel = &label
		}
	}
	return out
}

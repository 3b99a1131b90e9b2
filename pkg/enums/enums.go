// Package enums holds the closed string sets stored in Postgres enum
// columns and carried over the wire.
package enums

import (
	"fmt"
	"slices"
	"strings"
)

func member[T ~string](v T, set []T) bool {
	return slices.Contains(set, v)
}

// parse accepts any case and surrounding whitespace.
func parse[T ~string](what string, set []T, raw string) (T, error) {
	v := T(strings.ToLower(strings.TrimSpace(raw)))
	if member(v, set) {
		return v, nil
	}
	var zero T
	return zero, fmt.Errorf("invalid %s %q", what, raw)
}

// UserRole is carried in access tokens and checked by RequireRole.
type UserRole string

const (
	UserRoleCustomer UserRole = "customer"
	UserRoleAdmin    UserRole = "admin"
)

func (u UserRole) IsValid() bool {
	return member(u, []UserRole{UserRoleCustomer, UserRoleAdmin})
}

// VariantType separates quality grades (Premium, Regular) from pack sizes
// (250g, 1kg) on the same product.
type VariantType string

const (
	VariantTypeQuality  VariantType = "quality"
	VariantTypeQuantity VariantType = "quantity"
)

func (v VariantType) IsValid() bool {
	return member(v, []VariantType{VariantTypeQuality, VariantTypeQuantity})
}

type StockStatus string

const (
	StockStatusInStock    StockStatus = "in_stock"
	StockStatusLowStock   StockStatus = "low_stock"
	StockStatusOutOfStock StockStatus = "out_of_stock"
)

func (s StockStatus) IsValid() bool {
	return member(s, []StockStatus{StockStatusInStock, StockStatusLowStock, StockStatusOutOfStock})
}

// Purchasable reports whether a variant in this state may enter a cart or
// checkout. Low stock still sells.
func (s StockStatus) Purchasable() bool {
	return s != StockStatusOutOfStock
}

// MediaKind decides which content types an upload may have and where it is stored.
type MediaKind string

const (
	MediaKindProductImage    MediaKind = "product_image"
	MediaKindPaymentEvidence MediaKind = "payment_evidence"
)

func (m MediaKind) IsValid() bool {
	return member(m, []MediaKind{MediaKindProductImage, MediaKindPaymentEvidence})
}

package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CartItem is one line of a signed-in shopper's cart. A line is identified by
// (user, product, variant key) and carries the price resolved when it was added.
type CartItem struct {
	ID           uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID       uuid.UUID       `gorm:"column:user_id;type:uuid;not null;uniqueIndex:uq_cart_items_owner_key,priority:1"`
	ProductID    uuid.UUID       `gorm:"column:product_id;type:uuid;not null;uniqueIndex:uq_cart_items_owner_key,priority:2"`
	VariantKey   string          `gorm:"column:variant_key;not null;uniqueIndex:uq_cart_items_owner_key,priority:3"`
	VariantID    *uuid.UUID      `gorm:"column:variant_id;type:uuid"`
	DisplayName  string          `gorm:"column:display_name;not null"`
	VariantLabel *string         `gorm:"column:variant_label"`
	Description  *string         `gorm:"column:description"`
	UnitPrice    decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	PackSize     string          `gorm:"column:pack_size;not null"`
	ImageRef     *string         `gorm:"column:image_ref"`
	Quantity     int             `gorm:"column:quantity;not null"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (c *CartItem) BeforeCreate(*gorm.DB) error {
	ensureID(&c.ID)
	return nil
}

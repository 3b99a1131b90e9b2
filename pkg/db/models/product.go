package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/nilgirisfresh-backend/pkg/enums"
)

// Product is a sellable catalog entry. Price and PackSize apply when the
// product has no variants.
type Product struct {
	ID          uuid.UUID        `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Name        string           `gorm:"column:name;not null"`
	Description *string          `gorm:"column:description"`
	Price       decimal.Decimal  `gorm:"column:price;type:numeric(12,2);not null"`
	PackSize    string           `gorm:"column:pack_size;not null"`
	CategoryID  *uuid.UUID       `gorm:"column:category_id;type:uuid"`
	ImageURL    *string          `gorm:"column:image_url"`
	Featured    bool             `gorm:"column:featured;not null;default:false"`
	Variants    []ProductVariant `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

// ProductVariant is a purchasable option (type and pack size) of a product.
type ProductVariant struct {
	ID          uuid.UUID         `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID   uuid.UUID         `gorm:"column:product_id;type:uuid;not null;index"`
	Name        string            `gorm:"column:name;not null"`
	Type        enums.VariantType `gorm:"column:type;type:text;not null"`
	PackSize    string            `gorm:"column:pack_size;not null"`
	Price       decimal.Decimal   `gorm:"column:price;type:numeric(12,2);not null"`
	StockStatus enums.StockStatus `gorm:"column:stock_status;type:text;not null;default:'in_stock'"`
	IsDefault   bool              `gorm:"column:is_default;not null;default:false"`
	CreatedAt   time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (v *ProductVariant) BeforeCreate(*gorm.DB) error {
	ensureID(&v.ID)
	return nil
}

// Label is the "<name> - <pack size>" form shown on carts and orders.
func (v ProductVariant) Label() string {
	return v.Name + " - " + v.PackSize
}

package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/nilgirisfresh-backend/pkg/db/models"
	"github.com/angelmondragon/nilgirisfresh-backend/pkg/enums"
)

// VariantDTO is the API shape of a product variant.
type VariantDTO struct {
	ID          uuid.UUID         `json:"id"`
	ProductID   uuid.UUID         `json:"product_id"`
	Name        string            `json:"name"`
	Type        enums.VariantType `json:"type"`
	PackSize    string            `json:"pack_size"`
	Price       decimal.Decimal   `json:"price"`
	StockStatus enums.StockStatus `json:"stock_status"`
	IsDefault   bool              `json:"is_default"`
}

// ProductDTO is the API shape of a product with its variants.
type ProductDTO struct {
	ID               uuid.UUID       `json:"id"`
	Name             string          `json:"name"`
	Description      *string         `json:"description,omitempty"`
	Price            decimal.Decimal `json:"price"`
	PackSize         string          `json:"pack_size"`
	CategoryID       *uuid.UUID      `json:"category_id,omitempty"`
	ImageURL         *string         `json:"image_url,omitempty"`
	Featured         bool            `json:"featured"`
	Variants         []VariantDTO    `json:"variants"`
	DefaultVariantID *uuid.UUID      `json:"default_variant_id,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// CategoryDTO is the API shape of a category.
type CategoryDTO struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Stats are the catalog counts shown on the admin dashboard.
type Stats struct {
	Products   int64 `json:"products"`
	Categories int64 `json:"categories"`
}

func newVariantDTO(v models.ProductVariant) VariantDTO {
	return VariantDTO{
		ID:          v.ID,
		ProductID:   v.ProductID,
		Name:        v.Name,
		Type:        v.Type,
		PackSize:    v.PackSize,
		Price:       v.Price,
		StockStatus: v.StockStatus,
		IsDefault:   v.IsDefault,
	}
}

// NewProductDTO maps a product row (with preloaded variants) to its API shape.
func NewProductDTO(p models.Product) ProductDTO {
	dto := ProductDTO{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		PackSize:    p.PackSize,
		CategoryID:  p.CategoryID,
		ImageURL:    p.ImageURL,
		Featured:    p.Featured,
		Variants:    make([]VariantDTO, 0, len(p.Variants)),
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
	for _, v := range p.Variants {
		dto.Variants = append(dto.Variants, newVariantDTO(v))
	}
	if def, ok := DefaultVariant(p.Variants, ""); ok {
		id := def.ID
		dto.DefaultVariantID = &id
	}
	return dto
}

func newCategoryDTO(c models.Category) CategoryDTO {
	return CategoryDTO{
		ID:          c.ID,
		Name:        c.Name,
		Description: c.Description,
		CreatedAt:   c.CreatedAt,
	}
}

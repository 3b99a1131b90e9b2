package catalog

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/nilgirisfresh-backend/pkg/db/models"
	"github.com/angelmondragon/nilgirisfresh-backend/pkg/enums"
)

// Selection is a product (and optional variant) resolved to the price and
// labels a shopper sees at the moment of adding it to a cart.
type Selection struct {
	ProductID    uuid.UUID
	VariantID    *uuid.UUID
	Name         string
	VariantLabel *string
	Description  *string
	UnitPrice    decimal.Decimal
	PackSize     string
	ImageRef     *string
	StockStatus  enums.StockStatus
}

func selectionFor(p models.Product, v *models.ProductVariant) Selection {
	sel := Selection{
		ProductID:   p.ID,
		Name:        p.Name,
		Description: p.Description,
		UnitPrice:   p.Price,
		PackSize:    p.PackSize,
		ImageRef:    p.ImageURL,
		StockStatus: enums.StockStatusInStock,
	}
	if v != nil {
		id := v.ID
		label := v.Label()
		sel.VariantID = &id
		sel.VariantLabel = &label
		sel.UnitPrice = v.Price
		sel.PackSize = v.PackSize
		sel.StockStatus = v.StockStatus
	}
	return sel
}

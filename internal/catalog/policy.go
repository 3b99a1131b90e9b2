package catalog

import (
	"github.com/angelmondragon/nilgirisfresh-backend/pkg/db/models"
	"github.com/angelmondragon/nilgirisfresh-backend/pkg/enums"
)

// DefaultVariant picks the variant preselected for a product. Only variants of
// variantType are considered; an empty type considers all of them. The first
// variant flagged is_default wins, otherwise the first in list order. Products
// may carry zero or several defaults, so callers must treat the result as a
// suggestion.
func DefaultVariant(variants []models.ProductVariant, variantType enums.VariantType) (models.ProductVariant, bool) {
	var (
		first models.ProductVariant
		found bool
	)
	for _, v := range variants {
		if variantType != "" && v.Type != variantType {
			continue
		}
		if v.IsDefault {
			return v, true
		}
		if !found {
			first, found = v, true
		}
	}
	return first, found
}

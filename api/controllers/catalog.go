package controllers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/nilgirisfresh-backend/api/responses"
	"github.com/angelmondragon/nilgirisfresh-backend/api/validators"
	"github.com/angelmondragon/nilgirisfresh-backend/internal/catalog"
	"github.com/angelmondragon/nilgirisfresh-backend/internal/settings"
	"github.com/angelmondragon/nilgirisfresh-backend/internal/whatsapp"
	pkgerrors "github.com/angelmondragon/nilgirisfresh-backend/pkg/errors"
	"github.com/angelmondragon/nilgirisfresh-backend/pkg/logger"
)

type settingsReader interface {
	Get(ctx context.Context) (settings.Settings, error)
}

type selectionResolver interface {
	Resolve(ctx context.Context, productID uuid.UUID, variantID *uuid.UUID) (*catalog.Selection, error)
}

type whatsAppLinkResponse struct {
	URL     string `json:"url"`
	Message string `json:"message"`
}

// CatalogListProducts lists products, optionally filtered by category or featured flag.
func CatalogListProducts(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		filter, err := parseProductFilter(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		products, err := svc.ListProducts(r.Context(), filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, products)
	}
}

func parseProductFilter(r *http.Request) (catalog.ListFilter, error) {
	var filter catalog.ListFilter
	categoryID, err := validators.ParseOptionalUUID(r.URL.Query().Get("category_id"), "category_id")
	if err != nil {
		return filter, err
	}
	filter.CategoryID = categoryID
	if raw := strings.TrimSpace(r.URL.Query().Get("featured")); raw != "" {
		featured, err := strconv.ParseBool(raw)
		if err != nil {
			return filter, pkgerrors.New(pkgerrors.CodeValidation, "featured must be a boolean")
		}
		filter.FeaturedOnly = featured
	}
	return filter, nil
}

func CatalogGetProduct(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		productID, err := validators.ParseURLUUID(r, "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.GetProduct(r.Context(), productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

func CatalogListCategories(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		categories, err := svc.ListCategories(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, categories)
	}
}

// ProductWhatsAppLink builds the quick-order chat link for one product.
func ProductWhatsAppLink(resolver selectionResolver, store settingsReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if resolver == nil || store == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		productID, err := validators.ParseURLUUID(r, "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		variantID, err := validators.ParseOptionalUUID(r.URL.Query().Get("variant_id"), "variant_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sel, err := resolver.Resolve(r.Context(), productID, variantID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		current, err := store.Get(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		name := sel.Name
		if sel.VariantLabel != nil && *sel.VariantLabel != "" {
			name += " [" + *sel.VariantLabel + "]"
		}
		message := whatsapp.ProductMessage(name, sel.PackSize, sel.UnitPrice)
		responses.WriteSuccess(w, whatsAppLinkResponse{
			URL:     whatsapp.Link(current.WhatsAppNumber, message),
			Message: message,
		})
	}
}

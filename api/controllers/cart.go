package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/nilgirisfresh-backend/api/middleware"
	"github.com/angelmondragon/nilgirisfresh-backend/api/responses"
	"github.com/angelmondragon/nilgirisfresh-backend/api/validators"
	cartsvc "github.com/angelmondragon/nilgirisfresh-backend/internal/cart"
	pkgerrors "github.com/angelmondragon/nilgirisfresh-backend/pkg/errors"
	"github.com/angelmondragon/nilgirisfresh-backend/pkg/logger"
)

type cartEngine interface {
	Get(ctx context.Context, owner cartsvc.Owner) (cartsvc.View, error)
	AddItem(ctx context.Context, owner cartsvc.Owner, sel cartsvc.Selection, quantity int) (cartsvc.View, error)
	UpdateQuantity(ctx context.Context, owner cartsvc.Owner, productID uuid.UUID, variantID *uuid.UUID, quantity int) (cartsvc.View, error)
	RemoveItem(ctx context.Context, owner cartsvc.Owner, productID uuid.UUID, variantID *uuid.UUID) (cartsvc.View, error)
	Clear(ctx context.Context, owner cartsvc.Owner) error
	Bind(ctx context.Context, transitionID string, userID uuid.UUID, guestToken string) (cartsvc.BindResult, error)
}

type addCartItemRequest struct {
	ProductID uuid.UUID  `json:"product_id" validate:"required"`
	VariantID *uuid.UUID `json:"variant_id,omitempty"`
	Quantity  int        `json:"quantity" validate:"required,min=1,max=99"`
}

type updateCartItemRequest struct {
	Quantity *int `json:"quantity" validate:"required,min=0,max=99"`
}

// cartOwner picks the bound cart for signed-in shoppers and the guest cart
// named by X-Guest-Cart otherwise.
func cartOwner(ctx context.Context) cartsvc.Owner {
	guest := middleware.GuestTokenFromContext(ctx)
	if userID, ok := middleware.UserUUIDFromContext(ctx); ok {
		owner := cartsvc.User(userID)
		owner.GuestToken = guest
		owner.TransitionID = middleware.TransitionIDFromContext(ctx)
		return owner
	}
	return cartsvc.Guest(guest)
}

func cartLineTarget(r *http.Request) (uuid.UUID, *uuid.UUID, error) {
	productID, err := validators.ParseURLUUID(r, "productID")
	if err != nil {
		return uuid.Nil, nil, err
	}
	variantID, err := validators.ParseOptionalUUID(r.URL.Query().Get("variant_id"), "variant_id")
	if err != nil {
		return uuid.Nil, nil, err
	}
	return productID, variantID, nil
}

func CartGet(engine cartEngine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if engine == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		view, err := engine.Get(r.Context(), cartOwner(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// CartAddItem adds units of a product (or variant) to the cart.
func CartAddItem(engine cartEngine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if engine == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		var body addCartItemRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := engine.AddItem(r.Context(), cartOwner(r.Context()), cartsvc.Selection{
			ProductID: body.ProductID,
			VariantID: body.VariantID,
		}, body.Quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// CartUpdateItem sets a line quantity; zero removes the line.
func CartUpdateItem(engine cartEngine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if engine == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		productID, variantID, err := cartLineTarget(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body updateCartItemRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := engine.UpdateQuantity(r.Context(), cartOwner(r.Context()), productID, variantID, *body.Quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

func CartRemoveItem(engine cartEngine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if engine == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		productID, variantID, err := cartLineTarget(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := engine.RemoveItem(r.Context(), cartOwner(r.Context()), productID, variantID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

func CartClear(engine cartEngine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if engine == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		if err := engine.Clear(r.Context(), cartOwner(r.Context())); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, cartsvc.NewView(cartsvc.Cart{}))
	}
}

// CartBind merges the guest cart into the signed-in shopper's cart. It runs
// at most once per sign-in; repeats return the bound cart.
func CartBind(engine cartEngine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if engine == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		userID, ok := middleware.UserUUIDFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
			return
		}

		result, err := engine.Bind(r.Context(), middleware.TransitionIDFromContext(r.Context()), userID, middleware.GuestTokenFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/nilgirisfresh-backend/api/middleware"
	"github.com/angelmondragon/nilgirisfresh-backend/api/responses"
	"github.com/angelmondragon/nilgirisfresh-backend/api/validators"
	cartsvc "github.com/angelmondragon/nilgirisfresh-backend/internal/cart"
	"github.com/angelmondragon/nilgirisfresh-backend/internal/checkout"
	"github.com/angelmondragon/nilgirisfresh-backend/internal/media"
	pkgcheckout "github.com/angelmondragon/nilgirisfresh-backend/pkg/checkout"
	"github.com/angelmondragon/nilgirisfresh-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/nilgirisfresh-backend/pkg/errors"
	"github.com/angelmondragon/nilgirisfresh-backend/pkg/logger"
)

type checkoutService interface {
	BeginPayment(ctx context.Context, owner cartsvc.Owner, form pkgcheckout.ShippingForm, idempotencyKey string) (*checkout.BeginResult, error)
	CompletePayment(ctx context.Context, userID uuid.UUID, reference string) (*checkout.CompleteResult, error)
	CancelPayment(ctx context.Context, userID uuid.UUID, reference, reason string) (*checkout.CancelResult, error)
	AttachEvidence(ctx context.Context, userID uuid.UUID, reference, objectKey string) error
}

type mediaUploader interface {
	Upload(ctx context.Context, input media.UploadInput) (*media.UploadOutput, error)
	Discard(ctx context.Context, kind enums.MediaKind, key string) error
}

type cancelPaymentRequest struct {
	Reason string `json:"reason" validate:"max=200"`
}

type evidenceResponse struct {
	Reference string              `json:"reference"`
	Evidence  *media.UploadOutput `json:"evidence"`
}

func requireUser(ctx context.Context) (uuid.UUID, error) {
	userID, ok := middleware.UserUUIDFromContext(ctx)
	if !ok {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	return userID, nil
}

func paymentReference(r *http.Request) (string, error) {
	ref := strings.TrimSpace(chi.URLParam(r, "reference"))
	if ref == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "payment reference required")
	}
	return ref, nil
}

// CheckoutBegin validates the shipping form and opens a payment session for
// the shopper's bound cart. A guest cart named by X-Guest-Cart is merged first.
func CheckoutBegin(svc checkoutService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		if _, err := requireUser(r.Context()); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var form pkgcheckout.ShippingForm
		if err := validators.DecodeJSON(r, &form); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.BeginPayment(r.Context(), cartOwner(r.Context()), form, r.Header.Get("Idempotency-Key"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// CheckoutComplete waits for the payment outcome and records the order on success.
func CheckoutComplete(svc checkoutService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		userID, err := requireUser(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ref, err := paymentReference(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithPaymentReference(ctx, ref)
		}
		result, err := svc.CompletePayment(ctx, userID, ref)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func CheckoutCancel(svc checkoutService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		userID, err := requireUser(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ref, err := paymentReference(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body cancelPaymentRequest
		if r.ContentLength != 0 {
			if err := validators.DecodeJSONBody(r, &body); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		result, err := svc.CancelPayment(r.Context(), userID, ref, body.Reason)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// CheckoutEvidence stores a payment screenshot and attaches it to the
// shopper's payment attempt. The object is discarded when the attach fails.
func CheckoutEvidence(svc checkoutService, uploader mediaUploader, maxBytes int64, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil || uploader == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		userID, err := requireUser(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		upload, cleanup, err := readMultipartFile(w, r, maxBytes)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		defer cleanup()

		ref := strings.TrimSpace(r.FormValue("reference"))
		if ref == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "payment reference required").
				WithDetails(map[string]string{"reference": "required"}))
			return
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithPaymentReference(ctx, ref)
		}

		out, err := uploader.Upload(ctx, media.UploadInput{
			Kind:     enums.MediaKindPaymentEvidence,
			OwnerID:  userID,
			FileName: upload.name,
			Body:     upload.file,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if err := svc.AttachEvidence(ctx, userID, ref, out.Key); err != nil {
			discardEvidence(ctx, uploader, out.Key, logg)
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, evidenceResponse{Reference: ref, Evidence: out})
	}
}

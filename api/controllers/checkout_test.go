package controllers

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/angelmondragon/nilgirisfresh-backend/api/middleware"
	cartsvc "github.com/angelmondragon/nilgirisfresh-backend/internal/cart"
	"github.com/angelmondragon/nilgirisfresh-backend/internal/checkout"
	"github.com/angelmondragon/nilgirisfresh-backend/internal/media"
	"github.com/angelmondragon/nilgirisfresh-backend/internal/payments"
	pkgcheckout "github.com/angelmondragon/nilgirisfresh-backend/pkg/checkout"
	"github.com/angelmondragon/nilgirisfresh-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/nilgirisfresh-backend/pkg/errors"
)

type stubCheckoutService struct {
	owner      cartsvc.Owner
	form       pkgcheckout.ShippingForm
	idemKey    string
	reference  string
	reason     string
	evidence   string
	attachErr  error
	cancelErr  error
	beginCalls int
}

func (s *stubCheckoutService) BeginPayment(_ context.Context, owner cartsvc.Owner, form pkgcheckout.ShippingForm, idempotencyKey string) (*checkout.BeginResult, error) {
	s.beginCalls++
	s.owner, s.form, s.idemKey = owner, form, idempotencyKey
	return &checkout.BeginResult{Session: payments.Session{Reference: "pi_123", Currency: "inr"}, TotalItems: 2}, nil
}

func (s *stubCheckoutService) CompletePayment(_ context.Context, _ uuid.UUID, reference string) (*checkout.CompleteResult, error) {
	s.reference = reference
	return &checkout.CompleteResult{Reference: reference, Outcome: payments.OutcomeSucceeded}, nil
}

func (s *stubCheckoutService) CancelPayment(_ context.Context, _ uuid.UUID, reference, reason string) (*checkout.CancelResult, error) {
	s.reference, s.reason = reference, reason
	if s.cancelErr != nil {
		return nil, s.cancelErr
	}
	return &checkout.CancelResult{Reference: reference, Outcome: payments.OutcomeCancelled}, nil
}

func (s *stubCheckoutService) AttachEvidence(_ context.Context, _ uuid.UUID, reference, objectKey string) error {
	s.reference, s.evidence = reference, objectKey
	return s.attachErr
}

type stubUploader struct {
	input     media.UploadInput
	body      []byte
	discarded []string
}

func (s *stubUploader) Upload(_ context.Context, input media.UploadInput) (*media.UploadOutput, error) {
	s.input = input
	data, err := io.ReadAll(input.Body)
	if err != nil {
		return nil, err
	}
	s.body = data
	return &media.UploadOutput{Key: "payment_evidence/abc.png", ContentType: "image/png", SizeBytes: int64(len(data))}, nil
}

func (s *stubUploader) Discard(_ context.Context, kind enums.MediaKind, key string) error {
	if kind != enums.MediaKindPaymentEvidence {
		return pkgerrors.New(pkgerrors.CodeValidation, "unexpected kind")
	}
	s.discarded = append(s.discarded, key)
	return nil
}

func evidenceRequest(t *testing.T, reference string, payload []byte) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if reference != "" {
		if err := writer.WriteField("reference", reference); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	if payload != nil {
		part, err := writer.CreateFormFile("file", "screenshot.png")
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := part.Write(payload); err != nil {
			t.Fatalf("write payload: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout/evidence", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestCheckoutBeginRequiresUser(t *testing.T) {
	svc := &stubCheckoutService{}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout/payments", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	CheckoutBegin(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rec.Code)
	}
	if svc.beginCalls != 0 {
		t.Fatalf("service should not be called")
	}
}

func TestCheckoutBeginForwardsFormAndIdempotencyKey(t *testing.T) {
	svc := &stubCheckoutService{}
	body := `{"customer_name":"Asha Menon","phone":"9876543210","address_line1":"12 Hill Road","city":"Ooty","state":"Tamil Nadu","pincode":"643001"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout/payments", strings.NewReader(body))
	req.Header.Set("Idempotency-Key", "idem-1")
	req = asUser(req, uuid.New(), enums.UserRoleCustomer)
	rec := httptest.NewRecorder()
	CheckoutBegin(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d (%s)", rec.Code, rec.Body.String())
	}
	if svc.idemKey != "idem-1" || svc.form.Pincode != "643001" || svc.form.CustomerName != "Asha Menon" {
		t.Fatalf("unexpected forwarded input %+v key=%q", svc.form, svc.idemKey)
	}
	var result checkout.BeginResult
	decodeData(t, rec, &result)
	if result.Session.Reference != "pi_123" || result.TotalItems != 2 {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestCheckoutBeginCarriesGuestCartIntoOwner(t *testing.T) {
	svc := &stubCheckoutService{}
	shopper := uuid.New()
	body := `{"customer_name":"Asha Menon","phone":"9876543210","address_line1":"12 Hill Road","city":"Ooty","state":"Tamil Nadu","pincode":"643001"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout/payments", strings.NewReader(body))
	ctx := middleware.WithPrincipal(req.Context(), middleware.Principal{UserID: shopper, Role: enums.UserRoleCustomer, TransitionID: "jti-9"})
	req = asGuest(req.WithContext(ctx), "guest-9")
	rec := httptest.NewRecorder()
	CheckoutBegin(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d (%s)", rec.Code, rec.Body.String())
	}
	if !svc.owner.Bound() || *svc.owner.UserID != shopper || svc.owner.GuestToken != "guest-9" || svc.owner.TransitionID != "jti-9" {
		t.Fatalf("unexpected owner %+v", svc.owner)
	}
}

func TestCheckoutBeginRejectsUnknownFields(t *testing.T) {
	svc := &stubCheckoutService{}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout/payments", strings.NewReader(`{"coupon":"FREE"}`))
	req = asUser(req, uuid.New(), enums.UserRoleCustomer)
	rec := httptest.NewRecorder()
	CheckoutBegin(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
	if svc.beginCalls != 0 {
		t.Fatalf("service should not be called")
	}
}

func TestCheckoutCompleteUsesReferenceParam(t *testing.T) {
	svc := &stubCheckoutService{}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout/payments/pi_9/complete", nil)
	req = withURLParams(asUser(req, uuid.New(), enums.UserRoleCustomer), map[string]string{"reference": "pi_9"})
	rec := httptest.NewRecorder()
	CheckoutComplete(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d (%s)", rec.Code, rec.Body.String())
	}
	if svc.reference != "pi_9" {
		t.Fatalf("expected reference pi_9, got %q", svc.reference)
	}
}

func TestCheckoutCancelAcceptsEmptyBody(t *testing.T) {
	svc := &stubCheckoutService{}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout/payments/pi_9/cancel", nil)
	req = withURLParams(asUser(req, uuid.New(), enums.UserRoleCustomer), map[string]string{"reference": "pi_9"})
	rec := httptest.NewRecorder()
	CheckoutCancel(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d (%s)", rec.Code, rec.Body.String())
	}
	if svc.reason != "" {
		t.Fatalf("expected empty reason, got %q", svc.reason)
	}
}

func TestCheckoutCancelSurfacesStateConflict(t *testing.T) {
	svc := &stubCheckoutService{cancelErr: pkgerrors.New(pkgerrors.CodeStateConflict, "payment already succeeded")}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout/payments/pi_9/cancel", strings.NewReader(`{"reason":"changed my mind"}`))
	req = withURLParams(asUser(req, uuid.New(), enums.UserRoleCustomer), map[string]string{"reference": "pi_9"})
	rec := httptest.NewRecorder()
	CheckoutCancel(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d", rec.Code)
	}
	if svc.reason != "changed my mind" {
		t.Fatalf("expected reason to be forwarded, got %q", svc.reason)
	}
}

func TestCheckoutEvidenceStoresAndAttaches(t *testing.T) {
	svc := &stubCheckoutService{}
	uploader := &stubUploader{}
	userID := uuid.New()
	req := asUser(evidenceRequest(t, "pi_42", []byte("png-bytes")), userID, enums.UserRoleCustomer)
	rec := httptest.NewRecorder()
	CheckoutEvidence(svc, uploader, 1<<20, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d (%s)", rec.Code, rec.Body.String())
	}
	if uploader.input.Kind != enums.MediaKindPaymentEvidence || uploader.input.OwnerID != userID {
		t.Fatalf("unexpected upload input %+v", uploader.input)
	}
	if string(uploader.body) != "png-bytes" || uploader.input.FileName != "screenshot.png" {
		t.Fatalf("unexpected upload body %q name %q", uploader.body, uploader.input.FileName)
	}
	if svc.reference != "pi_42" || svc.evidence != "payment_evidence/abc.png" {
		t.Fatalf("unexpected attach call ref=%q key=%q", svc.reference, svc.evidence)
	}
	if len(uploader.discarded) != 0 {
		t.Fatalf("nothing should be discarded on success")
	}
}

func TestCheckoutEvidenceDiscardsObjectWhenAttachFails(t *testing.T) {
	svc := &stubCheckoutService{attachErr: pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")}
	uploader := &stubUploader{}
	req := asUser(evidenceRequest(t, "pi_missing", []byte("png-bytes")), uuid.New(), enums.UserRoleCustomer)
	rec := httptest.NewRecorder()
	CheckoutEvidence(svc, uploader, 1<<20, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", rec.Code)
	}
	if len(uploader.discarded) != 1 || uploader.discarded[0] != "payment_evidence/abc.png" {
		t.Fatalf("expected uploaded object to be discarded, got %v", uploader.discarded)
	}
}

func TestCheckoutEvidenceRequiresFileAndReference(t *testing.T) {
	cases := map[string]*http.Request{
		"missing file":      evidenceRequest(t, "pi_1", nil),
		"missing reference": evidenceRequest(t, "", []byte("png")),
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			uploader := &stubUploader{}
			rec := httptest.NewRecorder()
			CheckoutEvidence(&stubCheckoutService{}, uploader, 1<<20, nil).ServeHTTP(rec, asUser(req, uuid.New(), enums.UserRoleCustomer))
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400 got %d", rec.Code)
			}
			if uploader.body != nil {
				t.Fatalf("upload should not run")
			}
		})
	}
}

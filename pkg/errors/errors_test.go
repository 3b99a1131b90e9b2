package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestEveryCodeRendersWithItsStatus(t *testing.T) {
	statuses := map[Code]int{
		CodeValidation:          http.StatusBadRequest,
		CodeUnauthorized:        http.StatusUnauthorized,
		CodeForbidden:           http.StatusForbidden,
		CodeNotFound:            http.StatusNotFound,
		CodeConflict:            http.StatusConflict,
		CodeIdempotency:         http.StatusConflict,
		CodeStateConflict:       http.StatusUnprocessableEntity,
		CodeRateLimit:           http.StatusTooManyRequests,
		CodeInternal:            http.StatusInternalServerError,
		CodeDependency:          http.StatusServiceUnavailable,
		CodeConfig:              http.StatusServiceUnavailable,
		CodePaymentUnreconciled: http.StatusInternalServerError,
	}
	if len(statuses) != len(metadataByCode) {
		t.Fatalf("table covers %d codes, registry has %d", len(statuses), len(metadataByCode))
	}
	for code, status := range statuses {
		meta := MetadataFor(code)
		if meta.HTTPStatus != status {
			t.Fatalf("%s renders %d, want %d", code, meta.HTTPStatus, status)
		}
		if meta.PublicMessage == "" {
			t.Fatalf("%s has no public message", code)
		}
	}

	if got := MetadataFor("SOMETHING_UNKNOWN"); got != MetadataFor(CodeInternal) {
		t.Fatalf("unknown code should render as internal, got %+v", got)
	}
}

func TestOnlyTransientFailuresAreRetryable(t *testing.T) {
	for code, meta := range metadataByCode {
		want := code == CodeInternal || code == CodeDependency
		if meta.Retryable != want {
			t.Fatalf("%s retryable=%v", code, meta.Retryable)
		}
	}
	// A failed order write after capture must never invite a second charge.
	if MetadataFor(CodePaymentUnreconciled).Retryable {
		t.Fatal("unreconciled payments must not be retryable")
	}
}

func TestDetailsSurviveWrapping(t *testing.T) {
	base := New(CodeValidation, "missing sku").WithDetails(map[string]string{"field": "sku"})
	if base.Details() == nil || base.Message() != "missing sku" {
		t.Fatalf("unexpected error %+v", base)
	}

	cause := stdErrors.New("boom")
	wrapped := Wrap(CodeConflict, cause, "ctx")
	if !stdErrors.Is(wrapped, cause) || wrapped.Code() != CodeConflict {
		t.Fatalf("wrap lost cause or code: %v", wrapped)
	}
	if Wrap(CodeConflict, nil, "ctx").Unwrap() != nil {
		t.Fatal("wrapping nil should carry no cause")
	}

	var missing *Error
	if missing.Code() != CodeInternal || missing.Message() != "" || missing.Details() != nil {
		t.Fatal("nil *Error accessors should be safe")
	}
}

func TestAsReturnsTypedError(t *testing.T) {
	err := New(CodeForbidden, "no entry")
	if got := As(err); got == nil || got.Code() != CodeForbidden {
		t.Fatalf("As failed to return typed error")
	}
	if As(nil) != nil {
		t.Fatalf("As(nil) should return nil")
	}
}

func TestIsCodeFollowsWrappedChain(t *testing.T) {
	inner := New(CodePaymentUnreconciled, "order insert failed")
	outer := fmt.Errorf("complete payment: %w", inner)
	if !IsCode(outer, CodePaymentUnreconciled) {
		t.Fatalf("expected wrapped code to be detected")
	}
	if IsCode(outer, CodeDependency) {
		t.Fatalf("unexpected match for a different code")
	}
	if IsCode(stdErrors.New("plain"), CodeInternal) {
		t.Fatalf("plain errors carry no code")
	}
}

func TestErrorStringCarriesCause(t *testing.T) {
	plain := Newf(CodeNotFound, "product %s", "p-1")
	if plain.Error() != "NOT_FOUND: product p-1" {
		t.Fatalf("unexpected message %q", plain.Error())
	}
	wrapped := Wrap(CodeDependency, stdErrors.New("dial tcp: refused"), "load cart")
	if wrapped.Error() != "DEPENDENCY_ERROR: load cart: dial tcp: refused" {
		t.Fatalf("unexpected message %q", wrapped.Error())
	}
}

func TestDumpWalksChainAndPostgresFields(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "orders_payment_reference_key", TableName: "orders"}
	err := Wrap(CodePaymentUnreconciled, fmt.Errorf("insert order: %w", pgErr), "record order")

	dump := Dump(err)
	if dump.Code != CodePaymentUnreconciled {
		t.Fatalf("unexpected code %s", dump.Code)
	}
	if len(dump.Chain) != 3 {
		t.Fatalf("expected three links in chain, got %v", dump.Chain)
	}
	if dump.PGCode != "23505" || dump.PGConstraint != "orders_payment_reference_key" || dump.PGTable != "orders" {
		t.Fatalf("postgres fields not extracted: %+v", dump)
	}

	if got := Dump(stdErrors.New("plain")); got.PGCode != "" || got.Code != "" {
		t.Fatalf("plain error should carry no code, got %+v", got)
	}
}

package validators

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	pkgerrors "github.com/angelmondragon/nilgirisfresh-backend/pkg/errors"
	"github.com/angelmondragon/nilgirisfresh-backend/pkg/pagination"
)

type signupBody struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

func TestDecodeJSONBodyReportsFieldMessages(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"nope","password":"short"}`))
	var body signupBody
	err := DecodeJSONBody(req, &body)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	details, ok := typed.Details().(map[string]string)
	if !ok {
		t.Fatalf("expected field map, got %T", typed.Details())
	}
	if details["email"] != "must be a valid email" || details["password"] != "must be at least 8" {
		t.Fatalf("unexpected details %v", details)
	}
}

func TestDecodeJSONBodyRejectsUnknownFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"a@b.co","password":"long-enough","admin":true}`))
	var body signupBody
	if err := DecodeJSONBody(req, &body); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestParsePagination(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?limit=10&cursor=abc", nil)
	params, err := ParsePagination(req)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if params.Limit != 10 || params.Cursor != "abc" {
		t.Fatalf("unexpected params %+v", params)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	params, _ = ParsePagination(req)
	if params.Limit != pagination.DefaultLimit {
		t.Fatalf("expected default limit, got %d", params.Limit)
	}

	req = httptest.NewRequest(http.MethodGet, "/?limit=1000", nil)
	if _, err := ParsePagination(req); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected out of range error, got %v", err)
	}
}

func TestBearerToken(t *testing.T) {
	cases := map[string]string{
		"":                   "",
		"Bearer":             "",
		"Basic dXNlcjpwdw==": "",
		"Bearer a b":         "",
		"Bearer  abc.def ":   "abc.def",
		"bearer abc.def":     "abc.def",
	}
	for header, want := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		token, err := BearerToken(req)
		if want == "" {
			if !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
				t.Fatalf("%q: expected unauthorized, got %q %v", header, token, err)
			}
			continue
		}
		if err != nil || token != want {
			t.Fatalf("%q: got %q err %v", header, token, err)
		}
	}
}

func TestParseOptionalUUID(t *testing.T) {
	if id, err := ParseOptionalUUID(" ", "variant_id"); err != nil || id != nil {
		t.Fatalf("expected nil for blank, got %v %v", id, err)
	}
	if _, err := ParseOptionalUUID("x", "variant_id"); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDecodeJSONRejectsTrailingAndOversizedBodies(t *testing.T) {
	cases := map[string]string{
		"trailing": `{"email":"a@b.co","password":"long-enough"} {"again":1}`,
		"oversize": `{"email":"` + strings.Repeat("a", maxJSONBody) + `","password":"long-enough"}`,
		"empty":    ``,
	}
	for name, raw := range cases {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(raw))
		var body signupBody
		if err := DecodeJSON(req, &body); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
			t.Fatalf("%s: expected validation error, got %v", name, err)
		}
	}
}

func TestDecodeJSONNamesTheBadField(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":42,"password":"long-enough"}`))
	var body signupBody
	typed := pkgerrors.As(DecodeJSON(req, &body))
	if typed == nil {
		t.Fatal("expected typed error")
	}
	details, _ := typed.Details().(map[string]any)
	if details["error"] != "email must be string" {
		t.Fatalf("unexpected details %v", details)
	}
}

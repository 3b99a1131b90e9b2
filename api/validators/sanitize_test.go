package validators

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	pkgerrors "github.com/angelmondragon/nilgirisfresh-backend/pkg/errors"
)

func TestCleanLine(t *testing.T) {
	cases := map[string]string{
		"  Nilgiri   Estates \n Ltd ": "Nilgiri Estates Ltd",
		"tab\there":                   "tab here",
		"bell\x07less":                "bellless",
		"":                            "",
	}
	for in, want := range cases {
		if got := CleanLine(in); got != want {
			t.Fatalf("CleanLine(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCleanTextKeepsParagraphs(t *testing.T) {
	in := "  Need 50kg  monthly \r\n\r\n\r\n\r\nDelivery to   Coimbatore\x00  "
	want := "Need 50kg monthly\n\nDelivery to Coimbatore"
	if got := CleanText(in); got != want {
		t.Fatalf("CleanText = %q, want %q", got, want)
	}
}

type enquiryBody struct {
	Name string `json:"name" validate:"required,min=2"`
}

func (e *enquiryBody) Clean() { e.Name = CleanLine(e.Name) }

func TestDecodeJSONBodyCleansBeforeValidating(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"   \n  "}`))
	var body enquiryBody
	if err := DecodeJSONBody(req, &body); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("blank-after-clean name should fail validation, got %v", err)
	}

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"  Ravi   Kumar "}`))
	body = enquiryBody{}
	if err := DecodeJSONBody(req, &body); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if body.Name != "Ravi Kumar" {
		t.Fatalf("expected cleaned name, got %q", body.Name)
	}
}

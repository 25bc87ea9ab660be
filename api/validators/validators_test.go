package validators

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	pkgerrors "github.com/angelmondragon/pdv-backend/pkg/errors"
	"github.com/angelmondragon/pdv-backend/pkg/storeday"
)

type samplePayload struct {
	Name     string `json:"name" validate:"required"`
	Quantity int    `json:"quantity" validate:"gt=0"`
}

func TestDecodeJSONBody(t *testing.T) {
	req := httptest.NewRequest("POST", "/", strings.NewReader(`{"name":"a","quantity":2}`))
	var payload samplePayload
	if err := DecodeJSONBody(req, &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Name != "a" || payload.Quantity != 2 {
		t.Fatalf("unexpected payload %+v", payload)
	}
}

func TestDecodeJSONBodyRejectsUnknownFieldsAndInvalidValues(t *testing.T) {
	req := httptest.NewRequest("POST", "/", strings.NewReader(`{"name":"a","quantity":1,"price":3}`))
	var payload samplePayload
	if err := DecodeJSONBody(req, &payload); !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for unknown field, got %v", err)
	}

	req = httptest.NewRequest("POST", "/", strings.NewReader(`{"name":"","quantity":0}`))
	err := DecodeJSONBody(req, &payload)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	details, ok := typed.Details().(map[string]string)
	if !ok || details["name"] != "is required" || details["quantity"] != "must be greater than 0" {
		t.Fatalf("unexpected details %+v", typed.Details())
	}
}

func TestParseDateRange(t *testing.T) {
	cal := storeday.New(time.UTC)

	_, ok, err := ParseDateRange(httptest.NewRequest("GET", "/sales", nil), cal)
	if err != nil || ok {
		t.Fatalf("expected absent range, ok=%v err=%v", ok, err)
	}

	rng, ok, err := ParseDateRange(httptest.NewRequest("GET", "/sales?start_date=2024-03-01&end_date=2024-03-02", nil), cal)
	if err != nil || !ok {
		t.Fatalf("expected range, ok=%v err=%v", ok, err)
	}
	if from, to := rng.Keys(); from != "2024-03-01" || to != "2024-03-02" {
		t.Fatalf("unexpected range %s..%s", from, to)
	}

	_, _, err = ParseDateRange(httptest.NewRequest("GET", "/sales?start_date=03/01/2024", nil), cal)
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestParsePathUUIDAndSanitize(t *testing.T) {
	if _, err := ParsePathUUID("saleId", "nope"); !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := ParsePathUUID("saleId", "7d8f1c9e-2f6a-4a55-9a8e-2a7f0d3c1b22"); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if got := SanitizeString("  hello world  ", 5); got != "hello" {
		t.Fatalf("unexpected sanitize result %q", got)
	}
}

package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code      Code
		status    int
		publicMsg string
		retryable bool
		detailsOK bool
	}{
		{code: CodeValidation, status: http.StatusBadRequest, publicMsg: "validation failed", detailsOK: true},
		{code: CodeUnauthorized, status: http.StatusUnauthorized, publicMsg: "authentication required"},
		{code: CodeForbidden, status: http.StatusForbidden, publicMsg: "access denied"},
		{code: CodeNotFound, status: http.StatusNotFound, publicMsg: "resource not found"},
		{code: CodeConflict, status: http.StatusConflict, publicMsg: "conflict detected", detailsOK: true},
		{code: CodeIdempotency, status: http.StatusConflict, publicMsg: "idempotency key reused", detailsOK: true},
		{code: CodeInternal, status: http.StatusInternalServerError, publicMsg: "internal server error", retryable: true},
		{code: CodeDependency, status: http.StatusServiceUnavailable, publicMsg: "dependency unavailable", retryable: true, detailsOK: true},
	}

	for _, tt := range tests {
		meta := MetadataFor(tt.code)
		if meta.HTTPStatus != tt.status {
			t.Fatalf("code %s expected status %d got %d", tt.code, tt.status, meta.HTTPStatus)
		}
		if meta.PublicMessage != tt.publicMsg {
			t.Fatalf("code %s expected public message %q got %q", tt.code, tt.publicMsg, meta.PublicMessage)
		}
		if meta.Retryable != tt.retryable {
			t.Fatalf("code %s expected retryable %v got %v", tt.code, tt.retryable, meta.Retryable)
		}
		if meta.DetailsAllowed != tt.detailsOK {
			t.Fatalf("code %s expected details allowed %v got %v", tt.code, tt.detailsOK, meta.DetailsAllowed)
		}
	}
}

func TestMetadataForUnknownCodeDefaultsToInternal(t *testing.T) {
	meta := MetadataFor("SOMETHING_UNKNOWN")
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal status, got %d", meta.HTTPStatus)
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := stdErrors.New("boom")
	wrapped := Wrap(CodeConflict, cause, "sale number collision")
	if !stdErrors.Is(wrapped, cause) {
		t.Fatalf("Wrap did not preserve cause")
	}
	if wrapped.Code() != CodeConflict {
		t.Fatalf("unexpected code %s", wrapped.Code())
	}
	if wrapped.Error() != "CONFLICT: sale number collision" {
		t.Fatalf("unexpected error string %q", wrapped.Error())
	}
}

func TestHasCodeWalksChain(t *testing.T) {
	err := fmt.Errorf("create sale: %w", New(CodeNotFound, "product not found or inactive"))
	if !HasCode(err, CodeNotFound) {
		t.Fatalf("expected not found code in chain")
	}
	if HasCode(err, CodeConflict) {
		t.Fatalf("unexpected conflict code")
	}
	if CodeOf(stdErrors.New("plain")) != CodeInternal {
		t.Fatalf("untyped errors should map to internal")
	}
}

func TestWithDetails(t *testing.T) {
	err := New(CodeValidation, "invalid items").WithDetails(map[string]any{"field": "items"})
	details, ok := err.Details().(map[string]any)
	if !ok || details["field"] != "items" {
		t.Fatalf("details not preserved: %#v", err.Details())
	}
}

func TestDumpCapturesPostgresFields(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "ux_sales_store_number", TableName: "sales"}
	err := Wrap(CodeInternal, pgErr, "insert sale")

	d := Dump(err)
	if d.Code != CodeInternal {
		t.Fatalf("expected code in dump, got %s", d.Code)
	}
	if d.PGCode != "23505" || d.PGConstraint != "ux_sales_store_number" || d.PGTable != "sales" {
		t.Fatalf("unexpected pg fields %+v", d)
	}
	if len(d.Chain) != 2 {
		t.Fatalf("expected chain of two, got %v", d.Chain)
	}
}

func TestDumpKeepsMapDetails(t *testing.T) {
	productID := "7b1d0c8e-0000-4000-8000-000000000001"
	err := New(CodeConflict, "insufficient stock").WithDetails(map[string]any{"product_id": productID})

	d := Dump(fmt.Errorf("create sale: %w", err))
	if d.Code != CodeConflict {
		t.Fatalf("expected conflict code, got %s", d.Code)
	}
	if d.Details["product_id"] != productID {
		t.Fatalf("expected details in dump, got %v", d.Details)
	}
	if d.PGCode != "" {
		t.Fatalf("unexpected pg fields %+v", d)
	}
}

package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestMetadataForKnownCodes(t *testing.T) {
	cases := []struct {
		code   Code
		status int
	}{
		{CodeValidation, http.StatusBadRequest},
		{CodeNotFound, http.StatusNotFound},
		{CodeStockInsufficient, http.StatusConflict},
		{CodeShippingNotSet, http.StatusUnprocessableEntity},
		{CodeVoucherIneligible, http.StatusUnprocessableEntity},
		{CodeConflict, http.StatusConflict},
		{CodeInvalidTransition, http.StatusUnprocessableEntity},
		{CodeGatewayUnavailable, http.StatusServiceUnavailable},
		{CodeWebhookUnverified, http.StatusUnauthorized},
	}
	for _, tc := range cases {
		if got := MetadataFor(tc.code).HTTPStatus; got != tc.status {
			t.Fatalf("%s: expected status %d, got %d", tc.code, tc.status, got)
		}
	}
}

func TestMetadataForUnknownCodeDefaultsToInternal(t *testing.T) {
	meta := MetadataFor(Code("SOMETHING_ELSE"))
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal fallback, got %d", meta.HTTPStatus)
	}
}

func TestWrapPreservesChain(t *testing.T) {
	cause := errors.New("row missing")
	err := Wrap(CodeNotFound, cause, "load order")

	if !errors.Is(err, cause) {
		t.Fatal("expected wrapped cause in chain")
	}
	if As(err).Code() != CodeNotFound {
		t.Fatalf("unexpected code %s", As(err).Code())
	}
}

func TestAsThroughFmtWrapping(t *testing.T) {
	inner := New(CodeConflict, "lost stock race")
	outer := fmt.Errorf("checkout: %w", inner)

	typed := As(outer)
	if typed == nil || typed.Code() != CodeConflict {
		t.Fatalf("expected conflict code through chain, got %v", typed)
	}
	if !IsCode(outer, CodeConflict) {
		t.Fatal("IsCode should match through the chain")
	}
}

func TestDumpCollectsChainAndCode(t *testing.T) {
	err := Wrap(CodeDependency, errors.New("dial tcp"), "gateway call")
	d := Dump(err)

	if d.Code != CodeDependency {
		t.Fatalf("unexpected code %s", d.Code)
	}
	if len(d.Chain) < 2 {
		t.Fatalf("expected full chain, got %v", d.Chain)
	}
}

func TestWithDetailsRoundTrip(t *testing.T) {
	err := New(CodeStockInsufficient, "stock changed").
		WithDetails(map[string]any{"product_id": "p-1", "available": 2})

	details, ok := err.Details().(map[string]any)
	if !ok || details["available"] != 2 {
		t.Fatalf("unexpected details %v", err.Details())
	}
}

func TestDumpSurfacesPostgresFields(t *testing.T) {
	pgErr := &pgconn.PgError{
		Code:           "23502",
		Message:        "null value in column",
		TableName:      "orders",
		ColumnName:     "total_minor",
		ConstraintName: "orders_total_minor_check",
		Detail:         "Failing row contains (...)",
	}
	d := Dump(fmt.Errorf("create order: %w", pgErr))

	if d.PGCode != "23502" {
		t.Fatalf("unexpected pg code %s", d.PGCode)
	}
	if d.PGTable != "orders" || d.PGColumn != "total_minor" {
		t.Fatalf("unexpected pg table/column %s/%s", d.PGTable, d.PGColumn)
	}
	if d.PGConstraint != "orders_total_minor_check" {
		t.Fatalf("unexpected pg constraint %s", d.PGConstraint)
	}
}

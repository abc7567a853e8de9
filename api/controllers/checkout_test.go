package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	checkoutsvc "github.com/nandazuhri/lokapasar-backend/internal/checkout"
	"github.com/nandazuhri/lokapasar-backend/pkg/config"
	"github.com/nandazuhri/lokapasar-backend/pkg/db/models"
	"github.com/nandazuhri/lokapasar-backend/pkg/enums"
	pkgerrors "github.com/nandazuhri/lokapasar-backend/pkg/errors"
)

type stubCheckoutService struct {
	summarize func(ctx context.Context, userID uuid.UUID) (*checkoutsvc.Summary, error)
	create    func(ctx context.Context, userID uuid.UUID) ([]models.Order, error)
	preview   func(ctx context.Context, userID uuid.UUID, code string) (*checkoutsvc.VoucherPreview, error)
}

func (s *stubCheckoutService) PreviewVoucher(ctx context.Context, userID uuid.UUID, code string) (*checkoutsvc.VoucherPreview, error) {
	if s.preview != nil {
		return s.preview(ctx, userID, code)
	}
	return &checkoutsvc.VoucherPreview{}, nil
}

func (s *stubCheckoutService) Summarize(ctx context.Context, userID uuid.UUID) (*checkoutsvc.Summary, error) {
	if s.summarize != nil {
		return s.summarize(ctx, userID)
	}
	return &checkoutsvc.Summary{}, nil
}

func (s *stubCheckoutService) CreateOrders(ctx context.Context, userID uuid.UUID) ([]models.Order, error) {
	if s.create != nil {
		return s.create(ctx, userID)
	}
	return nil, nil
}

func TestCheckoutSummaryPassesThrough(t *testing.T) {
	svc := &stubCheckoutService{
		summarize: func(ctx context.Context, userID uuid.UUID) (*checkoutsvc.Summary, error) {
			return &checkoutsvc.Summary{SubtotalMinor: 130_500, TotalMinor: 141_450, CheckoutAble: true}, nil
		},
	}

	handler := CheckoutSummary(svc, nil)
	req := authedRequest(http.MethodGet, "/api/v1/checkout/summary", "")

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}

	var envelope struct {
		Data checkoutsvc.Summary `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.TotalMinor != 141_450 || !envelope.Data.CheckoutAble {
		t.Fatalf("unexpected summary %+v", envelope.Data)
	}
}

func TestCheckoutCreateReturnsOrders(t *testing.T) {
	svc := &stubCheckoutService{
		create: func(ctx context.Context, userID uuid.UUID) ([]models.Order, error) {
			return []models.Order{{
				ID:         uuid.New(),
				Code:       "ORD-20260901-K7M2PQ",
				Status:     enums.OrderStatusPendingUnpaid,
				TotalMinor: 99_000,
			}}, nil
		},
	}

	handler := CheckoutCreate(svc, config.CheckoutConfig{}, nil)
	req := authedRequest(http.MethodPost, "/api/v1/checkout", "")

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", resp.Code)
	}

	var envelope struct {
		Data checkoutResponse `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(envelope.Data.Orders) != 1 || envelope.Data.Orders[0].Code != "ORD-20260901-K7M2PQ" {
		t.Fatalf("unexpected orders %+v", envelope.Data.Orders)
	}
}

func TestCheckoutCreateRetriesLostRaceOnce(t *testing.T) {
	calls := 0
	svc := &stubCheckoutService{
		create: func(ctx context.Context, userID uuid.UUID) ([]models.Order, error) {
			calls++
			if calls == 1 {
				return nil, pkgerrors.New(pkgerrors.CodeConflict, "stock changed underneath the checkout")
			}
			return []models.Order{{ID: uuid.New(), Code: "ORD-20260901-ABCDEF"}}, nil
		},
	}

	cfg := config.CheckoutConfig{RetryOnConflict: true}
	handler := CheckoutCreate(svc, cfg, nil)
	req := authedRequest(http.MethodPost, "/api/v1/checkout", "")

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", resp.Code)
	}
	if calls != 2 {
		t.Fatalf("expected 2 attempts got %d", calls)
	}
}

func TestCheckoutCreateConflictWithoutRetry(t *testing.T) {
	calls := 0
	svc := &stubCheckoutService{
		create: func(ctx context.Context, userID uuid.UUID) ([]models.Order, error) {
			calls++
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "stock changed underneath the checkout")
		},
	}

	handler := CheckoutCreate(svc, config.CheckoutConfig{RetryOnConflict: false}, nil)
	req := authedRequest(http.MethodPost, "/api/v1/checkout", "")

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}
	if calls != 1 {
		t.Fatalf("expected a single attempt got %d", calls)
	}
}

func TestCheckoutCreateStockIssueNotRetried(t *testing.T) {
	calls := 0
	svc := &stubCheckoutService{
		create: func(ctx context.Context, userID uuid.UUID) ([]models.Order, error) {
			calls++
			return nil, pkgerrors.New(pkgerrors.CodeStockInsufficient, "not enough stock")
		},
	}

	handler := CheckoutCreate(svc, config.CheckoutConfig{RetryOnConflict: true}, nil)
	req := authedRequest(http.MethodPost, "/api/v1/checkout", "")

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}
	if calls != 1 {
		t.Fatalf("expected a single attempt got %d", calls)
	}
}

func TestCheckoutCreateUnauthorized(t *testing.T) {
	handler := CheckoutCreate(&stubCheckoutService{}, config.CheckoutConfig{}, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", nil)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestCheckoutVoucherPreview(t *testing.T) {
	var gotCode string
	svc := &stubCheckoutService{
		preview: func(ctx context.Context, userID uuid.UUID, code string) (*checkoutsvc.VoucherPreview, error) {
			gotCode = code
			return &checkoutsvc.VoucherPreview{DiscountMinor: 15_000, EligibleSubtotalMinor: 150_000}, nil
		},
	}
	handler := CheckoutPreviewVoucher(svc, nil)
	req := authedRequest(http.MethodPost, "/api/v1/cart/voucher/validate", `{"code":"HEMAT10"}`)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if gotCode != "HEMAT10" {
		t.Fatalf("expected code passthrough got %q", gotCode)
	}

	var envelope struct {
		Data checkoutsvc.VoucherPreview `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.DiscountMinor != 15_000 {
		t.Fatalf("expected discount 15000 got %d", envelope.Data.DiscountMinor)
	}
}

func TestCheckoutVoucherPreviewIneligible(t *testing.T) {
	svc := &stubCheckoutService{
		preview: func(ctx context.Context, userID uuid.UUID, code string) (*checkoutsvc.VoucherPreview, error) {
			return nil, pkgerrors.New(pkgerrors.CodeVoucherIneligible, "voucher has expired")
		},
	}
	handler := CheckoutPreviewVoucher(svc, nil)
	req := authedRequest(http.MethodPost, "/api/v1/cart/voucher/validate", `{"code":"LAMA"}`)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d", resp.Code)
	}
}

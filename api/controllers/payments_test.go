package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/nandazuhri/lokapasar-backend/internal/payments"
	pkgerrors "github.com/nandazuhri/lokapasar-backend/pkg/errors"
)

type stubPaymentsService struct {
	init   func(ctx context.Context, userID uuid.UUID, orderCode string) (*payments.InitResult, error)
	notify func(ctx context.Context, notif *payments.Notification) error
}

func (s *stubPaymentsService) Init(ctx context.Context, userID uuid.UUID, orderCode string) (*payments.InitResult, error) {
	if s.init != nil {
		return s.init(ctx, userID, orderCode)
	}
	return &payments.InitResult{OrderCode: orderCode}, nil
}

func (s *stubPaymentsService) HandleNotification(ctx context.Context, notif *payments.Notification) error {
	if s.notify != nil {
		return s.notify(ctx, notif)
	}
	return nil
}

func TestPaymentInitCreatesSession(t *testing.T) {
	svc := &stubPaymentsService{
		init: func(ctx context.Context, userID uuid.UUID, orderCode string) (*payments.InitResult, error) {
			if orderCode != "ORD-20260901-K7M2PQ" {
				t.Fatalf("unexpected order code %q", orderCode)
			}
			return &payments.InitResult{
				OrderCode:   orderCode,
				SnapToken:   "snap-token",
				AmountMinor: 33_000,
			}, nil
		},
	}

	r := chi.NewRouter()
	r.Post("/orders/{orderCode}/payment", PaymentInit(svc, nil))

	req := authedRequest(http.MethodPost, "/orders/ORD-20260901-K7M2PQ/payment", "")

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", resp.Code)
	}
}

func TestPaymentInitRejectsPaidOrder(t *testing.T) {
	svc := &stubPaymentsService{
		init: func(ctx context.Context, userID uuid.UUID, orderCode string) (*payments.InitResult, error) {
			return nil, pkgerrors.New(pkgerrors.CodeInvalidTransition, "order is not payable")
		},
	}

	r := chi.NewRouter()
	r.Post("/orders/{orderCode}/payment", PaymentInit(svc, nil))

	req := authedRequest(http.MethodPost, "/orders/ORD-20260901-K7M2PQ/payment", "")

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d", resp.Code)
	}
}

func TestPaymentNotificationToleratesExtraFields(t *testing.T) {
	var got *payments.Notification
	svc := &stubPaymentsService{
		notify: func(ctx context.Context, notif *payments.Notification) error {
			got = notif
			return nil
		},
	}

	body := `{
		"order_id": "ORD-20260901-K7M2PQ",
		"transaction_id": "txn-1",
		"transaction_status": "settlement",
		"status_code": "200",
		"gross_amount": "33000.00",
		"signature_key": "abc",
		"payment_type": "qris",
		"merchant_id": "M-1",
		"currency": "IDR",
		"settlement_time": "2026-09-01 10:00:00"
	}`

	handler := PaymentNotification(svc, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/midtrans", strings.NewReader(body))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if got == nil || got.TransactionStatus != "settlement" || got.OrderID != "ORD-20260901-K7M2PQ" {
		t.Fatalf("notification not passed through: %+v", got)
	}
}

func TestPaymentNotificationUnverifiedGets401(t *testing.T) {
	svc := &stubPaymentsService{
		notify: func(ctx context.Context, notif *payments.Notification) error {
			return pkgerrors.New(pkgerrors.CodeWebhookUnverified, "signature mismatch")
		},
	}

	handler := PaymentNotification(svc, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/midtrans", strings.NewReader(`{}`))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

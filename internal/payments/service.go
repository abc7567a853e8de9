package payments

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nandazuhri/lokapasar-backend/internal/orders"
	"github.com/nandazuhri/lokapasar-backend/pkg/db/models"
	"github.com/nandazuhri/lokapasar-backend/pkg/enums"
	pkgerrors "github.com/nandazuhri/lokapasar-backend/pkg/errors"
	"github.com/nandazuhri/lokapasar-backend/pkg/logger"
	"github.com/nandazuhri/lokapasar-backend/pkg/metrics"
	"github.com/nandazuhri/lokapasar-backend/pkg/midtrans"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Gateway is the payment provider surface the service depends on. The Snap
// client satisfies it; tests substitute a fake.
type Gateway interface {
	CreateTransaction(ctx context.Context, orderCode string, amount int64, items []midtrans.LineItem) (*midtrans.Session, error)
	VerifySignature(orderCode, statusCode, grossAmount, signature string) bool
}

// InitResult is what the buyer needs to open the gateway's payment page.
type InitResult struct {
	OrderCode   string `json:"order_code"`
	SnapToken   string `json:"snap_token"`
	RedirectURL string `json:"redirect_url"`
	AmountMinor int64  `json:"amount_minor"`
}

// Service initializes payments and applies gateway notifications.
type Service interface {
	// Init creates (or returns the existing) gateway session for an unpaid
	// order. The gateway call happens outside any database transaction.
	Init(ctx context.Context, userID uuid.UUID, orderCode string) (*InitResult, error)
	// HandleNotification applies one gateway webhook. A nil return means
	// the notification was accepted (applied, replayed, or deliberately
	// ignored) and the gateway must not retry.
	HandleNotification(ctx context.Context, notif *Notification) error
}

type service struct {
	payments  Repository
	orders    orders.Repository
	lifecycle orders.Service
	gateway   Gateway
	guard     ReplayGuard
	tx        txRunner
	logg      *logger.Logger
	pipeline  *metrics.PipelineMetrics
}

// NewService wires the payment pipeline.
func NewService(
	payments Repository,
	orderRepo orders.Repository,
	lifecycle orders.Service,
	gateway Gateway,
	guard ReplayGuard,
	tx txRunner,
	logg *logger.Logger,
	pipeline *metrics.PipelineMetrics,
) (Service, error) {
	if payments == nil || orderRepo == nil || lifecycle == nil {
		return nil, fmt.Errorf("payment service requires repositories and the order lifecycle")
	}
	if gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		payments:  payments,
		orders:    orderRepo,
		lifecycle: lifecycle,
		gateway:   gateway,
		guard:     guard,
		tx:        tx,
		logg:      logg,
		pipeline:  pipeline,
	}, nil
}

func (s *service) Init(ctx context.Context, userID uuid.UUID, orderCode string) (*InitResult, error) {
	order, err := s.orders.FindForUser(ctx, userID, orderCode)
	if err != nil {
		return nil, err
	}
	if order.Status != enums.OrderStatusPendingUnpaid {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidTransition, "order is not awaiting payment").
			WithDetails(map[string]any{"status": order.Status.String()})
	}

	// Re-initializing an unpaid order returns the session already minted;
	// the gateway keys sessions by order code, so a second create for the
	// same code would fail anyway.
	existing, err := s.payments.FindByOrderID(ctx, order.ID)
	if err != nil && !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		return nil, err
	}
	if existing != nil && existing.Status == enums.PaymentStatusPending && existing.SnapToken != "" {
		return &InitResult{
			OrderCode:   order.Code,
			SnapToken:   existing.SnapToken,
			RedirectURL: existing.RedirectURL,
			AmountMinor: existing.AmountMinor,
		}, nil
	}

	items := make([]midtrans.LineItem, 0, len(order.Items)+2)
	for _, item := range order.Items {
		items = append(items, midtrans.LineItem{
			ID:    item.ProductID.String(),
			Name:  item.Name,
			Price: item.UnitPriceMinor,
			Qty:   int32(item.Quantity),
		})
	}
	if order.ShippingMinor > 0 {
		items = append(items, midtrans.LineItem{
			ID:    "shipping",
			Name:  "Shipping fee",
			Price: order.ShippingMinor,
			Qty:   1,
		})
	}
	if order.DiscountMinor > 0 {
		items = append(items, midtrans.LineItem{
			ID:    "discount",
			Name:  "Voucher discount",
			Price: -order.DiscountMinor,
			Qty:   1,
		})
	}

	// Gateway round-trip stays outside any transaction.
	session, err := s.gateway.CreateTransaction(ctx, order.Code, order.TotalMinor, items)
	if err != nil {
		return nil, err
	}

	payment := existing
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.payments.WithTx(tx)
		if payment == nil {
			payment = &models.Payment{
				OrderID:     order.ID,
				AmountMinor: order.TotalMinor,
				Status:      enums.PaymentStatusPending,
			}
			payment.SnapToken = session.Token
			payment.RedirectURL = session.RedirectURL
			return repo.Create(ctx, payment)
		}
		payment.SnapToken = session.Token
		payment.RedirectURL = session.RedirectURL
		payment.Status = enums.PaymentStatusPending
		payment.AmountMinor = order.TotalMinor
		return repo.Update(ctx, payment)
	})
	if err != nil {
		return nil, err
	}

	return &InitResult{
		OrderCode:   order.Code,
		SnapToken:   payment.SnapToken,
		RedirectURL: payment.RedirectURL,
		AmountMinor: payment.AmountMinor,
	}, nil
}

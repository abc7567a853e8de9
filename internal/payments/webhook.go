package payments

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/nandazuhri/lokapasar-backend/internal/orders"
	"github.com/nandazuhri/lokapasar-backend/pkg/enums"
	pkgerrors "github.com/nandazuhri/lokapasar-backend/pkg/errors"
)

// replayTTL bounds how long the fast-path duplicate guard remembers a
// notification. The database idempotency check is the real gate; the guard
// only short-circuits retry bursts.
const replayTTL = 24 * time.Hour

// ReplayGuard is the optional redis-backed duplicate filter. Once reports
// false when the same notification was already seen. Release forgets a
// marked notification so the gateway's retry is not dropped after a
// rolled-back apply.
type ReplayGuard interface {
	Once(ctx context.Context, parts ...string) (bool, error)
	Release(ctx context.Context, parts ...string) error
}

// Notification is the gateway webhook payload, field names per the
// notification JSON.
type Notification struct {
	OrderID           string `json:"order_id"`
	TransactionID     string `json:"transaction_id"`
	TransactionStatus string `json:"transaction_status"`
	FraudStatus       string `json:"fraud_status"`
	StatusCode        string `json:"status_code"`
	GrossAmount       string `json:"gross_amount"`
	SignatureKey      string `json:"signature_key"`
	PaymentType       string `json:"payment_type"`
}

// paymentStatusFor maps the gateway's transaction status to ours. The bool
// is false for statuses we do not track.
func paymentStatusFor(notif *Notification) (enums.PaymentStatus, bool) {
	switch notif.TransactionStatus {
	case "capture":
		if notif.FraudStatus == "challenge" {
			return enums.PaymentStatusPending, true
		}
		return enums.PaymentStatusSettled, true
	case "settlement":
		return enums.PaymentStatusSettled, true
	case "pending":
		return enums.PaymentStatusPending, true
	case "deny":
		return enums.PaymentStatusDenied, true
	case "cancel":
		return enums.PaymentStatusCancelled, true
	case "expire":
		return enums.PaymentStatusExpired, true
	case "refund", "partial_refund":
		return enums.PaymentStatusRefunded, true
	default:
		return "", false
	}
}

// statusRank orders payment statuses along the forward axis; notifications
// that would move a payment backwards are replays and get dropped.
func statusRank(status enums.PaymentStatus) int {
	switch status {
	case enums.PaymentStatusPending:
		return 1
	case enums.PaymentStatusSettled, enums.PaymentStatusDenied,
		enums.PaymentStatusExpired, enums.PaymentStatusCancelled:
		return 2
	case enums.PaymentStatusRefunded:
		return 3
	default:
		return 0
	}
}

// orderStatusFor derives the order transition a payment status implies.
// Denied payments leave the order unpaid so the buyer can retry.
func orderStatusFor(status enums.PaymentStatus) (enums.OrderStatus, bool) {
	switch status {
	case enums.PaymentStatusSettled:
		return enums.OrderStatusPaid, true
	case enums.PaymentStatusExpired, enums.PaymentStatusCancelled:
		return enums.OrderStatusCancelled, true
	case enums.PaymentStatusRefunded:
		return enums.OrderStatusRefunded, true
	default:
		return "", false
	}
}

func (s *service) HandleNotification(ctx context.Context, notif *Notification) error {
	if notif == nil || notif.OrderID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "empty notification")
	}
	outcome := "applied"
	defer func() {
		if s.pipeline != nil {
			s.pipeline.IncWebhook(outcome)
		}
	}()
	ctx = s.logg.WithFields(ctx, map[string]any{
		"order_code":     notif.OrderID,
		"transaction_id": notif.TransactionID,
		"gateway_status": notif.TransactionStatus,
	})

	if !s.gateway.VerifySignature(notif.OrderID, notif.StatusCode, notif.GrossAmount, notif.SignatureKey) {
		s.logg.Warn(ctx, "webhook signature rejected")
		outcome = "unverified"
		return pkgerrors.New(pkgerrors.CodeWebhookUnverified, "notification signature mismatch")
	}

	// Unknown orders are acknowledged, not errored: the gateway would
	// retry forever and the payload is already signed by them.
	order, err := s.orders.FindByCode(ctx, notif.OrderID)
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			s.logg.Warn(ctx, "webhook for unknown order ignored")
			outcome = "unknown_order"
			return nil
		}
		outcome = "error"
		return err
	}

	newStatus, known := paymentStatusFor(notif)
	if !known {
		s.logg.Warn(ctx, "webhook with unhandled transaction status ignored")
		outcome = "ignored"
		return nil
	}

	// Fast-path duplicate filter. The same transaction id arrives once per
	// status, so the pair identifies a notification. Guard outages degrade
	// to the database check below.
	guardMarked := false
	if s.guard != nil {
		fresh, err := s.guard.Once(ctx, notif.TransactionID, notif.TransactionStatus)
		if err != nil {
			s.logg.Warn(ctx, "webhook replay guard unavailable, relying on database idempotency")
		} else if !fresh {
			s.logg.Info(ctx, "duplicate webhook dropped by replay guard")
			outcome = "duplicate"
			return nil
		} else {
			guardMarked = true
		}
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.payments.WithTx(tx)

		payment, err := repo.FindByOrderID(ctx, order.ID)
		if err != nil {
			if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
				// Settlement can only follow an init we performed; a
				// payment notification without a row is an anomaly worth
				// recording, not a retry loop.
				s.logg.Warn(ctx, "webhook for order without payment row ignored")
				return nil
			}
			return err
		}

		if statusRank(newStatus) <= statusRank(payment.Status) {
			s.logg.Info(ctx, "webhook replay ignored, payment already at or past this status")
			outcome = "duplicate"
			return nil
		}

		payment.Status = newStatus
		payment.RawGatewayStatus = notif.TransactionStatus
		if notif.TransactionID != "" {
			txnID := notif.TransactionID
			payment.LastNotificationID = &txnID
		}
		if err := repo.Update(ctx, payment); err != nil {
			return err
		}

		// The order's denormalized payment_status must track the payment
		// row, or the order detail keeps reporting "pending" after
		// settlement.
		if err := s.orders.WithTx(tx).UpdatePaymentStatus(ctx, order.ID, newStatus); err != nil {
			return err
		}

		target, moves := orderStatusFor(newStatus)
		if !moves {
			return nil
		}
		if !orders.CanTransition(order.Status, target) {
			// e.g. settlement arriving after the expiry sweep cancelled
			// the order. The money moved; flag it loudly and ack.
			s.logg.Error(ctx, "webhook implies an illegal order transition, manual review needed",
				pkgerrors.New(pkgerrors.CodeInvalidTransition, "order cannot follow payment status"))
			outcome = "anomaly"
			return nil
		}

		note := fmt.Sprintf("gateway notification %s", notif.TransactionStatus)
		_, err = s.lifecycle.TransitionTx(ctx, tx, order.ID, orders.TransitionInput{
			To:    target,
			Actor: orders.ActorSystem,
			Note:  &note,
		})
		return err
	})
	if err != nil {
		outcome = "error"
		// The gateway retries failed deliveries; the guard must not eat
		// that retry after a rollback.
		if guardMarked {
			if relErr := s.guard.Release(ctx, notif.TransactionID, notif.TransactionStatus); relErr != nil {
				s.logg.Warn(s.logg.WithField(ctx, "error", relErr.Error()),
					"failed to release replay guard after rollback")
			}
		}
	}
	return err
}

package orders

import (
	"github.com/nandazuhri/lokapasar-backend/pkg/enums"
	pkgerrors "github.com/nandazuhri/lokapasar-backend/pkg/errors"
)

// transitions is the full adjacency of the order lifecycle. Anything not
// listed here is rejected, which is what makes webhook replay and
// out-of-order notifications safe to apply blindly.
var transitions = map[enums.OrderStatus][]enums.OrderStatus{
	enums.OrderStatusPendingUnpaid: {enums.OrderStatusPaid, enums.OrderStatusCancelled},
	enums.OrderStatusPaid:          {enums.OrderStatusProcessing, enums.OrderStatusCancelled, enums.OrderStatusRefunded},
	enums.OrderStatusProcessing:    {enums.OrderStatusShipped},
	enums.OrderStatusShipped:       {enums.OrderStatusDelivered, enums.OrderStatusRefunded},
	enums.OrderStatusDelivered:     {enums.OrderStatusRefunded},
	enums.OrderStatusCancelled:     {},
	enums.OrderStatusRefunded:      {},
}

// CanTransition reports whether from→to is a legal move.
func CanTransition(from, to enums.OrderStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// CheckTransition returns a typed error naming both endpoints when from→to
// is not legal. A no-op move (from == to) is reported distinctly so callers
// can treat it as an idempotent replay rather than a fault.
func CheckTransition(from, to enums.OrderStatus) error {
	if !to.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown order status").
			WithDetails(map[string]any{"status": to.String()})
	}
	if CanTransition(from, to) {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeInvalidTransition, "order status transition not allowed").
		WithDetails(map[string]any{
			"from": from.String(),
			"to":   to.String(),
		})
}

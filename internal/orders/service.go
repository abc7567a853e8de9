package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/nandazuhri/lokapasar-backend/internal/products"
	"github.com/nandazuhri/lokapasar-backend/pkg/db/models"
	"github.com/nandazuhri/lokapasar-backend/pkg/enums"
	pkgerrors "github.com/nandazuhri/lokapasar-backend/pkg/errors"
	"github.com/nandazuhri/lokapasar-backend/pkg/logger"
)

// ActorSystem marks transitions initiated by the platform itself: payment
// webhooks and the expiry sweep.
const ActorSystem = "system"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// TransitionInput describes one requested status change.
type TransitionInput struct {
	To    enums.OrderStatus
	Actor string
	Note  *string
}

// Service owns the order lifecycle after checkout: reads for the buyer,
// status transitions, and the unpaid-order expiry sweep.
type Service interface {
	ListMine(ctx context.Context, userID uuid.UUID, status *enums.OrderStatus) ([]models.Order, error)
	GetMine(ctx context.Context, userID uuid.UUID, code string) (*models.Order, error)
	// Transition applies one status change atomically: the guarded status
	// update, the audit log row, and the stock restore when the move is a
	// cancellation out of an unfulfilled state.
	Transition(ctx context.Context, orderID uuid.UUID, input TransitionInput) (*models.Order, error)
	// TransitionTx is Transition running inside a caller-owned transaction,
	// for flows that must commit the status change together with their own
	// writes.
	TransitionTx(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, input TransitionInput) (*models.Order, error)
	// CancelExpired cancels every pending_unpaid order older than maxAge
	// and returns how many it cancelled. Per-order failures are collected,
	// not fatal, so one poisoned row cannot wedge the sweep.
	CancelExpired(ctx context.Context, maxAge time.Duration) (int, error)
}

type service struct {
	repo     Repository
	tx       txRunner
	products products.Repository
	logg     *logger.Logger
}

// NewService builds the order service.
func NewService(repo Repository, tx txRunner, productRepo products.Repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("order repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if productRepo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, tx: tx, products: productRepo, logg: logg}, nil
}

func (s *service) ListMine(ctx context.Context, userID uuid.UUID, status *enums.OrderStatus) ([]models.Order, error) {
	return s.repo.ListByUser(ctx, userID, status)
}

func (s *service) GetMine(ctx context.Context, userID uuid.UUID, code string) (*models.Order, error) {
	return s.repo.FindForUser(ctx, userID, code)
}

func (s *service) Transition(ctx context.Context, orderID uuid.UUID, input TransitionInput) (*models.Order, error) {
	var updated *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		updated, err = s.TransitionTx(ctx, tx, orderID, input)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *service) TransitionTx(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, input TransitionInput) (*models.Order, error) {
	if input.Actor == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transition actor required")
	}
	repo := s.repo.WithTx(tx)

	order, err := repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := CheckTransition(order.Status, input.To); err != nil {
		return nil, err
	}
	if err := repo.UpdateStatus(ctx, order.ID, order.Status, input.To, statusStamps(input.To)); err != nil {
		return nil, err
	}

	old := order.Status
	if err := repo.CreateStatusLog(ctx, &models.OrderStatusLog{
		OrderID:   order.ID,
		OldStatus: &old,
		NewStatus: input.To,
		Actor:     input.Actor,
		Note:      input.Note,
	}); err != nil {
		return nil, err
	}

	if input.To == enums.OrderStatusCancelled && restoresStock(order.Status) {
		productRepo := s.products.WithTx(tx)
		for _, item := range order.Items {
			if err := productRepo.RestoreStock(ctx, item.ProductID, item.Quantity); err != nil {
				return nil, err
			}
		}
	}

	return repo.FindByID(ctx, order.ID)
}

// restoresStock reports whether cancelling from the given status must give
// the reserved units back. Once an order ships, stock has left the building.
func restoresStock(from enums.OrderStatus) bool {
	return from == enums.OrderStatusPendingUnpaid || from == enums.OrderStatusPaid
}

// statusStamps returns the timestamp columns set alongside a transition.
func statusStamps(to enums.OrderStatus) map[string]any {
	now := time.Now()
	switch to {
	case enums.OrderStatusPaid:
		return map[string]any{"paid_at": now}
	case enums.OrderStatusShipped:
		return map[string]any{"shipped_at": now}
	case enums.OrderStatusDelivered:
		return map[string]any{"delivered_at": now}
	default:
		return nil
	}
}

func (s *service) CancelExpired(ctx context.Context, maxAge time.Duration) (int, error) {
	cutoff := time.Now().Add(-maxAge)
	expired, err := s.repo.ListExpiredUnpaid(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	note := "payment window expired"
	var cancelled int
	var errs error
	for _, order := range expired {
		_, err := s.Transition(ctx, order.ID, TransitionInput{
			To:    enums.OrderStatusCancelled,
			Actor: ActorSystem,
			Note:  &note,
		})
		if err != nil {
			// A conflict here means a webhook beat the sweep to the
			// order; that is the race resolving correctly.
			if pkgerrors.IsCode(err, pkgerrors.CodeConflict) || pkgerrors.IsCode(err, pkgerrors.CodeInvalidTransition) {
				s.logg.Info(s.logg.WithOrderCode(ctx, order.Code), "expiry sweep lost the race, skipping")
				continue
			}
			errs = multierr.Append(errs, fmt.Errorf("cancel order %s: %w", order.Code, err))
			continue
		}
		cancelled++
	}
	return cancelled, errs
}

package service

import (
	"context"
	"math"

	"go.uber.org/zap"

	"github.com/sebastianpd1/next-ecommerce-backend/internal/domain"
	"github.com/sebastianpd1/next-ecommerce-backend/internal/mercadopago"
	"github.com/sebastianpd1/next-ecommerce-backend/internal/repository"
	"github.com/sebastianpd1/next-ecommerce-backend/pkg/errors"
)

// PaymentFetcher resolves a payment id into the processor's authoritative
// record. Only values obtained through it may drive order transitions.
type PaymentFetcher interface {
	GetPayment(ctx context.Context, paymentID string) (*mercadopago.Payment, error)
}

// StockDeducter applies best-effort stock deductions for paid order lines
type StockDeducter interface {
	Deduct(ctx context.Context, items []domain.OrderItem) int
}

// ReconcileOutcome reports what a webhook delivery did, for the response
// flags and logs. Every outcome is acknowledged with HTTP 200.
type ReconcileOutcome struct {
	Ignored     bool
	NoRef       bool
	NoOrder     bool
	AlreadyPaid bool
	Mismatch    bool
	OrderID     string
	Status      domain.OrderStatus
}

type reconcileService struct {
	repos    *repository.Repositories
	payments PaymentFetcher
	stock    StockDeducter
	logger   *zap.Logger
}

// NewReconcileService creates a new reconciliation service
func NewReconcileService(repos *repository.Repositories, payments PaymentFetcher, stock StockDeducter, logger *zap.Logger) *reconcileService {
	return &reconcileService{
		repos:    repos,
		payments: payments,
		stock:    stock,
		logger:   logger,
	}
}

// ProcessEvent applies one webhook delivery to the order it references.
//
// The inbound event is untrusted: only its payment id is used, and the
// status/amount are fetched from the processor. Errors are returned only for
// failures that happen before any order mutation, so the provider retries
// them; once a transition is durable the delivery always succeeds, even if
// the stock side effect fails.
func (s *reconcileService) ProcessEvent(ctx context.Context, event *mercadopago.UnverifiedEvent) (*ReconcileOutcome, error) {
	if event == nil || !event.IsPayment() {
		return &ReconcileOutcome{Ignored: true}, nil
	}

	payment, err := s.payments.GetPayment(ctx, event.PaymentID())
	if err != nil {
		s.logger.Error("Payment lookup failed",
			zap.String("payment_id", event.PaymentID()),
			zap.Error(err),
		)
		return nil, err
	}

	if payment.ExternalReference == "" {
		s.logger.Warn("Payment has no external reference",
			zap.String("payment_id", payment.ID.String()),
			zap.String("status", payment.Status),
		)
		return &ReconcileOutcome{NoRef: true}, nil
	}

	order, err := s.repos.Order.GetByExternalRef(ctx, payment.ExternalReference)
	if err != nil {
		if _, ok := err.(*errors.ErrNotFound); ok {
			s.logger.Warn("Payment references unknown order",
				zap.String("payment_id", payment.ID.String()),
				zap.String("external_reference", payment.ExternalReference),
			)
			return &ReconcileOutcome{NoOrder: true}, nil
		}
		return nil, err
	}

	outcome := &ReconcileOutcome{OrderID: order.ID.String()}

	if order.Status == domain.OrderStatusPaid {
		outcome.AlreadyPaid = true
		outcome.Status = order.Status
		return outcome, nil
	}

	snapshot := &domain.PaymentInfo{
		Provider:  mercadopago.Provider,
		PaymentID: payment.ID.String(),
		Status:    payment.Status,
		Raw:       payment.Raw,
	}

	switch payment.Status {
	case mercadopago.StatusApproved:
		if math.Round(order.Totals.Total) != math.Round(payment.TransactionAmount) {
			// Amount tampering or a stale preference: fail closed, never
			// accept as paid.
			s.logger.Error("Payment amount mismatch",
				zap.String("order_id", order.ID.String()),
				zap.Float64("order_total", order.Totals.Total),
				zap.Float64("paid_amount", payment.TransactionAmount),
			)
			if err := s.transition(ctx, order, domain.OrderStatusFailed, snapshot, outcome); err != nil {
				return nil, err
			}
			outcome.Mismatch = true
			return outcome, nil
		}

		applied, err := s.repos.Order.TransitionStatus(ctx, order.ID, domain.OrderStatusPaid, snapshot)
		if err != nil {
			return nil, err
		}
		if !applied {
			// A concurrent delivery won the conditional update.
			outcome.AlreadyPaid = true
			outcome.Status = domain.OrderStatusPaid
			return outcome, nil
		}
		outcome.Status = domain.OrderStatusPaid

		s.logger.Info("Order paid",
			zap.String("order_id", order.ID.String()),
			zap.String("payment_id", snapshot.PaymentID),
			zap.Float64("amount", payment.TransactionAmount),
		)

		// Best-effort: a deduction failure never fails the webhook, the
		// payment is already authoritative.
		s.stock.Deduct(ctx, order.Items)
		return outcome, nil

	case mercadopago.StatusRejected:
		if err := s.transition(ctx, order, domain.OrderStatusFailed, snapshot, outcome); err != nil {
			return nil, err
		}
		return outcome, nil

	default:
		// pending, in_process and anything new: record the latest
		// provider-side status without touching order contents.
		if err := s.transition(ctx, order, domain.OrderStatusPending, snapshot, outcome); err != nil {
			return nil, err
		}
		return outcome, nil
	}
}

func (s *reconcileService) transition(ctx context.Context, order *domain.Order, to domain.OrderStatus, snapshot *domain.PaymentInfo, outcome *ReconcileOutcome) error {
	applied, err := s.repos.Order.TransitionStatus(ctx, order.ID, to, snapshot)
	if err != nil {
		return err
	}
	if !applied {
		outcome.AlreadyPaid = true
		outcome.Status = domain.OrderStatusPaid
		return nil
	}
	outcome.Status = to

	s.logger.Info("Order status updated",
		zap.String("order_id", order.ID.String()),
		zap.String("from", string(order.Status)),
		zap.String("to", string(to)),
		zap.String("payment_status", snapshot.Status),
	)
	return nil
}

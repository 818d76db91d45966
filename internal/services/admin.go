package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/fblasco1/portfolio-fotografo/internal/logging"
	"github.com/fblasco1/portfolio-fotografo/internal/models"
	"github.com/fblasco1/portfolio-fotografo/internal/payment"
)

var (
	ErrOrderHasNoPayment  = errors.New("order has no associated payment id")
	ErrOrderNotRefundable = errors.New("order is not in a refundable state")
)

// AdminService backs the order query and refund endpoints. Unlike
// creation-time persistence, everything here fails loudly: a refund that
// silently failed is an unresolved financial discrepancy.
type AdminService struct {
	orderStore orderStore
	factory    *payment.Factory
	logger     *slog.Logger
}

func NewAdminService(store orderStore, factory *payment.Factory, logger *slog.Logger) *AdminService {
	return &AdminService{
		orderStore: store,
		factory:    factory,
		logger:     logger,
	}
}

func (s *AdminService) loggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx, s.logger)
}

func (s *AdminService) ListOrders(ctx context.Context, status string, begin, end time.Time) ([]*models.Order, error) {
	orderStatus := models.OrderStatus(status)
	if status != "" && !isKnownStatus(orderStatus) {
		return nil, fmt.Errorf("unknown order status %q", status)
	}
	return s.orderStore.List(ctx, orderStatus, begin, end, 0)
}

// GetOrder resolves either identifier kind: a locally generated UUID, or
// the provider's order id when the supplied value is not a UUID.
func (s *AdminService) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	if orderID, err := uuid.Parse(id); err == nil {
		return s.orderStore.GetByID(ctx, orderID)
	}
	return s.orderStore.GetByProviderOrderID(ctx, id)
}

// GetPayment fetches the provider's record. The owning order (when one
// exists) tells us which provider to ask; otherwise the regional default
// is tried.
func (s *AdminService) GetPayment(ctx context.Context, paymentID string) (*payment.Payment, error) {
	providerName := models.ProviderMercadoPago
	if order, err := s.orderStore.GetByPaymentID(ctx, paymentID); err == nil && order.Provider != "" {
		providerName = models.PaymentProvider(order.Provider)
	}

	provider, err := s.factory.ByName(providerName)
	if err != nil {
		return nil, err
	}
	return provider.GetPayment(ctx, paymentID)
}

// RefundOrder attempts an order-level refund first and falls back to a
// payment-level refund when that fails. Single attempt each, no retry
// loop; the caller sees exactly what happened.
func (s *AdminService) RefundOrder(ctx context.Context, id string) (*models.Order, error) {
	logger := s.loggerFromContext(ctx)

	order, err := s.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	// Only approved orders are refundable. Checking before the provider
	// call keeps the money and the local row from diverging.
	if order.Status != models.StatusApproved {
		return nil, fmt.Errorf("order %s is %s: %w", order.ID, order.Status, ErrOrderNotRefundable)
	}

	provider, err := s.factory.ByName(models.PaymentProvider(order.Provider))
	if err != nil {
		return nil, err
	}

	refundErr := errors.New("no provider order id on record")
	if order.ProviderOrderID != "" {
		refundErr = provider.RefundOrder(ctx, order.ProviderOrderID)
	}
	if refundErr != nil {
		logger.Warn("order-level refund failed, falling back to payment-level refund",
			"error", refundErr, "order_id", order.ID, "payment_id", order.PaymentID)

		if order.PaymentID == "" {
			return nil, fmt.Errorf("order-level refund failed (%v): %w", refundErr, ErrOrderHasNoPayment)
		}
		if err := provider.RefundPayment(ctx, order.PaymentID); err != nil {
			return nil, fmt.Errorf("refund failed at both order and payment level: %w", err)
		}
	}

	if err := s.orderStore.MarkRefunded(ctx, order.ID, "refunded_by_admin"); err != nil {
		// The money moved; surface the bookkeeping failure loudly.
		return nil, fmt.Errorf("refund succeeded but order state update failed: %w", err)
	}

	order.Status = models.StatusRefunded
	order.StatusDetail = "refunded_by_admin"
	return order, nil
}

func isKnownStatus(status models.OrderStatus) bool {
	switch status {
	case models.StatusPending, models.StatusApproved, models.StatusRejected,
		models.StatusInProcess, models.StatusCancelled, models.StatusRefunded:
		return true
	}
	return false
}

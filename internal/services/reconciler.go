package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fblasco1/portfolio-fotografo/internal/cache"
	"github.com/fblasco1/portfolio-fotografo/internal/db"
	"github.com/fblasco1/portfolio-fotografo/internal/email"
	"github.com/fblasco1/portfolio-fotografo/internal/logging"
	"github.com/fblasco1/portfolio-fotografo/internal/mercadopago"
	"github.com/fblasco1/portfolio-fotografo/internal/models"
	"github.com/fblasco1/portfolio-fotografo/internal/payment"
)

const emailDedupTTL = 7 * 24 * time.Hour

// ReconcilerService applies asynchronous payment notifications to
// persisted order state. It never trusts the notification body's status:
// the authoritative record is always re-fetched from the provider, so the
// final state is correct regardless of delivery order.
type ReconcilerService struct {
	factory       *payment.Factory
	orderStore    orderStore
	emailProvider email.Provider
	cacheProvider cache.Provider
	logger        *slog.Logger
}

func NewReconcilerService(factory *payment.Factory, store orderStore, emailProvider email.Provider, cacheProvider cache.Provider, logger *slog.Logger) *ReconcilerService {
	if emailProvider == nil {
		emailProvider = email.NoopProvider{}
	}
	return &ReconcilerService{
		factory:       factory,
		orderStore:    store,
		emailProvider: emailProvider,
		cacheProvider: cacheProvider,
		logger:        logger,
	}
}

func (s *ReconcilerService) loggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx, s.logger)
}

// Handle reconciles one notification. Persistence is an upsert keyed by
// the provider's payment/order id: replays converge on the same row, and a
// webhook arriving before (or without) the creation-time insert creates
// the row itself.
func (s *ReconcilerService) Handle(ctx context.Context, providerName models.PaymentProvider, n *mercadopago.Notification) error {
	logger := s.loggerFromContext(ctx)

	provider, err := s.factory.ByName(providerName)
	if err != nil {
		return err
	}

	var rec db.Reconciliation
	switch n.Type {
	case "merchant_order", "topic_merchant_order_wh":
		rec, err = s.reconciliationFromMerchantOrder(ctx, provider, n.DataID)
	default:
		rec, err = s.reconciliationFromPayment(ctx, provider, n.DataID)
	}
	if err != nil {
		return err
	}
	rec.Provider = string(providerName)
	if rec.Metadata == nil {
		rec.Metadata = map[string]any{}
	}
	if n.ID != "" {
		rec.Metadata["last_notification_id"] = n.ID
	}
	rec.Metadata["last_reconciled_at"] = time.Now().UTC().Format(time.RFC3339)

	order, err := s.orderStore.Upsert(ctx, rec)
	if err != nil {
		return fmt.Errorf("failed to upsert order state: %w", err)
	}

	logger.Info("order reconciled",
		"order_id", order.ID,
		"status", order.Status,
		"payment_id", rec.PaymentID,
		"provider_order_id", rec.ProviderOrderID,
	)

	if order.Status == models.StatusApproved {
		s.sendConfirmationOnce(ctx, order)
	}
	return nil
}

func (s *ReconcilerService) reconciliationFromPayment(ctx context.Context, provider payment.Provider, paymentID string) (db.Reconciliation, error) {
	pay, err := provider.GetPayment(ctx, paymentID)
	if err != nil {
		return db.Reconciliation{}, fmt.Errorf("failed to fetch authoritative payment %s: %w", paymentID, err)
	}
	return db.Reconciliation{
		PaymentID:       pay.ID,
		ProviderOrderID: pay.OrderID,
		Status:          models.MapProviderStatus(pay.Status),
		StatusDetail:    pay.StatusDetail,
		TotalAmount:     pay.TransactionAmount,
		Currency:        pay.Currency,
		PaymentMethodID: pay.PaymentMethodID,
	}, nil
}

func (s *ReconcilerService) reconciliationFromMerchantOrder(ctx context.Context, provider payment.Provider, orderID string) (db.Reconciliation, error) {
	merchantOrder, err := provider.GetMerchantOrder(ctx, orderID)
	if err != nil {
		return db.Reconciliation{}, fmt.Errorf("failed to fetch authoritative merchant order %s: %w", orderID, err)
	}

	rec := db.Reconciliation{
		ProviderOrderID: merchantOrder.ID,
		Status:          models.MapProviderStatus(merchantOrder.Status),
		StatusDetail:    merchantOrder.Status,
		TotalAmount:     merchantOrder.TotalAmount,
		Currency:        merchantOrder.Currency,
	}
	if len(merchantOrder.PaymentIDs) > 0 {
		rec.PaymentID = merchantOrder.PaymentIDs[0]
	}
	return rec, nil
}

// sendConfirmationOnce emails the customer at most once per order,
// deduped through the cache so notification replays do not re-send.
func (s *ReconcilerService) sendConfirmationOnce(ctx context.Context, order *models.Order) {
	logger := s.loggerFromContext(ctx)

	if order.CustomerEmail == "" {
		return
	}

	key := cache.EmailKey(order.ID.String())
	if s.cacheProvider != nil {
		if _, err := s.cacheProvider.Get(ctx, key); err == nil {
			return
		}
	}

	message := email.OrderConfirmation(order)
	if message == nil {
		return
	}
	if err := s.emailProvider.SendEmail(ctx, message); err != nil {
		logger.Error("failed to send order confirmation email", "error", err, "order_id", order.ID)
		return
	}
	if s.cacheProvider != nil {
		if err := s.cacheProvider.Set(ctx, key, "sent", emailDedupTTL); err != nil {
			logger.Warn("failed to record confirmation email dedup key", "error", err, "order_id", order.ID)
		}
	}
}

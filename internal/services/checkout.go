package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fblasco1/portfolio-fotografo/internal/catalog"
	"github.com/fblasco1/portfolio-fotografo/internal/currency"
	"github.com/fblasco1/portfolio-fotografo/internal/logging"
	"github.com/fblasco1/portfolio-fotografo/internal/models"
	"github.com/fblasco1/portfolio-fotografo/internal/payment"
)

// CustomerInfo accompanies checkout submissions.
type CustomerInfo struct {
	Email     string                  `json:"email"`
	FirstName string                  `json:"first_name"`
	LastName  string                  `json:"last_name"`
	UserID    string                  `json:"user_id,omitempty"`
	Address   *models.ShippingAddress `json:"address,omitempty"`
}

type CheckoutService struct {
	pricer     *catalog.Pricer
	converter  *currency.Converter
	factory    *payment.Factory
	orderStore orderStore
	logger     *slog.Logger
}

func NewCheckoutService(pricer *catalog.Pricer, converter *currency.Converter, factory *payment.Factory, store orderStore, logger *slog.Logger) *CheckoutService {
	return &CheckoutService{
		pricer:     pricer,
		converter:  converter,
		factory:    factory,
		orderStore: store,
		logger:     logger,
	}
}

func (s *CheckoutService) loggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx, s.logger)
}

// QuoteCart prices cart lines in the region's currency. Conversion
// failures surface as 0 ("price unknown"); custom-size lines stay
// quote-only with no amount at all.
type CartQuote struct {
	Lines      []QuotedCartLine `json:"lines"`
	TotalLocal float64          `json:"total_local"`
	TotalUSD   float64          `json:"total_usd"`
	Currency   string           `json:"currency"`
}

type QuotedCartLine struct {
	catalog.QuotedLine
	UnitLocal  float64 `json:"unit_local"`
	TotalLocal float64 `json:"total_local"`
}

func (s *CheckoutService) QuoteCart(ctx context.Context, region models.RegionInfo, items []models.CartItem) CartQuote {
	lines, totalUSD := s.pricer.QuoteCart(items)

	quote := CartQuote{
		Lines:    make([]QuotedCartLine, 0, len(lines)),
		TotalUSD: totalUSD,
		Currency: region.Currency,
	}
	for _, line := range lines {
		local := QuotedCartLine{QuotedLine: line}
		if !line.QuoteOnly {
			local.UnitLocal = s.converter.Convert(ctx, line.UnitUSD, region.Currency, region.Country)
			local.TotalLocal = s.converter.Convert(ctx, line.TotalUSD, region.Currency, region.Country)
		}
		quote.Lines = append(quote.Lines, local)
	}
	quote.TotalLocal = s.converter.Convert(ctx, totalUSD, region.Currency, region.Country)
	return quote
}

// CreateIntent opens a provisional charge with the region's provider and
// records the order snapshot. Intent creation fails loudly; the audit
// insert does not. The provider remains the source of truth and a
// persistence hiccup must not block the customer.
func (s *CheckoutService) CreateIntent(ctx context.Context, region models.RegionInfo, items []models.CartItem, customer CustomerInfo) (*payment.Intent, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("cart is empty")
	}

	orderItems, err := s.localOrderItems(ctx, region, items)
	if err != nil {
		return nil, err
	}
	total := sumItems(orderItems)

	intent, err := s.factory.CreateIntent(ctx, region, total, orderItems)
	if err != nil {
		return nil, err
	}

	s.persistOrderSnapshot(ctx, &models.Order{
		UserID:          customer.UserID,
		CustomerEmail:   customer.Email,
		CustomerName:    customerName(customer),
		Payer:           payerFromCustomer(customer),
		ProviderOrderID: intent.ID,
		Provider:        intent.Provider,
		Status:          models.StatusPending,
		TotalAmount:     total,
		Currency:        region.Currency,
		Items:           orderItems,
		ShippingAddress: customer.Address,
		Metadata: map[string]any{
			"intent_id":  intent.ID,
			"country":    region.Country,
			"created_by": "create-intent",
		},
	})

	return intent, nil
}

// CreatePayment submits a tokenized card payment and records the order
// snapshot, including the payer captured from the client request, which
// the provider's post-hoc lookup does not return.
func (s *CheckoutService) CreatePayment(ctx context.Context, region models.RegionInfo, req payment.Request, items []models.CartItem, customer CustomerInfo) (*payment.Payment, error) {
	// Price the lines before any money moves. A missing exchange rate
	// must abort here, not after the charge.
	orderItems, err := s.localOrderItems(ctx, region, items)
	if err != nil {
		return nil, err
	}

	pay, err := s.factory.CreatePayment(ctx, region, req)
	if err != nil {
		return nil, err
	}

	payer := req.Payer
	if payer == nil {
		payer = payerFromCustomer(customer)
	}
	name := customerName(customer)
	if name == "" && payer != nil {
		name = joinName(payer.FirstName, payer.LastName)
	}
	email := customer.Email
	if email == "" && payer != nil {
		email = payer.Email
	}

	s.persistOrderSnapshot(ctx, &models.Order{
		UserID:          customer.UserID,
		CustomerEmail:   email,
		CustomerName:    name,
		Payer:           payer,
		PaymentID:       pay.ID,
		ProviderOrderID: pay.OrderID,
		Provider:        string(region.Provider),
		Status:          models.MapProviderStatus(pay.Status),
		StatusDetail:    pay.StatusDetail,
		TotalAmount:     pay.TransactionAmount,
		Currency:        pay.Currency,
		PaymentMethodID: pay.PaymentMethodID,
		Installments:    pay.Installments,
		Items:           orderItems,
		ShippingAddress: customer.Address,
		Metadata: map[string]any{
			"payment_id": pay.ID,
			"country":    region.Country,
			"created_by": "create-payment",
		},
	})

	return pay, nil
}

// persistOrderSnapshot is deliberately fire-and-forget. A failed audit
// insert is logged, not returned: the payment already succeeded or is in
// flight with the provider, and a missing row is healed by the webhook
// reconciler's insert-if-absent upsert.
func (s *CheckoutService) persistOrderSnapshot(ctx context.Context, order *models.Order) {
	logger := s.loggerFromContext(ctx)

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if err := s.orderStore.Create(writeCtx, order); err != nil {
		logger.Error("failed to persist order snapshot at creation",
			"error", err,
			"payment_id", order.PaymentID,
			"provider_order_id", order.ProviderOrderID,
		)
		return
	}
	logger.Info("order snapshot persisted", "order_id", order.ID, "status", order.Status)
}

// localOrderItems converts catalog prices into the region's currency.
// Unlike the cart quote, which tolerates a 0 "price unknown" sentinel for
// display, checkout refuses to proceed when a priced line cannot be
// converted: a 0 here would open a charge for nothing.
func (s *CheckoutService) localOrderItems(ctx context.Context, region models.RegionInfo, items []models.CartItem) ([]models.OrderItem, error) {
	orderItems := s.pricer.OrderItems(items, region.Currency)
	for i := range orderItems {
		if orderItems[i].UnitPrice <= 0 {
			continue
		}
		converted := s.converter.Convert(ctx, orderItems[i].UnitPrice, region.Currency, region.Country)
		if converted <= 0 {
			return nil, fmt.Errorf("no exchange rate for %s, cart cannot be priced", region.Currency)
		}
		orderItems[i].UnitPrice = converted
	}
	return orderItems, nil
}

func sumItems(items []models.OrderItem) float64 {
	var total float64
	for _, item := range items {
		quantity := item.Quantity
		if quantity < 1 {
			quantity = 1
		}
		total += item.UnitPrice * float64(quantity)
	}
	return total
}

func customerName(customer CustomerInfo) string {
	return joinName(customer.FirstName, customer.LastName)
}

func joinName(first, last string) string {
	switch {
	case first == "":
		return last
	case last == "":
		return first
	default:
		return first + " " + last
	}
}

func payerFromCustomer(customer CustomerInfo) *models.Payer {
	if customer.Email == "" && customer.FirstName == "" && customer.LastName == "" {
		return nil
	}
	return &models.Payer{
		Email:     customer.Email,
		FirstName: customer.FirstName,
		LastName:  customer.LastName,
	}
}

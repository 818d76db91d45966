package payment

import (
	"context"
	"fmt"
	"math"
	"strings"

	stripeapi "github.com/stripe/stripe-go/v84"

	"github.com/fblasco1/portfolio-fotografo/internal/models"
)

// Stripe serves checkouts outside Latin America. It speaks PaymentIntents
// only; installments and issuer listings are MercadoPago concepts and come
// back as ErrUnsupported so the storefront hides those selectors.
type Stripe struct {
	client *stripeapi.Client
}

func NewStripe(secretKey string) *Stripe {
	return &Stripe{client: stripeapi.NewClient(secretKey)}
}

func (s *Stripe) Name() models.PaymentProvider {
	return models.ProviderStripe
}

func (s *Stripe) CreateIntent(ctx context.Context, region models.RegionInfo, amount float64, items []models.OrderItem) (*Intent, error) {
	params := &stripeapi.PaymentIntentCreateParams{
		Amount:   stripeapi.Int64(toMinorUnits(amount, region.Currency)),
		Currency: stripeapi.String(strings.ToLower(region.Currency)),
		AutomaticPaymentMethods: &stripeapi.PaymentIntentCreateAutomaticPaymentMethodsParams{
			Enabled: stripeapi.Bool(true),
		},
		Metadata: map[string]string{
			"country":    region.Country,
			"item_count": fmt.Sprintf("%d", len(items)),
		},
	}

	intent, err := s.client.V1PaymentIntents.Create(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("failed to create payment intent: %w", err)
	}

	return &Intent{
		ID:       intent.ID,
		Amount:   amount,
		Currency: region.Currency,
		Provider: string(s.Name()),
		Payload: map[string]any{
			"client_secret": intent.ClientSecret,
		},
	}, nil
}

func (s *Stripe) CreatePayment(ctx context.Context, region models.RegionInfo, req Request) (*Payment, error) {
	params := &stripeapi.PaymentIntentCreateParams{
		Amount:        stripeapi.Int64(toMinorUnits(req.TransactionAmount, region.Currency)),
		Currency:      stripeapi.String(strings.ToLower(region.Currency)),
		PaymentMethod: stripeapi.String(req.Token),
		Confirm:       stripeapi.Bool(true),
		Description:   stripeapi.String(req.Description),
		AutomaticPaymentMethods: &stripeapi.PaymentIntentCreateAutomaticPaymentMethodsParams{
			Enabled:        stripeapi.Bool(true),
			AllowRedirects: stripeapi.String("never"),
		},
	}
	if req.Payer != nil && req.Payer.Email != "" {
		params.ReceiptEmail = stripeapi.String(req.Payer.Email)
	}
	if req.ExternalReference != "" {
		params.Metadata = map[string]string{"external_reference": req.ExternalReference}
	}

	intent, err := s.client.V1PaymentIntents.Create(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("failed to create payment: %w", err)
	}
	return s.toPayment(intent), nil
}

func (s *Stripe) PaymentMethods(ctx context.Context) ([]Method, error) {
	_ = ctx
	// Card is the only rail offered outside Latin America.
	return []Method{{ID: "card", Name: "Credit or debit card", Type: "credit_card"}}, nil
}

func (s *Stripe) Installments(ctx context.Context, amount float64, bin string) ([]InstallmentOption, error) {
	return nil, ErrUnsupported
}

func (s *Stripe) Issuers(ctx context.Context, paymentMethodID, bin string) ([]Issuer, error) {
	return nil, ErrUnsupported
}

func (s *Stripe) GetPayment(ctx context.Context, id string) (*Payment, error) {
	intent, err := s.client.V1PaymentIntents.Retrieve(ctx, id, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	return s.toPayment(intent), nil
}

func (s *Stripe) GetMerchantOrder(ctx context.Context, id string) (*MerchantOrder, error) {
	return nil, ErrUnsupported
}

func (s *Stripe) RefundPayment(ctx context.Context, id string) error {
	params := &stripeapi.RefundCreateParams{
		PaymentIntent: stripeapi.String(id),
	}
	if _, err := s.client.V1Refunds.Create(ctx, params); err != nil {
		return fmt.Errorf("failed to refund payment: %w", err)
	}
	return nil
}

func (s *Stripe) RefundOrder(ctx context.Context, id string) error {
	return ErrUnsupported
}

func (s *Stripe) toPayment(intent *stripeapi.PaymentIntent) *Payment {
	payment := &Payment{
		ID:                intent.ID,
		Status:            normalizeStripeStatus(intent.Status),
		StatusDetail:      string(intent.Status),
		TransactionAmount: fromMinorUnits(intent.Amount, string(intent.Currency)),
		Currency:          strings.ToUpper(string(intent.Currency)),
	}
	if ref, ok := intent.Metadata["external_reference"]; ok {
		payment.ExternalReference = ref
	}
	if intent.ReceiptEmail != "" {
		payment.PayerEmail = intent.ReceiptEmail
	}
	return payment
}

// normalizeStripeStatus translates PaymentIntent statuses into the shared
// provider vocabulary the reconciler maps from.
func normalizeStripeStatus(status stripeapi.PaymentIntentStatus) string {
	switch status {
	case stripeapi.PaymentIntentStatusSucceeded:
		return "approved"
	case stripeapi.PaymentIntentStatusProcessing:
		return "in_process"
	case stripeapi.PaymentIntentStatusCanceled:
		return "cancelled"
	default:
		return "pending"
	}
}

// zeroDecimalCurrencies have no minor unit; amounts pass through as-is.
var zeroDecimalCurrencies = map[string]bool{
	"JPY": true,
	"KRW": true,
	"CLP": true,
	"VND": true,
}

func toMinorUnits(amount float64, currency string) int64 {
	if zeroDecimalCurrencies[strings.ToUpper(currency)] {
		return int64(math.Round(amount))
	}
	return int64(math.Round(amount * 100))
}

func fromMinorUnits(amount int64, currency string) float64 {
	if zeroDecimalCurrencies[strings.ToUpper(currency)] {
		return float64(amount)
	}
	return float64(amount) / 100
}

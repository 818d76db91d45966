package payment

// Package payment abstracts the backing payment processors behind one
// capability interface so checkout code never branches on the vendor.

import (
	"context"
	"errors"
	"fmt"

	"github.com/fblasco1/portfolio-fotografo/internal/models"
)

// ErrUnsupported marks a capability a given provider does not offer.
// Callers degrade (hide the installment selector, skip issuers) instead of
// failing the checkout.
var ErrUnsupported = errors.New("capability not supported by payment provider")

// Intent is a provisional charge request created before card data is
// collected. It is not a committed financial transaction.
type Intent struct {
	ID          string         `json:"id"`
	Amount      float64        `json:"amount"`
	Currency    string         `json:"currency"`
	Provider    string         `json:"provider"`
	CheckoutURL string         `json:"checkout_url,omitempty"`
	Payload     map[string]any `json:"payload,omitempty"`
}

// Request carries the client-submitted payment. All five core fields are
// mandatory; a missing one is a client error, never a provider error.
type Request struct {
	Token             string        `json:"token" validate:"required"`
	TransactionAmount float64       `json:"transaction_amount" validate:"required,gt=0"`
	Installments      int           `json:"installments" validate:"required,min=1"`
	PaymentMethodID   string        `json:"payment_method_id" validate:"required"`
	Payer             *models.Payer `json:"payer" validate:"required"`
	Description       string        `json:"description,omitempty"`
	ExternalReference string        `json:"external_reference,omitempty"`
}

// Payment is the provider's record of a charge, normalized across vendors.
type Payment struct {
	ID                string         `json:"id"`
	Status            string         `json:"status"`
	StatusDetail      string         `json:"status_detail,omitempty"`
	TransactionAmount float64        `json:"transaction_amount"`
	Currency          string         `json:"currency"`
	PaymentMethodID   string         `json:"payment_method_id,omitempty"`
	Installments      int            `json:"installments,omitempty"`
	OrderID           string         `json:"order_id,omitempty"`
	ExternalReference string         `json:"external_reference,omitempty"`
	PayerEmail        string         `json:"payer_email,omitempty"`
	Metadata          map[string]any `json:"metadata,omitempty"`
}

// MerchantOrder groups the payments the provider collected for one
// checkout.
type MerchantOrder struct {
	ID                string   `json:"id"`
	Status            string   `json:"status"`
	TotalAmount       float64  `json:"total_amount"`
	Currency          string   `json:"currency"`
	PaymentIDs        []string `json:"payment_ids"`
	ExternalReference string   `json:"external_reference,omitempty"`
}

type Method struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Type      string `json:"payment_type_id"`
	Thumbnail string `json:"thumbnail,omitempty"`
}

// InstallmentOption is one payer-cost choice for a card BIN.
type InstallmentOption struct {
	Installments       int     `json:"installments"`
	InstallmentRate    float64 `json:"installment_rate"`
	InstallmentAmount  float64 `json:"installment_amount"`
	TotalAmount        float64 `json:"total_amount"`
	RecommendedMessage string  `json:"recommended_message,omitempty"`
}

type Issuer struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Thumbnail string `json:"thumbnail,omitempty"`
}

// Provider is the uniform capability surface. Operations a vendor cannot
// serve must return ErrUnsupported, never panic or invent data.
type Provider interface {
	Name() models.PaymentProvider
	CreateIntent(ctx context.Context, region models.RegionInfo, amount float64, items []models.OrderItem) (*Intent, error)
	CreatePayment(ctx context.Context, region models.RegionInfo, req Request) (*Payment, error)
	PaymentMethods(ctx context.Context) ([]Method, error)
	Installments(ctx context.Context, amount float64, bin string) ([]InstallmentOption, error)
	Issuers(ctx context.Context, paymentMethodID, bin string) ([]Issuer, error)
	GetPayment(ctx context.Context, id string) (*Payment, error)
	GetMerchantOrder(ctx context.Context, id string) (*MerchantOrder, error)
	RefundPayment(ctx context.Context, id string) error
	RefundOrder(ctx context.Context, id string) error
}

// Factory resolves the adapter for a region. Adapters are constructed once
// at process start; selection itself is stateless.
type Factory struct {
	providers map[models.PaymentProvider]Provider
	fallback  models.PaymentProvider
}

func NewFactory(fallback models.PaymentProvider, providers ...Provider) *Factory {
	byName := make(map[models.PaymentProvider]Provider, len(providers))
	for _, p := range providers {
		if p != nil {
			byName[p.Name()] = p
		}
	}
	return &Factory{providers: byName, fallback: fallback}
}

func (f *Factory) ForRegion(region models.RegionInfo) (Provider, error) {
	name := region.Provider
	if name == "" {
		name = f.fallback
	}
	if provider, ok := f.providers[name]; ok {
		return provider, nil
	}
	if provider, ok := f.providers[f.fallback]; ok {
		return provider, nil
	}
	return nil, fmt.Errorf("no payment provider configured for %q", name)
}

func (f *Factory) ByName(name models.PaymentProvider) (Provider, error) {
	if provider, ok := f.providers[name]; ok {
		return provider, nil
	}
	return nil, fmt.Errorf("no payment provider configured for %q", name)
}

// CreateIntent resolves the region's adapter and delegates.
func (f *Factory) CreateIntent(ctx context.Context, region models.RegionInfo, amount float64, items []models.OrderItem) (*Intent, error) {
	provider, err := f.ForRegion(region)
	if err != nil {
		return nil, err
	}
	return provider.CreateIntent(ctx, region, amount, items)
}

// CreatePayment resolves the region's adapter and delegates.
func (f *Factory) CreatePayment(ctx context.Context, region models.RegionInfo, req Request) (*Payment, error) {
	provider, err := f.ForRegion(region)
	if err != nil {
		return nil, err
	}
	return provider.CreatePayment(ctx, region, req)
}

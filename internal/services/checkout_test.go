package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/fblasco1/portfolio-fotografo/internal/catalog"
	"github.com/fblasco1/portfolio-fotografo/internal/currency"
	"github.com/fblasco1/portfolio-fotografo/internal/models"
	"github.com/fblasco1/portfolio-fotografo/internal/payment"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testPricer() *catalog.Pricer {
	return catalog.NewPricer(&catalog.Catalog{
		Currency: "USD",
		Products: []catalog.Product{
			{
				ID:     "andes-01",
				Title:  "Amanecer en los Andes",
				Type:   "print",
				Active: true,
				Prices: map[string]float64{"small": 40, "medium": 80, "large": 150},
			},
		},
	})
}

func usdRegion() models.RegionInfo {
	return models.RegionInfo{
		Country:     "US",
		Currency:    "USD",
		IsSupported: true,
		Provider:    models.ProviderStripe,
	}
}

func newCheckoutFixture(t *testing.T, store *fakeOrderStore, provider payment.Provider) *CheckoutService {
	t.Helper()
	logger := testLogger()
	factory := payment.NewFactory(models.ProviderStripe, provider)
	converter := currency.NewConverter("http://127.0.0.1:0", nil, logger)
	return NewCheckoutService(testPricer(), converter, factory, store, logger)
}

func TestCheckoutCreatePaymentPersistsSnapshot(t *testing.T) {
	t.Parallel()

	store := &fakeOrderStore{}
	provider := &fakeProvider{name: models.ProviderStripe}
	svc := newCheckoutFixture(t, store, provider)

	req := payment.Request{
		Token:             "tok_123",
		TransactionAmount: 80,
		Installments:      1,
		PaymentMethodID:   "card",
		Payer:             &models.Payer{Email: "ana@example.com", FirstName: "Ana", LastName: "Gomez"},
	}
	items := []models.CartItem{{ProductID: "andes-01", Size: models.SizeMedium, Quantity: 1}}

	pay, err := svc.CreatePayment(context.Background(), usdRegion(), req, items, CustomerInfo{Email: "ana@example.com"})
	if err != nil {
		t.Fatalf("CreatePayment() error = %v", err)
	}
	if pay.ID != "pay-1" {
		t.Errorf("payment id = %q, want pay-1", pay.ID)
	}

	if store.count() != 1 {
		t.Fatalf("persisted orders = %d, want 1", store.count())
	}
	order, err := store.GetByPaymentID(context.Background(), "pay-1")
	if err != nil {
		t.Fatalf("GetByPaymentID() error = %v", err)
	}
	if order.Status != models.StatusApproved {
		t.Errorf("order status = %q, want %q", order.Status, models.StatusApproved)
	}
	if order.Payer == nil || order.Payer.Email != "ana@example.com" {
		t.Errorf("payer snapshot missing: %+v", order.Payer)
	}
	if len(order.Items) != 1 || order.Items[0].UnitPrice != 80 {
		t.Errorf("order items = %+v, want one medium print at 80", order.Items)
	}
}

func TestCheckoutCreatePaymentSurvivesPersistenceFailure(t *testing.T) {
	t.Parallel()

	store := &fakeOrderStore{createErr: errors.New("connection refused")}
	provider := &fakeProvider{name: models.ProviderStripe}
	svc := newCheckoutFixture(t, store, provider)

	req := payment.Request{
		Token:             "tok_123",
		TransactionAmount: 40,
		Installments:      1,
		PaymentMethodID:   "card",
		Payer:             &models.Payer{Email: "ana@example.com"},
	}
	items := []models.CartItem{{ProductID: "andes-01", Size: models.SizeSmall, Quantity: 1}}

	pay, err := svc.CreatePayment(context.Background(), usdRegion(), req, items, CustomerInfo{})
	if err != nil {
		t.Fatalf("CreatePayment() error = %v, want charge to succeed despite storage failure", err)
	}
	if pay.Status != "approved" {
		t.Errorf("payment status = %q, want approved", pay.Status)
	}
}

func TestCheckoutCreateIntentEmptyCart(t *testing.T) {
	t.Parallel()

	svc := newCheckoutFixture(t, &fakeOrderStore{}, &fakeProvider{name: models.ProviderStripe})

	if _, err := svc.CreateIntent(context.Background(), usdRegion(), nil, CustomerInfo{}); err == nil {
		t.Fatal("CreateIntent() with empty cart should fail")
	}
}

func TestCheckoutCreateIntentPersistsPendingOrder(t *testing.T) {
	t.Parallel()

	store := &fakeOrderStore{}
	svc := newCheckoutFixture(t, store, &fakeProvider{name: models.ProviderStripe})

	items := []models.CartItem{{ProductID: "andes-01", Size: models.SizeLarge, Quantity: 2}}
	intent, err := svc.CreateIntent(context.Background(), usdRegion(), items, CustomerInfo{Email: "ana@example.com"})
	if err != nil {
		t.Fatalf("CreateIntent() error = %v", err)
	}
	if intent.Amount != 300 {
		t.Errorf("intent amount = %v, want 300", intent.Amount)
	}

	order, err := store.GetByProviderOrderID(context.Background(), intent.ID)
	if err != nil {
		t.Fatalf("no order persisted for intent %q: %v", intent.ID, err)
	}
	if order.Status != models.StatusPending {
		t.Errorf("order status = %q, want %q", order.Status, models.StatusPending)
	}
}

func TestQuoteCartKeepsQuoteOnlyLinesOutOfTotal(t *testing.T) {
	t.Parallel()

	svc := newCheckoutFixture(t, &fakeOrderStore{}, &fakeProvider{name: models.ProviderStripe})

	items := []models.CartItem{
		{ProductID: "andes-01", Size: models.SizeSmall, Quantity: 1},
		{ProductID: "andes-01", Size: models.SizeCustom, Quantity: 1},
	}
	quote := svc.QuoteCart(context.Background(), usdRegion(), items)

	if len(quote.Lines) != 2 {
		t.Fatalf("quote lines = %d, want 2", len(quote.Lines))
	}
	if quote.TotalUSD != 40 {
		t.Errorf("total USD = %v, want 40 (custom line excluded)", quote.TotalUSD)
	}
	if !quote.Lines[1].QuoteOnly {
		t.Error("custom-size line should be quote-only")
	}
}

func TestCheckoutFailsLoudlyOnRateOutage(t *testing.T) {
	t.Parallel()

	store := &fakeOrderStore{}
	provider := &fakeProvider{name: models.ProviderMercadoPago}
	factory := payment.NewFactory(models.ProviderMercadoPago, provider)
	// The rate endpoint is unreachable, so ARS conversion comes back as
	// "price unknown".
	converter := currency.NewConverter("http://127.0.0.1:0", nil, testLogger())
	svc := NewCheckoutService(testPricer(), converter, factory, store, testLogger())

	region := models.RegionInfo{
		Country:     "AR",
		Currency:    "ARS",
		IsSupported: true,
		Provider:    models.ProviderMercadoPago,
	}
	items := []models.CartItem{{ProductID: "andes-01", Size: models.SizeMedium, Quantity: 1}}

	_, err := svc.CreateIntent(context.Background(), region, items, CustomerInfo{Email: "ana@example.com"})
	if err == nil {
		t.Fatal("CreateIntent() should fail when the cart cannot be priced")
	}
	if !strings.Contains(err.Error(), "exchange rate") {
		t.Errorf("error = %v, want it to name the missing exchange rate", err)
	}
	if store.count() != 0 {
		t.Errorf("persisted orders = %d, want none for an unpriced cart", store.count())
	}

	req := payment.Request{
		Token:             "tok_123",
		TransactionAmount: 80,
		Installments:      1,
		PaymentMethodID:   "master",
	}
	if _, err := svc.CreatePayment(context.Background(), region, req, items, CustomerInfo{}); err == nil {
		t.Fatal("CreatePayment() should refuse to charge an unpriced cart")
	}
	if store.count() != 0 {
		t.Errorf("persisted orders = %d, want none after the refused charge", store.count())
	}
}

package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/fblasco1/portfolio-fotografo/internal/models"
	"github.com/fblasco1/portfolio-fotografo/internal/payment"
)

func seedApprovedOrder(t *testing.T, store *fakeOrderStore) *models.Order {
	t.Helper()
	order := &models.Order{
		CustomerEmail:   "ana@example.com",
		PaymentID:       "pay-555",
		ProviderOrderID: "order-123",
		Provider:        string(models.ProviderMercadoPago),
		Status:          models.StatusApproved,
		TotalAmount:     150,
		Currency:        "ARS",
	}
	if err := store.Create(context.Background(), order); err != nil {
		t.Fatalf("seed order: %v", err)
	}
	return order
}

func newAdminFixture(store *fakeOrderStore, provider *fakeProvider) *AdminService {
	factory := payment.NewFactory(models.ProviderMercadoPago, provider)
	return NewAdminService(store, factory, testLogger())
}

func TestAdminRefundOrderLevel(t *testing.T) {
	t.Parallel()

	store := &fakeOrderStore{}
	seedApprovedOrder(t, store)
	provider := &fakeProvider{name: models.ProviderMercadoPago}
	svc := newAdminFixture(store, provider)

	order, err := svc.RefundOrder(context.Background(), "order-123")
	if err != nil {
		t.Fatalf("RefundOrder() error = %v", err)
	}
	if order.Status != models.StatusRefunded {
		t.Errorf("status = %q, want %q", order.Status, models.StatusRefunded)
	}
	if len(provider.orderRefunds) != 1 || provider.orderRefunds[0] != "order-123" {
		t.Errorf("order refunds = %v, want [order-123]", provider.orderRefunds)
	}
	if len(provider.paymentRefunds) != 0 {
		t.Errorf("payment refunds = %v, want none when the order-level refund succeeds", provider.paymentRefunds)
	}

	stored, _ := store.GetByProviderOrderID(context.Background(), "order-123")
	if stored.Status != models.StatusRefunded {
		t.Errorf("stored status = %q, want %q", stored.Status, models.StatusRefunded)
	}
}

func TestAdminRefundFallsBackToPaymentLevel(t *testing.T) {
	t.Parallel()

	store := &fakeOrderStore{}
	seedApprovedOrder(t, store)
	provider := &fakeProvider{
		name:           models.ProviderMercadoPago,
		refundOrderErr: errors.New("order refunds not enabled for this account"),
	}
	svc := newAdminFixture(store, provider)

	order, err := svc.RefundOrder(context.Background(), "order-123")
	if err != nil {
		t.Fatalf("RefundOrder() error = %v, want payment-level fallback to succeed", err)
	}
	if order.Status != models.StatusRefunded {
		t.Errorf("status = %q, want %q", order.Status, models.StatusRefunded)
	}
	if len(provider.paymentRefunds) != 1 || provider.paymentRefunds[0] != "pay-555" {
		t.Errorf("payment refunds = %v, want [pay-555]", provider.paymentRefunds)
	}
}

func TestAdminRefundFailsAtBothLevels(t *testing.T) {
	t.Parallel()

	store := &fakeOrderStore{}
	seedApprovedOrder(t, store)
	provider := &fakeProvider{
		name:           models.ProviderMercadoPago,
		refundOrderErr: errors.New("order refund rejected"),
		refundPayErr:   errors.New("payment already refunded"),
	}
	svc := newAdminFixture(store, provider)

	if _, err := svc.RefundOrder(context.Background(), "order-123"); err == nil {
		t.Fatal("RefundOrder() should fail when both refund levels fail")
	}

	stored, _ := store.GetByProviderOrderID(context.Background(), "order-123")
	if stored.Status != models.StatusApproved {
		t.Errorf("stored status = %q, want untouched %q", stored.Status, models.StatusApproved)
	}
}

func TestAdminRefundSurfacesBookkeepingFailure(t *testing.T) {
	t.Parallel()

	store := &fakeOrderStore{refundErr: errors.New("deadlock detected")}
	seedApprovedOrder(t, store)
	provider := &fakeProvider{name: models.ProviderMercadoPago}
	svc := newAdminFixture(store, provider)

	_, err := svc.RefundOrder(context.Background(), "order-123")
	if err == nil {
		t.Fatal("RefundOrder() should surface the state update failure")
	}
	if !strings.Contains(err.Error(), "refund succeeded") {
		t.Errorf("error = %v, want it to say the refund itself went through", err)
	}
}

func TestAdminRefundWithoutProviderOrderID(t *testing.T) {
	t.Parallel()

	store := &fakeOrderStore{}
	order := &models.Order{
		PaymentID: "pay-9",
		Provider:  string(models.ProviderMercadoPago),
		Status:    models.StatusApproved,
	}
	if err := store.Create(context.Background(), order); err != nil {
		t.Fatalf("seed order: %v", err)
	}
	provider := &fakeProvider{name: models.ProviderMercadoPago}
	svc := newAdminFixture(store, provider)

	if _, err := svc.RefundOrder(context.Background(), order.ID.String()); err != nil {
		t.Fatalf("RefundOrder() error = %v, want direct payment-level refund", err)
	}
	if len(provider.paymentRefunds) != 1 {
		t.Errorf("payment refunds = %v, want one", provider.paymentRefunds)
	}
}

func TestAdminRefundRejectsNonApprovedOrder(t *testing.T) {
	t.Parallel()

	store := &fakeOrderStore{}
	order := &models.Order{
		PaymentID:       "pay-7",
		ProviderOrderID: "order-7",
		Provider:        string(models.ProviderMercadoPago),
		Status:          models.StatusPending,
	}
	if err := store.Create(context.Background(), order); err != nil {
		t.Fatalf("seed order: %v", err)
	}
	provider := &fakeProvider{name: models.ProviderMercadoPago}
	svc := newAdminFixture(store, provider)

	_, err := svc.RefundOrder(context.Background(), "order-7")
	if !errors.Is(err, ErrOrderNotRefundable) {
		t.Fatalf("RefundOrder() error = %v, want %v", err, ErrOrderNotRefundable)
	}
	if len(provider.orderRefunds) != 0 || len(provider.paymentRefunds) != 0 {
		t.Errorf("provider refunds = %v/%v, want none before the order is approved",
			provider.orderRefunds, provider.paymentRefunds)
	}

	stored, _ := store.GetByProviderOrderID(context.Background(), "order-7")
	if stored.Status != models.StatusPending {
		t.Errorf("stored status = %q, want untouched %q", stored.Status, models.StatusPending)
	}
}

func TestAdminListOrdersRejectsUnknownStatus(t *testing.T) {
	t.Parallel()

	svc := newAdminFixture(&fakeOrderStore{}, &fakeProvider{name: models.ProviderMercadoPago})

	if _, err := svc.ListOrders(context.Background(), "shipped", time.Time{}, time.Time{}); err == nil {
		t.Fatal("ListOrders() should reject an unknown status filter")
	}
}

func TestAdminListOrdersFiltersByStatus(t *testing.T) {
	t.Parallel()

	store := &fakeOrderStore{}
	seedApprovedOrder(t, store)
	pending := &models.Order{PaymentID: "pay-2", Provider: string(models.ProviderMercadoPago), Status: models.StatusPending}
	if err := store.Create(context.Background(), pending); err != nil {
		t.Fatalf("seed order: %v", err)
	}
	svc := newAdminFixture(store, &fakeProvider{name: models.ProviderMercadoPago})

	orders, err := svc.ListOrders(context.Background(), "approved", time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("ListOrders() error = %v", err)
	}
	if len(orders) != 1 || orders[0].Status != models.StatusApproved {
		t.Errorf("orders = %+v, want the single approved order", orders)
	}
}

func TestAdminGetOrderResolvesBothIdentifierKinds(t *testing.T) {
	t.Parallel()

	store := &fakeOrderStore{}
	seeded := seedApprovedOrder(t, store)
	svc := newAdminFixture(store, &fakeProvider{name: models.ProviderMercadoPago})

	byUUID, err := svc.GetOrder(context.Background(), seeded.ID.String())
	if err != nil {
		t.Fatalf("GetOrder(uuid) error = %v", err)
	}
	byProvider, err := svc.GetOrder(context.Background(), "order-123")
	if err != nil {
		t.Fatalf("GetOrder(provider id) error = %v", err)
	}
	if byUUID.ID != byProvider.ID {
		t.Error("both identifier kinds should resolve to the same order")
	}
}

package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fblasco1/portfolio-fotografo/internal/db"
	"github.com/fblasco1/portfolio-fotografo/internal/email"
	"github.com/fblasco1/portfolio-fotografo/internal/models"
	"github.com/fblasco1/portfolio-fotografo/internal/payment"
)

// fakeOrderStore mirrors the upsert semantics of the real store in memory.
type fakeOrderStore struct {
	mu         sync.Mutex
	orders     []*models.Order
	createErr  error
	refundErr  error
	upsertErrs int
}

func (f *fakeOrderStore) Create(ctx context.Context, order *models.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	order.CreatedAt = time.Now()
	order.UpdatedAt = order.CreatedAt
	clone := *order
	f.orders = append(f.orders, &clone)
	return nil
}

func (f *fakeOrderStore) GetByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, o := range f.orders {
		if o.ID == orderID {
			clone := *o
			return &clone, nil
		}
	}
	return nil, db.ErrOrderNotFound
}

func (f *fakeOrderStore) GetByProviderOrderID(ctx context.Context, providerOrderID string) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, o := range f.orders {
		if o.ProviderOrderID == providerOrderID && providerOrderID != "" {
			clone := *o
			return &clone, nil
		}
	}
	return nil, db.ErrOrderNotFound
}

func (f *fakeOrderStore) GetByPaymentID(ctx context.Context, paymentID string) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, o := range f.orders {
		if o.PaymentID == paymentID && paymentID != "" {
			clone := *o
			return &clone, nil
		}
	}
	return nil, db.ErrOrderNotFound
}

func (f *fakeOrderStore) List(ctx context.Context, status models.OrderStatus, begin, end time.Time, limit int) ([]*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Order
	for _, o := range f.orders {
		if status != "" && o.Status != status {
			continue
		}
		if !begin.IsZero() && o.CreatedAt.Before(begin) {
			continue
		}
		if !end.IsZero() && o.CreatedAt.After(end) {
			continue
		}
		clone := *o
		out = append(out, &clone)
	}
	return out, nil
}

func (f *fakeOrderStore) Upsert(ctx context.Context, rec db.Reconciliation) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if rec.PaymentID == "" && rec.ProviderOrderID == "" {
		return nil, db.ErrMissingProviderReference
	}
	for _, o := range f.orders {
		matchPayment := rec.PaymentID != "" && o.PaymentID == rec.PaymentID
		matchOrder := rec.ProviderOrderID != "" && o.ProviderOrderID == rec.ProviderOrderID
		if matchPayment || matchOrder {
			o.Status = rec.Status
			o.StatusDetail = rec.StatusDetail
			if rec.PaymentID != "" {
				o.PaymentID = rec.PaymentID
			}
			if rec.ProviderOrderID != "" {
				o.ProviderOrderID = rec.ProviderOrderID
			}
			o.UpdatedAt = time.Now()
			clone := *o
			return &clone, nil
		}
	}
	inserted := &models.Order{
		ID:              uuid.New(),
		PaymentID:       rec.PaymentID,
		ProviderOrderID: rec.ProviderOrderID,
		Provider:        rec.Provider,
		Status:          rec.Status,
		StatusDetail:    rec.StatusDetail,
		TotalAmount:     rec.TotalAmount,
		Currency:        rec.Currency,
		Items:           []models.OrderItem{},
		Metadata:        rec.Metadata,
		CreatedAt:       time.Now(),
		UpdatedAt:       time.Now(),
	}
	f.orders = append(f.orders, inserted)
	clone := *inserted
	return &clone, nil
}

func (f *fakeOrderStore) MarkRefunded(ctx context.Context, orderID uuid.UUID, detail string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.refundErr != nil {
		return f.refundErr
	}
	for _, o := range f.orders {
		if o.ID == orderID {
			if o.Status != models.StatusApproved {
				return db.ErrInvalidStatusTransition
			}
			o.Status = models.StatusRefunded
			o.StatusDetail = detail
			return nil
		}
	}
	return db.ErrOrderNotFound
}

func (f *fakeOrderStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.orders)
}

// fakeProvider scripts provider responses for the reconciler and admin
// services.
type fakeProvider struct {
	name           models.PaymentProvider
	payments       map[string]*payment.Payment
	merchantOrders map[string]*payment.MerchantOrder
	refundOrderErr error
	refundPayErr   error

	mu             sync.Mutex
	orderRefunds   []string
	paymentRefunds []string
}

func (f *fakeProvider) Name() models.PaymentProvider { return f.name }

func (f *fakeProvider) CreateIntent(ctx context.Context, region models.RegionInfo, amount float64, items []models.OrderItem) (*payment.Intent, error) {
	return &payment.Intent{ID: "pref-1", Amount: amount, Currency: region.Currency, Provider: string(f.name)}, nil
}

func (f *fakeProvider) CreatePayment(ctx context.Context, region models.RegionInfo, req payment.Request) (*payment.Payment, error) {
	return &payment.Payment{
		ID:                "pay-1",
		Status:            "approved",
		StatusDetail:      "accredited",
		TransactionAmount: req.TransactionAmount,
		Currency:          region.Currency,
		PaymentMethodID:   req.PaymentMethodID,
		Installments:      req.Installments,
	}, nil
}

func (f *fakeProvider) PaymentMethods(ctx context.Context) ([]payment.Method, error) {
	return nil, payment.ErrUnsupported
}

func (f *fakeProvider) Installments(ctx context.Context, amount float64, bin string) ([]payment.InstallmentOption, error) {
	return nil, payment.ErrUnsupported
}

func (f *fakeProvider) Issuers(ctx context.Context, paymentMethodID, bin string) ([]payment.Issuer, error) {
	return nil, payment.ErrUnsupported
}

func (f *fakeProvider) GetPayment(ctx context.Context, id string) (*payment.Payment, error) {
	if p, ok := f.payments[id]; ok {
		return p, nil
	}
	return nil, errors.New("payment not found")
}

func (f *fakeProvider) GetMerchantOrder(ctx context.Context, id string) (*payment.MerchantOrder, error) {
	if o, ok := f.merchantOrders[id]; ok {
		return o, nil
	}
	return nil, errors.New("merchant order not found")
}

func (f *fakeProvider) RefundPayment(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.refundPayErr != nil {
		return f.refundPayErr
	}
	f.paymentRefunds = append(f.paymentRefunds, id)
	return nil
}

func (f *fakeProvider) RefundOrder(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.refundOrderErr != nil {
		return f.refundOrderErr
	}
	f.orderRefunds = append(f.orderRefunds, id)
	return nil
}

// recordingEmail captures sent confirmations.
type recordingEmail struct {
	mu   sync.Mutex
	sent []*email.Email
}

func (r *recordingEmail) SendEmail(ctx context.Context, e *email.Email) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, e)
	return nil
}

func (r *recordingEmail) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sent)
}

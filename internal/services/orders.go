package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/fblasco1/portfolio-fotografo/internal/db"
	"github.com/fblasco1/portfolio-fotografo/internal/models"
)

// orderStore is what the services need from persistence; *db.OrderStore
// satisfies it.
type orderStore interface {
	Create(ctx context.Context, order *models.Order) error
	GetByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	GetByProviderOrderID(ctx context.Context, providerOrderID string) (*models.Order, error)
	GetByPaymentID(ctx context.Context, paymentID string) (*models.Order, error)
	List(ctx context.Context, status models.OrderStatus, begin, end time.Time, limit int) ([]*models.Order, error)
	Upsert(ctx context.Context, rec db.Reconciliation) (*models.Order, error)
	MarkRefunded(ctx context.Context, orderID uuid.UUID, detail string) error
}

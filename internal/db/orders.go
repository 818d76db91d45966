package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fblasco1/portfolio-fotografo/internal/models"
)

var (
	ErrOrderNotFound            = errors.New("order not found")
	ErrInvalidStatusTransition  = errors.New("invalid order status transition")
	ErrMissingProviderReference = errors.New("reconciliation requires a payment or provider order id")
)

type OrderStore struct {
	pool *pgxpool.Pool
}

func NewOrderStore(pool *pgxpool.Pool) *OrderStore {
	return &OrderStore{pool: pool}
}

const orderColumns = `
	id, user_id, customer_email, customer_name, payer, payment_id,
	provider_order_id, provider, status, status_detail, total_amount,
	currency, payment_method_id, installments, items, shipping_address,
	metadata, created_at, updated_at
`

// Create inserts the order snapshot taken at checkout submission. The payer
// snapshot must already be attached; the provider's lookup APIs do not
// return it after the fact.
func (s *OrderStore) Create(ctx context.Context, order *Order) error {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	if order.Status == "" {
		order.Status = StatusPending
	}

	payerJSON, itemsJSON, addressJSON, metadataJSON, err := encodeOrderJSON(order)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO orders (
			id, user_id, customer_email, customer_name, payer, payment_id,
			provider_order_id, provider, status, status_detail, total_amount,
			currency, payment_method_id, installments, items, shipping_address,
			metadata, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, NOW(), NOW())
		RETURNING created_at, updated_at
	`
	row := s.pool.QueryRow(ctx, query,
		order.ID,
		textOrNull(order.UserID),
		order.CustomerEmail,
		order.CustomerName,
		payerJSON,
		textOrNull(order.PaymentID),
		textOrNull(order.ProviderOrderID),
		order.Provider,
		string(order.Status),
		textOrNull(order.StatusDetail),
		order.TotalAmount,
		order.Currency,
		textOrNull(order.PaymentMethodID),
		order.Installments,
		itemsJSON,
		addressJSON,
		metadataJSON,
	)
	if err := row.Scan(&order.CreatedAt, &order.UpdatedAt); err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}
	return nil
}

// GetByID resolves a locally generated UUID. Callers holding a provider
// order id should use GetByProviderOrderID instead.
func (s *OrderStore) GetByID(ctx context.Context, orderID uuid.UUID) (*Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	return s.scanOne(s.pool.QueryRow(ctx, query, orderID))
}

func (s *OrderStore) GetByProviderOrderID(ctx context.Context, providerOrderID string) (*Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE provider_order_id = $1`
	return s.scanOne(s.pool.QueryRow(ctx, query, providerOrderID))
}

func (s *OrderStore) GetByPaymentID(ctx context.Context, paymentID string) (*Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE payment_id = $1`
	return s.scanOne(s.pool.QueryRow(ctx, query, paymentID))
}

// List returns orders filtered by optional status and creation-date range,
// newest first.
func (s *OrderStore) List(ctx context.Context, status OrderStatus, begin, end time.Time, limit int) ([]*Order, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `SELECT ` + orderColumns + ` FROM orders WHERE 1=1`
	args := []any{}
	if status != "" {
		args = append(args, string(status))
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if !begin.IsZero() {
		args = append(args, begin)
		query += fmt.Sprintf(" AND created_at >= $%d", len(args))
	}
	if !end.IsZero() {
		args = append(args, end)
		query += fmt.Sprintf(" AND created_at <= $%d", len(args))
	}
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []*Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, rows.Err()
}

// Reconciliation is the authoritative state re-fetched from the provider
// during webhook processing.
type Reconciliation struct {
	PaymentID       string
	ProviderOrderID string
	Provider        string
	Status          OrderStatus
	StatusDetail    string
	TotalAmount     float64
	Currency        string
	PaymentMethodID string
	Metadata        map[string]any
}

// Upsert applies a reconciliation keyed by provider payment/order id. A
// missing row is inserted rather than treated as an error: creation-time
// persistence is fire-and-forget, so a webhook can legitimately arrive for
// an order that was never written.
func (s *OrderStore) Upsert(ctx context.Context, rec Reconciliation) (*Order, error) {
	if rec.PaymentID == "" && rec.ProviderOrderID == "" {
		return nil, ErrMissingProviderReference
	}

	metadataJSON, err := json.Marshal(rec.Metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to encode reconciliation metadata: %w", err)
	}

	query := `
		UPDATE orders
		SET status = $1, status_detail = $2,
		    payment_id = COALESCE(NULLIF($3, ''), payment_id),
		    provider_order_id = COALESCE(NULLIF($4, ''), provider_order_id),
		    payment_method_id = COALESCE(NULLIF($5, ''), payment_method_id),
		    metadata = COALESCE(metadata, '{}'::jsonb) || $6::jsonb,
		    updated_at = NOW()
		WHERE ($3 <> '' AND payment_id = $3)
		   OR ($4 <> '' AND provider_order_id = $4)
		RETURNING ` + orderColumns
	row := s.pool.QueryRow(ctx, query,
		string(rec.Status), textOrNull(rec.StatusDetail),
		rec.PaymentID, rec.ProviderOrderID, rec.PaymentMethodID, metadataJSON,
	)
	order, err := s.scanOne(row)
	if err == nil {
		return order, nil
	}
	if !errors.Is(err, ErrOrderNotFound) {
		return nil, err
	}

	inserted := &Order{
		ID:              uuid.New(),
		PaymentID:       rec.PaymentID,
		ProviderOrderID: rec.ProviderOrderID,
		Provider:        rec.Provider,
		Status:          rec.Status,
		StatusDetail:    rec.StatusDetail,
		TotalAmount:     rec.TotalAmount,
		Currency:        rec.Currency,
		PaymentMethodID: rec.PaymentMethodID,
		Items:           []OrderItem{},
		Metadata:        rec.Metadata,
	}
	if err := s.Create(ctx, inserted); err != nil {
		return nil, err
	}
	return inserted, nil
}

// MarkRefunded transitions an order to refunded. Refunds are only reachable
// from approved.
func (s *OrderStore) MarkRefunded(ctx context.Context, orderID uuid.UUID, detail string) error {
	query := `
		UPDATE orders
		SET status = $1, status_detail = $2, updated_at = NOW()
		WHERE id = $3 AND status = 'approved'
	`
	cmdTag, err := s.pool.Exec(ctx, query, StatusRefunded, detail, orderID)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("%w: expected approved", ErrInvalidStatusTransition)
	}
	return nil
}

func (s *OrderStore) scanOne(row pgx.Row) (*Order, error) {
	order, err := scanOrder(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return order, nil
}

func scanOrder(row pgx.Row) (*Order, error) {
	var (
		order        Order
		userID       pgtype.Text
		payerJSON    []byte
		paymentID    pgtype.Text
		providerOID  pgtype.Text
		statusDetail pgtype.Text
		methodID     pgtype.Text
		itemsJSON    []byte
		addressJSON  []byte
		metadataJSON []byte
		status       string
	)

	err := row.Scan(
		&order.ID, &userID, &order.CustomerEmail, &order.CustomerName,
		&payerJSON, &paymentID, &providerOID, &order.Provider, &status,
		&statusDetail, &order.TotalAmount, &order.Currency, &methodID,
		&order.Installments, &itemsJSON, &addressJSON, &metadataJSON,
		&order.CreatedAt, &order.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	order.Status = OrderStatus(status)
	if userID.Valid {
		order.UserID = userID.String
	}
	if paymentID.Valid {
		order.PaymentID = paymentID.String
	}
	if providerOID.Valid {
		order.ProviderOrderID = providerOID.String
	}
	if statusDetail.Valid {
		order.StatusDetail = statusDetail.String
	}
	if methodID.Valid {
		order.PaymentMethodID = methodID.String
	}

	if len(payerJSON) > 0 {
		var payer models.Payer
		if err := json.Unmarshal(payerJSON, &payer); err != nil {
			return nil, fmt.Errorf("failed to decode payer snapshot: %w", err)
		}
		order.Payer = &payer
	}
	if len(itemsJSON) > 0 {
		if err := json.Unmarshal(itemsJSON, &order.Items); err != nil {
			return nil, fmt.Errorf("failed to decode order items: %w", err)
		}
	}
	if len(addressJSON) > 0 {
		var address models.ShippingAddress
		if err := json.Unmarshal(addressJSON, &address); err != nil {
			return nil, fmt.Errorf("failed to decode shipping address: %w", err)
		}
		order.ShippingAddress = &address
	}
	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &order.Metadata); err != nil {
			return nil, fmt.Errorf("failed to decode order metadata: %w", err)
		}
	}

	return &order, nil
}

func encodeOrderJSON(order *Order) (payer, items, address, metadata []byte, err error) {
	if order.Payer != nil {
		payer, err = json.Marshal(order.Payer)
		if err != nil {
			return nil, nil, nil, nil, fmt.Errorf("failed to encode payer: %w", err)
		}
	}
	if order.Items == nil {
		order.Items = []OrderItem{}
	}
	items, err = json.Marshal(order.Items)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("failed to encode items: %w", err)
	}
	if order.ShippingAddress != nil {
		address, err = json.Marshal(order.ShippingAddress)
		if err != nil {
			return nil, nil, nil, nil, fmt.Errorf("failed to encode shipping address: %w", err)
		}
	}
	if order.Metadata != nil {
		metadata, err = json.Marshal(order.Metadata)
		if err != nil {
			return nil, nil, nil, nil, fmt.Errorf("failed to encode metadata: %w", err)
		}
	}
	return payer, items, address, metadata, nil
}

func textOrNull(value string) pgtype.Text {
	return pgtype.Text{String: value, Valid: value != ""}
}

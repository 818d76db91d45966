package models

import (
	"time"

	"github.com/google/uuid"
)

type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusApproved  OrderStatus = "approved"
	StatusRejected  OrderStatus = "rejected"
	StatusInProcess OrderStatus = "in_process"
	StatusCancelled OrderStatus = "cancelled"
	StatusRefunded  OrderStatus = "refunded"
)

// MapProviderStatus translates the provider's status vocabulary into the
// internal order status. Unknown inputs map to pending so a new provider
// status can never produce an invalid order.
func MapProviderStatus(providerStatus string) OrderStatus {
	switch providerStatus {
	case "processed", "approved":
		return StatusApproved
	case "refunded":
		return StatusRefunded
	case "canceled", "cancelled":
		return StatusCancelled
	case "failed", "expired", "rejected":
		return StatusRejected
	case "in_process", "in_mediation":
		return StatusInProcess
	default:
		return StatusPending
	}
}

// Payer is the snapshot of the paying customer captured at checkout
// submission. The provider's payment lookup does not reliably return these
// fields after the fact, so this is the only moment they can be recorded.
type Payer struct {
	Email          string `json:"email"`
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	Phone          string `json:"phone,omitempty"`
	Identification string `json:"identification,omitempty"`
}

type OrderItem struct {
	ProductID string  `json:"product_id"`
	Title     string  `json:"title"`
	Size      string  `json:"size"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
	Currency  string  `json:"currency"`
}

type ShippingAddress struct {
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

// Order is the locally persisted record of a purchase attempt. It is created
// once at checkout and afterwards mutated only by webhook reconciliation
// (and the explicit admin refund), never deleted.
type Order struct {
	ID              uuid.UUID        `json:"id"`
	UserID          string           `json:"user_id,omitempty"`
	CustomerEmail   string           `json:"customer_email"`
	CustomerName    string           `json:"customer_name"`
	Payer           *Payer           `json:"payer,omitempty"`
	PaymentID       string           `json:"payment_id,omitempty"`
	ProviderOrderID string           `json:"provider_order_id,omitempty"`
	Provider        string           `json:"provider"`
	Status          OrderStatus      `json:"status"`
	StatusDetail    string           `json:"status_detail,omitempty"`
	TotalAmount     float64          `json:"total_amount"`
	Currency        string           `json:"currency"`
	PaymentMethodID string           `json:"payment_method_id,omitempty"`
	Installments    int              `json:"installments,omitempty"`
	Items           []OrderItem      `json:"items"`
	ShippingAddress *ShippingAddress `json:"shipping_address,omitempty"`
	Metadata        map[string]any   `json:"metadata,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

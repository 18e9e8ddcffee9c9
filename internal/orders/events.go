package orders

import (
	"time"

	"github.com/shopspring/decimal"
)

// Event types published on the orders queue.
const (
	EventCreated       = "order.created"
	EventStatusChanged = "order.status_changed"
	EventSettled       = "order.settled"
)

// Event is the message body for every order event.
type Event struct {
	ID             string          `json:"eventId"`
	Type           string          `json:"type"`
	OrderID        string          `json:"orderId"`
	OrderNumber    string          `json:"orderNumber"`
	Status         Status          `json:"status"`
	PreviousStatus Status          `json:"previousStatus,omitempty"`
	PaymentMethod  PaymentMethod   `json:"paymentMethod,omitempty"`
	InvoiceNumber  string          `json:"invoiceNumber,omitempty"`
	Total          decimal.Decimal `json:"total"`
	CustomerPhone  string          `json:"customerPhone,omitempty"`
	OccurredAt     time.Time       `json:"occurredAt"`
}

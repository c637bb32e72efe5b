package order

import (
	"time"

	"github.com/shopspring/decimal"
)

// EventOrderCreated is the event-type header value of OrderCreatedEvent.
const EventOrderCreated = "order.created"

// OrderCreatedEvent is emitted when a new order is persisted.
type OrderCreatedEvent struct {
	ID        int64           `json:"id"`
	OrderCode string          `json:"orderCode"`
	Total     decimal.Decimal `json:"total"`
	GST       decimal.Decimal `json:"gst"`
	ItemCount int             `json:"itemCount"`
	CreatedAt time.Time       `json:"createdAt"`
}

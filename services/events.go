package services

import (
	"context"
	"log"
	"time"
)

// Domain event routing keys
const (
	EventOrderCreated       = "order.created"
	EventOrderStatusChanged = "order.status_changed"
	EventOrderCancelled     = "order.cancelled"
	EventInventoryAlert     = "inventory.alert_raised"
)

// Event is a domain event emitted after a state change has been committed
type Event struct {
	Type       string      `json:"type"`
	OccurredAt time.Time   `json:"occurred_at"`
	Payload    interface{} `json:"payload"`
}

// Publisher delivers domain events. Publishing is best effort: callers log
// failures and never roll back a committed change because of them.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// LogPublisher writes events to the standard logger. Used when no broker is configured.
type LogPublisher struct{}

// Publish logs the event
func (LogPublisher) Publish(_ context.Context, event Event) error {
	log.Printf("event %s at %s", event.Type, event.OccurredAt.Format(time.RFC3339))
	return nil
}

func publish(ctx context.Context, p Publisher, eventType string, now time.Time, payload interface{}) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, Event{Type: eventType, OccurredAt: now, Payload: payload}); err != nil {
		log.Printf("warning: failed to publish %s event: %v", eventType, err)
	}
}

// OrderEvent is the payload of order events
type OrderEvent struct {
	OrderID     uint    `json:"order_id"`
	OrderNumber string  `json:"order_number"`
	CustomerID  uint    `json:"customer_id"`
	OrderType   string  `json:"order_type"`
	Status      string  `json:"status"`
	Previous    string  `json:"previous_status,omitempty"`
	Total       float64 `json:"total"`
	Notes       string  `json:"notes,omitempty"`
}

// AlertEvent is the payload of inventory alert events
type AlertEvent struct {
	InventoryItemID uint   `json:"inventory_item_id"`
	ItemName        string `json:"item_name"`
	AlertType       string `json:"alert_type"`
	Message         string `json:"message"`
}

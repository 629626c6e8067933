package models

import (
	"time"

	"gorm.io/gorm"
)

// Order statuses
const (
	OrderStatusPending        = "pending"
	OrderStatusConfirmed      = "confirmed"
	OrderStatusPreparing      = "preparing"
	OrderStatusReady          = "ready"
	OrderStatusOutForDelivery = "out-for-delivery"
	OrderStatusDelivered      = "delivered"
	OrderStatusCancelled      = "cancelled"
)

// Order types
const (
	OrderTypeDineIn   = "dine-in"
	OrderTypeTakeout  = "takeout"
	OrderTypeDelivery = "delivery"
)

// Payment methods and statuses
const (
	PaymentMethodCash   = "cash"
	PaymentMethodCard   = "card"
	PaymentMethodOnline = "online"
	PaymentMethodMobile = "mobile"

	PaymentStatusPending    = "pending"
	PaymentStatusProcessing = "processing"
	PaymentStatusCompleted  = "completed"
	PaymentStatusFailed     = "failed"
	PaymentStatusRefunded   = "refunded"
)

// Payment is the payment sub-state of an order
type Payment struct {
	Method        string     `gorm:"not null" json:"method"`
	Status        string     `gorm:"not null;index:idx_orders_payment_status" json:"status"`
	TransactionID string     `json:"transaction_id,omitempty"`
	PaidAt        *time.Time `json:"paid_at"`
}

// Discount applied to an order
type Discount struct {
	Amount float64 `gorm:"not null;default:0" json:"amount"`
	Code   string  `json:"code,omitempty"`
	Reason string  `json:"reason,omitempty"`
}

// Address is a street address used for delivery
type Address struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	ZipCode string `json:"zip_code"`
	Country string `json:"country"`
}

// DeliveryInfo holds delivery details; only populated for delivery orders
type DeliveryInfo struct {
	Address               Address    `gorm:"embedded;embeddedPrefix:address_" json:"address"`
	Phone                 string     `json:"phone,omitempty"`
	Instructions          string     `json:"instructions,omitempty"`
	EstimatedDeliveryTime *time.Time `json:"estimated_delivery_time"`
	ActualDeliveryTime    *time.Time `json:"actual_delivery_time"`
}

// OrderRating is the customer's single post-delivery rating
type OrderRating struct {
	Overall  *int       `json:"overall"`
	Food     *int       `json:"food,omitempty"`
	Service  *int       `json:"service,omitempty"`
	Delivery *int       `json:"delivery,omitempty"`
	Comment  string     `json:"comment,omitempty"`
	RatedAt  *time.Time `json:"rated_at"`
}

// Order represents a customer order. Line items are snapshots of the menu at
// creation time and never follow later catalog edits.
type Order struct {
	ID                 uint                 `gorm:"primaryKey" json:"id"`
	OrderNumber        string               `gorm:"uniqueIndex;not null" json:"order_number"`
	IdempotencyKey     *string              `gorm:"uniqueIndex:idx_orders_customer_idempotency" json:"-"`
	CustomerID         uint                 `gorm:"not null;index;uniqueIndex:idx_orders_customer_idempotency" json:"customer_id"`
	Customer           *User                `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
	OrderType          string               `gorm:"not null;index" json:"order_type"`
	Items              []OrderItem          `gorm:"foreignKey:OrderID" json:"items"`
	Subtotal           float64              `gorm:"not null" json:"subtotal"`
	Tax                float64              `gorm:"not null" json:"tax"`
	DeliveryFee        float64              `gorm:"not null;default:0" json:"delivery_fee"`
	Discount           Discount             `gorm:"embedded;embeddedPrefix:discount_" json:"discount"`
	Total              float64              `gorm:"not null" json:"total"`
	Payment            Payment              `gorm:"embedded;embeddedPrefix:payment_" json:"payment"`
	DeliveryInfo       DeliveryInfo         `gorm:"embedded;embeddedPrefix:delivery_" json:"delivery_info"`
	TableNumber        *int                 `json:"table_number"`
	SpecialRequests    string               `gorm:"size:500" json:"special_requests,omitempty"`
	Status             string               `gorm:"not null;index" json:"status"`
	StatusHistory      []StatusHistoryEntry `gorm:"foreignKey:OrderID" json:"status_history"`
	EstimatedReadyTime time.Time            `json:"estimated_ready_time"`
	ActualReadyTime    *time.Time           `json:"actual_ready_time"`
	Rating             OrderRating          `gorm:"embedded;embeddedPrefix:rating_" json:"rating"`
	Version            int                  `gorm:"not null;default:1" json:"-"`
	CreatedAt          time.Time            `gorm:"index" json:"created_at"`
	UpdatedAt          time.Time            `json:"updated_at"`
	DeletedAt          gorm.DeletedAt       `gorm:"index" json:"-"`
}

// TableName specifies the table name for the Order model
func (Order) TableName() string {
	return "orders"
}

// OrderItem is a snapshot of a menu item at the time the order was placed
type OrderItem struct {
	ID                  uint    `gorm:"primaryKey" json:"id"`
	OrderID             uint    `gorm:"not null;index" json:"order_id"`
	MenuItemID          uint    `gorm:"not null;index" json:"menu_item_id"`
	Name                string  `gorm:"not null" json:"name"`
	Price               float64 `gorm:"not null" json:"price"`
	Quantity            int     `gorm:"not null;check:quantity > 0" json:"quantity"`
	SpecialInstructions string  `gorm:"size:200" json:"special_instructions,omitempty"`
}

// TableName specifies the table name for the OrderItem model
func (OrderItem) TableName() string {
	return "order_items"
}

// StatusHistoryEntry is one entry of an order's append-only status audit trail
type StatusHistoryEntry struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	OrderID     uint      `gorm:"not null;index" json:"order_id"`
	Status      string    `gorm:"not null" json:"status"`
	UpdatedByID *uint     `json:"updated_by"`
	Notes       string    `json:"notes,omitempty"`
	Timestamp   time.Time `gorm:"not null" json:"timestamp"`
}

// TableName specifies the table name for the StatusHistoryEntry model
func (StatusHistoryEntry) TableName() string {
	return "order_status_history"
}

// IsTerminal reports whether the order can no longer change status
func (o *Order) IsTerminal() bool {
	return o.Status == OrderStatusDelivered || o.Status == OrderStatusCancelled
}

// IsRated reports whether the customer has already rated the order
func (o *Order) IsRated() bool {
	return o.Rating.Overall != nil
}

// ValidOrderStatus reports whether status is a known order status
func ValidOrderStatus(status string) bool {
	switch status {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusPreparing, OrderStatusReady,
		OrderStatusOutForDelivery, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

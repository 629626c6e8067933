package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tablefire/ordering-api/models"
	"github.com/tablefire/ordering-api/repository"
)

// OrderStore is the persistence the order aggregate needs
type OrderStore interface {
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id uint) (*models.Order, error)
	FindByIdempotencyKey(ctx context.Context, customerID uint, key string) (*models.Order, error)
	Save(ctx context.Context, order *models.Order) error
	Count(ctx context.Context) (int64, error)
	List(ctx context.Context, q repository.OrderQuery) ([]models.Order, int64, error)
	Stats(ctx context.Context, now time.Time) (*repository.OrderStats, error)
}

// CatalogReader reads menu item snapshots for pricing
type CatalogReader interface {
	FindByIDs(ctx context.Context, ids []uint) (map[uint]models.MenuItem, error)
}

// deliveryWindow is added to the ready time to estimate delivery
const deliveryWindow = 30 * time.Minute

// OrderService orchestrates order creation and the order lifecycle
type OrderService struct {
	orders        OrderStore
	catalog       CatalogReader
	publisher     Publisher
	pricing       PricingPolicy
	initialStatus string
	createMu      sync.Mutex // order numbers are sequenced from the order count
	locks         *keyedMutex
	now           func() time.Time
}

// NewOrderService creates an OrderService. initialStatus is pending or confirmed.
func NewOrderService(orders OrderStore, catalog CatalogReader, publisher Publisher, pricing PricingPolicy, initialStatus string) *OrderService {
	if initialStatus == "" {
		initialStatus = models.OrderStatusPending
	}
	return &OrderService{
		orders:        orders,
		catalog:       catalog,
		publisher:     publisher,
		pricing:       pricing,
		initialStatus: initialStatus,
		locks:         newKeyedMutex(),
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// OrderItemInput is one requested line of an order
type OrderItemInput struct {
	MenuItemID          uint   `json:"menu_item_id" binding:"required"`
	Quantity            int    `json:"quantity" binding:"required,min=1"`
	SpecialInstructions string `json:"special_instructions" binding:"max=200"`
}

// DeliveryInput is the delivery destination of a delivery order
type DeliveryInput struct {
	Address      models.Address `json:"address"`
	Phone        string         `json:"phone"`
	Instructions string         `json:"instructions"`
}

// CreateOrderInput is a customer's order request
type CreateOrderInput struct {
	Items           []OrderItemInput `json:"items" binding:"required,min=1,dive"`
	OrderType       string           `json:"order_type" binding:"required"`
	PaymentMethod   string           `json:"payment_method" binding:"required"`
	DeliveryInfo    *DeliveryInput   `json:"delivery_info"`
	TableNumber     *int             `json:"table_number"`
	SpecialRequests string           `json:"special_requests" binding:"max=500"`
	IdempotencyKey  string           `json:"-"` // from the Idempotency-Key header
}

func (in CreateOrderInput) validate() error {
	if len(in.Items) == 0 {
		return validationError("items", "Order must contain at least one item")
	}
	for i, item := range in.Items {
		if item.Quantity < 1 {
			return validationError(fmt.Sprintf("items[%d].quantity", i), "Quantity must be at least 1")
		}
		if len(item.SpecialInstructions) > 200 {
			return validationError(fmt.Sprintf("items[%d].special_instructions", i), "Special instructions must be at most 200 characters")
		}
	}
	if len(in.SpecialRequests) > 500 {
		return validationError("special_requests", "Special requests must be at most 500 characters")
	}

	switch in.OrderType {
	case models.OrderTypeDelivery:
		if in.DeliveryInfo == nil || in.DeliveryInfo.Address.Street == "" {
			return validationError("delivery_info.address.street", "Delivery address is required for delivery orders")
		}
	case models.OrderTypeDineIn:
		if in.TableNumber == nil || *in.TableNumber < 1 {
			return validationError("table_number", "Table number is required for dine-in orders")
		}
	case models.OrderTypeTakeout:
	default:
		return validationError("order_type", fmt.Sprintf("Unknown order type %q", in.OrderType))
	}

	switch in.PaymentMethod {
	case models.PaymentMethodCash, models.PaymentMethodCard, models.PaymentMethodOnline, models.PaymentMethodMobile:
	default:
		return validationError("payment_method", fmt.Sprintf("Unknown payment method %q", in.PaymentMethod))
	}
	return nil
}

// CreateOrder prices the requested items against the current catalog and
// stores the order. When the input carries an idempotency key the customer
// already used, the existing order is returned and created is false.
func (s *OrderService) CreateOrder(ctx context.Context, actor Actor, in CreateOrderInput) (order *models.Order, created bool, err error) {
	if err := in.validate(); err != nil {
		return nil, false, err
	}

	var key *string
	if in.IdempotencyKey != "" {
		parsed, err := uuid.Parse(in.IdempotencyKey)
		if err != nil {
			return nil, false, validationError("Idempotency-Key", "Idempotency key must be a UUID")
		}
		canonical := parsed.String()
		key = &canonical

		existing, err := s.orders.FindByIdempotencyKey(ctx, actor.UserID, canonical)
		if err == nil {
			return existing, false, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, false, err
		}
	}

	items, err := s.snapshotItems(ctx, in.Items)
	if err != nil {
		return nil, false, err
	}

	now := s.now()
	order = &models.Order{
		CustomerID:      actor.UserID,
		OrderType:       in.OrderType,
		Items:           items,
		SpecialRequests: in.SpecialRequests,
		IdempotencyKey:  key,
		Payment: models.Payment{
			Method: in.PaymentMethod,
			Status: models.PaymentStatusPending,
		},
		Status: s.initialStatus,
		StatusHistory: []models.StatusHistoryEntry{{
			Status:      s.initialStatus,
			UpdatedByID: actor.idPtr(),
			Notes:       "Order created",
			Timestamp:   now,
		}},
		EstimatedReadyTime: now.Add(s.pricing.PrepTime),
	}
	s.pricing.ComputeTotals(items, in.OrderType, 0).Apply(order)

	if in.PaymentMethod != models.PaymentMethodCash {
		// Payments are simulated; no gateway is contacted
		order.Payment.Status = models.PaymentStatusProcessing
		order.Payment.TransactionID = "SIM-" + uuid.NewString()
	}
	switch in.OrderType {
	case models.OrderTypeDelivery:
		order.DeliveryInfo = models.DeliveryInfo{
			Address:               in.DeliveryInfo.Address,
			Phone:                 in.DeliveryInfo.Phone,
			Instructions:          in.DeliveryInfo.Instructions,
			EstimatedDeliveryTime: timeRef(order.EstimatedReadyTime.Add(deliveryWindow)),
		}
	case models.OrderTypeDineIn:
		table := *in.TableNumber
		order.TableNumber = &table
	}

	if err := s.insert(ctx, order, now); err != nil {
		if key != nil && errors.Is(err, repository.ErrDuplicate) {
			// Lost a race with a retry of the same request
			if existing, findErr := s.orders.FindByIdempotencyKey(ctx, actor.UserID, *key); findErr == nil {
				return existing, false, nil
			}
		}
		return nil, false, fromRepository(err, CodeOrderNotFound, "Order not found")
	}

	publish(ctx, s.publisher, EventOrderCreated, now, orderEvent(order, "", ""))
	return order, true, nil
}

// insert assigns the next order number and stores the order
func (s *OrderService) insert(ctx context.Context, order *models.Order, now time.Time) error {
	s.createMu.Lock()
	defer s.createMu.Unlock()

	count, err := s.orders.Count(ctx)
	if err != nil {
		return err
	}
	order.OrderNumber = fmt.Sprintf("ORD-%d-%04d", now.UnixMilli(), count+1)
	return s.orders.Create(ctx, order)
}

// snapshotItems freezes the current name and price of every requested item
func (s *OrderService) snapshotItems(ctx context.Context, requested []OrderItemInput) ([]models.OrderItem, error) {
	ids := make([]uint, 0, len(requested))
	for _, r := range requested {
		ids = append(ids, r.MenuItemID)
	}
	catalog, err := s.catalog.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	items := make([]models.OrderItem, 0, len(requested))
	for _, r := range requested {
		menuItem, ok := catalog[r.MenuItemID]
		if !ok {
			return nil, notFoundError(CodeMenuItemNotFound, fmt.Sprintf("Menu item %d not found", r.MenuItemID))
		}
		if !menuItem.Available {
			return nil, &Error{
				Kind:    ErrUnavailable,
				Code:    CodeItemUnavailable,
				Message: fmt.Sprintf("%s is currently unavailable", menuItem.Name),
			}
		}
		items = append(items, models.OrderItem{
			MenuItemID:          menuItem.ID,
			Name:                menuItem.Name,
			Price:               menuItem.Price,
			Quantity:            r.Quantity,
			SpecialInstructions: r.SpecialInstructions,
		})
	}
	return items, nil
}

// UpdateStatus moves an order along its lifecycle. Staff and admins only.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID uint, status, notes string, actor Actor) (*models.Order, error) {
	if !actor.IsStaff() {
		return nil, forbiddenError("Only staff can update order status")
	}
	if !models.ValidOrderStatus(status) {
		return nil, validationError("status", fmt.Sprintf("Unknown order status %q", status))
	}
	return s.transition(ctx, orderID, func(order *models.Order) (string, error) {
		return status, nil
	}, notes, actor)
}

// Cancel cancels a non-terminal order. The owner or staff may cancel.
func (s *OrderService) Cancel(ctx context.Context, orderID uint, reason string, actor Actor) (*models.Order, error) {
	if reason == "" {
		reason = "Order cancelled by user"
	}
	return s.transition(ctx, orderID, func(order *models.Order) (string, error) {
		if order.CustomerID != actor.UserID && !actor.IsStaff() {
			return "", forbiddenError("You can only cancel your own orders")
		}
		return models.OrderStatusCancelled, nil
	}, reason, actor)
}

func (s *OrderService) transition(ctx context.Context, orderID uint, target func(*models.Order) (string, error), notes string, actor Actor) (*models.Order, error) {
	order, previous, now, err := s.applyTransition(ctx, orderID, target, notes, actor)
	if err != nil {
		return nil, err
	}

	eventType := EventOrderStatusChanged
	if order.Status == models.OrderStatusCancelled {
		eventType = EventOrderCancelled
	}
	publish(ctx, s.publisher, eventType, now, orderEvent(order, previous, notes))
	return order, nil
}

// applyTransition moves the order to its target status while holding the
// order's lock. Events are published by the caller once the lock is released.
func (s *OrderService) applyTransition(ctx context.Context, orderID uint, target func(*models.Order) (string, error), notes string, actor Actor) (order *models.Order, previous string, now time.Time, err error) {
	unlock := s.locks.Lock(orderID)
	defer unlock()

	order, err = s.load(ctx, orderID)
	if err != nil {
		return nil, "", now, err
	}
	status, err := target(order)
	if err != nil {
		return nil, "", now, err
	}

	previous = order.Status
	now = s.now()
	if err := TransitionOrder(order, status, actor.idPtr(), notes, now); err != nil {
		return nil, "", now, err
	}
	if err := s.orders.Save(ctx, order); err != nil {
		return nil, "", now, fromRepository(err, CodeOrderNotFound, "Order not found")
	}
	return order, previous, now, nil
}

// RatingInput is the customer's rating of a delivered order
type RatingInput struct {
	Overall  int    `json:"overall" binding:"required,min=1,max=5"`
	Food     *int   `json:"food" binding:"omitempty,min=1,max=5"`
	Service  *int   `json:"service" binding:"omitempty,min=1,max=5"`
	Delivery *int   `json:"delivery" binding:"omitempty,min=1,max=5"`
	Comment  string `json:"comment" binding:"max=500"`
}

func (in RatingInput) validate() error {
	scores := []struct {
		field string
		value *int
	}{
		{"overall", &in.Overall},
		{"food", in.Food},
		{"service", in.Service},
		{"delivery", in.Delivery},
	}
	for _, score := range scores {
		if score.value != nil && (*score.value < 1 || *score.value > 5) {
			return validationError(score.field, "Rating must be between 1 and 5")
		}
	}
	if len(in.Comment) > 500 {
		return validationError("comment", "Comment must be at most 500 characters")
	}
	return nil
}

// Rate records the owner's rating of a delivered order. An order is rated once.
func (s *OrderService) Rate(ctx context.Context, orderID uint, in RatingInput, actor Actor) (*models.Order, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(orderID)
	defer unlock()

	order, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.CustomerID != actor.UserID {
		return nil, forbiddenError("You can only rate your own orders")
	}
	if order.Status != models.OrderStatusDelivered {
		return nil, &Error{Kind: ErrInvalidState, Code: CodeInvalidState, Message: "Only delivered orders can be rated"}
	}
	if order.IsRated() {
		return nil, &Error{Kind: ErrAlreadyRated, Code: CodeAlreadyRated, Message: "Order has already been rated"}
	}

	overall := in.Overall
	order.Rating = models.OrderRating{
		Overall:  &overall,
		Food:     in.Food,
		Service:  in.Service,
		Delivery: in.Delivery,
		Comment:  in.Comment,
		RatedAt:  timeRef(s.now()),
	}
	if err := s.orders.Save(ctx, order); err != nil {
		return nil, fromRepository(err, CodeOrderNotFound, "Order not found")
	}
	return order, nil
}

// Get returns an order visible to the actor: their own, or any for staff
func (s *OrderService) Get(ctx context.Context, orderID uint, actor Actor) (*models.Order, error) {
	order, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.CustomerID != actor.UserID && !actor.IsStaff() {
		return nil, forbiddenError("Access denied")
	}
	return order, nil
}

// List returns one page of orders. Customers only ever see their own.
func (s *OrderService) List(ctx context.Context, q repository.OrderQuery, actor Actor) ([]models.Order, int64, error) {
	if !actor.IsStaff() {
		id := actor.UserID
		q.CustomerID = &id
	}
	return s.orders.List(ctx, q)
}

// Stats summarizes order activity
func (s *OrderService) Stats(ctx context.Context) (*repository.OrderStats, error) {
	return s.orders.Stats(ctx, s.now())
}

func (s *OrderService) load(ctx context.Context, id uint) (*models.Order, error) {
	order, err := s.orders.FindByID(ctx, id)
	if err != nil {
		return nil, fromRepository(err, CodeOrderNotFound, "Order not found")
	}
	return order, nil
}

func orderEvent(order *models.Order, previous, notes string) OrderEvent {
	return OrderEvent{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		CustomerID:  order.CustomerID,
		OrderType:   order.OrderType,
		Status:      order.Status,
		Previous:    previous,
		Total:       order.Total,
		Notes:       notes,
	}
}

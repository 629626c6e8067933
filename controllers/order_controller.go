package controllers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tablefire/ordering-api/models"
	"github.com/tablefire/ordering-api/repository"
	"github.com/tablefire/ordering-api/services"
)

// IdempotencyKeyHeader carries the client's retry key on order creation
const IdempotencyKeyHeader = "Idempotency-Key"

// OrderController serves the /orders endpoints
type OrderController struct {
	orders *services.OrderService
}

// NewOrderController creates an OrderController
func NewOrderController(orders *services.OrderService) *OrderController {
	return &OrderController{orders: orders}
}

// UpdateStatusRequest is the body of PATCH /orders/:id/status
type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
	Notes  string `json:"notes" binding:"max=500"`
}

// CancelOrderRequest is the optional body of PATCH /orders/:id/cancel
type CancelOrderRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

// CreateOrder handles POST /api/v1/orders
func (oc *OrderController) CreateOrder(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req services.CreateOrderInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}
	req.IdempotencyKey = c.GetHeader(IdempotencyKeyHeader)

	order, created, err := oc.orders.CreateOrder(c.Request.Context(), actor, req)
	if err != nil {
		handleError(c, err)
		return
	}

	status := http.StatusCreated
	if !created {
		status = http.StatusOK
	}
	respond(c, status, order)
}

// ListOrders handles GET /api/v1/orders
// Customers only see their own orders. Staff can filter by customer_id.
func (oc *OrderController) ListOrders(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	q := repository.OrderQuery{
		Status:    c.Query("status"),
		OrderType: c.Query("order_type"),
		Page:      pageFromQuery(c),
	}
	if q.Status != "" && !models.ValidOrderStatus(q.Status) {
		respondError(c, http.StatusBadRequest, services.CodeValidation, fmt.Sprintf("Unknown order status %q", q.Status))
		return
	}

	if raw := c.Query("customer_id"); raw != "" && actor.IsStaff() {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			respondError(c, http.StatusBadRequest, services.CodeValidation, "customer_id must be a number")
			return
		}
		customerID := uint(id)
		q.CustomerID = &customerID
	}

	var err error
	if q.From, err = optionalTime(c, "from"); err != nil {
		respondError(c, http.StatusBadRequest, services.CodeValidation, "from must be a date (YYYY-MM-DD) or RFC 3339 timestamp")
		return
	}
	if q.To, err = optionalTime(c, "to"); err != nil {
		respondError(c, http.StatusBadRequest, services.CodeValidation, "to must be a date (YYYY-MM-DD) or RFC 3339 timestamp")
		return
	}

	orders, total, err := oc.orders.List(c.Request.Context(), q, actor)
	if err != nil {
		handleError(c, err)
		return
	}
	respondPage(c, orders, q.Page, total)
}

// GetOrder handles GET /api/v1/orders/:id
func (oc *OrderController) GetOrder(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	order, err := oc.orders.Get(c.Request.Context(), id, actor)
	if err != nil {
		handleError(c, err)
		return
	}
	respond(c, http.StatusOK, order)
}

// UpdateOrderStatus handles PATCH /api/v1/orders/:id/status (staff and admins)
func (oc *OrderController) UpdateOrderStatus(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	order, err := oc.orders.UpdateStatus(c.Request.Context(), id, req.Status, req.Notes, actor)
	if err != nil {
		handleError(c, err)
		return
	}
	respond(c, http.StatusOK, order)
}

// CancelOrder handles PATCH /api/v1/orders/:id/cancel
func (oc *OrderController) CancelOrder(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req CancelOrderRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindingError(c, err)
			return
		}
	}

	order, err := oc.orders.Cancel(c.Request.Context(), id, req.Reason, actor)
	if err != nil {
		handleError(c, err)
		return
	}
	respond(c, http.StatusOK, order)
}

// RateOrder handles POST /api/v1/orders/:id/rating
func (oc *OrderController) RateOrder(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req services.RatingInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	order, err := oc.orders.Rate(c.Request.Context(), id, req, actor)
	if err != nil {
		handleError(c, err)
		return
	}
	respond(c, http.StatusOK, order)
}

// GetOrderStats handles GET /api/v1/orders/stats (admins)
func (oc *OrderController) GetOrderStats(c *gin.Context) {
	stats, err := oc.orders.Stats(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	respond(c, http.StatusOK, stats)
}

func optionalTime(c *gin.Context, key string) (*time.Time, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, raw); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, fmt.Errorf("invalid time %q", raw)
}

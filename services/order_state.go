package services

import (
	"fmt"
	"time"

	"github.com/tablefire/ordering-api/models"
)

// forwardTransitions lists the allowed non-cancel steps from each status.
// ready is resolved by order type in CanTransition.
var forwardTransitions = map[string][]string{
	models.OrderStatusPending:        {models.OrderStatusConfirmed},
	models.OrderStatusConfirmed:      {models.OrderStatusPreparing},
	models.OrderStatusPreparing:      {models.OrderStatusReady},
	models.OrderStatusOutForDelivery: {models.OrderStatusDelivered},
}

// CanTransition reports whether order may move to status
func CanTransition(order *models.Order, status string) bool {
	if order.IsTerminal() {
		return false
	}
	if status == models.OrderStatusCancelled {
		return true
	}
	if order.Status == models.OrderStatusReady {
		// Only delivery orders go out for delivery; the others are handed over directly
		if order.OrderType == models.OrderTypeDelivery {
			return status == models.OrderStatusOutForDelivery
		}
		return status == models.OrderStatusDelivered
	}
	for _, next := range forwardTransitions[order.Status] {
		if next == status {
			return true
		}
	}
	return false
}

// TransitionOrder moves order to status, appending exactly one history entry
// and applying the side effects of the target status.
func TransitionOrder(order *models.Order, status string, updatedBy *uint, notes string, now time.Time) error {
	if !models.ValidOrderStatus(status) {
		return validationError("status", fmt.Sprintf("Unknown order status %q", status))
	}
	if !CanTransition(order, status) {
		return &Error{
			Kind:    ErrInvalidTransition,
			Code:    CodeInvalidTransition,
			Message: fmt.Sprintf("Cannot change order status from %s to %s", order.Status, status),
		}
	}

	order.Status = status
	order.StatusHistory = append(order.StatusHistory, models.StatusHistoryEntry{
		OrderID:     order.ID,
		Status:      status,
		UpdatedByID: updatedBy,
		Notes:       notes,
		Timestamp:   now,
	})

	switch status {
	case models.OrderStatusReady:
		order.ActualReadyTime = timeRef(now)
	case models.OrderStatusDelivered:
		order.DeliveryInfo.ActualDeliveryTime = timeRef(now)
		order.Payment.Status = models.PaymentStatusCompleted
		order.Payment.PaidAt = timeRef(now)
	}
	return nil
}

func timeRef(t time.Time) *time.Time {
	return &t
}

package services

import (
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tablefire/ordering-api/config"
	"github.com/tablefire/ordering-api/models"
)

// MovementInput describes a requested stock movement
type MovementInput struct {
	Type      string  `json:"type"`
	Quantity  float64 `json:"quantity"`
	Reason    string  `json:"reason"`
	Reference string  `json:"reference"`
	Notes     string  `json:"notes"`
}

const (
	maxReasonLength = 200
	expiringWindow  = 7 // days
)

func validMovementType(t string) bool {
	switch t {
	case models.MovementIn, models.MovementOut, models.MovementAdjustment, models.MovementWaste, models.MovementTransfer:
		return true
	}
	return false
}

// ApplyMovement validates in against item and applies it, appending the new
// movement to item.StockMovements. item is left untouched on error.
//
// transferMode decides what a transfer does to the stock level: in
// config.TransferModeLogOnly it is only recorded, in
// config.TransferModeOutbound it behaves like "out".
func ApplyMovement(item *models.InventoryItem, in MovementInput, performedBy *uint, transferMode string, now time.Time) (*models.StockMovement, error) {
	if !validMovementType(in.Type) {
		return nil, validationError("type", "Movement type must be one of in, out, adjustment, waste, transfer")
	}
	if in.Quantity <= 0 || math.IsNaN(in.Quantity) || math.IsInf(in.Quantity, 0) {
		return nil, validationError("quantity", "Quantity must be greater than 0")
	}
	if in.Reason == "" {
		return nil, validationError("reason", "Reason is required")
	}
	if len(in.Reason) > maxReasonLength {
		return nil, validationError("reason", fmt.Sprintf("Reason must be at most %d characters", maxReasonLength))
	}

	outbound := in.Type == models.MovementOut || in.Type == models.MovementWaste ||
		(in.Type == models.MovementTransfer && transferMode == config.TransferModeOutbound)
	if outbound && in.Quantity > item.CurrentStock {
		return nil, &Error{
			Kind:    ErrInsufficientStock,
			Code:    CodeInsufficientStock,
			Message: fmt.Sprintf("Insufficient stock for this operation: %s %s available", formatQuantity(item.CurrentStock), item.Unit),
			Field:   "quantity",
		}
	}

	switch {
	case in.Type == models.MovementIn:
		item.CurrentStock = addQuantity(item.CurrentStock, in.Quantity)
		restocked := now
		item.LastRestocked = &restocked
	case outbound:
		item.CurrentStock = math.Max(0, addQuantity(item.CurrentStock, -in.Quantity))
	case in.Type == models.MovementAdjustment:
		item.CurrentStock = in.Quantity
	}

	item.StockMovements = append(item.StockMovements, models.StockMovement{
		InventoryItemID: item.ID,
		Type:            in.Type,
		Quantity:        in.Quantity,
		Reason:          in.Reason,
		Reference:       in.Reference,
		PerformedByID:   performedBy,
		Notes:           in.Notes,
		Timestamp:       now,
	})
	return &item.StockMovements[len(item.StockMovements)-1], nil
}

// EvaluateAlerts returns the alerts item should raise at now. An alert is not
// raised again while an active alert of the same type exists, so calling it
// twice on unchanged state yields nothing new the second time.
func EvaluateAlerts(item *models.InventoryItem, now time.Time) []models.InventoryAlert {
	var raised []models.InventoryAlert
	raise := func(alertType, message string) {
		if item.HasActiveAlert(alertType) {
			return
		}
		raised = append(raised, models.InventoryAlert{
			InventoryItemID: item.ID,
			Type:            alertType,
			Message:         message,
			IsActive:        true,
			CreatedAt:       now,
		})
	}

	if item.CurrentStock <= item.MinimumStock {
		raise(models.AlertLowStock, fmt.Sprintf("%s is running low (%s %s remaining)",
			item.Name, formatQuantity(item.CurrentStock), item.Unit))
	}

	if days := item.DaysUntilExpiry(now); days != nil {
		switch {
		case *days <= 0:
			raise(models.AlertExpired, fmt.Sprintf("%s has expired", item.Name))
		case *days <= expiringWindow:
			raise(models.AlertExpiringSoon, fmt.Sprintf("%s expires in %d days", item.Name, *days))
		}
	}

	if item.MaximumStock != nil && *item.MaximumStock > 0 && item.CurrentStock >= *item.MaximumStock {
		raise(models.AlertOverstock, fmt.Sprintf("%s is overstocked (%s %s)",
			item.Name, formatQuantity(item.CurrentStock), item.Unit))
	}
	return raised
}

// addQuantity sums in decimal so repeated movements do not accumulate float drift
func addQuantity(a, b float64) float64 {
	return decimal.NewFromFloat(a).Add(decimal.NewFromFloat(b)).InexactFloat64()
}

func formatQuantity(q float64) string {
	return decimal.NewFromFloat(q).String()
}

package models

import (
	"math"
	"time"

	"gorm.io/gorm"
)

// Stock movement types
const (
	MovementIn         = "in"
	MovementOut        = "out"
	MovementAdjustment = "adjustment"
	MovementWaste      = "waste"
	MovementTransfer   = "transfer"
)

// Alert types
const (
	AlertLowStock     = "low-stock"
	AlertExpiringSoon = "expiring-soon"
	AlertExpired      = "expired"
	AlertOverstock    = "overstock"
)

// Stock statuses derived from the current stock level
const (
	StockStatusOutOfStock = "out-of-stock"
	StockStatusLow        = "low-stock"
	StockStatusOverstock  = "overstock"
	StockStatusInStock    = "in-stock"
)

// InventoryCategories lists the closed set of inventory categories
var InventoryCategories = []string{"vegetables", "spices", "grains", "proteins", "oils", "beverages", "dairy", "condiments", "equipment"}

// InventoryUnits lists the closed set of stock units
var InventoryUnits = []string{"kg", "g", "lbs", "oz", "liters", "ml", "pieces", "bottles", "cans", "bags", "boxes"}

// Supplier of an inventory item
type Supplier struct {
	Name         string `gorm:"not null;index:idx_inventory_items_supplier_name" json:"name"`
	Phone        string `json:"phone,omitempty"`
	Email        string `json:"email,omitempty"`
	Address      string `json:"address,omitempty"`
	LeadTimeDays *int   `json:"lead_time_days,omitempty"`
}

// StorageLocation is where the item is kept
type StorageLocation struct {
	Warehouse string `json:"warehouse,omitempty"`
	Section   string `json:"section,omitempty"`
	Shelf     string `json:"shelf,omitempty"`
}

// InventoryItem is a stocked ingredient or supply. CurrentStock is only ever
// changed through stock movements.
type InventoryItem struct {
	ID             uint             `gorm:"primaryKey" json:"id"`
	Name           string           `gorm:"size:100;uniqueIndex;not null" json:"name"`
	Category       string           `gorm:"not null;index" json:"category"`
	CurrentStock   float64          `gorm:"not null;check:current_stock >= 0" json:"current_stock"`
	MinimumStock   float64          `gorm:"not null" json:"minimum_stock"`
	MaximumStock   *float64         `json:"maximum_stock"`
	Unit           string           `gorm:"not null" json:"unit"`
	CostPerUnit    float64          `gorm:"not null" json:"cost_per_unit"`
	Supplier       Supplier         `gorm:"embedded;embeddedPrefix:supplier_" json:"supplier"`
	Location       StorageLocation  `gorm:"embedded;embeddedPrefix:location_" json:"location"`
	ExpiryDate     *time.Time       `gorm:"index" json:"expiry_date"`
	BatchNumber    string           `json:"batch_number,omitempty"`
	LastRestocked  *time.Time       `json:"last_restocked"`
	IsPerishable   bool             `gorm:"not null" json:"is_perishable"`
	StockMovements []StockMovement  `gorm:"foreignKey:InventoryItemID" json:"stock_movements,omitempty"`
	Alerts         []InventoryAlert `gorm:"foreignKey:InventoryItemID" json:"alerts,omitempty"`
	StockStatus    string           `gorm:"-" json:"stock_status"`
	DaysToExpiry   *int             `gorm:"-" json:"days_until_expiry"`
	Version        int              `gorm:"not null;default:1" json:"-"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
	DeletedAt      gorm.DeletedAt   `gorm:"index" json:"-"`
}

// TableName specifies the table name for the InventoryItem model
func (InventoryItem) TableName() string {
	return "inventory_items"
}

// StockMovement is an append-only record of a quantity change
type StockMovement struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	InventoryItemID uint      `gorm:"not null;index" json:"inventory_item_id"`
	Type            string    `gorm:"not null" json:"type"`
	Quantity        float64   `gorm:"not null" json:"quantity"`
	Reason          string    `json:"reason,omitempty"`
	Reference       string    `json:"reference,omitempty"` // order number, transfer id, etc.
	PerformedByID   *uint     `json:"performed_by"`
	Notes           string    `json:"notes,omitempty"`
	Timestamp       time.Time `gorm:"not null;index" json:"timestamp"`
}

// TableName specifies the table name for the StockMovement model
func (StockMovement) TableName() string {
	return "stock_movements"
}

// InventoryAlert is a derived, acknowledgeable notification about stock or expiry
type InventoryAlert struct {
	ID               uint       `gorm:"primaryKey" json:"id"`
	InventoryItemID  uint       `gorm:"not null;index" json:"inventory_item_id"`
	Type             string     `gorm:"not null" json:"type"`
	Message          string     `json:"message"`
	IsActive         bool       `gorm:"not null;index" json:"is_active"`
	CreatedAt        time.Time  `json:"created_at"`
	AcknowledgedByID *uint      `json:"acknowledged_by"`
	AcknowledgedAt   *time.Time `json:"acknowledged_at"`
}

// TableName specifies the table name for the InventoryAlert model
func (InventoryAlert) TableName() string {
	return "inventory_alerts"
}

// CurrentStockStatus derives the stock status from the current level.
// Out of stock wins over low stock, which wins over overstock.
func (i *InventoryItem) CurrentStockStatus() string {
	switch {
	case i.CurrentStock <= 0:
		return StockStatusOutOfStock
	case i.CurrentStock <= i.MinimumStock:
		return StockStatusLow
	case i.MaximumStock != nil && *i.MaximumStock > 0 && i.CurrentStock >= *i.MaximumStock:
		return StockStatusOverstock
	}
	return StockStatusInStock
}

// DaysUntilExpiry returns ceil((expiry - now) / 24h), or nil when no expiry is set
func (i *InventoryItem) DaysUntilExpiry(now time.Time) *int {
	if i.ExpiryDate == nil {
		return nil
	}
	days := int(math.Ceil(i.ExpiryDate.Sub(now).Hours() / 24))
	return &days
}

// Derive fills the computed fields for presentation
func (i *InventoryItem) Derive(now time.Time) {
	i.StockStatus = i.CurrentStockStatus()
	i.DaysToExpiry = i.DaysUntilExpiry(now)
}

// HasActiveAlert reports whether an unacknowledged alert of the given type exists
func (i *InventoryItem) HasActiveAlert(alertType string) bool {
	for _, a := range i.Alerts {
		if a.Type == alertType && a.IsActive {
			return true
		}
	}
	return false
}

// ValidInventoryCategory reports whether category is in the closed set
func ValidInventoryCategory(category string) bool {
	return contains(InventoryCategories, category)
}

// ValidInventoryUnit reports whether unit is in the closed set
func ValidInventoryUnit(unit string) bool {
	return contains(InventoryUnits, unit)
}

func contains(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}

package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tablefire/ordering-api/models"
	"gorm.io/gorm"
)

// InventoryRepository persists inventory items with their movements and alerts
type InventoryRepository struct {
	db *gorm.DB
}

// NewInventoryRepository creates an InventoryRepository
func NewInventoryRepository(db *gorm.DB) *InventoryRepository {
	return &InventoryRepository{db: db}
}

// Create inserts an item together with its initial movements and alerts
func (r *InventoryRepository) Create(ctx context.Context, item *models.InventoryItem) error {
	if item.Version == 0 {
		item.Version = 1
	}
	return translateError(r.db.WithContext(ctx).Create(item).Error)
}

// FindByID loads an item with its movements (oldest first) and alerts
func (r *InventoryRepository) FindByID(ctx context.Context, id uint) (*models.InventoryItem, error) {
	var item models.InventoryItem
	err := r.db.WithContext(ctx).
		Preload("StockMovements", func(db *gorm.DB) *gorm.DB {
			return db.Order("timestamp ASC, id ASC")
		}).
		Preload("Alerts", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC, id ASC")
		}).
		First(&item, id).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &item, nil
}

// Save writes the item guarded by its version, appends new movements and
// upserts its alerts, all in one transaction.
func (r *InventoryRepository) Save(ctx context.Context, item *models.InventoryItem) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := saveVersioned(tx, item, &item.Version); err != nil {
			return err
		}
		for i := range item.StockMovements {
			movement := &item.StockMovements[i]
			if movement.ID != 0 {
				continue
			}
			movement.InventoryItemID = item.ID
			if err := tx.Create(movement).Error; err != nil {
				return err
			}
		}
		for i := range item.Alerts {
			alert := &item.Alerts[i]
			alert.InventoryItemID = item.ID
			if err := tx.Save(alert).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// Delete soft-deletes an item
func (r *InventoryRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.InventoryItem{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns one page of items matching q sorted by name, without children
func (r *InventoryRepository) List(ctx context.Context, q InventoryQuery) ([]models.InventoryItem, int64, error) {
	var total int64
	if err := q.filter(r.db.WithContext(ctx).Model(&models.InventoryItem{})).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	items := []models.InventoryItem{}
	err := q.Page.apply(q.filter(r.db.WithContext(ctx))).
		Order("name ASC, id ASC").
		Find(&items).Error
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// ActiveAlert is an unacknowledged alert with the name of its item
type ActiveAlert struct {
	models.InventoryAlert
	ItemName string `json:"item_name"`
}

// ActiveAlerts returns every unacknowledged alert of live items, newest first
func (r *InventoryRepository) ActiveAlerts(ctx context.Context) ([]ActiveAlert, error) {
	alerts := []ActiveAlert{}
	err := r.db.WithContext(ctx).
		Table("inventory_alerts").
		Select("inventory_alerts.*, inventory_items.name AS item_name").
		Joins("JOIN inventory_items ON inventory_items.id = inventory_alerts.inventory_item_id AND inventory_items.deleted_at IS NULL").
		Where("inventory_alerts.is_active = ?", true).
		Order("inventory_alerts.created_at DESC, inventory_alerts.id DESC").
		Scan(&alerts).Error
	return alerts, err
}

// RecentMovement is a stock movement with the name of its item
type RecentMovement struct {
	models.StockMovement
	ItemName string `json:"item_name"`
}

// CategorySummary aggregates the items of one category
type CategorySummary struct {
	Category string  `json:"category"`
	Items    int64   `json:"items"`
	Value    float64 `json:"value"`
}

// InventoryStats is the dashboard summary of the inventory
type InventoryStats struct {
	TotalItems      int64             `json:"total_items"`
	LowStockItems   int64             `json:"low_stock_items"`
	ExpiringItems   int64             `json:"expiring_items"`
	TotalValue      float64           `json:"total_value"`
	Categories      []CategorySummary `json:"categories"`
	RecentMovements []RecentMovement  `json:"recent_movements"`
}

// Stats summarizes the inventory relative to now
func (r *InventoryRepository) Stats(ctx context.Context, now time.Time) (*InventoryStats, error) {
	stats := &InventoryStats{Categories: []CategorySummary{}, RecentMovements: []RecentMovement{}}
	items := func() *gorm.DB { return r.db.WithContext(ctx).Model(&models.InventoryItem{}) }

	if err := items().Count(&stats.TotalItems).Error; err != nil {
		return nil, err
	}
	if err := (InventoryQuery{LowStock: true}).filter(items()).Count(&stats.LowStockItems).Error; err != nil {
		return nil, err
	}
	if err := (InventoryQuery{ExpiringSoon: true, Now: now}).filter(items()).Count(&stats.ExpiringItems).Error; err != nil {
		return nil, err
	}

	// Valuation is summed in decimal to keep cents exact
	var rows []struct {
		Category     string
		CurrentStock float64
		CostPerUnit  float64
	}
	if err := items().Select("category, current_stock, cost_per_unit").Order("category").Scan(&rows).Error; err != nil {
		return nil, err
	}
	total := decimal.Zero
	byCategory := map[string]decimal.Decimal{}
	counts := map[string]int64{}
	var order []string
	for _, row := range rows {
		value := decimal.NewFromFloat(row.CurrentStock).Mul(decimal.NewFromFloat(row.CostPerUnit))
		total = total.Add(value)
		if _, seen := counts[row.Category]; !seen {
			order = append(order, row.Category)
		}
		counts[row.Category]++
		byCategory[row.Category] = byCategory[row.Category].Add(value)
	}
	stats.TotalValue = total.Round(2).InexactFloat64()
	for _, category := range order {
		stats.Categories = append(stats.Categories, CategorySummary{
			Category: category,
			Items:    counts[category],
			Value:    byCategory[category].Round(2).InexactFloat64(),
		})
	}

	err := r.db.WithContext(ctx).
		Table("stock_movements").
		Select("stock_movements.*, inventory_items.name AS item_name").
		Joins("JOIN inventory_items ON inventory_items.id = stock_movements.inventory_item_id").
		Order("stock_movements.timestamp DESC, stock_movements.id DESC").
		Limit(10).
		Scan(&stats.RecentMovements).Error
	if err != nil {
		return nil, err
	}
	return stats, nil
}

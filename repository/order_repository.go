package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tablefire/ordering-api/models"
	"gorm.io/gorm"
)

// OrderRepository persists orders with their line items and status history
type OrderRepository struct {
	db *gorm.DB
}

// NewOrderRepository creates an OrderRepository
func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// Create inserts an order together with its items and initial history.
// ErrDuplicate when the order number or the customer's idempotency key exists.
func (r *OrderRepository) Create(ctx context.Context, order *models.Order) error {
	if order.Version == 0 {
		order.Version = 1
	}
	return translateError(r.db.WithContext(ctx).Omit("Customer").Create(order).Error)
}

func (r *OrderRepository) withChildren(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("id ASC")
		}).
		Preload("StatusHistory", func(db *gorm.DB) *gorm.DB {
			return db.Order("timestamp ASC, id ASC")
		})
}

// FindByID loads an order with items and status history
func (r *OrderRepository) FindByID(ctx context.Context, id uint) (*models.Order, error) {
	var order models.Order
	if err := r.withChildren(ctx).Preload("Customer").First(&order, id).Error; err != nil {
		return nil, translateError(err)
	}
	return &order, nil
}

// FindByIdempotencyKey loads the order a customer created with key
func (r *OrderRepository) FindByIdempotencyKey(ctx context.Context, customerID uint, key string) (*models.Order, error) {
	var order models.Order
	err := r.withChildren(ctx).
		Where("customer_id = ? AND idempotency_key = ?", customerID, key).
		First(&order).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &order, nil
}

// Save writes the order guarded by its version and appends any history
// entries that have not been persisted yet. Line items are immutable.
func (r *OrderRepository) Save(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := saveVersioned(tx, order, &order.Version); err != nil {
			return err
		}
		for i := range order.StatusHistory {
			entry := &order.StatusHistory[i]
			if entry.ID != 0 {
				continue
			}
			entry.OrderID = order.ID
			if err := tx.Create(entry).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// Count returns how many orders were ever created, including soft-deleted ones
func (r *OrderRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Unscoped().Model(&models.Order{}).Count(&count).Error
	return count, err
}

// List returns one page of orders matching q, newest first
func (r *OrderRepository) List(ctx context.Context, q OrderQuery) ([]models.Order, int64, error) {
	var total int64
	if err := q.filter(r.db.WithContext(ctx).Model(&models.Order{})).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	orders := []models.Order{}
	err := q.Page.apply(q.filter(r.withChildren(ctx))).
		Order("created_at DESC, id DESC").
		Find(&orders).Error
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// HasDeliveredItem reports whether the customer received an order containing the menu item
func (r *OrderRepository) HasDeliveredItem(ctx context.Context, customerID, menuItemID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.OrderItem{}).
		Joins("JOIN orders ON orders.id = order_items.order_id AND orders.deleted_at IS NULL").
		Where("orders.customer_id = ? AND orders.status = ? AND order_items.menu_item_id = ?",
			customerID, models.OrderStatusDelivered, menuItemID).
		Count(&count).Error
	return count > 0, err
}

// PeriodSummary aggregates orders created since a point in time
type PeriodSummary struct {
	Orders  int64   `json:"orders"`
	Revenue float64 `json:"revenue"`
}

// OrderStats is the dashboard summary of order activity
type OrderStats struct {
	Today           PeriodSummary    `json:"today"`
	Week            PeriodSummary    `json:"week"`
	Month           PeriodSummary    `json:"month"`
	Total           PeriodSummary    `json:"total"`
	StatusBreakdown map[string]int64 `json:"status_breakdown"`
}

// Stats summarizes orders relative to now. Revenue excludes cancelled orders.
func (r *OrderRepository) Stats(ctx context.Context, now time.Time) (*OrderStats, error) {
	stats := &OrderStats{StatusBreakdown: map[string]int64{}}
	periods := []struct {
		since time.Time // zero means all time
		out   *PeriodSummary
	}{
		{time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()), &stats.Today},
		{now.AddDate(0, 0, -7), &stats.Week},
		{time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()), &stats.Month},
		{time.Time{}, &stats.Total},
	}

	for _, p := range periods {
		base := func() *gorm.DB {
			q := r.db.WithContext(ctx).Model(&models.Order{})
			if !p.since.IsZero() {
				q = q.Where("created_at >= ?", p.since)
			}
			return q
		}
		if err := base().Count(&p.out.Orders).Error; err != nil {
			return nil, err
		}
		var revenue float64
		err := base().
			Where("status <> ?", models.OrderStatusCancelled).
			Select("COALESCE(SUM(total), 0)").
			Scan(&revenue).Error
		if err != nil {
			return nil, err
		}
		p.out.Revenue = decimal.NewFromFloat(revenue).Round(2).InexactFloat64()
	}

	var rows []struct {
		Status string
		Count  int64
	}
	err := r.db.WithContext(ctx).Model(&models.Order{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		stats.StatusBreakdown[row.Status] = row.Count
	}
	return stats, nil
}

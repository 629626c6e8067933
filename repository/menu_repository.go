package repository

import (
	"context"

	"github.com/tablefire/ordering-api/models"
	"gorm.io/gorm"
)

// MenuRepository persists menu items and their reviews
type MenuRepository struct {
	db *gorm.DB
}

// NewMenuRepository creates a MenuRepository
func NewMenuRepository(db *gorm.DB) *MenuRepository {
	return &MenuRepository{db: db}
}

// Create inserts a menu item
func (r *MenuRepository) Create(ctx context.Context, item *models.MenuItem) error {
	if item.Version == 0 {
		item.Version = 1
	}
	return translateError(r.db.WithContext(ctx).Omit("Reviews").Create(item).Error)
}

// FindByID loads a menu item; withReviews also loads its reviews, oldest first
func (r *MenuRepository) FindByID(ctx context.Context, id uint, withReviews bool) (*models.MenuItem, error) {
	query := r.db.WithContext(ctx)
	if withReviews {
		query = query.Preload("Reviews", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC, id ASC")
		}).Preload("Reviews.User")
	}

	var item models.MenuItem
	if err := query.First(&item, id).Error; err != nil {
		return nil, translateError(err)
	}
	return &item, nil
}

// FindByIDs loads the menu items with the given ids, keyed by id.
// Missing ids are simply absent from the map.
func (r *MenuRepository) FindByIDs(ctx context.Context, ids []uint) (map[uint]models.MenuItem, error) {
	items := make(map[uint]models.MenuItem, len(ids))
	if len(ids) == 0 {
		return items, nil
	}

	var found []models.MenuItem
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&found).Error; err != nil {
		return nil, err
	}
	for _, item := range found {
		items[item.ID] = item
	}
	return items, nil
}

// Save writes the menu item guarded by its version
func (r *MenuRepository) Save(ctx context.Context, item *models.MenuItem) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return saveVersioned(tx, item, &item.Version)
	})
}

// AddReview inserts a review and writes the recomputed rating aggregate of
// item in one transaction. ErrDuplicate when the user already reviewed it.
func (r *MenuRepository) AddReview(ctx context.Context, item *models.MenuItem, review *models.Review) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		review.MenuItemID = item.ID
		if err := tx.Omit("User").Create(review).Error; err != nil {
			return translateError(err)
		}
		return saveVersioned(tx, item, &item.Version)
	})
}

// Delete soft-deletes a menu item. Existing orders keep their snapshots.
func (r *MenuRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.MenuItem{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns one page of menu items matching q and the total match count
func (r *MenuRepository) List(ctx context.Context, q MenuQuery) ([]models.MenuItem, int64, error) {
	var total int64
	if err := q.filter(r.db.WithContext(ctx).Model(&models.MenuItem{})).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	items := []models.MenuItem{}
	err := q.Page.apply(q.filter(r.db.WithContext(ctx))).
		Order(q.order()).
		Find(&items).Error
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// Featured returns available featured items, best rated first
func (r *MenuRepository) Featured(ctx context.Context, limit int) ([]models.MenuItem, error) {
	items := []models.MenuItem{}
	err := r.db.WithContext(ctx).
		Where("featured = ? AND available = ?", true, true).
		Order("rating_average DESC, id ASC").
		Limit(limit).
		Find(&items).Error
	return items, err
}

// Categories returns the distinct categories of available items
func (r *MenuRepository) Categories(ctx context.Context) ([]string, error) {
	categories := []string{}
	err := r.db.WithContext(ctx).Model(&models.MenuItem{}).
		Where("available = ?", true).
		Distinct().
		Order("category").
		Pluck("category", &categories).Error
	return categories, err
}

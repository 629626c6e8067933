package repository

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Page selects a slice of a result set. Page numbers start at 1.
type Page struct {
	Page  int
	Limit int
}

// Normalize applies defaults and bounds
func (p Page) Normalize() Page {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = defaultPageSize
	}
	if p.Limit > maxPageSize {
		p.Limit = maxPageSize
	}
	return p
}

// Offset returns the number of rows to skip
func (p Page) Offset() int {
	n := p.Normalize()
	return (n.Page - 1) * n.Limit
}

// TotalPages returns how many pages total rows span
func (p Page) TotalPages(total int64) int {
	n := p.Normalize()
	return int((total + int64(n.Limit) - 1) / int64(n.Limit))
}

func (p Page) apply(db *gorm.DB) *gorm.DB {
	n := p.Normalize()
	return db.Offset(p.Offset()).Limit(n.Limit)
}

// Menu sort fields
const (
	MenuSortName      = "name"
	MenuSortPrice     = "price"
	MenuSortRating    = "rating"
	MenuSortCreatedAt = "created_at"
)

var menuSortColumns = map[string]string{
	MenuSortName:      "name",
	MenuSortPrice:     "price",
	MenuSortRating:    "rating_average",
	MenuSortCreatedAt: "created_at",
}

// ValidMenuSort reports whether field is a supported menu sort field
func ValidMenuSort(field string) bool {
	_, ok := menuSortColumns[field]
	return ok
}

// MenuQuery enumerates the supported menu filters and sort options
type MenuQuery struct {
	Category   string
	Available  *bool
	Featured   *bool
	MinPrice   *float64
	MaxPrice   *float64
	SpiceLevel string
	Dietary    string
	Search     string
	SortBy     string // name, price, rating, created_at
	Descending bool
	Page       Page
}

func (q MenuQuery) filter(db *gorm.DB) *gorm.DB {
	if q.Category != "" {
		db = db.Where("category = ?", q.Category)
	}
	if q.Available != nil {
		db = db.Where("available = ?", *q.Available)
	}
	if q.Featured != nil {
		db = db.Where("featured = ?", *q.Featured)
	}
	if q.MinPrice != nil {
		db = db.Where("price >= ?", *q.MinPrice)
	}
	if q.MaxPrice != nil {
		db = db.Where("price <= ?", *q.MaxPrice)
	}
	if q.SpiceLevel != "" {
		db = db.Where("spice_level = ?", q.SpiceLevel)
	}
	if q.Dietary != "" {
		// dietary is stored as a JSON array of strings
		db = db.Where("dietary LIKE ?", `%"`+q.Dietary+`"%`)
	}
	if q.Search != "" {
		like := "%" + strings.ToLower(q.Search) + "%"
		db = db.Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", like, like)
	}
	return db
}

func (q MenuQuery) order() string {
	column, ok := menuSortColumns[q.SortBy]
	if !ok {
		column = "name"
	}
	if q.Descending {
		return column + " DESC, id DESC"
	}
	return column + " ASC, id ASC"
}

// OrderQuery enumerates the supported order filters
type OrderQuery struct {
	CustomerID *uint
	Status     string
	OrderType  string
	From       *time.Time
	To         *time.Time
	Page       Page
}

func (q OrderQuery) filter(db *gorm.DB) *gorm.DB {
	if q.CustomerID != nil {
		db = db.Where("customer_id = ?", *q.CustomerID)
	}
	if q.Status != "" {
		db = db.Where("status = ?", q.Status)
	}
	if q.OrderType != "" {
		db = db.Where("order_type = ?", q.OrderType)
	}
	if q.From != nil {
		db = db.Where("created_at >= ?", *q.From)
	}
	if q.To != nil {
		db = db.Where("created_at <= ?", *q.To)
	}
	return db
}

// ExpiryWindow is how far ahead an expiry date counts as "expiring soon"
const ExpiryWindow = 7 * 24 * time.Hour

// InventoryQuery enumerates the supported inventory filters
type InventoryQuery struct {
	Category     string
	LowStock     bool
	ExpiringSoon bool
	Search       string
	Now          time.Time // reference time for ExpiringSoon
	Page         Page
}

func (q InventoryQuery) filter(db *gorm.DB) *gorm.DB {
	if q.Category != "" {
		db = db.Where("category = ?", q.Category)
	}
	if q.LowStock {
		db = db.Where("current_stock <= minimum_stock")
	}
	if q.ExpiringSoon {
		now := q.Now
		if now.IsZero() {
			now = time.Now().UTC()
		}
		db = db.Where("expiry_date >= ? AND expiry_date <= ?", now, now.Add(ExpiryWindow))
	}
	if q.Search != "" {
		db = db.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(q.Search)+"%")
	}
	return db
}

// UserQuery enumerates the supported user filters
type UserQuery struct {
	Role     string
	IsActive *bool
	Search   string // matches name or email
	Page     Page
}

func (q UserQuery) filter(db *gorm.DB) *gorm.DB {
	if q.Role != "" {
		db = db.Where("role = ?", q.Role)
	}
	if q.IsActive != nil {
		db = db.Where("is_active = ?", *q.IsActive)
	}
	if q.Search != "" {
		like := "%" + strings.ToLower(q.Search) + "%"
		db = db.Where("LOWER(name) LIKE ? OR LOWER(email) LIKE ?", like, like)
	}
	return db
}

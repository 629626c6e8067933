package testutil

import (
	"fmt"
	"testing"
	"time"

	"github.com/tablefire/ordering-api/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewTestDB opens a migrated in-memory SQLite database that is closed when the test ends
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("Failed to get database instance: %v", err)
	}
	// Every connection to :memory: is a separate database
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := db.AutoMigrate(models.AllModels()...); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}
	return db
}

// CreateUser inserts a user with the given role
func CreateUser(t *testing.T, db *gorm.DB, auth0ID, role string) *models.User {
	t.Helper()

	user := &models.User{
		Auth0ID:  auth0ID,
		Name:     "User " + auth0ID,
		Email:    fmt.Sprintf("%s@example.com", auth0ID),
		Role:     role,
		IsActive: true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}
	return user
}

// CreateMenuItem inserts an available menu item
func CreateMenuItem(t *testing.T, db *gorm.DB, name string, price float64) *models.MenuItem {
	t.Helper()

	item := &models.MenuItem{
		Name:            name,
		Description:     "Freshly made " + name,
		Price:           price,
		Category:        models.MenuCategoryMains,
		SpiceLevel:      models.SpiceMild,
		Dietary:         []string{},
		Allergens:       []string{},
		PreparationTime: 15,
		Available:       true,
		Version:         1,
	}
	if err := db.Create(item).Error; err != nil {
		t.Fatalf("Failed to create menu item: %v", err)
	}
	return item
}

// CreateInventoryItem inserts an inventory item with the given stock levels
func CreateInventoryItem(t *testing.T, db *gorm.DB, name string, current, minimum float64) *models.InventoryItem {
	t.Helper()

	item := &models.InventoryItem{
		Name:         name,
		Category:     "vegetables",
		CurrentStock: current,
		MinimumStock: minimum,
		Unit:         "kg",
		CostPerUnit:  2.5,
		Supplier:     models.Supplier{Name: "Green Farms"},
		Version:      1,
	}
	if err := db.Create(item).Error; err != nil {
		t.Fatalf("Failed to create inventory item: %v", err)
	}
	return item
}

// Date returns a UTC time for fixtures
func Date(year int, month time.Month, day, hour int) time.Time {
	return time.Date(year, month, day, hour, 0, 0, 0, time.UTC)
}

package models

import (
	"time"

	"gorm.io/gorm"
)

// Menu categories
const (
	MenuCategoryAppetizers = "appetizers"
	MenuCategoryMains      = "mains"
	MenuCategoryDesserts   = "desserts"
	MenuCategoryBeverages  = "beverages"
)

// Spice levels
const (
	SpiceMild   = "mild"
	SpiceMedium = "medium"
	SpiceHot    = "hot"
)

// MenuRating is the review-derived rating aggregate of a menu item
type MenuRating struct {
	Average float64 `gorm:"not null;default:0" json:"average"`
	Count   int     `gorm:"not null;default:0" json:"count"`
}

// MenuItem represents a dish or drink on the restaurant menu
type MenuItem struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	Name            string         `gorm:"size:100;uniqueIndex;not null" json:"name"`
	Description     string         `gorm:"size:500;not null" json:"description"`
	Price           float64        `gorm:"not null;check:price >= 0" json:"price"`
	Category        string         `gorm:"not null;index" json:"category"`
	Image           string         `json:"image"`                        // external image URL
	ImageS3Key      *string        `json:"image_s3_key,omitempty"`       // nullable, set when an image is uploaded
	ImageURL        *string        `gorm:"-" json:"image_url,omitempty"` // computed field, presigned URL for the uploaded image
	SpiceLevel      string         `gorm:"not null" json:"spice_level"`
	Dietary         []string       `gorm:"serializer:json;type:text" json:"dietary"`
	Allergens       []string       `gorm:"serializer:json;type:text" json:"allergens"`
	PreparationTime int            `gorm:"not null" json:"preparation_time"` // minutes
	Available       bool           `gorm:"not null;index" json:"available"`
	Featured        bool           `gorm:"not null;index" json:"featured"`
	Rating          MenuRating     `gorm:"embedded;embeddedPrefix:rating_" json:"rating"`
	Reviews         []Review       `gorm:"foreignKey:MenuItemID" json:"reviews,omitempty"`
	Version         int            `gorm:"not null;default:1" json:"-"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for the MenuItem model
func (MenuItem) TableName() string {
	return "menu_items"
}

// Review is a customer's rating of a menu item. A user reviews an item at most once.
type Review struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	MenuItemID uint      `gorm:"not null;uniqueIndex:idx_reviews_item_user" json:"menu_item_id"`
	UserID     uint      `gorm:"not null;uniqueIndex:idx_reviews_item_user" json:"user_id"`
	User       *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Rating     int       `gorm:"not null;check:rating >= 1 AND rating <= 5" json:"rating"`
	Comment    string    `gorm:"size:500" json:"comment,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// TableName specifies the table name for the Review model
func (Review) TableName() string {
	return "reviews"
}

// ReviewedBy reports whether userID already has a review on the item
func (m *MenuItem) ReviewedBy(userID uint) bool {
	for _, r := range m.Reviews {
		if r.UserID == userID {
			return true
		}
	}
	return false
}

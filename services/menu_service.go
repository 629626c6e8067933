package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"mime/multipart"
	"time"

	"github.com/tablefire/ordering-api/models"
	"github.com/tablefire/ordering-api/repository"
)

// MenuStore is the persistence the menu catalog needs
type MenuStore interface {
	Create(ctx context.Context, item *models.MenuItem) error
	FindByID(ctx context.Context, id uint, withReviews bool) (*models.MenuItem, error)
	Save(ctx context.Context, item *models.MenuItem) error
	AddReview(ctx context.Context, item *models.MenuItem, review *models.Review) error
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context, q repository.MenuQuery) ([]models.MenuItem, int64, error)
	Featured(ctx context.Context, limit int) ([]models.MenuItem, error)
	Categories(ctx context.Context) ([]string, error)
}

// PurchaseChecker reports whether a customer received an item
type PurchaseChecker interface {
	HasDeliveredItem(ctx context.Context, customerID, menuItemID uint) (bool, error)
}

// FeaturedLimit is how many featured items the menu highlights
const FeaturedLimit = 6

var dietaryOptions = []string{"vegetarian", "vegan", "gluten-free", "dairy-free", "halal", "kosher"}

// MenuService manages the menu catalog, reviews and item images
type MenuService struct {
	store     MenuStore
	purchases PurchaseChecker // nil disables the purchase requirement
	images    ImageService    // nil when image storage is not configured
	locks     *keyedMutex
	now       func() time.Time
}

// NewMenuService creates a MenuService. With a non-nil purchases checker
// only customers who received an item may review it.
func NewMenuService(store MenuStore, purchases PurchaseChecker, images ImageService) *MenuService {
	return &MenuService{
		store:     store,
		purchases: purchases,
		images:    images,
		locks:     newKeyedMutex(),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// MenuItemInput holds the editable fields of a menu item
type MenuItemInput struct {
	Name            string   `json:"name" binding:"required,max=100"`
	Description     string   `json:"description" binding:"required,max=500"`
	Price           float64  `json:"price" binding:"gte=0"`
	Category        string   `json:"category" binding:"required"`
	Image           string   `json:"image"`
	SpiceLevel      string   `json:"spice_level"`
	Dietary         []string `json:"dietary"`
	Allergens       []string `json:"allergens"`
	PreparationTime *int     `json:"preparation_time"`
	Available       *bool    `json:"available"`
	Featured        bool     `json:"featured"`
}

func (in *MenuItemInput) normalize() error {
	if in.SpiceLevel == "" {
		in.SpiceLevel = models.SpiceMild
	}
	if in.Dietary == nil {
		in.Dietary = []string{}
	}
	if in.Allergens == nil {
		in.Allergens = []string{}
	}

	switch {
	case in.Name == "" || len(in.Name) > 100:
		return validationError("name", "Name is required and must be at most 100 characters")
	case in.Description == "" || len(in.Description) > 500:
		return validationError("description", "Description is required and must be at most 500 characters")
	case in.Price < 0:
		return validationError("price", "Price cannot be negative")
	case in.PreparationTime != nil && *in.PreparationTime < 1:
		return validationError("preparation_time", "Preparation time must be at least 1 minute")
	}

	switch in.Category {
	case models.MenuCategoryAppetizers, models.MenuCategoryMains, models.MenuCategoryDesserts, models.MenuCategoryBeverages:
	default:
		return validationError("category", fmt.Sprintf("Unknown menu category %q", in.Category))
	}
	switch in.SpiceLevel {
	case models.SpiceMild, models.SpiceMedium, models.SpiceHot:
	default:
		return validationError("spice_level", fmt.Sprintf("Unknown spice level %q", in.SpiceLevel))
	}
	for _, d := range in.Dietary {
		if !contains(dietaryOptions, d) {
			return validationError("dietary", fmt.Sprintf("Unknown dietary option %q", d))
		}
	}
	return nil
}

func (in MenuItemInput) applyTo(item *models.MenuItem) {
	item.Name = in.Name
	item.Description = in.Description
	item.Price = in.Price
	item.Category = in.Category
	item.Image = in.Image
	item.SpiceLevel = in.SpiceLevel
	item.Dietary = in.Dietary
	item.Allergens = in.Allergens
	item.Featured = in.Featured
	if in.PreparationTime != nil {
		item.PreparationTime = *in.PreparationTime
	}
	if in.Available != nil {
		item.Available = *in.Available
	}
}

// Create adds a menu item. Items are available with a 15 minute
// preparation time unless the input says otherwise.
func (s *MenuService) Create(ctx context.Context, in MenuItemInput) (*models.MenuItem, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}
	item := &models.MenuItem{PreparationTime: 15, Available: true}
	in.applyTo(item)

	if err := s.store.Create(ctx, item); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, conflictError(fmt.Sprintf("A menu item named %q already exists", in.Name))
		}
		return nil, err
	}
	return item, nil
}

// Update replaces the editable fields of a menu item. Orders already placed
// keep the name and price they were created with.
func (s *MenuService) Update(ctx context.Context, id uint, in MenuItemInput) (*models.MenuItem, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}
	unlock := s.locks.Lock(id)
	defer unlock()

	item, err := s.load(ctx, id, false)
	if err != nil {
		return nil, err
	}
	in.applyTo(item)

	if err := s.store.Save(ctx, item); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, conflictError(fmt.Sprintf("A menu item named %q already exists", in.Name))
		}
		return nil, fromRepository(err, CodeMenuItemNotFound, "Menu item not found")
	}
	s.resolveImage(item)
	return item, nil
}

// Delete soft-deletes a menu item and removes its uploaded image
func (s *MenuService) Delete(ctx context.Context, id uint) error {
	unlock := s.locks.Lock(id)
	defer unlock()

	item, err := s.load(ctx, id, false)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return fromRepository(err, CodeMenuItemNotFound, "Menu item not found")
	}
	if item.ImageS3Key != nil && s.images != nil {
		if err := s.images.DeleteImage(*item.ImageS3Key); err != nil {
			log.Printf("warning: failed to delete image %s: %v", *item.ImageS3Key, err)
		}
	}
	return nil
}

// Get returns a menu item with its reviews
func (s *MenuService) Get(ctx context.Context, id uint) (*models.MenuItem, error) {
	item, err := s.load(ctx, id, true)
	if err != nil {
		return nil, err
	}
	s.resolveImage(item)
	return item, nil
}

// List returns one page of menu items
func (s *MenuService) List(ctx context.Context, q repository.MenuQuery) ([]models.MenuItem, int64, error) {
	items, total, err := s.store.List(ctx, q)
	if err != nil {
		return nil, 0, err
	}
	for i := range items {
		s.resolveImage(&items[i])
	}
	return items, total, nil
}

// Featured returns the best rated featured items that are available
func (s *MenuService) Featured(ctx context.Context) ([]models.MenuItem, error) {
	items, err := s.store.Featured(ctx, FeaturedLimit)
	if err != nil {
		return nil, err
	}
	for i := range items {
		s.resolveImage(&items[i])
	}
	return items, nil
}

// Categories returns the categories that currently have available items
func (s *MenuService) Categories(ctx context.Context) ([]string, error) {
	return s.store.Categories(ctx)
}

// ReviewInput is a customer's review of a menu item
type ReviewInput struct {
	Rating  int    `json:"rating" binding:"required,min=1,max=5"`
	Comment string `json:"comment" binding:"max=500"`
}

func duplicateReviewError() *Error {
	return &Error{Kind: ErrConflict, Code: CodeDuplicateReview, Message: "You have already reviewed this item"}
}

// AddReview records the actor's review and recomputes the rating aggregate
// in the same transaction. A user reviews an item at most once.
func (s *MenuService) AddReview(ctx context.Context, itemID uint, actor Actor, in ReviewInput) (*models.MenuItem, error) {
	if in.Rating < 1 || in.Rating > 5 {
		return nil, validationError("rating", "Rating must be between 1 and 5")
	}
	if len(in.Comment) > 500 {
		return nil, validationError("comment", "Comment must be at most 500 characters")
	}

	unlock := s.locks.Lock(itemID)
	defer unlock()

	item, err := s.load(ctx, itemID, true)
	if err != nil {
		return nil, err
	}
	if item.ReviewedBy(actor.UserID) {
		return nil, duplicateReviewError()
	}
	if s.purchases != nil {
		ok, err := s.purchases.HasDeliveredItem(ctx, actor.UserID, itemID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, forbiddenError("Only customers who received this item can review it")
		}
	}

	review := models.Review{
		MenuItemID: itemID,
		UserID:     actor.UserID,
		Rating:     in.Rating,
		Comment:    in.Comment,
		CreatedAt:  s.now(),
	}
	reviews := append(append([]models.Review(nil), item.Reviews...), review)
	previous := item.Rating
	item.Rating = RecomputeRating(reviews)

	if err := s.store.AddReview(ctx, item, &review); err != nil {
		item.Rating = previous
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, duplicateReviewError()
		}
		return nil, fromRepository(err, CodeMenuItemNotFound, "Menu item not found")
	}
	item.Reviews = append(item.Reviews, review)
	s.resolveImage(item)
	return item, nil
}

// UploadImage stores a new image for the item, replacing any previous upload
func (s *MenuService) UploadImage(ctx context.Context, id uint, fileHeader *multipart.FileHeader) (*models.MenuItem, error) {
	if s.images == nil {
		return nil, &Error{Kind: ErrUnavailable, Code: "IMAGE_STORAGE_DISABLED", Message: "Image storage is not configured"}
	}
	unlock := s.locks.Lock(id)
	defer unlock()

	item, err := s.load(ctx, id, false)
	if err != nil {
		return nil, err
	}

	key, err := s.images.UploadImage(fileHeader)
	if err != nil {
		return nil, err
	}
	previous := item.ImageS3Key
	item.ImageS3Key = &key

	if err := s.store.Save(ctx, item); err != nil {
		if delErr := s.images.DeleteImage(key); delErr != nil {
			log.Printf("warning: failed to remove orphaned image %s: %v", key, delErr)
		}
		return nil, fromRepository(err, CodeMenuItemNotFound, "Menu item not found")
	}
	if previous != nil {
		if err := s.images.DeleteImage(*previous); err != nil {
			log.Printf("warning: failed to delete previous image %s: %v", *previous, err)
		}
	}
	s.resolveImage(item)
	return item, nil
}

func (s *MenuService) load(ctx context.Context, id uint, withReviews bool) (*models.MenuItem, error) {
	item, err := s.store.FindByID(ctx, id, withReviews)
	if err != nil {
		return nil, fromRepository(err, CodeMenuItemNotFound, "Menu item not found")
	}
	return item, nil
}

// resolveImage fills ImageURL with a presigned URL for uploaded images
func (s *MenuService) resolveImage(item *models.MenuItem) {
	if item.ImageS3Key == nil || s.images == nil {
		return
	}
	url, err := s.images.GetImageURL(*item.ImageS3Key)
	if err != nil {
		log.Printf("warning: failed to generate image URL for menu item %d: %v", item.ID, err)
		return
	}
	item.ImageURL = &url
}

func contains(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}

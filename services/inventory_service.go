package services

import (
	"context"
	"fmt"
	"time"

	"github.com/tablefire/ordering-api/config"
	"github.com/tablefire/ordering-api/models"
	"github.com/tablefire/ordering-api/repository"
)

// InventoryStore is the persistence the inventory ledger needs
type InventoryStore interface {
	Create(ctx context.Context, item *models.InventoryItem) error
	FindByID(ctx context.Context, id uint) (*models.InventoryItem, error)
	Save(ctx context.Context, item *models.InventoryItem) error
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context, q repository.InventoryQuery) ([]models.InventoryItem, int64, error)
	ActiveAlerts(ctx context.Context) ([]repository.ActiveAlert, error)
	Stats(ctx context.Context, now time.Time) (*repository.InventoryStats, error)
}

// InventoryService is the inventory ledger: stock levels, movements and alerts
type InventoryService struct {
	store        InventoryStore
	publisher    Publisher
	transferMode string
	locks        *keyedMutex
	now          func() time.Time
}

// NewInventoryService creates an InventoryService. An empty transferMode means log-only.
func NewInventoryService(store InventoryStore, publisher Publisher, transferMode string) *InventoryService {
	if transferMode == "" {
		transferMode = config.TransferModeLogOnly
	}
	return &InventoryService{
		store:        store,
		publisher:    publisher,
		transferMode: transferMode,
		locks:        newKeyedMutex(),
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// InventoryInput holds the editable fields of an inventory item
type InventoryInput struct {
	Name         string                 `json:"name" binding:"required,max=100"`
	Category     string                 `json:"category" binding:"required"`
	CurrentStock float64                `json:"current_stock" binding:"gte=0"`
	MinimumStock float64                `json:"minimum_stock" binding:"gte=0"`
	MaximumStock *float64               `json:"maximum_stock" binding:"omitempty,gte=0"`
	Unit         string                 `json:"unit" binding:"required"`
	CostPerUnit  float64                `json:"cost_per_unit" binding:"gte=0"`
	Supplier     models.Supplier        `json:"supplier"`
	Location     models.StorageLocation `json:"location"`
	ExpiryDate   *time.Time             `json:"expiry_date"`
	BatchNumber  string                 `json:"batch_number"`
	IsPerishable bool                   `json:"is_perishable"`
}

func (in InventoryInput) validate() error {
	switch {
	case in.Name == "" || len(in.Name) > 100:
		return validationError("name", "Name is required and must be at most 100 characters")
	case !models.ValidInventoryCategory(in.Category):
		return validationError("category", fmt.Sprintf("Unknown inventory category %q", in.Category))
	case !models.ValidInventoryUnit(in.Unit):
		return validationError("unit", fmt.Sprintf("Unknown unit %q", in.Unit))
	case in.CurrentStock < 0:
		return validationError("current_stock", "Current stock cannot be negative")
	case in.MinimumStock < 0:
		return validationError("minimum_stock", "Minimum stock cannot be negative")
	case in.MaximumStock != nil && *in.MaximumStock < 0:
		return validationError("maximum_stock", "Maximum stock cannot be negative")
	case in.CostPerUnit < 0:
		return validationError("cost_per_unit", "Cost per unit cannot be negative")
	case in.Supplier.Name == "":
		return validationError("supplier.name", "Supplier name is required")
	}
	return nil
}

func (in InventoryInput) applyTo(item *models.InventoryItem) {
	item.Name = in.Name
	item.Category = in.Category
	item.MinimumStock = in.MinimumStock
	item.MaximumStock = in.MaximumStock
	item.Unit = in.Unit
	item.CostPerUnit = in.CostPerUnit
	item.Supplier = in.Supplier
	item.Location = in.Location
	item.ExpiryDate = in.ExpiryDate
	item.BatchNumber = in.BatchNumber
	item.IsPerishable = in.IsPerishable
}

// Create adds an item. A positive starting stock is recorded as an "in"
// movement so the ledger explains every unit on hand.
func (s *InventoryService) Create(ctx context.Context, in InventoryInput, actor Actor) (*models.InventoryItem, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	now := s.now()

	item := &models.InventoryItem{}
	in.applyTo(item)
	if in.CurrentStock > 0 {
		if _, err := ApplyMovement(item, MovementInput{
			Type:      models.MovementIn,
			Quantity:  in.CurrentStock,
			Reason:    "Initial stock",
			Reference: "INITIAL",
		}, actor.idPtr(), s.transferMode, now); err != nil {
			return nil, err
		}
	}
	raised := EvaluateAlerts(item, now)
	item.Alerts = append(item.Alerts, raised...)

	if err := s.store.Create(ctx, item); err != nil {
		return nil, fromRepository(err, CodeInventoryNotFound, "Inventory item not found")
	}
	s.publishAlerts(ctx, item, raised, now)
	item.Derive(now)
	return item, nil
}

// Update edits an item's descriptive fields and thresholds. The stock level
// only changes through movements, so CurrentStock in the input is ignored.
func (s *InventoryService) Update(ctx context.Context, id uint, in InventoryInput) (*models.InventoryItem, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	item, raised, now, err := s.update(ctx, id, in)
	if err != nil {
		return nil, err
	}
	s.publishAlerts(ctx, item, raised, now)
	item.Derive(now)
	return item, nil
}

func (s *InventoryService) update(ctx context.Context, id uint, in InventoryInput) (*models.InventoryItem, []models.InventoryAlert, time.Time, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	item, err := s.load(ctx, id)
	if err != nil {
		return nil, nil, time.Time{}, err
	}
	now := s.now()
	in.applyTo(item)
	raised := EvaluateAlerts(item, now)
	item.Alerts = append(item.Alerts, raised...)

	if err := s.store.Save(ctx, item); err != nil {
		return nil, nil, now, fromRepository(err, CodeInventoryNotFound, "Inventory item not found")
	}
	return item, raised, now, nil
}

// RecordMovement applies a stock movement, re-evaluates alerts and persists
// the item, the movement and any new alerts atomically. Alert events go out
// after the item's lock is released.
func (s *InventoryService) RecordMovement(ctx context.Context, itemID uint, in MovementInput, actor Actor) (*models.InventoryItem, *models.StockMovement, error) {
	item, movement, raised, now, err := s.recordMovement(ctx, itemID, in, actor)
	if err != nil {
		return nil, nil, err
	}
	s.publishAlerts(ctx, item, raised, now)
	item.Derive(now)
	return item, movement, nil
}

func (s *InventoryService) recordMovement(ctx context.Context, itemID uint, in MovementInput, actor Actor) (*models.InventoryItem, *models.StockMovement, []models.InventoryAlert, time.Time, error) {
	unlock := s.locks.Lock(itemID)
	defer unlock()

	item, err := s.load(ctx, itemID)
	if err != nil {
		return nil, nil, nil, time.Time{}, err
	}
	now := s.now()

	movement, err := ApplyMovement(item, in, actor.idPtr(), s.transferMode, now)
	if err != nil {
		return nil, nil, nil, now, err
	}
	raised := EvaluateAlerts(item, now)
	item.Alerts = append(item.Alerts, raised...)

	if err := s.store.Save(ctx, item); err != nil {
		return nil, nil, nil, now, fromRepository(err, CodeInventoryNotFound, "Inventory item not found")
	}
	return item, movement, raised, now, nil
}

// AcknowledgeAlert deactivates an alert of the item. An alert that belongs
// to a different item counts as missing.
func (s *InventoryService) AcknowledgeAlert(ctx context.Context, itemID, alertID uint, actor Actor) (*models.InventoryAlert, error) {
	unlock := s.locks.Lock(itemID)
	defer unlock()

	item, err := s.load(ctx, itemID)
	if err != nil {
		return nil, err
	}

	var alert *models.InventoryAlert
	for i := range item.Alerts {
		if item.Alerts[i].ID == alertID {
			alert = &item.Alerts[i]
			break
		}
	}
	if alert == nil {
		return nil, notFoundError(CodeAlertNotFound, "Alert not found")
	}

	now := s.now()
	alert.IsActive = false
	alert.AcknowledgedByID = actor.idPtr()
	alert.AcknowledgedAt = &now

	if err := s.store.Save(ctx, item); err != nil {
		return nil, fromRepository(err, CodeInventoryNotFound, "Inventory item not found")
	}
	return alert, nil
}

// Get returns an item with derived fields filled in
func (s *InventoryService) Get(ctx context.Context, id uint) (*models.InventoryItem, error) {
	item, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	item.Derive(s.now())
	return item, nil
}

// List returns one page of items with derived fields filled in
func (s *InventoryService) List(ctx context.Context, q repository.InventoryQuery) ([]models.InventoryItem, int64, error) {
	now := s.now()
	if q.Now.IsZero() {
		q.Now = now
	}
	items, total, err := s.store.List(ctx, q)
	if err != nil {
		return nil, 0, err
	}
	for i := range items {
		items[i].Derive(now)
	}
	return items, total, nil
}

// Delete soft-deletes an item
func (s *InventoryService) Delete(ctx context.Context, id uint) error {
	unlock := s.locks.Lock(id)
	defer unlock()
	return fromRepository(s.store.Delete(ctx, id), CodeInventoryNotFound, "Inventory item not found")
}

// ActiveAlerts lists unacknowledged alerts, newest first
func (s *InventoryService) ActiveAlerts(ctx context.Context) ([]repository.ActiveAlert, error) {
	return s.store.ActiveAlerts(ctx)
}

// Stats summarizes the inventory
func (s *InventoryService) Stats(ctx context.Context) (*repository.InventoryStats, error) {
	return s.store.Stats(ctx, s.now())
}

func (s *InventoryService) load(ctx context.Context, id uint) (*models.InventoryItem, error) {
	item, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, fromRepository(err, CodeInventoryNotFound, "Inventory item not found")
	}
	return item, nil
}

func (s *InventoryService) publishAlerts(ctx context.Context, item *models.InventoryItem, raised []models.InventoryAlert, now time.Time) {
	for _, alert := range raised {
		publish(ctx, s.publisher, EventInventoryAlert, now, AlertEvent{
			InventoryItemID: item.ID,
			ItemName:        item.Name,
			AlertType:       alert.Type,
			Message:         alert.Message,
		})
	}
}

package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tablefire/ordering-api/repository"
	"github.com/tablefire/ordering-api/services"
)

// InventoryController serves the /inventory endpoints. Every route is staff only.
type InventoryController struct {
	inventory *services.InventoryService
}

// NewInventoryController creates an InventoryController
func NewInventoryController(inventory *services.InventoryService) *InventoryController {
	return &InventoryController{inventory: inventory}
}

// ListInventory handles GET /api/v1/inventory
func (ic *InventoryController) ListInventory(c *gin.Context) {
	q := repository.InventoryQuery{
		Category: c.Query("category"),
		Search:   c.Query("search"),
		Page:     pageFromQuery(c),
	}

	lowStock, err := optionalBool(c, "low_stock")
	if err != nil {
		respondError(c, http.StatusBadRequest, services.CodeValidation, "low_stock must be true or false")
		return
	}
	expiring, err := optionalBool(c, "expiring_soon")
	if err != nil {
		respondError(c, http.StatusBadRequest, services.CodeValidation, "expiring_soon must be true or false")
		return
	}
	q.LowStock = lowStock != nil && *lowStock
	q.ExpiringSoon = expiring != nil && *expiring

	items, total, err := ic.inventory.List(c.Request.Context(), q)
	if err != nil {
		handleError(c, err)
		return
	}
	respondPage(c, items, q.Page, total)
}

// GetInventoryItem handles GET /api/v1/inventory/:id
func (ic *InventoryController) GetInventoryItem(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	item, err := ic.inventory.Get(c.Request.Context(), id)
	if err != nil {
		handleError(c, err)
		return
	}
	respond(c, http.StatusOK, item)
}

// CreateInventoryItem handles POST /api/v1/inventory (admins)
func (ic *InventoryController) CreateInventoryItem(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req services.InventoryInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	item, err := ic.inventory.Create(c.Request.Context(), req, actor)
	if err != nil {
		handleError(c, err)
		return
	}
	respond(c, http.StatusCreated, item)
}

// UpdateInventoryItem handles PUT /api/v1/inventory/:id (admins).
// Stock levels only change through PATCH /inventory/:id/stock.
func (ic *InventoryController) UpdateInventoryItem(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req services.InventoryInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	item, err := ic.inventory.Update(c.Request.Context(), id, req)
	if err != nil {
		handleError(c, err)
		return
	}
	respond(c, http.StatusOK, item)
}

// DeleteInventoryItem handles DELETE /api/v1/inventory/:id (admins)
func (ic *InventoryController) DeleteInventoryItem(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := ic.inventory.Delete(c.Request.Context(), id); err != nil {
		handleError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"id": id, "deleted": true})
}

// UpdateStock handles PATCH /api/v1/inventory/:id/stock
func (ic *InventoryController) UpdateStock(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req services.MovementInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	item, movement, err := ic.inventory.RecordMovement(c.Request.Context(), id, req, actor)
	if err != nil {
		handleError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{
		"item":     item,
		"movement": movement,
	})
}

// AcknowledgeAlert handles PATCH /api/v1/inventory/:id/alerts/:alertId/acknowledge
func (ic *InventoryController) AcknowledgeAlert(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	alertID, ok := parseID(c, "alertId")
	if !ok {
		return
	}

	alert, err := ic.inventory.AcknowledgeAlert(c.Request.Context(), id, alertID, actor)
	if err != nil {
		handleError(c, err)
		return
	}
	respond(c, http.StatusOK, alert)
}

// ListActiveAlerts handles GET /api/v1/inventory/alerts
func (ic *InventoryController) ListActiveAlerts(c *gin.Context) {
	alerts, err := ic.inventory.ActiveAlerts(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	respond(c, http.StatusOK, alerts)
}

// GetInventoryStats handles GET /api/v1/inventory/stats (admins)
func (ic *InventoryController) GetInventoryStats(c *gin.Context) {
	stats, err := ic.inventory.Stats(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	respond(c, http.StatusOK, stats)
}

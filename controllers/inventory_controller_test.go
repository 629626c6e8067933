package controllers

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tablefire/ordering-api/config"
	"github.com/tablefire/ordering-api/models"
	"github.com/tablefire/ordering-api/repository"
	"github.com/tablefire/ordering-api/services"
	"github.com/tablefire/ordering-api/testutil"
)

type stockResponse struct {
	Item     models.InventoryItem `json:"item"`
	Movement models.StockMovement `json:"movement"`
}

func newInventoryRouter(t *testing.T) (*gin.Engine, *models.User) {
	t.Helper()
	db := testutil.NewTestDB(t)
	admin := testutil.CreateUser(t, db, "auth0|admin", models.RoleAdmin)
	controller := NewInventoryController(services.NewInventoryService(
		repository.NewInventoryRepository(db), services.NewMockPublisher(), config.TransferModeLogOnly,
	))

	router := routerFor(admin, func(r gin.IRoutes) {
		r.GET("/inventory", controller.ListInventory)
		r.GET("/inventory/alerts", controller.ListActiveAlerts)
		r.GET("/inventory/stats", controller.GetInventoryStats)
		r.POST("/inventory", controller.CreateInventoryItem)
		r.GET("/inventory/:id", controller.GetInventoryItem)
		r.PUT("/inventory/:id", controller.UpdateInventoryItem)
		r.DELETE("/inventory/:id", controller.DeleteInventoryItem)
		r.PATCH("/inventory/:id/stock", controller.UpdateStock)
		r.PATCH("/inventory/:id/alerts/:alertId/acknowledge", controller.AcknowledgeAlert)
	})
	return router, admin
}

func inventoryBody(name string, current, minimum float64) gin.H {
	return gin.H{
		"name":          name,
		"category":      "vegetables",
		"current_stock": current,
		"minimum_stock": minimum,
		"unit":          "kg",
		"cost_per_unit": 2.5,
		"supplier":      gin.H{"name": "Green Farms"},
	}
}

func createInventoryItem(t *testing.T, router *gin.Engine, name string, current, minimum float64) models.InventoryItem {
	t.Helper()
	w, resp := performRequest(t, router, http.MethodPost, "/inventory", inventoryBody(name, current, minimum))
	require.Equal(t, http.StatusCreated, w.Code, resp.errorCode())
	var item models.InventoryItem
	resp.decode(t, &item)
	return item
}

func TestCreateInventoryItem(t *testing.T) {
	router, _ := newInventoryRouter(t)

	item := createInventoryItem(t, router, "Tomatoes", 30, 10)
	assert.Equal(t, 30.0, item.CurrentStock)
	assert.Equal(t, models.StockStatusInStock, item.StockStatus)
	require.Len(t, item.StockMovements, 1)
	assert.Equal(t, models.MovementIn, item.StockMovements[0].Type)

	w, resp := performRequest(t, router, http.MethodPost, "/inventory", inventoryBody("Tomatoes", 5, 1))
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "CONFLICT", resp.errorCode())

	body := inventoryBody("Gold", 1, 1)
	body["unit"] = "bars"
	w, resp = performRequest(t, router, http.MethodPost, "/inventory", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", resp.errorCode())
}

func TestUpdateStock(t *testing.T) {
	router, admin := newInventoryRouter(t)
	item := createInventoryItem(t, router, "Tomatoes", 30, 10)
	path := fmt.Sprintf("/inventory/%d/stock", item.ID)

	tests := []struct {
		name           string
		body           gin.H
		expectedStatus int
		expectedCode   string
		expectedStock  float64
	}{
		{"Use stock", gin.H{"type": "out", "quantity": 25, "reason": "Dinner service"}, http.StatusOK, "", 5},
		{"Cannot go negative", gin.H{"type": "out", "quantity": 6, "reason": "Lunch"}, http.StatusBadRequest, "INSUFFICIENT_STOCK", 5},
		{"Unknown type", gin.H{"type": "borrow", "quantity": 1, "reason": "Neighbour"}, http.StatusBadRequest, "VALIDATION_ERROR", 5},
		{"Missing reason", gin.H{"type": "in", "quantity": 1}, http.StatusBadRequest, "VALIDATION_ERROR", 5},
		{"Restock", gin.H{"type": "in", "quantity": 20, "reason": "Delivery"}, http.StatusOK, "", 25},
		{"Adjust to count", gin.H{"type": "adjustment", "quantity": 22, "reason": "Stocktake"}, http.StatusOK, "", 22},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, resp := performRequest(t, router, http.MethodPatch, path, tt.body)
			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Equal(t, tt.expectedCode, resp.errorCode())

			_, resp = performRequest(t, router, http.MethodGet, fmt.Sprintf("/inventory/%d", item.ID), nil)
			var current models.InventoryItem
			resp.decode(t, &current)
			assert.Equal(t, tt.expectedStock, current.CurrentStock)
		})
	}

	w, resp := performRequest(t, router, http.MethodPatch, path, gin.H{"type": "waste", "quantity": 2, "reason": "Spoiled"})
	require.Equal(t, http.StatusOK, w.Code)
	var out stockResponse
	resp.decode(t, &out)
	assert.Equal(t, 20.0, out.Item.CurrentStock)
	assert.Equal(t, models.MovementWaste, out.Movement.Type)
	require.NotNil(t, out.Movement.PerformedByID)
	assert.Equal(t, admin.ID, *out.Movement.PerformedByID)

	w, resp = performRequest(t, router, http.MethodPatch, "/inventory/999/stock", gin.H{"type": "in", "quantity": 1, "reason": "x"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "INVENTORY_ITEM_NOT_FOUND", resp.errorCode())
}

func TestAcknowledgeAlert(t *testing.T) {
	router, _ := newInventoryRouter(t)
	basil := createInventoryItem(t, router, "Basil", 1, 5)
	require.Len(t, basil.Alerts, 1)
	alert := basil.Alerts[0]
	assert.Equal(t, models.AlertLowStock, alert.Type)

	w, resp := performRequest(t, router, http.MethodGet, "/inventory/alerts", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var active []repository.ActiveAlert
	resp.decode(t, &active)
	require.Len(t, active, 1)
	assert.Equal(t, "Basil", active[0].ItemName)

	path := fmt.Sprintf("/inventory/%d/alerts/%d/acknowledge", basil.ID, alert.ID)
	w, resp = performRequest(t, router, http.MethodPatch, path, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var acknowledged models.InventoryAlert
	resp.decode(t, &acknowledged)
	assert.False(t, acknowledged.IsActive)
	assert.NotNil(t, acknowledged.AcknowledgedAt)

	_, resp = performRequest(t, router, http.MethodGet, "/inventory/alerts", nil)
	resp.decode(t, &active)
	assert.Empty(t, active)

	w, resp = performRequest(t, router, http.MethodPatch, fmt.Sprintf("/inventory/%d/alerts/999/acknowledge", basil.ID), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "ALERT_NOT_FOUND", resp.errorCode())

	w, _ = performRequest(t, router, http.MethodPatch, fmt.Sprintf("/inventory/%d/alerts/abc/acknowledge", basil.ID), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListInventory(t *testing.T) {
	router, _ := newInventoryRouter(t)
	createInventoryItem(t, router, "Tomatoes", 30, 10)
	createInventoryItem(t, router, "Basil", 1, 5)
	createInventoryItem(t, router, "Onions", 3, 4)

	w, resp := performRequest(t, router, http.MethodGet, "/inventory?low_stock=true", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var items []models.InventoryItem
	resp.decode(t, &items)
	require.Len(t, items, 2)
	assert.Equal(t, "Basil", items[0].Name)
	assert.Equal(t, "Onions", items[1].Name)

	w, resp = performRequest(t, router, http.MethodGet, "/inventory?search=tom&limit=1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(1), resp.Pagination.Total)

	w, resp = performRequest(t, router, http.MethodGet, "/inventory?low_stock=maybe", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", resp.errorCode())
}

func TestInventoryItemLifecycle(t *testing.T) {
	router, _ := newInventoryRouter(t)
	item := createInventoryItem(t, router, "Tomatoes", 30, 10)
	path := fmt.Sprintf("/inventory/%d", item.ID)

	body := inventoryBody("Roma Tomatoes", 999, 40)
	w, resp := performRequest(t, router, http.MethodPut, path, body)
	require.Equal(t, http.StatusOK, w.Code)
	var updated models.InventoryItem
	resp.decode(t, &updated)
	assert.Equal(t, "Roma Tomatoes", updated.Name)
	assert.Equal(t, 30.0, updated.CurrentStock, "stock only changes through movements")
	assert.Equal(t, models.StockStatusLow, updated.StockStatus)

	w, resp = performRequest(t, router, http.MethodGet, "/inventory/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stats repository.InventoryStats
	resp.decode(t, &stats)
	assert.Equal(t, int64(1), stats.TotalItems)
	assert.Equal(t, int64(1), stats.LowStockItems)
	assert.Equal(t, 75.0, stats.TotalValue)

	w, _ = performRequest(t, router, http.MethodDelete, path, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, resp = performRequest(t, router, http.MethodGet, path, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "INVENTORY_ITEM_NOT_FOUND", resp.errorCode())
}

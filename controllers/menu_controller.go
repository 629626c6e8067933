package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tablefire/ordering-api/repository"
	"github.com/tablefire/ordering-api/services"
)

// MenuController serves the /menu endpoints
type MenuController struct {
	menu *services.MenuService
}

// NewMenuController creates a MenuController
func NewMenuController(menu *services.MenuService) *MenuController {
	return &MenuController{menu: menu}
}

// ListMenuItems handles GET /api/v1/menu
func (mc *MenuController) ListMenuItems(c *gin.Context) {
	q := repository.MenuQuery{
		Category:   c.Query("category"),
		SpiceLevel: c.Query("spice_level"),
		Dietary:    c.Query("dietary"),
		Search:     c.Query("search"),
		SortBy:     c.DefaultQuery("sort_by", repository.MenuSortName),
		Descending: c.Query("sort_order") == "desc",
		Page:       pageFromQuery(c),
	}
	if !repository.ValidMenuSort(q.SortBy) {
		respondError(c, http.StatusBadRequest, services.CodeValidation, "sort_by must be one of name, price, rating, created_at")
		return
	}

	var err error
	if q.Available, err = optionalBool(c, "available"); err != nil {
		respondError(c, http.StatusBadRequest, services.CodeValidation, "available must be true or false")
		return
	}
	if q.Featured, err = optionalBool(c, "featured"); err != nil {
		respondError(c, http.StatusBadRequest, services.CodeValidation, "featured must be true or false")
		return
	}
	if q.MinPrice, err = optionalFloat(c, "min_price"); err != nil {
		respondError(c, http.StatusBadRequest, services.CodeValidation, "min_price must be a number")
		return
	}
	if q.MaxPrice, err = optionalFloat(c, "max_price"); err != nil {
		respondError(c, http.StatusBadRequest, services.CodeValidation, "max_price must be a number")
		return
	}

	items, total, err := mc.menu.List(c.Request.Context(), q)
	if err != nil {
		handleError(c, err)
		return
	}
	respondPage(c, items, q.Page, total)
}

// GetMenuItem handles GET /api/v1/menu/:id
func (mc *MenuController) GetMenuItem(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	item, err := mc.menu.Get(c.Request.Context(), id)
	if err != nil {
		handleError(c, err)
		return
	}
	respond(c, http.StatusOK, item)
}

// GetCategories handles GET /api/v1/menu/categories
func (mc *MenuController) GetCategories(c *gin.Context) {
	categories, err := mc.menu.Categories(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	respond(c, http.StatusOK, categories)
}

// GetFeatured handles GET /api/v1/menu/featured
func (mc *MenuController) GetFeatured(c *gin.Context) {
	items, err := mc.menu.Featured(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	respond(c, http.StatusOK, items)
}

// CreateMenuItem handles POST /api/v1/menu (admins)
func (mc *MenuController) CreateMenuItem(c *gin.Context) {
	var req services.MenuItemInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	item, err := mc.menu.Create(c.Request.Context(), req)
	if err != nil {
		handleError(c, err)
		return
	}
	respond(c, http.StatusCreated, item)
}

// UpdateMenuItem handles PUT /api/v1/menu/:id (admins)
func (mc *MenuController) UpdateMenuItem(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req services.MenuItemInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	item, err := mc.menu.Update(c.Request.Context(), id, req)
	if err != nil {
		handleError(c, err)
		return
	}
	respond(c, http.StatusOK, item)
}

// DeleteMenuItem handles DELETE /api/v1/menu/:id (admins)
func (mc *MenuController) DeleteMenuItem(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := mc.menu.Delete(c.Request.Context(), id); err != nil {
		handleError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"id": id, "deleted": true})
}

// AddReview handles POST /api/v1/menu/:id/reviews
func (mc *MenuController) AddReview(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req services.ReviewInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	item, err := mc.menu.AddReview(c.Request.Context(), id, actor, req)
	if err != nil {
		handleError(c, err)
		return
	}
	respond(c, http.StatusCreated, item)
}

// UploadImage handles POST /api/v1/menu/:id/image (admins, multipart field "image")
func (mc *MenuController) UploadImage(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("image")
	if err != nil {
		respondError(c, http.StatusBadRequest, "MISSING_FILE", "No image file provided. Please upload a file with field name 'image'")
		return
	}

	item, err := mc.menu.UploadImage(c.Request.Context(), id, fileHeader)
	if err != nil {
		handleError(c, err)
		return
	}
	respond(c, http.StatusOK, item)
}

package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tablefire/ordering-api/middleware"
	"github.com/tablefire/ordering-api/repository"
	"github.com/tablefire/ordering-api/services"
)

// UserController serves the /users endpoints
type UserController struct {
	users *services.UserService
}

// NewUserController creates a UserController
func NewUserController(users *services.UserService) *UserController {
	return &UserController{users: users}
}

// SetRoleRequest is the body of PUT /users/:id/role
type SetRoleRequest struct {
	Role string `json:"role" binding:"required"`
}

// CreateUser handles POST /api/v1/users - creates the caller's profile from Auth0 userinfo.
// Runs without RequireUser since the profile does not exist yet.
func (uc *UserController) CreateUser(c *gin.Context) {
	auth0ID, err := middleware.GetUserID(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Could not extract user ID from token")
		return
	}

	accessToken, err := middleware.GetAccessToken(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "MISSING_TOKEN", "Access token not found")
		return
	}

	user, err := uc.users.CreateProfile(c.Request.Context(), auth0ID, accessToken, middleware.GetRoleClaim(c))
	if err != nil {
		handleError(c, err)
		return
	}
	respond(c, http.StatusCreated, user)
}

// GetMyProfile handles GET /api/v1/users/me
func (uc *UserController) GetMyProfile(c *gin.Context) {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Could not extract user information")
		return
	}
	respond(c, http.StatusOK, user)
}

// UpdateMyProfile handles PUT /api/v1/users/me
func (uc *UserController) UpdateMyProfile(c *gin.Context) {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Could not extract user information")
		return
	}

	var req services.UpdateProfileInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	updated, err := uc.users.UpdateProfile(c.Request.Context(), user, req)
	if err != nil {
		handleError(c, err)
		return
	}
	respond(c, http.StatusOK, updated)
}

// SetRole handles PUT /api/v1/users/:id/role (admins)
func (uc *UserController) SetRole(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req SetRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	user, err := uc.users.SetRole(c.Request.Context(), id, req.Role)
	if err != nil {
		handleError(c, err)
		return
	}
	respond(c, http.StatusOK, user)
}

// ListUsers handles GET /api/v1/users (admins).
// Filters: role, is_active, search (name or email).
func (uc *UserController) ListUsers(c *gin.Context) {
	q := repository.UserQuery{
		Role:   c.Query("role"),
		Search: c.Query("search"),
		Page:   pageFromQuery(c),
	}
	var err error
	if q.IsActive, err = optionalBool(c, "is_active"); err != nil {
		respondError(c, http.StatusBadRequest, services.CodeValidation, "is_active must be true or false")
		return
	}

	users, total, err := uc.users.ListUsers(c.Request.Context(), q)
	if err != nil {
		handleError(c, err)
		return
	}
	respondPage(c, users, q.Page, total)
}

// GetUserStats handles GET /api/v1/users/stats (admins)
func (uc *UserController) GetUserStats(c *gin.Context) {
	stats, err := uc.users.Stats(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	respond(c, http.StatusOK, stats)
}

// GetUser handles GET /api/v1/users/:id - the user themselves or an admin
func (uc *UserController) GetUser(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	user, err := uc.users.GetUser(c.Request.Context(), id, actor)
	if err != nil {
		handleError(c, err)
		return
	}
	respond(c, http.StatusOK, user)
}

// ActivateUser handles PATCH /api/v1/users/:id/activate (admins)
func (uc *UserController) ActivateUser(c *gin.Context) {
	uc.setActive(c, true)
}

// DeactivateUser handles PATCH /api/v1/users/:id/deactivate (admins)
func (uc *UserController) DeactivateUser(c *gin.Context) {
	uc.setActive(c, false)
}

func (uc *UserController) setActive(c *gin.Context, active bool) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	user, err := uc.users.SetActive(c.Request.Context(), id, active, actor)
	if err != nil {
		handleError(c, err)
		return
	}
	respond(c, http.StatusOK, user)
}

// DeleteUser handles DELETE /api/v1/users/:id (admins)
func (uc *UserController) DeleteUser(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := uc.users.Delete(c.Request.Context(), id, actor); err != nil {
		handleError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"id": id, "deleted": true})
}

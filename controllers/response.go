package controllers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/tablefire/ordering-api/middleware"
	"github.com/tablefire/ordering-api/repository"
	"github.com/tablefire/ordering-api/services"
	"github.com/tablefire/ordering-api/utils"
)

func respond(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{
		"success": true,
		"data":    data,
	})
}

func respondPage(c *gin.Context, data interface{}, page repository.Page, total int64) {
	page = page.Normalize()
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    data,
		"pagination": gin.H{
			"page":        page.Page,
			"limit":       page.Limit,
			"total":       total,
			"total_pages": page.TotalPages(total),
		},
	})
}

func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

// respondBindingError reports a request body that failed binding or validation
func respondBindingError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"error": gin.H{
			"code":    services.CodeValidation,
			"message": "Invalid request data",
			"details": err.Error(),
		},
	})
}

// handleError maps a service error onto the response envelope
func handleError(c *gin.Context, err error) {
	var domainErr *services.Error
	if errors.As(err, &domainErr) {
		c.JSON(statusFor(domainErr), gin.H{
			"success": false,
			"error":   errorBody(domainErr),
		})
		return
	}

	var uploadErr *utils.FileUploadError
	if errors.As(err, &uploadErr) {
		respondError(c, http.StatusBadRequest, uploadErr.Code, uploadErr.Message)
		return
	}

	log.Printf("Unhandled error on %s %s: %v", c.Request.Method, c.FullPath(), err)
	respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred")
}

func statusFor(err *services.Error) int {
	switch {
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, services.ErrConflict):
		// duplicate reviews are reported as a bad request to clients
		if err.Code == services.CodeDuplicateReview {
			return http.StatusBadRequest
		}
		return http.StatusConflict
	}
	// Validation, InsufficientStock, InvalidTransition, InvalidState,
	// AlreadyRated and Unavailable
	return http.StatusBadRequest
}

func errorBody(err *services.Error) gin.H {
	body := gin.H{
		"code":    err.Code,
		"message": err.Message,
	}
	if err.Field != "" {
		body["field"] = err.Field
	}
	return body
}

// parseID reads a positive integer path parameter. It writes the 400 response itself.
func parseID(c *gin.Context, param string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(param), 10, 64)
	if err != nil || id == 0 {
		respondError(c, http.StatusBadRequest, services.CodeValidation, "Invalid "+param)
		return 0, false
	}
	return uint(id), true
}

// currentActor returns the actor resolved by middleware.RequireUser
func currentActor(c *gin.Context) (services.Actor, bool) {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Could not extract user information")
		return services.Actor{}, false
	}
	return services.ActorFor(user), true
}

// pageFromQuery reads the page and limit query parameters
func pageFromQuery(c *gin.Context) repository.Page {
	page, _ := strconv.Atoi(c.Query("page"))
	limit, _ := strconv.Atoi(c.Query("limit"))
	return repository.Page{Page: page, Limit: limit}.Normalize()
}

// optionalBool parses a boolean query parameter; absent means nil
func optionalBool(c *gin.Context, key string) (*bool, error) {
	raw, ok := c.GetQuery(key)
	if !ok || raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// optionalFloat parses a numeric query parameter; absent means nil
func optionalFloat(c *gin.Context, key string) (*float64, error) {
	raw, ok := c.GetQuery(key)
	if !ok || raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

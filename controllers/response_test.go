package controllers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tablefire/ordering-api/repository"
	"github.com/tablefire/ordering-api/services"
	"github.com/tablefire/ordering-api/utils"
)

func TestHandleError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", &services.Error{Kind: services.ErrValidation, Code: services.CodeValidation, Field: "quantity"}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"not found", &services.Error{Kind: services.ErrNotFound, Code: services.CodeOrderNotFound}, http.StatusNotFound, "ORDER_NOT_FOUND"},
		{"conflict", &services.Error{Kind: services.ErrConflict, Code: services.CodeConflict}, http.StatusConflict, "CONFLICT"},
		{"duplicate review", &services.Error{Kind: services.ErrConflict, Code: services.CodeDuplicateReview}, http.StatusBadRequest, "DUPLICATE_REVIEW"},
		{"insufficient stock", &services.Error{Kind: services.ErrInsufficientStock, Code: services.CodeInsufficientStock}, http.StatusBadRequest, "INSUFFICIENT_STOCK"},
		{"invalid transition", &services.Error{Kind: services.ErrInvalidTransition, Code: services.CodeInvalidTransition}, http.StatusBadRequest, "INVALID_TRANSITION"},
		{"invalid state", &services.Error{Kind: services.ErrInvalidState, Code: services.CodeInvalidState}, http.StatusBadRequest, "INVALID_STATE"},
		{"already rated", &services.Error{Kind: services.ErrAlreadyRated, Code: services.CodeAlreadyRated}, http.StatusBadRequest, "ALREADY_RATED"},
		{"forbidden", &services.Error{Kind: services.ErrForbidden, Code: services.CodeForbidden}, http.StatusForbidden, "FORBIDDEN"},
		{"unavailable", &services.Error{Kind: services.ErrUnavailable, Code: services.CodeItemUnavailable}, http.StatusBadRequest, "ITEM_UNAVAILABLE"},
		{"wrapped domain error", fmt.Errorf("create: %w", &services.Error{Kind: services.ErrNotFound, Code: services.CodeMenuItemNotFound}), http.StatusNotFound, "MENU_ITEM_NOT_FOUND"},
		{"upload error", &utils.FileUploadError{Code: "FILE_TOO_LARGE", Message: "too big"}, http.StatusBadRequest, "FILE_TOO_LARGE"},
		{"unexpected error", errors.New("connection reset"), http.StatusInternalServerError, "INTERNAL_ERROR"},
		{"raw repository error", repository.ErrStaleVersion, http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gin.SetMode(gin.TestMode)
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			handleError(c, tt.err)

			assert.Equal(t, tt.status, w.Code)
			var resp apiResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.False(t, resp.Success)
			assert.Equal(t, tt.code, resp.errorCode())
		})
	}
}

func TestHandleError_IncludesField(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", nil)

	handleError(c, &services.Error{Kind: services.ErrValidation, Code: services.CodeValidation, Message: "Table number is required", Field: "table_number"})

	var resp apiResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "table_number", resp.Error.Field)
	assert.Equal(t, "Table number is required", resp.Error.Message)
}

func TestRespondPage(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	respondPage(c, []int{1, 2}, repository.Page{Page: 2, Limit: 2}, 5)

	var resp apiResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Pagination)
	assert.Equal(t, 2, resp.Pagination.Page)
	assert.Equal(t, 2, resp.Pagination.Limit)
	assert.Equal(t, int64(5), resp.Pagination.Total)
	assert.Equal(t, 3, resp.Pagination.TotalPages)
}

func TestParseID(t *testing.T) {
	tests := []struct {
		value string
		ok    bool
	}{
		{"12", true},
		{"0", false},
		{"-3", false},
		{"abc", false},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			gin.SetMode(gin.TestMode)
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Params = gin.Params{{Key: "id", Value: tt.value}}

			id, ok := parseID(c, "id")

			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, uint(12), id)
			} else {
				assert.Equal(t, http.StatusBadRequest, w.Code)
			}
		})
	}
}

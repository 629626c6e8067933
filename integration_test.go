package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tablefire/ordering-api/config"
	"github.com/tablefire/ordering-api/middleware"
	"github.com/tablefire/ordering-api/models"
	"github.com/tablefire/ordering-api/services"
	"github.com/tablefire/ordering-api/testutil"
	"github.com/tablefire/ordering-api/utils"
	"gorm.io/gorm"
)

// testConfig mirrors the defaults config.Load applies
func testConfig() *config.Config {
	return &config.Config{
		GoEnv:                 "test",
		Port:                  "8080",
		DatabaseDriver:        config.DriverSQLite,
		CORSAllowedOrigins:    []string{"*"},
		TaxRate:               0.08,
		DeliveryFee:           3.99,
		FreeDeliveryThreshold: 50,
		PrepTimeMinutes:       30,
		InitialOrderStatus:    models.OrderStatusPending,
		TransferMode:          config.TransferModeLogOnly,
	}
}

// bearerAuth stands in for JWT validation. The bearer token is
// "<subject>#<role>" and is also used as the access token.
func bearerAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "UNAUTHORIZED",
					"message": "Missing or invalid token",
				},
			})
			return
		}
		subject, role, _ := strings.Cut(token, "#")
		c.Set(middleware.ContextUserID, subject)
		c.Set(middleware.ContextClaims, testutil.MockValidatedClaims(subject, role))
		c.Set(middleware.ContextAccessToken, token)
		c.Next()
	}
}

// tokenUserInfo answers /userinfo from the test token itself
type tokenUserInfo struct{}

func (tokenUserInfo) GetUserInfo(_ context.Context, accessToken string) (*services.Auth0UserInfo, error) {
	subject, _, _ := strings.Cut(accessToken, "#")
	_, name, _ := strings.Cut(subject, "|")
	return &services.Auth0UserInfo{
		Sub:   subject,
		Email: name + "@example.com",
		Name:  name,
	}, nil
}

type testApplication struct {
	db        *gorm.DB
	router    *gin.Engine
	publisher *services.MockPublisher
}

func setupTestApplication(t *testing.T) *testApplication {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.NewTestDB(t)
	publisher := services.NewMockPublisher()
	app := newApplication(db, testConfig(), dependencies{
		publisher: publisher,
		images:    services.NewImageService(services.NewMockStorage(), utils.MenuImagePrefix),
		userInfo:  tokenUserInfo{},
	})

	return &testApplication{
		db:        db,
		router:    setupRouter(app, bearerAuth(), []string{"*"}),
		publisher: publisher,
	}
}

func (a *testApplication) do(t *testing.T, method, path, token string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	var response map[string]interface{}
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response), "Response should be valid JSON: %s", w.Body.String())
	}
	return w, response
}

func errorCode(response map[string]interface{}) string {
	errBody, ok := response["error"].(map[string]interface{})
	if !ok {
		return ""
	}
	code, _ := errBody["code"].(string)
	return code
}

// TestHealthEndpointIntegration tests the /api/v1/health endpoint with full routing
func TestHealthEndpointIntegration(t *testing.T) {
	a := setupTestApplication(t)

	w, response := a.do(t, http.MethodGet, "/api/v1/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code, "Expected status 200 OK")
	assert.Equal(t, true, response["success"])
	assert.Equal(t, "Restaurant Ordering API is running", response["message"])
	assert.Equal(t, "log-only", response["events"])
}

// TestHealthEndpointMethod tests that only GET method is allowed
func TestHealthEndpointMethod(t *testing.T) {
	a := setupTestApplication(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/health", nil)
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code, "POST should not be routed")
}

// TestInvalidEndpoint tests that routes outside /api/v1 return 404
func TestInvalidEndpoint(t *testing.T) {
	a := setupTestApplication(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouteProtection(t *testing.T) {
	a := setupTestApplication(t)
	testutil.CreateUser(t, a.db, "auth0|customer", models.RoleCustomer)
	testutil.CreateUser(t, a.db, "auth0|staff", models.RoleStaff)

	tests := []struct {
		name           string
		method         string
		path           string
		token          string
		expectedStatus int
		expectedCode   string
	}{
		{"Menu is public", http.MethodGet, "/api/v1/menu", "", http.StatusOK, ""},
		{"Menu categories are public", http.MethodGet, "/api/v1/menu/categories", "", http.StatusOK, ""},
		{"Orders need a token", http.MethodGet, "/api/v1/orders", "", http.StatusUnauthorized, "UNAUTHORIZED"},
		{"Orders need a profile", http.MethodGet, "/api/v1/orders", "auth0|stranger#customer", http.StatusNotFound, "USER_NOT_FOUND"},
		{"Customer lists own orders", http.MethodGet, "/api/v1/orders", "auth0|customer#customer", http.StatusOK, ""},
		{"Customer cannot read inventory", http.MethodGet, "/api/v1/inventory", "auth0|customer#customer", http.StatusForbidden, "FORBIDDEN"},
		{"Staff reads inventory", http.MethodGet, "/api/v1/inventory", "auth0|staff#staff", http.StatusOK, ""},
		{"Staff cannot read order stats", http.MethodGet, "/api/v1/orders/stats", "auth0|staff#staff", http.StatusForbidden, "FORBIDDEN"},
		{"Token role claim does not grant access", http.MethodGet, "/api/v1/inventory/stats", "auth0|staff#admin", http.StatusForbidden, "FORBIDDEN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, response := a.do(t, tt.method, tt.path, tt.token, nil)
			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Equal(t, tt.expectedCode, errorCode(response))
		})
	}
}

func TestCreateProfileIntegration(t *testing.T) {
	a := setupTestApplication(t)

	w, response := a.do(t, http.MethodPost, "/api/v1/users", "auth0|maria#staff", nil)
	require.Equal(t, http.StatusCreated, w.Code, errorCode(response))
	data := response["data"].(map[string]interface{})
	assert.Equal(t, "maria@example.com", data["email"])
	assert.Equal(t, models.RoleStaff, data["role"])

	w, response = a.do(t, http.MethodPost, "/api/v1/users", "auth0|maria#staff", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "USER_EXISTS", errorCode(response))

	w, response = a.do(t, http.MethodGet, "/api/v1/users/me", "auth0|maria#staff", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "maria", response["data"].(map[string]interface{})["name"])
}

func TestCORSHeaders(t *testing.T) {
	a := setupTestApplication(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("Origin", "https://app.example.com")
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/api/v1/orders", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Idempotency-Key")
	w = httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Contains(t, strings.ToLower(w.Header().Get("Access-Control-Allow-Headers")), "idempotency-key")
}

func TestUserAdministrationIntegration(t *testing.T) {
	a := setupTestApplication(t)
	testutil.CreateUser(t, a.db, "auth0|admin", models.RoleAdmin)
	alice := testutil.CreateUser(t, a.db, "auth0|alice", models.RoleCustomer)
	testutil.CreateUser(t, a.db, "auth0|bob", models.RoleCustomer)
	alicePath := fmt.Sprintf("/api/v1/users/%d", alice.ID)

	w, response := a.do(t, http.MethodGet, "/api/v1/users", "auth0|alice#customer", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "FORBIDDEN", errorCode(response))

	w, response = a.do(t, http.MethodGet, "/api/v1/users?role=customer", "auth0|admin#admin", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(2), response["pagination"].(map[string]interface{})["total"])

	w, response = a.do(t, http.MethodGet, "/api/v1/users/stats", "auth0|admin#admin", nil)
	require.Equal(t, http.StatusOK, w.Code)
	summary := response["data"].(map[string]interface{})["summary"].(map[string]interface{})
	assert.Equal(t, float64(3), summary["total"])

	w, _ = a.do(t, http.MethodGet, alicePath, "auth0|alice#customer", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, response = a.do(t, http.MethodGet, alicePath, "auth0|bob#customer", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "FORBIDDEN", errorCode(response))

	w, _ = a.do(t, http.MethodPatch, alicePath+"/deactivate", "auth0|admin#admin", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, response = a.do(t, http.MethodGet, "/api/v1/orders", "auth0|alice#customer", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "ACCOUNT_INACTIVE", errorCode(response))

	w, _ = a.do(t, http.MethodPatch, alicePath+"/activate", "auth0|admin#admin", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = a.do(t, http.MethodGet, "/api/v1/orders", "auth0|alice#customer", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tablefire/ordering-api/config"
	"github.com/tablefire/ordering-api/testutil"
)

type fakeBroker struct {
	err error
}

func (b fakeBroker) Ping() error { return b.err }

func runHandler(t *testing.T, handler gin.HandlerFunc) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	handler(c)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response), "Response should be valid JSON")
	return w, response
}

// TestHealthCheck is a unit test for the healthCheck handler
func TestHealthCheck(t *testing.T) {
	tests := []struct {
		name   string
		broker pinger
		events string
	}{
		{"No broker configured", nil, "log-only"},
		{"Broker reachable", fakeBroker{}, "connected"},
		{"Broker unreachable", fakeBroker{err: errors.New("connection closed")}, "disconnected"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := &application{broker: tt.broker}

			w, response := runHandler(t, app.healthCheck)

			assert.Equal(t, http.StatusOK, w.Code, "Health is reported even when the broker is down")
			assert.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))
			assert.Equal(t, true, response["success"])
			assert.Equal(t, "Restaurant Ordering API is running", response["message"])
			assert.Equal(t, tt.events, response["events"])
		})
	}
}

func TestDatabaseStatus(t *testing.T) {
	originalDB := config.GetDB()
	defer config.SetDB(originalDB)

	config.SetDB(testutil.NewTestDB(t))

	w, response := runHandler(t, databaseStatus)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, response["success"])
	assert.Equal(t, "Database connected", response["message"])

	tables, ok := response["tables"].([]interface{})
	require.True(t, ok, "tables should be a list")
	assert.Contains(t, tables, "orders")
	assert.Contains(t, tables, "menu_items")
	assert.Contains(t, tables, "inventory_items")
}

func TestDatabaseStatus_NotInitialized(t *testing.T) {
	originalDB := config.GetDB()
	defer config.SetDB(originalDB)

	config.SetDB(nil)

	w, response := runHandler(t, databaseStatus)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, false, response["success"])
	errBody, ok := response["error"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "DATABASE_ERROR", errBody["code"])
}

func TestDatabaseStatus_ConnectionClosed(t *testing.T) {
	originalDB := config.GetDB()
	defer config.SetDB(originalDB)

	db := testutil.NewTestDB(t)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())
	config.SetDB(db)

	w, response := runHandler(t, databaseStatus)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	errBody := response["error"].(map[string]interface{})
	assert.Equal(t, "DATABASE_CONNECTION_ERROR", errBody["code"])
}

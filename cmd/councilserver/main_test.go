package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vasic-digital/council/internal/config"
	"github.com/vasic-digital/council/internal/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const testConfigYAML = `
models:
  - id: m1
    providerKind: openai-compatible
    endpoint: http://127.0.0.1:1/v1
planner:
  mode: static
  generalModelId: m1
session:
  timeoutMs: 5000
repository:
  backend: memory
`

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.NewLoader("unused", "").LoadFromString(testConfigYAML)
	require.NoError(t, err)
	return cfg
}

func setupTestServer(t *testing.T) (*Server, *gin.Engine) {
	t.Helper()
	server := NewServer("0", testConfig(t))
	r := gin.New()
	api := r.Group("/api/v1")
	{
		api.POST("/sessions", server.handleCreateSession)
		api.GET("/sessions", server.handleListSessions)
		api.GET("/sessions/:id", server.handleGetSession)
		api.GET("/health", server.handleHealth)
	}
	return server, r
}

func TestNewServer(t *testing.T) {
	server := NewServer("8080", testConfig(t))
	require.NotNil(t, server)
	assert.Equal(t, "8080", server.port)
	assert.NotNil(t, server.pipeline)
	assert.NotNil(t, server.hub)
}

func TestHandleHealth(t *testing.T) {
	_, r := setupTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHandleCreateSession_MissingQuestion(t *testing.T) {
	_, r := setupTestServer(t)
	body, _ := json.Marshal(map[string]string{})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleGetSession_NotFound(t *testing.T) {
	_, r := setupTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions/missing", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleListSessions_Empty(t *testing.T) {
	_, r := setupTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Sessions []models.Session `json:"sessions"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Empty(t, body.Sessions)
}

package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinycask/tinycask/internal/engine"
	"github.com/tinycask/tinycask/internal/shared"
)

func setupTestRouter(t *testing.T) (http.Handler, *engine.Engine) {
	t.Helper()

	db, err := engine.Open(filepath.Join(t.TempDir(), "api.db"), engine.DefaultOptions())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)
	logger := shared.NewLogger(shared.ERROR)
	handler := NewHandler(db, metrics, nil, logger)

	return Router(handler, metrics, nil, registry, logger), db
}

func putKey(t *testing.T, router http.Handler, key, value string) *httptest.ResponseRecorder {
	t.Helper()

	body, err := json.Marshal(map[string]string{"value": value})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPut, "/api/v1/keys/"+key, bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestPutAndGetKey(t *testing.T) {
	router, _ := setupTestRouter(t)

	w := putKey(t, router, "name", "Alice")
	assert.Equal(t, http.StatusOK, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/keys/name", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, "name", response["key"])
	assert.Equal(t, "Alice", response["value"])
}

func TestGetMissingKey(t *testing.T) {
	router, _ := setupTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/keys/absent", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)

	var response ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, "NOT_FOUND", response.Error.Type)
}

func TestPutEmptyValueRejected(t *testing.T) {
	router, db := setupTestRouter(t)

	w := putKey(t, router, "name", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var response ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, "INVALID_VALUE", response.Error.Type)

	// Nothing reached the log
	assert.EqualValues(t, 0, db.Size())
}

func TestPutInvalidBody(t *testing.T) {
	router, _ := setupTestRouter(t)

	req := httptest.NewRequest(http.MethodPut, "/api/v1/keys/name", strings.NewReader("not json"))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeleteKey(t *testing.T) {
	router, _ := setupTestRouter(t)

	putKey(t, router, "name", "Alice")

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/keys/name", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/keys/name", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteMissingKeyIsIdempotent(t *testing.T) {
	router, db := setupTestRouter(t)

	sizeBefore := db.Size()

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/keys/never-existed", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	// The tombstone was still appended
	assert.Greater(t, db.Size(), sizeBefore)
}

func TestListKeys(t *testing.T) {
	router, _ := setupTestRouter(t)

	for i := 0; i < 3; i++ {
		putKey(t, router, fmt.Sprintf("key-%d", i), "v")
	}

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/keys/key-1", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/keys", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Keys  []string `json:"keys"`
		Count int      `json:"count"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, 2, response.Count)
	assert.ElementsMatch(t, []string{"key-0", "key-2"}, response.Keys)
}

func TestHealthCheck(t *testing.T) {
	router, _ := setupTestRouter(t)

	putKey(t, router, "name", "Alice")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, "healthy", response["status"])
	assert.EqualValues(t, 1, response["keys"])
}

func TestMetricsEndpoint(t *testing.T) {
	router, _ := setupTestRouter(t)

	putKey(t, router, "name", "Alice")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_requests_total")
	assert.Contains(t, w.Body.String(), "storage_operation_duration_seconds")
}

func TestSecurityHeaders(t *testing.T) {
	router, _ := setupTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
}

func TestStateSurvivesReopenThroughAPI(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reopen.db")

	db, err := engine.Open(path, engine.DefaultOptions())
	require.NoError(t, err)

	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)
	logger := shared.NewLogger(shared.ERROR)
	router := Router(NewHandler(db, metrics, nil, logger), metrics, nil, registry, logger)

	putKey(t, router, "name", "Alice")
	putKey(t, router, "city", "Berlin")

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/keys/name", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	require.NoError(t, db.Close())

	// A fresh engine over the same file sees the replayed state.
	db, err = engine.Open(path, engine.DefaultOptions())
	require.NoError(t, err)
	defer db.Close()

	registry = prometheus.NewRegistry()
	metrics = NewMetrics(registry)
	router = Router(NewHandler(db, metrics, nil, logger), metrics, nil, registry, logger)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/keys/city", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, "Berlin", response["value"])

	req = httptest.NewRequest(http.MethodGet, "/api/v1/keys/name", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

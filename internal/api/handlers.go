package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/tinycask/tinycask/internal/engine"
	"github.com/tinycask/tinycask/internal/kverr"
	"github.com/tinycask/tinycask/internal/shared"
)

// Handler handles HTTP requests for the key-value store
type Handler struct {
	db      *engine.Engine
	metrics *Metrics
	tracer  *Tracer // nil when tracing is disabled
	logger  *shared.Logger
}

// NewHandler creates a new API handler
func NewHandler(db *engine.Engine, metrics *Metrics, tracer *Tracer, logger *shared.Logger) *Handler {
	return &Handler{
		db:      db,
		metrics: metrics,
		tracer:  tracer,
		logger:  logger,
	}
}

// GetValue handles GET /api/v1/keys/{key}
func (h *Handler) GetValue(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]

	var value []byte
	err := h.traced(r, "get", func() error {
		var err error
		value, err = h.db.Get(key)
		return err
	})
	if err != nil {
		writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"key":   key,
		"value": string(value),
	})
}

// SetValue handles PUT /api/v1/keys/{key}
func (h *Handler) SetValue(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]

	var request struct {
		Value string `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		writeError(w, kverr.New(kverr.ErrorTypeInvalidValue, "invalid request body", err))
		return
	}

	err := h.traced(r, "set", func() error {
		return h.db.Set(key, []byte(request.Value))
	})
	if err != nil {
		writeError(w, err)
		return
	}

	h.refreshGauges()
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"key": key,
	})
}

// DeleteValue handles DELETE /api/v1/keys/{key}. Deleting an absent
// key succeeds: the tombstone is appended either way.
func (h *Handler) DeleteValue(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]

	err := h.traced(r, "delete", func() error {
		return h.db.Delete(key)
	})
	if err != nil {
		writeError(w, err)
		return
	}

	h.refreshGauges()
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"key": key,
	})
}

// ListKeys handles GET /api/v1/keys
func (h *Handler) ListKeys(w http.ResponseWriter, r *http.Request) {
	keys := h.db.Keys()

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"keys":  keys,
		"count": len(keys),
	})
}

// HealthCheck handles GET /api/v1/health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":         "healthy",
		"keys":           h.db.Len(),
		"log_size_bytes": h.db.Size(),
	})
}

// traced runs a storage operation under a span (when tracing is
// enabled) and records its latency and outcome.
func (h *Handler) traced(r *http.Request, operation string, fn func() error) error {
	start := time.Now()

	var err error
	if h.tracer != nil {
		err = h.tracer.TraceStorageOperation(r.Context(), operation, func(ctx context.Context) error {
			return fn()
		})
	} else {
		err = fn()
	}

	h.metrics.RecordStorageOperation(operation, time.Since(start), err)
	return err
}

// refreshGauges pushes index and file size gauges after a mutation
func (h *Handler) refreshGauges() {
	h.metrics.UpdateEngineGauges(h.db.Len(), h.db.Size())
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("failed to encode response: %v", err)
	}
}

// Package handler provides HTTP handlers for the service gate.
package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/svcgate/svcgate/src/internal/infrastructure/credstore"
	"github.com/svcgate/svcgate/src/internal/infrastructure/logger"
)

// HealthHandler handles health check requests, including a liveness
// probe of the credential store.
type HealthHandler struct {
	store credstore.Store
}

// NewHealthHandler creates a new health handler instance.
func NewHealthHandler(store credstore.Store) *HealthHandler {
	return &HealthHandler{store: store}
}

// HandleHealth responds to health check requests with service status.
// The gate keeps serving exempt and unlisted traffic during a
// credential-store outage, so an unavailable store degrades the status
// instead of failing the probe outright.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	status := "healthy"
	storeStatus := "available"
	if !h.store.IsAvailable(r.Context()) {
		status = "degraded"
		storeStatus = "unavailable"
	}

	response := map[string]string{
		"status":           status,
		"service":          "svcgate",
		"credential_store": storeStatus,
		"timestamp":        fmt.Sprintf("%d", time.Now().Unix()),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		logger.WithField("error", err).Error("Failed to encode health response")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

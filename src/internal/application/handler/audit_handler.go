package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/svcgate/svcgate/src/internal/infrastructure/logger"
	"github.com/svcgate/svcgate/src/internal/infrastructure/store"
)

// defaultAuditLimit caps how many records a single request returns
// when no explicit limit is given.
const defaultAuditLimit = 100

// AuditHandler serves recent gate decisions for operators. The path is
// service-only under the default rules, so it goes through the same
// signature checks it reports on.
type AuditHandler struct {
	log *store.DecisionLog
}

// NewAuditHandler creates a new audit handler.
func NewAuditHandler(log *store.DecisionLog) *AuditHandler {
	return &AuditHandler{log: log}
}

// HandleRecent returns recent decision records, newest first. The
// optional "limit" query parameter bounds the result.
func (h *AuditHandler) HandleRecent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit := defaultAuditLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	records := h.log.Recent(limit)

	w.Header().Set("Content-Type", "application/json")
	response := map[string]interface{}{
		"count":     len(records),
		"decisions": records,
	}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		logger.WithField("error", err).Error("Failed to encode audit response")
	}
}

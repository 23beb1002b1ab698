package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/svcgate/svcgate/src/internal/domain/entity"
	"github.com/svcgate/svcgate/src/internal/infrastructure/credstore"
	"github.com/svcgate/svcgate/src/internal/infrastructure/store"
)

func TestHealthHandler(t *testing.T) {
	cs := credstore.NewMemoryStore()
	h := NewHealthHandler(cs)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	w := httptest.NewRecorder()
	h.HandleHealth(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	if body["status"] != "healthy" {
		t.Errorf("status = %q, want healthy", body["status"])
	}
	if body["credential_store"] != "available" {
		t.Errorf("credential_store = %q, want available", body["credential_store"])
	}
}

func TestHealthHandler_DegradedOnStoreOutage(t *testing.T) {
	cs := credstore.NewMemoryStore()
	cs.SetAvailable(false)
	h := NewHealthHandler(cs)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	w := httptest.NewRecorder()
	h.HandleHealth(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	if body["status"] != "degraded" {
		t.Errorf("status = %q, want degraded", body["status"])
	}
}

func TestHealthHandler_MethodNotAllowed(t *testing.T) {
	h := NewHealthHandler(credstore.NewMemoryStore())

	req := httptest.NewRequest(http.MethodPost, "/api/health", nil)
	w := httptest.NewRecorder()
	h.HandleHealth(w, req)

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want %d", w.Code, http.StatusMethodNotAllowed)
	}
}

func seededLog(n int) *store.DecisionLog {
	log := store.NewDecisionLog(1000)
	for i := 0; i < n; i++ {
		log.Append(entity.DecisionRecord{
			ID:       fmt.Sprintf("rec-%d", i),
			Time:     time.Now(),
			Method:   "GET",
			Path:     fmt.Sprintf("/api/internal/x/%d", i),
			Category: entity.CategoryServiceOnly,
			Reason:   entity.ReasonMissingHeaders,
		})
	}
	return log
}

func TestAuditHandler_Recent(t *testing.T) {
	h := NewAuditHandler(seededLog(5))

	req := httptest.NewRequest(http.MethodGet, "/internal/audit/recent?limit=3", nil)
	w := httptest.NewRecorder()
	h.HandleRecent(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var body struct {
		Count     int                     `json:"count"`
		Decisions []entity.DecisionRecord `json:"decisions"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	if body.Count != 3 {
		t.Errorf("count = %d, want 3", body.Count)
	}
	if body.Decisions[0].ID != "rec-4" {
		t.Errorf("first decision = %q, want newest (rec-4)", body.Decisions[0].ID)
	}
}

func TestAuditHandler_BadLimit(t *testing.T) {
	h := NewAuditHandler(seededLog(1))

	tests := []string{"limit=0", "limit=-2", "limit=abc"}
	for _, q := range tests {
		req := httptest.NewRequest(http.MethodGet, "/internal/audit/recent?"+q, nil)
		w := httptest.NewRecorder()
		h.HandleRecent(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want %d", q, w.Code, http.StatusBadRequest)
		}
	}
}

func TestAuditHandler_MethodNotAllowed(t *testing.T) {
	h := NewAuditHandler(seededLog(0))

	req := httptest.NewRequest(http.MethodDelete, "/internal/audit/recent", nil)
	w := httptest.NewRecorder()
	h.HandleRecent(w, req)

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want %d", w.Code, http.StatusMethodNotAllowed)
	}
}

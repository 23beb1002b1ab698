// Package e2e exercises the full gateway stack in-process: router,
// rate limiter, enforcement gate, and handlers.
package e2e

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/svcgate/svcgate/src/internal/application/handler"
	"github.com/svcgate/svcgate/src/internal/application/middleware"
	"github.com/svcgate/svcgate/src/internal/domain/service"
	"github.com/svcgate/svcgate/src/internal/infrastructure/classifier"
	"github.com/svcgate/svcgate/src/internal/infrastructure/config"
	"github.com/svcgate/svcgate/src/internal/infrastructure/credstore"
	"github.com/svcgate/svcgate/src/internal/infrastructure/security"
	"github.com/svcgate/svcgate/src/internal/infrastructure/store"
	"github.com/svcgate/svcgate/src/internal/infrastructure/worker"
)

const testSecret = "e2e-shared-secret-0123456789abcdef0123456789"

type stack struct {
	server *httptest.Server
	store  *credstore.MemoryStore
	log    *store.DecisionLog
	pool   *worker.Pool
}

func newStack(t *testing.T) *stack {
	t.Helper()

	c, err := classifier.New(
		[]string{"/api/health"},
		[]string{"/api/internal/*", "/internal/audit/*"},
	)
	if err != nil {
		t.Fatalf("Failed to build classifier: %v", err)
	}

	cs := credstore.NewMemoryStore()
	cs.Put("billing", []byte(testSecret))

	v, err := security.NewValidator(cs, 5*time.Minute)
	if err != nil {
		t.Fatalf("Failed to build validator: %v", err)
	}

	pool := worker.NewPool(2, 64)
	log := store.NewDecisionLog(100)
	recorder := store.NewAsyncRecorder(log, pool)

	headers := config.HeaderNames{
		ServiceID: config.DefaultServiceIDHeader,
		Signature: config.DefaultSignatureHeader,
		Timestamp: config.DefaultTimestampHeader,
	}
	auth := middleware.NewServiceAuth(service.NewGate(c, v), headers, recorder)

	r := chi.NewRouter()
	r.Use(auth.Middleware)
	r.Get("/api/health", handler.NewHealthHandler(cs).HandleHealth)
	r.Get("/internal/audit/recent", handler.NewAuditHandler(log).HandleRecent)
	r.Post("/api/internal/sync", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})

	srv := httptest.NewServer(r)
	t.Cleanup(func() {
		srv.Close()
		_ = pool.Shutdown(time.Second)
	})

	return &stack{server: srv, store: cs, log: log, pool: pool}
}

func signedRequest(t *testing.T, base, method, path string, body []byte) *http.Request {
	t.Helper()

	req, err := http.NewRequest(method, base+path, bytes.NewReader(body))
	if err != nil {
		t.Fatalf("Failed to build request: %v", err)
	}

	ts := strconv.FormatInt(time.Now().Unix(), 10)
	req.Header.Set(config.DefaultServiceIDHeader, "billing")
	req.Header.Set(config.DefaultSignatureHeader, security.Sign([]byte(testSecret), method, path, ts, body))
	req.Header.Set(config.DefaultTimestampHeader, ts)
	return req
}

func TestHealthNeedsNoAuth(t *testing.T) {
	s := newStack(t)

	resp, err := http.Get(s.server.URL + "/api/health")
	if err != nil {
		t.Fatalf("GET /api/health: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
}

func TestUnlistedPathReaches404NotAuth(t *testing.T) {
	s := newStack(t)

	// No route registered; the gate must still let it through to the
	// router's 404, not block it with a 401.
	resp, err := http.Get(s.server.URL + "/api/unregistered/foo")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}
}

func TestServiceOnlyRoundTrip(t *testing.T) {
	s := newStack(t)
	body := []byte(`{"op":"sync"}`)

	// Unsigned request is denied.
	unsigned, err := http.Post(s.server.URL+"/api/internal/sync", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer unsigned.Body.Close()
	if unsigned.StatusCode != http.StatusUnauthorized {
		t.Fatalf("unsigned status = %d, want %d", unsigned.StatusCode, http.StatusUnauthorized)
	}

	var denial struct {
		Detail        string `json:"detail"`
		Authenticated bool   `json:"authenticated"`
	}
	if err := json.NewDecoder(unsigned.Body).Decode(&denial); err != nil {
		t.Fatalf("denial body is not JSON: %v", err)
	}
	if denial.Authenticated {
		t.Error("denial body claims authenticated=true")
	}

	// Properly signed request goes through to the handler.
	signed := signedRequest(t, s.server.URL, http.MethodPost, "/api/internal/sync", body)
	resp, err := http.DefaultClient.Do(signed)
	if err != nil {
		t.Fatalf("signed POST: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		raw, _ := io.ReadAll(resp.Body)
		t.Fatalf("signed status = %d, want %d, body %s", resp.StatusCode, http.StatusAccepted, raw)
	}
}

func TestStoreOutageGives503(t *testing.T) {
	s := newStack(t)
	s.store.SetAvailable(false)

	req := signedRequest(t, s.server.URL, http.MethodPost, "/api/internal/sync", []byte(`{}`))
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("signed POST: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusServiceUnavailable)
	}
}

func TestAuditEndpointIsItselfGuarded(t *testing.T) {
	s := newStack(t)

	// Generate some traffic to audit.
	resp, err := http.Get(s.server.URL + "/api/health")
	if err != nil {
		t.Fatalf("GET /api/health: %v", err)
	}
	resp.Body.Close()

	// Unsigned access to the audit endpoint is denied.
	unsigned, err := http.Get(s.server.URL + "/internal/audit/recent")
	if err != nil {
		t.Fatalf("GET audit: %v", err)
	}
	unsigned.Body.Close()
	if unsigned.StatusCode != http.StatusUnauthorized {
		t.Fatalf("unsigned audit status = %d, want %d", unsigned.StatusCode, http.StatusUnauthorized)
	}

	// Wait for the async recorder to drain.
	deadline := time.Now().Add(2 * time.Second)
	for s.log.Len() < 2 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	signed := signedRequest(t, s.server.URL, http.MethodGet, "/internal/audit/recent", nil)
	audit, err := http.DefaultClient.Do(signed)
	if err != nil {
		t.Fatalf("signed GET audit: %v", err)
	}
	defer audit.Body.Close()

	if audit.StatusCode != http.StatusOK {
		t.Fatalf("signed audit status = %d, want %d", audit.StatusCode, http.StatusOK)
	}

	var body struct {
		Count int `json:"count"`
	}
	if err := json.NewDecoder(audit.Body).Decode(&body); err != nil {
		t.Fatalf("audit body is not JSON: %v", err)
	}
	if body.Count < 2 {
		t.Errorf("audit count = %d, want at least the health hit and the denial", body.Count)
	}
}

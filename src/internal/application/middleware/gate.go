// Package middleware provides the HTTP enforcement layer of the service gate.
package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/svcgate/svcgate/src/internal/domain/entity"
	"github.com/svcgate/svcgate/src/internal/domain/service"
	"github.com/svcgate/svcgate/src/internal/infrastructure/config"
	"github.com/svcgate/svcgate/src/internal/infrastructure/logger"
)

// maxBodyBytes caps the request body size the gate will buffer for
// signature validation; larger bodies are rejected.
const maxBodyBytes = 1 << 20 // 1MB

// Recorder receives a copy of every gate decision for auditing.
type Recorder interface {
	Record(entity.DecisionRecord)
}

// ServiceAuth is the enforcement middleware. It runs the gate ahead of
// every handler: denied requests get a 401 with a generic body,
// infrastructure failures a 503, everything else proceeds.
type ServiceAuth struct {
	gate     *service.Gate
	headers  config.HeaderNames
	recorder Recorder
}

// NewServiceAuth creates the middleware. recorder may be nil when no
// audit trail is wanted.
func NewServiceAuth(gate *service.Gate, headers config.HeaderNames, recorder Recorder) *ServiceAuth {
	return &ServiceAuth{gate: gate, headers: headers, recorder: recorder}
}

// Middleware wraps next with the enforcement gate.
func (m *ServiceAuth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		meta := service.RequestMeta{
			Method: r.Method,
			Path:   r.URL.Path,
			Headers: entity.AuthHeaders{
				ServiceID: r.Header.Get(m.headers.ServiceID),
				Signature: r.Header.Get(m.headers.Signature),
				Timestamp: r.Header.Get(m.headers.Timestamp),
			},
		}

		// The body participates in the signature, so it has to be
		// buffered and handed back to the next handler untouched. A
		// body past the cap is rejected outright: truncating it would
		// hand downstream handlers corrupted input.
		if r.Body != nil && r.Body != http.NoBody {
			body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
			if err != nil {
				logger.WithField("error", err).Error("Failed to read request body")
				http.Error(w, "Failed to read request", http.StatusBadRequest)
				return
			}
			if len(body) > maxBodyBytes {
				logger.WithField("path", meta.Path).Warn("Request body exceeds size limit")
				http.Error(w, "Request body too large", http.StatusRequestEntityTooLarge)
				return
			}
			meta.Body = body
			r.Body = io.NopCloser(bytes.NewReader(body))
		}

		decision := m.gate.Decide(r.Context(), meta)

		logger.WithFields(map[string]interface{}{
			"method":   r.Method,
			"path":     meta.Path,
			"category": decision.Category,
			"reason":   decision.Reason,
			"allowed":  decision.Allowed,
		}).Info("Gate decision")

		if m.recorder != nil {
			m.recorder.Record(entity.DecisionRecord{
				ID:        uuid.NewString(),
				Time:      time.Now(),
				Method:    r.Method,
				Path:      meta.Path,
				Category:  decision.Category,
				Reason:    decision.Reason,
				Allowed:   decision.Allowed,
				ServiceID: meta.Headers.ServiceID,
			})
		}

		switch {
		case decision.Allowed:
			next.ServeHTTP(w, r)
		case decision.InfraError():
			// Never report an infra outage as "unauthorized", and
			// never let it through.
			writeJSON(w, http.StatusServiceUnavailable, "authentication backend unavailable")
		default:
			// Uniform body for every auth failure so callers cannot
			// probe which check rejected them.
			writeJSON(w, http.StatusUnauthorized, "service authentication required")
		}
	})
}

func writeJSON(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	body := map[string]interface{}{
		"detail":        detail,
		"authenticated": false,
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.WithField("error", err).Error("Failed to encode gate response")
	}
}

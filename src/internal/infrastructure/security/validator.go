// Package security provides HMAC signature validation for
// inter-service requests.
package security

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/svcgate/svcgate/src/internal/domain/entity"
	"github.com/svcgate/svcgate/src/internal/infrastructure/credstore"
)

// ValidationResult is the outcome of a signature check. Infrastructure
// failures are not a ValidationResult; they surface as a Go error so
// the gate can respond with a service-unavailable status instead of a
// spoofed "unauthorized".
type ValidationResult string

// Validation results.
const (
	ResultOK             ValidationResult = "ok"
	ResultMissingHeaders ValidationResult = "missing_headers"
	ResultUnknownService ValidationResult = "unknown_service"
	ResultBadSignature   ValidationResult = "bad_signature"
	ResultExpired        ValidationResult = "expired"
)

// Validator checks request signatures against per-service shared
// secrets fetched from a credential store.
type Validator struct {
	store credstore.Store
	skew  time.Duration

	// now is swappable for tests.
	now func() time.Time
}

// NewValidator creates a signature validator. The skew window bounds
// how far a request timestamp may deviate from the local clock in
// either direction before the request is rejected as a replay.
func NewValidator(store credstore.Store, skew time.Duration) (*Validator, error) {
	if store == nil {
		return nil, fmt.Errorf("credential store is required")
	}
	if skew <= 0 {
		return nil, fmt.Errorf("clock-skew window must be positive, got %v", skew)
	}
	return &Validator{store: store, skew: skew, now: time.Now}, nil
}

// Validate checks the signature of a single request. The timestamp is
// Unix seconds in decimal; an unparsable timestamp counts as a missing
// header. The returned error is non-nil only for infrastructure
// failures while contacting the credential store.
func (v *Validator) Validate(ctx context.Context, method, path string, hdr entity.AuthHeaders, body []byte) (ValidationResult, error) {
	if !hdr.Complete() {
		return ResultMissingHeaders, nil
	}

	ts, err := strconv.ParseInt(hdr.Timestamp, 10, 64)
	if err != nil {
		return ResultMissingHeaders, nil
	}

	// Freshness first: an expired request is rejected even when its
	// signature would verify.
	age := v.now().Sub(time.Unix(ts, 0))
	if age > v.skew || age < -v.skew {
		return ResultExpired, nil
	}

	secret, err := v.store.GetSecret(ctx, hdr.ServiceID)
	if err != nil {
		if errors.Is(err, credstore.ErrServiceNotFound) {
			return ResultUnknownService, nil
		}
		return "", fmt.Errorf("fetch secret for %q: %w", hdr.ServiceID, err)
	}

	expected := Sign(secret, method, path, hdr.Timestamp, body)
	if !hmac.Equal([]byte(hdr.Signature), []byte(expected)) {
		return ResultBadSignature, nil
	}

	return ResultOK, nil
}

// Sign computes the signature a client must send for a request. The
// canonical string covers method, path, timestamp, and a digest of the
// body, so altering any one of them invalidates the signature.
func Sign(secret []byte, method, path, timestamp string, body []byte) string {
	bodyDigest := sha256.Sum256(body)
	canonical := method + "\n" + path + "\n" + timestamp + "\n" + hex.EncodeToString(bodyDigest[:])

	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(canonical))
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

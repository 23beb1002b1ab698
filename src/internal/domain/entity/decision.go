// Package entity contains the domain entities for the service gate.
package entity

import "time"

// PathCategory is the classification of a request path.
type PathCategory string

// Path categories.
const (
	CategoryExempt      PathCategory = "exempt"
	CategoryServiceOnly PathCategory = "service_only"
	CategoryUnlisted    PathCategory = "unlisted"
)

// DecisionReason explains why a request was allowed or denied.
type DecisionReason string

// Decision reasons.
const (
	ReasonExemptPath       DecisionReason = "exempt_path"
	ReasonUnlistedPath     DecisionReason = "unlisted_path"
	ReasonValidSignature   DecisionReason = "valid_signature"
	ReasonMissingHeaders   DecisionReason = "missing_headers"
	ReasonInvalidSignature DecisionReason = "invalid_signature"
	ReasonExpiredTimestamp DecisionReason = "expired_timestamp"
	ReasonInfraError       DecisionReason = "infra_error"
)

// AuthDecision is the outcome of the gate for a single request.
// It is computed once per request and never persisted.
type AuthDecision struct {
	Allowed  bool
	Category PathCategory
	Reason   DecisionReason
}

// Denied reports whether the request was rejected for an auth failure,
// as opposed to an infrastructure error.
func (d AuthDecision) Denied() bool {
	return !d.Allowed && d.Reason != ReasonInfraError
}

// InfraError reports whether the decision failed because a backing
// system was unreachable rather than because auth failed.
func (d AuthDecision) InfraError() bool {
	return d.Reason == ReasonInfraError
}

// DecisionRecord is an audit entry for a single gate decision.
type DecisionRecord struct {
	ID        string         `json:"id"`
	Time      time.Time      `json:"time"`
	Method    string         `json:"method"`
	Path      string         `json:"path"`
	Category  PathCategory   `json:"category"`
	Reason    DecisionReason `json:"reason"`
	Allowed   bool           `json:"allowed"`
	ServiceID string         `json:"service_id,omitempty"`
}

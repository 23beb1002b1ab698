// Package service contains the core enforcement logic of the service gate.
package service

import (
	"context"

	"github.com/svcgate/svcgate/src/internal/domain/entity"
	"github.com/svcgate/svcgate/src/internal/infrastructure/classifier"
	"github.com/svcgate/svcgate/src/internal/infrastructure/logger"
	"github.com/svcgate/svcgate/src/internal/infrastructure/security"
)

// RequestMeta is everything the gate needs to know about a request.
// It carries no framework types so the decision logic stays a pure
// function of its inputs.
type RequestMeta struct {
	Method  string
	Path    string
	Headers entity.AuthHeaders
	Body    []byte
}

// Gate decides whether a request may proceed. Exempt and unlisted
// paths pass without checks; service-only paths require a valid HMAC
// signature. Holds no mutable per-request state, so a single Gate
// serves any number of concurrent requests.
type Gate struct {
	classifier *classifier.Classifier
	validator  *security.Validator
}

// NewGate creates an enforcement gate.
func NewGate(c *classifier.Classifier, v *security.Validator) *Gate {
	return &Gate{classifier: c, validator: v}
}

// Decide classifies the request path and, for service-only paths,
// validates the signature. Identical inputs against an available
// credential store always produce an identical decision.
func (g *Gate) Decide(ctx context.Context, meta RequestMeta) entity.AuthDecision {
	category := g.classifier.Classify(meta.Path)

	switch category {
	case entity.CategoryExempt:
		return entity.AuthDecision{Allowed: true, Category: category, Reason: entity.ReasonExemptPath}
	case entity.CategoryUnlisted:
		// Deliberate fail-open: anything not explicitly marked
		// sensitive passes. New sensitive endpoints must be added to
		// the service-only list or they are reachable by default.
		return entity.AuthDecision{Allowed: true, Category: category, Reason: entity.ReasonUnlistedPath}
	}

	result, err := g.validator.Validate(ctx, meta.Method, meta.Path, meta.Headers, meta.Body)
	if err != nil {
		// Infrastructure failure. Never converted into "allowed" and
		// never reported as an auth failure.
		logger.WithField("path", meta.Path).
			WithField("error", err).
			Error("Credential store failure during validation")
		return entity.AuthDecision{Allowed: false, Category: category, Reason: entity.ReasonInfraError}
	}

	return entity.AuthDecision{Allowed: result == security.ResultOK, Category: category, Reason: reasonFor(result)}
}

// reasonFor maps a validation result onto a decision reason. Unknown
// services are reported as invalid signatures: the caller-visible
// taxonomy must not reveal which check failed.
func reasonFor(result security.ValidationResult) entity.DecisionReason {
	switch result {
	case security.ResultOK:
		return entity.ReasonValidSignature
	case security.ResultMissingHeaders:
		return entity.ReasonMissingHeaders
	case security.ResultExpired:
		return entity.ReasonExpiredTimestamp
	default:
		return entity.ReasonInvalidSignature
	}
}

package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/svcgate/svcgate/src/internal/domain/entity"
)

// Default header names carrying the service auth material. They can be
// overridden in the rules file; the core contract only cares that all
// three arrive.
const (
	DefaultServiceIDHeader = "X-Service-ID"
	DefaultSignatureHeader = "X-Service-Signature"
	DefaultTimestampHeader = "X-Service-Timestamp"
)

// HeaderNames configures which request headers carry the service
// identifier, signature, and timestamp.
type HeaderNames struct {
	ServiceID string `yaml:"service_id"`
	Signature string `yaml:"signature"`
	Timestamp string `yaml:"timestamp"`
}

// Rules is the classification and validation policy, loaded from a
// YAML file at startup and on SIGHUP. A missing or malformed file is
// fatal at startup: the gate refuses to serve traffic with an
// undefined classification policy.
type Rules struct {
	ExemptPaths      []string                 `yaml:"exempt_paths"`
	ServiceOnlyPaths []string                 `yaml:"service_only_paths"`
	ClockSkewRaw     string                   `yaml:"clock_skew"`
	Headers          HeaderNames              `yaml:"headers"`
	Services         []entity.ServiceIdentity `yaml:"services"`

	// ClockSkew is parsed from ClockSkewRaw during load.
	ClockSkew time.Duration `yaml:"-"`
}

// LoadRules reads and validates the rules file.
func LoadRules(path string) (*Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}

	var rules Rules
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("parse rules file: %w", err)
	}

	if len(rules.ExemptPaths) == 0 && len(rules.ServiceOnlyPaths) == 0 {
		return nil, fmt.Errorf("rules file %s defines no path rules", path)
	}

	rules.ClockSkew = 5 * time.Minute
	if rules.ClockSkewRaw != "" {
		skew, err := time.ParseDuration(rules.ClockSkewRaw)
		if err != nil {
			return nil, fmt.Errorf("parse clock_skew: %w", err)
		}
		if skew <= 0 {
			return nil, fmt.Errorf("clock_skew must be positive, got %s", rules.ClockSkewRaw)
		}
		rules.ClockSkew = skew
	}

	if rules.Headers.ServiceID == "" {
		rules.Headers.ServiceID = DefaultServiceIDHeader
	}
	if rules.Headers.Signature == "" {
		rules.Headers.Signature = DefaultSignatureHeader
	}
	if rules.Headers.Timestamp == "" {
		rules.Headers.Timestamp = DefaultTimestampHeader
	}

	for _, svc := range rules.Services {
		if svc.ID == "" || svc.Secret == "" {
			return nil, fmt.Errorf("service entries need both id and secret")
		}
	}

	return &rules, nil
}

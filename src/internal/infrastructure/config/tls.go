// Package config provides TLS configuration for secure HTTPS connections.
package config

import (
	"crypto/tls"
	"fmt"
	"os"
)

// TLSConfig holds TLS/HTTPS configuration.
type TLSConfig struct {
	Enabled  bool   // Whether TLS is enabled
	CertFile string // Path to certificate file
	KeyFile  string // Path to private key file
}

// LoadTLSConfig loads TLS configuration from environment variables.
func LoadTLSConfig() *TLSConfig {
	cfg := &TLSConfig{
		Enabled:  os.Getenv("SVCGATE_TLS_ENABLED") == "true",
		CertFile: os.Getenv("SVCGATE_TLS_CERT"),
		KeyFile:  os.Getenv("SVCGATE_TLS_KEY"),
	}

	if cfg.Enabled {
		if cfg.CertFile == "" {
			cfg.CertFile = "/etc/svcgate/tls/cert.pem"
		}
		if cfg.KeyFile == "" {
			cfg.KeyFile = "/etc/svcgate/tls/key.pem"
		}
	}

	return cfg
}

// Validate checks if the TLS configuration is valid.
func (c *TLSConfig) Validate() error {
	if !c.Enabled {
		return nil
	}

	if c.CertFile == "" || c.KeyFile == "" {
		return fmt.Errorf("cert and key files required when TLS is enabled")
	}

	if _, err := os.Stat(c.CertFile); err != nil {
		return fmt.Errorf("certificate file not found: %s", c.CertFile)
	}
	if _, err := os.Stat(c.KeyFile); err != nil {
		return fmt.Errorf("key file not found: %s", c.KeyFile)
	}

	return nil
}

// GetTLSConfig returns a crypto/tls.Config for secure connections.
func (c *TLSConfig) GetTLSConfig() (*tls.Config, error) {
	if !c.Enabled {
		return nil, nil
	}

	cert, err := tls.LoadX509KeyPair(c.CertFile, c.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load TLS certificates: %w", err)
	}

	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
		CipherSuites: []uint16{
			tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
			tls.TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305,
			tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
			tls.TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305,
			tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
			tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
		},
		PreferServerCipherSuites: true,
		CurvePreferences: []tls.CurveID{
			tls.X25519,
			tls.CurveP256,
		},
	}, nil
}

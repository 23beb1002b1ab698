// Package credstore provides access to shared service credentials.
package credstore

import (
	"context"
	"errors"
	"sync"
)

// Errors returned by credential lookups. Callers must distinguish the
// two: an unknown service is an authentication failure, an unavailable
// store is an infrastructure failure and must never be reported as
// "unauthorized".
var (
	ErrServiceNotFound  = errors.New("service not found")
	ErrStoreUnavailable = errors.New("credential store unavailable")
)

// Store reads provisioned service credentials. The gate only ever
// reads; provisioning happens out of band at deployment time.
type Store interface {
	// GetSecret returns the shared secret for a service ID. It returns
	// ErrServiceNotFound for unknown services and an error wrapping
	// ErrStoreUnavailable when the backing store cannot be reached.
	GetSecret(ctx context.Context, serviceID string) ([]byte, error)

	// IsAvailable probes whether the backing store is reachable.
	IsAvailable(ctx context.Context) bool
}

// MemoryStore is an in-process Store backed by a map. It serves
// statically provisioned identities from the rules file and doubles as
// the test double for the Redis adapter.
type MemoryStore struct {
	mu          sync.RWMutex
	secrets     map[string][]byte
	unavailable bool
}

// NewMemoryStore creates an empty in-memory credential store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{secrets: make(map[string][]byte)}
}

// Put registers a service secret.
func (s *MemoryStore) Put(serviceID string, secret []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]byte, len(secret))
	copy(cp, secret)
	s.secrets[serviceID] = cp
}

// GetSecret implements Store.
func (s *MemoryStore) GetSecret(_ context.Context, serviceID string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.unavailable {
		return nil, ErrStoreUnavailable
	}

	secret, ok := s.secrets[serviceID]
	if !ok {
		return nil, ErrServiceNotFound
	}

	cp := make([]byte, len(secret))
	copy(cp, secret)
	return cp, nil
}

// IsAvailable implements Store.
func (s *MemoryStore) IsAvailable(_ context.Context) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.unavailable
}

// SetAvailable toggles simulated availability. Used by tests to force
// the infrastructure-failure path.
func (s *MemoryStore) SetAvailable(available bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unavailable = !available
}

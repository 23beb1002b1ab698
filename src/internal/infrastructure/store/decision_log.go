// Package store provides in-memory storage for gate decision records.
package store

import (
	"sync"
	"time"

	"github.com/svcgate/svcgate/src/internal/domain/entity"
)

// DecisionLog keeps a bounded history of recent gate decisions for the
// audit endpoint. Oldest records are dropped once the bound is hit.
type DecisionLog struct {
	mu         sync.RWMutex
	records    []entity.DecisionRecord
	maxRecords int
}

// NewDecisionLog creates a decision log holding at most maxRecords
// entries. A non-positive bound falls back to 1000.
func NewDecisionLog(maxRecords int) *DecisionLog {
	if maxRecords <= 0 {
		maxRecords = 1000
	}
	return &DecisionLog{
		records:    make([]entity.DecisionRecord, 0, maxRecords),
		maxRecords: maxRecords,
	}
}

// Append adds a record, evicting the oldest entries past the bound.
func (l *DecisionLog) Append(rec entity.DecisionRecord) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.records = append(l.records, rec)
	if len(l.records) > l.maxRecords {
		l.records = l.records[len(l.records)-l.maxRecords:]
	}
}

// Recent returns up to n records, newest first. n <= 0 returns all.
func (l *DecisionLog) Recent(n int) []entity.DecisionRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if n <= 0 || n > len(l.records) {
		n = len(l.records)
	}

	out := make([]entity.DecisionRecord, n)
	for i := 0; i < n; i++ {
		out[i] = l.records[len(l.records)-1-i]
	}
	return out
}

// Len returns the number of stored records.
func (l *DecisionLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.records)
}

// CleanupOldRecords drops records older than maxAge.
func (l *DecisionLog) CleanupOldRecords(maxAge time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	kept := make([]entity.DecisionRecord, 0, len(l.records))
	for _, rec := range l.records {
		if rec.Time.After(cutoff) {
			kept = append(kept, rec)
		}
	}
	l.records = kept
}

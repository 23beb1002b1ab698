package store

import (
	"fmt"
	"testing"
	"time"

	"github.com/svcgate/svcgate/src/internal/domain/entity"
)

func record(path string, at time.Time) entity.DecisionRecord {
	return entity.DecisionRecord{
		ID:       fmt.Sprintf("rec-%s", path),
		Time:     at,
		Method:   "GET",
		Path:     path,
		Category: entity.CategoryServiceOnly,
		Reason:   entity.ReasonMissingHeaders,
	}
}

func TestDecisionLog_AppendAndRecent(t *testing.T) {
	log := NewDecisionLog(10)
	now := time.Now()

	for i := 0; i < 5; i++ {
		log.Append(record(fmt.Sprintf("/p/%d", i), now))
	}

	if log.Len() != 5 {
		t.Fatalf("Len() = %d, want 5", log.Len())
	}

	recent := log.Recent(2)
	if len(recent) != 2 {
		t.Fatalf("Recent(2) returned %d records", len(recent))
	}
	// Newest first.
	if recent[0].Path != "/p/4" || recent[1].Path != "/p/3" {
		t.Errorf("Recent(2) = %q, %q; want /p/4, /p/3", recent[0].Path, recent[1].Path)
	}

	all := log.Recent(0)
	if len(all) != 5 {
		t.Errorf("Recent(0) returned %d records, want all 5", len(all))
	}
}

func TestDecisionLog_Bounded(t *testing.T) {
	log := NewDecisionLog(3)
	now := time.Now()

	for i := 0; i < 10; i++ {
		log.Append(record(fmt.Sprintf("/p/%d", i), now))
	}

	if log.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", log.Len())
	}
	if got := log.Recent(1)[0].Path; got != "/p/9" {
		t.Errorf("newest record = %q, want /p/9", got)
	}
}

func TestDecisionLog_CleanupOldRecords(t *testing.T) {
	log := NewDecisionLog(10)

	log.Append(record("/old", time.Now().Add(-2*time.Hour)))
	log.Append(record("/fresh", time.Now()))

	log.CleanupOldRecords(time.Hour)

	if log.Len() != 1 {
		t.Fatalf("Len() after cleanup = %d, want 1", log.Len())
	}
	if got := log.Recent(1)[0].Path; got != "/fresh" {
		t.Errorf("surviving record = %q, want /fresh", got)
	}
}

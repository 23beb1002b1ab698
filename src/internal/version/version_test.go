package version

import (
	"strings"
	"testing"
)

func TestGetFullVersion(t *testing.T) {
	full := GetFullVersion()
	if !strings.HasPrefix(full, "svcgate ") {
		t.Errorf("GetFullVersion() = %q, want svcgate prefix", full)
	}
	if !strings.Contains(full, Version) {
		t.Errorf("GetFullVersion() = %q, missing version %q", full, Version)
	}
}

func TestGetShortVersion(t *testing.T) {
	if GetShortVersion() != Version {
		t.Errorf("GetShortVersion() = %q, want %q", GetShortVersion(), Version)
	}
}

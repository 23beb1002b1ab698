package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestInitializeStdoutOnly(t *testing.T) {
	defer Close()

	if err := Initialize(Config{Level: "debug"}); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	if Get().GetLevel() != logrus.DebugLevel {
		t.Errorf("level = %v, want debug", Get().GetLevel())
	}
}

func TestInitializeInvalidLevelFallsBack(t *testing.T) {
	defer Close()

	if err := Initialize(Config{Level: "shouting"}); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	if Get().GetLevel() != logrus.InfoLevel {
		t.Errorf("level = %v, want info fallback", Get().GetLevel())
	}
}

func TestInitializeWithFile(t *testing.T) {
	defer Close()

	path := filepath.Join(t.TempDir(), "gate.log")
	if err := Initialize(Config{Level: "info", FilePath: path}); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	WithField("path", "/api/health").Info("test entry")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}
	if len(data) == 0 {
		t.Error("log file is empty after writing an entry")
	}
}

func TestGetWithoutInitialize(t *testing.T) {
	defer Close()

	if Get() == nil {
		t.Fatal("Get() returned nil without prior Initialize")
	}
}

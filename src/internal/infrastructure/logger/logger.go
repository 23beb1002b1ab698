// Package logger provides centralized logging with file output.
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

var (
	instance  *logrus.Logger
	once      sync.Once
	mu        sync.RWMutex
	logFile   *os.File
	stopChan  chan struct{}
	monitorWG sync.WaitGroup
)

// Config holds logger configuration.
type Config struct {
	Level      string
	FilePath   string
	MaxSize    int64 // Max size in bytes before rotation
	MaxBackups int   // Number of backups to keep
}

// Initialize sets up the global logger instance.
func Initialize(cfg Config) error {
	var err error
	once.Do(func() {
		instance = logrus.New()

		level, parseErr := logrus.ParseLevel(cfg.Level)
		if parseErr != nil {
			level = logrus.InfoLevel
		}
		instance.SetLevel(level)

		instance.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339,
		})

		if cfg.FilePath == "" {
			instance.SetOutput(os.Stdout)
			return
		}

		err = setupFileOutput(cfg)
		if err == nil && logFile != nil {
			instance.SetOutput(io.MultiWriter(os.Stdout, logFile))
		}
	})

	return err
}

func setupFileOutput(cfg Config) error {
	logDir := filepath.Dir(cfg.FilePath)
	if err := os.MkdirAll(logDir, 0750); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	var err error
	logFile, err = openLogFile(cfg.FilePath)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	if cfg.MaxSize > 0 {
		stopChan = make(chan struct{})
		monitorWG.Add(1)
		go monitorLogRotation(cfg)
	}

	return nil
}

// monitorLogRotation rotates the log file once it grows past MaxSize.
func monitorLogRotation(cfg Config) {
	defer monitorWG.Done()
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-stopChan:
			return
		case <-ticker.C:
			mu.Lock()
			if logFile != nil {
				info, err := logFile.Stat()
				if err == nil && info.Size() > cfg.MaxSize {
					rotateLog(cfg)
				}
			}
			mu.Unlock()
		}
	}
}

func rotateLog(cfg Config) {
	if logFile == nil {
		return
	}
	_ = logFile.Close() //nolint:errcheck // Ignore close errors during rotation

	timestamp := time.Now().Format("20060102-150405")
	backupPath := fmt.Sprintf("%s.%s", cfg.FilePath, timestamp)
	_ = os.Rename(cfg.FilePath, backupPath) //nolint:errcheck // Continue even if rename fails

	var err error
	logFile, err = openLogFile(cfg.FilePath)
	if err == nil {
		instance.SetOutput(io.MultiWriter(os.Stdout, logFile))
	} else {
		instance.SetOutput(os.Stdout)
		logFile = nil
	}

	cleanOldBackups(cfg)
}

func openLogFile(filePath string) (*os.File, error) {
	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return file, nil
}

func cleanOldBackups(cfg Config) {
	dir := filepath.Dir(cfg.FilePath)
	base := filepath.Base(cfg.FilePath)

	files, err := os.ReadDir(dir)
	if err != nil {
		return
	}

	var backups []os.DirEntry
	for _, file := range files {
		if len(file.Name()) > len(base) && file.Name()[:len(base)] == base && file.Name() != base {
			backups = append(backups, file)
		}
	}

	if len(backups) > cfg.MaxBackups {
		for i := 0; i < len(backups)-cfg.MaxBackups; i++ {
			_ = os.Remove(filepath.Join(dir, backups[i].Name())) //nolint:errcheck // Continue on error
		}
	}
}

// Get returns the logger instance, initializing a stdout-only logger
// if Initialize was never called.
func Get() *logrus.Logger {
	if instance == nil {
		if err := Initialize(Config{Level: "info"}); err != nil {
			instance = logrus.New()
		}
	}
	return instance
}

// WithField creates an entry with a single field.
func WithField(key string, value interface{}) *logrus.Entry {
	return Get().WithField(key, value)
}

// WithFields creates an entry with multiple fields.
func WithFields(fields logrus.Fields) *logrus.Entry {
	return Get().WithFields(fields)
}

// Close stops the rotation monitor and closes the log file.
func Close() {
	mu.Lock()
	if stopChan != nil {
		close(stopChan)
		stopChan = nil
	}
	mu.Unlock()

	monitorWG.Wait()

	mu.Lock()
	defer mu.Unlock()

	if logFile != nil {
		instance.SetOutput(os.Stdout)
		_ = logFile.Close() //nolint:errcheck // Switch to stdout, ignore close errors
		logFile = nil
	}
	// Allow re-initialization in tests.
	once = sync.Once{}
}

// Debug logs a debug message.
func Debug(args ...interface{}) { Get().Debug(args...) }

// Info logs an info message.
func Info(args ...interface{}) { Get().Info(args...) }

// Warn logs a warning message.
func Warn(args ...interface{}) { Get().Warn(args...) }

// Error logs an error message.
func Error(args ...interface{}) { Get().Error(args...) }

// Fatal logs a fatal message and exits.
func Fatal(args ...interface{}) { Get().Fatal(args...) }

// Debugf logs a formatted debug message.
func Debugf(format string, args ...interface{}) { Get().Debugf(format, args...) }

// Infof logs a formatted info message.
func Infof(format string, args ...interface{}) { Get().Infof(format, args...) }

// Warnf logs a formatted warning message.
func Warnf(format string, args ...interface{}) { Get().Warnf(format, args...) }

// Errorf logs a formatted error message.
func Errorf(format string, args ...interface{}) { Get().Errorf(format, args...) }

// Fatalf logs a formatted fatal message and exits.
func Fatalf(format string, args ...interface{}) { Get().Fatalf(format, args...) }

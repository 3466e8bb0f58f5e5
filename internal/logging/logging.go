package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
)

// The TUI owns stdout, so all logging goes to a file under the user's home
// directory.

var (
	logger  *log.Logger
	logFile *os.File
)

func Init() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("resolve home directory: %w", err)
	}

	logDir := filepath.Join(homeDir, ".lumen", "logs")
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return fmt.Errorf("create log directory: %w", err)
	}

	logPath := filepath.Join(logDir, fmt.Sprintf("lumen-%s.log", time.Now().Format("2006-01-02")))
	logFile, err = os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}

	logger = log.NewWithOptions(logFile, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Level:           log.DebugLevel,
	})
	return nil
}

func Close() {
	if logFile != nil {
		logFile.Close()
	}
}

func Debug(msg string, keyvals ...any) {
	if logger != nil {
		logger.Debug(msg, keyvals...)
	}
}

func Info(msg string, keyvals ...any) {
	if logger != nil {
		logger.Info(msg, keyvals...)
	}
}

func Warn(msg string, keyvals ...any) {
	if logger != nil {
		logger.Warn(msg, keyvals...)
	}
}

func Error(msg string, keyvals ...any) {
	if logger != nil {
		logger.Error(msg, keyvals...)
	}
}

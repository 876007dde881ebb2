// Package logger is the client's diagnostic channel. Best-effort failures
// that are never shown to the participant end up here.
package logger

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/zfogg/searchstudy/pkg/config"
)

var logger *log.Logger

// Init opens the configured log file. Verbose forces debug level.
func Init(verbose bool) {
	f, err := os.OpenFile(config.GetString("log.file"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		SetOutput(os.Stderr, verbose)
		return
	}
	SetOutput(f, verbose)
}

// SetOutput routes the logger to w
func SetOutput(w io.Writer, verbose bool) {
	level, err := log.ParseLevel(config.GetString("log.level"))
	if err != nil {
		level = log.InfoLevel
	}
	if verbose {
		level = log.DebugLevel
	}

	logger = log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		Prefix:          "studyctl",
	})
	logger.SetLevel(level)
}

// Debug logs a debug message
func Debug(msg string, args ...interface{}) {
	if logger != nil {
		logger.Debug(msg, args...)
	}
}

// Info logs an info message
func Info(msg string, args ...interface{}) {
	if logger != nil {
		logger.Info(msg, args...)
	}
}

// Warn logs a warning message
func Warn(msg string, args ...interface{}) {
	if logger != nil {
		logger.Warn(msg, args...)
	}
}

// Error logs an error message
func Error(msg string, args ...interface{}) {
	if logger != nil {
		logger.Error(msg, args...)
	}
}

// GetLogger returns the logger instance
func GetLogger() *log.Logger {
	return logger
}

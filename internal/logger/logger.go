// Package logger owns the server's global zap logger and the field helpers
// handlers and services attach to study events.
package logger

import (
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Log is the global logger. It discards everything until Initialize runs.
var Log = zap.NewNop()

// Rotation limits for the JSON log file
const (
	maxFileMB    = 50
	maxBackups   = 5
	maxAgeInDays = 14
)

// Initialize points Log at stdout (human-readable) and logFile (JSON,
// rotated). An empty logFile logs to stdout only.
func Initialize(logLevel string, logFile string) error {
	Log = build(parseLogLevel(logLevel), os.Stdout, logFile)
	Log.Info("Logger initialized",
		zap.String("level", logLevel),
		zap.String("file", logFile),
	)
	return nil
}

func build(level zapcore.Level, console io.Writer, logFile string) *zap.Logger {
	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()), zapcore.AddSync(console), level),
	}

	if logFile != "" {
		fileConfig := zap.NewProductionEncoderConfig()
		fileConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		rotated := &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    maxFileMB,
			MaxBackups: maxBackups,
			MaxAge:     maxAgeInDays,
			Compress:   true,
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(fileConfig), zapcore.AddSync(rotated), level))
	}

	return zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
}

// Close flushes buffered entries
func Close() error {
	return Log.Sync()
}

func parseLogLevel(s string) zapcore.Level {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "warning" {
		s = "warn"
	}
	level, err := zapcore.ParseLevel(s)
	if err != nil || level < zapcore.DebugLevel || level > zapcore.ErrorLevel {
		return zapcore.InfoLevel
	}
	return level
}

// WarnWithFields logs msg at warn, with err attached when non-nil
func WarnWithFields(msg string, err error) {
	Log.Warn(msg, errField(err)...)
}

// ErrorWithFields logs msg at error, with err attached when non-nil
func ErrorWithFields(msg string, err error) {
	Log.Error(msg, errField(err)...)
}

// FatalWithFields logs msg and exits
func FatalWithFields(msg string, err error) {
	Log.Fatal(msg, errField(err)...)
}

func errField(err error) []zap.Field {
	if err == nil {
		return nil
	}
	return []zap.Field{zap.Error(err)}
}

func WithRequestID(requestID string) zap.Field {
	return zap.String("request_id", requestID)
}

func WithParticipantID(participantID string) zap.Field {
	return zap.String("participant_id", participantID)
}

func WithSessionID(sessionID string) zap.Field {
	return zap.String("session_id", sessionID)
}

func WithQueryID(queryID string) zap.Field {
	return zap.String("query_id", queryID)
}

func WithPageID(pageID string) zap.Field {
	return zap.String("page_id", pageID)
}

func WithIP(ip string) zap.Field {
	return zap.String("ip", ip)
}

func WithStatus(status int) zap.Field {
	return zap.Int("status", status)
}

// Package observability wires structured logging and tracing into the HTTP stack.
package observability

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ServiceName tags every log line so the front end's entries can be told apart from the
// order system's in a shared Cloud Logging sink.
const ServiceName = "laundry-web"

// NewLogger builds the production logger: Cloud Logging JSON on stdout at the level named
// by LOG_LEVEL (info when unset or unknown).
func NewLogger() (*zap.Logger, error) {
	return newLogger(os.Getenv("LOG_LEVEL"), []string{"stdout"})
}

func parseLevel(raw string) zap.AtomicLevel {
	level := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if raw = strings.ToLower(strings.TrimSpace(raw)); raw != "" {
		if err := level.UnmarshalText([]byte(raw)); err != nil {
			level.SetLevel(zapcore.InfoLevel)
		}
	}
	return level
}

func newLogger(rawLevel string, outputs []string) (*zap.Logger, error) {
	cfg := zap.Config{
		Level:    parseLevel(rawLevel),
		Encoding: "json",
		EncoderConfig: zapcore.EncoderConfig{
			// Cloud Logging reads severity and message from these keys.
			MessageKey:    "message",
			LevelKey:      "severity",
			TimeKey:       "timestamp",
			CallerKey:     "caller",
			StacktraceKey: "stacktrace",
			EncodeTime:    zapcore.RFC3339NanoTimeEncoder,
			EncodeLevel:   zapcore.CapitalLevelEncoder,
			EncodeCaller:  zapcore.ShortCallerEncoder,
		},
		OutputPaths:       outputs,
		ErrorOutputPaths:  []string{"stderr"},
		DisableStacktrace: true,
		InitialFields:     map[string]any{"service": ServiceName},
	}
	return cfg.Build()
}

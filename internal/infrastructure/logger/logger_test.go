package logger

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/xpresstask/core/internal/infrastructure/config"
)

func TestNewRejectsUnknownLevel(t *testing.T) {
	if _, err := New(config.LoggerConfig{Level: "loud", Format: "json"}); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}

func TestNewBuildsConsoleLogger(t *testing.T) {
	l, err := New(config.LoggerConfig{Level: "debug", Format: "console", Output: "stdout"})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if !l.Desugar().Core().Enabled(zapcore.DebugLevel) {
		t.Fatalf("expected debug level to be enabled")
	}
}

func TestLogSecurityEventFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := (&Logger{SugaredLogger: zap.New(core).Sugar()}).WithComponent("auth")

	l.LogSecurityEvent("login_failed", "alice", "10.0.0.1", map[string]interface{}{"reason": "bad password"})

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	entry := entries[0]
	if entry.Level != zapcore.WarnLevel {
		t.Fatalf("expected warn level, got %s", entry.Level)
	}
	fields := entry.ContextMap()
	for key, want := range map[string]string{
		"component":      "auth",
		"security_event": "login_failed",
		"username":       "alice",
		"ip":             "10.0.0.1",
		"reason":         "bad password",
	} {
		if fields[key] != want {
			t.Fatalf("field %s = %v, want %q", key, fields[key], want)
		}
	}
}

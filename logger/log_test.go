package logger

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestSetLevel(t *testing.T) {
	defer func() { _ = SetLevel("debug") }()

	if err := SetLevel("WARN"); err != nil {
		t.Fatalf("SetLevel(WARN): %v", err)
	}
	if level.Level() != zapcore.WarnLevel {
		t.Fatalf("expected warn level, got %s", level.Level())
	}
	if Log.Core().Enabled(zapcore.InfoLevel) {
		t.Fatalf("info should be disabled at warn level")
	}
}

func TestSetLevelRejectsUnknown(t *testing.T) {
	if err := SetLevel("chatty"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}

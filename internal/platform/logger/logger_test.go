package logger

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewModes(t *testing.T) {
	for _, mode := range []string{"dev", "prod", ""} {
		l, err := New(mode, "info")
		if err != nil {
			t.Fatalf("New(%q) failed: %v", mode, err)
		}
		if l.SugaredLogger == nil {
			t.Fatalf("New(%q) returned nil sugared logger", mode)
		}
	}
}

func TestNewRejectsBadLevel(t *testing.T) {
	if _, err := New("dev", "loud"); err == nil {
		t.Error("Expected error for unknown level")
	}
}

func TestWithCarriesFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := Wrap(zap.New(core)).With("chapter", "intro")

	l.Warn("possibly malformed line", "line", 4)

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("Expected 1 entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["chapter"] != "intro" {
		t.Errorf("Expected chapter field 'intro', got %v", fields["chapter"])
	}
	if fields["line"] != int64(4) {
		t.Errorf("Expected line field 4, got %v (%T)", fields["line"], fields["line"])
	}
	if entries[0].Level != zapcore.WarnLevel {
		t.Errorf("Expected warn level, got %v", entries[0].Level)
	}
}

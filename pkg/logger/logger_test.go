package logger

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestIsDevelopment(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{input: "development", want: true},
		{input: " DEV ", want: true},
		{input: "local", want: true},
		{input: "production", want: false},
		{input: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := IsDevelopment(tt.input); got != tt.want {
				t.Fatalf("expected %t, got %t", tt.want, got)
			}
		})
	}
}

func TestComponentTagsEntries(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	Component(zap.New(core), "settlement").Info("hello")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if got := entries[0].ContextMap()["component"]; got != "settlement" {
		t.Fatalf("expected component=settlement, got %v", got)
	}
}

func TestComponentToleratesNilBase(t *testing.T) {
	if Component(nil, "api") == nil {
		t.Fatal("expected a usable logger for nil base")
	}
}

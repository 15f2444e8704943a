package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestTextFormat(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	SetLevel(LevelInfo)
	SetFormat("text")
	defer SetOutput(nil)

	Info("hello %s", "world")

	got := buf.String()
	if !strings.Contains(got, "[INFO]") {
		t.Errorf("expected [INFO] in text output: %s", got)
	}
	if !strings.Contains(got, "hello world") {
		t.Errorf("expected formatted message in output: %s", got)
	}
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	SetLevel(LevelDebug)
	SetFormat("json")
	defer func() {
		SetFormat("text")
		SetOutput(nil)
	}()

	tests := []struct {
		logFunc func(string, ...interface{})
		level   string
	}{
		{Debug, "debug"},
		{Info, "info"},
		{Warn, "warn"},
		{Error, "error"},
	}

	for _, tt := range tests {
		buf.Reset()
		tt.logFunc("json message")

		var entry map[string]interface{}
		if err := json.Unmarshal([]byte(strings.TrimSpace(buf.String())), &entry); err != nil {
			t.Fatalf("invalid JSON output: %v\nOutput: %s", err, buf.String())
		}
		if _, ok := entry["ts"]; !ok {
			t.Error("missing 'ts' field in JSON log")
		}
		if entry["level"] != tt.level {
			t.Errorf("expected level=%q, got %v", tt.level, entry["level"])
		}
		if entry["msg"] != "json message" {
			t.Errorf("expected msg='json message', got %v", entry["msg"])
		}
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	SetLevel(LevelWarn)
	defer func() {
		SetLevel(LevelInfo)
		SetOutput(nil)
	}()

	Debug("suppressed")
	Info("suppressed")
	Warn("kept")

	got := buf.String()
	if strings.Contains(got, "suppressed") {
		t.Errorf("messages below the level should be dropped: %s", got)
	}
	if !strings.Contains(got, "kept") {
		t.Errorf("warn message should be written: %s", got)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected Level
		wantErr  bool
	}{
		{"debug", LevelDebug, false},
		{"DEBUG", LevelDebug, false},
		{"info", LevelInfo, false},
		{"Warn", LevelWarn, false},
		{"warning", LevelWarn, false},
		{"error", LevelError, false},
		{"ERROR", LevelError, false},

		{"", LevelInfo, true},
		{"trace", LevelInfo, true},
		{"fatal", LevelInfo, true},
		{"info ", LevelInfo, true}, // no trimming
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			level, err := ParseLevel(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseLevel(%q) expected error, got nil", tt.input)
				}
				return
			}
			if err != nil {
				t.Errorf("ParseLevel(%q) unexpected error: %v", tt.input, err)
			}
			if level != tt.expected {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, level, tt.expected)
			}
		})
	}
}

func TestLevelString(t *testing.T) {
	tests := []struct {
		level    Level
		expected string
	}{
		{LevelDebug, "DEBUG"},
		{LevelInfo, "INFO"},
		{LevelWarn, "WARN"},
		{LevelError, "ERROR"},
		{Level(99), "UNKNOWN"},
	}

	for _, tt := range tests {
		if got := tt.level.String(); got != tt.expected {
			t.Errorf("Level(%d).String() = %q, want %q", tt.level, got, tt.expected)
		}
	}
}

func TestGetSetLevel(t *testing.T) {
	original := GetLevel()
	defer SetLevel(original)

	for _, level := range []Level{LevelDebug, LevelInfo, LevelWarn, LevelError} {
		SetLevel(level)
		if got := GetLevel(); got != level {
			t.Errorf("SetLevel(%v); GetLevel() = %v", level, got)
		}
	}
}

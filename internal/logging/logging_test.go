// SPDX-License-Identifier: AGPL-3.0-only
package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]LogLevel{
		"debug":   Debug,
		"info":    Info,
		"warn":    Warn,
		"error":   Error,
		"fatal":   Fatal,
		"bogus":   Info,
		"":        Info,
		"WARN":    Warn,
		"Debug":   Debug,
		"unknown": Info,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Options{Output: &buf, Level: Warn})

	logger.Debugf("debug message")
	logger.Infof("info message")
	logger.Warnf("warn message")
	logger.Errorf("error message")

	out := buf.String()
	if strings.Contains(out, "debug message") {
		t.Error("Expected debug message to be suppressed")
	}
	if strings.Contains(out, "info message") {
		t.Error("Expected info message to be suppressed")
	}
	if !strings.Contains(out, "warn message") {
		t.Error("Expected warn message to be emitted")
	}
	if !strings.Contains(out, "error message") {
		t.Error("Expected error message to be emitted")
	}
}

func TestLoggerFormatsArguments(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Options{Output: &buf, Level: Info})

	logger.Infof("tool %s took %d ms", "fetch_products", 42)

	if !strings.Contains(buf.String(), "tool fetch_products took 42 ms") {
		t.Errorf("Unexpected log output: %s", buf.String())
	}
}

func TestWithField(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Options{Output: &buf, Level: Info})

	child := logger.WithField("conversation_id", "c-123")
	child.Infof("processing message")

	out := buf.String()
	if !strings.Contains(out, "conversation_id=c-123") {
		t.Errorf("Expected field in output, got: %s", out)
	}
	if !strings.Contains(out, "processing message") {
		t.Errorf("Expected message in output, got: %s", out)
	}
}

func TestWithFieldDoesNotMutateParent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Options{Output: &buf, Level: Info})

	_ = logger.WithField("k", "v")
	logger.Infof("plain")

	if strings.Contains(buf.String(), "k=v") {
		t.Errorf("Parent logger picked up child field: %s", buf.String())
	}
}

func TestSetDefaultLogger(t *testing.T) {
	original := GetDefaultLogger()
	defer SetDefaultLogger(original)

	var buf bytes.Buffer
	replacement := New(Options{Output: &buf, Level: Debug})
	SetDefaultLogger(replacement)

	if GetDefaultLogger() != replacement {
		t.Error("Expected default logger to be replaced")
	}
}

func TestLevelString(t *testing.T) {
	if Debug.String() != "DEBUG" || Fatal.String() != "FATAL" {
		t.Errorf("Unexpected level names: %s %s", Debug, Fatal)
	}
}

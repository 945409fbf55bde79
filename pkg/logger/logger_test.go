package logger

import (
	"bytes"
	"os"
	"strings"
	"testing"
)

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stderr)
	SetLevel(INFO)
	defer SetLevel(INFO)

	DebugC("test", "hidden")
	InfoC("test", "shown")

	got := buf.String()
	if strings.Contains(got, "hidden") {
		t.Errorf("debug line emitted at info level: %q", got)
	}
	if !strings.Contains(got, "[INFO] [test] shown") {
		t.Errorf("missing info line: %q", got)
	}
}

func TestFieldsAreSorted(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stderr)
	SetLevel(DEBUG)
	defer SetLevel(INFO)

	WarnCF("relay", "turn failed", map[string]any{
		"user":  "123",
		"error": "boom",
	})

	got := buf.String()
	if !strings.Contains(got, "[WARN] [relay] turn failed error=boom user=123") {
		t.Errorf("unexpected line: %q", got)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"debug":   DEBUG,
		"INFO":    INFO,
		"Warning": WARN,
		"error":   ERROR,
		"":        INFO,
		"bogus":   INFO,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

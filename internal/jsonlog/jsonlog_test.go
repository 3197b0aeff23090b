package jsonlog

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/goccy/go-json"
)

func decode(t *testing.T, line string) map[string]any {
	t.Helper()

	var entry map[string]any
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		t.Fatalf("invalid JSON log line %q: %v", line, err)
	}
	return entry
}

func TestLoggerInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, LevelInfo)

	logger.Info("starting server", map[string]string{"addr": ":4000", "env": "development"})

	entry := decode(t, buf.String())
	if entry["level"] != "info" {
		t.Errorf("level = %v, want info", entry["level"])
	}
	if entry["message"] != "starting server" {
		t.Errorf("message = %v", entry["message"])
	}
	props, ok := entry["properties"].(map[string]any)
	if !ok || props["addr"] != ":4000" {
		t.Errorf("properties = %v", entry["properties"])
	}
	if _, ok := entry["time"]; !ok {
		t.Error("missing time field")
	}
}

func TestLoggerMinLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, LevelError)

	logger.Debug("noisy", nil)
	logger.Info("routine", nil)
	logger.Warning("odd", nil)

	if buf.Len() != 0 {
		t.Fatalf("expected nothing below ERROR, got %q", buf.String())
	}

	logger.Error(errors.New("boom"), map[string]string{"request_id": "abc"})

	entry := decode(t, buf.String())
	if entry["message"] != "boom" {
		t.Errorf("message = %v", entry["message"])
	}
	if trace, _ := entry["trace"].(string); !strings.Contains(trace, "goroutine") {
		t.Error("error entries should carry a stack trace")
	}
}

func TestLoggerFatalExits(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, LevelInfo)

	code := -1
	logger.exit = func(c int) { code = c }

	logger.Fatal(errors.New("cannot open database"), nil)

	if code != 1 {
		t.Errorf("exit code = %d, want 1", code)
	}
	if entry := decode(t, buf.String()); entry["level"] != "fatal" {
		t.Errorf("level = %v, want fatal", entry["level"])
	}
}

func TestLoggerWrite(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, LevelInfo)

	msg := []byte("http: TLS handshake error\n")
	n, err := logger.Write(msg)
	if err != nil || n != len(msg) {
		t.Fatalf("Write = %d, %v", n, err)
	}

	entry := decode(t, buf.String())
	if entry["level"] != "error" || entry["message"] != "http: TLS handshake error" {
		t.Errorf("entry = %v", entry)
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]Level{
		"debug":   LevelDebug,
		"INFO":    LevelInfo,
		"warn":    LevelWarning,
		"warning": LevelWarning,
		"error":   LevelError,
		"off":     LevelOff,
		"bogus":   LevelInfo,
	}

	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

package logging

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

// setupTestLogger configures a logger with a custom writer for tests
func setupTestLogger(output *bytes.Buffer, level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	SetLoggerForTest(zerolog.New(output).With().Timestamp().Logger().Level(lvl))
}

func TestInfoLogging(t *testing.T) {
	var buf bytes.Buffer
	setupTestLogger(&buf, "info")

	Info("pdf rendered", "documents", 3, "merged", true)

	out := buf.String()
	if !strings.Contains(out, "pdf rendered") {
		t.Error("Expected log message not found in output")
	}
	if !strings.Contains(out, `"documents":3`) || !strings.Contains(out, `"merged":true`) {
		t.Error("Expected key-value pairs not found in output")
	}
}

func TestWarnLogging(t *testing.T) {
	var buf bytes.Buffer
	setupTestLogger(&buf, "warn")

	Info("hidden")
	Warn("request failed", "status", 400)

	if strings.Contains(buf.String(), "hidden") {
		t.Error("info message should be filtered at warn level")
	}
	if !strings.Contains(buf.String(), "request failed") || !strings.Contains(buf.String(), `"status":400`) {
		t.Error("Warn log output missing expected content")
	}
}

func TestErrorLogging_ErrorValuesAndDanglingKey(t *testing.T) {
	var buf bytes.Buffer
	setupTestLogger(&buf, "error")

	Error("render failed", "error", errors.New("target closed"), "dangling")

	out := buf.String()
	if !strings.Contains(out, `"error":"target closed"`) {
		t.Errorf("expected error value rendered as string, got %s", out)
	}
	if !strings.Contains(out, `"dangling":null`) {
		t.Errorf("expected dangling key logged with null, got %s", out)
	}
}

func TestSetLogLevel(t *testing.T) {
	var buf bytes.Buffer
	setupTestLogger(&buf, "warn")

	SetLogLevel("info")
	Info("should be visible")

	if !strings.Contains(buf.String(), "should be visible") {
		t.Error("Expected info log after SetLogLevel not found")
	}

	SetLogLevel("invalid-level")
	Info("still visible")
	if !strings.Contains(buf.String(), "still visible") {
		t.Error("unknown level should fall back to info")
	}
}

func TestInitLogger_WritesRotatingFile(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "nested", "renderer.log")
	InitLogger(logFile, 1, 1, 1, false, "invalid")
	Info("hello", "k", "v")
	Warn("warn")
	Error("error")

	data, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("expected log file to be created: %v", err)
	}
	if !strings.Contains(string(data), `"service":"boletim-pdf"`) {
		t.Fatalf("expected service field in log file, got %s", data)
	}
}

func TestEnsureLogDir(t *testing.T) {
	if err := ensureLogDir("app.log"); err != nil {
		t.Fatalf("relative file in current dir should be noop: %v", err)
	}

	dir := filepath.Join(t.TempDir(), "nested", "logs")
	if err := ensureLogDir(filepath.Join(dir, "renderer.log")); err != nil {
		t.Fatalf("ensureLogDir failed: %v", err)
	}
	if st, err := os.Stat(dir); err != nil || !st.IsDir() {
		t.Fatalf("expected directory to be created, err=%v", err)
	}
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "cfg.yaml")
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return p
}

func TestLoadFrom_Valid(t *testing.T) {
	t.Setenv("CHROME_BIN", "")
	t.Setenv("PORT", "")
	p := writeConfig(t, `server:
  host: "127.0.0.1"
  port: ":9000"
  request_timeout: 45s
limits:
  max_documents: 12
pdf:
  engine: ROD
  default_paper: letter
  margin_mm: 12.7
  settle_delay: 150ms
  timeout_secs: 30
  chrome_path: /usr/bin/chromium
signature:
  placeholder: "{{SIG}}"
`)
	cfg := LoadFrom(p)

	assert.Equal(t, ":9000", cfg.Server.Port)
	assert.Equal(t, 45*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, 12, cfg.Limits.MaxDocuments)
	assert.Equal(t, EngineRod, cfg.PDF.Engine)
	assert.Equal(t, "LETTER", cfg.PDF.DefaultPaper)
	assert.Equal(t, PaperSize{Width: 8.5, Height: 11}, cfg.Paper())
	assert.Equal(t, 150*time.Millisecond, cfg.PDF.SettleDelay)
	assert.Equal(t, 30*time.Second, cfg.RenderTimeout())
	assert.InDelta(t, 0.5, cfg.MarginInches(), 1e-9)
	assert.Equal(t, "/usr/bin/chromium", cfg.PDF.ChromePath)
	assert.Equal(t, "{{SIG}}", cfg.Signature.Placeholder)
}

func TestLoadFrom_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv("CHROME_BIN", "")
	t.Setenv("PORT", "")
	cfg := LoadFrom(filepath.Join(t.TempDir(), "absent.yaml"))

	assert.Equal(t, Default().Server.Port, cfg.Server.Port)
	assert.Equal(t, "A4", cfg.PDF.DefaultPaper)
	assert.Equal(t, 120*time.Second, cfg.RenderTimeout())
	assert.Equal(t, 300*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, int64(1<<30), cfg.Limits.MemoryLimitBytes)
	assert.Equal(t, 300*time.Millisecond, cfg.PDF.SettleDelay)
	assert.Equal(t, DefaultSignaturePlaceholder, cfg.Signature.Placeholder)
	assert.InDelta(t, 10/25.4, cfg.MarginInches(), 1e-9)
}

func TestLoadFrom_EnvOverrides(t *testing.T) {
	t.Setenv("CHROME_BIN", "/opt/chrome")
	t.Setenv("PORT", "7070")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("REDIS_ADDR", "redis:6379")

	cfg := LoadFrom(writeConfig(t, "pdf:\n  timeout_secs: 5\n"))
	assert.Equal(t, "/opt/chrome", cfg.PDF.ChromePath)
	assert.Equal(t, ":7070", cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Logger.Level)
	assert.Equal(t, "redis:6379", cfg.Cache.RedisHost)
}

func TestLoadFrom_ChromePathFromFileWinsOverEnv(t *testing.T) {
	t.Setenv("CHROME_BIN", "/opt/chrome")
	cfg := LoadFrom(writeConfig(t, "pdf:\n  chrome_path: /usr/bin/chromium\n"))
	assert.Equal(t, "/usr/bin/chromium", cfg.PDF.ChromePath)
}

func TestLoadFrom_PanicsOnInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		yml  string
	}{
		{name: "malformed yaml", yml: "server: [\n"},
		{name: "zero render timeout", yml: "pdf:\n  timeout_secs: 0\n"},
		{name: "zero request timeout", yml: "server:\n  request_timeout: 0s\n"},
		{name: "unknown engine", yml: "pdf:\n  engine: wkhtmltopdf\n"},
		{name: "unknown default paper", yml: "pdf:\n  default_paper: B0\n"},
		{name: "negative margin", yml: "pdf:\n  margin_mm: -1\n"},
		{name: "negative user limit", yml: "rate_limiter:\n  user_limit: -1\n"},
		{name: "zero max documents", yml: "limits:\n  max_documents: 0\n"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := writeConfig(t, tc.yml)
			defer func() {
				if recover() == nil {
					t.Fatalf("expected panic")
				}
			}()
			_ = LoadFrom(p)
		})
	}
}

func TestLoad_UsesConfigPathEnv(t *testing.T) {
	p := writeConfig(t, "limits:\n  max_documents: 3\n")
	t.Setenv("CONFIG_PATH", p)
	cfg := Load()
	if cfg.Limits.MaxDocuments != 3 {
		t.Fatalf("expected CONFIG_PATH to be used")
	}
}

func TestValidate_DefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

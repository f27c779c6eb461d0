package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// PaperSize is a page size in inches, the unit Chrome's print API expects.
type PaperSize struct {
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
}

// Supported rendering engines.
const (
	EngineChromedp = "chromedp"
	EngineRod      = "rod"
)

// DefaultSignaturePlaceholder is the marker the report templates leave where the
// supervisor signature goes.
const DefaultSignaturePlaceholder = "<!-- SIGNATURE_PLACEHOLDER -->"

// Config is the complete service configuration. It is loaded once at start and
// passed by value to the components that need it.
type Config struct {
	Server struct {
		Host           string        `yaml:"host"`
		Port           string        `yaml:"port"`
		Prefork        bool          `yaml:"prefork"`
		BodyLimitMB    int           `yaml:"body_limit_mb"`
		RequestTimeout time.Duration `yaml:"request_timeout"`
	} `yaml:"server"`

	Limits struct {
		MaxHTMLBytes     int   `yaml:"max_html_bytes"`
		MaxPDFBytes      int   `yaml:"max_pdf_bytes"`
		MaxDocuments     int   `yaml:"max_documents"`
		MemoryLimitBytes int64 `yaml:"memory_limit_bytes"`
	} `yaml:"limits"`

	Logger struct {
		File       string `yaml:"file"`
		Level      string `yaml:"level"`
		MaxSizeMB  int    `yaml:"max_size_mb"`
		MaxBackups int    `yaml:"max_backups"`
		MaxAgeDays int    `yaml:"max_age_days"`
		Compress   bool   `yaml:"compress"`
	} `yaml:"logger"`

	Cache struct {
		RedisHost   string `yaml:"redis_host"`
		RateLimitDB int    `yaml:"redis_rate_db"`
	} `yaml:"cache"`

	RateLimiter struct {
		Interval          time.Duration `yaml:"interval"`
		UserLimit         int           `yaml:"user_limit"`
		EnableUserLimiter bool          `yaml:"enable_user_limiter"`
	} `yaml:"rate_limiter"`

	PDF struct {
		Engine          string               `yaml:"engine"`
		DefaultPaper    string               `yaml:"default_paper"`
		PaperSizes      map[string]PaperSize `yaml:"paper_sizes"`
		MarginMM        float64              `yaml:"margin_mm"`
		SettleDelay     time.Duration        `yaml:"settle_delay"`
		SettleTimeout   time.Duration        `yaml:"settle_timeout"`
		TimeoutSecs     int                  `yaml:"timeout_secs"`
		MaxParallel     int                  `yaml:"max_parallel_pages"`
		ChromePath      string               `yaml:"chrome_path"`
		ChromeNoSandbox bool                 `yaml:"chrome_no_sandbox"`
		UserDataDir     string               `yaml:"user_data_dir"`
	} `yaml:"pdf"`

	Signature struct {
		Placeholder string `yaml:"placeholder"`
		ImageStyle  string `yaml:"image_style"`
	} `yaml:"signature"`
}

// Default returns the configuration used when no file is present. The values
// mirror the production deployment: A4, 10mm margins, 120s per render, 300s and
// 1GiB per request.
func Default() Config {
	var cfg Config
	cfg.Server.Host = "0.0.0.0"
	cfg.Server.Port = ":8080"
	cfg.Server.BodyLimitMB = 32
	cfg.Server.RequestTimeout = 300 * time.Second

	cfg.Limits.MaxHTMLBytes = 8 * 1024 * 1024
	cfg.Limits.MaxPDFBytes = 64 * 1024 * 1024
	cfg.Limits.MaxDocuments = 200
	cfg.Limits.MemoryLimitBytes = 1 << 30

	cfg.Logger.Level = "info"
	cfg.Logger.MaxSizeMB = 50
	cfg.Logger.MaxBackups = 3
	cfg.Logger.MaxAgeDays = 14

	cfg.RateLimiter.Interval = time.Minute

	cfg.PDF.Engine = EngineChromedp
	cfg.PDF.DefaultPaper = "A4"
	cfg.PDF.PaperSizes = map[string]PaperSize{
		"A4":     {Width: 8.27, Height: 11.69},
		"LETTER": {Width: 8.5, Height: 11},
		"LEGAL":  {Width: 8.5, Height: 14},
	}
	cfg.PDF.MarginMM = 10
	cfg.PDF.SettleDelay = 300 * time.Millisecond
	cfg.PDF.SettleTimeout = 10 * time.Second
	cfg.PDF.TimeoutSecs = 120
	cfg.PDF.ChromeNoSandbox = true

	cfg.Signature.Placeholder = DefaultSignaturePlaceholder
	cfg.Signature.ImageStyle = "max-width: 200px !important; max-height: 25px !important; object-fit: contain !important; display: block;"
	return cfg
}

// Load reads the configuration file named by CONFIG_PATH (config.yaml when
// unset). A missing file yields the defaults.
func Load() Config {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config.yaml"
	}
	return LoadFrom(path)
}

// LoadFrom reads and validates the YAML file at path. It panics on a malformed
// or invalid configuration since the service cannot run without one.
func LoadFrom(path string) Config {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			panic(fmt.Sprintf("config: parse %s: %v", path, err))
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		panic(fmt.Sprintf("config: read %s: %v", path, err))
	}

	cfg.applyEnv()
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("config: %s: %v", path, err))
	}
	return cfg
}

func (cfg *Config) applyEnv() {
	// Allow common container env var to override chrome_path.
	if cfg.PDF.ChromePath == "" {
		if v := os.Getenv("CHROME_BIN"); v != "" {
			cfg.PDF.ChromePath = v
		}
	}
	if v := os.Getenv("PORT"); v != "" {
		if !strings.HasPrefix(v, ":") {
			v = ":" + v
		}
		cfg.Server.Port = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logger.Level = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Cache.RedisHost = v
	}
}

func (cfg *Config) normalize() {
	cfg.PDF.Engine = strings.ToLower(strings.TrimSpace(cfg.PDF.Engine))
	cfg.PDF.DefaultPaper = strings.ToUpper(cfg.PDF.DefaultPaper)
	sizes := make(map[string]PaperSize, len(cfg.PDF.PaperSizes))
	for name, size := range cfg.PDF.PaperSizes {
		sizes[strings.ToUpper(name)] = size
	}
	cfg.PDF.PaperSizes = sizes
	if cfg.Signature.Placeholder == "" {
		cfg.Signature.Placeholder = DefaultSignaturePlaceholder
	}
}

// Validate reports the first configuration value the service cannot run with.
func (cfg Config) Validate() error {
	switch {
	case cfg.Server.RequestTimeout <= 0:
		return errors.New("server.request_timeout must be positive")
	case cfg.PDF.TimeoutSecs <= 0:
		return errors.New("pdf.timeout_secs must be positive")
	case cfg.PDF.SettleDelay < 0:
		return errors.New("pdf.settle_delay must not be negative")
	case cfg.PDF.MaxParallel < 0:
		return errors.New("pdf.max_parallel_pages must not be negative")
	case cfg.PDF.MarginMM < 0:
		return errors.New("pdf.margin_mm must not be negative")
	case cfg.Limits.MaxHTMLBytes <= 0:
		return errors.New("limits.max_html_bytes must be positive")
	case cfg.Limits.MaxPDFBytes <= 0:
		return errors.New("limits.max_pdf_bytes must be positive")
	case cfg.Limits.MaxDocuments <= 0:
		return errors.New("limits.max_documents must be positive")
	case cfg.RateLimiter.UserLimit < 0:
		return errors.New("rate_limiter.user_limit must not be negative")
	case cfg.RateLimiter.UserLimit > 0 && cfg.RateLimiter.Interval <= 0:
		return errors.New("rate_limiter.interval must be positive when user_limit is set")
	}
	if cfg.PDF.Engine != EngineChromedp && cfg.PDF.Engine != EngineRod {
		return fmt.Errorf("pdf.engine %q is not supported", cfg.PDF.Engine)
	}
	paper, ok := cfg.PDF.PaperSizes[cfg.PDF.DefaultPaper]
	if !ok {
		return fmt.Errorf("pdf.default_paper %q is not in pdf.paper_sizes", cfg.PDF.DefaultPaper)
	}
	if paper.Width <= 0 || paper.Height <= 0 {
		return fmt.Errorf("pdf.paper_sizes.%s must have positive dimensions", cfg.PDF.DefaultPaper)
	}
	return nil
}

// Paper returns the configured default paper size.
func (cfg Config) Paper() PaperSize {
	return cfg.PDF.PaperSizes[cfg.PDF.DefaultPaper]
}

// RenderTimeout is the hard limit for a single print-to-PDF call.
func (cfg Config) RenderTimeout() time.Duration {
	return time.Duration(cfg.PDF.TimeoutSecs) * time.Second
}

// MarginInches converts the configured margin to inches.
func (cfg Config) MarginInches() float64 {
	return cfg.PDF.MarginMM / 25.4
}

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/pflag"
	_ "go.uber.org/automaxprocs"

	"boletim-pdf/internal/config"
	"boletim-pdf/internal/http/server"
	"boletim-pdf/internal/infra/chrome"
	"boletim-pdf/internal/infra/logging"
	"boletim-pdf/internal/infra/ratelimit"
	"boletim-pdf/internal/infra/rod"
	"boletim-pdf/internal/render"
)

func main() {
	cfgPath, err := parseFlags(os.Args[1:])
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	cfg := config.LoadFrom(cfgPath)
	logging.InitLogger(
		cfg.Logger.File,
		cfg.Logger.MaxSizeMB,
		cfg.Logger.MaxBackups,
		cfg.Logger.MaxAgeDays,
		cfg.Logger.Compress,
		cfg.Logger.Level,
	)

	if cfg.Limits.MemoryLimitBytes > 0 {
		debug.SetMemoryLimit(cfg.Limits.MemoryLimitBytes)
	}

	svc := render.NewService(newLauncher(cfg), render.NewRenderer(render.OptionsFromConfig(cfg)), cfg.PDF.Engine)
	store, backend := ratelimit.NewStore(cfg)
	defer store.Close()

	app := server.New(server.Deps{Config: cfg, Service: svc, Storage: store})
	logging.Info("Starting boletim-pdf",
		"addr", cfg.Server.Host+cfg.Server.Port,
		"engine", cfg.PDF.Engine,
		"rate_limit_store", backend,
		"memory_limit_bytes", cfg.Limits.MemoryLimitBytes,
	)

	idleConnsClosed := make(chan struct{})
	startServer(app, cfg, idleConnsClosed)
	<-idleConnsClosed
}

// parseFlags returns the configuration file path. --config wins over
// CONFIG_PATH, which wins over config.yaml.
func parseFlags(args []string) (string, error) {
	def := os.Getenv("CONFIG_PATH")
	if def == "" {
		def = "config.yaml"
	}

	fs := pflag.NewFlagSet("boletim-pdf", pflag.ContinueOnError)
	path := fs.StringP("config", "c", def, "path to the YAML configuration file")
	if err := fs.Parse(args); err != nil {
		return "", err
	}
	return *path, nil
}

func newLauncher(cfg config.Config) render.Launcher {
	if cfg.PDF.Engine == config.EngineRod {
		return rod.NewLauncher(cfg)
	}
	return chrome.NewLauncher(cfg)
}

// startServer starts the Fiber app and blocks until SIGINT or SIGTERM, then
// shuts the app down and closes idleConnsClosed.
func startServer(app *fiber.App, cfg config.Config, idleConnsClosed chan struct{}) {
	go func() {
		if err := app.Listen(cfg.Server.Host + cfg.Server.Port); err != nil {
			logging.Error("Server error", "error", err)
		}
	}()

	sigint := make(chan os.Signal, 1)
	signal.Notify(sigint, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigint)
	<-sigint

	logging.Warn("Shutdown signal received, closing server...")

	// In-flight renders keep their browsers until they finish or time out.
	timeout := cfg.Server.RequestTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		logging.Error("Server forced to shutdown", "error", err)
	}

	close(idleConnsClosed)
	logging.Info("Server stopped cleanly")
}

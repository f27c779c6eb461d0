// Package rod is the go-rod rendering engine. It is selected with
// pdf.engine: rod and behaves like the chromedp engine.
package rod

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"boletim-pdf/internal/config"
	"boletim-pdf/internal/infra/logging"
	"boletim-pdf/internal/render"
)

const closeTimeout = 5 * time.Second

const settleScript = `() => Promise.all([
	document.fonts ? document.fonts.ready : null,
	...Array.from(document.images)
		.filter((img) => !img.complete)
		.map((img) => new Promise((resolve) => {
			img.addEventListener("load", resolve, { once: true });
			img.addEventListener("error", resolve, { once: true });
		})),
]).then(() => true)`

type Launcher struct {
	cfg config.Config
}

func NewLauncher(cfg config.Config) *Launcher {
	return &Launcher{cfg: cfg}
}

// Launch starts a dedicated browser process and connects to it over CDP.
func (l *Launcher) Launch(ctx context.Context) (render.Browser, error) {
	dir, err := profileDir(l.cfg.PDF.UserDataDir)
	if err != nil {
		return nil, fmt.Errorf("cannot create temp profile dir: %w", err)
	}

	ln := newProcessLauncher(ctx, l.cfg, dir)
	u, err := ln.Launch()
	if err != nil {
		_ = os.RemoveAll(dir)
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	b := rod.New().ControlURL(u)
	if err := b.Connect(); err != nil {
		ln.Kill()
		ln.Cleanup()
		_ = os.RemoveAll(dir)
		return nil, fmt.Errorf("connect browser: %w", err)
	}

	logging.Debug("Rod browser started", "profile_dir", dir)
	return &Browser{browser: b, launcher: ln, profileDir: dir}, nil
}

func newProcessLauncher(ctx context.Context, cfg config.Config, dir string) *launcher.Launcher {
	ln := launcher.New().
		Context(ctx).
		Headless(true).
		Leakless(false).
		UserDataDir(dir).
		Set("disable-gpu").
		Set("disable-dev-shm-usage").
		Set("disable-extensions")
	if cfg.PDF.ChromePath != "" {
		ln = ln.Bin(cfg.PDF.ChromePath)
	}
	// launcher.New turns the sandbox off on its own inside containers.
	ln = ln.NoSandbox(cfg.PDF.ChromeNoSandbox)
	if mib := cfg.Limits.MemoryLimitBytes >> 20; mib > 0 {
		ln = ln.Set("js-flags", fmt.Sprintf("--max-old-space-size=%d", mib))
	}
	return ln
}

func profileDir(base string) (string, error) {
	if base == "" {
		base = os.TempDir()
	}
	if err := os.MkdirAll(base, 0o700); err != nil {
		return "", err
	}
	return os.MkdirTemp(base, "roddata-*")
}

type Browser struct {
	browser    *rod.Browser
	launcher   *launcher.Launcher
	profileDir string

	once     sync.Once
	closeErr error
}

func (b *Browser) NewPage(ctx context.Context) (render.Page, error) {
	p, err := b.browser.Context(ctx).Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, err
	}
	return &Page{page: p}, nil
}

// Close closes the browser, kills the process if it is still alive and
// removes the profile directory. Calls after the first are no-ops.
func (b *Browser) Close() error {
	b.once.Do(func() {
		if err := b.browser.Context(context.Background()).Timeout(closeTimeout).Close(); err != nil {
			logging.Debug("Rod browser close returned error", "error", err)
		}
		b.launcher.Kill()
		b.launcher.Cleanup()
		if err := os.RemoveAll(b.profileDir); err != nil {
			b.closeErr = err
		}
	})
	return b.closeErr
}

type Page struct {
	page *rod.Page
	once sync.Once
}

func (p *Page) SetContent(ctx context.Context, html string) error {
	pg := p.page.Context(ctx)
	if err := pg.SetDocumentContent(html); err != nil {
		return err
	}
	return pg.WaitLoad()
}

func (p *Page) WaitSettled(ctx context.Context) error {
	_, err := p.page.Context(ctx).Eval(settleScript)
	return err
}

func (p *Page) PrintPDF(ctx context.Context, opts render.PrintOptions) ([]byte, error) {
	r, err := p.page.Context(ctx).PDF(&proto.PagePrintToPDF{
		PaperWidth:      floatPtr(opts.PaperWidth),
		PaperHeight:     floatPtr(opts.PaperHeight),
		MarginTop:       floatPtr(opts.MarginTop),
		MarginRight:     floatPtr(opts.MarginRight),
		MarginBottom:    floatPtr(opts.MarginBottom),
		MarginLeft:      floatPtr(opts.MarginLeft),
		PrintBackground: opts.PrintBackground,
	})
	if err != nil {
		return nil, err
	}
	buf, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading PDF stream: %w", err)
	}
	return buf, nil
}

func (p *Page) Close() error {
	var err error
	p.once.Do(func() {
		err = p.page.Context(context.Background()).Timeout(closeTimeout).Close()
	})
	return err
}

func floatPtr(v float64) *float64 {
	return &v
}

package chrome

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"boletim-pdf/internal/config"
	"boletim-pdf/internal/infra/logging"
	"boletim-pdf/internal/render"
)

// settleScript resolves once web fonts are ready and every image has either
// loaded or failed.
const settleScript = `(async () => {
	if (document.fonts && document.fonts.ready) {
		await document.fonts.ready;
	}
	const pending = Array.from(document.images)
		.filter((img) => !img.complete)
		.map((img) => new Promise((resolve) => {
			img.addEventListener("load", resolve, { once: true });
			img.addEventListener("error", resolve, { once: true });
		}));
	await Promise.all(pending);
	return true;
})()`

// Launcher starts one headless Chrome process per Launch call through chromedp.
type Launcher struct {
	cfg config.Config
}

func NewLauncher(cfg config.Config) *Launcher {
	return &Launcher{cfg: cfg}
}

// Launch starts a browser bound to ctx. Cancelling ctx kills the process; Close
// on the returned browser does the same and removes its profile directory.
func (l *Launcher) Launch(ctx context.Context) (render.Browser, error) {
	profileDir, err := createProfileDir(l.cfg)
	if err != nil {
		return nil, fmt.Errorf("cannot create temp profile dir: %w", err)
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocatorOptions(l.cfg, profileDir)...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	// Start the browser eagerly so errors surface at launch time.
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		_ = os.RemoveAll(profileDir)
		return nil, err
	}

	logging.Debug("Chrome started", "profile_dir", profileDir)
	return &Browser{
		ctx:         browserCtx,
		cancel:      browserCancel,
		allocCancel: allocCancel,
		profileDir:  profileDir,
	}, nil
}

func allocatorOptions(cfg config.Config, profileDir string) []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.UserDataDir(profileDir),
		// Force software rendering and avoid Vulkan/ANGLE issues in minimal container environments.
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-gpu-compositing", true),
		chromedp.Flag("disable-features", "Vulkan,UseSkiaRenderer"),
		chromedp.Flag("use-gl", "swiftshader"),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("ignore-certificate-errors", true),
	)
	if cfg.PDF.ChromePath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.PDF.ChromePath))
	}
	if cfg.PDF.ChromeNoSandbox {
		opts = append(opts, chromedp.Flag("no-sandbox", true))
	}
	if mib := cfg.Limits.MemoryLimitBytes >> 20; mib > 0 {
		opts = append(opts, chromedp.Flag("js-flags", fmt.Sprintf("--max-old-space-size=%d", mib)))
	}
	return opts
}

func createProfileDir(cfg config.Config) (string, error) {
	base := cfg.PDF.UserDataDir
	if base == "" {
		base = os.TempDir()
	}
	if err := os.MkdirAll(base, 0o700); err != nil {
		return "", err
	}
	return os.MkdirTemp(base, "chromedata-*")
}

// Browser is a running Chrome process.
type Browser struct {
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
	profileDir  string

	once     sync.Once
	closeErr error
}

// NewPage opens a new tab.
func (b *Browser) NewPage(ctx context.Context) (render.Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tabCtx, cancel := chromedp.NewContext(b.ctx)
	// The first Run allocates the target and must use the tab context itself.
	if err := chromedp.Run(tabCtx); err != nil {
		cancel()
		return nil, err
	}
	return &Page{ctx: tabCtx, cancel: cancel}, nil
}

// Close shuts the browser down, waits for the process to exit and removes the
// profile directory. It is safe to call more than once.
func (b *Browser) Close() error {
	b.once.Do(func() {
		if err := chromedp.Cancel(b.ctx); err != nil && !IsSessionInterrupted(err) {
			b.closeErr = err
		}
		b.cancel()
		b.allocCancel()
		if err := os.RemoveAll(b.profileDir); err != nil && b.closeErr == nil {
			b.closeErr = err
		}
	})
	return b.closeErr
}

// Page is one Chrome tab.
type Page struct {
	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once
}

// SetContent replaces the document of the tab with html and waits for the body.
func (p *Page) SetContent(ctx context.Context, html string) error {
	return run(ctx, p.ctx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			frame, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(frame.Frame.ID, html).Do(ctx)
		}),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
}

func (p *Page) WaitSettled(ctx context.Context) error {
	var done bool
	return run(ctx, p.ctx, chromedp.Evaluate(settleScript, &done, func(ep *runtime.EvaluateParams) *runtime.EvaluateParams {
		return ep.WithAwaitPromise(true)
	}))
}

func (p *Page) PrintPDF(ctx context.Context, opts render.PrintOptions) ([]byte, error) {
	var buf []byte
	err := run(ctx, p.ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		buf, _, err = page.PrintToPDF().
			WithPrintBackground(opts.PrintBackground).
			WithPaperWidth(opts.PaperWidth).
			WithPaperHeight(opts.PaperHeight).
			WithMarginTop(opts.MarginTop).
			WithMarginRight(opts.MarginRight).
			WithMarginBottom(opts.MarginBottom).
			WithMarginLeft(opts.MarginLeft).
			Do(ctx)
		return err
	}))
	if err != nil {
		return nil, err
	}
	return buf, nil
}

// Close closes the tab.
func (p *Page) Close() error {
	var err error
	p.once.Do(func() {
		err = chromedp.Cancel(p.ctx)
		p.cancel()
		if IsSessionInterrupted(err) {
			err = nil
		}
	})
	return err
}

// run executes actions in tabCtx while honoring the deadline and cancellation
// of ctx.
func run(ctx, tabCtx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(tabCtx)
	defer cancel()
	if deadline, ok := ctx.Deadline(); ok {
		var cancelDeadline context.CancelFunc
		runCtx, cancelDeadline = context.WithDeadline(runCtx, deadline)
		defer cancelDeadline()
	}
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(runCtx, actions...); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, context.Canceled) {
			return ctxErr
		}
		return err
	}
	return nil
}

// IsSessionInterrupted reports whether err means the browser or tab went away
// underneath an operation.
func IsSessionInterrupted(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, s := range []string{"target closed", "session closed", "websocket", "connection reset", "broken pipe", "invalid context"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

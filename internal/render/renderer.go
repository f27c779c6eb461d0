package render

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"boletim-pdf/internal/config"
	"boletim-pdf/internal/domain"
	"boletim-pdf/internal/infra/logging"
)

// Options configures a Renderer.
type Options struct {
	Print PrintOptions
	// SettleDelay is the minimum pause between DOM ready and printing.
	SettleDelay time.Duration
	// SettleTimeout bounds the wait for fonts and images. Zero skips that wait.
	SettleTimeout time.Duration
	RenderTimeout time.Duration
	// MaxParallel caps concurrent pages in a batch. Zero means one page per document.
	MaxParallel int
}

// OptionsFromConfig builds renderer options from the service configuration.
func OptionsFromConfig(cfg config.Config) Options {
	paper := cfg.Paper()
	margin := cfg.MarginInches()
	return Options{
		Print: PrintOptions{
			PaperWidth:      paper.Width,
			PaperHeight:     paper.Height,
			MarginTop:       margin,
			MarginRight:     margin,
			MarginBottom:    margin,
			MarginLeft:      margin,
			PrintBackground: true,
		},
		SettleDelay:   cfg.PDF.SettleDelay,
		SettleTimeout: cfg.PDF.SettleTimeout,
		RenderTimeout: cfg.RenderTimeout(),
		MaxParallel:   cfg.PDF.MaxParallel,
	}
}

// Renderer turns HTML documents into PDF buffers using a browser owned by the caller.
type Renderer struct {
	opts Options
}

func NewRenderer(opts Options) *Renderer {
	return &Renderer{opts: opts}
}

// RenderOne renders html in a fresh page of b. The page is closed before
// RenderOne returns, whatever the outcome.
func (r *Renderer) RenderOne(ctx context.Context, b Browser, html string) (pdf []byte, err error) {
	pg, err := b.NewPage(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrPageCreate, err)
	}
	defer func() {
		if rec := recover(); rec != nil {
			pdf, err = nil, fmt.Errorf("%w: engine panic: %v", domain.ErrPrint, rec)
		}
		if cerr := pg.Close(); cerr != nil {
			logging.Warn("Closing page failed", "error", cerr)
		}
	}()

	if err := pg.SetContent(ctx, html); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrPageLoad, err)
	}
	if err := r.settle(ctx, pg); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrPageLoad, err)
	}

	printCtx, cancel := context.WithTimeout(ctx, r.opts.RenderTimeout)
	defer cancel()

	buf, err := pg.PrintPDF(printCtx, r.opts.Print)
	if err != nil {
		if ctx.Err() == nil && errors.Is(printCtx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w after %s", domain.ErrRenderTimeout, r.opts.RenderTimeout)
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrPrint, err)
	}
	if len(buf) == 0 {
		return nil, domain.ErrRenderEmpty
	}
	return buf, nil
}

// settle waits for the page's load signals and then for the fixed delay. A
// page whose assets never report loaded is still printed once SettleTimeout
// passes.
func (r *Renderer) settle(ctx context.Context, pg Page) error {
	if r.opts.SettleTimeout > 0 {
		settleCtx, cancel := context.WithTimeout(ctx, r.opts.SettleTimeout)
		err := pg.WaitSettled(settleCtx)
		cancel()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logging.Warn("Page assets did not settle, printing anyway", "timeout", r.opts.SettleTimeout.String(), "error", err)
		}
	}
	return waitForRenderReady(ctx, r.opts.SettleDelay)
}

// RenderBatch renders every document concurrently against b. The result is
// positionally aligned with htmls. The first failure cancels the remaining
// renders and fails the whole batch.
func (r *Renderer) RenderBatch(ctx context.Context, b Browser, htmls []string) ([][]byte, error) {
	if len(htmls) == 0 {
		return nil, fmt.Errorf("%w: no documents to render", domain.ErrValidation)
	}

	slots := make([][]byte, len(htmls))
	g, gctx := errgroup.WithContext(ctx)
	if r.opts.MaxParallel > 0 {
		g.SetLimit(r.opts.MaxParallel)
	}
	for i, html := range htmls {
		i, html := i, html
		g.Go(func() error {
			buf, err := r.RenderOne(gctx, b, html)
			if err != nil {
				return fmt.Errorf("document %d: %w", i, err)
			}
			slots[i] = buf
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return slots, nil
}

// waitForRenderReady pauses for d unless ctx ends first.
func waitForRenderReady(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

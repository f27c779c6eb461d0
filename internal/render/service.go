package render

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"boletim-pdf/internal/domain"
	"boletim-pdf/internal/infra/logging"
)

// Stats is a snapshot of the service counters.
type Stats struct {
	Engine         string `json:"engine"`
	ActiveBrowsers int64  `json:"active_browsers"`
	OpenPages      int64  `json:"open_pages"`
	Launches       int64  `json:"launches"`
	LaunchFailures int64  `json:"launch_failures"`
	Renders        int64  `json:"renders"`
	RenderFailures int64  `json:"render_failures"`
	Merges         int64  `json:"merges"`
}

// Service runs render requests. Each request gets its own browser process,
// released exactly once when the request's rendering is over.
type Service struct {
	launcher Launcher
	renderer *Renderer
	engine   string

	activeBrowsers atomic.Int64
	openPages      atomic.Int64
	launches       atomic.Int64
	launchFailures atomic.Int64
	renders        atomic.Int64
	renderFailures atomic.Int64
	merges         atomic.Int64
}

func NewService(launcher Launcher, renderer *Renderer, engine string) *Service {
	return &Service{launcher: launcher, renderer: renderer, engine: engine}
}

// RenderSingle renders one document in a dedicated browser.
func (s *Service) RenderSingle(ctx context.Context, html string) ([]byte, error) {
	var pdf []byte
	err := s.withBrowser(ctx, func(b Browser) error {
		var err error
		pdf, err = s.renderer.RenderOne(ctx, b, html)
		return err
	})
	s.count(err, 1)
	if err != nil {
		return nil, err
	}
	return pdf, nil
}

// RenderMerged renders all documents concurrently in one browser and returns
// a single PDF whose pages follow the order of htmls.
func (s *Service) RenderMerged(ctx context.Context, htmls []string) ([]byte, error) {
	if len(htmls) == 0 {
		return nil, fmt.Errorf("%w: no documents to render", domain.ErrValidation)
	}

	started := time.Now()
	var pdfs [][]byte
	err := s.withBrowser(ctx, func(b Browser) error {
		var err error
		pdfs, err = s.renderer.RenderBatch(ctx, b, htmls)
		return err
	})
	s.count(err, int64(len(htmls)))
	if err != nil {
		return nil, err
	}

	asm := NewAssembler()
	for i, pdf := range pdfs {
		n, err := asm.Append(pdf)
		if err != nil {
			return nil, err
		}
		logging.Debug("Document queued for merge", "index", i, "bytes", len(pdf), "pages", n)
	}
	merged, err := asm.Bytes()
	if err != nil {
		return nil, err
	}
	s.merges.Add(1)

	logging.Info("PDFs merged",
		"documents", asm.Documents(),
		"skipped", asm.Skipped(),
		"pages", asm.Pages(),
		"bytes", len(merged),
		"duration_ms", time.Since(started).Milliseconds(),
	)
	return merged, nil
}

// Stats returns the current counters.
func (s *Service) Stats() Stats {
	return Stats{
		Engine:         s.engine,
		ActiveBrowsers: s.activeBrowsers.Load(),
		OpenPages:      s.openPages.Load(),
		Launches:       s.launches.Load(),
		LaunchFailures: s.launchFailures.Load(),
		Renders:        s.renders.Load(),
		RenderFailures: s.renderFailures.Load(),
		Merges:         s.merges.Load(),
	}
}

func (s *Service) count(err error, docs int64) {
	if err != nil {
		s.renderFailures.Add(1)
		return
	}
	s.renders.Add(docs)
}

// withBrowser launches a browser, runs fn against it and closes the browser on
// every exit path, panics included.
func (s *Service) withBrowser(ctx context.Context, fn func(Browser) error) error {
	b, err := s.launcher.Launch(ctx)
	if err != nil {
		s.launchFailures.Add(1)
		return fmt.Errorf("%w: %w", domain.ErrBrowserLaunch, err)
	}
	s.launches.Add(1)
	s.activeBrowsers.Add(1)
	defer func() {
		if cerr := b.Close(); cerr != nil {
			logging.Warn("Closing browser failed", "error", cerr)
		}
		s.activeBrowsers.Add(-1)
	}()

	return fn(&trackedBrowser{Browser: b, open: &s.openPages})
}

// trackedBrowser counts the pages it hands out until they are closed.
type trackedBrowser struct {
	Browser
	open *atomic.Int64
}

func (b *trackedBrowser) NewPage(ctx context.Context) (Page, error) {
	pg, err := b.Browser.NewPage(ctx)
	if err != nil {
		return nil, err
	}
	b.open.Add(1)
	return &trackedPage{Page: pg, open: b.open}, nil
}

type trackedPage struct {
	Page
	open *atomic.Int64
	once sync.Once
}

func (p *trackedPage) Close() error {
	p.once.Do(func() { p.open.Add(-1) })
	return p.Page.Close()
}

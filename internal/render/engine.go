package render

import "context"

// PrintOptions are the print-to-PDF parameters. Dimensions are in inches.
type PrintOptions struct {
	PaperWidth      float64
	PaperHeight     float64
	MarginTop       float64
	MarginRight     float64
	MarginBottom    float64
	MarginLeft      float64
	PrintBackground bool
}

// Page is a single browser tab.
type Page interface {
	// SetContent injects html into the page and returns once the DOM is parsed.
	SetContent(ctx context.Context, html string) error
	// WaitSettled blocks until fonts and images report loaded.
	WaitSettled(ctx context.Context) error
	PrintPDF(ctx context.Context, opts PrintOptions) ([]byte, error)
	Close() error
}

// Browser is a running browser process. It is owned by exactly one request.
type Browser interface {
	NewPage(ctx context.Context) (Page, error)
	Close() error
}

// Launcher starts browser processes.
type Launcher interface {
	Launch(ctx context.Context) (Browser, error)
}

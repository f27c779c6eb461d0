// Package rendertest provides an in-memory browser engine for tests. Pages
// print PDFs built with gofpdf instead of launching Chrome, and the launcher
// counts live browsers and open pages so cleanup can be asserted.
package rendertest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"boletim-pdf/internal/render"
)

// Markers understood by the fake page.
const (
	EmptyDoc    = "<html><body>fake:empty</body></html>"
	FailingDoc  = "<html><body>fake:fail</body></html>"
	HangingDoc  = "<html><body>fake:hang</body></html>"
	BadLoadDoc  = "<html><body>fake:badload</body></html>"
	PanickyDoc  = "<html><body>fake:panic</body></html>"
	failMessage = "fake: print failed"
)

var (
	labelRe = regexp.MustCompile(`data-label="([^"]*)"`)
	pagesRe = regexp.MustCompile(`data-pages="(\d+)"`)
	delayRe = regexp.MustCompile(`data-delay-ms="(\d+)"`)
)

// Doc returns an HTML document that the fake page prints as pages pages
// reading "<label>-p1", "<label>-p2", ...
func Doc(label string, pages int) string {
	return fmt.Sprintf(`<html><body data-label="%s" data-pages="%d"><h1>%s</h1></body></html>`, label, pages, label)
}

// SlowDoc is Doc with a print delay, used to make completion order differ
// from input order.
func SlowDoc(label string, pages int, delay time.Duration) string {
	return fmt.Sprintf(`<html><body data-label="%s" data-pages="%d" data-delay-ms="%d"></body></html>`, label, pages, delay.Milliseconds())
}

// Launcher is a render.Launcher whose browsers live in memory.
type Launcher struct {
	// LaunchErr, when set, makes every Launch fail.
	LaunchErr error

	launched  atomic.Int64
	live      atomic.Int64
	openPages atomic.Int64

	mu       sync.Mutex
	contents []string
}

func (l *Launcher) Launch(ctx context.Context) (render.Browser, error) {
	if l.LaunchErr != nil {
		return nil, l.LaunchErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.launched.Add(1)
	l.live.Add(1)
	return &browser{l: l}, nil
}

// Launched is the number of successful launches.
func (l *Launcher) Launched() int64 { return l.launched.Load() }

// Live is the number of launched browsers not yet closed.
func (l *Launcher) Live() int64 { return l.live.Load() }

// OpenPages is the number of pages not yet closed.
func (l *Launcher) OpenPages() int64 { return l.openPages.Load() }

// Contents returns every HTML document loaded so far.
func (l *Launcher) Contents() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.contents...)
}

type browser struct {
	l      *Launcher
	once   sync.Once
	closed atomic.Bool
}

func (b *browser) NewPage(ctx context.Context) (render.Page, error) {
	if b.closed.Load() {
		return nil, errors.New("fake: browser closed")
	}
	b.l.openPages.Add(1)
	return &page{b: b}, nil
}

func (b *browser) Close() error {
	b.once.Do(func() {
		b.closed.Store(true)
		b.l.live.Add(-1)
	})
	return nil
}

type page struct {
	b    *browser
	html string
	once sync.Once
}

func (p *page) SetContent(ctx context.Context, html string) error {
	p.b.l.mu.Lock()
	p.b.l.contents = append(p.b.l.contents, html)
	p.b.l.mu.Unlock()

	if strings.Contains(html, "fake:badload") {
		return errors.New("fake: navigation failed")
	}
	p.html = html
	return ctx.Err()
}

func (p *page) WaitSettled(ctx context.Context) error {
	return ctx.Err()
}

func (p *page) PrintPDF(ctx context.Context, opts render.PrintOptions) ([]byte, error) {
	switch {
	case strings.Contains(p.html, "fake:empty"):
		return []byte{}, nil
	case strings.Contains(p.html, "fake:fail"):
		return nil, errors.New(failMessage)
	case strings.Contains(p.html, "fake:panic"):
		panic("fake: renderer crashed")
	case strings.Contains(p.html, "fake:hang"):
		<-ctx.Done()
		return nil, ctx.Err()
	}

	if m := delayRe.FindStringSubmatch(p.html); m != nil {
		ms, _ := strconv.Atoi(m[1])
		select {
		case <-time.After(time.Duration(ms) * time.Millisecond):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	label := "doc"
	if m := labelRe.FindStringSubmatch(p.html); m != nil {
		label = m[1]
	}
	pages := 1
	if m := pagesRe.FindStringSubmatch(p.html); m != nil {
		pages, _ = strconv.Atoi(m[1])
	}
	return BuildPDF(label, pages)
}

func (p *page) Close() error {
	p.once.Do(func() { p.b.l.openPages.Add(-1) })
	return nil
}

// BuildPDF creates an A4 document with pages pages; page i carries the text
// "<label>-p<i>".
func BuildPDF(label string, pages int) ([]byte, error) {
	p := gofpdf.New("P", "mm", "A4", "")
	p.SetFont("Helvetica", "", 14)
	for i := 1; i <= pages; i++ {
		p.AddPage()
		p.Cell(60, 10, fmt.Sprintf("%s-p%d", label, i))
	}
	var buf bytes.Buffer
	if err := p.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// PageCount returns the number of pages in data.
func PageCount(data []byte) (int, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return api.PageCount(bytes.NewReader(data), conf)
}

// PageTexts extracts the plain text of every page of data, in page order.
func PageTexts(data []byte) ([]string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}
	texts := make([]string, 0, r.NumPage())
	for i := 1; i <= r.NumPage(); i++ {
		pg := r.Page(i)
		if pg.V.IsNull() {
			texts = append(texts, "")
			continue
		}
		s, err := pg.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}
		texts = append(texts, strings.TrimSpace(s))
	}
	return texts, nil
}

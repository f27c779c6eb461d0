package render

import (
	"bytes"
	"fmt"
	"io"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"boletim-pdf/internal/domain"
)

func init() {
	// Keep pdfcpu from creating a config dir under the user's home.
	model.ConfigPath = "disable"
}

func pdfConfig() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

// Assembler accumulates rendered documents and concatenates their pages in
// append order.
type Assembler struct {
	docs    [][]byte
	pages   int
	skipped int
}

func NewAssembler() *Assembler {
	return &Assembler{}
}

// Append parses pdf and queues all of its pages after those already queued.
// A zero-length buffer is skipped and reports zero pages.
func (a *Assembler) Append(pdf []byte) (int, error) {
	if len(pdf) == 0 {
		a.skipped++
		return 0, nil
	}
	n, err := api.PageCount(bytes.NewReader(pdf), pdfConfig())
	if err != nil {
		return 0, fmt.Errorf("%w: document %d: %w", domain.ErrMerge, len(a.docs)+a.skipped, err)
	}
	a.docs = append(a.docs, pdf)
	a.pages += n
	return n, nil
}

// Documents is the number of non-empty documents appended so far.
func (a *Assembler) Documents() int { return len(a.docs) }

// Pages is the total page count of the appended documents.
func (a *Assembler) Pages() int { return a.pages }

// Skipped is the number of zero-length buffers that were ignored.
func (a *Assembler) Skipped() int { return a.skipped }

// Bytes serializes the assembled document. It fails with domain.ErrNoDocuments
// when nothing usable was appended.
func (a *Assembler) Bytes() ([]byte, error) {
	switch len(a.docs) {
	case 0:
		return nil, domain.ErrNoDocuments
	case 1:
		return a.docs[0], nil
	}

	readers := make([]io.ReadSeeker, len(a.docs))
	for i, doc := range a.docs {
		readers[i] = bytes.NewReader(doc)
	}

	var out bytes.Buffer
	if err := api.MergeRaw(readers, &out, false, pdfConfig()); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrMerge, err)
	}
	return out.Bytes(), nil
}

// MergePDFs concatenates pdfs in order, skipping empty buffers.
func MergePDFs(pdfs [][]byte) ([]byte, error) {
	a := NewAssembler()
	for _, pdf := range pdfs {
		if _, err := a.Append(pdf); err != nil {
			return nil, err
		}
	}
	return a.Bytes()
}

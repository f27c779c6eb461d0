package domain

import "fmt"

// RenderRequest is the body of the single-render endpoint.
type RenderRequest struct {
	HTMLContent   string `json:"htmlContent"`
	SignatureData string `json:"signatureData,omitempty"`
}

// Validate checks the request against the byte limit for HTML input.
func (r RenderRequest) Validate(maxHTMLBytes int) error {
	if r.HTMLContent == "" {
		return fmt.Errorf("%w: htmlContent is required", ErrValidation)
	}
	if maxHTMLBytes > 0 && len(r.HTMLContent) > maxHTMLBytes {
		return fmt.Errorf("%w: htmlContent exceeds %d bytes", ErrTooLarge, maxHTMLBytes)
	}
	return nil
}

// MergeRequest is the body of the merge endpoint. The order of HTMLContents
// is the page order of the merged document.
type MergeRequest struct {
	HTMLContents []string `json:"htmlContents"`
}

// MergeFieldMessage names the expected field in validation errors.
const MergeFieldMessage = `Invalid request body. Expected a non-empty array "htmlContents".`

// Validate checks presence, size and per-entry limits.
func (r MergeRequest) Validate(maxDocuments, maxHTMLBytes int) error {
	if len(r.HTMLContents) == 0 {
		return fmt.Errorf("%w: %s", ErrValidation, MergeFieldMessage)
	}
	if maxDocuments > 0 && len(r.HTMLContents) > maxDocuments {
		return fmt.Errorf("%w: htmlContents has %d entries, at most %d allowed", ErrTooLarge, len(r.HTMLContents), maxDocuments)
	}
	for i, html := range r.HTMLContents {
		if html == "" {
			return fmt.Errorf("%w: htmlContents[%d] is empty", ErrValidation, i)
		}
		if maxHTMLBytes > 0 && len(html) > maxHTMLBytes {
			return fmt.Errorf("%w: htmlContents[%d] exceeds %d bytes", ErrTooLarge, i, maxHTMLBytes)
		}
	}
	return nil
}

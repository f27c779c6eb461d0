package domain

import "errors"

// Sentinel errors shared by the renderer and the HTTP boundary.
var (
	// ErrValidation marks a malformed or incomplete request body.
	ErrValidation = errors.New("invalid request")
	// ErrTooLarge marks an input or output over the configured limits.
	ErrTooLarge = errors.New("payload too large")

	ErrBrowserLaunch = errors.New("failed to launch browser")
	ErrPageCreate    = errors.New("failed to create browser page")
	ErrPageLoad      = errors.New("failed to load page content")
	ErrPrint         = errors.New("PDF generation failed")
	ErrRenderTimeout = errors.New("PDF rendering timed out")
	ErrRenderEmpty   = errors.New("PDF buffer was generated with zero length")

	// ErrNoDocuments is returned by the merge assembler when every input was empty.
	ErrNoDocuments = errors.New("no valid PDF documents to merge")
	ErrMerge       = errors.New("PDF merge failed")
)

// IsRenderFailure reports whether err belongs to the render failure class
// (engine error, timeout, empty output).
func IsRenderFailure(err error) bool {
	return errors.Is(err, ErrBrowserLaunch) ||
		errors.Is(err, ErrPageCreate) ||
		errors.Is(err, ErrPageLoad) ||
		errors.Is(err, ErrPrint) ||
		errors.Is(err, ErrRenderTimeout) ||
		errors.Is(err, ErrRenderEmpty)
}

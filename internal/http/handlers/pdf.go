// Package handlers exposes the render service over HTTP.
package handlers

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"boletim-pdf/internal/config"
	"boletim-pdf/internal/domain"
	"boletim-pdf/internal/http/middleware"
	"boletim-pdf/internal/infra/chrome"
	"boletim-pdf/internal/infra/logging"
	"boletim-pdf/internal/render"
)

const (
	SingleFilename = "boletim.pdf"
	MergedFilename = "boletins_unificados.pdf"
)

// PDFService handles the render-single and render-merge endpoints.
type PDFService struct {
	cfg config.Config
	svc *render.Service
}

func NewPDFService(cfg config.Config, svc *render.Service) *PDFService {
	return &PDFService{cfg: cfg, svc: svc}
}

// HandleRender renders one boletim. The body is a domain.RenderRequest; the
// signature, when present, replaces the placeholder before rendering.
func (h *PDFService) HandleRender(c *fiber.Ctx) error {
	if c.Method() != fiber.MethodPost {
		return fiber.NewError(fiber.StatusMethodNotAllowed, "Method Not Allowed")
	}

	var req domain.RenderRequest
	if err := c.App().Config().JSONDecoder(c.Body(), &req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body: htmlContent is required")
	}
	if err := req.Validate(h.cfg.Limits.MaxHTMLBytes); err != nil {
		return requestError(err)
	}

	html := domain.ApplySignature(req.HTMLContent, req.SignatureData, h.cfg.Signature.Placeholder, h.cfg.Signature.ImageStyle)

	ctx, cancel := h.requestContext(c)
	defer cancel()

	started := time.Now()
	pdf, err := h.svc.RenderSingle(ctx, html)
	if err != nil {
		h.logFailure(c, "PDF generation failed", err)
		return fiber.NewError(fiber.StatusInternalServerError, "Error generating PDF: "+err.Error())
	}

	logging.Info("PDF generated",
		"request_id", middleware.RequestID(c),
		"html_bytes", len(html),
		"signed", html != req.HTMLContent,
		"bytes", len(pdf),
		"duration_ms", time.Since(started).Milliseconds(),
	)
	return h.sendPDF(c, pdf, SingleFilename)
}

// HandleMerge renders every entry of a domain.MergeRequest and answers with a
// single PDF whose pages follow the input order.
func (h *PDFService) HandleMerge(c *fiber.Ctx) error {
	if c.Method() != fiber.MethodPost {
		return fiber.NewError(fiber.StatusMethodNotAllowed, "Method Not Allowed")
	}

	var req domain.MergeRequest
	if err := c.App().Config().JSONDecoder(c.Body(), &req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, domain.MergeFieldMessage)
	}
	if err := req.Validate(h.cfg.Limits.MaxDocuments, h.cfg.Limits.MaxHTMLBytes); err != nil {
		return requestError(err)
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	started := time.Now()
	pdf, err := h.svc.RenderMerged(ctx, req.HTMLContents)
	if err != nil {
		h.logFailure(c, "PDF merge failed", err)
		return fiber.NewError(fiber.StatusInternalServerError, "An internal error occurred while processing the PDFs: "+err.Error())
	}

	logging.Info("Merged PDF generated",
		"request_id", middleware.RequestID(c),
		"documents", len(req.HTMLContents),
		"bytes", len(pdf),
		"duration_ms", time.Since(started).Milliseconds(),
	)
	return h.sendPDF(c, pdf, MergedFilename)
}

// HandleEngineStats reports browser and page counters of the render service.
func (h *PDFService) HandleEngineStats(c *fiber.Ctx) error {
	return c.JSON(h.svc.Stats())
}

func (h *PDFService) requestContext(c *fiber.Ctx) (context.Context, context.CancelFunc) {
	if h.cfg.Server.RequestTimeout <= 0 {
		return context.WithCancel(c.UserContext())
	}
	return context.WithTimeout(c.UserContext(), h.cfg.Server.RequestTimeout)
}

func (h *PDFService) sendPDF(c *fiber.Ctx, pdf []byte, filename string) error {
	if h.cfg.Limits.MaxPDFBytes > 0 && len(pdf) > h.cfg.Limits.MaxPDFBytes {
		logging.Warn("PDF exceeds allowed size", "request_id", middleware.RequestID(c), "bytes", len(pdf), "limit", h.cfg.Limits.MaxPDFBytes)
		return fiber.NewError(fiber.StatusRequestEntityTooLarge, "PDF exceeds allowed size")
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	c.Set(fiber.HeaderContentLength, strconv.Itoa(len(pdf)))
	return c.Send(pdf)
}

func (h *PDFService) logFailure(c *fiber.Ctx, msg string, err error) {
	id := middleware.RequestID(c)
	if chrome.IsSessionInterrupted(err) {
		logging.Warn("Browser session interrupted", "request_id", id, "error", err)
		return
	}
	logging.Error(msg, "request_id", id, "error", err)
}

func requestError(err error) error {
	if errors.Is(err, domain.ErrTooLarge) {
		return fiber.NewError(fiber.StatusRequestEntityTooLarge, err.Error())
	}
	return fiber.NewError(fiber.StatusBadRequest, err.Error())
}

package pdf

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gen2brain/go-fitz"

	"github.com/spherical/formation-extractor/internal/domain"
	"github.com/spherical/formation-extractor/internal/observability"
)

// DefaultTimeout bounds a whole-document rasterization.
const DefaultTimeout = 2 * time.Minute

// Converter implements page rasterization using go-fitz (MuPDF)
type Converter struct {
	validator *Validator
	logger    *observability.Logger
	timeout   time.Duration
}

// NewConverter creates a new PDF converter instance
func NewConverter(logger *observability.Logger, timeout time.Duration) *Converter {
	if logger == nil {
		logger = observability.Nop()
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Converter{
		validator: NewValidator(logger),
		logger:    logger.WithOperation("rasterize"),
		timeout:   timeout,
	}
}

type renderResult struct {
	pages []domain.Page
	err   error
}

// Rasterize renders every page of the PDF at the given density.
// MuPDF calls cannot be interrupted, so rendering runs in its own goroutine;
// on timeout or cancellation Rasterize returns immediately and the goroutine
// stops after the page it is rendering, then closes the document.
func (c *Converter) Rasterize(ctx context.Context, pdfPath string, density float64) ([]domain.Page, error) {
	if err := c.validator.ValidatePDFPath(pdfPath); err != nil {
		return nil, err
	}
	if err := c.validator.ValidateDensity(density); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	doc, err := fitz.New(pdfPath)
	if err != nil {
		return nil, domain.SourceReadError(pdfPath, "failed to open PDF", err)
	}

	resultCh := make(chan renderResult, 1)
	go func() {
		defer doc.Close()
		pages, err := c.render(ctx, doc, pdfPath, density)
		resultCh <- renderResult{pages: pages, err: err}
	}()

	select {
	case res := <-resultCh:
		return res.pages, res.err
	case <-ctx.Done():
		return nil, c.interrupted(ctx, pdfPath)
	}
}

func (c *Converter) interrupted(ctx context.Context, pdfPath string) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return domain.SourceReadError(pdfPath,
			fmt.Sprintf("rasterization did not finish within %v", c.timeout), ctx.Err())
	}
	return domain.SourceReadError(pdfPath, "rasterization cancelled", ctx.Err())
}

func (c *Converter) render(ctx context.Context, doc *fitz.Document, pdfPath string, density float64) ([]domain.Page, error) {
	pageCount := doc.NumPage()
	if pageCount == 0 {
		return nil, domain.SourceReadError(pdfPath, "PDF has no pages", nil)
	}

	c.logger.Info().
		Str("path", pdfPath).
		Int("pages", pageCount).
		Float64("density", density).
		Msg("Rasterizing document")

	pages := make([]domain.Page, 0, pageCount)
	for pageNum := 0; pageNum < pageCount; pageNum++ {
		if ctx.Err() != nil {
			return nil, c.interrupted(ctx, pdfPath)
		}

		start := time.Now()
		img, err := doc.ImageDPI(pageNum, density)
		if err != nil {
			return nil, domain.SourceReadError(pdfPath, fmt.Sprintf("failed to render page %d", pageNum+1), err)
		}

		page := domain.Page{Index: pageNum, Image: img}
		c.logger.Debug().
			Int("page", pageNum).
			Int("width", page.Width()).
			Int("height", page.Height()).
			Dur("elapsed", time.Since(start)).
			Msg("Rendered page")

		pages = append(pages, page)
	}

	return pages, nil
}

package rendering

import (
	"context"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// DefaultPDFTimeout bounds a single HTML to PDF conversion
const DefaultPDFTimeout = 30 * time.Second

// A4 paper size in inches
const (
	a4Width  = 8.27
	a4Height = 11.69
)

// PDFRenderer converts an HTML document to PDF.
type PDFRenderer interface {
	RenderToPDF(ctx context.Context, html string) ([]byte, error)
}

// ChromeRenderer prints HTML to PDF in a headless Chrome.
// Requires Chrome/Chromium to be installed on the system.
type ChromeRenderer struct {
	timeout time.Duration
	logger  *zap.Logger
}

// NewChromeRenderer creates a renderer. A non-positive timeout uses DefaultPDFTimeout.
func NewChromeRenderer(timeout time.Duration, logger *zap.Logger) *ChromeRenderer {
	if timeout <= 0 {
		timeout = DefaultPDFTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChromeRenderer{timeout: timeout, logger: logger}
}

// RenderToPDF loads html into a blank page and prints it on A4 with backgrounds.
func (r *ChromeRenderer) RenderToPDF(ctx context.Context, html string) ([]byte, error) {
	allocCtx, cancel := chromedp.NewExecAllocator(ctx,
		append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
		)...,
	)
	defer cancel()

	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	browserCtx, cancel = context.WithTimeout(browserCtx, r.timeout)
	defer cancel()

	start := time.Now()
	var pdf []byte
	err := chromedp.Run(browserCtx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(tree.Frame.ID, html).Do(ctx)
		}),
		chromedp.WaitReady("body"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			pdf, _, err = page.PrintToPDF().
				WithPrintBackground(true).
				WithPaperWidth(a4Width).
				WithPaperHeight(a4Height).
				WithMarginTop(0.4).
				WithMarginBottom(0.4).
				WithMarginLeft(0.4).
				WithMarginRight(0.4).
				Do(ctx)
			return err
		}),
	)
	if err != nil {
		return nil, &RenderError{Message: "PDF rendering failed", Cause: err}
	}

	r.logger.Debug("pdf rendered",
		zap.Int("html_bytes", len(html)),
		zap.Int("pdf_bytes", len(pdf)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return pdf, nil
}

package ingestion_engine

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"strings"

	"code.sajari.com/docconv"
	"github.com/ledongthuc/pdf"

	"github.com/markdave123-py/botdesk/internal/core"
	"github.com/markdave123-py/botdesk/internal/logger"
)

var _ core.DocumentExtractor = (*DocumentExtractor)(nil)

// pdfDocument is the page-level view the extractor needs from a PDF parser.
type pdfDocument interface {
	NumPage() int
	// PageText returns the text of page i, 1-based.
	PageText(i int) (string, error)
}

// DocumentExtractor implements core.DocumentExtractor for text/plain and
// application/pdf.
type DocumentExtractor struct {
	openPDF  func(data []byte) (pdfDocument, error)
	fallback func(data []byte) (string, error)
}

func NewDocumentExtractor() *DocumentExtractor {
	return &DocumentExtractor{
		openPDF:  openLedongthucPDF,
		fallback: docconvPDF,
	}
}

// SupportedMediaType reports whether Extract accepts mediaType. Parameters
// such as charset are ignored.
func SupportedMediaType(mediaType string) bool {
	switch baseMediaType(mediaType) {
	case core.MediaTypePlainText, core.MediaTypePDF:
		return true
	}
	return false
}

func baseMediaType(mediaType string) string {
	mt, _, err := mime.ParseMediaType(mediaType)
	if err != nil {
		mt, _, _ = strings.Cut(mediaType, ";")
	}
	return strings.ToLower(strings.TrimSpace(mt))
}

func (e *DocumentExtractor) Extract(ctx context.Context, data []byte, mediaType string, opts core.ExtractOptions) (string, error) {
	switch baseMediaType(mediaType) {
	case core.MediaTypePlainText:
		text := strings.ToValidUTF8(string(data), "")
		if strings.TrimSpace(text) == "" {
			return "", fmt.Errorf("empty text document: %w", core.ErrExtraction)
		}
		return text, nil
	case core.MediaTypePDF:
		return e.extractPDF(ctx, data, opts)
	default:
		return "", fmt.Errorf("unsupported media type %q: %w", mediaType, core.ErrExtraction)
	}
}

func (e *DocumentExtractor) extractPDF(ctx context.Context, data []byte, opts core.ExtractOptions) (string, error) {
	log := logger.FromContext(ctx)

	doc, err := e.openPDF(data)
	if err != nil {
		return "", fmt.Errorf("parse pdf: %w: %v", core.ErrExtraction, err)
	}

	pages := doc.NumPage()
	if opts.MaxPages > 0 && pages > opts.MaxPages {
		return "", fmt.Errorf("pdf has %d pages, limit is %d: %w", pages, opts.MaxPages, core.ErrExtraction)
	}

	texts := make([]string, 0, pages)
	for i := 1; i <= pages; i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		text, err := safePageText(doc, i)
		if err != nil {
			log.WithField("page", i).WithError(err).Warn("skipping unreadable pdf page")
			continue
		}
		if text = joinRuns(text); text != "" {
			texts = append(texts, text)
		}
	}

	out := strings.Join(texts, "\n\n")
	if out == "" && e.fallback != nil {
		log.Debug("pdf pages yielded no text, trying docconv")
		if fb, err := e.fallback(data); err == nil {
			out = strings.TrimSpace(fb)
		} else {
			log.WithError(err).Warn("docconv fallback failed")
		}
	}
	if out == "" {
		return "", fmt.Errorf("pdf contains no extractable text: %w", core.ErrExtraction)
	}
	return out, nil
}

// safePageText recovers from parser panics on malformed pages.
func safePageText(doc pdfDocument, i int) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("page %d: panic: %v", i, r)
		}
	}()
	return doc.PageText(i)
}

// joinRuns drops whitespace-only runs and joins the rest with single spaces.
func joinRuns(text string) string {
	lines := strings.Split(text, "\n")
	runs := lines[:0]
	for _, l := range lines {
		if l = strings.TrimSpace(l); l != "" {
			runs = append(runs, l)
		}
	}
	return strings.Join(runs, " ")
}

type ledongthucPDF struct {
	r *pdf.Reader
}

func openLedongthucPDF(data []byte) (pdfDocument, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}
	return ledongthucPDF{r: r}, nil
}

func (d ledongthucPDF) NumPage() int {
	return d.r.NumPage()
}

func (d ledongthucPDF) PageText(i int) (string, error) {
	p := d.r.Page(i)
	if p.V.IsNull() {
		return "", nil
	}
	return p.GetPlainText(make(map[string]*pdf.Font))
}

func docconvPDF(data []byte) (string, error) {
	body, _, err := docconv.ConvertPDF(bytes.NewReader(data))
	return body, err
}

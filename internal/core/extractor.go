package core

import "context"

const (
	MediaTypePlainText = "text/plain"
	MediaTypePDF       = "application/pdf"
)

type ExtractOptions struct {
	// MaxPages rejects PDFs with more pages. Zero means no cap.
	MaxPages int
}

// DocumentExtractor converts a plain-text or PDF payload into one flat string.
type DocumentExtractor interface {
	Extract(ctx context.Context, data []byte, mediaType string, opts ExtractOptions) (string, error)
}

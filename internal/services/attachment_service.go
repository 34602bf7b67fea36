package services

import (
	"context"
	"fmt"

	"github.com/markdave123-py/botdesk/internal/core"
)

// AttachmentService extracts text from files dropped into the chat box.
// Unlike knowledge base ingestion it enforces a page cap.
type AttachmentService struct {
	extractor core.DocumentExtractor
	maxPages  int
}

func NewAttachmentService(extractor core.DocumentExtractor, maxPages int) *AttachmentService {
	return &AttachmentService{extractor: extractor, maxPages: maxPages}
}

func (s *AttachmentService) Extract(ctx context.Context, mediaType string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("empty attachment: %w", core.ErrExtraction)
	}
	return s.extractor.Extract(ctx, data, mediaType, core.ExtractOptions{MaxPages: s.maxPages})
}

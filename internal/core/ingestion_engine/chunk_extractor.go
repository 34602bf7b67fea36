package ingestion_engine

import (
	"strings"
	"unicode/utf8"
)

const (
	DefaultChunkSize    = 800
	DefaultChunkOverlap = 300

	sentenceWindow = 100
	wordWindow     = 50
	minChunkLen    = 50
)

// TextSegmenter splits extracted text into the pieces that get embedded.
type TextSegmenter interface {
	Segment(text string) []string
}

// Span is one emitted chunk. Start and End are rune offsets into the input
// before trimming.
type Span struct {
	Start int
	End   int
	Text  string
}

// SentenceWindowSegmenter cuts fixed-size windows, preferring a sentence
// terminator in the last 100 characters, then a space in the last 50.
// Consecutive windows overlap by Overlap characters.
type SentenceWindowSegmenter struct {
	Size    int
	Overlap int
}

type SegmenterOption func(*SentenceWindowSegmenter)

func WithChunkSize(n int) SegmenterOption {
	return func(s *SentenceWindowSegmenter) {
		if n > 0 {
			s.Size = n
		}
	}
}

func WithChunkOverlap(n int) SegmenterOption {
	return func(s *SentenceWindowSegmenter) {
		if n >= 0 {
			s.Overlap = n
		}
	}
}

func NewSentenceWindowSegmenter(opts ...SegmenterOption) *SentenceWindowSegmenter {
	s := &SentenceWindowSegmenter{Size: DefaultChunkSize, Overlap: DefaultChunkOverlap}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *SentenceWindowSegmenter) Segment(text string) []string {
	spans := s.SegmentSpans(text)
	out := make([]string, len(spans))
	for i, sp := range spans {
		out[i] = sp.Text
	}
	return out
}

func (s *SentenceWindowSegmenter) SegmentSpans(text string) []Span {
	if !utf8.ValidString(text) {
		text = strings.ToValidUTF8(text, "")
	}
	r := []rune(text)
	n := len(r)
	size := s.Size
	if size <= 0 {
		size = DefaultChunkSize
	}

	var spans []Span
	start := 0
	for start < n {
		end := min(start+size, n)
		if end < n {
			end = boundary(r, start, end)
		}

		if chunk := strings.TrimSpace(string(r[start:end])); utf8.RuneCountInString(chunk) >= minChunkLen {
			spans = append(spans, Span{Start: start, End: end, Text: chunk})
		}
		if end >= n {
			break
		}

		// start never moves backward, even when overlap >= size.
		next := end - s.Overlap
		if next <= start {
			next = end
		}
		start = next
	}
	return spans
}

// boundary moves end back to just after a sentence terminator or onto a space
// when one is close enough; otherwise end is kept.
func boundary(r []rune, start, end int) int {
	for i := end - 1; i >= max(start, end-sentenceWindow); i-- {
		switch r[i] {
		case '.', '?', '!':
			if i+1 > start {
				return i + 1
			}
		}
	}
	for i := end - 1; i >= max(start, end-wordWindow); i-- {
		if r[i] == ' ' && i > start {
			return i
		}
	}
	return end
}

var _ TextSegmenter = (*SentenceWindowSegmenter)(nil)

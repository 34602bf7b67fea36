package ingestion_engine

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func wordsText(n int) string {
	return strings.Repeat("abcd ", n/5)
}

func TestSegment_TwoThousandCharacterDocument(t *testing.T) {
	text := wordsText(2000)
	require.Equal(t, 2000, len(text))

	s := NewSentenceWindowSegmenter()
	spans := s.SegmentSpans(text)

	require.GreaterOrEqual(t, len(spans), 3)
	require.LessOrEqual(t, len(spans), 4)
	for i := 1; i < len(spans); i++ {
		assert.LessOrEqual(t, spans[i].Start, spans[i-1].End-s.Overlap)
		assert.Greater(t, spans[i].Start, spans[i-1].Start)
	}
	assert.Equal(t, 2000, spans[len(spans)-1].End)
}

func TestSegment_PrefersSentenceBoundary(t *testing.T) {
	first := strings.Repeat("a", 740) + "."
	text := first + " " + strings.Repeat("b ", 400)

	spans := NewSentenceWindowSegmenter().SegmentSpans(text)
	require.NotEmpty(t, spans)
	assert.Equal(t, len(first), spans[0].End)
	assert.True(t, strings.HasSuffix(spans[0].Text, "."))
}

func TestSegment_FallsBackToSpace(t *testing.T) {
	text := strings.Repeat("x", 770) + " " + strings.Repeat("y", 600)

	spans := NewSentenceWindowSegmenter().SegmentSpans(text)
	require.NotEmpty(t, spans)
	assert.Equal(t, 770, spans[0].End)
}

func TestSegment_PathologicalSingleWord(t *testing.T) {
	text := strings.Repeat("z", 10000)

	spans := NewSentenceWindowSegmenter().SegmentSpans(text)
	require.NotEmpty(t, spans)
	for _, sp := range spans[:len(spans)-1] {
		assert.Equal(t, 800, sp.End-sp.Start)
	}
	assert.Equal(t, 10000, spans[len(spans)-1].End)
}

func TestSegment_Properties(t *testing.T) {
	corpus := []string{
		wordsText(5000),
		strings.Repeat("The quick brown fox jumps over the lazy dog. Is it? Yes! ", 60),
		strings.Repeat("ünïcödé wörds ", 300),
	}
	params := [][2]int{{800, 300}, {200, 50}, {100, 0}, {120, 119}}

	for _, text := range corpus {
		for _, p := range params {
			s := NewSentenceWindowSegmenter(WithChunkSize(p[0]), WithChunkOverlap(p[1]))
			spans := s.SegmentSpans(text)
			require.NotEmpty(t, spans)

			for i, sp := range spans {
				assert.LessOrEqual(t, sp.End-sp.Start, p[0])
				assert.GreaterOrEqual(t, utf8.RuneCountInString(sp.Text), minChunkLen)
				if i > 0 {
					// contiguous coverage: the next window starts inside the previous one
					assert.LessOrEqual(t, sp.Start, spans[i-1].End)
					assert.Greater(t, sp.Start, spans[i-1].Start)
				}
			}

			// deterministic
			assert.Equal(t, s.Segment(text), s.Segment(text))
		}
	}
}

func TestSegment_OverlapNotSmallerThanSizeTerminates(t *testing.T) {
	s := &SentenceWindowSegmenter{Size: 100, Overlap: 150}
	spans := s.SegmentSpans(wordsText(1000))

	require.NotEmpty(t, spans)
	for i := 1; i < len(spans); i++ {
		assert.Equal(t, spans[i-1].End, spans[i].Start)
	}
}

func TestSegment_DropsShortChunks(t *testing.T) {
	assert.Empty(t, NewSentenceWindowSegmenter().Segment("too short"))
	assert.Empty(t, NewSentenceWindowSegmenter().Segment(""))
}

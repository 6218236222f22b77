package textutil_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ai-nk/rag-service/internal/pkg/textutil"
)

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name     string
		a        []float32
		b        []float32
		expected float64
	}{
		{
			name:     "identical vectors",
			a:        []float32{1.0, 0.0, 0.0},
			b:        []float32{1.0, 0.0, 0.0},
			expected: 1.0,
		},
		{
			name:     "orthogonal vectors",
			a:        []float32{1.0, 0.0, 0.0},
			b:        []float32{0.0, 1.0, 0.0},
			expected: 0.0,
		},
		{
			name:     "opposite vectors",
			a:        []float32{1.0, 0.0, 0.0},
			b:        []float32{-1.0, 0.0, 0.0},
			expected: -1.0,
		},
		{
			name:     "empty vectors",
			a:        []float32{},
			b:        []float32{},
			expected: 0.0,
		},
		{
			name:     "length mismatch",
			a:        []float32{1.0, 2.0},
			b:        []float32{1.0},
			expected: 0.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := textutil.CosineSimilarity(tt.a, tt.b)
			assert.InDelta(t, tt.expected, result, 0.0001)
		})
	}
}

func TestHashString(t *testing.T) {
	hash1 := textutil.HashString("test")
	hash2 := textutil.HashString("test")
	assert.Equal(t, hash1, hash2)

	hash3 := textutil.HashString("different")
	assert.NotEqual(t, hash1, hash3)

	// hex-encoded SHA-256
	assert.Len(t, hash1, 64)
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "hello", textutil.TruncateString("hello", 10))
	assert.Equal(t, "hel", textutil.TruncateString("hello", 3))
	assert.Equal(t, "прив", textutil.TruncateString("привет", 4))
	assert.Equal(t, "", textutil.TruncateString("hello", 0))
}

func TestSplitIntoChunks(t *testing.T) {
	t.Run("short text is one chunk", func(t *testing.T) {
		chunks := textutil.SplitIntoChunks("short", 100, 10)
		assert.Equal(t, []string{"short"}, chunks)
	})

	t.Run("zero chunk size returns nil", func(t *testing.T) {
		assert.Nil(t, textutil.SplitIntoChunks("text", 0, 0))
	})

	t.Run("overlap repeats characters across chunks", func(t *testing.T) {
		chunks := textutil.SplitIntoChunks("abcdefghij", 4, 2)
		assert.Equal(t, []string{"abcd", "cdef", "efgh", "ghij"}, chunks)
	})

	t.Run("no overlap", func(t *testing.T) {
		chunks := textutil.SplitIntoChunks("abcdefgh", 4, 0)
		assert.Equal(t, []string{"abcd", "efgh"}, chunks)
	})

	t.Run("counts runes not bytes", func(t *testing.T) {
		chunks := textutil.SplitIntoChunks("абвгде", 3, 0)
		assert.Equal(t, []string{"абв", "где"}, chunks)
	})
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{"latin", "Hello, World!", []string{"hello", "world"}},
		{"cyrillic", "Требования к документации.", []string{"требования", "к", "документации"}},
		{"mixed with digits", "ГОСТ 2.105-2019", []string{"гост", "2", "105", "2019"}},
		{"empty", "   ", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, textutil.Tokenize(tt.input))
		})
	}
}

func TestTermFrequencies(t *testing.T) {
	freqs := textutil.TermFrequencies("раздел раздел требования")
	assert.Equal(t, 2, freqs["раздел"])
	assert.Equal(t, 1, freqs["требования"])
}

func TestMinMaxNormalize(t *testing.T) {
	t.Run("rescales to unit range", func(t *testing.T) {
		got := textutil.MinMaxNormalize([]float64{1, 3, 5})
		assert.InDeltaSlice(t, []float64{0, 0.5, 1}, got, 0.0001)
	})

	t.Run("equal scores map to one", func(t *testing.T) {
		got := textutil.MinMaxNormalize([]float64{2, 2, 2})
		assert.Equal(t, []float64{1, 1, 1}, got)
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Nil(t, textutil.MinMaxNormalize(nil))
	})
}

func TestSplitParagraphs(t *testing.T) {
	text := "first paragraph\n\nsecond paragraph\n\n\n\n  \n\nthird"
	paragraphs := textutil.SplitParagraphs(text)
	assert.Equal(t, []string{"first paragraph", "second paragraph", "third"}, paragraphs)
}

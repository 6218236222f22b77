package biz

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ai-nk/rag-service/internal/model"
)

func TestChunkerTracksSectionsAndPages(t *testing.T) {
	c := NewChunker(ChunkerConfig{ChunkSize: 500, ChunkOverlap: 50, MinChunkLength: 10})
	doc := &model.Document{ID: 42}

	pages := []Page{
		{Number: 1, Text: "1.1 Область применения\n\nНастоящий стандарт устанавливает требования к документам."},
		{Number: 2, Text: "Продолжение раздела на следующей странице документа."},
	}
	chunks := c.Chunk(doc, "ГОСТ 2.105-2019", pages)
	require.NotEmpty(t, chunks)

	for _, chunk := range chunks {
		assert.Equal(t, int64(42), chunk.DocumentID)
		assert.Equal(t, "ГОСТ 2.105-2019", chunk.DocumentTitle)
		assert.NotEmpty(t, chunk.ChunkID)
	}

	assert.Equal(t, 1, chunks[0].Page)
	assert.Equal(t, "1.1", chunks[0].Section)
	assert.Equal(t, "Область применения", chunks[0].SectionTitle)

	last := chunks[len(chunks)-1]
	assert.Equal(t, 2, last.Page)
	// Section carries over across page boundaries until the next heading.
	assert.Equal(t, "1.1", last.Section)
}

func TestChunkerDropsShortChunks(t *testing.T) {
	c := NewChunker(ChunkerConfig{ChunkSize: 500, ChunkOverlap: 0, MinChunkLength: 50})

	pages := []Page{{Number: 1, Text: "Коротко.\n\n" + strings.Repeat("Достаточно длинный абзац нормативного текста. ", 3)}}
	chunks := c.Chunk(&model.Document{ID: 1}, "Док", pages)

	require.Len(t, chunks, 1)
	assert.NotContains(t, chunks[0].Content, "Коротко")
}

func TestChunkerSplitsOversizedParagraphs(t *testing.T) {
	c := NewChunker(ChunkerConfig{ChunkSize: 100, ChunkOverlap: 20, MinChunkLength: 10})

	long := strings.Repeat("нормативный текст ", 30)
	chunks := c.Chunk(&model.Document{ID: 1}, "Док", []Page{{Number: 1, Text: long}})

	require.Greater(t, len(chunks), 1)
	for _, chunk := range chunks {
		assert.LessOrEqual(t, len([]rune(chunk.Content)), 100)
	}
}

func TestChunkerUniqueIDs(t *testing.T) {
	c := NewChunker(ChunkerConfig{ChunkSize: 50, ChunkOverlap: 0, MinChunkLength: 5})

	text := strings.Repeat("абзац текста документа\n\n", 10)
	chunks := c.Chunk(&model.Document{ID: 1}, "Док", []Page{{Number: 1, Text: text}})

	seen := make(map[string]bool)
	for _, chunk := range chunks {
		assert.False(t, seen[chunk.ChunkID], "duplicate chunk id")
		seen[chunk.ChunkID] = true
	}
}

func TestPagesFromText(t *testing.T) {
	pages := PagesFromText("страница один\fстраница два")
	require.Len(t, pages, 2)
	assert.Equal(t, 1, pages[0].Number)
	assert.Equal(t, "страница два", pages[1].Text)

	single := PagesFromText("без разрывов")
	require.Len(t, single, 1)
	assert.Equal(t, 1, single[0].Number)
}

func TestTokenCount(t *testing.T) {
	c := NewChunker(ChunkerConfig{})
	count := c.TokenCount([]Page{
		{Number: 1, Text: "один два три"},
		{Number: 2, Text: "четыре пять"},
	})
	assert.Equal(t, 5, count)
}

package biz

import (
	"regexp"
	"strings"

	"github.com/ai-nk/rag-service/internal/model"
	"github.com/ai-nk/rag-service/internal/pkg/textutil"
	"github.com/ai-nk/rag-service/pkg/id"
)

// ChunkerConfig controls document chunking.
type ChunkerConfig struct {
	// ChunkSize is the maximum chunk length in Unicode characters.
	ChunkSize int
	// ChunkOverlap is the overlap between consecutive chunks split from an
	// oversized paragraph.
	ChunkOverlap int
	// MinChunkLength drops chunks shorter than this many characters.
	MinChunkLength int
}

// Page is one page of extracted document text.
type Page struct {
	Number int
	Text   string
}

// Chunker splits extracted document text into chunks with section and page
// metadata.
type Chunker struct {
	config ChunkerConfig
}

// NewChunker creates a chunker.
func NewChunker(config ChunkerConfig) *Chunker {
	if config.ChunkSize <= 0 {
		config.ChunkSize = 800
	}
	if config.ChunkOverlap < 0 {
		config.ChunkOverlap = 0
	}
	if config.MinChunkLength < 0 {
		config.MinChunkLength = 0
	}
	return &Chunker{config: config}
}

// Normative documents head their sections with a dotted number, e.g.
// "4.2 Требования к маркировке". Markdown headings are accepted too.
var sectionRegex = regexp.MustCompile(`^(?:#{1,6}\s+)?(\d+(?:\.\d+)*)\.?\s+(\S.*)$`)

// Chunk splits the document pages into chunks. The returned chunks carry
// fresh ULIDs, so the caller replaces (never appends to) the document's
// prior chunk set.
func (c *Chunker) Chunk(doc *model.Document, title string, pages []Page) []*model.Chunk {
	var chunks []*model.Chunk

	section := ""
	sectionTitle := ""

	for _, page := range pages {
		for _, paragraph := range textutil.SplitParagraphs(page.Text) {
			if m := sectionRegex.FindStringSubmatch(firstLine(paragraph)); m != nil {
				section = m[1]
				sectionTitle = textutil.TruncateString(strings.TrimSpace(m[2]), 250)
			}

			for _, content := range textutil.SplitIntoChunks(paragraph, c.config.ChunkSize, c.config.ChunkOverlap) {
				content = strings.TrimSpace(content)
				if len([]rune(content)) < c.config.MinChunkLength {
					continue
				}
				chunks = append(chunks, &model.Chunk{
					ChunkID:       id.NewULID(),
					DocumentID:    doc.ID,
					Content:       content,
					ChunkType:     "paragraph",
					Section:       section,
					SectionTitle:  sectionTitle,
					Page:          page.Number,
					DocumentTitle: title,
				})
			}
		}
	}

	return chunks
}

// TokenCount counts tokens across all pages, recorded on the document after
// indexing.
func (c *Chunker) TokenCount(pages []Page) int {
	total := 0
	for _, page := range pages {
		total += len(textutil.Tokenize(page.Text))
	}
	return total
}

// PagesFromText wraps pre-extracted text whose pages are separated by form
// feeds. Text without form feeds becomes a single page.
func PagesFromText(text string) []Page {
	parts := strings.Split(text, "\f")
	pages := make([]Page, 0, len(parts))
	for i, part := range parts {
		pages = append(pages, Page{Number: i + 1, Text: part})
	}
	return pages
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

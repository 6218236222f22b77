// Package store provides persistence for the RAG service: the Milvus vector
// index, the BM25 lexical index and the relational document/chunk/task
// stores.
package store

import (
	"context"
	"time"

	"github.com/ai-nk/rag-service/internal/model"
)

// Point is one vector index entry.
type Point struct {
	ChunkID    string
	DocumentID int64
	Embedding  []float32
}

// Hit is a dense retrieval result.
type Hit struct {
	ChunkID string
	Score   float64
}

// LexicalHit is a lexical retrieval result.
type LexicalHit struct {
	ChunkID string
	Score   float64
}

// CollectionStats describes the vector collection.
type CollectionStats struct {
	PointCount int64 `json:"point_count"`
	VectorDim  int   `json:"vector_dim"`
}

// VectorIndex is the dense retrieval index.
type VectorIndex interface {
	// Upsert writes points. Re-upserting a chunk ID replaces the prior
	// point instead of duplicating it.
	Upsert(ctx context.Context, points []Point) error

	// Search returns hits scoring at or above threshold, sorted by score
	// descending. No match is an empty slice, not an error.
	Search(ctx context.Context, vector []float32, limit int, threshold float64) ([]Hit, error)

	// DeleteByDocument removes every point belonging to a document.
	DeleteByDocument(ctx context.Context, documentID int64) error

	// Stats reports collection statistics.
	Stats(ctx context.Context) (CollectionStats, error)
}

// LexicalIndex is the BM25 keyword index.
type LexicalIndex interface {
	// Index tokenizes content and stores postings for the chunk.
	Index(ctx context.Context, chunkID, content string) error

	// Remove drops all postings belonging to a document.
	Remove(ctx context.Context, documentID int64) error

	// Search ranks chunks by BM25. No match is an empty slice, not an
	// error.
	Search(ctx context.Context, query string, limit int) ([]LexicalHit, error)

	// PostingCount reports the total number of posting rows.
	PostingCount(ctx context.Context) (int64, error)
}

// ChunkStore persists chunk records.
type ChunkStore interface {
	// ReplaceForDocument atomically swaps a document's chunk set.
	ReplaceForDocument(ctx context.Context, documentID int64, chunks []*model.Chunk) error

	// GetByIDs fetches chunks by chunk ID, preserving no particular order.
	GetByIDs(ctx context.Context, chunkIDs []string) ([]*model.Chunk, error)

	// DeleteByDocument removes a document's chunks.
	DeleteByDocument(ctx context.Context, documentID int64) error

	// CountByDocument reports how many chunks a document has.
	CountByDocument(ctx context.Context, documentID int64) (int64, error)
}

// DocumentStore persists document records.
type DocumentStore interface {
	Create(ctx context.Context, doc *model.Document) error
	Get(ctx context.Context, id int64) (*model.Document, error)
	UpdateStatus(ctx context.Context, id int64, status string) error
	SetIndexed(ctx context.Context, id int64, chunkCount, tokenCount int) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, offset, limit int) (int64, []*model.Document, error)
	CountByStatus(ctx context.Context) (map[string]int64, error)
}

// TaskStore persists indexing tasks.
type TaskStore interface {
	Create(ctx context.Context, task *model.IndexingTask) error
	Update(ctx context.Context, task *model.IndexingTask) error
	Get(ctx context.Context, id string) (*model.IndexingTask, error)
	ListByStatus(ctx context.Context, statuses ...string) ([]*model.IndexingTask, error)
	// ListStuck returns tasks sitting in the indexing status whose last
	// attempt is older than the cutoff.
	ListStuck(ctx context.Context, olderThan time.Duration) ([]*model.IndexingTask, error)
	CountByStatus(ctx context.Context) (map[string]int64, error)
}

// Factory bundles the relational stores sharing one database handle.
type Factory interface {
	Chunks() ChunkStore
	Documents() DocumentStore
	Tasks() TaskStore
	Lexical() LexicalIndex
	Close() error
}

package store

import (
	"context"
	"sort"

	apierrors "github.com/ai-nk/rag-service/pkg/errors"

	"github.com/ai-nk/rag-service/pkg/component/milvus"
)

// milvusIndex implements VectorIndex on a Milvus collection.
type milvusIndex struct {
	client     *milvus.Client
	collection string
	dim        int
}

// NewMilvusIndex creates a VectorIndex on the named collection, creating and
// loading the collection if needed.
func NewMilvusIndex(ctx context.Context, client *milvus.Client, collection string, dim int) (VectorIndex, error) {
	if err := client.EnsureCollection(ctx, collection, dim); err != nil {
		return nil, apierrors.ErrIndexWrite.WithCause(err)
	}
	return &milvusIndex{client: client, collection: collection, dim: dim}, nil
}

// Upsert deletes any prior points with the same chunk IDs before inserting,
// so re-indexing replaces instead of duplicating.
func (m *milvusIndex) Upsert(ctx context.Context, points []Point) error {
	if len(points) == 0 {
		return nil
	}

	chunkIDs := make([]string, len(points))
	documentIDs := make([]int64, len(points))
	embeddings := make([][]float32, len(points))
	for i, p := range points {
		chunkIDs[i] = p.ChunkID
		documentIDs[i] = p.DocumentID
		embeddings[i] = p.Embedding
	}

	if err := m.client.DeleteByChunkIDs(ctx, m.collection, chunkIDs); err != nil {
		return apierrors.ErrIndexWrite.WithCause(err)
	}
	if err := m.client.Insert(ctx, m.collection, chunkIDs, documentIDs, embeddings); err != nil {
		return apierrors.ErrIndexWrite.WithCause(err)
	}
	return nil
}

func (m *milvusIndex) Search(ctx context.Context, vector []float32, limit int, threshold float64) ([]Hit, error) {
	if limit <= 0 {
		return []Hit{}, nil
	}

	raw, err := m.client.Search(ctx, m.collection, vector, limit)
	if err != nil {
		return nil, apierrors.ErrSearchBackend.WithCause(err)
	}

	hits := make([]Hit, 0, len(raw))
	for _, h := range raw {
		score := float64(h.Score)
		if score < threshold {
			continue
		}
		hits = append(hits, Hit{ChunkID: h.ChunkID, Score: score})
	}
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})
	return hits, nil
}

func (m *milvusIndex) DeleteByDocument(ctx context.Context, documentID int64) error {
	if err := m.client.DeleteByDocument(ctx, m.collection, documentID); err != nil {
		return apierrors.ErrIndexWrite.WithCause(err)
	}
	return nil
}

func (m *milvusIndex) Stats(ctx context.Context) (CollectionStats, error) {
	count, err := m.client.RowCount(ctx, m.collection)
	if err != nil {
		return CollectionStats{}, apierrors.ErrSearchBackend.WithCause(err)
	}
	return CollectionStats{PointCount: count, VectorDim: m.dim}, nil
}

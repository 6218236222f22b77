// Package milvus wraps the Milvus SDK client for the chunk vector collection.
//
// The vector collection uses the chunk ULID as its primary key, so vector
// rows, lexical postings and relational chunk records all share one
// identifier space.
package milvus

import (
	"context"
	"fmt"
	"strconv"

	"github.com/milvus-io/milvus/client/v2/column"
	"github.com/milvus-io/milvus/client/v2/entity"
	"github.com/milvus-io/milvus/client/v2/index"
	"github.com/milvus-io/milvus/client/v2/milvusclient"

	milvusopts "github.com/ai-nk/rag-service/pkg/options/milvus"
)

// chunkIDMaxLen matches the rag_chunks.chunk_id column width.
const chunkIDMaxLen = 64

// Client wraps the Milvus SDK client.
type Client struct {
	client *milvusclient.Client
	opts   *milvusopts.Options
}

// New creates a new Milvus client.
func New(opts *milvusopts.Options) (*Client, error) {
	if opts == nil {
		return nil, fmt.Errorf("milvus options is nil")
	}

	ctx, cancel := context.WithTimeout(context.Background(), opts.Timeout)
	defer cancel()

	c, err := milvusclient.New(ctx, &milvusclient.ClientConfig{
		Address:  opts.Address,
		Username: opts.Username,
		Password: opts.Password,
		DBName:   opts.Database,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to milvus: %w", err)
	}

	return &Client{client: c, opts: opts}, nil
}

// Close closes the Milvus client connection.
func (c *Client) Close(ctx context.Context) error {
	return c.client.Close(ctx)
}

// RawClient returns the underlying Milvus client.
func (c *Client) RawClient() *milvusclient.Client {
	return c.client
}

// EnsureCollection creates the chunk collection if it does not exist and
// loads it into memory.
//
// Schema: chunk_id (varchar primary key, caller supplied), document_id
// (int64, for bulk deletes), embedding (float vector). Cosine metric so
// scores land in [-1, 1] before fusion normalization.
func (c *Client) EnsureCollection(ctx context.Context, name string, dim int) error {
	exists, err := c.client.HasCollection(ctx, milvusclient.NewHasCollectionOption(name))
	if err != nil {
		return fmt.Errorf("failed to check collection existence: %w", err)
	}

	if !exists {
		schema := entity.NewSchema().
			WithName(name).
			WithDescription("document chunk embeddings")

		schema.WithField(
			entity.NewField().
				WithName("chunk_id").
				WithDataType(entity.FieldTypeVarChar).
				WithMaxLength(chunkIDMaxLen).
				WithIsPrimaryKey(true),
		)
		schema.WithField(
			entity.NewField().
				WithName("document_id").
				WithDataType(entity.FieldTypeInt64),
		)
		schema.WithField(
			entity.NewField().
				WithName("embedding").
				WithDataType(entity.FieldTypeFloatVector).
				WithDim(int64(dim)),
		)

		if err := c.client.CreateCollection(ctx, milvusclient.NewCreateCollectionOption(name, schema)); err != nil {
			return fmt.Errorf("failed to create collection: %w", err)
		}

		idx := index.NewIvfFlatIndex(entity.COSINE, 128)
		createIdxTask, err := c.client.CreateIndex(ctx, milvusclient.NewCreateIndexOption(name, "embedding", idx))
		if err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
		if err := createIdxTask.Await(ctx); err != nil {
			return fmt.Errorf("failed to wait for index creation: %w", err)
		}
	}

	loadTask, err := c.client.LoadCollection(ctx, milvusclient.NewLoadCollectionOption(name))
	if err != nil {
		return fmt.Errorf("failed to load collection: %w", err)
	}
	if err := loadTask.Await(ctx); err != nil {
		return fmt.Errorf("failed to wait for collection loading: %w", err)
	}
	return nil
}

// Insert writes chunk embeddings into the collection and flushes so they are
// immediately searchable.
func (c *Client) Insert(ctx context.Context, collection string, chunkIDs []string, documentIDs []int64, embeddings [][]float32) error {
	if len(chunkIDs) == 0 {
		return nil
	}
	if len(chunkIDs) != len(embeddings) || len(chunkIDs) != len(documentIDs) {
		return fmt.Errorf("mismatched insert lengths: %d ids, %d docs, %d vectors",
			len(chunkIDs), len(documentIDs), len(embeddings))
	}

	columns := []column.Column{
		column.NewColumnVarChar("chunk_id", chunkIDs),
		column.NewColumnInt64("document_id", documentIDs),
		column.NewColumnFloatVector("embedding", len(embeddings[0]), embeddings),
	}

	if _, err := c.client.Insert(ctx, milvusclient.NewColumnBasedInsertOption(collection, columns...)); err != nil {
		return fmt.Errorf("failed to insert data: %w", err)
	}

	// Flush so freshly indexed chunks are visible to the next search.
	flushTask, err := c.client.Flush(ctx, milvusclient.NewFlushOption(collection))
	if err != nil {
		return fmt.Errorf("failed to flush collection: %w", err)
	}
	if err := flushTask.Await(ctx); err != nil {
		return fmt.Errorf("failed to wait for flush: %w", err)
	}
	return nil
}

// Hit is a single vector search hit.
type Hit struct {
	ChunkID string
	Score   float32
}

// Search performs a vector similarity search and returns chunk IDs with
// cosine scores, best first.
func (c *Client) Search(ctx context.Context, collection string, vector []float32, topK int) ([]Hit, error) {
	results, err := c.client.Search(ctx, milvusclient.NewSearchOption(
		collection,
		topK,
		[]entity.Vector{entity.FloatVector(vector)},
	).WithANNSField("embedding").
		WithSearchParam("nprobe", "16").
		WithOutputFields("chunk_id"))
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	if len(results) == 0 {
		return []Hit{}, nil
	}

	hits := make([]Hit, 0, results[0].ResultCount)
	for i := 0; i < results[0].ResultCount; i++ {
		hit := Hit{Score: results[0].Scores[i]}
		if idCol, ok := results[0].IDs.(*column.ColumnVarChar); ok {
			hit.ChunkID = idCol.Data()[i]
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

// DeleteByDocument removes all vectors belonging to a document.
func (c *Client) DeleteByDocument(ctx context.Context, collection string, documentID int64) error {
	expr := fmt.Sprintf("document_id == %d", documentID)
	if _, err := c.client.Delete(ctx, milvusclient.NewDeleteOption(collection).WithExpr(expr)); err != nil {
		return fmt.Errorf("failed to delete document vectors: %w", err)
	}
	return nil
}

// DeleteByChunkIDs removes vectors by chunk ID.
func (c *Client) DeleteByChunkIDs(ctx context.Context, collection string, chunkIDs []string) error {
	if len(chunkIDs) == 0 {
		return nil
	}
	if _, err := c.client.Delete(ctx, milvusclient.NewDeleteOption(collection).WithStringIDs("chunk_id", chunkIDs)); err != nil {
		return fmt.Errorf("failed to delete by chunk ids: %w", err)
	}
	return nil
}

// RowCount returns the number of vectors in the collection.
func (c *Client) RowCount(ctx context.Context, collection string) (int64, error) {
	stats, err := c.client.GetCollectionStats(ctx, milvusclient.NewGetCollectionStatsOption(collection))
	if err != nil {
		return 0, fmt.Errorf("failed to get collection stats: %w", err)
	}
	if val, ok := stats["row_count"]; ok {
		return strconv.ParseInt(val, 10, 64)
	}
	return 0, nil
}

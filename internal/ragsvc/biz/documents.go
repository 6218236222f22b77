package biz

import (
	"context"

	"github.com/kart-io/logger"

	"github.com/ai-nk/rag-service/internal/model"
	"github.com/ai-nk/rag-service/internal/ragsvc/store"
)

// DocumentService manages the document registry and removes documents from
// every index when they are deleted.
type DocumentService struct {
	docs     store.DocumentStore
	chunks   store.ChunkStore
	vector   store.VectorIndex
	lexical  store.LexicalIndex
	indexing *ResilientIndexingService
}

// NewDocumentService creates a document service.
func NewDocumentService(
	docs store.DocumentStore,
	chunks store.ChunkStore,
	vector store.VectorIndex,
	lexical store.LexicalIndex,
	indexing *ResilientIndexingService,
) *DocumentService {
	return &DocumentService{
		docs:     docs,
		chunks:   chunks,
		vector:   vector,
		lexical:  lexical,
		indexing: indexing,
	}
}

// Register creates the document record and queues it for indexing. The task
// ID identifies the background indexing job, not the document.
func (s *DocumentService) Register(ctx context.Context, filename, content, category string, priority int) (*model.Document, string, error) {
	doc := &model.Document{
		Filename:         filename,
		Category:         category,
		ProcessingStatus: model.DocStatusPending,
	}
	if err := s.docs.Create(ctx, doc); err != nil {
		return nil, "", err
	}

	taskID, err := s.indexing.AddTask(ctx, doc.ID, filename, content, category, priority)
	if err != nil {
		// No task will ever pick this document up, so the registry must
		// not leave it pending.
		if serr := s.docs.UpdateStatus(ctx, doc.ID, model.DocStatusFailed); serr != nil {
			logger.Warnw("Failed to mark unqueued document", "document_id", doc.ID, "error", serr)
		}
		return nil, "", err
	}

	logger.Infow("Document registered",
		"document_id", doc.ID,
		"filename", filename,
		"category", category,
		"task_id", taskID,
	)
	return doc, taskID, nil
}

// Get returns a single document.
func (s *DocumentService) Get(ctx context.Context, id int64) (*model.Document, error) {
	return s.docs.Get(ctx, id)
}

// List returns a page of documents with the total count.
func (s *DocumentService) List(ctx context.Context, offset, limit int) (int64, []*model.Document, error) {
	return s.docs.List(ctx, offset, limit)
}

// Delete removes the document from the lexical index, the vector index, the
// chunk store and finally the registry. Postings are removed first since
// their cleanup resolves chunk IDs through the still-present chunk rows.
func (s *DocumentService) Delete(ctx context.Context, id int64) error {
	if _, err := s.docs.Get(ctx, id); err != nil {
		return err
	}

	if err := s.lexical.Remove(ctx, id); err != nil {
		return err
	}
	if err := s.vector.DeleteByDocument(ctx, id); err != nil {
		return err
	}
	if err := s.chunks.DeleteByDocument(ctx, id); err != nil {
		return err
	}
	if err := s.docs.Delete(ctx, id); err != nil {
		return err
	}

	logger.Infow("Document deleted", "document_id", id)
	return nil
}

// Stats aggregates registry and index counters for the status endpoint.
func (s *DocumentService) Stats(ctx context.Context) (map[string]any, error) {
	byStatus, err := s.docs.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}

	stats := map[string]any{
		"documents_by_status": byStatus,
	}

	if collStats, err := s.vector.Stats(ctx); err != nil {
		logger.Warnw("Vector index stats unavailable", "error", err)
	} else {
		stats["vector_points"] = collStats.PointCount
		stats["vector_dim"] = collStats.VectorDim
	}

	if postings, err := s.lexical.PostingCount(ctx); err != nil {
		logger.Warnw("Lexical index stats unavailable", "error", err)
	} else {
		stats["lexical_postings"] = postings
	}

	return stats, nil
}

package store

import (
	"context"

	"gorm.io/gorm"

	apierrors "github.com/ai-nk/rag-service/pkg/errors"

	"github.com/ai-nk/rag-service/internal/model"
)

type chunks struct {
	db *gorm.DB
}

func newChunks(db *gorm.DB) *chunks {
	return &chunks{db}
}

// ReplaceForDocument deletes the document's prior chunk set and inserts the
// new one in a single transaction, so a retried indexing run never
// duplicates chunks.
func (c *chunks) ReplaceForDocument(ctx context.Context, documentID int64, chunkSet []*model.Chunk) error {
	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("document_id = ?", documentID).Delete(&model.Chunk{}).Error; err != nil {
			return err
		}
		if len(chunkSet) == 0 {
			return nil
		}
		return tx.Create(chunkSet).Error
	})
	if err != nil {
		return apierrors.ErrDatabase.WithCause(err)
	}
	return nil
}

func (c *chunks) GetByIDs(ctx context.Context, chunkIDs []string) ([]*model.Chunk, error) {
	if len(chunkIDs) == 0 {
		return nil, nil
	}
	var result []*model.Chunk
	if err := c.db.WithContext(ctx).Where("chunk_id IN ?", chunkIDs).Find(&result).Error; err != nil {
		return nil, apierrors.ErrDatabase.WithCause(err)
	}
	return result, nil
}

func (c *chunks) DeleteByDocument(ctx context.Context, documentID int64) error {
	if err := c.db.WithContext(ctx).Where("document_id = ?", documentID).Delete(&model.Chunk{}).Error; err != nil {
		return apierrors.ErrDatabase.WithCause(err)
	}
	return nil
}

func (c *chunks) CountByDocument(ctx context.Context, documentID int64) (int64, error) {
	var count int64
	if err := c.db.WithContext(ctx).Model(&model.Chunk{}).
		Where("document_id = ?", documentID).
		Count(&count).Error; err != nil {
		return 0, apierrors.ErrDatabase.WithCause(err)
	}
	return count, nil
}

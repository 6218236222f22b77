package store

import (
	"context"
	"errors"

	"gorm.io/gorm"

	apierrors "github.com/ai-nk/rag-service/pkg/errors"

	"github.com/ai-nk/rag-service/internal/model"
)

type documents struct {
	db *gorm.DB
}

func newDocuments(db *gorm.DB) *documents {
	return &documents{db}
}

func (d *documents) Create(ctx context.Context, doc *model.Document) error {
	if err := d.db.WithContext(ctx).Create(doc).Error; err != nil {
		return apierrors.ErrDatabase.WithCause(err)
	}
	return nil
}

func (d *documents) Get(ctx context.Context, id int64) (*model.Document, error) {
	var doc model.Document
	if err := d.db.WithContext(ctx).First(&doc, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierrors.ErrDocumentNotFound
		}
		return nil, apierrors.ErrDatabase.WithCause(err)
	}
	return &doc, nil
}

func (d *documents) UpdateStatus(ctx context.Context, id int64, status string) error {
	result := d.db.WithContext(ctx).Model(&model.Document{}).
		Where("id = ?", id).
		Update("processing_status", status)
	if result.Error != nil {
		return apierrors.ErrDatabase.WithCause(result.Error)
	}
	if result.RowsAffected == 0 {
		return apierrors.ErrDocumentNotFound
	}
	return nil
}

// SetIndexed marks a document completed and records its chunk and token
// counts.
func (d *documents) SetIndexed(ctx context.Context, id int64, chunkCount, tokenCount int) error {
	result := d.db.WithContext(ctx).Model(&model.Document{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"processing_status": model.DocStatusCompleted,
			"chunk_count":       chunkCount,
			"token_count":       tokenCount,
		})
	if result.Error != nil {
		return apierrors.ErrDatabase.WithCause(result.Error)
	}
	if result.RowsAffected == 0 {
		return apierrors.ErrDocumentNotFound
	}
	return nil
}

func (d *documents) Delete(ctx context.Context, id int64) error {
	if err := d.db.WithContext(ctx).Delete(&model.Document{}, id).Error; err != nil {
		return apierrors.ErrDatabase.WithCause(err)
	}
	return nil
}

// List pages through the registry inside a read-only transaction so the
// total count and the page come from the same snapshot.
func (d *documents) List(ctx context.Context, offset, limit int) (int64, []*model.Document, error) {
	var count int64
	var docs []*model.Document

	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.Document{}).Count(&count).Error; err != nil {
			return err
		}
		return tx.
			Order("id").
			Offset(offset).
			Limit(limit).
			Find(&docs).Error
	}, readOnly)
	if err != nil {
		return 0, nil, apierrors.ErrDatabase.WithCause(err)
	}
	return count, docs, nil
}

// CountByStatus tallies documents per processing status.
func (d *documents) CountByStatus(ctx context.Context) (map[string]int64, error) {
	type row struct {
		ProcessingStatus string
		N                int64
	}
	var rows []row
	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Model(&model.Document{}).
			Select("processing_status, count(*) as n").
			Group("processing_status").
			Find(&rows).Error
	}, readOnly)
	if err != nil {
		return nil, apierrors.ErrDatabase.WithCause(err)
	}

	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.ProcessingStatus] = r.N
	}
	return counts, nil
}

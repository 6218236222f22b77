package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"gorm.io/gorm"

	apierrors "github.com/ai-nk/rag-service/pkg/errors"

	"github.com/ai-nk/rag-service/internal/model"
)

// readOnly scopes listing and status queries to a read-only transaction so
// they observe a consistent snapshot and can never contend with writers.
var readOnly = &sql.TxOptions{ReadOnly: true}

type tasks struct {
	db *gorm.DB
}

func newTasks(db *gorm.DB) *tasks {
	return &tasks{db}
}

func (t *tasks) Create(ctx context.Context, task *model.IndexingTask) error {
	if err := t.db.WithContext(ctx).Create(task).Error; err != nil {
		return apierrors.ErrDatabase.WithCause(err)
	}
	return nil
}

func (t *tasks) Update(ctx context.Context, task *model.IndexingTask) error {
	if err := t.db.WithContext(ctx).Save(task).Error; err != nil {
		return apierrors.ErrDatabase.WithCause(err)
	}
	return nil
}

func (t *tasks) Get(ctx context.Context, id string) (*model.IndexingTask, error) {
	var task model.IndexingTask
	if err := t.db.WithContext(ctx).Where("id = ?", id).First(&task).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierrors.ErrNotFound.WithMessage("indexing task not found")
		}
		return nil, apierrors.ErrDatabase.WithCause(err)
	}
	return &task, nil
}

func (t *tasks) ListByStatus(ctx context.Context, statuses ...string) ([]*model.IndexingTask, error) {
	var result []*model.IndexingTask
	err := t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.
			Where("status IN ?", statuses).
			Order("priority DESC, created_at").
			Find(&result).Error
	}, readOnly)
	if err != nil {
		return nil, apierrors.ErrDatabase.WithCause(err)
	}
	return result, nil
}

// ListStuck returns tasks stranded in the indexing status since before the
// cutoff, typically because a worker died mid-task.
func (t *tasks) ListStuck(ctx context.Context, olderThan time.Duration) ([]*model.IndexingTask, error) {
	cutoff := time.Now().Add(-olderThan)
	var result []*model.IndexingTask
	err := t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.
			Where("status = ? AND last_attempt IS NOT NULL AND last_attempt < ?",
				model.TaskStatusIndexing, cutoff).
			Find(&result).Error
	}, readOnly)
	if err != nil {
		return nil, apierrors.ErrDatabase.WithCause(err)
	}
	return result, nil
}

func (t *tasks) CountByStatus(ctx context.Context) (map[string]int64, error) {
	type row struct {
		Status string
		N      int64
	}
	var rows []row
	err := t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Model(&model.IndexingTask{}).
			Select("status, count(*) as n").
			Group("status").
			Find(&rows).Error
	}, readOnly)
	if err != nil {
		return nil, apierrors.ErrDatabase.WithCause(err)
	}

	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.Status] = r.N
	}
	return counts, nil
}

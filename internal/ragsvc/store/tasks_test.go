package store

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ai-nk/rag-service/internal/model"
)

func seedTask(t *testing.T, ts *tasks, id, status string, priority int) {
	t.Helper()
	task := &model.IndexingTask{
		ID:       id,
		Content:  "текст",
		Status:   status,
		Priority: priority,
	}
	if status == model.TaskStatusIndexing {
		stale := time.Now().Add(-time.Hour)
		task.LastAttempt = &stale
	}
	require.NoError(t, ts.Create(context.Background(), task))
}

// Listing and counting run inside read-only transactions; they must see
// committed rows and stay ordered by priority then age.
func TestTaskStatusReads(t *testing.T) {
	db := newTestDB(t)
	ts := newTasks(db)
	ctx := context.Background()

	seedTask(t, ts, strings.Repeat("A", 26), model.TaskStatusPending, 0)
	seedTask(t, ts, strings.Repeat("B", 26), model.TaskStatusPending, 5)
	seedTask(t, ts, strings.Repeat("C", 26), model.TaskStatusIndexing, 0)
	seedTask(t, ts, strings.Repeat("D", 26), model.TaskStatusCompleted, 0)

	pending, err := ts.ListByStatus(ctx, model.TaskStatusPending)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, strings.Repeat("B", 26), pending[0].ID)

	stuck, err := ts.ListStuck(ctx, 10*time.Minute)
	require.NoError(t, err)
	require.Len(t, stuck, 1)
	assert.Equal(t, strings.Repeat("C", 26), stuck[0].ID)

	counts, err := ts.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), counts[model.TaskStatusPending])
	assert.Equal(t, int64(1), counts[model.TaskStatusIndexing])
	assert.Equal(t, int64(1), counts[model.TaskStatusCompleted])
}

func TestDocumentListAndCounts(t *testing.T) {
	db := newTestDB(t)
	docs := newDocuments(db)
	ctx := context.Background()

	for i, status := range []string{
		model.DocStatusCompleted, model.DocStatusCompleted, model.DocStatusFailed,
	} {
		require.NoError(t, docs.Create(ctx, &model.Document{
			Filename:         "doc-" + string(rune('a'+i)) + ".pdf",
			ProcessingStatus: status,
		}))
	}

	total, page, err := docs.List(ctx, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, page, 1)
	assert.Equal(t, "doc-b.pdf", page[0].Filename)

	counts, err := docs.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), counts[model.DocStatusCompleted])
	assert.Equal(t, int64(1), counts[model.DocStatusFailed])
}

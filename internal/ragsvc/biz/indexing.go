package biz

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/kart-io/logger"

	apierrors "github.com/ai-nk/rag-service/pkg/errors"
	"github.com/ai-nk/rag-service/pkg/id"
	"github.com/ai-nk/rag-service/pkg/infra/pool"
	"github.com/ai-nk/rag-service/pkg/llm"
	indexingopts "github.com/ai-nk/rag-service/pkg/options/indexing"

	"github.com/ai-nk/rag-service/internal/model"
	"github.com/ai-nk/rag-service/internal/ragsvc/metrics"
	"github.com/ai-nk/rag-service/internal/ragsvc/store"
)

// IndexingStatus is the control-surface snapshot of the indexing service.
type IndexingStatus struct {
	Running     bool             `json:"running"`
	QueueSize   int              `json:"queue_size"`
	ActiveTasks int              `json:"active_tasks"`
	TaskCounts  map[string]int64 `json:"task_counts"`
	Pool        pool.Stats       `json:"pool"`
}

// ResilientIndexingService drives background document indexing: a fixed
// worker pool consumes a priority queue of persisted tasks, retries
// transient failures with exponential backoff and recovers tasks stranded
// by a crash.
type ResilientIndexingService struct {
	opts     *indexingopts.Options
	chunker  *Chunker
	embedder llm.EmbeddingProvider
	vector   store.VectorIndex
	lexical  store.LexicalIndex
	chunks   store.ChunkStore
	docs     store.DocumentStore
	tasks    store.TaskStore
	metrics  *metrics.Metrics

	queue   *taskQueue
	pool    *pool.Pool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
}

// NewResilientIndexingService creates the service. Call Start to begin
// processing.
func NewResilientIndexingService(
	opts *indexingopts.Options,
	chunker *Chunker,
	embedder llm.EmbeddingProvider,
	vector store.VectorIndex,
	lexical store.LexicalIndex,
	chunks store.ChunkStore,
	docs store.DocumentStore,
	tasks store.TaskStore,
) *ResilientIndexingService {
	if opts == nil {
		opts = indexingopts.NewOptions()
	}
	return &ResilientIndexingService{
		opts:     opts,
		chunker:  chunker,
		embedder: embedder,
		vector:   vector,
		lexical:  lexical,
		chunks:   chunks,
		docs:     docs,
		tasks:    tasks,
		metrics:  metrics.Get(),
		queue:    newTaskQueue(),
	}
}

// Start recovers persisted unfinished tasks, then launches the worker pool,
// the dispatcher and the stuck-task monitor. Idempotent while running.
func (s *ResilientIndexingService) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}

	workerPool, err := pool.NewPool("indexing", pool.IndexingPoolConfig(s.opts.Workers))
	if err != nil {
		return err
	}
	s.pool = workerPool

	runCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	if err := s.recover(ctx); err != nil {
		s.pool.Release()
		cancel()
		return err
	}

	s.wg.Add(2)
	go s.dispatch(runCtx)
	go s.monitor(runCtx)

	s.running = true
	logger.Infow("indexing service started",
		"workers", s.opts.Workers,
		"queued", s.queue.size(),
	)
	return nil
}

// Stop drains the service: pending queue entries stay persisted and are
// recovered on the next Start.
func (s *ResilientIndexingService) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}

	s.cancel()
	s.wg.Wait()
	if err := s.pool.ReleaseTimeout(30 * time.Second); err != nil {
		logger.Warnw("indexing pool release timed out", "error", err)
	}
	s.running = false
	logger.Infow("indexing service stopped")
}

// Running reports whether the service is started.
func (s *ResilientIndexingService) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// recover reloads unfinished tasks after a restart. Tasks stranded in the
// indexing status were interrupted mid-flight and are requeued as retrying
// without charging a retry attempt.
func (s *ResilientIndexingService) recover(ctx context.Context) error {
	unfinished, err := s.tasks.ListByStatus(ctx,
		model.TaskStatusPending, model.TaskStatusRetrying, model.TaskStatusIndexing)
	if err != nil {
		return err
	}

	for _, task := range unfinished {
		if task.Status == model.TaskStatusIndexing {
			task.Status = model.TaskStatusRetrying
			if err := s.tasks.Update(ctx, task); err != nil {
				return err
			}
			logger.Warnw("recovered interrupted indexing task",
				"task_id", task.ID,
				"document_id", task.DocumentID,
			)
		}
		s.queue.push(task)
	}
	s.metrics.SetQueueDepth(s.queue.size())
	return nil
}

// AddTask persists and enqueues a new indexing task, returning its ID.
func (s *ResilientIndexingService) AddTask(ctx context.Context, documentID int64, filename, content, category string, priority int) (string, error) {
	// The cap applies to new submissions only. Recovery and retry requeues
	// bypass it so persisted work is never dropped.
	if s.opts.QueueSize > 0 && s.queue.size() >= s.opts.QueueSize {
		return "", apierrors.ErrTaskQueueFull
	}
	task := &model.IndexingTask{
		ID:         id.NewULID(),
		DocumentID: documentID,
		Filename:   filename,
		Content:    content,
		Category:   category,
		Priority:   priority,
		MaxRetries: s.opts.MaxRetries,
		Status:     model.TaskStatusPending,
		CreatedAt:  time.Now(),
	}
	if err := s.tasks.Create(ctx, task); err != nil {
		return "", err
	}

	s.queue.push(task)
	s.metrics.SetQueueDepth(s.queue.size())
	logger.Infow("indexing task queued",
		"task_id", task.ID,
		"document_id", documentID,
		"priority", priority,
	)
	return task.ID, nil
}

// Status reports queue depth, in-flight work and persisted task counts.
func (s *ResilientIndexingService) Status(ctx context.Context) (*IndexingStatus, error) {
	counts, err := s.tasks.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}

	status := &IndexingStatus{
		Running:    s.Running(),
		QueueSize:  s.queue.size(),
		TaskCounts: counts,
	}
	s.mu.Lock()
	if s.pool != nil {
		status.ActiveTasks = s.pool.Running()
		status.Pool = s.pool.Stats()
	}
	s.mu.Unlock()
	return status, nil
}

// RetryFailed requeues permanently failed tasks with a fresh retry budget
// and returns how many were requeued.
func (s *ResilientIndexingService) RetryFailed(ctx context.Context, maxRetries int) (int, error) {
	if maxRetries <= 0 {
		maxRetries = s.opts.MaxRetries
	}

	failed, err := s.tasks.ListByStatus(ctx, model.TaskStatusFailed)
	if err != nil {
		return 0, err
	}

	requeued := 0
	for _, task := range failed {
		task.Status = model.TaskStatusPending
		task.RetryCount = 0
		task.MaxRetries = maxRetries
		task.Error = ""
		if err := s.tasks.Update(ctx, task); err != nil {
			return requeued, err
		}
		s.queue.push(task)
		requeued++
	}
	s.metrics.SetQueueDepth(s.queue.size())
	logger.Infow("failed tasks requeued", "count", requeued)
	return requeued, nil
}

// Pending lists tasks waiting for a worker.
func (s *ResilientIndexingService) Pending(ctx context.Context) ([]*model.IndexingTask, error) {
	return s.tasks.ListByStatus(ctx, model.TaskStatusPending, model.TaskStatusRetrying)
}

// Failed lists permanently failed tasks.
func (s *ResilientIndexingService) Failed(ctx context.Context) ([]*model.IndexingTask, error) {
	return s.tasks.ListByStatus(ctx, model.TaskStatusFailed)
}

// dispatch feeds queued tasks to the worker pool. Submit blocks when all
// workers are busy, which is the intended backpressure.
func (s *ResilientIndexingService) dispatch(ctx context.Context) {
	defer s.wg.Done()

	for {
		task := s.queue.pop()
		if task == nil {
			select {
			case <-ctx.Done():
				return
			case <-s.queue.notify:
				continue
			}
		}

		s.metrics.SetQueueDepth(s.queue.size())
		t := task
		if err := s.pool.SubmitWithContext(ctx, func() {
			s.process(ctx, t)
		}); err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Errorw("task submission failed", "task_id", t.ID, "error", err)
			s.queue.push(t)
		}
	}
}

// monitor requeues tasks stuck in the indexing status, covering worker
// crashes that never reached a terminal state.
func (s *ResilientIndexingService) monitor(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.opts.MonitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweepStuck(ctx)
		}
	}
}

func (s *ResilientIndexingService) sweepStuck(ctx context.Context) {
	stuck, err := s.tasks.ListStuck(ctx, s.opts.StuckTimeout)
	if err != nil {
		logger.Errorw("stuck-task scan failed", "error", err)
		return
	}

	for _, task := range stuck {
		task.Status = model.TaskStatusRetrying
		if err := s.tasks.Update(ctx, task); err != nil {
			logger.Errorw("failed to requeue stuck task", "task_id", task.ID, "error", err)
			continue
		}
		s.queue.push(task)
		logger.Warnw("requeued stuck indexing task",
			"task_id", task.ID,
			"document_id", task.DocumentID,
			"last_attempt", task.LastAttempt,
		)
	}
	if len(stuck) > 0 {
		s.metrics.SetQueueDepth(s.queue.size())
	}
}

// process runs one task as a single logical unit of work: chunk, embed and
// write all three stores. Any failure retries the whole task; the
// replace-not-append writes make overlapping retries safe.
func (s *ResilientIndexingService) process(ctx context.Context, task *model.IndexingTask) {
	now := time.Now()
	task.Status = model.TaskStatusIndexing
	task.LastAttempt = &now
	if err := s.tasks.Update(ctx, task); err != nil {
		logger.Errorw("failed to mark task indexing", "task_id", task.ID, "error", err)
		s.scheduleRetry(ctx, task, err)
		return
	}

	if err := s.docs.UpdateStatus(ctx, task.DocumentID, model.DocStatusProcessing); err != nil {
		s.scheduleRetry(ctx, task, err)
		return
	}

	chunkCount, tokenCount, err := s.index(ctx, task)
	if err != nil {
		if apierrors.IsCode(err, apierrors.ErrDocumentEmpty.Code) {
			s.failPermanently(ctx, task, err)
			return
		}
		s.scheduleRetry(ctx, task, err)
		return
	}

	task.Status = model.TaskStatusCompleted
	task.Error = ""
	if err := s.tasks.Update(ctx, task); err != nil {
		logger.Errorw("failed to mark task completed", "task_id", task.ID, "error", err)
	}
	if err := s.docs.SetIndexed(ctx, task.DocumentID, chunkCount, tokenCount); err != nil {
		logger.Errorw("failed to mark document completed", "document_id", task.DocumentID, "error", err)
	}

	s.metrics.RecordIndexed(chunkCount)
	logger.Infow("document indexed",
		"task_id", task.ID,
		"document_id", task.DocumentID,
		"chunks", chunkCount,
		"tokens", tokenCount,
	)
}

// index performs the chunk/embed/write pipeline and returns the chunk and
// token counts.
func (s *ResilientIndexingService) index(ctx context.Context, task *model.IndexingTask) (int, int, error) {
	pages := PagesFromText(task.Content)
	doc := &model.Document{ID: task.DocumentID, Filename: task.Filename, Category: task.Category}

	chunkSet := s.chunker.Chunk(doc, task.Filename, pages)
	if len(chunkSet) == 0 {
		return 0, 0, apierrors.ErrDocumentEmpty
	}

	texts := make([]string, len(chunkSet))
	for i, c := range chunkSet {
		texts[i] = c.Content
	}
	embeddings, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		return 0, 0, apierrors.ErrEmbeddingUnavailable.WithCause(err)
	}
	if len(embeddings) != len(chunkSet) {
		return 0, 0, apierrors.ErrEmbeddingUnavailable.WithMessage("embedding count mismatch")
	}

	// Old postings reference the chunk rows, so drop them before the chunk
	// set is replaced.
	if err := s.lexical.Remove(ctx, task.DocumentID); err != nil {
		return 0, 0, err
	}
	if err := s.vector.DeleteByDocument(ctx, task.DocumentID); err != nil {
		return 0, 0, err
	}
	if err := s.chunks.ReplaceForDocument(ctx, task.DocumentID, chunkSet); err != nil {
		return 0, 0, err
	}

	for _, c := range chunkSet {
		if err := s.lexical.Index(ctx, c.ChunkID, c.Content); err != nil {
			return 0, 0, err
		}
	}

	points := make([]store.Point, len(chunkSet))
	for i, c := range chunkSet {
		points[i] = store.Point{
			ChunkID:    c.ChunkID,
			DocumentID: c.DocumentID,
			Embedding:  embeddings[i],
		}
	}
	if err := s.vector.Upsert(ctx, points); err != nil {
		return 0, 0, err
	}

	return len(chunkSet), s.chunker.TokenCount(pages), nil
}

// scheduleRetry applies the backoff policy: requeue with exponential delay
// and jitter while the retry budget lasts, otherwise fail permanently.
func (s *ResilientIndexingService) scheduleRetry(ctx context.Context, task *model.IndexingTask, cause error) {
	if task.RetryCount >= task.MaxRetries {
		s.failPermanently(ctx, task, cause)
		return
	}

	task.RetryCount++
	task.Status = model.TaskStatusRetrying
	task.Error = cause.Error()
	if err := s.tasks.Update(ctx, task); err != nil {
		logger.Errorw("failed to persist retrying task", "task_id", task.ID, "error", err)
	}

	delay := s.backoff(task.RetryCount)
	s.metrics.RecordIndexingRetry()
	logger.Warnw("indexing task scheduled for retry",
		"task_id", task.ID,
		"document_id", task.DocumentID,
		"retry", task.RetryCount,
		"max_retries", task.MaxRetries,
		"delay", delay,
		"error", cause,
	)

	time.AfterFunc(delay, func() {
		s.queue.push(task)
		s.metrics.SetQueueDepth(s.queue.size())
	})
}

func (s *ResilientIndexingService) failPermanently(ctx context.Context, task *model.IndexingTask, cause error) {
	task.Status = model.TaskStatusFailed
	task.Error = cause.Error()
	if err := s.tasks.Update(ctx, task); err != nil {
		logger.Errorw("failed to persist failed task", "task_id", task.ID, "error", err)
	}
	if err := s.docs.UpdateStatus(ctx, task.DocumentID, model.DocStatusFailed); err != nil {
		logger.Errorw("failed to mark document failed", "document_id", task.DocumentID, "error", err)
	}

	s.metrics.RecordIndexingFailure()
	logger.Errorw("indexing task failed permanently",
		"task_id", task.ID,
		"document_id", task.DocumentID,
		"retries", task.RetryCount,
		"error", cause,
	)
}

// backoff computes min(base * 2^retry, max) plus up to half the base delay
// of jitter.
func (s *ResilientIndexingService) backoff(retry int) time.Duration {
	delay := s.opts.BaseDelay << uint(retry)
	if delay > s.opts.MaxDelay || delay <= 0 {
		delay = s.opts.MaxDelay
	}
	jitter := time.Duration(rand.Int63n(int64(s.opts.BaseDelay)/2 + 1))
	return delay + jitter
}

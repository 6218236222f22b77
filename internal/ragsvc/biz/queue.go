package biz

import (
	"container/heap"
	"sync"

	"github.com/ai-nk/rag-service/internal/model"
)

// taskHeap orders tasks by priority descending, then creation time
// ascending.
type taskHeap []*model.IndexingTask

func (h taskHeap) Len() int { return len(h) }

func (h taskHeap) Less(i, j int) bool {
	if h[i].Priority != h[j].Priority {
		return h[i].Priority > h[j].Priority
	}
	return h[i].CreatedAt.Before(h[j].CreatedAt)
}

func (h taskHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *taskHeap) Push(x any) {
	*h = append(*h, x.(*model.IndexingTask))
}

func (h *taskHeap) Pop() any {
	old := *h
	n := len(old)
	task := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return task
}

// taskQueue is the single shared mutable structure of the indexing service.
// All mutation happens under the mutex; notify wakes the dispatcher. A task
// ID occupies at most one heap slot, so overlapping enqueue paths (recovery,
// retry timers, the stuck sweep) can never hand the same task to two workers.
type taskQueue struct {
	mu     sync.Mutex
	heap   taskHeap
	queued map[string]bool
	notify chan struct{}
}

func newTaskQueue() *taskQueue {
	q := &taskQueue{
		queued: make(map[string]bool),
		notify: make(chan struct{}, 1),
	}
	heap.Init(&q.heap)
	return q
}

func (q *taskQueue) push(task *model.IndexingTask) {
	q.mu.Lock()
	if q.queued[task.ID] {
		q.mu.Unlock()
		return
	}
	q.queued[task.ID] = true
	heap.Push(&q.heap, task)
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// pop removes the highest-priority task, or returns nil when the queue is
// empty.
func (q *taskQueue) pop() *model.IndexingTask {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.heap.Len() == 0 {
		return nil
	}
	task := heap.Pop(&q.heap).(*model.IndexingTask)
	delete(q.queued, task.ID)
	return task
}

func (q *taskQueue) size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.heap.Len()
}

package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ai-nk/rag-service/internal/ragsvc/biz"
	apierrors "github.com/ai-nk/rag-service/pkg/errors"
)

// IndexingHandler controls the background indexing service.
type IndexingHandler struct {
	service *biz.ResilientIndexingService
}

// NewIndexingHandler creates an indexing handler.
func NewIndexingHandler(service *biz.ResilientIndexingService) *IndexingHandler {
	return &IndexingHandler{service: service}
}

// Start launches the indexing workers. Starting an already running service
// is a no-op.
func (h *IndexingHandler) Start(c *gin.Context) {
	if err := h.service.Start(c.Request.Context()); err != nil {
		WriteError(c, err)
		return
	}
	WriteSuccess(c, gin.H{"running": true})
}

// Stop drains the workers and halts task dispatch.
func (h *IndexingHandler) Stop(c *gin.Context) {
	h.service.Stop()
	WriteSuccess(c, gin.H{"running": false})
}

// Status reports queue depth, worker pool state and task counts by status.
func (h *IndexingHandler) Status(c *gin.Context) {
	status, err := h.service.Status(c.Request.Context())
	if err != nil {
		WriteError(c, err)
		return
	}
	WriteSuccess(c, status)
}

// RetryFailed re-queues permanently failed tasks with a fresh retry budget.
// The optional max_retries query parameter overrides the configured budget.
func (h *IndexingHandler) RetryFailed(c *gin.Context) {
	maxRetries := 0
	if raw := c.Query("max_retries"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			WriteError(c, apierrors.ErrInvalidParam.WithMessage("max_retries must be a non-negative integer"))
			return
		}
		maxRetries = parsed
	}

	requeued, err := h.service.RetryFailed(c.Request.Context(), maxRetries)
	if err != nil {
		WriteError(c, err)
		return
	}
	WriteSuccess(c, gin.H{"requeued": requeued})
}

// Pending lists tasks waiting for a worker.
func (h *IndexingHandler) Pending(c *gin.Context) {
	tasks, err := h.service.Pending(c.Request.Context())
	if err != nil {
		WriteError(c, err)
		return
	}
	WriteSuccess(c, gin.H{"tasks": tasks, "count": len(tasks)})
}

// Failed lists tasks that exhausted their retries.
func (h *IndexingHandler) Failed(c *gin.Context) {
	tasks, err := h.service.Failed(c.Request.Context())
	if err != nil {
		WriteError(c, err)
		return
	}
	WriteSuccess(c, gin.H{"tasks": tasks, "count": len(tasks)})
}

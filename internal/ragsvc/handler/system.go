package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ai-nk/rag-service/internal/ragsvc/biz"
	"github.com/ai-nk/rag-service/internal/ragsvc/metrics"
)

// metricsNamespace prefixes every exported metric name.
const metricsNamespace = "ai_nk_rag"

// SystemHandler serves health, metrics and aggregate statistics.
type SystemHandler struct {
	documents *biz.DocumentService
	indexing  *biz.ResilientIndexingService
	cache     *biz.AnswerCache
	metrics   *metrics.Metrics
	version   string
}

// NewSystemHandler creates a system handler.
func NewSystemHandler(documents *biz.DocumentService, indexing *biz.ResilientIndexingService, cache *biz.AnswerCache, version string) *SystemHandler {
	return &SystemHandler{
		documents: documents,
		indexing:  indexing,
		cache:     cache,
		metrics:   metrics.Get(),
		version:   version,
	}
}

// Health reports liveness only. Backend state is visible through /stats, so
// an unavailable Milvus or LLM does not take the process out of rotation.
func (h *SystemHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"version": h.version,
	})
}

// Metrics exports business counters in Prometheus text format.
func (h *SystemHandler) Metrics(c *gin.Context) {
	c.Data(http.StatusOK, "text/plain; version=0.0.4; charset=utf-8", []byte(h.metrics.Export(metricsNamespace)))
}

// Stats aggregates registry, index, queue and cache statistics as JSON.
func (h *SystemHandler) Stats(c *gin.Context) {
	ctx := c.Request.Context()

	stats := map[string]any{
		"metrics": h.metrics.Stats(),
	}

	docStats, err := h.documents.Stats(ctx)
	if err != nil {
		WriteError(c, err)
		return
	}
	for k, v := range docStats {
		stats[k] = v
	}

	if status, err := h.indexing.Status(ctx); err == nil {
		stats["indexing"] = status
	}
	if h.cache != nil {
		stats["cache"] = h.cache.Stats(ctx)
	}

	WriteSuccess(c, stats)
}

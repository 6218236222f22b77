package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/ai-nk/rag-service/internal/ragsvc/biz"
)

// SearchHandler serves hybrid retrieval and structured context assembly.
type SearchHandler struct {
	engine  *biz.HybridSearchEngine
	builder *biz.ContextBuilder
	topK    int
}

// NewSearchHandler creates a search handler. topK is the default result
// count when a request does not specify one.
func NewSearchHandler(engine *biz.HybridSearchEngine, builder *biz.ContextBuilder, topK int) *SearchHandler {
	if topK <= 0 {
		topK = 5
	}
	return &SearchHandler{engine: engine, builder: builder, topK: topK}
}

// SearchRequest is the body of POST /search.
type SearchRequest struct {
	Query    string `json:"query" binding:"required"`
	TopK     int    `json:"k"`
	Document string `json:"document_filter"`
}

// Search runs hybrid dense+lexical retrieval and returns the fused hits.
func (h *SearchHandler) Search(c *gin.Context) {
	var req SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		WriteBindError(c, err)
		return
	}
	if req.TopK <= 0 {
		req.TopK = h.topK
	}

	hits, err := h.engine.Search(c.Request.Context(), req.Query, req.TopK, req.Document)
	if err != nil {
		WriteError(c, err)
		return
	}

	WriteSuccess(c, gin.H{
		"query": req.Query,
		"hits":  hits,
		"count": len(hits),
	})
}

// StructuredContextRequest is the body of POST /structured-context.
// FastMode skips per-candidate summarization for this request; left unset,
// the server default applies.
type StructuredContextRequest struct {
	Message  string `json:"message" binding:"required"`
	TopK     int    `json:"k"`
	Document string `json:"document_filter"`
	FastMode *bool  `json:"fast_mode"`
}

// StructuredContext retrieves candidates and assembles the deduplicated,
// optionally summarized context for the message.
func (h *SearchHandler) StructuredContext(c *gin.Context) {
	var req StructuredContextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		WriteBindError(c, err)
		return
	}
	if req.TopK <= 0 {
		req.TopK = h.topK
	}

	ctx := c.Request.Context()
	hits, err := h.engine.Search(ctx, req.Message, req.TopK, req.Document)
	if err != nil {
		WriteError(c, err)
		return
	}

	structured, err := h.builder.Build(ctx, hits, req.Message, req.FastMode)
	if err != nil {
		WriteError(c, err)
		return
	}

	WriteSuccess(c, structured)
}

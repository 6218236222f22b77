// Package router registers the RAG service routes.
package router

import (
	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/ai-nk/rag-service/internal/ragsvc/handler"
)

// Handlers bundles the handlers the router wires up.
type Handlers struct {
	Search       *handler.SearchHandler
	Consultation *handler.ConsultationHandler
	Indexing     *handler.IndexingHandler
	Documents    *handler.DocumentHandler
	System       *handler.SystemHandler
}

// Register attaches all routes to the engine.
func Register(engine *gin.Engine, h *Handlers) {
	engine.GET("/health", h.System.Health)
	engine.GET("/metrics", h.System.Metrics)
	engine.GET("/stats", h.System.Stats)

	engine.POST("/search", h.Search.Search)
	engine.POST("/structured-context", h.Search.StructuredContext)

	consultation := engine.Group("/consultation")
	{
		consultation.POST("/chat", h.Consultation.Chat)
	}

	indexing := engine.Group("/indexing")
	{
		indexing.POST("/start", h.Indexing.Start)
		indexing.POST("/stop", h.Indexing.Stop)
		indexing.GET("/status", h.Indexing.Status)
		indexing.POST("/retry-failed", h.Indexing.RetryFailed)
		indexing.GET("/pending", h.Indexing.Pending)
		indexing.GET("/failed", h.Indexing.Failed)
	}

	documents := engine.Group("/documents")
	{
		documents.POST("", h.Documents.Create)
		documents.GET("", h.Documents.List)
		documents.GET("/:id", h.Documents.Get)
		documents.DELETE("/:id", h.Documents.Delete)
	}

	logger.Info("HTTP routes registered")
}

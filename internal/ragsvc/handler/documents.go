package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ai-nk/rag-service/internal/ragsvc/biz"
	apierrors "github.com/ai-nk/rag-service/pkg/errors"
)

// DocumentHandler manages the document registry endpoints.
type DocumentHandler struct {
	service *biz.DocumentService
}

// NewDocumentHandler creates a document handler.
func NewDocumentHandler(service *biz.DocumentService) *DocumentHandler {
	return &DocumentHandler{service: service}
}

// CreateDocumentRequest is the body of POST /documents. Content is the
// pre-extracted document text; pages are separated by form feeds.
type CreateDocumentRequest struct {
	Filename string `json:"filename" binding:"required"`
	Content  string `json:"content" binding:"required"`
	Category string `json:"category"`
	Priority int    `json:"priority"`
}

// Create registers the document and queues it for background indexing.
func (h *DocumentHandler) Create(c *gin.Context) {
	var req CreateDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		WriteBindError(c, err)
		return
	}

	doc, taskID, err := h.service.Register(c.Request.Context(), req.Filename, req.Content, req.Category, req.Priority)
	if err != nil {
		WriteError(c, err)
		return
	}

	WriteSuccess(c, gin.H{
		"document_id": doc.ID,
		"task_id":     taskID,
		"status":      doc.ProcessingStatus,
	})
}

// Get returns one document by ID.
func (h *DocumentHandler) Get(c *gin.Context) {
	id, err := parseDocumentID(c)
	if err != nil {
		WriteError(c, err)
		return
	}

	doc, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		WriteError(c, err)
		return
	}
	WriteSuccess(c, doc)
}

// List returns a page of documents.
func (h *DocumentHandler) List(c *gin.Context) {
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 || limit > 200 {
		limit = 20
	}

	total, docs, err := h.service.List(c.Request.Context(), offset, limit)
	if err != nil {
		WriteError(c, err)
		return
	}
	WriteSuccess(c, gin.H{
		"total":     total,
		"documents": docs,
	})
}

// Delete removes a document and all of its indexed content.
func (h *DocumentHandler) Delete(c *gin.Context) {
	id, err := parseDocumentID(c)
	if err != nil {
		WriteError(c, err)
		return
	}

	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		WriteError(c, err)
		return
	}
	WriteSuccess(c, gin.H{"document_id": id})
}

func parseDocumentID(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apierrors.ErrInvalidParam.WithMessage("document id must be a positive integer")
	}
	return id, nil
}

package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/ai-nk/rag-service/internal/model"
	"github.com/ai-nk/rag-service/internal/ragsvc/biz"
	apierrors "github.com/ai-nk/rag-service/pkg/errors"
	"github.com/ai-nk/rag-service/pkg/infra/server"
)

// apologyResponse is returned instead of an error body when answer
// generation fails, so conversational clients always get renderable text.
const apologyResponse = "Извините, произошла ошибка при формировании ответа. Пожалуйста, повторите запрос позднее."

// ConsultationHandler serves the conversational consultation endpoint.
type ConsultationHandler struct {
	service *biz.ConsultationService
}

// NewConsultationHandler creates a consultation handler.
func NewConsultationHandler(service *biz.ConsultationService) *ConsultationHandler {
	return &ConsultationHandler{service: service}
}

// ChatRequest is the body of POST /consultation/chat. UserID identifies the
// caller for logging; it does not scope retrieval.
type ChatRequest struct {
	Message string       `json:"message" binding:"required"`
	UserID  string       `json:"user_id"`
	History []model.Turn `json:"history"`
}

// Chat answers a consultation question grounded in the indexed documents.
func (h *ConsultationHandler) Chat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		WriteBindError(c, err)
		return
	}

	result, err := h.service.Answer(c.Request.Context(), req.Message, req.History)
	if err != nil {
		if apierrors.IsCode(err, apierrors.ErrGeneration.Code) {
			logger.Errorw("Answer generation failed, returning apology",
				"error", err,
				"request_id", server.GetRequestID(c),
				"user_id", req.UserID,
			)
			WriteSuccess(c, &model.ConsultationResult{
				Response:   apologyResponse,
				Sources:    []model.Source{},
				Confidence: 0,
			})
			return
		}
		WriteError(c, err)
		return
	}

	WriteSuccess(c, result)
}

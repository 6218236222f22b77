// Package handler provides the HTTP handlers of the RAG service.
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	apierrors "github.com/ai-nk/rag-service/pkg/errors"
	"github.com/ai-nk/rag-service/pkg/infra/server"
)

// Response is the envelope for every JSON reply.
type Response struct {
	Status  string `json:"status"`
	Code    int    `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// WriteSuccess replies with a success envelope.
func WriteSuccess(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Response{Status: "success", Data: data})
}

// WriteError maps the error to its registered errno and replies with an
// error envelope. Unregistered errors become ErrInternal without leaking
// their message to the client.
func WriteError(c *gin.Context, err error) {
	errno := apierrors.FromError(err)

	logger.Errorw("Request failed",
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
		"code", errno.Code,
		"error", err,
		"request_id", server.GetRequestID(c),
	)

	c.JSON(errno.HTTPStatus(), Response{
		Status:  "error",
		Code:    errno.Code,
		Message: errno.Msg,
	})
}

// WriteBindError replies with a 400 carrying the binding failure detail.
func WriteBindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, Response{
		Status:  "error",
		Code:    apierrors.ErrBind.Code,
		Message: err.Error(),
	})
}

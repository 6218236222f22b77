package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	apierrors "github.com/ai-nk/rag-service/pkg/errors"
	"github.com/ai-nk/rag-service/pkg/id"
)

// HeaderXRequestID is the request ID header name.
const HeaderXRequestID = "X-Request-ID"

// requestIDKey is the gin context key for the request ID.
const requestIDKey = "request_id"

// skipLogPaths lists paths excluded from access logging.
var skipLogPaths = map[string]bool{
	"/health":  true,
	"/metrics": true,
}

// RequestID propagates or assigns a unique request ID per request.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(HeaderXRequestID)
		if rid == "" {
			rid = id.NewUUID()
		}
		c.Set(requestIDKey, rid)
		c.Header(HeaderXRequestID, rid)
		c.Next()
	}
}

// GetRequestID returns the request ID assigned by the RequestID middleware.
func GetRequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

// Recovery recovers from handler panics, logs them and returns a JSON 500.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.Errorw("Handler panic recovered",
					"panic", r,
					"method", c.Request.Method,
					"path", c.Request.URL.Path,
					"request_id", GetRequestID(c),
				)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"code":    apierrors.ErrInternal.Code,
					"message": apierrors.ErrInternal.Msg,
				})
			}
		}()
		c.Next()
	}
}

// AccessLog logs each request with latency and status.
func AccessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if skipLogPaths[path] {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		logger.Infow("HTTP request",
			"method", c.Request.Method,
			"path", path,
			"status", c.Writer.Status(),
			"latency_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
			"request_id", GetRequestID(c),
		)
	}
}

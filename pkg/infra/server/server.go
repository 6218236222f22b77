// Package server provides a gin based HTTP server with graceful shutdown.
package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	apierrors "github.com/ai-nk/rag-service/pkg/errors"
	httpopts "github.com/ai-nk/rag-service/pkg/options/http"
)

// HTTPServer wraps http.Server around a gin engine.
type HTTPServer struct {
	opts   *httpopts.Options
	engine *gin.Engine
	server *http.Server
}

// New creates the HTTP server. Routes are registered on Engine() before Start.
func New(opts *httpopts.Options) *HTTPServer {
	if opts == nil {
		opts = httpopts.NewOptions()
	}

	gin.SetMode(opts.Mode)
	engine := gin.New()
	engine.Use(RequestID(), Recovery(), AccessLog())

	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"code":    apierrors.ErrNotFound.Code,
			"message": "route not found",
		})
	})

	return &HTTPServer{
		opts:   opts,
		engine: engine,
	}
}

// Engine returns the underlying gin.Engine for route registration.
func (s *HTTPServer) Engine() *gin.Engine {
	return s.engine
}

// Start begins serving and blocks until the context is cancelled, a SIGINT or
// SIGTERM arrives, or the listener fails.
func (s *HTTPServer) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         s.opts.Addr,
		Handler:      s.engine,
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
		IdleTimeout:  s.opts.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infow("HTTP server listening", "addr", s.opts.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logger.Infow("Shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		logger.Infow("Context cancelled, shutting down")
	}

	return s.Stop()
}

// Stop gracefully shuts the server down within the configured timeout.
func (s *HTTPServer) Stop() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		logger.Errorw("Graceful shutdown failed", "error", err)
		return err
	}
	logger.Infow("HTTP server stopped")
	return nil
}

// Package api exposes the digest pipeline over HTTP.
package api

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ryosukesatoh/feed-digest/internal/pipeline"
	"github.com/ryosukesatoh/feed-digest/internal/publisher"
)

const requestIDHeader = "X-Request-ID"

// Server serves the JSON API and the latest pushed digest.
type Server struct {
	orch            *pipeline.Orchestrator
	latest          *publisher.LatestPublisher
	modelConfigured bool
	logger          *slog.Logger
	engine          *gin.Engine
	server          *http.Server
}

// New builds the router. latest may be nil when push mode is off.
func New(addr string, orch *pipeline.Orchestrator, latest *publisher.LatestPublisher, modelConfigured bool, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		orch:            orch,
		latest:          latest,
		modelConfigured: modelConfigured,
		logger:          logger.With("component", "api"),
	}

	engine := gin.New()
	engine.Use(requestID(), accessLog(s.logger), recovery(s.logger))

	engine.GET("/", s.handleIndex)
	engine.GET("/health", s.handleHealth)
	engine.POST("/summarize", s.handleSummarize)
	engine.POST("/summarize_article", s.handleSummarizeArticle)
	engine.POST("/summarize_batch", s.handleSummarizeBatch)
	engine.POST("/debug_prompt", s.handleDebugPrompt)
	engine.GET("/digest/latest", s.handleLatest)

	s.engine = engine
	s.server = &http.Server{
		Addr:              addr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the HTTP handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start begins serving HTTP in the background. Call Shutdown to stop.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("api: failed to listen on %s: %w", s.server.Addr, err)
	}
	go func() {
		s.logger.Info("listening", "addr", ln.Addr().String())
		if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error("server stopped", "error", err)
		}
	}()
	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func accessLog(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
			"request_id", c.GetString("request_id"),
		)
	}
}

// recovery turns panics into a generic 500.
func recovery(logger *slog.Logger) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(io.Discard, func(c *gin.Context, recovered any) {
		logger.Error("panic in handler",
			"path", c.Request.URL.Path,
			"panic", fmt.Sprint(recovered),
			"request_id", c.GetString("request_id"),
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	})
}

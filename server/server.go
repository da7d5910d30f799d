package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/xhad/seek/internal/models"
	"github.com/xhad/seek/internal/types"
	"github.com/xhad/seek/pkg/jobs"
	"github.com/xhad/seek/pkg/logging"
	"github.com/xhad/seek/pkg/pipeline"
)

// Runner answers one query.
type Runner interface {
	Run(ctx context.Context, query string, observers ...pipeline.Observer) (*models.Result, error)
}

// JobService runs queries in the background.
type JobService interface {
	Submit(ctx context.Context, query string) (jobs.Job, error)
	Get(ctx context.Context, id string) (jobs.Job, error)
}

type Config struct {
	AllowedOrigins []string
	RequestTimeout time.Duration
	Logger         *zap.Logger
}

type Server struct {
	config   Config
	runner   Runner
	jobs     JobService
	logger   *zap.Logger
	engine   *gin.Engine
	upgrader websocket.Upgrader
}

type QueryRequest struct {
	Query string `json:"query" binding:"required"`
}

// New builds the HTTP handler. jobs may be nil, in which case the job
// endpoints are not registered.
func New(runner Runner, jobService JobService, config Config) *Server {
	if config.RequestTimeout == 0 {
		config.RequestTimeout = 2 * time.Minute
	}
	if len(config.AllowedOrigins) == 0 {
		config.AllowedOrigins = []string{"*"}
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}

	s := &Server{
		config: config,
		runner: runner,
		jobs:   jobService,
		logger: config.Logger,
		engine: gin.New(),
	}
	s.upgrader = s.newUpgrader()
	s.routes()
	return s
}

func (s *Server) routes() {
	corsConfig := cors.DefaultConfig()
	if len(s.config.AllowedOrigins) == 1 && s.config.AllowedOrigins[0] == "*" {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = s.config.AllowedOrigins
		corsConfig.AllowCredentials = true
	}

	s.engine.Use(gin.Recovery(), s.requestLogger(), cors.New(corsConfig))

	s.engine.POST("/", s.handleSearch)
	s.engine.POST("/search", s.handleSearch)
	if s.jobs != nil {
		s.engine.POST("/jobs", s.handleSubmitJob)
		s.engine.GET("/jobs/:id", s.handleGetJob)
	}
	s.engine.GET("/ws", s.handleWebSocket)

	s.engine.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	s.engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})
}

// Handler returns the root http.Handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// ListenAndServe serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting HTTP server", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// requestContext derives the context a pipeline run uses for request c from
// parent.
func (s *Server) requestContext(parent context.Context, c *gin.Context) (context.Context, context.CancelFunc) {
	log := s.logger.With(zap.String("request_id", requestID(c)))
	ctx := logging.WithLogger(parent, log)
	return context.WithTimeout(ctx, s.config.RequestTimeout)
}

func (s *Server) handleSearch(c *gin.Context) {
	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorEnvelope(fmt.Sprintf("invalid request: %v", err)))
		return
	}

	ctx, cancel := s.requestContext(c.Request.Context(), c)
	defer cancel()

	result, err := s.runner.Run(ctx, req.Query)
	if err != nil {
		c.JSON(statusFor(err), models.ErrorEnvelope(err.Error()))
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleSubmitJob(c *gin.Context) {
	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid request: %v", err)})
		return
	}

	log := s.logger.With(zap.String("request_id", requestID(c)))
	job, err := s.jobs.Submit(logging.WithLogger(c.Request.Context(), log), req.Query)
	if errors.Is(err, jobs.ErrBusy) {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":  err.Error(),
			"job_id": job.ID,
			"status": job.Status,
		})
		return
	}
	if err != nil {
		log.Error("Failed to submit job", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"job_id": job.ID,
		"status": job.Status,
	})
}

func (s *Server) handleGetJob(c *gin.Context) {
	job, err := s.jobs.Get(c.Request.Context(), c.Param("id"))
	if errors.Is(err, jobs.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, job)
}

// statusFor maps a pipeline error to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, types.ErrMalformedInput):
		return http.StatusBadRequest
	case errors.Is(err, types.ErrEmbedding), errors.Is(err, types.ErrGeneration):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

const requestIDKey = "request_id"

func requestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header("X-Request-ID", id)

		start := time.Now()
		c.Next()

		s.logger.Info("Request handled",
			zap.String("request_id", id),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}

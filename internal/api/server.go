package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/biomarker-recon-server/internal/catalog"
	"github.com/biomarker-recon-server/internal/domain"
	"github.com/biomarker-recon-server/internal/middleware"
)

// Dependencies are the collaborators the server routes requests to. Analyses
// and Cache may be nil; the corresponding endpoints degrade gracefully.
type Dependencies struct {
	Reconciler domain.Reconciler
	Analyses   domain.AnalysisStore
	Overrides  *catalog.OverrideStore
	Loader     *catalog.Loader
	Holder     *catalog.Holder
	Cache      *ResultCache
}

// Server represents the HTTP server
type Server struct {
	config *domain.Config
	log    *logrus.Logger
	deps   Dependencies
	router *gin.Engine
	server *http.Server
}

// NewServer creates a new HTTP server instance
func NewServer(cfg *domain.Config, logger *logrus.Logger, deps Dependencies) *Server {
	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())
	router.Use(requestIDMiddleware())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.AccessLogger(logger))
	if cfg.Server.RateLimit > 0 {
		router.Use(rateLimitMiddleware(cfg.Server.RateLimit, cfg.Server.RateBurst))
	}

	server := &Server{
		config: cfg,
		log:    logger,
		deps:   deps,
		router: router,
	}

	server.setupRoutes()
	return server
}

// Router exposes the gin engine, mainly for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start starts the HTTP server and blocks until the context is cancelled.
func (s *Server) Start(ctx context.Context) error {
	cfg := s.config.Server
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	s.log.WithField("addr", addr).Info("HTTP server started")

	select {
	case err := <-errCh:
		return fmt.Errorf("starting server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return s.server.Shutdown(shutdownCtx)
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	v1 := s.router.Group("/api/v1")
	{
		v1.POST("/reconcile", s.handleReconcile)
		v1.GET("/analysis/:id", s.handleGetAnalysis)
		v1.GET("/benchmarks", s.handleListBenchmarks)
		v1.PUT("/benchmarks/:name", s.handleUpsertBenchmark)
		v1.DELETE("/benchmarks/:name", s.handleDeleteBenchmark)
	}
}

// handleHealth handles health check requests
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"version":   "1.0.0",
	})
}

// ReconcileRequest is the body of POST /api/v1/reconcile.
type ReconcileRequest struct {
	Documents []domain.DocumentInput `json:"documents"`
}

// handleReconcile runs one reconciliation batch.
func (s *Server) handleReconcile(c *gin.Context) {
	var req ReconcileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, domain.NewEngineError(domain.ErrValidation,
			"malformed request body", err.Error(), requestID(c)))
		return
	}

	ctx := c.Request.Context()

	if s.deps.Cache != nil {
		if cached, ok := s.deps.Cache.Get(ctx, req.Documents); ok {
			c.Header("X-Cache", "HIT")
			c.JSON(http.StatusOK, cached)
			return
		}
	}

	result, err := s.deps.Reconciler.Reconcile(ctx, req.Documents)
	if err != nil {
		s.respondError(c, err)
		return
	}

	if s.deps.Analyses != nil {
		if err := s.deps.Analyses.SaveAnalysis(ctx, result); err != nil {
			s.log.WithFields(logrus.Fields{
				"run_id": result.RunID,
				"error":  err,
			}).Error("Failed to persist analysis")
		}
	}
	if s.deps.Cache != nil {
		s.deps.Cache.Set(ctx, req.Documents, result)
	}

	c.JSON(http.StatusOK, result)
}

// handleGetAnalysis retrieves a stored reconciliation result.
func (s *Server) handleGetAnalysis(c *gin.Context) {
	if s.deps.Analyses == nil {
		s.respondError(c, domain.NewEngineError(domain.ErrDatabaseError,
			"analysis persistence is not configured", "", requestID(c)))
		return
	}

	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		s.respondError(c, domain.NewEngineError(domain.ErrValidation,
			"analysis id must be a UUID", id, requestID(c)))
		return
	}

	result, err := s.deps.Analyses.GetAnalysis(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// handleListBenchmarks returns the active benchmark catalog, defaults merged
// with overrides.
func (s *Server) handleListBenchmarks(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"benchmarks": s.deps.Holder.Entries(),
	})
}

// handleUpsertBenchmark creates or replaces a benchmark override. The path
// name is authoritative; a diverging body name is rejected.
func (s *Server) handleUpsertBenchmark(c *gin.Context) {
	var entry domain.BenchmarkEntry
	if err := c.ShouldBindJSON(&entry); err != nil {
		s.respondError(c, domain.NewEngineError(domain.ErrValidation,
			"malformed benchmark entry", err.Error(), requestID(c)))
		return
	}

	name := c.Param("name")
	if entry.CanonicalName == "" {
		entry.CanonicalName = name
	}
	if entry.CanonicalName != name {
		s.respondError(c, domain.NewEngineError(domain.ErrValidation,
			"body canonical_name does not match path name", entry.CanonicalName, requestID(c)))
		return
	}
	if err := entry.Validate(); err != nil {
		s.respondError(c, domain.NewEngineError(domain.ErrValidation,
			"invalid benchmark entry", err.Error(), requestID(c)))
		return
	}

	ctx := c.Request.Context()
	if err := s.deps.Overrides.Upsert(ctx, &entry); err != nil {
		s.respondError(c, err)
		return
	}
	if err := s.reloadCatalog(ctx); err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, entry)
}

// handleDeleteBenchmark removes a benchmark override. The default entry, if
// one exists for the name, becomes active again.
func (s *Server) handleDeleteBenchmark(c *gin.Context) {
	ctx := c.Request.Context()
	if err := s.deps.Overrides.Delete(ctx, c.Param("name")); err != nil {
		s.respondError(c, err)
		return
	}
	if err := s.reloadCatalog(ctx); err != nil {
		s.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) reloadCatalog(ctx context.Context) error {
	snap, err := s.deps.Loader.Load(ctx)
	if err != nil {
		return fmt.Errorf("reloading benchmark catalog: %w", err)
	}
	s.deps.Holder.Swap(snap)
	return nil
}

// respondError maps domain errors onto HTTP statuses.
func (s *Server) respondError(c *gin.Context, err error) {
	if errors.Is(err, domain.ErrNotFound) {
		c.JSON(http.StatusNotFound, domain.NewEngineError(domain.ErrCodeNotFound,
			"resource not found", err.Error(), requestID(c)))
		return
	}

	var engineErr *domain.EngineError
	if errors.As(err, &engineErr) {
		if engineErr.RequestID == "" {
			engineErr.RequestID = requestID(c)
		}
		c.JSON(statusForCode(engineErr.Code), engineErr)
		return
	}

	s.log.WithFields(logrus.Fields{
		"request_id": requestID(c),
		"error":      err,
	}).Error("Unhandled error")
	c.JSON(http.StatusInternalServerError, domain.NewEngineError(
		domain.ErrInternalServer, "internal server error", err.Error(), requestID(c)))
}

func statusForCode(code string) int {
	switch code {
	case domain.ErrEmptyInputBatch, domain.ErrNoInputObservations, domain.ErrValidation:
		return http.StatusBadRequest
	case domain.ErrRegistryError, domain.ErrDatabaseError:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func requestID(c *gin.Context) string {
	return c.GetString("request_id")
}

// corsMiddleware adds CORS headers to responses
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, Authorization")
		c.Header("Access-Control-Expose-Headers", "Content-Length")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// requestIDMiddleware adds a unique request ID to each request
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.New().String()
		}
		c.Header("X-Request-ID", id)
		c.Set("request_id", id)
		c.Next()
	}
}

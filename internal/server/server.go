// Package server exposes the decision ledger over HTTP.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"

	"github.com/ppiankov/decision-ledger/internal/catalog"
	"github.com/ppiankov/decision-ledger/internal/decision"
	"github.com/ppiankov/decision-ledger/internal/governance"
	"github.com/ppiankov/decision-ledger/internal/llm"
	"github.com/ppiankov/decision-ledger/internal/metrics"
	"github.com/ppiankov/decision-ledger/internal/model"
	"github.com/ppiankov/decision-ledger/internal/qa"
	"github.com/ppiankov/decision-ledger/internal/worker"
)

// Version is reported by /health
var Version = "0.1.0"

// Deps are the services the API is built on. Explainer, Metrics and
// Limiter are optional.
type Deps struct {
	Catalog    catalog.Lookup
	Decisions  *decision.Service
	Governance *governance.Service
	QA         *qa.Runner
	Explainer  *llm.Explainer
	Metrics    *metrics.Collector
	Limiter    *worker.Limiter
}

// Server is the HTTP API
type Server struct {
	deps    Deps
	cfg     model.Config
	router  *gin.Engine
	handler http.Handler
	logger  *slog.Logger
}

// New builds the router and wraps it with CORS
func New(cfg model.Config, deps Deps) *Server {
	if !cfg.Server.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		deps:   deps,
		cfg:    cfg,
		router: gin.New(),
		logger: slog.Default().With("component", "server"),
	}

	s.router.Use(gin.Recovery(), s.requestLog(), s.requestMetrics())
	if deps.Limiter != nil && cfg.RateLimiting.Enabled {
		s.router.Use(s.rateLimit())
	}
	s.routes()

	s.handler = cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Content-Length", "Authorization"},
		ExposedHeaders:   []string{"Content-Length", "Content-Type"},
		AllowCredentials: true,
	}).Handler(s.router)

	return s
}

func (s *Server) routes() {
	r := s.router

	r.GET("/health", s.health)
	if s.cfg.Metrics.Enabled && s.deps.Metrics != nil {
		path := s.cfg.Metrics.Path
		if path == "" {
			path = "/metrics"
		}
		r.GET(path, gin.WrapH(s.deps.Metrics.Handler()))
	}

	api := r.Group("/api")
	{
		api.POST("/reset", s.reset)

		api.GET("/claims", s.listClaims)
		api.GET("/claims/:id", s.getClaim)

		api.GET("/catalogs/interpretation-sets", s.listInterpretationSets)
		api.GET("/catalogs/interpretation-sets/:id", s.getInterpretationSet)
		api.GET("/catalogs/assumption-sets", s.listAssumptionSets)
		api.GET("/catalogs/assumption-sets/:id", s.getAssumptionSet)

		api.GET("/decisions", s.listDecisions)
		api.GET("/decisions/:id", s.getDecision)
		api.POST("/decisions/run", s.runDecision)
		api.POST("/decisions/counterfactual", s.counterfactual)
		api.POST("/decisions/diff", s.diff)
		api.GET("/decisions/:id/receipt", s.receipt)
		api.POST("/decisions/:id/explain", s.explain)

		api.GET("/governance/proposals", s.listProposals)
		api.POST("/governance/proposals", s.createProposal)
		api.GET("/governance/proposals/:id", s.getProposal)
		api.PATCH("/governance/proposals/:id", s.updateProposal)

		api.GET("/qa/cohorts", s.listCohorts)
		api.GET("/qa/proposed-changes", s.listProposedChanges)
		api.GET("/qa/results", s.listStudies)
		api.GET("/qa/results/:cohort/:proposal", s.getStudy)
	}
}

// Handler returns the CORS-wrapped router
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("API listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.logger.Info("shutting down API")
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "version": Version})
}

type resetter interface {
	Reset()
}

// reset clears fixture caches; stored runs are append-only and survive
func (s *Server) reset(c *gin.Context) {
	if r, ok := s.deps.Catalog.(resetter); ok {
		r.Reset()
	}
	c.JSON(http.StatusOK, gin.H{"status": "reset", "message": "Fixture caches cleared"})
}

package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"bskb/internal/assemble"
	"bskb/internal/graph"
	"bskb/internal/logging"
	"bskb/internal/model"
	"bskb/internal/search"
)

// Searcher executes search requests.
type Searcher interface {
	Search(ctx context.Context, req model.SearchRequest) (*model.SearchResponse, error)
}

// Assembler builds context bundles.
type Assembler interface {
	Assemble(ctx context.Context, req model.ContextRequest) (*model.AssembledContext, error)
}

// Analyzer runs call-graph analytics.
type Analyzer interface {
	FindCircularDependencies(ctx context.Context, maxDepth, minCycleLen int) ([]model.Cycle, error)
	FindHotspots(ctx context.Context, topN, minCalls int) ([]model.Hotspot, error)
	FindDeadCode(ctx context.Context, includeExports bool) ([]model.DeadCodeEntry, error)
	CalculateModuleComplexity(ctx context.Context, module string) ([]model.ComplexityMetrics, error)
	AnalyticsSummary(ctx context.Context) (*graph.Summary, error)
}

var _ Searcher = (*search.Orchestrator)(nil)
var _ Assembler = (*assemble.Assembler)(nil)
var _ Analyzer = (*graph.Analyzer)(nil)

// Server represents the HTTP API server
type Server struct {
	router    *http.ServeMux
	server    *http.Server
	addr      string
	logger    *logging.Logger
	searcher  Searcher
	assembler Assembler
	analyzer  Analyzer
}

// NewServer creates a new HTTP server instance
func NewServer(addr string, searcher Searcher, assembler Assembler, analyzer Analyzer, logger *logging.Logger) *Server {
	s := &Server{
		addr:      addr,
		logger:    logger,
		searcher:  searcher,
		assembler: assembler,
		analyzer:  analyzer,
		router:    http.NewServeMux(),
	}

	s.registerRoutes()

	handler := s.applyMiddleware(s.router)
	s.server = &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// registerRoutes registers all API routes
func (s *Server) registerRoutes() {
	s.router.HandleFunc("/health", s.handleHealth)

	s.router.HandleFunc("/search", s.handleSearch)   // POST
	s.router.HandleFunc("/context", s.handleContext) // POST

	s.router.HandleFunc("/analytics/summary", s.handleAnalyticsSummary)
	s.router.HandleFunc("/analytics/cycles", s.handleCycles)
	s.router.HandleFunc("/analytics/hotspots", s.handleHotspots)
	s.router.HandleFunc("/analytics/deadcode", s.handleDeadCode)
	s.router.HandleFunc("/analytics/complexity", s.handleComplexity)
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("Starting HTTP server", map[string]interface{}{
		"addr": s.addr,
	})

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server", nil)

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	s.logger.Info("Server shut down successfully", nil)
	return nil
}

// ServeHTTP implements http.Handler for testing
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.server.Handler.ServeHTTP(w, r)
}

// applyMiddleware wraps the handler with middleware in the correct order
func (s *Server) applyMiddleware(handler http.Handler) http.Handler {
	// Apply middleware in reverse order (last one wraps first)
	handler = RecoveryMiddleware(s.logger)(handler)
	handler = LoggingMiddleware(s.logger)(handler)
	handler = RequestIDMiddleware()(handler)
	return handler
}

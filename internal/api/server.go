// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package api serves collection reports and run history over HTTP and lets
// clients trigger a collection run.
package api

import (
	"context"
	"io"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/pdiddy/persona-digest/internal/collection"
	"github.com/pdiddy/persona-digest/internal/history"
	"github.com/pdiddy/persona-digest/pkg/types"
)

// History is the read side of the run history.
type History interface {
	ListRuns(ctx context.Context, f history.Filter) ([]history.Run, error)
	GetRun(ctx context.Context, id string) (*history.Run, error)
	RunSections(ctx context.Context, runID string) ([]types.DocumentSection, error)
	LatestReport(ctx context.Context, collectionID int) (*types.CollectionReport, error)
}

// Runner runs one collection.
type Runner interface {
	RunCollection(ctx context.Context, c types.CollectionConfig, w io.Writer) (collection.RunRecord, error)
}

// Server is the HTTP API server.
type Server struct {
	router      chi.Router
	collections []types.CollectionConfig
	runner      Runner
	history     History
	log         *zap.Logger

	// runMu serializes collection runs; they share output files.
	runMu sync.Mutex
}

// NewServer creates and configures the HTTP server. hist may be nil when
// run history is disabled.
func NewServer(cols []types.CollectionConfig, runner Runner, hist History, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		collections: cols,
		runner:      runner,
		history:     hist,
		log:         log,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	r.Get("/health", s.handleHealth)

	r.Route("/api/collections", func(r chi.Router) {
		r.Get("/", s.handleListCollections)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/report", s.handleLatestReport)
			r.Get("/runs", s.handleListRuns)
			r.Post("/run", s.handleRun)
		})
	})

	r.Get("/api/runs/{runID}", s.handleGetRun)

	s.router = r
}

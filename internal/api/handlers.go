// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/pdiddy/persona-digest/internal/collection"
	"github.com/pdiddy/persona-digest/internal/history"
	"github.com/pdiddy/persona-digest/internal/report"
	"github.com/pdiddy/persona-digest/pkg/types"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListCollections(w http.ResponseWriter, r *http.Request) {
	cols := s.collections
	if cols == nil {
		cols = []types.CollectionConfig{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"collections": cols})
}

func (s *Server) handleLatestReport(w http.ResponseWriter, r *http.Request) {
	c, ok := s.collectionParam(w, r)
	if !ok {
		return
	}
	if s.history == nil {
		jsonError(w, "run history is disabled", http.StatusServiceUnavailable)
		return
	}

	rep, err := s.history.LatestReport(r.Context(), c.ID)
	if errors.Is(err, history.ErrNotFound) {
		jsonError(w, "no report recorded for collection "+strconv.Itoa(c.ID), http.StatusNotFound)
		return
	}
	if err != nil {
		s.log.Error("loading report", zap.Int("collection", c.ID), zap.Error(err))
		jsonError(w, "failed to load report", http.StatusInternalServerError)
		return
	}
	writeReport(w, http.StatusOK, rep)
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	c, ok := s.collectionParam(w, r)
	if !ok {
		return
	}
	if s.history == nil {
		jsonError(w, "run history is disabled", http.StatusServiceUnavailable)
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			jsonError(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	runs, err := s.history.ListRuns(r.Context(), history.Filter{CollectionID: &c.ID, Limit: limit})
	if err != nil {
		s.log.Error("listing runs", zap.Int("collection", c.ID), zap.Error(err))
		jsonError(w, "failed to list runs", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

// runDetail is one recorded run with the sections it produced.
type runDetail struct {
	Run      *history.Run            `json:"run"`
	Duration string                  `json:"duration"`
	Sections []types.DocumentSection `json:"sections"`
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		jsonError(w, "run history is disabled", http.StatusServiceUnavailable)
		return
	}
	id := chi.URLParam(r, "runID")

	run, err := s.history.GetRun(r.Context(), id)
	if errors.Is(err, history.ErrNotFound) {
		jsonError(w, "run not found: "+id, http.StatusNotFound)
		return
	}
	if err != nil {
		s.log.Error("loading run", zap.String("run", id), zap.Error(err))
		jsonError(w, "failed to load run", http.StatusInternalServerError)
		return
	}

	sections, err := s.history.RunSections(r.Context(), id)
	if err != nil {
		s.log.Error("loading run sections", zap.String("run", id), zap.Error(err))
		jsonError(w, "failed to load run", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, runDetail{Run: run, Duration: run.Duration().String(), Sections: sections})
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	c, ok := s.collectionParam(w, r)
	if !ok {
		return
	}

	s.runMu.Lock()
	rec, err := s.runner.RunCollection(r.Context(), c, io.Discard)
	s.runMu.Unlock()

	w.Header().Set("X-Run-ID", rec.ID)
	switch {
	case errors.Is(err, collection.ErrCollectionInput):
		jsonError(w, err.Error(), http.StatusUnprocessableEntity)
	case err != nil:
		jsonError(w, err.Error(), http.StatusInternalServerError)
	default:
		writeReport(w, http.StatusOK, rec.Report)
	}
}

// collectionParam resolves the {id} URL parameter, writing the error
// response itself when it cannot.
func (s *Server) collectionParam(w http.ResponseWriter, r *http.Request) (types.CollectionConfig, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.Atoi(raw)
	if err != nil {
		jsonError(w, "collection id must be an integer: "+raw, http.StatusBadRequest)
		return types.CollectionConfig{}, false
	}
	c, err := types.LookupCollection(s.collections, id)
	if err != nil {
		jsonError(w, err.Error(), http.StatusNotFound)
		return types.CollectionConfig{}, false
	}
	return c, true
}

func writeReport(w http.ResponseWriter, code int, rep *types.CollectionReport) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	report.Encode(w, rep, report.FormatJSON)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}

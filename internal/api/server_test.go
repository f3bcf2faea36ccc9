// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pdiddy/persona-digest/internal/collection"
	"github.com/pdiddy/persona-digest/internal/history"
	"github.com/pdiddy/persona-digest/pkg/types"
)

type fakeHistory struct {
	reports  map[int]*types.CollectionReport
	runs     []history.Run
	sections map[string][]types.DocumentSection
	filter   history.Filter
	err      error
}

func (f *fakeHistory) GetRun(_ context.Context, id string) (*history.Run, error) {
	if f.err != nil {
		return nil, f.err
	}
	for i := range f.runs {
		if f.runs[i].ID == id {
			return &f.runs[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", history.ErrNotFound, id)
}

func (f *fakeHistory) RunSections(_ context.Context, runID string) ([]types.DocumentSection, error) {
	if s, ok := f.sections[runID]; ok {
		return s, nil
	}
	return []types.DocumentSection{}, nil
}

func (f *fakeHistory) ListRuns(_ context.Context, filter history.Filter) ([]history.Run, error) {
	f.filter = filter
	return f.runs, f.err
}

func (f *fakeHistory) LatestReport(_ context.Context, id int) (*types.CollectionReport, error) {
	if f.err != nil {
		return nil, f.err
	}
	r, ok := f.reports[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", history.ErrNotFound, id)
	}
	return r, nil
}

type fakeRunner struct {
	err  error
	runs []int
}

func (f *fakeRunner) RunCollection(_ context.Context, c types.CollectionConfig, _ io.Writer) (collection.RunRecord, error) {
	f.runs = append(f.runs, c.ID)
	rec := collection.RunRecord{ID: "run-" + fmt.Sprint(c.ID), Collection: c, Err: f.err}
	if f.err == nil {
		rec.Report = sampleReport(c)
	}
	return rec, f.err
}

func sampleReport(c types.CollectionConfig) *types.CollectionReport {
	return &types.CollectionReport{
		Metadata: types.ReportMetadata{
			CollectionID:        c.ID,
			CollectionName:      c.Name,
			Persona:             c.Persona,
			JobToBeDone:         c.JobToBeDone,
			InputDocuments:      []string{"a.pdf"},
			ProcessingTimestamp: "2025-07-10T14:30:00Z",
		},
		ExtractedSections:  []types.DocumentSection{types.FallbackSection("a.pdf")},
		SubsectionAnalysis: []types.SubsectionAnalysis{},
	}
}

func newTestServer(runner *fakeRunner, hist History) *Server {
	return NewServer(types.DefaultCollections("/data"), runner, hist, zap.NewNop())
}

func do(t *testing.T, s *Server, method, path string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return rec, body
}

func TestHealth(t *testing.T) {
	rec, body := do(t, newTestServer(&fakeRunner{}, nil), http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

func TestListCollections(t *testing.T) {
	rec, body := do(t, newTestServer(&fakeRunner{}, nil), http.MethodGet, "/api/collections")
	assert.Equal(t, http.StatusOK, rec.Code)
	cols, ok := body["collections"].([]any)
	require.True(t, ok)
	require.Len(t, cols, 3)
	assert.Equal(t, "Travel Planning", cols[0].(map[string]any)["name"])
}

func TestLatestReport(t *testing.T) {
	cols := types.DefaultCollections("/data")
	hist := &fakeHistory{reports: map[int]*types.CollectionReport{1: sampleReport(cols[0])}}
	s := newTestServer(&fakeRunner{}, hist)

	tests := []struct {
		name string
		path string
		code int
	}{
		{name: "recorded", path: "/api/collections/1/report", code: http.StatusOK},
		{name: "nothing recorded", path: "/api/collections/2/report", code: http.StatusNotFound},
		{name: "unknown collection", path: "/api/collections/9/report", code: http.StatusNotFound},
		{name: "non-numeric id", path: "/api/collections/abc/report", code: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := do(t, s, http.MethodGet, tt.path)
			assert.Equal(t, tt.code, rec.Code)
			if tt.code == http.StatusOK {
				meta := body["metadata"].(map[string]any)
				assert.Equal(t, "Travel Planner", meta["persona"])
				assert.Contains(t, body, "extracted_sections")
			} else {
				assert.NotEmpty(t, body["error"])
			}
		})
	}
}

func TestLatestReport_StoreError(t *testing.T) {
	s := newTestServer(&fakeRunner{}, &fakeHistory{err: errors.New("disk I/O error")})
	rec, _ := do(t, s, http.MethodGet, "/api/collections/1/report")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHistoryDisabled(t *testing.T) {
	s := newTestServer(&fakeRunner{}, nil)
	for _, path := range []string{"/api/collections/1/report", "/api/collections/1/runs"} {
		rec, _ := do(t, s, http.MethodGet, path)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code, path)
	}
}

func TestListRuns(t *testing.T) {
	hist := &fakeHistory{runs: []history.Run{{ID: "r1", CollectionID: 1, Status: collection.StatusSucceeded}}}
	s := newTestServer(&fakeRunner{}, hist)

	rec, body := do(t, s, http.MethodGet, "/api/collections/1/runs?limit=5")
	assert.Equal(t, http.StatusOK, rec.Code)
	want := history.ForCollection(1)
	want.Limit = 5
	assert.Equal(t, want, hist.filter)
	runs := body["runs"].([]any)
	require.Len(t, runs, 1)
	assert.Equal(t, "r1", runs[0].(map[string]any)["id"])

	rec, _ = do(t, s, http.MethodGet, "/api/collections/1/runs?limit=zero")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetRun(t *testing.T) {
	started := time.Date(2025, 7, 10, 14, 30, 0, 0, time.UTC)
	hist := &fakeHistory{
		runs: []history.Run{{
			ID: "r1", CollectionID: 1, Status: collection.StatusSucceeded,
			StartedAt: started, FinishedAt: started.Add(1500 * time.Millisecond),
		}},
		sections: map[string][]types.DocumentSection{
			"r1": {{Document: "a.pdf", SectionTitle: "Intro", ImportanceRank: 1, PageNumber: 1}},
		},
	}
	s := newTestServer(&fakeRunner{}, hist)

	rec, body := do(t, s, http.MethodGet, "/api/runs/r1")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1.5s", body["duration"])
	assert.Equal(t, "r1", body["run"].(map[string]any)["id"])
	sections := body["sections"].([]any)
	require.Len(t, sections, 1)
	assert.Equal(t, "Intro", sections[0].(map[string]any)["section_title"])

	rec, _ = do(t, s, http.MethodGet, "/api/runs/missing")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = do(t, newTestServer(&fakeRunner{}, nil), http.MethodGet, "/api/runs/r1")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRun(t *testing.T) {
	runner := &fakeRunner{}
	s := newTestServer(runner, nil)

	rec, body := do(t, s, http.MethodPost, "/api/collections/3/run")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "run-3", rec.Header().Get("X-Run-ID"))
	assert.Equal(t, []int{3}, runner.runs)
	assert.Equal(t, "Recipe Collection", body["metadata"].(map[string]any)["collection_name"])
	assert.Equal(t, []any{}, body["subsection_analysis"])
}

func TestRun_Errors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		path string
		code int
	}{
		{name: "missing input", err: fmt.Errorf("processing: %w", collection.ErrCollectionInput), path: "/api/collections/1/run", code: http.StatusUnprocessableEntity},
		{name: "write failure", err: errors.New("disk full"), path: "/api/collections/1/run", code: http.StatusInternalServerError},
		{name: "unknown collection", path: "/api/collections/42/run", code: http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(&fakeRunner{err: tt.err}, nil)
			rec, body := do(t, s, http.MethodPost, tt.path)
			assert.Equal(t, tt.code, rec.Code)
			assert.NotEmpty(t, body["error"])
		})
	}
}

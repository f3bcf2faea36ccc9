// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package collection

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pdiddy/persona-digest/pkg/types"
)

// Run status values recorded in history.
const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// RunRecord describes one finished collection run.
type RunRecord struct {
	ID         string
	Collection types.CollectionConfig
	OutputPath string
	Report     *types.CollectionReport
	Summary    Summary
	Err        error
	StartedAt  time.Time
	FinishedAt time.Time
}

// Status returns StatusFailed when the run ended with an error.
func (r RunRecord) Status() string {
	if r.Err != nil {
		return StatusFailed
	}
	return StatusSucceeded
}

// Recorder persists finished runs.
type Recorder interface {
	RecordRun(ctx context.Context, rec RunRecord) error
}

// WriteFunc writes a report to path.
type WriteFunc func(path string, report *types.CollectionReport) error

// BatchResult holds the outcome of running several collections.
type BatchResult struct {
	Succeeded int
	Failed    int
}

// Total returns the number of collections run.
func (r BatchResult) Total() int {
	return r.Succeeded + r.Failed
}

// HasFailures reports whether any collection failed.
func (r BatchResult) HasFailures() bool {
	return r.Failed > 0
}

// AllFailed reports whether collections were run and none succeeded.
func (r BatchResult) AllFailed() bool {
	return r.Total() > 0 && r.Succeeded == 0
}

// Runner processes collections and writes their reports.
type Runner struct {
	Aggregator *Aggregator
	Write      WriteFunc
	Recorder   Recorder
	Logger     *zap.Logger
}

// RunCollection builds, writes, and records the report of one collection.
// The returned record carries the run error, if any.
func (r *Runner) RunCollection(ctx context.Context, c types.CollectionConfig, w io.Writer) (RunRecord, error) {
	log := r.logger().With(zap.Int("collection", c.ID), zap.String("name", c.Name))
	rec := RunRecord{
		ID:         uuid.NewString(),
		Collection: c,
		OutputPath: c.OutputFile,
		StartedAt:  r.Aggregator.now(),
	}

	fmt.Fprintf(w, "collection %s\n", label(c))
	report, summary, err := r.Aggregator.Process(ctx, c, w)
	if err == nil {
		rec.Report = report
		rec.Summary = summary
		if err = r.Write(c.OutputFile, report); err != nil {
			err = fmt.Errorf("writing report for collection %s: %w", label(c), err)
		}
	} else {
		err = fmt.Errorf("processing collection %s: %w", label(c), err)
	}
	rec.Err = err
	rec.FinishedAt = r.Aggregator.now()

	if err != nil {
		log.Error("collection failed", zap.Error(err))
		fmt.Fprintf(w, "failed:    collection %s (%v)\n", label(c), err)
	} else {
		log.Info("collection written",
			zap.String("output", c.OutputFile),
			zap.Int("documents", summary.Documents),
			zap.Int("failed", summary.Failed),
			zap.Int("sections", len(report.ExtractedSections)),
			zap.Int("excerpts", len(report.SubsectionAnalysis)))
		fmt.Fprintf(w, "written:   %s (%d documents, %d failed, %d cached)\n",
			c.OutputFile, summary.Documents, summary.Failed, summary.Cached)
	}

	if r.Recorder != nil {
		if rerr := r.Recorder.RecordRun(ctx, rec); rerr != nil {
			log.Warn("recording run failed", zap.Error(rerr))
		}
	}
	return rec, err
}

// RunAll runs each collection in order. A failed collection does not stop
// the ones after it.
func (r *Runner) RunAll(ctx context.Context, cols []types.CollectionConfig, w io.Writer) BatchResult {
	var result BatchResult
	for _, c := range cols {
		if ctx.Err() != nil {
			result.Failed++
			continue
		}
		if _, err := r.RunCollection(ctx, c, w); err != nil {
			result.Failed++
			continue
		}
		result.Succeeded++
	}
	fmt.Fprintf(w, "\nBatch summary: %d succeeded, %d failed (total: %d)\n",
		result.Succeeded, result.Failed, result.Total())
	return result
}

func (r *Runner) logger() *zap.Logger {
	if r.Logger == nil {
		return zap.NewNop()
	}
	return r.Logger
}

func label(c types.CollectionConfig) string {
	switch {
	case c.ID != 0 && c.Name != "":
		return fmt.Sprintf("%d (%s)", c.ID, c.Name)
	case c.ID != 0:
		return fmt.Sprintf("%d", c.ID)
	default:
		return c.InputDir
	}
}

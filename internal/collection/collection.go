// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package collection runs outline and excerpt extraction over every PDF of a
// collection and merges the per-document results into one bounded report.
// A document that fails contributes nothing but never fails the collection;
// a collection without readable input does.
package collection

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/persona-digest/internal/extract"
	"github.com/pdiddy/persona-digest/internal/pdfdoc"
	"github.com/pdiddy/persona-digest/pkg/types"
)

// ErrCollectionInput marks a collection whose input directory is missing,
// unreadable, or holds no PDF files.
var ErrCollectionInput = errors.New("collection input unavailable")

// Document is an open document the aggregator can extract from and close.
type Document interface {
	extract.Document
	io.Closer
}

// OpenFunc opens the document at path.
type OpenFunc func(path string) (Document, error)

// OpenPDF opens path with the PDF reader.
func OpenPDF(path string) (Document, error) {
	return pdfdoc.Open(path)
}

// Cache stores complete extraction results by document key.
type Cache interface {
	Get(key string) (types.DocumentExtraction, bool, error)
	Put(key string, e types.DocumentExtraction) error
}

// DocumentResult is the extraction outcome of one document. Errors holds
// every failure swallowed while extracting it.
type DocumentResult struct {
	Document string
	Sections []types.DocumentSection
	Excerpts []types.SubsectionAnalysis
	Errors   []error
	Cached   bool
}

// Failed reports whether any part of the extraction failed.
func (r DocumentResult) Failed() bool {
	return len(r.Errors) > 0
}

// Summary counts documents processed for one collection.
type Summary struct {
	Documents int
	Failed    int
	Cached    int
	Results   []DocumentResult
}

// Aggregator builds collection reports.
type Aggregator struct {
	Open   OpenFunc
	Cache  Cache
	Config types.ExtractionConfig
	Logger *zap.Logger
	Now    func() time.Time
}

// NewAggregator returns an aggregator reading PDFs from disk with the
// given bounds.
func NewAggregator(cfg types.ExtractionConfig, log *zap.Logger) *Aggregator {
	return &Aggregator{
		Open:   OpenPDF,
		Config: cfg.WithDefaults(),
		Logger: log,
		Now:    time.Now,
	}
}

// Discover lists the PDF files of dir in directory order. The extension
// match is case-insensitive.
func Discover(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: reading input directory %s: %w", ErrCollectionInput, dir, err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".pdf") {
			continue
		}
		files = append(files, entry.Name())
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no PDF files found in %s", ErrCollectionInput, dir)
	}
	return files, nil
}

// Process extracts every PDF of the collection and returns the merged
// report. Per-document status lines go to w.
func (a *Aggregator) Process(ctx context.Context, c types.CollectionConfig, w io.Writer) (*types.CollectionReport, Summary, error) {
	cfg := a.Config.WithDefaults()

	files, err := Discover(c.InputDir)
	if err != nil {
		return nil, Summary{}, err
	}

	results, err := a.extractAll(ctx, c.InputDir, files, cfg)
	if err != nil {
		return nil, Summary{}, err
	}

	summary := Summary{Documents: len(results), Results: results}
	for _, r := range results {
		switch {
		case r.Failed():
			summary.Failed++
			fmt.Fprintf(w, "failed:    %s (%v)\n", r.Document, errors.Join(r.Errors...))
		case r.Cached:
			summary.Cached++
			fmt.Fprintf(w, "cached:    %s (%d sections, %d excerpts)\n", r.Document, len(r.Sections), len(r.Excerpts))
		default:
			fmt.Fprintf(w, "processed: %s (%d sections, %d excerpts)\n", r.Document, len(r.Sections), len(r.Excerpts))
		}
	}

	sections, excerpts := Merge(results, cfg.TopK)
	report := &types.CollectionReport{
		Metadata: types.ReportMetadata{
			CollectionID:        c.ID,
			CollectionName:      c.Name,
			Persona:             c.Persona,
			JobToBeDone:         c.JobToBeDone,
			InputDocuments:      files,
			ProcessingTimestamp: a.now().Format(time.RFC3339),
		},
		ExtractedSections:  sections,
		SubsectionAnalysis: excerpts,
	}
	return report, summary, nil
}

func (a *Aggregator) now() time.Time {
	if a.Now == nil {
		return time.Now()
	}
	return a.Now()
}

// extractAll extracts files in order. With more than one worker, documents
// are extracted concurrently; results keep discovery order either way.
func (a *Aggregator) extractAll(ctx context.Context, dir string, files []string, cfg types.ExtractionConfig) ([]DocumentResult, error) {
	results := make([]DocumentResult, len(files))

	if cfg.Workers <= 1 {
		for i, name := range files {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			results[i] = a.extractDocument(dir, name, cfg)
		}
		return results, nil
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for i, name := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = a.extractDocument(dir, name, cfg)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (a *Aggregator) extractDocument(dir, name string, cfg types.ExtractionConfig) DocumentResult {
	log := a.logger().With(zap.String("document", name))
	path := filepath.Join(dir, name)
	res := DocumentResult{Document: name}

	var key string
	if a.Cache != nil {
		k, err := documentKey(path, cfg)
		if err != nil {
			log.Warn("cache key unavailable", zap.Error(err))
		} else {
			key = k
			cached, ok, err := a.Cache.Get(key)
			if err != nil {
				log.Warn("cache read failed", zap.Error(err))
			} else if ok {
				res.Sections = cached.Sections
				res.Excerpts = cached.Excerpts
				res.Cached = true
				return res
			}
		}
	}

	doc, err := a.Open(path)
	if err != nil {
		err = fmt.Errorf("%w: %w", extract.ErrDocumentRead, err)
		log.Error("document unreadable", zap.Error(err))
		res.Errors = append(res.Errors, err)
		return res
	}
	defer doc.Close()

	sections, err := extract.Sections(doc, log)
	if err != nil {
		log.Error("section extraction failed", zap.Error(err))
		res.Errors = append(res.Errors, err)
	}
	res.Sections = sections

	excerpts, err := extract.Excerpts(doc, cfg.PageWindow, cfg.MaxWords)
	if err != nil {
		log.Error("excerpt extraction failed", zap.Error(err))
		res.Errors = append(res.Errors, err)
	}
	res.Excerpts = excerpts

	if key != "" && !res.Failed() {
		if err := a.Cache.Put(key, types.DocumentExtraction{Sections: sections, Excerpts: excerpts}); err != nil {
			log.Warn("cache write failed", zap.Error(err))
		}
	}
	return res
}

func (a *Aggregator) logger() *zap.Logger {
	if a.Logger == nil {
		return zap.NewNop()
	}
	return a.Logger
}

// documentKey identifies a document version together with the bounds that
// shape its excerpts.
func documentKey(path string, cfg types.ExtractionConfig) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s|%d|%d|w%d|t%d", abs, info.Size(), info.ModTime().UnixNano(), cfg.PageWindow, cfg.MaxWords), nil
}

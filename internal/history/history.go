// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package history records collection runs in a SQLite database: one row
// per run with its outcome and report, plus the ranked sections the run
// produced.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/persona-digest/internal/collection"
	"github.com/pdiddy/persona-digest/pkg/types"
)

// DefaultLimit caps ListRuns when no limit is given.
const DefaultLimit = 20

// ErrNotFound is returned when no matching run exists.
var ErrNotFound = errors.New("run not found")

// Run is one recorded collection run.
type Run struct {
	ID              string    `db:"id" json:"id" yaml:"id"`
	CollectionID    int       `db:"collection_id" json:"collection_id" yaml:"collection_id"`
	CollectionName  string    `db:"collection_name" json:"collection_name,omitempty" yaml:"collection_name,omitempty"`
	Persona         string    `db:"persona" json:"persona" yaml:"persona"`
	JobToBeDone     string    `db:"job_to_be_done" json:"job_to_be_done" yaml:"job_to_be_done"`
	OutputPath      string    `db:"output_path" json:"output_path" yaml:"output_path"`
	Status          string    `db:"status" json:"status" yaml:"status"`
	Error           string    `db:"error" json:"error,omitempty" yaml:"error,omitempty"`
	Documents       int       `db:"documents" json:"documents" yaml:"documents"`
	FailedDocuments int       `db:"failed_documents" json:"failed_documents" yaml:"failed_documents"`
	CachedDocuments int       `db:"cached_documents" json:"cached_documents" yaml:"cached_documents"`
	StartedAt       time.Time `db:"started_at" json:"started_at" yaml:"started_at"`
	FinishedAt      time.Time `db:"finished_at" json:"finished_at" yaml:"finished_at"`
}

// Duration returns how long the run took.
func (r Run) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Filter narrows ListRuns. The zero Filter lists every collection.
type Filter struct {
	// CollectionID selects one collection when set. Ad hoc runs are
	// recorded under collection 0.
	CollectionID *int

	// Limit caps the number of runs returned. Zero uses DefaultLimit.
	Limit int
}

// ForCollection returns a Filter selecting the runs of one collection.
func ForCollection(id int) Filter {
	return Filter{CollectionID: &id}
}

// Store is the run history database.
type Store struct {
	db *sqlx.DB
}

var _ collection.Recorder = (*Store)(nil)

// Open opens or creates the history database at path and applies pending
// migrations.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}

	db, err := sqlx.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// RecordRun stores a finished run and its sections in one transaction.
func (s *Store) RecordRun(ctx context.Context, rec collection.RunRecord) error {
	var reportJSON string
	var sections []types.DocumentSection
	if rec.Report != nil {
		data, err := json.Marshal(rec.Report)
		if err != nil {
			return fmt.Errorf("marshaling report: %w", err)
		}
		reportJSON = string(data)
		sections = rec.Report.ExtractedSections
	}

	var errText string
	if rec.Err != nil {
		errText = rec.Err.Error()
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, collection_id, collection_name, persona, job_to_be_done,
			output_path, status, error, documents, failed_documents, cached_documents,
			started_at, finished_at, report)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Collection.ID, rec.Collection.Name, rec.Collection.Persona,
		rec.Collection.JobToBeDone, rec.OutputPath, rec.Status(), errText,
		rec.Summary.Documents, rec.Summary.Failed, rec.Summary.Cached,
		rec.StartedAt.UTC(), rec.FinishedAt.UTC(), reportJSON,
	)
	if err != nil {
		return fmt.Errorf("inserting run %s: %w", rec.ID, err)
	}

	for i, sec := range sections {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO run_sections (run_id, position, document, section_title, importance_rank, page_number)
			VALUES (?, ?, ?, ?, ?, ?)`,
			rec.ID, i, sec.Document, sec.SectionTitle, sec.ImportanceRank, sec.PageNumber,
		)
		if err != nil {
			return fmt.Errorf("inserting section %d of run %s: %w", i, rec.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing run %s: %w", rec.ID, err)
	}
	return nil
}

const runColumns = `id, collection_id, collection_name, persona, job_to_be_done,
	output_path, status, error, documents, failed_documents, cached_documents,
	started_at, finished_at`

// ListRuns returns runs newest first.
func (s *Store) ListRuns(ctx context.Context, f Filter) ([]Run, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	query := `SELECT ` + runColumns + ` FROM runs`
	var args []any
	if f.CollectionID != nil {
		query += ` WHERE collection_id = ?`
		args = append(args, *f.CollectionID)
	}
	query += ` ORDER BY started_at DESC, rowid DESC LIMIT ?`
	args = append(args, limit)

	runs := []Run{}
	if err := s.db.SelectContext(ctx, &runs, query, args...); err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	return runs, nil
}

// GetRun returns the run with the given id.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	var r Run
	err := s.db.GetContext(ctx, &r, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("getting run %s: %w", id, err)
	}
	return &r, nil
}

// RunSections returns the ranked sections of a run in report order.
func (s *Store) RunSections(ctx context.Context, runID string) ([]types.DocumentSection, error) {
	sections := []types.DocumentSection{}
	err := s.db.SelectContext(ctx, &sections, `
		SELECT document, section_title, importance_rank, page_number
		FROM run_sections WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("listing sections of run %s: %w", runID, err)
	}
	return sections, nil
}

// LatestReport returns the report of the newest successful run of a
// collection.
func (s *Store) LatestReport(ctx context.Context, collectionID int) (*types.CollectionReport, error) {
	var data string
	err := s.db.GetContext(ctx, &data, `
		SELECT report FROM runs
		WHERE collection_id = ? AND status = ?
		ORDER BY started_at DESC, rowid DESC LIMIT 1`,
		collectionID, collection.StatusSucceeded)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: no successful run for collection %d", ErrNotFound, collectionID)
	}
	if err != nil {
		return nil, fmt.Errorf("getting latest report: %w", err)
	}

	var r types.CollectionReport
	if err := json.Unmarshal([]byte(data), &r); err != nil {
		return nil, fmt.Errorf("parsing stored report: %w", err)
	}
	return &r, nil
}

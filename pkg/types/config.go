// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"
)

// Extraction bounds used when the configuration leaves them unset.
const (
	DefaultPageWindow = 3
	DefaultMaxWords   = 200
	DefaultTopK       = 5
)

// ErrUnknownCollection is returned when a collection id is not configured.
var ErrUnknownCollection = errors.New("unknown collection")

// CollectionConfig is the static description of one PDF collection: who the
// report is for and where its input and output live.
type CollectionConfig struct {
	// ID is the collection identifier used on the command line.
	ID int `json:"id" yaml:"id" mapstructure:"id"`

	// Name is a human-readable label (e.g. "Travel Planning").
	Name string `json:"name" yaml:"name" mapstructure:"name"`

	// Persona describes the intended reader of the report.
	Persona string `json:"persona" yaml:"persona" mapstructure:"persona"`

	// JobToBeDone describes the reader's task.
	JobToBeDone string `json:"job_to_be_done" yaml:"job_to_be_done" mapstructure:"job_to_be_done"`

	// InputDir is the directory scanned for PDF files.
	InputDir string `json:"input_dir" yaml:"input_dir" mapstructure:"input_dir"`

	// OutputFile is where the collection report is written.
	OutputFile string `json:"output_file" yaml:"output_file" mapstructure:"output_file"`
}

// DefaultCollections returns the built-in collection table rooted at baseDir.
func DefaultCollections(baseDir string) []CollectionConfig {
	out := func(id int) string {
		return filepath.Join(baseDir, "output", fmt.Sprintf("challenge1b_output_%d.json", id))
	}
	return []CollectionConfig{
		{
			ID:          1,
			Name:        "Travel Planning",
			Persona:     "Travel Planner",
			JobToBeDone: "Plan a 4-day trip for 10 college friends to South of France",
			InputDir:    filepath.Join(baseDir, "Collection1"),
			OutputFile:  out(1),
		},
		{
			ID:          2,
			Name:        "Adobe Acrobat Learning",
			Persona:     "HR Professional",
			JobToBeDone: "Create and manage fillable forms for onboarding and compliance",
			InputDir:    filepath.Join(baseDir, "Collection2"),
			OutputFile:  out(2),
		},
		{
			ID:          3,
			Name:        "Recipe Collection",
			Persona:     "Food Contractor",
			JobToBeDone: "Prepare vegetarian buffet-style dinner menu for corporate gathering",
			InputDir:    filepath.Join(baseDir, "Collection3"),
			OutputFile:  out(3),
		},
	}
}

// LookupCollection returns the collection with the given id.
func LookupCollection(collections []CollectionConfig, id int) (CollectionConfig, error) {
	for _, c := range collections {
		if c.ID == id {
			return c, nil
		}
	}
	return CollectionConfig{}, fmt.Errorf("%w: %d", ErrUnknownCollection, id)
}

// ExtractionConfig bounds the per-document and per-collection output.
type ExtractionConfig struct {
	// PageWindow is the number of leading pages scanned for excerpts (W).
	PageWindow int `json:"page_window" yaml:"page_window" mapstructure:"page_window"`

	// MaxWords is the word budget of one excerpt (T).
	MaxWords int `json:"max_words" yaml:"max_words" mapstructure:"max_words"`

	// TopK caps both merged lists of a collection report (K).
	TopK int `json:"top_k" yaml:"top_k" mapstructure:"top_k"`

	// Workers is the number of documents extracted concurrently. Values
	// below 2 process documents sequentially.
	Workers int `json:"workers" yaml:"workers" mapstructure:"workers"`
}

// WithDefaults returns a copy of c with unset bounds replaced by defaults.
func (c ExtractionConfig) WithDefaults() ExtractionConfig {
	if c.PageWindow <= 0 {
		c.PageWindow = DefaultPageWindow
	}
	if c.MaxWords <= 0 {
		c.MaxWords = DefaultMaxWords
	}
	if c.TopK <= 0 {
		c.TopK = DefaultTopK
	}
	if c.Workers <= 0 {
		c.Workers = 1
	}
	return c
}

// CacheConfig holds settings for the per-document extraction cache.
type CacheConfig struct {
	// Path is the bbolt database file. Empty disables caching.
	Path string `json:"path" yaml:"path" mapstructure:"path"`
}

// HistoryConfig holds settings for the run history database.
type HistoryConfig struct {
	// DBPath is the SQLite database file. Empty disables history.
	DBPath string `json:"db_path" yaml:"db_path" mapstructure:"db_path"`
}

// ServeConfig holds settings for the HTTP API.
type ServeConfig struct {
	Addr string `json:"addr" yaml:"addr" mapstructure:"addr"`
}

// WatchConfig holds settings for watch mode.
type WatchConfig struct {
	// Debounce is the quiet period after the last file event before a
	// collection is re-processed.
	Debounce time.Duration `json:"debounce" yaml:"debounce" mapstructure:"debounce"`
}

// PipelineConfig groups all settings read from the config file.
type PipelineConfig struct {
	Collections []CollectionConfig `json:"collections" yaml:"collections" mapstructure:"collections"`
	Extraction  ExtractionConfig   `json:"extraction" yaml:"extraction" mapstructure:"extraction"`
	Cache       CacheConfig        `json:"cache" yaml:"cache" mapstructure:"cache"`
	History     HistoryConfig      `json:"history" yaml:"history" mapstructure:"history"`
	Serve       ServeConfig        `json:"serve" yaml:"serve" mapstructure:"serve"`
	Watch       WatchConfig        `json:"watch" yaml:"watch" mapstructure:"watch"`
}

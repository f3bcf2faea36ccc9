// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"errors"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/persona-digest/internal/cache"
	"github.com/pdiddy/persona-digest/internal/collection"
	"github.com/pdiddy/persona-digest/internal/history"
	"github.com/pdiddy/persona-digest/internal/report"
	"github.com/pdiddy/persona-digest/pkg/types"
)

// app holds the components shared by the commands that process
// collections. cache and history are nil when disabled.
type app struct {
	runner  *collection.Runner
	cache   *cache.Store
	history *history.Store
}

// extractionConfig reads the extraction bounds from flags, environment and
// config file.
func extractionConfig() types.ExtractionConfig {
	return types.ExtractionConfig{
		PageWindow: viper.GetInt("extraction.page_window"),
		MaxWords:   viper.GetInt("extraction.max_words"),
		TopK:       viper.GetInt("extraction.top_k"),
		Workers:    viper.GetInt("extraction.workers"),
	}.WithDefaults()
}

// newApp opens the cache and history stores and wires the runner.
func newApp() (*app, error) {
	format, err := report.ParseFormat(viper.GetString("format"))
	if err != nil {
		return nil, err
	}

	a := &app{}
	agg := collection.NewAggregator(extractionConfig(), logger)

	if path := viper.GetString("cache.path"); path != "" {
		c, err := cache.Open(path)
		if err != nil {
			logger.Warn("extraction cache disabled", zap.String("path", path), zap.Error(err))
		} else {
			a.cache = c
			agg.Cache = c
		}
	}

	a.runner = &collection.Runner{
		Aggregator: agg,
		Write:      report.Writer{Format: format}.WriteFile,
		Logger:     logger,
	}

	if path := viper.GetString("history.db_path"); path != "" {
		h, err := history.Open(path)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.history = h
		a.runner.Recorder = h
	}
	return a, nil
}

// requireHistory returns the history store or an error when it is disabled.
func (a *app) requireHistory() (*history.Store, error) {
	if a.history == nil {
		return nil, errors.New("run history is disabled (--history-db is empty)")
	}
	return a.history, nil
}

// Close releases the stores.
func (a *app) Close() error {
	var errs []error
	if a.cache != nil {
		errs = append(errs, a.cache.Close())
	}
	if a.history != nil {
		errs = append(errs, a.history.Close())
	}
	return errors.Join(errs...)
}

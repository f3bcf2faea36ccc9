// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the persona-digest CLI. The root
// command processes configured PDF collections into persona-oriented JSON
// reports; subcommands cover ad hoc extraction, inspection, run history,
// watch mode and the HTTP API.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/persona-digest/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// logger is built in PersistentPreRunE from --verbose.
var logger = zap.NewNop()

// rootCmd is the base command for the persona-digest CLI.
var rootCmd = &cobra.Command{
	Use:   "persona-digest",
	Short: "Extract persona-oriented digests from PDF collections",
	Long: `persona-digest reads every PDF of a document collection, pulls the
outline (bookmarks) and the text of the leading pages, and writes one JSON
report per collection: ranked sections plus short excerpts, framed by the
collection's persona and job to be done.

Run one collection with --collection N or every configured collection with
--all. A collection that cannot be processed is reported and skipped; the
command fails only when no requested collection succeeds.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		verbose, _ := cmd.Flags().GetBool("verbose")
		l, err := newLogger(verbose)
		if err != nil {
			return fmt.Errorf("creating logger: %w", err)
		}
		logger = l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
	RunE: runRoot,
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	return cfg.Build()
}

func runRoot(cmd *cobra.Command, args []string) error {
	id, _ := cmd.Flags().GetInt("collection")
	all, _ := cmd.Flags().GetBool("all")
	if !cmd.Flags().Changed("collection") && !all {
		return cmd.Usage()
	}

	cols, err := selectCollections(id, all)
	if err != nil {
		return err
	}

	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	result := app.runner.RunAll(cmd.Context(), cols, cmd.OutOrStdout())
	if result.AllFailed() {
		return errors.New("no collection was processed successfully")
	}
	return nil
}

// selectCollections returns the collection with the given id, or every
// configured collection when all is set.
func selectCollections(id int, all bool) ([]types.CollectionConfig, error) {
	cols, err := configuredCollections()
	if err != nil {
		return nil, err
	}
	if all {
		return cols, nil
	}
	c, err := types.LookupCollection(cols, id)
	if err != nil {
		return nil, err
	}
	return []types.CollectionConfig{c}, nil
}

// configuredCollections returns the collections from the config file, or
// the built-in table rooted at base_dir.
func configuredCollections() ([]types.CollectionConfig, error) {
	if viper.IsSet("collections") {
		var cols []types.CollectionConfig
		if err := viper.UnmarshalKey("collections", &cols); err != nil {
			return nil, fmt.Errorf("parsing collections: %w", err)
		}
		return cols, nil
	}
	return types.DefaultCollections(viper.GetString("base_dir")), nil
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default: ./persona-digest.yaml or ~/.config/persona-digest/persona-digest.yaml)")
	pf.Bool("verbose", false, "enable debug logging")
	pf.String("base-dir", ".", "directory holding Collection1..3 and output/")
	pf.String("format", "json", "report format: json or yaml")
	pf.String("cache", filepath.Join(".persona-digest", "cache.db"), `extraction cache file ("" disables caching)`)
	pf.String("history-db", filepath.Join(".persona-digest", "history.db"), `run history database ("" disables history)`)
	pf.Int("page-window", types.DefaultPageWindow, "leading pages scanned for excerpts")
	pf.Int("max-words", types.DefaultMaxWords, "word budget of one excerpt")
	pf.Int("top-k", types.DefaultTopK, "maximum sections and excerpts per report")
	pf.Int("workers", 1, "documents extracted concurrently")

	bind := map[string]string{
		"base_dir":               "base-dir",
		"format":                 "format",
		"cache.path":             "cache",
		"history.db_path":        "history-db",
		"extraction.page_window": "page-window",
		"extraction.max_words":   "max-words",
		"extraction.top_k":       "top-k",
		"extraction.workers":     "workers",
	}
	for key, flag := range bind {
		if err := viper.BindPFlag(key, pf.Lookup(flag)); err != nil {
			panic(err)
		}
	}

	rootCmd.Flags().Int("collection", 0, "process the collection with this id")
	rootCmd.Flags().Bool("all", false, "process every configured collection")
	rootCmd.MarkFlagsMutuallyExclusive("collection", "all")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("persona-digest")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "persona-digest"))
		}
	}

	viper.SetEnvPrefix("PERSONA_DIGEST")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

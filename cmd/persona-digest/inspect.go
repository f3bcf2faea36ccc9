// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/persona-digest/internal/collection"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect [pdf...]",
	Short: "Show page count, outline and metadata of PDF files",
	Long: `Inspect reports, for each PDF, the page count, whether it carries an
outline, how many outline entries it has and how many of them resolve to a
page, and the document information (title, author, producer). A file that
cannot be read is reported and the remaining files are still inspected.

With --collections, inspect prints the configured collection table instead.`,
	RunE: runInspect,
}

func runInspect(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	if showCols, _ := cmd.Flags().GetBool("collections"); showCols {
		cols, err := configuredCollections()
		if err != nil {
			return err
		}
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(map[string]any{"collections": cols}); err != nil {
			return fmt.Errorf("marshaling YAML: %w", err)
		}
		return enc.Close()
	}

	if len(args) == 0 {
		return fmt.Errorf("at least one PDF file is required")
	}

	results := make([]collection.Inspection, len(args))
	for i, path := range args {
		results[i] = collection.Inspect(path, logger)
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}
	printInspections(out, results)
	return nil
}

func printInspections(w io.Writer, results []collection.Inspection) {
	for _, r := range results {
		if r.Error != "" {
			fmt.Fprintf(w, "failed:  %s (%s)\n", r.File, r.Error)
			continue
		}
		fmt.Fprintf(w, "%s\n", r.File)
		fmt.Fprintf(w, "  pages:    %d\n", r.Pages)
		if r.HasOutline {
			fmt.Fprintf(w, "  outline:  yes (%d entries, %d resolvable)\n", r.OutlineEntries, r.ResolvedEntries)
		} else {
			fmt.Fprintf(w, "  outline:  no\n")
		}
		for _, kv := range [][2]string{
			{"title", r.Info.Title},
			{"author", r.Info.Author},
			{"subject", r.Info.Subject},
			{"creator", r.Info.Creator},
			{"producer", r.Info.Producer},
		} {
			if kv[1] != "" {
				fmt.Fprintf(w, "  %-9s %s\n", kv[0]+":", kv[1])
			}
		}
	}
}

func init() {
	inspectCmd.Flags().Bool("json", false, "output results as JSON")
	inspectCmd.Flags().Bool("collections", false, "print the configured collection table as YAML")

	rootCmd.AddCommand(inspectCmd)
}

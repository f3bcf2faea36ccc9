// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/persona-digest/internal/history"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded collection runs",
	Long: `History lists collection runs recorded in the run history database,
newest first. Each run shows its outcome, document counts and output path.`,
	RunE: runHistory,
}

func runHistory(cmd *cobra.Command, args []string) error {
	var filter history.Filter
	if cmd.Flags().Changed("collection") {
		id, _ := cmd.Flags().GetInt("collection")
		filter = history.ForCollection(id)
	}
	filter.Limit, _ = cmd.Flags().GetInt("limit")

	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	store, err := app.requireHistory()
	if err != nil {
		return err
	}

	runs, err := store.ListRuns(cmd.Context(), filter)
	if err != nil {
		return err
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(runs)
	}
	printRuns(cmd.OutOrStdout(), runs)
	return nil
}

func printRuns(w io.Writer, runs []history.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return
	}

	fmt.Fprintf(w, "%-36s  %-4s  %-20s  %-9s  %-5s  %-6s  %s\n",
		"Run", "Coll", "Started", "Status", "Docs", "Failed", "Output")
	fmt.Fprintln(w, strings.Repeat("-", 110))
	for _, r := range runs {
		fmt.Fprintf(w, "%-36s  %-4d  %-20s  %-9s  %-5d  %-6d  %s\n",
			r.ID, r.CollectionID, r.StartedAt.Local().Format(time.DateTime),
			r.Status, r.Documents, r.FailedDocuments, r.OutputPath)
		if r.Error != "" {
			fmt.Fprintf(w, "    error: %s\n", r.Error)
		}
	}
	fmt.Fprintf(w, "\n%d runs\n", len(runs))
}

var historyShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show one recorded run and its ranked sections",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	store, err := app.requireHistory()
	if err != nil {
		return err
	}

	run, err := store.GetRun(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	sections, err := store.RunSections(cmd.Context(), run.ID)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Run:        %s\n", run.ID)
	fmt.Fprintf(w, "Collection: %d %s\n", run.CollectionID, run.CollectionName)
	fmt.Fprintf(w, "Persona:    %s\n", run.Persona)
	fmt.Fprintf(w, "Job:        %s\n", run.JobToBeDone)
	fmt.Fprintf(w, "Status:     %s\n", run.Status)
	if run.Error != "" {
		fmt.Fprintf(w, "Error:      %s\n", run.Error)
	}
	fmt.Fprintf(w, "Started:    %s (took %s)\n", run.StartedAt.Local().Format(time.DateTime), run.Duration())
	fmt.Fprintf(w, "Documents:  %d (%d failed, %d cached)\n", run.Documents, run.FailedDocuments, run.CachedDocuments)
	fmt.Fprintf(w, "Output:     %s\n", run.OutputPath)

	if len(sections) == 0 {
		return nil
	}
	fmt.Fprintln(w, "\nSections:")
	for _, sec := range sections {
		fmt.Fprintf(w, "  %2d  %-30s  p.%-4d  %s\n", sec.ImportanceRank, sec.Document, sec.PageNumber, sec.SectionTitle)
	}
	return nil
}

func init() {
	historyCmd.Flags().Int("collection", 0, "only show runs of this collection")
	historyCmd.Flags().Int("limit", history.DefaultLimit, "maximum runs to show")
	historyCmd.Flags().Bool("json", false, "output runs as JSON")

	historyCmd.AddCommand(historyShowCmd)
	rootCmd.AddCommand(historyCmd)
}

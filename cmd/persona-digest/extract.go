// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pdiddy/persona-digest/pkg/types"
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Build a report for an ad hoc directory of PDFs",
	Long: `Extract processes a single directory of PDFs that is not part of the
configured collection table. The persona and job to be done are given on
the command line; the report omits collection_id.`,
	Example: `  persona-digest extract --input-dir ./pdfs --output out.json \
    --persona "Travel Planner" --job "Plan a 4-day trip"`,
	RunE: runExtract,
}

func runExtract(cmd *cobra.Command, args []string) error {
	inputDir, _ := cmd.Flags().GetString("input-dir")
	output, _ := cmd.Flags().GetString("output")
	persona, _ := cmd.Flags().GetString("persona")
	job, _ := cmd.Flags().GetString("job")
	name, _ := cmd.Flags().GetString("name")

	if output == "" {
		output = filepath.Join(inputDir, "output.json")
	}

	c := types.CollectionConfig{
		Name:        name,
		Persona:     persona,
		JobToBeDone: job,
		InputDir:    inputDir,
		OutputFile:  output,
	}

	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	if _, err := app.runner.RunCollection(cmd.Context(), c, cmd.OutOrStdout()); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Report written to %s\n", output)
	return nil
}

func init() {
	extractCmd.Flags().String("input-dir", "", "directory containing the PDF files")
	extractCmd.Flags().String("output", "", "report file (default: <input-dir>/output.json)")
	extractCmd.Flags().String("persona", "", "persona the report is written for")
	extractCmd.Flags().String("job", "", "job to be done")
	extractCmd.Flags().String("name", "", "optional collection name recorded in metadata")
	_ = extractCmd.MarkFlagRequired("input-dir")
	_ = extractCmd.MarkFlagRequired("persona")
	_ = extractCmd.MarkFlagRequired("job")

	rootCmd.AddCommand(extractCmd)
}

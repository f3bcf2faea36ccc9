// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/persona-digest/internal/watch"
	"github.com/pdiddy/persona-digest/pkg/types"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-process collections when their PDFs change",
	Long: `Watch monitors the input directories of the selected collections and
re-runs a collection once its directory has been quiet for the debounce
window after a PDF is added, changed, removed or renamed. With --initial,
every selected collection is processed once at startup. Watch stops on
SIGINT or SIGTERM.`,
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	id, _ := cmd.Flags().GetInt("collection")
	all, _ := cmd.Flags().GetBool("all")
	if !cmd.Flags().Changed("collection") {
		all = true
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

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	if initial, _ := cmd.Flags().GetBool("initial"); initial {
		app.runner.RunAll(ctx, cols, out)
	}

	w := &watch.Watcher{
		Collections: cols,
		Debounce:    viper.GetDuration("watch.debounce"),
		Logger:      logger,
		Run: func(ctx context.Context, c types.CollectionConfig) error {
			_, err := app.runner.RunCollection(ctx, c, out)
			return err
		},
	}
	cmd.Printf("Watching %d collection(s); press Ctrl-C to stop\n", len(cols))
	return w.Watch(ctx)
}

func init() {
	watchCmd.Flags().Int("collection", 0, "watch only the collection with this id")
	watchCmd.Flags().Bool("all", false, "watch every configured collection (default)")
	watchCmd.Flags().Bool("initial", false, "process the selected collections once before watching")
	watchCmd.Flags().Duration("debounce", time.Second, "quiet period before a changed collection is re-run")
	watchCmd.MarkFlagsMutuallyExclusive("collection", "all")
	if err := viper.BindPFlag("watch.debounce", watchCmd.Flags().Lookup("debounce")); err != nil {
		panic(err)
	}

	rootCmd.AddCommand(watchCmd)
}

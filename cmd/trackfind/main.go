// Command trackfind runs the drift chamber track finder over event files
// and stores the results in a SQLite database.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/banshee-data/cdc-trackfinder/internal/monitoring"
	"github.com/banshee-data/cdc-trackfinder/internal/tracking/automaton"
	"github.com/banshee-data/cdc-trackfinder/internal/tracking/clustering"
	"github.com/banshee-data/cdc-trackfinder/internal/tracking/hits"
	"github.com/banshee-data/cdc-trackfinder/internal/tracking/hough"
	"github.com/banshee-data/cdc-trackfinder/internal/tracking/neighbors"
	"github.com/banshee-data/cdc-trackfinder/internal/tracking/pipeline"
	"github.com/banshee-data/cdc-trackfinder/internal/tracking/segments"
	"github.com/banshee-data/cdc-trackfinder/internal/version"
)

var (
	rootCmd = &cobra.Command{
		Use:           "trackfind",
		Short:         "Drift chamber track finding",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			configureLogging(os.Stderr, diagLog, traceLog, quiet)
		},
	}
	dbPath   string
	diagLog  bool
	traceLog bool
	quiet    bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "trackfind.db", "Path to the SQLite result database (empty disables storage)")
	rootCmd.PersistentFlags().BoolVar(&diagLog, "diag", false, "Log per-event summaries")
	rootCmd.PersistentFlags().BoolVar(&traceLog, "trace", false, "Log per-stage telemetry")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress warnings and process messages")

	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newMigrateCmd())
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the build version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), version.String())
	},
}

// configureLogging points the ops stream of every stage at w and enables
// the diag and trace streams on request.
func configureLogging(w io.Writer, diag, trace, quiet bool) {
	ops := w
	if quiet {
		ops = nil
		monitoring.SetLogger(nil)
	}
	var diagW, traceW io.Writer
	if diag {
		diagW = w
	}
	if trace {
		traceW = w
	}
	for _, set := range []func(ops, diag, trace io.Writer){
		hits.SetLogWriters,
		neighbors.SetLogWriters,
		clustering.SetLogWriters,
		automaton.SetLogWriters,
		segments.SetLogWriters,
		hough.SetLogWriters,
		pipeline.SetLogWriters,
	} {
		set(ops, diagW, traceW)
	}
}

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/cdc-trackfinder/internal/config"
	"github.com/banshee-data/cdc-trackfinder/internal/db"
	"github.com/banshee-data/cdc-trackfinder/internal/eventfile"
	"github.com/banshee-data/cdc-trackfinder/internal/monitoring"
	"github.com/banshee-data/cdc-trackfinder/internal/tracking/automaton"
	"github.com/banshee-data/cdc-trackfinder/internal/tracking/geometry"
	"github.com/banshee-data/cdc-trackfinder/internal/tracking/hits"
	"github.com/banshee-data/cdc-trackfinder/internal/tracking/pipeline"
	"github.com/banshee-data/cdc-trackfinder/internal/version"
)

type runOptions struct {
	configPath  string
	input       string
	dbPath      string
	workers     int
	metricsAddr string
	skipInvalid bool
}

// runSummary is what a run produced.
type runSummary struct {
	RunID      string
	Events     int
	Failed     int
	Candidates int
}

// eventOutcome is the per-event result kept for the report.
type eventOutcome struct {
	name   string
	result *pipeline.Result
	err    error
}

func newRunCmd() *cobra.Command {
	var opts runOptions
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Find tracks in the events of an input file or directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.dbPath = dbPath
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if opts.metricsAddr != "" {
				shutdown := serveMetrics(opts.metricsAddr)
				defer shutdown()
			}

			sum, err := runEvents(ctx, opts, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			monitoring.Logf("processed %d events (%d failed), %d candidates", sum.Events, sum.Failed, sum.Candidates)
			if sum.RunID != "" {
				monitoring.Logf("stored as run %s in %s", sum.RunID, opts.dbPath)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "Tuning config file (.json, .yaml); defaults when empty")
	cmd.Flags().StringVarP(&opts.input, "input", "i", "", "Event file or directory of event files")
	cmd.Flags().IntVarP(&opts.workers, "workers", "w", 0, "Parallel finders (0 uses the tuning config)")
	cmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :9090")
	cmd.Flags().BoolVar(&opts.skipInvalid, "skip-invalid", false, "Report and skip events whose hits violate a stage contract instead of aborting")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

// loadConfig reads the tuning file at path, or the defaults when path is
// empty.
func loadConfig(path string) (*config.TuningConfig, error) {
	if path == "" {
		return config.EmptyTuningConfig(), nil
	}
	return config.LoadTuningConfig(path)
}

// runEvents processes every event of opts.input. Events are spread over
// the workers, each owning one Finder; the report written to out follows
// the input order. An event violating a stage contract aborts the run
// unless opts.skipInvalid is set, in which case it is reported and
// skipped.
func runEvents(ctx context.Context, opts runOptions, out io.Writer) (runSummary, error) {
	var sum runSummary

	tuning, err := loadConfig(opts.configPath)
	if err != nil {
		return sum, err
	}
	cfg := pipeline.ConfigFromTuning(tuning)
	if err := cfg.Validate(); err != nil {
		return sum, fmt.Errorf("invalid configuration: %w", err)
	}
	workers := opts.workers
	if workers <= 0 {
		workers = tuning.GetWorkers()
	}

	sources, err := eventfile.ReadAll(opts.input)
	if err != nil {
		return sum, err
	}
	monitoring.Logf("%s: %d events from %s, %d workers, hough input %s",
		version.String(), len(sources), opts.input, workers, cfg.Input)

	var store *db.DB
	if opts.dbPath != "" {
		store, err = db.NewDB(opts.dbPath)
		if err != nil {
			return sum, fmt.Errorf("failed to open result database: %w", err)
		}
		defer store.Close()
		sum.RunID, err = store.StartRun(cfg)
		if err != nil {
			return sum, err
		}
	}

	topo := geometry.IdealTopology()
	outcomes := make([]eventOutcome, len(sources))
	jobs := make(chan int)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(jobs)
		for i := range sources {
			if err := gctx.Err(); err != nil {
				return err
			}
			select {
			case jobs <- i:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			f, err := pipeline.NewFinder(topo, cfg)
			if err != nil {
				return err
			}
			for i := range jobs {
				src := sources[i]
				res, err := process(f, src.Event.Hits)
				outcomes[i] = eventOutcome{name: src.Name(), result: res, err: err}
				if err != nil && !opts.skipInvalid {
					return fmt.Errorf("event %d (%s): %w", i+1, src.Name(), err)
				}
				if err != nil || store == nil {
					continue
				}
				if err := store.RecordEvent(sum.RunID, i+1, src.Name(), res); err != nil {
					return fmt.Errorf("event %s: %w", src.Name(), err)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return sum, err
	}

	if store != nil {
		if err := store.FinishRun(sum.RunID); err != nil {
			return sum, err
		}
	}

	for i, o := range outcomes {
		sum.Events++
		if o.err != nil {
			sum.Failed++
			monitoring.Logf("event %d (%s) skipped: %v", i+1, o.name, o.err)
			fmt.Fprintf(out, "event %d %s: error: %v\n", i+1, o.name, o.err)
			continue
		}
		sum.Candidates += len(o.result.Candidates)
		writeReport(out, i+1, o.name, o.result)
	}
	return sum, nil
}

// process runs one event, turning a contract panic of a stage into an
// error.
func process(f *pipeline.Finder, raw []hits.RawHit) (res *pipeline.Result, err error) {
	defer recoverContract(&err)
	return f.Process(raw), nil
}

// recoverContract stores a recovered *hits.ContractError or
// *automaton.CycleError in err. Any other panic, runtime errors included,
// is raised again.
func recoverContract(err *error) {
	r := recover()
	if r == nil {
		return
	}
	if e, ok := r.(error); ok {
		var contract *hits.ContractError
		var cycle *automaton.CycleError
		if errors.As(e, &contract) || errors.As(e, &cycle) {
			*err = e
			return
		}
	}
	panic(r)
}

func writeReport(out io.Writer, n int, name string, res *pipeline.Result) {
	fmt.Fprintf(out, "event %d %s: %d hits, %d clusters, %d segments, %d trains, %d candidates\n",
		n, name, res.Hits, len(res.Clusters), len(res.Segments), len(res.Trains), len(res.Candidates))
	for k, c := range res.Candidates {
		fmt.Fprintf(out, "  candidate %d: phi0=%.4f curvature=%.5f weight=%.2f hits=%d segments=%d\n",
			k, c.Phi0, c.Curvature, c.Weight, len(c.RawHits), len(c.Segments))
	}
}

// serveMetrics exposes the Prometheus registry on addr until the returned
// function is called.
func serveMetrics(addr string) (shutdown func()) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{Addr: addr, Handler: mux}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fmt.Fprintf(os.Stderr, "metrics server: %v\n", err)
		}
	}()
	monitoring.Logf("serving metrics on %s/metrics", addr)

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			monitoring.Logf("metrics server shutdown error: %v", err)
			server.Close()
		}
	}
}

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/san-kum/swervesim/internal/analysis"
	"github.com/san-kum/swervesim/internal/automation"
	"github.com/san-kum/swervesim/internal/config"
	"github.com/san-kum/swervesim/internal/control"
	"github.com/san-kum/swervesim/internal/dynamo"
	"github.com/san-kum/swervesim/internal/experiment"
	"github.com/san-kum/swervesim/internal/sim"
	"github.com/san-kum/swervesim/internal/storage"
	"github.com/san-kum/swervesim/internal/storage/memory"
	"github.com/san-kum/swervesim/internal/viz"
)

var (
	ensembleRuns int
	sweepParam   string
	sweepMin     float64
	sweepMax     float64
	sweepSteps   int
	sweepStore   bool
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "run a simulation and store its telemetry",
		Args:  cobra.NoArgs,
		RunE:  runSimulation,
	}
	addRunFlags(cmd)
	return cmd
}

func newLiveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "live",
		Short: "run a simulation with the live dashboard",
		Args:  cobra.NoArgs,
		RunE:  runLive,
	}
	addRunFlags(cmd)
	return cmd
}

func newBenchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "measure unpaced tick throughput",
		Args:  cobra.NoArgs,
		RunE:  benchEngine,
	}
	addRunFlags(cmd)
	return cmd
}

func newEnsembleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ensemble",
		Short: "run many seeds and summarise their metrics",
		Args:  cobra.NoArgs,
		RunE:  runEnsemble,
	}
	addRunFlags(cmd)
	cmd.Flags().IntVar(&ensembleRuns, "runs", 16, "number of runs")
	return cmd
}

func newScenarioCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scenario [file]",
		Short: "play a scripted scenario from a yaml file",
		Args:  cobra.ExactArgs(1),
		RunE:  runScenario,
	}
	addRunFlags(cmd)
	return cmd
}

func newSweepCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "sweep one parameter and compare run metrics",
		Args:  cobra.NoArgs,
		RunE:  runSweep,
	}
	addRunFlags(cmd)
	cmd.Flags().StringVar(&sweepParam, "param", "turn_tau", "parameter to sweep")
	cmd.Flags().Float64Var(&sweepMin, "min", 0.05, "first value")
	cmd.Flags().Float64Var(&sweepMax, "max", 0.5, "last value")
	cmd.Flags().IntVar(&sweepSteps, "steps", 5, "number of values")
	cmd.Flags().BoolVar(&sweepStore, "store", false, "store every sweep run in the configured sinks")
	return cmd
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log, closer, err := newLogger(os.Stderr, cfg)
	if err != nil {
		return err
	}
	defer closer.Close()

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	exp, err := experiment.New(cfg, experiment.WithLogger(log))
	if err != nil {
		return err
	}
	sink, err := storage.NewSink(ctx, cfg, log)
	if err != nil {
		return err
	}

	fmt.Printf("run %s (seed %d, source %s, sink %s)\n", exp.RunID(), exp.Seed(), cfg.Source, cfg.Sink.Type)
	res, err := exp.Run(ctx, sink)
	if res != nil {
		printResult(os.Stdout, res)
	}
	if errors.Is(err, context.Canceled) {
		fmt.Println("interrupted")
		return nil
	}
	return err
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	// console output would tear the dashboard; only the log file is kept
	log, closer, err := newLogger(io.Discard, cfg)
	if err != nil {
		return err
	}
	defer closer.Close()

	ctx, stop := signalContext(cmd.Context())
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	exp, err := experiment.New(cfg, experiment.WithLogger(log))
	if err != nil {
		return err
	}

	var manual *control.Manual
	var src dynamo.CommandSource
	if cfg.Source == "manual" {
		manual = control.NewManual(dynamo.Command{})
		src = manual
	} else if src, err = exp.Source(); err != nil {
		return err
	}

	sink, err := storage.NewSink(ctx, cfg, log)
	if err != nil {
		return err
	}

	feed := viz.NewFeed(0)
	done := make(chan struct{})
	go func() {
		defer close(done)
		res, err := exp.RunWith(ctx, cfg.Source, src, sink, sim.WithObserver(feed.Observe))
		feed.Finish(res, err)
	}()

	title := fmt.Sprintf("swervesim %s", exp.RunID())
	model := viz.NewModel(title, feed, manual, cancel, cfg.Physics)
	_, uiErr := tea.NewProgram(model, tea.WithAltScreen()).Run()

	cancel()
	<-done

	snap := feed.Snapshot()
	if snap.Result != nil {
		printResult(os.Stdout, snap.Result)
	}
	if uiErr != nil {
		return uiErr
	}
	if snap.Err != nil && !errors.Is(snap.Err, context.Canceled) {
		return snap.Err
	}
	return nil
}

func benchEngine(cmd *cobra.Command, args []string) error {
	if preset == "" && configFile == "" {
		preset = "bench"
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	cfg.Realtime = false
	cfg.LogEvery = 0

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "MODE\tDT\tTICKS\tTIME\tTICKS/SEC")

	for _, par := range []bool{false, true} {
		c := cfg.Clone()
		c.Parallel = par

		exp, err := experiment.New(c)
		if err != nil {
			return err
		}
		start := time.Now()
		res, err := exp.Run(ctx, memory.Discard{})
		if err != nil {
			return err
		}
		elapsed := time.Since(start)

		mode := "serial"
		if par {
			mode = "parallel"
		}
		fmt.Fprintf(w, "%s\t%.4f\t%d\t%v\t%.0f\n", mode, c.Dt, res.Ticks,
			elapsed.Round(time.Millisecond), float64(res.Ticks)/elapsed.Seconds())
	}
	return w.Flush()
}

func runEnsemble(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	registry := experiment.NewRegistry()
	// surface a bad source before fanning out
	if _, err := registry.GetSource(cfg.Source, cfg.SourceParams); err != nil {
		return err
	}
	newSource := func() dynamo.CommandSource {
		src, _ := registry.GetSource(cfg.Source, cfg.SourceParams)
		return src
	}

	seedStart := cfg.Seed
	if seedStart == 0 {
		seedStart = time.Now().UnixNano()
	}

	ens := sim.NewEnsemble(cfg.EngineConfig(), ensembleRuns, seedStart, newSource)
	ens.NewMetrics = func() []dynamo.Metric { return experiment.DefaultMetrics(cfg) }

	start := time.Now()
	results, err := ens.Run(ctx, cfg.Limits())
	if err != nil {
		return err
	}
	fmt.Printf("%d runs from seed %d in %v\n\n", len(results), seedStart, time.Since(start).Round(time.Millisecond))

	values := make(map[string][]float64)
	for _, res := range results {
		for name, v := range res.Metrics {
			values[name] = append(values[name], v)
		}
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "METRIC\tMEAN\tSTDDEV\tMIN\tP50\tP95\tMAX")
	for _, name := range sortedKeys(values) {
		s := analysis.Summarize(values[name])
		fmt.Fprintf(w, "%s\t%.4g\t%.4g\t%.4g\t%.4g\t%.4g\t%.4g\n", name, s.Mean, s.StdDev, s.Min, s.P50, s.P95, s.Max)
	}
	return w.Flush()
}

func runScenario(cmd *cobra.Command, args []string) error {
	sc, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log, closer, err := newLogger(os.Stderr, cfg)
	if err != nil {
		return err
	}
	defer closer.Close()

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	sink, err := storage.NewSink(ctx, cfg, log)
	if err != nil {
		return err
	}

	fmt.Printf("scenario %s: %d segments\n", sc.Name, len(sc.Segments))
	res, err := automation.RunScenario(ctx, sc, cfg, sink, log)
	if res != nil {
		printResult(os.Stdout, res)
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log, closer, err := newLogger(os.Stderr, cfg)
	if err != nil {
		return err
	}
	defer closer.Close()

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	var newSink func(*config.Config) (dynamo.Sink, error)
	if sweepStore {
		newSink = func(c *config.Config) (dynamo.Sink, error) {
			return storage.NewSink(ctx, c, log)
		}
	}

	sw := automation.Sweep{Param: sweepParam, Min: sweepMin, Max: sweepMax, Steps: sweepSteps}
	results, err := automation.RunSweep(ctx, cfg, sw, newSink, log)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		return nil
	}

	names := sortedKeys(results[0].Metrics)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprint(w, sweepParam, "\tTICKS")
	for _, n := range names {
		fmt.Fprint(w, "\t", n)
	}
	fmt.Fprintln(w)
	for _, r := range results {
		fmt.Fprintf(w, "%.4g\t%d", r.Value, r.Ticks)
		for _, n := range names {
			fmt.Fprintf(w, "\t%.4g", r.Metrics[n])
		}
		fmt.Fprintln(w)
	}
	return w.Flush()
}

func printResult(w io.Writer, res *sim.Result) {
	fmt.Fprintf(w, "run %s: %d ticks, %.2fs simulated, %d persisted, %d failed\n",
		res.RunID, res.Ticks, res.Elapsed, res.Persisted, res.Failed)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, name := range sortedKeys(res.Metrics) {
		fmt.Fprintf(tw, "  %s\t%.4f\n", name, res.Metrics[name])
	}
	tw.Flush()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

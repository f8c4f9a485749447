package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/san-kum/swervesim/internal/config"
	"github.com/san-kum/swervesim/internal/dynamo"
	"github.com/san-kum/swervesim/internal/logging"
)

var (
	configFile string
	preset     string
	dataDir    string
	logLevel   string
	logDir     string

	dt        float64
	duration  float64
	maxTicks  int64
	seed      int64
	source    string
	sinkType  string
	realtime  bool
	parallel  bool
	overrides []string
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "swervesim",
		Short:         "swerve drivetrain telemetry simulator",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configFile, "config", "", "config file path (yaml)")
	pf.StringVar(&preset, "preset", "", "use preset configuration")
	pf.StringVar(&dataDir, "data", "", "run store directory (default from config)")
	pf.StringVar(&logLevel, "log-level", "", "log level: trace, debug, info, warn, error")
	pf.StringVar(&logDir, "log-dir", "", "also write logs to this directory")

	rootCmd.AddCommand(
		newRunCmd(),
		newLiveCmd(),
		newBenchCmd(),
		newEnsembleCmd(),
		newScenarioCmd(),
		newSweepCmd(),
		newListCmd(),
		newPlotCmd(),
		newExportCmd(),
		newExportJSONCmd(),
		newExportSVGCmd(),
		newAnalyzeCmd(),
		newPresetsCmd(),
		newPruneCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// addRunFlags registers the flags that override config values. They only
// take effect when set on the command line.
func addRunFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.Float64Var(&dt, "dt", 0, "timestep in seconds")
	f.Float64Var(&duration, "duration", 0, "run duration in seconds (0 = unbounded by time)")
	f.Int64Var(&maxTicks, "max-ticks", 0, "tick bound (0 = unbounded by ticks)")
	f.Int64Var(&seed, "seed", 0, "random seed (0 = from clock)")
	f.StringVar(&source, "source", "", "command source")
	f.StringVar(&sinkType, "sink", "", "comma-separated sinks: file, sqlite, postgres, mysql, influx, archive, stream, memory, discard")
	f.BoolVar(&realtime, "realtime", false, "pace ticks to wall-clock time")
	f.BoolVar(&parallel, "parallel", false, "step modules concurrently")
	f.StringArrayVar(&overrides, "set", nil, "override a numeric parameter, e.g. --set turn_tau=0.2")
}

// loadConfig resolves the preset or config file, then applies the flags the
// user actually set.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	if preset != "" && configFile != "" {
		return nil, fmt.Errorf("%w: --preset and --config are mutually exclusive", dynamo.ErrInvalidConfig)
	}

	var cfg *config.Config
	if preset != "" {
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return nil, fmt.Errorf("%w: unknown preset %q (have %s)", dynamo.ErrInvalidConfig, preset, strings.Join(config.ListPresets(), ", "))
		}
	} else {
		var err error
		if cfg, err = config.Load(configFile); err != nil {
			return nil, err
		}
	}

	f := cmd.Flags()
	if f.Changed("dt") {
		cfg.Dt = dt
	}
	if f.Changed("duration") {
		cfg.Duration = duration
	}
	if f.Changed("max-ticks") {
		cfg.MaxTicks = maxTicks
	}
	if f.Changed("seed") {
		cfg.Seed = seed
	}
	if f.Changed("source") {
		cfg.Source = source
	}
	if f.Changed("sink") {
		cfg.Sink.Type = sinkType
	}
	if f.Changed("realtime") {
		cfg.Realtime = realtime
	}
	if f.Changed("parallel") {
		cfg.Parallel = parallel
	}
	for _, kv := range overrides {
		name, raw, ok := strings.Cut(kv, "=")
		if !ok {
			return nil, fmt.Errorf("%w: --set wants name=value, got %q", dynamo.ErrInvalidConfig, kv)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: --set %s: %v", dynamo.ErrInvalidConfig, name, err)
		}
		cfg.SetParam(strings.TrimSpace(name), v)
	}

	if dataDir != "" {
		cfg.Sink.Dir = dataDir
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if logDir != "" {
		cfg.Log.Dir = logDir
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// storeDir is the run store directory for commands that only read runs.
func storeDir() string {
	if dataDir != "" {
		return dataDir
	}
	if cfg, err := config.Load(configFile); err == nil {
		return cfg.Sink.Dir
	}
	return config.DefaultDir
}

func newLogger(w io.Writer, cfg *config.Config) (zerolog.Logger, io.Closer, error) {
	return logging.New(w, logging.Options{
		Level:  cfg.Log.Level,
		Dir:    cfg.Log.Dir,
		Pretty: cfg.Log.Pretty,
		Name:   "swervesim",
	})
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

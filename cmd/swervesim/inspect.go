package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/swervesim/internal/analysis"
	"github.com/san-kum/swervesim/internal/config"
	"github.com/san-kum/swervesim/internal/dynamo"
	"github.com/san-kum/swervesim/internal/export"
	"github.com/san-kum/swervesim/internal/storage"
	"github.com/san-kum/swervesim/internal/storage/archive"
	"github.com/san-kum/swervesim/internal/storage/sqldb"
	"github.com/san-kum/swervesim/internal/store"
)

var (
	plotSeries    []string
	svgSeries     []string
	analyzeSeries []string
	outputPath    string
	svgWidth      int
	svgHeight     int
	pruneDriver   string
	pruneAge      time.Duration
)

var plotColors = []asciigraph.AnsiColor{asciigraph.Green, asciigraph.Red, asciigraph.Blue, asciigraph.Yellow}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}
}

func newPlotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plot [run_id | archive" + archive.Ext + "]",
		Short: "plot series of a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	cmd.Flags().StringSliceVar(&plotSeries, "series", []string{"battery_v"}, "series to plot, e.g. FL.meas_angle_deg")
	return cmd
}

func newExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export [run_id]",
		Short: "export run metadata",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}
}

func newExportJSONCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export a run with every tick as json",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "output file (default stdout)")
	return cmd
}

func newExportSVGCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export-svg [run_id | archive" + archive.Ext + "]",
		Short: "export series of a run as svg",
		Args:  cobra.ExactArgs(1),
		RunE:  exportSVG,
	}
	cmd.Flags().StringSliceVar(&svgSeries, "series", []string{"FL.cmd_angle_deg", "FL.meas_angle_deg"}, "series to draw")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "output file (default <run_id>.svg)")
	cmd.Flags().IntVar(&svgWidth, "width", 800, "image width")
	cmd.Flags().IntVar(&svgHeight, "height", 400, "image height")
	return cmd
}

func newAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze [run_id | archive" + archive.Ext + "]",
		Short: "statistics and frequency analysis of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}
	cmd.Flags().StringSliceVar(&analyzeSeries, "series", []string{"battery_v", "current_a", "FL.meas_angle_deg", "FL.meas_rpm"}, "series to analyze")
	return cmd
}

func newPresetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "PRESET\tSOURCE\tDURATION\tMAX TICKS\tREALTIME\tSINK")
			for _, name := range config.ListPresets() {
				c := config.GetPreset(name)
				fmt.Fprintf(w, "%s\t%s\t%.1f\t%d\t%v\t%s\n", name, c.Source, c.Duration, c.MaxTicks, c.Realtime, c.Sink.Type)
			}
			return w.Flush()
		},
	}
}

func newPruneCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "delete finished runs from the sql store",
		Args:  cobra.NoArgs,
		RunE:  pruneRuns,
	}
	cmd.Flags().StringVar(&pruneDriver, "driver", sqldb.SQLite, "sql driver: sqlite, postgres, mysql")
	cmd.Flags().DurationVar(&pruneAge, "older-than", 30*24*time.Hour, "delete runs that ended before this long ago")
	return cmd
}

// loadRecords reads a run from the file store, or from a zstd archive when
// ref names one.
func loadRecords(ref string) (*storage.RunMetadata, []dynamo.TickRecord, error) {
	if strings.HasSuffix(ref, archive.Ext) {
		recs, err := archive.Read(ref)
		return nil, recs, err
	}
	st := storage.New(storeDir())
	meta, err := st.Load(ref)
	if err != nil {
		return nil, nil, err
	}
	recs, err := st.LoadTicks(ref)
	return meta, recs, err
}

// sampleDt is the tick period of recs, preferring the stored metadata.
func sampleDt(meta *storage.RunMetadata, recs []dynamo.TickRecord) float64 {
	if meta != nil && meta.Dt > 0 {
		return meta.Dt
	}
	if len(recs) > 1 {
		return recs[1].Elapsed - recs[0].Elapsed
	}
	return 0
}

func listRuns(cmd *cobra.Command, args []string) error {
	runs, err := storage.New(storeDir()).List()
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RUN ID\tSTARTED\tSOURCE\tSEED\tDT\tTICKS\tFAILED")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%.4f\t%d\t%d\n",
			r.ID, r.StartedAt.Local().Format(time.DateTime), r.Source, r.Seed, r.Dt, r.Ticks, r.Failed)
	}
	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	_, recs, err := loadRecords(args[0])
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		return fmt.Errorf("run %s has no ticks", args[0])
	}

	data := make([][]float64, 0, len(plotSeries))
	for _, name := range plotSeries {
		s, err := store.Series(recs, name)
		if err != nil {
			return err
		}
		data = append(data, s)
	}

	colors := make([]asciigraph.AnsiColor, len(data))
	for i := range colors {
		colors[i] = plotColors[i%len(plotColors)]
	}

	graph := asciigraph.PlotMany(data,
		asciigraph.Height(10),
		asciigraph.Width(80),
		asciigraph.SeriesColors(colors...),
		asciigraph.Caption(strings.Join(plotSeries, ", ")),
	)
	fmt.Println(graph)
	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	meta, err := storage.New(storeDir()).Load(args[0])
	if err != nil {
		return err
	}
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(meta)
}

func exportJSON(cmd *cobra.Command, args []string) error {
	if err := store.ExportRun(storage.New(storeDir()), args[0], outputPath); err != nil {
		return err
	}
	if outputPath != "" && outputPath != "-" {
		fmt.Fprintf(os.Stderr, "exported %s to %s\n", args[0], outputPath)
	}
	return nil
}

func exportSVG(cmd *cobra.Command, args []string) error {
	_, recs, err := loadRecords(args[0])
	if err != nil {
		return err
	}
	times, err := store.Series(recs, "elapsed_s")
	if err != nil {
		return err
	}

	series := make([]export.Series, 0, len(svgSeries))
	for _, name := range svgSeries {
		values, err := store.Series(recs, name)
		if err != nil {
			return err
		}
		series = append(series, export.Series{Name: name, Values: values})
	}

	svg := export.SeriesToSVG(times, series, svgWidth, svgHeight)
	if svg == "" {
		return fmt.Errorf("run %s has too few ticks to draw", args[0])
	}

	path := outputPath
	if path == "" {
		path = strings.TrimSuffix(filepath.Base(args[0]), archive.Ext) + ".svg"
	}
	if err := os.WriteFile(path, []byte(svg), 0644); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "wrote %s\n", path)
	return nil
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	meta, recs, err := loadRecords(args[0])
	if err != nil {
		return err
	}
	step := sampleDt(meta, recs)

	fmt.Printf("run %s: %d ticks, dt %.4f\n\n", args[0], len(recs), step)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SERIES\tMEAN\tSTDDEV\tMIN\tP50\tP95\tMAX\tPEAK HZ")
	for _, name := range analyzeSeries {
		data, err := store.Series(recs, name)
		if err != nil {
			return err
		}
		s := analysis.Summarize(data)
		peak := "-"
		if hz, _, err := analysis.DominantFrequency(data, step); err == nil {
			peak = fmt.Sprintf("%.3f", hz)
		}
		fmt.Fprintf(w, "%s\t%.4g\t%.4g\t%.4g\t%.4g\t%.4g\t%.4g\t%s\n",
			name, s.Mean, s.StdDev, s.Min, s.P50, s.P95, s.Max, peak)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Println("\nangle tracking (command vs measured correlation):")
	for _, id := range dynamo.ModuleIDs {
		cmdAngle, _ := store.Series(recs, id.String()+".cmd_angle_deg")
		measAngle, _ := store.Series(recs, id.String()+".meas_angle_deg")
		fmt.Printf("  %s  %.4f\n", id, analysis.Correlation(cmdAngle, measAngle))
	}
	return nil
}

func pruneRuns(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log, closer, err := newLogger(os.Stderr, cfg)
	if err != nil {
		return err
	}
	defer closer.Close()

	dsn := cfg.Sink.DSN
	if dsn == "" {
		if pruneDriver != sqldb.SQLite {
			return fmt.Errorf("%w: %s needs sink.dsn", dynamo.ErrInvalidConfig, pruneDriver)
		}
		dsn = filepath.Join(cfg.Sink.Dir, storage.DefaultSQLiteFile)
	}

	db, err := sqldb.Open(pruneDriver, dsn, log.With().Str("sink", pruneDriver).Logger())
	if err != nil {
		return err
	}
	defer db.Close()

	cutoff := time.Now().Add(-pruneAge)
	n, err := db.Prune(cmd.Context(), cutoff)
	if err != nil {
		return err
	}
	log.Info().Int64("runs", n).Time("cutoff", cutoff).Msg("pruned")
	fmt.Printf("pruned %d runs that ended before %s\n", n, cutoff.Format(time.DateTime))
	return nil
}

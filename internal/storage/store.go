package storage

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/san-kum/swervesim/internal/dynamo"
)

const (
	metadataFile = "metadata.json"
	ticksFile    = "ticks.csv"
	modulesFile  = "modules.csv"
)

var (
	tickHeader = []string{
		"id", "run_id", "ts", "elapsed_ms", "tick", "battery_v",
		"vx_cmd", "vy_cmd", "omega_cmd", "yaw_deg",
	}
	moduleHeader = []string{
		"tick_id", "module", "cmd_angle_deg", "meas_angle_deg", "cmd_rpm", "meas_rpm",
		"drive_applied_pct", "turn_applied_pct", "drive_current_a", "turn_current_a",
		"drive_temp_c", "turn_temp_c",
	}
)

// Store keeps one directory per run under baseDir: metadata.json plus
// ticks.csv and modules.csv, linked by tick id. A Store records one run at a
// time but can list and load any number.
type Store struct {
	baseDir string

	mu      sync.Mutex
	meta    *RunMetadata
	ticks   *csvFile
	modules *csvFile
	nextID  int64
}

type RunMetadata struct {
	ID        string             `json:"id"`
	StartedAt time.Time          `json:"started_at"`
	EndedAt   time.Time          `json:"ended_at,omitempty"`
	Seed      int64              `json:"seed"`
	Dt        float64            `json:"dt"`
	Duration  float64            `json:"duration"`
	MaxTicks  int64              `json:"max_ticks"`
	Source    string             `json:"source"`
	Ticks     int64              `json:"ticks"`
	Persisted int64              `json:"persisted"`
	Failed    int64              `json:"failed"`
	Metrics   map[string]float64 `json:"metrics,omitempty"`
}

// csvFile appends whole batches of rows. size is the length of the file
// after the last successful append; a failed append is truncated back to it.
type csvFile struct {
	f    *os.File
	size int64
}

func encodeCSV(rows ...[]string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(rows); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func createCSV(path string, header []string) (*csvFile, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	c := &csvFile{f: f}
	if err := c.append(header); err != nil {
		f.Close()
		return nil, err
	}
	return c, nil
}

func (c *csvFile) append(rows ...[]string) error {
	data, err := encodeCSV(rows...)
	if err != nil {
		return err
	}
	n, err := c.f.WriteAt(data, c.size)
	if err != nil {
		return errors.Join(err, c.truncate(c.size))
	}
	c.size += int64(n)
	return nil
}

func (c *csvFile) truncate(size int64) error {
	if err := c.f.Truncate(size); err != nil {
		return err
	}
	c.size = size
	return nil
}

func (c *csvFile) close() error {
	return c.f.Close()
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

func (s *Store) Dir() string { return s.baseDir }

func (s *Store) runDir(id string) string {
	return filepath.Join(s.baseDir, id)
}

func (s *Store) StartRun(_ context.Context, info dynamo.RunInfo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startLocked(info)
}

func (s *Store) startLocked(info dynamo.RunInfo) error {
	if s.meta != nil {
		if err := s.closeLocked(); err != nil {
			return err
		}
	}
	if info.ID == "" {
		return fmt.Errorf("%w: run id is empty", dynamo.ErrInvalidConfig)
	}

	dir := s.runDir(info.ID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	meta := &RunMetadata{
		ID:        info.ID,
		StartedAt: info.StartedAt,
		Seed:      info.Seed,
		Dt:        info.Dt,
		Duration:  info.Duration,
		MaxTicks:  info.MaxTicks,
		Source:    info.Source,
	}
	if err := writeMetadata(dir, meta); err != nil {
		return err
	}

	ticks, err := createCSV(filepath.Join(dir, ticksFile), tickHeader)
	if err != nil {
		return err
	}
	modules, err := createCSV(filepath.Join(dir, modulesFile), moduleHeader)
	if err != nil {
		ticks.close()
		return err
	}

	s.meta, s.ticks, s.modules, s.nextID = meta, ticks, modules, 1
	return nil
}

// Persist appends one tick row and its four module rows, all or none. A tick that arrives
// before StartRun opens a run named after the record's run id.
func (s *Store) Persist(ctx context.Context, rec dynamo.TickRecord) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.meta == nil {
		if err := s.startLocked(dynamo.RunInfo{ID: rec.RunID, StartedAt: rec.Timestamp}); err != nil {
			return 0, err
		}
	}

	id := s.nextID
	mods := make([][]string, 0, dynamo.NumModules)
	for _, m := range rec.Modules {
		mods = append(mods, moduleRow(id, m))
	}

	// modules first so a reader never sees a tick without its modules; a
	// failed tick write takes the module rows back out
	before := s.modules.size
	if err := s.modules.append(mods...); err != nil {
		return 0, err
	}
	if err := s.ticks.append(tickRow(id, rec)); err != nil {
		return 0, errors.Join(err, s.modules.truncate(before))
	}

	s.nextID++
	return id, nil
}

func (s *Store) FinishRun(_ context.Context, sum dynamo.RunSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.meta == nil || s.meta.ID != sum.ID {
		return fmt.Errorf("finish run %s: %w", sum.ID, dynamo.ErrRunNotFound)
	}
	s.meta.EndedAt = sum.EndedAt
	s.meta.Ticks = sum.Ticks
	s.meta.Persisted = sum.Persisted
	s.meta.Failed = sum.Failed
	s.meta.Metrics = sum.Metrics
	return writeMetadata(s.runDir(s.meta.ID), s.meta)
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeLocked()
}

func (s *Store) closeLocked() error {
	if s.meta == nil {
		return nil
	}
	err := errors.Join(s.ticks.close(), s.modules.close())
	s.meta, s.ticks, s.modules = nil, nil, nil
	return err
}

func writeMetadata(dir string, meta *RunMetadata) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}
	tmp := filepath.Join(dir, metadataFile+".tmp")
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, filepath.Join(dir, metadataFile))
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func tickRow(id int64, rec dynamo.TickRecord) []string {
	return []string{
		strconv.FormatInt(id, 10),
		rec.RunID,
		rec.Timestamp.Format(time.RFC3339Nano),
		strconv.FormatInt(rec.ElapsedMS(), 10),
		strconv.FormatInt(rec.Tick, 10),
		formatFloat(rec.BatteryV),
		formatFloat(rec.Command.Vx),
		formatFloat(rec.Command.Vy),
		formatFloat(rec.Command.Omega),
		formatFloat(rec.Yaw),
	}
}

func moduleRow(tickID int64, m dynamo.ModuleRecord) []string {
	return []string{
		strconv.FormatInt(tickID, 10),
		m.Module.String(),
		formatFloat(m.CmdAngle),
		formatFloat(m.MeasAngle),
		formatFloat(m.CmdSpeed),
		formatFloat(m.MeasSpeed),
		formatFloat(m.DriveApplied),
		formatFloat(m.TurnApplied),
		formatFloat(m.DriveCurrent),
		formatFloat(m.TurnCurrent),
		formatFloat(m.DriveTemp),
		formatFloat(m.TurnTemp),
	}
}

// List returns the metadata of every stored run, oldest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool { return runs[i].StartedAt.Before(runs[j].StartedAt) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.runDir(runID), metadataFile))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("run %s: %w", runID, dynamo.ErrRunNotFound)
		}
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("run %s metadata: %w", runID, err)
	}
	return &meta, nil
}

// LoadTicks reassembles the stored records of a run in tick order.
func (s *Store) LoadTicks(runID string) ([]dynamo.TickRecord, error) {
	dir := s.runDir(runID)

	tickRows, err := readCSV(filepath.Join(dir, ticksFile))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("run %s: %w", runID, dynamo.ErrRunNotFound)
		}
		return nil, err
	}
	moduleRows, err := readCSV(filepath.Join(dir, modulesFile))
	if err != nil {
		return nil, err
	}

	recs := make([]dynamo.TickRecord, 0, len(tickRows))
	index := make(map[int64]int, len(tickRows))
	for _, row := range tickRows {
		id, rec, err := parseTickRow(row)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", ticksFile, err)
		}
		index[id] = len(recs)
		recs = append(recs, rec)
	}

	for _, row := range moduleRows {
		tickID, m, err := parseModuleRow(row)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", modulesFile, err)
		}
		i, ok := index[tickID]
		if !ok {
			continue
		}
		recs[i].Modules[m.Module] = m
	}

	return recs, nil
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) < 2 {
		return nil, nil
	}
	return rows[1:], nil
}

type parser struct {
	row []string
	err error
}

func (p *parser) float(i int) float64 {
	if p.err != nil {
		return 0
	}
	if i >= len(p.row) {
		p.err = fmt.Errorf("row has %d fields, need %d", len(p.row), i+1)
		return 0
	}
	v, err := strconv.ParseFloat(p.row[i], 64)
	if err != nil {
		p.err = err
	}
	return v
}

func (p *parser) int(i int) int64 {
	if p.err != nil {
		return 0
	}
	if i >= len(p.row) {
		p.err = fmt.Errorf("row has %d fields, need %d", len(p.row), i+1)
		return 0
	}
	v, err := strconv.ParseInt(p.row[i], 10, 64)
	if err != nil {
		p.err = err
	}
	return v
}

func parseTickRow(row []string) (int64, dynamo.TickRecord, error) {
	if len(row) < len(tickHeader) {
		return 0, dynamo.TickRecord{}, fmt.Errorf("tick row has %d fields, want %d", len(row), len(tickHeader))
	}
	p := &parser{row: row}
	ts, err := time.Parse(time.RFC3339Nano, row[2])
	if err != nil {
		return 0, dynamo.TickRecord{}, err
	}

	id := p.int(0)
	rec := dynamo.TickRecord{
		RunID:     row[1],
		Timestamp: ts,
		Elapsed:   float64(p.int(3)) / 1000,
		Tick:      p.int(4),
		BatteryV:  p.float(5),
		Command:   dynamo.Command{Vx: p.float(6), Vy: p.float(7), Omega: p.float(8)},
		Yaw:       p.float(9),
	}
	return id, rec, p.err
}

func parseModuleRow(row []string) (int64, dynamo.ModuleRecord, error) {
	if len(row) < len(moduleHeader) {
		return 0, dynamo.ModuleRecord{}, fmt.Errorf("module row has %d fields, want %d", len(row), len(moduleHeader))
	}
	mod, err := dynamo.ParseModuleID(row[1])
	if err != nil {
		return 0, dynamo.ModuleRecord{}, err
	}

	p := &parser{row: row}
	tickID := p.int(0)
	m := dynamo.ModuleRecord{
		Module:       mod,
		CmdAngle:     p.float(2),
		MeasAngle:    p.float(3),
		CmdSpeed:     p.float(4),
		MeasSpeed:    p.float(5),
		DriveApplied: p.float(6),
		TurnApplied:  p.float(7),
		DriveCurrent: p.float(8),
		TurnCurrent:  p.float(9),
		DriveTemp:    p.float(10),
		TurnTemp:     p.float(11),
	}
	return tickID, m, p.err
}

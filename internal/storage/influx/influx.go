// Package influx writes tick records to InfluxDB 2.x as line protocol. When
// the server cannot be reached at startup, points go to a gzip-compressed
// backup file instead so they can be imported later.
package influx

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/rs/zerolog"

	"github.com/san-kum/swervesim/internal/dynamo"
)

const (
	TickMeasurement   = "swerve_tick"
	ModuleMeasurement = "swerve_module"
)

type Config struct {
	URL        string
	Token      string
	Org        string
	Bucket     string
	BackupPath string
}

// Writer is the part of the InfluxDB blocking write API the sink uses.
type Writer interface {
	WritePoint(ctx context.Context, point ...*write.Point) error
}

type Sink struct {
	writer Writer
	client influxdb2.Client
	log    zerolog.Logger
	nextID atomic.Int64

	mu         sync.Mutex
	backup     *gzip.Writer
	backupFile *os.File
}

// Open pings the server and writes to it if it answers, otherwise to
// cfg.BackupPath.
func Open(ctx context.Context, cfg Config, log zerolog.Logger) (*Sink, error) {
	client := influxdb2.NewClientWithOptions(cfg.URL, cfg.Token, influxdb2.DefaultOptions())

	running, err := client.Ping(ctx)
	if err == nil && running {
		log.Info().Str("url", cfg.URL).Str("bucket", cfg.Bucket).Msg("connected to InfluxDB")
		s := New(client.WriteAPIBlocking(cfg.Org, cfg.Bucket), log)
		s.client = client
		return s, nil
	}
	client.Close()

	if cfg.BackupPath == "" {
		return nil, fmt.Errorf("influxdb at %s unreachable and no backup path set: %w", cfg.URL, err)
	}
	log.Warn().Err(err).Str("backup_path", cfg.BackupPath).Msg("InfluxDB unreachable, writing to backup file")
	return OpenBackup(cfg.BackupPath, log)
}

// New wraps an existing writer.
func New(w Writer, log zerolog.Logger) *Sink {
	return &Sink{writer: w, log: log}
}

// OpenBackup writes gzip-compressed line protocol to path, appending if it
// exists.
func OpenBackup(path string, log zerolog.Logger) (*Sink, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("creating backup file: %w", err)
	}
	return &Sink{log: log, backup: gzip.NewWriter(f), backupFile: f}, nil
}

// Points converts a record into one tick point and one point per module.
func Points(rec dynamo.TickRecord) []*write.Point {
	pts := make([]*write.Point, 0, 1+dynamo.NumModules)
	pts = append(pts, write.NewPoint(
		TickMeasurement,
		map[string]string{"run_id": rec.RunID},
		map[string]interface{}{
			"tick":       rec.Tick,
			"elapsed_ms": rec.ElapsedMS(),
			"battery_v":  rec.BatteryV,
			"vx_cmd":     rec.Command.Vx,
			"vy_cmd":     rec.Command.Vy,
			"omega_cmd":  rec.Command.Omega,
			"yaw_deg":    rec.Yaw,
		},
		rec.Timestamp,
	))

	for _, m := range rec.Modules {
		pts = append(pts, write.NewPoint(
			ModuleMeasurement,
			map[string]string{"run_id": rec.RunID, "module": m.Module.String()},
			map[string]interface{}{
				"tick":              rec.Tick,
				"cmd_angle_deg":     m.CmdAngle,
				"meas_angle_deg":    m.MeasAngle,
				"cmd_rpm":           m.CmdSpeed,
				"meas_rpm":          m.MeasSpeed,
				"drive_applied_pct": m.DriveApplied,
				"turn_applied_pct":  m.TurnApplied,
				"drive_current_a":   m.DriveCurrent,
				"turn_current_a":    m.TurnCurrent,
				"drive_temp_c":      m.DriveTemp,
				"turn_temp_c":       m.TurnTemp,
			},
			rec.Timestamp,
		))
	}
	return pts
}

// Persist sends all five points in one write, so a tick is stored whole or
// not at all.
func (s *Sink) Persist(ctx context.Context, rec dynamo.TickRecord) (int64, error) {
	pts := Points(rec)

	if s.writer != nil {
		if err := s.writer.WritePoint(ctx, pts...); err != nil {
			return 0, fmt.Errorf("writing to influxdb: %w", err)
		}
		return s.nextID.Add(1), nil
	}

	var buf bytes.Buffer
	for _, p := range pts {
		buf.WriteString(write.PointToLineProtocol(p, time.Nanosecond))
		buf.WriteByte('\n')
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.backup == nil {
		return 0, errors.New("influx sink closed")
	}
	if _, err := s.backup.Write(buf.Bytes()); err != nil {
		return 0, fmt.Errorf("writing influx backup: %w", err)
	}
	return s.nextID.Add(1), nil
}

// Backup reports whether points are going to the backup file.
func (s *Sink) Backup() bool {
	return s.writer == nil
}

func (s *Sink) Close() error {
	if s.client != nil {
		s.client.Close()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.backup == nil {
		return nil
	}
	err := errors.Join(s.backup.Close(), s.backupFile.Close())
	s.backup, s.backupFile = nil, nil
	return err
}

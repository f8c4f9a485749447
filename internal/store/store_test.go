package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/san-kum/swervesim/internal/dynamo"
	"github.com/san-kum/swervesim/internal/storage"
)

func seed(t *testing.T) *storage.Store {
	t.Helper()
	st := storage.New(t.TempDir())
	ctx := context.Background()
	if err := st.StartRun(ctx, dynamo.RunInfo{ID: "r1", StartedAt: time.Now(), Seed: 42}); err != nil {
		t.Fatal(err)
	}
	for i := int64(0); i < 3; i++ {
		rec := dynamo.TickRecord{RunID: "r1", Tick: i, BatteryV: 12 - float64(i)/10, Timestamp: time.Now()}
		rec.Modules[dynamo.RL] = dynamo.ModuleRecord{Module: dynamo.RL, MeasSpeed: float64(100 * i)}
		if _, err := st.Persist(ctx, rec); err != nil {
			t.Fatal(err)
		}
	}
	if err := st.Close(); err != nil {
		t.Fatal(err)
	}
	return st
}

func TestWriteJSON(t *testing.T) {
	st := seed(t)
	meta, err := st.Load("r1")
	if err != nil {
		t.Fatal(err)
	}
	recs, err := st.LoadTicks("r1")
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := WriteJSON(&buf, meta, recs); err != nil {
		t.Fatalf("write: %v", err)
	}

	var got ExportData
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Run.ID != "r1" || got.Run.Seed != 42 {
		t.Errorf("run = %+v", got.Run)
	}
	if got.Ticks != 3 || len(got.Records) != 3 {
		t.Errorf("expected 3 records, got %d/%d", got.Ticks, len(got.Records))
	}
	if got.Records[2].Modules[dynamo.RL].MeasSpeed != 200 {
		t.Errorf("module data lost: %+v", got.Records[2].Modules)
	}
}

func TestExportRun(t *testing.T) {
	st := seed(t)
	path := filepath.Join(t.TempDir(), "r1.json")

	if err := ExportRun(st, "r1", path); err != nil {
		t.Fatalf("export: %v", err)
	}
	if err := ExportRun(st, "nope", path); !errors.Is(err, dynamo.ErrRunNotFound) {
		t.Errorf("expected ErrRunNotFound, got %v", err)
	}
}

func TestSeries(t *testing.T) {
	recs := make([]dynamo.TickRecord, 2)
	recs[0].BatteryV, recs[1].BatteryV = 12.5, 12.25
	recs[1].Modules[dynamo.FR].MeasAngle = 45

	tests := []struct {
		name string
		want []float64
	}{
		{"battery_v", []float64{12.5, 12.25}},
		{"FR.meas_angle_deg", []float64{0, 45}},
		{"fr.meas_angle_deg", []float64{0, 45}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Series(recs, tt.name)
			if err != nil {
				t.Fatal(err)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("got %v, want %v", got, tt.want)
				}
			}
		})
	}

	for _, bad := range []string{"nope", "XX.meas_rpm", "FL.nope"} {
		if _, err := Series(recs, bad); err == nil {
			t.Errorf("%s: expected error", bad)
		}
	}
	if _, err := Series(recs, "XX.meas_rpm"); !errors.Is(err, dynamo.ErrUnknownModule) {
		t.Errorf("expected ErrUnknownModule, got %v", err)
	}
}

func TestSeriesNames(t *testing.T) {
	names := SeriesNames()
	if len(names) != 7+4*10 {
		t.Errorf("got %d names", len(names))
	}
	for _, n := range names {
		if _, err := Series(nil, n); err != nil {
			t.Errorf("%s: %v", n, err)
		}
	}
}

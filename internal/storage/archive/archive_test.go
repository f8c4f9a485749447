package archive

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/swervesim/internal/dynamo"
)

var (
	_ dynamo.Sink        = (*Sink)(nil)
	_ dynamo.RunRecorder = (*Sink)(nil)
)

func record(runID string, tick int64) dynamo.TickRecord {
	rec := dynamo.TickRecord{
		RunID:     runID,
		Tick:      tick,
		Elapsed:   float64(tick) * 0.005,
		Timestamp: time.Date(2024, 2, 2, 0, 0, 0, int(tick)*5e6, time.UTC),
		BatteryV:  12.1,
		Command:   dynamo.Command{Vx: 0.3, Omega: -0.2},
		Yaw:       -4.5,
	}
	for i, id := range dynamo.ModuleIDs {
		rec.Modules[i] = dynamo.ModuleRecord{Module: id, MeasAngle: float64(i) * 1.5, MeasSpeed: 321.25}
	}
	return rec
}

func TestRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)
	ctx := context.Background()

	require.NoError(t, s.StartRun(ctx, dynamo.RunInfo{ID: "run-z"}))
	var want []dynamo.TickRecord
	for i := int64(0); i < 50; i++ {
		rec := record("run-z", i)
		want = append(want, rec)
		id, err := s.Persist(ctx, rec)
		require.NoError(t, err)
		assert.Equal(t, i+1, id)
	}
	assert.Equal(t, Path(dir, "run-z"), s.File())
	require.NoError(t, s.Close())

	got, err := Read(Path(dir, "run-z"))
	require.NoError(t, err)
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].Tick, got[i].Tick)
		assert.Equal(t, want[i].Modules, got[i].Modules)
		assert.True(t, want[i].Timestamp.Equal(got[i].Timestamp))
	}
}

func TestPersist_OpensFromRecord(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)

	_, err := s.Persist(context.Background(), record("implicit", 0))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = os.Stat(Path(dir, "implicit"))
	assert.NoError(t, err)
}

func TestClose_Idempotent(t *testing.T) {
	s := New(t.TempDir())
	assert.NoError(t, s.Close())
	assert.NoError(t, s.Close())
}

func TestStartRun_EmptyID(t *testing.T) {
	s := New(t.TempDir())
	assert.ErrorIs(t, s.StartRun(context.Background(), dynamo.RunInfo{}), dynamo.ErrInvalidConfig)
}

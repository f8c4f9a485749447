package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/san-kum/swervesim/internal/dynamo"
)

func TestSink(t *testing.T) {
	s := New()
	ctx := context.Background()

	for i := int64(0); i < 3; i++ {
		id, err := s.Persist(ctx, dynamo.TickRecord{Tick: i})
		if err != nil {
			t.Fatalf("persist: %v", err)
		}
		if id != i+1 {
			t.Errorf("id = %d, want %d", id, i+1)
		}
	}

	recs := s.Records()
	if len(recs) != 3 || recs[2].Tick != 2 {
		t.Errorf("unexpected records: %+v", recs)
	}

	if err := s.Close(); err != nil || !s.Closed() {
		t.Error("sink not closed")
	}
}

func TestSink_Fail(t *testing.T) {
	boom := errors.New("boom")
	s := New()
	s.Fail = func(rec dynamo.TickRecord) error {
		if rec.Tick == 1 {
			return boom
		}
		return nil
	}

	ctx := context.Background()
	for i := int64(0); i < 3; i++ {
		_, err := s.Persist(ctx, dynamo.TickRecord{Tick: i})
		if i == 1 && !errors.Is(err, boom) {
			t.Errorf("tick 1: got %v, want boom", err)
		}
	}
	if n := len(s.Records()); n != 2 {
		t.Errorf("stored %d records, want 2", n)
	}
}

func TestSink_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := New().Persist(ctx, dynamo.TickRecord{}); !errors.Is(err, context.Canceled) {
		t.Errorf("got %v, want context.Canceled", err)
	}
}

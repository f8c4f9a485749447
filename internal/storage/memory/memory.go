// Package memory holds sinks that never leave the process.
package memory

import (
	"context"
	"sync"

	"github.com/san-kum/swervesim/internal/dynamo"
)

// Discard accepts every tick and keeps nothing.
type Discard struct{}

func (Discard) Persist(context.Context, dynamo.TickRecord) (int64, error) { return 0, nil }
func (Discard) Close() error                                              { return nil }

// Sink keeps every record in memory. It is safe for concurrent use.
type Sink struct {
	mu      sync.Mutex
	records []dynamo.TickRecord
	runs    []dynamo.RunInfo
	summary []dynamo.RunSummary
	closed  bool

	// Fail, when set, is consulted before each tick is stored.
	Fail func(rec dynamo.TickRecord) error
}

func New() *Sink {
	return &Sink{}
}

func (s *Sink) StartRun(_ context.Context, info dynamo.RunInfo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs = append(s.runs, info)
	return nil
}

func (s *Sink) FinishRun(_ context.Context, sum dynamo.RunSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summary = append(s.summary, sum)
	return nil
}

func (s *Sink) Persist(ctx context.Context, rec dynamo.TickRecord) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if s.Fail != nil {
		if err := s.Fail(rec); err != nil {
			return 0, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	return int64(len(s.records)), nil
}

func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Records returns a copy of everything stored so far.
func (s *Sink) Records() []dynamo.TickRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]dynamo.TickRecord, len(s.records))
	copy(out, s.records)
	return out
}

func (s *Sink) Runs() []dynamo.RunInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]dynamo.RunInfo(nil), s.runs...)
}

func (s *Sink) Summaries() []dynamo.RunSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]dynamo.RunSummary(nil), s.summary...)
}

func (s *Sink) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

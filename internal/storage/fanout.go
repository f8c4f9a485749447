package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/san-kum/swervesim/internal/dynamo"
)

// Fanout persists each record to every sink in order. It is not atomic
// across sinks: a failure in one does not undo the others.
type Fanout struct {
	sinks []dynamo.Sink
	names []string
}

func NewFanout(names []string, sinks []dynamo.Sink) *Fanout {
	return &Fanout{sinks: sinks, names: names}
}

func (f *Fanout) name(i int) string {
	if i < len(f.names) {
		return f.names[i]
	}
	return fmt.Sprintf("sink %d", i)
}

// Persist returns the first sink's id.
func (f *Fanout) Persist(ctx context.Context, rec dynamo.TickRecord) (int64, error) {
	var (
		first int64
		errs  []error
	)
	for i, s := range f.sinks {
		id, err := s.Persist(ctx, rec)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", f.name(i), err))
			continue
		}
		if i == 0 {
			first = id
		}
	}
	return first, errors.Join(errs...)
}

func (f *Fanout) StartRun(ctx context.Context, info dynamo.RunInfo) error {
	var errs []error
	for i, s := range f.sinks {
		if r, ok := s.(dynamo.RunRecorder); ok {
			if err := r.StartRun(ctx, info); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", f.name(i), err))
			}
		}
	}
	return errors.Join(errs...)
}

func (f *Fanout) FinishRun(ctx context.Context, sum dynamo.RunSummary) error {
	var errs []error
	for i, s := range f.sinks {
		if r, ok := s.(dynamo.RunRecorder); ok {
			if err := r.FinishRun(ctx, sum); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", f.name(i), err))
			}
		}
	}
	return errors.Join(errs...)
}

// Close closes every sink, even after a failure.
func (f *Fanout) Close() error {
	var errs []error
	for i, s := range f.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", f.name(i), err))
		}
	}
	return errors.Join(errs...)
}

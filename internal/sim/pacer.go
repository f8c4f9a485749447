package sim

import (
	"context"
	"time"
)

// Pacer decides how long the loop waits between ticks.
type Pacer interface {
	Wait(ctx context.Context) error
}

// NoPacing runs ticks back to back.
type NoPacing struct{}

func (NoPacing) Wait(ctx context.Context) error { return ctx.Err() }

// RealTime spaces ticks one period apart on the wall clock. Deadlines are
// absolute, so slow ticks do not accumulate drift.
type RealTime struct {
	period time.Duration
	next   time.Time
	now    func() time.Time
}

func NewRealTime(period time.Duration) *RealTime {
	return &RealTime{period: period, now: time.Now}
}

func (r *RealTime) Wait(ctx context.Context) error {
	now := r.now()
	if r.next.IsZero() {
		r.next = now
	}
	r.next = r.next.Add(r.period)

	d := r.next.Sub(now)
	if d <= 0 {
		// fell behind by more than a period; restart the schedule
		if -d > r.period {
			r.next = now
		}
		return ctx.Err()
	}

	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

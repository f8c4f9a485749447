package sim

import (
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/san-kum/swervesim/internal/sim"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}

type instruments struct {
	ticks    metric.Int64Counter
	failures metric.Int64Counter
	persist  metric.Float64Histogram
}

func newInstruments(m metric.Meter) (*instruments, error) {
	var (
		in  instruments
		err error
	)

	in.ticks, err = m.Int64Counter(
		"swervesim.ticks",
		metric.WithDescription("Ticks simulated"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating tick counter: %w", err)
	}

	in.failures, err = m.Int64Counter(
		"swervesim.sink.failures",
		metric.WithDescription("Ticks the sink failed to persist"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating failure counter: %w", err)
	}

	in.persist, err = m.Float64Histogram(
		"swervesim.sink.persist_duration",
		metric.WithDescription("Time spent persisting one tick"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating persist histogram: %w", err)
	}

	return &in, nil
}

func runAttr(runID string) metric.MeasurementOption {
	return metric.WithAttributes(attribute.String("run_id", runID))
}

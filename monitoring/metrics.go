package monitoring

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/sarchlab/reactor/sim/model"
	"github.com/sarchlab/reactor/sim/timing"
)

const meterName = "github.com/sarchlab/reactor"

// MetricsMonitor is an engine monitor that records OpenTelemetry metrics
// through the global meter provider.
type MetricsMonitor struct {
	steps   metric.Int64Counter
	advance metric.Float64Histogram
	runs    metric.Int64Counter

	counted uint64
	last    timing.VTimeInSec
}

// NewMetricsMonitor creates the instruments of a MetricsMonitor. Configure
// the meter provider with otel.SetMeterProvider before calling it.
func NewMetricsMonitor() (*MetricsMonitor, error) {
	meter := otel.Meter(meterName)

	steps, err := meter.Int64Counter("reactor.steps",
		metric.WithDescription("Number of simulation steps"),
	)
	if err != nil {
		return nil, err
	}

	advance, err := meter.Float64Histogram("reactor.time_advance",
		metric.WithDescription("Simulated time elapsed per reported step"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	runs, err := meter.Int64Counter("reactor.runs",
		metric.WithDescription("Number of finished simulations"),
	)
	if err != nil {
		return nil, err
	}

	return &MetricsMonitor{
		steps:   steps,
		advance: advance,
		runs:    runs,
	}, nil
}

// Initialized resets the per-run state.
func (m *MetricsMonitor) Initialized(_ model.Environment) error {
	m.counted = 0
	m.last = timing.Zero

	return nil
}

// StepDone counts the steps done since the last report. A single report may
// stand for several steps when the batch engine aggregates them.
func (m *MetricsMonitor) StepDone(
	_ model.Environment,
	_ model.Reaction,
	now timing.VTimeInSec,
	step uint64,
) error {
	ctx := context.Background()

	if step+1 > m.counted {
		m.steps.Add(ctx, int64(step+1-m.counted))
		m.counted = step + 1
	}

	m.advance.Record(ctx, float64(now.Minus(m.last)))
	m.last = now

	return nil
}

// Finished counts the run.
func (m *MetricsMonitor) Finished(
	_ model.Environment,
	_ timing.VTimeInSec,
	_ uint64,
) error {
	m.runs.Add(context.Background(), 1)

	return nil
}

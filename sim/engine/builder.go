package engine

import (
	"log/slog"
	"runtime"

	"github.com/sarchlab/reactor/sim/model"
	"github.com/sarchlab/reactor/sim/scheduling"
	"github.com/sarchlab/reactor/sim/timing"
)

// Builder can build sequential engines.
type Builder struct {
	logger    *slog.Logger
	scheduler scheduling.Scheduler[model.Reaction]
	maxSteps  uint64
	finalTime timing.VTimeInSec
	monitors  []Monitor
}

// MakeBuilder creates a builder with default parameters. By default, the
// simulation runs until no reaction can happen.
func MakeBuilder() Builder {
	return Builder{
		finalTime: timing.Infinity,
	}
}

// WithLogger sets the logger of the engine.
func (b Builder) WithLogger(logger *slog.Logger) Builder {
	b.logger = logger
	return b
}

// WithScheduler sets the scheduler that orders the reactions.
func (b Builder) WithScheduler(
	s scheduling.Scheduler[model.Reaction],
) Builder {
	b.scheduler = s
	return b
}

// WithMaxSteps terminates the simulation after the given number of steps.
// Zero means no limit.
func (b Builder) WithMaxSteps(n uint64) Builder {
	b.maxSteps = n
	return b
}

// WithFinalTime terminates the simulation before any reaction that would
// happen after t.
func (b Builder) WithFinalTime(t timing.VTimeInSec) Builder {
	b.finalTime = t
	return b
}

// WithMonitor registers a monitor from the start.
func (b Builder) WithMonitor(m Monitor) Builder {
	b.monitors = append(b.monitors[:len(b.monitors):len(b.monitors)], m)
	return b
}

// Build creates an engine that simulates env. The engine binds itself to the
// environment to receive its changes.
func (b Builder) Build(
	env model.Environment,
	graph model.DependencyGraph,
) *Engine {
	scheduler := b.scheduler
	if scheduler == nil {
		scheduler = scheduling.NewIndexedPriorityScheduler[model.Reaction]()
	}

	e := newEngine(env, graph, scheduler, loggerOrDiscard(b.logger))
	e.maxSteps = b.maxSteps
	e.finalTime = b.finalTime

	for _, m := range b.monitors {
		e.AddMonitor(m)
	}

	return e
}

// BatchBuilder can build batch engines.
type BatchBuilder struct {
	base      Builder
	batchSize int
	epsilon   timing.VTimeInSec
	byEpsilon bool
	replay    ReplayStrategy
}

// MakeBatchBuilder creates a builder for batch engines. By default, batches
// hold as many reactions as there are CPUs and every step is replayed.
func MakeBatchBuilder() BatchBuilder {
	return BatchBuilder{
		base:      MakeBuilder(),
		batchSize: runtime.GOMAXPROCS(0),
		replay:    ReplayEach,
	}
}

// WithLogger sets the logger of the engine.
func (b BatchBuilder) WithLogger(logger *slog.Logger) BatchBuilder {
	b.base = b.base.WithLogger(logger)
	return b
}

// WithMaxSteps terminates the simulation after the given number of steps.
func (b BatchBuilder) WithMaxSteps(n uint64) BatchBuilder {
	b.base = b.base.WithMaxSteps(n)
	return b
}

// WithFinalTime terminates the simulation before any reaction that would
// happen after t.
func (b BatchBuilder) WithFinalTime(t timing.VTimeInSec) BatchBuilder {
	b.base = b.base.WithFinalTime(t)
	return b
}

// WithMonitor registers a monitor from the start.
func (b BatchBuilder) WithMonitor(m Monitor) BatchBuilder {
	b.base = b.base.WithMonitor(m)
	return b
}

// WithBatchSize sets the number of workers, which is also the size of a
// batch unless batches are selected by time.
func (b BatchBuilder) WithBatchSize(n int) BatchBuilder {
	b.batchSize = n
	return b
}

// WithEpsilon selects batches of reactions whose times are within eps of
// the previous reaction of the batch.
func (b BatchBuilder) WithEpsilon(eps timing.VTimeInSec) BatchBuilder {
	b.epsilon = eps
	b.byEpsilon = true

	return b
}

// WithReplayStrategy sets how batches are reported to the monitors.
func (b BatchBuilder) WithReplayStrategy(s ReplayStrategy) BatchBuilder {
	b.replay = s
	return b
}

// Build creates a batch engine that simulates env.
func (b BatchBuilder) Build(
	env model.Environment,
	graph model.DependencyGraph,
) *BatchEngine {
	if b.batchSize < 1 {
		panic("engine: batch size must be at least 1")
	}

	var scheduler scheduling.BatchScheduler[model.Reaction]
	if b.byEpsilon {
		scheduler = scheduling.NewEpsilonBatchScheduler[model.Reaction](
			b.epsilon)
	} else {
		scheduler = scheduling.NewFixedBatchScheduler[model.Reaction](
			b.batchSize)
	}

	e := &BatchEngine{
		Engine:         b.base.WithScheduler(scheduler).Build(env, graph),
		batchScheduler: scheduler,
		poolSize:       b.batchSize,
		replay:         b.replay,
	}
	e.Engine.stepper = e

	return e
}

func loggerOrDiscard(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}

	return slog.New(slog.DiscardHandler)
}

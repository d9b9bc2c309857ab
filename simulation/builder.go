package simulation

import (
	"log/slog"
	"runtime"

	"github.com/rs/xid"

	"github.com/sarchlab/reactor/datarecording"
	"github.com/sarchlab/reactor/monitoring"
	"github.com/sarchlab/reactor/sim/engine"
	"github.com/sarchlab/reactor/sim/model"
	"github.com/sarchlab/reactor/sim/timing"
)

// Builder can be used to build a simulation.
type Builder struct {
	logger *slog.Logger

	maxSteps  uint64
	finalTime timing.VTimeInSec

	parallelEngine bool
	batchSize      int
	epsilon        timing.VTimeInSec
	byEpsilon      bool
	replay         engine.ReplayStrategy

	monitorOn   bool
	portNumber  int
	openBrowser bool

	recordOn       bool
	outputFileName string

	metricsOn bool
	monitors  []engine.Monitor
}

// MakeBuilder creates a new builder. By default, the simulation runs on the
// sequential engine until no reaction can happen, without monitoring or
// recording.
func MakeBuilder() Builder {
	return Builder{
		finalTime: timing.Infinity,
		batchSize: runtime.GOMAXPROCS(0),
	}
}

// WithLogger sets the logger of the simulation.
func (b Builder) WithLogger(logger *slog.Logger) Builder {
	b.logger = logger
	return b
}

// WithMaxSteps stops the simulation after n steps. Zero means no limit.
func (b Builder) WithMaxSteps(n uint64) Builder {
	b.maxSteps = n
	return b
}

// WithFinalTime stops the simulation before any reaction after t.
func (b Builder) WithFinalTime(t timing.VTimeInSec) Builder {
	b.finalTime = t
	return b
}

// WithParallelEngine sets the simulation to fire batches of batchSize
// reactions in parallel.
func (b Builder) WithParallelEngine(batchSize int) Builder {
	b.parallelEngine = true
	b.batchSize = batchSize

	return b
}

// WithEpsilon makes the parallel engine select batches by time.
func (b Builder) WithEpsilon(eps timing.VTimeInSec) Builder {
	b.epsilon = eps
	b.byEpsilon = true

	return b
}

// WithReplayStrategy sets how the parallel engine reports batches.
func (b Builder) WithReplayStrategy(s engine.ReplayStrategy) Builder {
	b.replay = s
	return b
}

// WithMonitoring starts a monitoring server on the given port. Zero picks a
// random port.
func (b Builder) WithMonitoring(portNumber int, openBrowser bool) Builder {
	b.monitorOn = true
	b.portNumber = portNumber
	b.openBrowser = openBrowser

	return b
}

// WithDataRecording records every step into a database. An empty file name
// is derived from the ID of the simulation.
func (b Builder) WithDataRecording(fileName string) Builder {
	b.recordOn = true
	b.outputFileName = fileName

	return b
}

// WithMetrics reports OpenTelemetry metrics of the simulation.
func (b Builder) WithMetrics() Builder {
	b.metricsOn = true
	return b
}

// WithMonitor adds a monitor to the engine.
func (b Builder) WithMonitor(m engine.Monitor) Builder {
	b.monitors = append(b.monitors[:len(b.monitors):len(b.monitors)], m)
	return b
}

// Build builds the simulation of env. The monitoring server, if any, is
// already listening when Build returns.
func (b Builder) Build(
	env model.Environment,
	graph model.DependencyGraph,
) (*Simulation, error) {
	s := &Simulation{
		id:     xid.New().String(),
		env:    env,
		logger: b.logger,
	}

	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}

	monitors, err := b.buildMonitors(s)
	if err != nil {
		s.release()
		return nil, err
	}

	s.engine = b.buildEngine(env, graph, monitors)

	if s.server != nil {
		if err := s.startServer(b.openBrowser); err != nil {
			s.release()
			return nil, err
		}
	}

	return s, nil
}

func (b Builder) buildMonitors(s *Simulation) ([]engine.Monitor, error) {
	monitors := []engine.Monitor{engine.NewStepLogger(s.logger)}

	if b.metricsOn {
		metrics, err := monitoring.NewMetricsMonitor()
		if err != nil {
			return nil, err
		}

		monitors = append(monitors, metrics)
	}

	if b.recordOn {
		outputPath := b.outputFileName
		if outputPath == "" {
			outputPath = "reactor_sim_" + s.id
		}

		recorder, err := datarecording.New(outputPath)
		if err != nil {
			return nil, err
		}

		s.dataRecorder = recorder
		s.recordingPath = outputPath

		steps, err := datarecording.NewStepRecorder(recorder)
		if err != nil {
			return nil, err
		}

		monitors = append(monitors, steps)
	}

	if b.monitorOn {
		s.server = monitoring.NewServer().
			WithPortNumber(b.portNumber).
			WithTotalSteps(b.maxSteps).
			WithLogger(s.logger)
		monitors = append(monitors, s.server)
	}

	return append(monitors, b.monitors...), nil
}

func (b Builder) buildEngine(
	env model.Environment,
	graph model.DependencyGraph,
	monitors []engine.Monitor,
) Engine {
	if b.parallelEngine {
		eb := engine.MakeBatchBuilder().
			WithLogger(b.logger).
			WithMaxSteps(b.maxSteps).
			WithFinalTime(b.finalTime).
			WithBatchSize(b.batchSize).
			WithReplayStrategy(b.replay)

		if b.byEpsilon {
			eb = eb.WithEpsilon(b.epsilon)
		}

		for _, m := range monitors {
			eb = eb.WithMonitor(m)
		}

		return eb.Build(env, graph)
	}

	eb := engine.MakeBuilder().
		WithLogger(b.logger).
		WithMaxSteps(b.maxSteps).
		WithFinalTime(b.finalTime)

	for _, m := range monitors {
		eb = eb.WithMonitor(m)
	}

	return eb.Build(env, graph)
}

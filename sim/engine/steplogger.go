package engine

import (
	"context"
	"log/slog"

	"github.com/sarchlab/reactor/sim/model"
	"github.com/sarchlab/reactor/sim/timing"
)

// StepLogger is a monitor that logs every step at the debug level.
type StepLogger struct {
	logger *slog.Logger
}

// NewStepLogger returns a StepLogger that writes into the logger.
func NewStepLogger(logger *slog.Logger) *StepLogger {
	h := new(StepLogger)

	h.logger = logger

	return h
}

// Initialized logs the size of the environment.
func (h *StepLogger) Initialized(env model.Environment) error {
	h.logger.Info("environment ready", "nodes", len(env.Nodes()))
	return nil
}

// StepDone logs the reaction that was selected.
func (h *StepLogger) StepDone(
	_ model.Environment,
	r model.Reaction,
	now timing.VTimeInSec,
	step uint64,
) error {
	if !h.logger.Enabled(context.Background(), slog.LevelDebug) {
		return nil
	}

	attrs := []any{
		"step", step,
		"time", now,
		"reaction", model.NameOf(r),
	}
	if n := r.Node(); n != nil {
		attrs = append(attrs, "node", n.ID())
	}

	h.logger.Debug("step", attrs...)

	return nil
}

// Finished logs where the simulation ended.
func (h *StepLogger) Finished(
	_ model.Environment,
	now timing.VTimeInSec,
	step uint64,
) error {
	h.logger.Info("environment done", "time", now, "steps", step)
	return nil
}

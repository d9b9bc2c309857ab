// Package simulation puts an engine together with the services that observe
// it: monitoring, data recording and metrics.
package simulation

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sarchlab/reactor/datarecording"
	"github.com/sarchlab/reactor/monitoring"
	"github.com/sarchlab/reactor/sim/model"
)

// Engine is what a simulation needs from either engine.
type Engine interface {
	monitoring.Controller
	Run() error
}

// A Simulation is an engine with its services.
type Simulation struct {
	id           string
	env          model.Environment
	engine       Engine
	dataRecorder datarecording.DataRecorder
	server       *monitoring.Server
	logger       *slog.Logger

	// recordingPath is the path given to datarecording.New.
	recordingPath string
}

// ID returns the simulation ID.
func (s *Simulation) ID() string { return s.id }

// Environment returns the simulated environment.
func (s *Simulation) Environment() model.Environment { return s.env }

// GetEngine returns the engine used in the simulation.
func (s *Simulation) GetEngine() Engine { return s.engine }

// GetDataRecorder returns the data recorder, or nil without recording.
func (s *Simulation) GetDataRecorder() datarecording.DataRecorder {
	return s.dataRecorder
}

// RecordingPath returns the path of the recording, or "" without recording.
// Open it with datarecording.OpenStepReader once the simulation is closed.
func (s *Simulation) RecordingPath() string { return s.recordingPath }

// GetServer returns the monitoring server, or nil without monitoring.
func (s *Simulation) GetServer() *monitoring.Server { return s.server }

// Run plays the simulation until it terminates. Cancelling the context
// terminates the simulation.
func (s *Simulation) Run(ctx context.Context) error {
	if err := s.engine.Play(); err != nil {
		return err
	}

	done := make(chan struct{})
	defer close(done)

	go func() {
		select {
		case <-ctx.Done():
			s.logger.Info("simulation interrupted", "id", s.id)
			_ = s.engine.Terminate()
		case <-done:
		}
	}()

	return s.engine.Run()
}

// Close flushes the data recorder and stops the monitoring server.
func (s *Simulation) Close() error {
	return s.release()
}

func (s *Simulation) startServer(openBrowser bool) error {
	s.server.RegisterEngine(s.engine)

	if err := s.server.StartServer(); err != nil {
		s.server = nil
		return err
	}

	if openBrowser {
		if err := s.server.OpenBrowser(); err != nil {
			s.logger.Warn("cannot open browser",
				"url", s.server.URL(), "error", err)
		}
	}

	return nil
}

func (s *Simulation) release() error {
	var errs []error

	if s.dataRecorder != nil {
		errs = append(errs, s.dataRecorder.Close())
	}

	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		errs = append(errs, s.server.StopServer(ctx))
	}

	return errors.Join(errs...)
}

// Package engine runs simulations. An Engine repeatedly selects the reaction
// with the earliest time, executes it, and refreshes the reactions that depend
// on it. Other goroutines control the engine with commands.
package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sarchlab/reactor/sim/model"
	"github.com/sarchlab/reactor/sim/scheduling"
	"github.com/sarchlab/reactor/sim/timing"
)

// stepper performs one macro-step of a simulation.
type stepper interface {
	doStep() error
}

// Engine is a sequential simulation engine.
type Engine struct {
	env       model.Environment
	graph     model.DependencyGraph
	scheduler scheduling.Scheduler[model.Reaction]
	logger    *slog.Logger
	stepper   stepper

	maxSteps  uint64
	finalTime timing.VTimeInSec

	timeLock sync.RWMutex
	now      timing.VTimeInSec
	steps    atomic.Uint64

	status   *statusBoard
	commands *commandQueue
	updates  updateLog
	monitors monitorGate

	// Only touched on the simulation goroutine.
	pauseConditions []pauseCondition

	errLock sync.Mutex
	err     error

	singleRunLock sync.Mutex
}

var _ model.ChangeListener = (*Engine)(nil)

func newEngine(
	env model.Environment,
	graph model.DependencyGraph,
	scheduler scheduling.Scheduler[model.Reaction],
	logger *slog.Logger,
) *Engine {
	e := &Engine{
		env:       env,
		graph:     graph,
		scheduler: scheduler,
		logger:    logger,
		finalTime: timing.Infinity,
		status:    newStatusBoard(StatusInit),
		commands:  newCommandQueue(),
	}
	e.stepper = e

	env.Bind(e)

	return e
}

// Environment returns the environment that the engine simulates.
func (e *Engine) Environment() model.Environment {
	return e.env
}

// Time returns the current simulation time.
func (e *Engine) Time() timing.VTimeInSec {
	return e.readNow()
}

// Step returns the number of steps done so far.
func (e *Engine) Step() uint64 {
	return e.steps.Load()
}

// Status returns the current status of the engine.
func (e *Engine) Status() Status {
	return e.status.load().status
}

// Error returns the error that terminated the simulation, if any.
func (e *Engine) Error() error {
	e.errLock.Lock()
	defer e.errLock.Unlock()

	return e.err
}

// WaitFor blocks until the engine reaches the given status, the status
// becomes unreachable, or the timeout expires. It returns the last status
// observed. A non-positive timeout waits without limit.
func (e *Engine) WaitFor(s Status, timeout time.Duration) Status {
	return e.status.waitFor(s, timeout)
}

// AddMonitor registers a monitor. It waits for any notification in progress.
func (e *Engine) AddMonitor(m Monitor) {
	e.monitors.add(m)
}

// RemoveMonitor unregisters a monitor. It returns false if the monitor was
// not registered.
func (e *Engine) RemoveMonitor(m Monitor) bool {
	return e.monitors.remove(m)
}

// Schedule submits a command. It fails with ErrTerminated once the engine
// has terminated. An accepted command always runs, even if the engine
// terminates before picking it up.
func (e *Engine) Schedule(cmd Command) error {
	if e.Status() == StatusTerminated {
		return ErrTerminated
	}

	if !e.commands.push(cmd) {
		return ErrTerminated
	}

	return nil
}

// Play requests the engine to run.
func (e *Engine) Play() error {
	return e.requestStatus(StatusRunning)
}

// Pause requests the engine to pause.
func (e *Engine) Pause() error {
	return e.requestStatus(StatusPaused)
}

// Terminate requests the engine to stop for good.
func (e *Engine) Terminate() error {
	return e.requestStatus(StatusTerminated)
}

func (e *Engine) requestStatus(s Status) error {
	return e.Schedule(func(e *Engine) error {
		e.setStatus(s)
		return nil
	})
}

// GoToStep runs the simulation until the given number of steps is done and
// then pauses.
func (e *Engine) GoToStep(step uint64) error {
	return e.Schedule(func(e *Engine) error {
		e.goTo(pauseCondition{steps: step})
		return nil
	})
}

// GoToTime runs the simulation until the next reaction would happen after
// the given time and then pauses.
func (e *Engine) GoToTime(t timing.VTimeInSec) error {
	return e.Schedule(func(e *Engine) error {
		e.goTo(pauseCondition{byTime: true, time: t})
		return nil
	})
}

// A pauseCondition pauses the simulation once a number of steps is done, or
// before the first reaction after a time.
type pauseCondition struct {
	steps  uint64
	byTime bool
	time   timing.VTimeInSec
}

func (c pauseCondition) reached(e *Engine) bool {
	if !c.byTime {
		return e.steps.Load() >= c.steps
	}

	if e.Time() >= c.time {
		return true
	}

	next, ok := e.scheduler.Next()

	return !ok || next.Tau() > c.time
}

func (e *Engine) goTo(c pauseCondition) {
	if c.reached(e) {
		e.setStatus(StatusPaused)
		return
	}

	e.pauseConditions = append(e.pauseConditions, c)
	e.setStatus(StatusRunning)
}

// ScheduleReaction starts tracking a reaction. It must be called on the
// simulation goroutine or before Run.
func (e *Engine) ScheduleReaction(r model.Reaction) {
	if e.scheduler.Contains(r) {
		return
	}

	e.graph.CreateDependencies(r)
	r.Initialize(e.Time(), e.env)
	e.scheduler.Add(r)
}

func (e *Engine) unscheduleReaction(r model.Reaction) {
	e.graph.RemoveDependencies(r)

	if e.scheduler.Contains(r) {
		e.scheduler.Remove(r)
	}
}

// Run initializes the simulation and processes commands and steps until the
// simulation terminates. It returns the error that terminated the
// simulation. Run returns immediately if the engine has already run.
func (e *Engine) Run() error {
	e.singleRunLock.Lock()
	defer e.singleRunLock.Unlock()

	if e.Status() != StatusInit {
		return e.Error()
	}

	if err := e.guard(e.initialize); err != nil {
		e.fail(err)
	}

	for e.Status() != StatusTerminated {
		if e.Status() != StatusRunning {
			<-e.commands.wait()
		}

		e.runCommands()

		if e.Status() == StatusRunning {
			if err := e.guard(e.stepper.doStep); err != nil {
				e.fail(err)
			}
		}
	}

	e.runCommandList(e.commands.close())
	e.finish()

	return e.Error()
}

func (e *Engine) initialize() error {
	for _, n := range e.env.Nodes() {
		for _, r := range n.Reactions() {
			e.ScheduleReaction(r)
		}
	}

	for _, r := range e.env.GlobalReactions() {
		e.ScheduleReaction(r)
	}

	if err := e.flushUpdates(); err != nil {
		return err
	}

	e.setStatus(StatusReady)

	e.logger.Info("simulation initialized",
		"nodes", len(e.env.Nodes()),
		"reactions", e.scheduler.Len())

	return e.monitors.notify(func(m Monitor) error {
		return m.Initialized(e.env)
	})
}

func (e *Engine) runCommands() {
	e.runCommandList(e.commands.drain())
}

// runCommandList runs commands in order. A command that finds the engine
// already terminated does not fail the simulation.
func (e *Engine) runCommandList(cmds []Command) {
	for _, cmd := range cmds {
		err := e.guard(func() error { return cmd(e) })
		if err != nil && !errors.Is(err, ErrTerminated) {
			e.fail(err)
		}
	}

	if !e.updates.empty() {
		if err := e.guard(e.flushUpdates); err != nil {
			e.fail(err)
		}
	}
}

// flushUpdates applies the pending updates and reschedules what they affect.
func (e *Engine) flushUpdates() error {
	affected := model.NewReactionSet()
	e.applyUpdates(affected)
	e.reschedule(affected, nil, e.Time())

	return nil
}

func (e *Engine) doStep() error {
	next, ok := e.scheduler.Next()
	if !ok {
		e.terminate("no more reactions")
		return nil
	}

	tau := next.Tau()

	switch {
	case tau.IsInfinite():
		e.terminate("no reaction can happen")
		return nil
	case tau > e.finalTime:
		e.terminate("final time reached")
		return nil
	}

	now := e.Time()
	if tau < now {
		return &SchedulingError{
			Reaction: next,
			Tau:      tau,
			Now:      now,
			Step:     e.steps.Load(),
		}
	}

	e.writeNow(tau)

	if err := e.fire(next, tau); err != nil {
		return err
	}

	step := e.steps.Load()
	err := e.monitors.notify(func(m Monitor) error {
		return m.StepDone(e.env, next, tau, step)
	})
	if err != nil {
		return err
	}

	e.steps.Add(1)
	e.afterStep()

	return nil
}

// fire executes a reaction if it can, refreshes the reactions that depend on
// it, and finally updates the reaction itself.
func (e *Engine) fire(r model.Reaction, now timing.VTimeInSec) error {
	if r.CanExecute() {
		for _, c := range r.Conditions() {
			c.ReactionReady()
		}

		if err := r.Execute(); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrExecution, model.NameOf(r), err)
		}

		affected := e.graph.OutboundDependencies(r).Clone()
		if !e.updates.empty() {
			e.applyUpdates(affected)
			affected.Union(e.graph.OutboundDependencies(r))
		}

		e.reschedule(affected, r, now)
	}

	r.Update(now, true, e.env)

	if e.scheduler.Contains(r) {
		e.scheduler.Update(r)
	}

	return nil
}

// reschedule updates every tracked reaction in affected, except skip, and
// moves the ones whose time changed.
func (e *Engine) reschedule(
	affected *model.ReactionSet,
	skip model.Reaction,
	now timing.VTimeInSec,
) {
	for _, r := range affected.Slice() {
		if r == skip || !e.scheduler.Contains(r) {
			continue
		}

		prev := r.Tau()
		r.Update(now, false, e.env)

		if r.Tau() != prev {
			e.scheduler.Update(r)
		}
	}
}

// afterStep checks the conditions that stop or pause the simulation.
func (e *Engine) afterStep() {
	if e.env.IsTerminated() {
		e.terminate("environment terminated")
		return
	}

	if e.maxSteps > 0 && e.steps.Load() >= e.maxSteps {
		e.terminate("step limit reached")
		return
	}

	remaining := e.pauseConditions[:0]
	paused := false
	for _, c := range e.pauseConditions {
		if c.reached(e) {
			paused = true
			continue
		}

		remaining = append(remaining, c)
	}
	e.pauseConditions = remaining

	if paused {
		e.setStatus(StatusPaused)
	}
}

func (e *Engine) terminate(reason string) {
	e.logger.Info("terminating simulation",
		"reason", reason,
		"time", e.Time(),
		"step", e.steps.Load())
	e.setStatus(StatusTerminated)
}

// setStatus moves to s if s is reachable. Unreachable requests are dropped.
func (e *Engine) setStatus(s Status) {
	cur := e.Status()
	if !s.IsReachableFrom(cur) {
		e.logger.Debug("status change ignored", "from", cur, "to", s)
		return
	}

	if e.status.publish(s) {
		e.logger.Debug("status changed", "from", cur, "to", s)
	}
}

func (e *Engine) finish() {
	e.setStatus(StatusTerminated)

	now, step := e.Time(), e.steps.Load()
	for _, m := range e.monitors.list() {
		err := callMonitor(m, func(m Monitor) error {
			return m.Finished(e.env, now, step)
		})
		if err != nil {
			e.suppress(err)
		}
	}

	if err := e.Error(); err != nil {
		e.logger.Error("simulation failed",
			"time", now, "step", step, "error", err)
		return
	}

	e.logger.Info("simulation finished", "time", now, "step", step)
}

// fail records err as the terminal error and terminates the simulation.
func (e *Engine) fail(err error) {
	e.suppress(err)

	var schedErr *SchedulingError
	if errors.As(err, &schedErr) {
		e.logger.Error("scheduling error", "error", err)
	} else if errors.Is(err, ErrExecution) {
		e.logger.Error("execution error", "error", err)
	}

	e.setStatus(StatusTerminated)
}

// suppress records err as the terminal error, or attaches it to the terminal
// error if there already is one.
func (e *Engine) suppress(err error) {
	e.errLock.Lock()
	defer e.errLock.Unlock()

	if e.err == nil {
		e.err = err
		return
	}

	terminal, ok := e.err.(*TerminalError)
	if !ok {
		terminal = &TerminalError{Primary: e.err}
		e.err = terminal
	}

	terminal.Suppressed = append(terminal.Suppressed, err)
}

// guard runs fn and turns a panic into an error.
func (e *Engine) guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Debug("recovered from panic", "stack", string(debug.Stack()))
			err = recoveredError(r)
		}
	}()

	return fn()
}

func (e *Engine) readNow() timing.VTimeInSec {
	e.timeLock.RLock()
	defer e.timeLock.RUnlock()

	return e.now
}

func (e *Engine) writeNow(t timing.VTimeInSec) {
	e.timeLock.Lock()
	defer e.timeLock.Unlock()

	e.now = t
}

package engine

import (
	"errors"
	"sync"

	"github.com/sarchlab/reactor/sim/model"
	"github.com/sarchlab/reactor/sim/timing"
)

// A Monitor observes a simulation. All the methods are called from the
// simulation goroutine and must not block for long.
type Monitor interface {
	// Initialized is called once all the reactions are scheduled.
	Initialized(env model.Environment) error

	// StepDone is called after each step, with the reaction that was
	// selected, the time it happened, and the number of the step.
	StepDone(
		env model.Environment,
		r model.Reaction,
		now timing.VTimeInSec,
		step uint64,
	) error

	// Finished is called once after the simulation terminates.
	Finished(env model.Environment, now timing.VTimeInSec, step uint64) error
}

// monitorGate lets any number of notifications run together, while adding or
// removing a monitor waits for the notifications to complete. Monitors must
// not add or remove monitors from their callbacks.
type monitorGate struct {
	lock     sync.RWMutex
	monitors []Monitor
}

func (g *monitorGate) add(m Monitor) {
	g.lock.Lock()
	defer g.lock.Unlock()

	g.monitors = append(g.monitors, m)
}

func (g *monitorGate) remove(m Monitor) bool {
	g.lock.Lock()
	defer g.lock.Unlock()

	for i, existing := range g.monitors {
		if existing == m {
			g.monitors = append(g.monitors[:i], g.monitors[i+1:]...)
			return true
		}
	}

	return false
}

func (g *monitorGate) list() []Monitor {
	g.lock.RLock()
	defer g.lock.RUnlock()

	monitors := make([]Monitor, len(g.monitors))
	copy(monitors, g.monitors)

	return monitors
}

// notify calls fn on every monitor, even if some of them fail.
func (g *monitorGate) notify(fn func(m Monitor) error) error {
	g.lock.RLock()
	defer g.lock.RUnlock()

	var errs []error
	for _, m := range g.monitors {
		if err := callMonitor(m, fn); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func callMonitor(m Monitor, fn func(m Monitor) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = recoveredError(r)
		}
	}()

	return fn(m)
}

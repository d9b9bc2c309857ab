package engine

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/sarchlab/reactor/sim/model"
	"github.com/sarchlab/reactor/sim/scheduling"
	"github.com/sarchlab/reactor/sim/timing"
)

// ReplayStrategy decides how the steps of a batch are reported to monitors.
type ReplayStrategy int

const (
	// ReplayEach reports every reaction of a batch, in time order.
	ReplayEach ReplayStrategy = iota

	// ReplayAggregate reports only the last reaction of a batch.
	ReplayAggregate
)

func (s ReplayStrategy) String() string {
	switch s {
	case ReplayEach:
		return "replay"
	case ReplayAggregate:
		return "aggregate"
	default:
		return fmt.Sprintf("ReplayStrategy(%d)", int(s))
	}
}

// A BatchEngine executes a batch of reactions in parallel at each step. The
// reactions of a batch are assumed not to conflict. Conflicts are neither
// detected nor rolled back, so the result only approximates a sequential run.
type BatchEngine struct {
	*Engine

	batchScheduler scheduling.BatchScheduler[model.Reaction]
	poolSize       int
	replay         ReplayStrategy

	pool         *workerPool
	reactionLock sync.Mutex
}

// A batchResult is what a task reports back to the engine.
type batchResult struct {
	reaction model.Reaction
	time     timing.VTimeInSec
	err      error
}

// Run starts the worker pool and runs the simulation. See Engine.Run.
func (e *BatchEngine) Run() error {
	e.pool = newWorkerPool(e.poolSize)
	defer e.pool.stop()

	return e.Engine.Run()
}

func (e *BatchEngine) doStep() error {
	batch := e.runnable(e.batchScheduler.NextBatch())
	if len(batch) == 0 {
		return nil
	}

	taus := make([]timing.VTimeInSec, len(batch))
	for i, r := range batch {
		taus[i] = r.Tau()
	}

	results := make([]batchResult, len(batch))

	var wg sync.WaitGroup
	for i, r := range batch {
		wg.Add(1)
		e.pool.submit(func() {
			defer wg.Done()
			results[i] = e.runTask(r, taus[i])
		})
	}
	wg.Wait()

	var errs []error
	for _, res := range results {
		if res.err != nil {
			e.logger.Error("batch task failed",
				"reaction", model.NameOf(res.reaction),
				"time", res.time,
				"error", res.err)
			errs = append(errs, res.err)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrBatchTask, errors.Join(errs...))
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].time < results[j].time
	})

	base := e.steps.Load()
	last := results[len(results)-1]

	if last.time > e.Time() {
		e.writeNow(last.time)
	}

	// Structural changes of the batch take effect at the end of the batch.
	if err := e.flushUpdates(); err != nil {
		return err
	}

	e.steps.Add(uint64(len(results)))

	if err := e.replayResults(results, base); err != nil {
		return err
	}

	e.afterStep()

	return nil
}

// runnable cuts the batch at the first reaction that should not happen, at
// the step limit and at the targets of GoToStep and GoToTime. It terminates
// the simulation if nothing can run.
func (e *BatchEngine) runnable(batch []model.Reaction) []model.Reaction {
	if len(batch) == 0 {
		e.terminate("no more reactions")
		return nil
	}

	n := 0
	for _, r := range batch {
		tau := r.Tau()
		if tau.IsInfinite() || tau > e.finalTime {
			break
		}

		n++
	}

	if n == 0 {
		if batch[0].Tau().IsInfinite() {
			e.terminate("no reaction can happen")
		} else {
			e.terminate("final time reached")
		}

		return nil
	}

	done := e.steps.Load()
	if e.maxSteps > 0 {
		n = capSteps(n, e.maxSteps, done)
	}

	for _, c := range e.pauseConditions {
		if !c.byTime {
			n = capSteps(n, c.steps, done)
			continue
		}

		for i := 0; i < n; i++ {
			if batch[i].Tau() > c.time {
				n = i
				break
			}
		}
	}

	if n == 0 {
		e.afterStep()
		return nil
	}

	return batch[:n]
}

// capSteps limits a batch of n reactions so that no more than limit steps
// are done.
func capSteps(n int, limit, done uint64) int {
	if done >= limit {
		return 0
	}

	if remaining := limit - done; uint64(n) > remaining {
		return int(remaining)
	}

	return n
}

// runTask fires a reaction of the batch. Updates of reactions and of the
// scheduler are serialized, as reactions of the batch may depend on each
// other.
func (e *BatchEngine) runTask(
	r model.Reaction,
	tau timing.VTimeInSec,
) (res batchResult) {
	res.reaction = r
	res.time = tau

	defer func() {
		if p := recover(); p != nil {
			res.err = recoveredError(p)
		}
	}()

	if r.CanExecute() {
		for _, c := range r.Conditions() {
			c.ReactionReady()
		}

		if err := r.Execute(); err != nil {
			res.err = fmt.Errorf("%w: %s: %w",
				ErrExecution, model.NameOf(r), err)
			return res
		}

		e.reactionLock.Lock()
		e.reschedule(e.graph.OutboundDependencies(r), r, tau)
		e.reactionLock.Unlock()
	}

	e.reactionLock.Lock()
	defer e.reactionLock.Unlock()

	r.Update(tau, true, e.env)

	if e.scheduler.Contains(r) {
		e.scheduler.Update(r)
	}

	return res
}

func (e *BatchEngine) replayResults(results []batchResult, base uint64) error {
	if e.replay == ReplayAggregate {
		last := results[len(results)-1]
		step := base + uint64(len(results)) - 1

		return e.monitors.notify(func(m Monitor) error {
			return m.StepDone(e.env, last.reaction, last.time, step)
		})
	}

	for i, res := range results {
		step := base + uint64(i)
		err := e.monitors.notify(func(m Monitor) error {
			return m.StepDone(e.env, res.reaction, res.time, step)
		})
		if err != nil {
			return err
		}
	}

	return nil
}

// workerPool runs tasks on a fixed number of goroutines.
type workerPool struct {
	tasks chan func()
	wg    sync.WaitGroup
}

func newWorkerPool(size int) *workerPool {
	p := &workerPool{
		tasks: make(chan func()),
	}

	for range size {
		p.wg.Add(1)
		go p.work()
	}

	return p
}

func (p *workerPool) work() {
	defer p.wg.Done()

	for task := range p.tasks {
		task()
	}
}

func (p *workerPool) submit(task func()) {
	p.tasks <- task
}

func (p *workerPool) stop() {
	close(p.tasks)
	p.wg.Wait()
}

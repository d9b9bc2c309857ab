package engine

import (
	"errors"
	"fmt"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/reactor/sim/model"
	"github.com/sarchlab/reactor/sim/timing"
)

var _ = Describe("BatchEngine", func() {
	var (
		env     *fakeEnv
		graph   *fakeGraph
		monitor *recordingMonitor
	)

	BeforeEach(func() {
		graph = newFakeGraph()
		monitor = &recordingMonitor{}
	})

	// independent creates reactions that happen once each, at the given
	// times.
	independent := func(times ...timing.VTimeInSec) []*fakeReaction {
		reactions := make([]*fakeReaction, len(times))
		for i, t := range times {
			reactions[i] = newFakeReaction(fmt.Sprintf("r%d", i), t)
		}

		return reactions
	}

	// build lists the reactions in reverse order, so that the order of the
	// results does not come from the environment.
	build := func(b BatchBuilder, reactions ...*fakeReaction) *BatchEngine {
		list := make([]model.Reaction, 0, len(reactions))
		for i := len(reactions) - 1; i >= 0; i-- {
			list = append(list, reactions[i])
		}

		env = newFakeEnv(list...)

		return b.WithMonitor(monitor).Build(env, graph)
	}

	runToEnd := func(e *BatchEngine) error {
		Expect(e.Play()).To(Succeed())
		return e.Run()
	}

	It("should replay every step in time order", func() {
		reactions := independent(1, 2, 3, 4, 5, 6)
		e := build(MakeBatchBuilder().WithBatchSize(3), reactions...)

		Expect(runToEnd(e)).To(Succeed())

		Expect(monitor.recorded()).To(Equal([]stepRecord{
			{"r0", 1, 0},
			{"r1", 2, 1},
			{"r2", 3, 2},
			{"r3", 4, 3},
			{"r4", 5, 4},
			{"r5", 6, 5},
		}))
		Expect(e.Time()).To(Equal(timing.VTimeInSec(6)))
		Expect(e.Step()).To(Equal(uint64(6)))
		for _, r := range reactions {
			Expect(r.executions.Load()).To(Equal(int32(1)))
		}
	})

	It("should report only the last step of each batch", func() {
		e := build(
			MakeBatchBuilder().
				WithBatchSize(3).
				WithReplayStrategy(ReplayAggregate),
			independent(1, 2, 3, 4, 5, 6)...,
		)

		Expect(runToEnd(e)).To(Succeed())

		Expect(monitor.recorded()).To(Equal([]stepRecord{
			{"r2", 3, 2},
			{"r5", 6, 5},
		}))
		Expect(e.Step()).To(Equal(uint64(6)))
	})

	It("should select batches by time", func() {
		e := build(
			MakeBatchBuilder().
				WithBatchSize(2).
				WithEpsilon(0.5).
				WithReplayStrategy(ReplayAggregate),
			independent(1, 1.2, 1.4, 3)...,
		)

		Expect(runToEnd(e)).To(Succeed())

		Expect(monitor.recorded()).To(Equal([]stepRecord{
			{"r2", 1.4, 2},
			{"r3", 3, 3},
		}))
	})

	It("should give the same result every time", func() {
		var runs [][]stepRecord
		for range 3 {
			graph = newFakeGraph()
			monitor = &recordingMonitor{}
			e := build(
				MakeBatchBuilder().WithBatchSize(4),
				independent(5, 3, 8, 1, 2, 7, 4, 6)...,
			)

			Expect(runToEnd(e)).To(Succeed())
			runs = append(runs, monitor.recorded())
		}

		Expect(runs[1]).To(Equal(runs[0]))
		Expect(runs[2]).To(Equal(runs[0]))
	})

	It("should stop at the step limit", func() {
		reactions := independent(1, 2, 3, 4, 5, 6)
		e := build(
			MakeBatchBuilder().WithBatchSize(3).WithMaxSteps(4),
			reactions...,
		)

		Expect(runToEnd(e)).To(Succeed())

		Expect(e.Step()).To(Equal(uint64(4)))
		executed := int32(0)
		for _, r := range reactions {
			executed += r.executions.Load()
		}
		Expect(executed).To(Equal(int32(4)))
	})

	It("should stop before the final time", func() {
		e := build(
			MakeBatchBuilder().WithBatchSize(3).WithFinalTime(4.5),
			independent(1, 2, 3, 4, 5, 6)...,
		)

		Expect(runToEnd(e)).To(Succeed())

		Expect(e.Step()).To(Equal(uint64(4)))
		Expect(e.Time()).To(Equal(timing.VTimeInSec(4)))
	})

	It("should schedule reactions added by a batch", func() {
		added := newFakeReaction("added", 10)
		reactions := independent(1, 2)
		reactions[0].execute = func() error {
			env.listener.ReactionAdded(added)
			return nil
		}
		e := build(MakeBatchBuilder().WithBatchSize(2), reactions...)

		Expect(runToEnd(e)).To(Succeed())

		records := monitor.recorded()
		Expect(records).To(HaveLen(3))
		Expect(records[2]).To(Equal(stepRecord{"added", 10, 2}))
	})

	It("should schedule reactions added by a batch at the end of it", func() {
		spawned := newFakeReaction("spawned")
		spawned.initial = func(now timing.VTimeInSec) timing.VTimeInSec {
			return now + 0.5
		}
		reactions := independent(1, 2, 3)
		reactions[0].execute = func() error {
			env.listener.ReactionAdded(spawned)
			return nil
		}
		e := build(MakeBatchBuilder().WithBatchSize(3), reactions...)

		Expect(runToEnd(e)).To(Succeed())

		records := monitor.recorded()
		Expect(records).To(Equal([]stepRecord{
			{"r0", 1, 0},
			{"r1", 2, 1},
			{"r2", 3, 2},
			{"spawned", 3.5, 3},
		}))
		for i := 1; i < len(records); i++ {
			Expect(records[i].time).To(BeNumerically(">=", records[i-1].time))
		}
	})

	It("should fail if a task fails", func() {
		boom := errors.New("boom")
		reactions := independent(1, 2, 3)
		reactions[1].execute = func() error { return boom }
		e := build(MakeBatchBuilder().WithBatchSize(3), reactions...)

		err := runToEnd(e)

		Expect(err).To(MatchError(ErrBatchTask))
		Expect(err).To(MatchError(boom))
		Expect(e.Step()).To(BeZero())
		Expect(monitor.recorded()).To(BeEmpty())
	})

	It("should fail if a task panics", func() {
		reactions := independent(1)
		reactions[0].execute = func() error { panic("broken") }
		e := build(MakeBatchBuilder().WithBatchSize(1), reactions...)

		err := runToEnd(e)

		Expect(err).To(MatchError(ErrBatchTask))
		Expect(err).To(MatchError(ErrExecution))
	})

	It("should pause between batches", func() {
		e := build(
			MakeBatchBuilder().WithBatchSize(2),
			newPeriodicReaction("p1", 1),
			newPeriodicReaction("p2", 1),
		)
		done := make(chan error, 1)
		go func() { done <- e.Run() }()

		Expect(e.GoToStep(4)).To(Succeed())
		Expect(e.WaitFor(StatusPaused, time.Second)).To(Equal(StatusPaused))
		Expect(e.Step()).To(Equal(uint64(4)))
		Expect(e.Time()).To(Equal(timing.VTimeInSec(2)))

		Expect(e.Terminate()).To(Succeed())
		Eventually(done).Should(Receive(BeNil()))
	})

	It("should not pass the step to go to", func() {
		e := build(
			MakeBatchBuilder().WithBatchSize(4),
			newPeriodicReaction("p1", 1),
			newPeriodicReaction("p2", 1),
			newPeriodicReaction("p3", 1),
		)
		done := make(chan error, 1)
		go func() { done <- e.Run() }()

		Expect(e.GoToStep(5)).To(Succeed())
		Expect(e.WaitFor(StatusPaused, time.Second)).To(Equal(StatusPaused))
		Expect(e.Step()).To(Equal(uint64(5)))

		Expect(e.Terminate()).To(Succeed())
		Eventually(done).Should(Receive(BeNil()))
	})

	It("should not pass the time to go to", func() {
		reactions := independent(1, 2, 3, 4)
		e := build(MakeBatchBuilder().WithBatchSize(4), reactions...)
		done := make(chan error, 1)
		go func() { done <- e.Run() }()

		Expect(e.GoToTime(2.5)).To(Succeed())
		Expect(e.WaitFor(StatusPaused, time.Second)).To(Equal(StatusPaused))
		Expect(e.Time()).To(Equal(timing.VTimeInSec(2)))
		Expect(e.Step()).To(Equal(uint64(2)))
		Expect(reactions[2].executions.Load()).To(BeZero())

		Expect(e.Terminate()).To(Succeed())
		Eventually(done).Should(Receive(BeNil()))
	})

	It("should refuse an empty worker pool", func() {
		Expect(func() {
			MakeBatchBuilder().WithBatchSize(0).Build(newFakeEnv(), graph)
		}).To(Panic())
	})
})

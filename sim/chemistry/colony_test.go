package chemistry

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/reactor/sim/depgraph"
	"github.com/sarchlab/reactor/sim/engine"
	"github.com/sarchlab/reactor/sim/timing"
)

var _ = Describe("Colony", func() {
	var cfg ColonyConfig

	BeforeEach(func() {
		cfg = DefaultColonyConfig()
		cfg.Seed = 42
		cfg.DeathRate = 0
		cfg.MaxCells = 16
	})

	run := func(cfg ColonyConfig) (*Environment, *engine.Engine) {
		env := NewColony(cfg)
		e := engine.MakeBuilder().Build(env, depgraph.New(env))

		Expect(e.Play()).To(Succeed())
		Expect(e.Run()).To(Succeed())

		return env, e
	}

	It("should start with a single cell", func() {
		env := NewColony(cfg)

		Expect(env.NodeCount()).To(Equal(1))
		Expect(env.Nodes()[0].Reactions()).To(HaveLen(2))
		Expect(env.GlobalReactions()).To(HaveLen(1))
	})

	It("should grow until it is big enough", func() {
		env, e := run(cfg)

		Expect(env.NodeCount()).To(Equal(16))
		Expect(env.IsTerminated()).To(BeTrue())
		Expect(e.Step()).To(BeNumerically(">", 0))
		Expect(e.Time()).To(BeNumerically(">", 0))
	})

	It("should be reproducible", func() {
		_, first := run(cfg)
		_, second := run(cfg)

		Expect(second.Step()).To(Equal(first.Step()))
		Expect(second.Time()).To(Equal(first.Time()))
	})

	It("should stop at the final time", func() {
		env := NewColony(cfg)
		e := engine.MakeBuilder().
			WithFinalTime(1).
			Build(env, depgraph.New(env))

		Expect(e.Play()).To(Succeed())
		Expect(e.Run()).To(Succeed())

		Expect(e.Time()).To(BeNumerically("<=", timing.VTimeInSec(1)))
	})

	It("should die out", func() {
		cfg.DeathRate = 1000
		cfg.FeedRate = 0

		env, e := run(cfg)

		Expect(env.NodeCount()).To(BeZero())
		Expect(e.Error()).ToNot(HaveOccurred())
	})

	It("should grow with the batch engine", func() {
		env := NewColony(cfg)
		e := engine.MakeBatchBuilder().
			WithBatchSize(4).
			Build(env, depgraph.New(env))

		Expect(e.Play()).To(Succeed())
		Expect(e.Run()).To(Succeed())

		Expect(env.NodeCount()).To(BeNumerically(">=", 16))
	})
})

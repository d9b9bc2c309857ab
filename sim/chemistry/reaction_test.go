package chemistry

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/reactor/sim/model"
	"github.com/sarchlab/reactor/sim/timing"
)

var _ = Describe("Reaction", func() {
	var (
		env  *Environment
		cell *Node
		grow ReactionBuilder
	)

	BeforeEach(func() {
		env = NewEnvironment()
		cell = env.NewNode()
		cell.SetConcentration(Nutrient, 4)
		env.AddNode(cell)

		grow = MakeReactionBuilder().
			WithName("grow").
			WithSeed(7).
			WithRate(0.5).
			WithReactants(Nutrient).
			WithAction(ChangeConcentration{Molecule: Nutrient, Delta: -1}).
			WithAction(ChangeConcentration{Molecule: Biomass, Delta: 1})
	})

	It("should follow mass-action kinetics", func() {
		r := grow.Build(env, cell)
		r.Initialize(0, env)

		Expect(r.Propensity()).To(Equal(2.0))
		Expect(r.Tau()).To(BeNumerically(">", 0))
		Expect(r.Tau().IsInfinite()).To(BeFalse())
	})

	It("should never happen without reactants", func() {
		cell.SetConcentration(Nutrient, 0)
		r := grow.Build(env, cell)
		r.Initialize(0, env)

		Expect(r.Tau()).To(Equal(timing.Infinity))
	})

	It("should never happen with a zero rate", func() {
		r := grow.WithRate(0).Build(env, cell)
		r.Initialize(0, env)

		Expect(r.Tau()).To(Equal(timing.Infinity))
	})

	It("should draw the same times from the same seed", func() {
		other := NewEnvironment()
		otherCell := other.NewNode()
		otherCell.SetConcentration(Nutrient, 4)

		r1 := grow.Build(env, cell)
		r2 := grow.Build(other, otherCell)
		r1.Initialize(0, env)
		r2.Initialize(0, other)

		Expect(r1.ID()).To(Equal(r2.ID()))
		Expect(r1.Tau()).To(Equal(r2.Tau()))
	})

	It("should give each reaction its own stream", func() {
		r1 := grow.Build(env, cell)
		r2 := grow.Build(env, cell)
		r1.Initialize(0, env)
		r2.Initialize(0, env)

		Expect(r1.Name()).ToNot(Equal(r2.Name()))
		Expect(r1.Tau()).ToNot(Equal(r2.Tau()))
	})

	It("should rescale the waiting time when the propensity changes", func() {
		r := grow.Build(env, cell)
		r.Initialize(0, env)
		first := r.Tau()

		cell.SetConcentration(Nutrient, 8)
		r.Update(0, false, env)

		Expect(r.Tau()).To(Equal(first / 2))
	})

	It("should keep its time when nothing changed", func() {
		r := grow.Build(env, cell)
		r.Initialize(0, env)
		first := r.Tau()

		r.Update(0.1, false, env)

		Expect(r.Tau()).To(Equal(first))
	})

	It("should wake up when its reactants come back", func() {
		r := grow.Build(env, cell)
		r.Initialize(0, env)

		cell.SetConcentration(Nutrient, 0)
		r.Update(1, false, env)
		Expect(r.Tau()).To(Equal(timing.Infinity))

		cell.SetConcentration(Nutrient, 2)
		r.Update(2, false, env)
		Expect(r.Tau()).To(BeNumerically(">", 2))
		Expect(r.Tau().IsInfinite()).To(BeFalse())
	})

	It("should draw a new time after executing", func() {
		r := grow.Build(env, cell)
		r.Initialize(0, env)
		first := r.Tau()

		Expect(r.CanExecute()).To(BeTrue())
		Expect(r.Execute()).To(Succeed())
		r.Update(first, true, env)

		Expect(cell.Concentration(Nutrient)).To(Equal(3.0))
		Expect(cell.Concentration(Biomass)).To(Equal(1.0))
		Expect(r.Propensity()).To(Equal(1.5))
		Expect(r.Tau()).To(BeNumerically(">", first))
	})

	It("should tell what it reads and writes", func() {
		r := grow.
			WithCondition(ConcentrationAtLeast{Molecule: Biomass}).
			Build(env, cell)

		Expect(r.InboundDependencies()).To(Equal([]model.Dependency{
			"nutrient", "biomass",
		}))
		Expect(r.OutboundDependencies()).To(Equal([]model.Dependency{
			"nutrient", "biomass",
		}))
		Expect(r.InputContext()).To(Equal(model.LocalContext))
		Expect(r.OutputContext()).To(Equal(model.LocalContext))
		Expect(r.Node()).To(BeIdenticalTo(cell))
	})

	It("should be guarded by its conditions", func() {
		r := MakeReactionBuilder().
			WithCondition(ConcentrationAtLeast{
				Molecule:  Biomass,
				Threshold: 10,
			}).
			Build(env, cell)

		Expect(r.CanExecute()).To(BeFalse())

		cell.SetConcentration(Biomass, 10)
		Expect(r.CanExecute()).To(BeTrue())
	})

	It("should have no node when global", func() {
		r := MakeReactionBuilder().
			WithAction(Feed{Molecule: Nutrient, Amount: 1}).
			Build(env, nil)

		Expect(r.Node()).To(BeNil())
		Expect(r.OutputContext()).To(Equal(model.GlobalContext))
	})

	It("should refuse negative rates", func() {
		Expect(func() { grow.WithRate(-1).Build(env, cell) }).To(Panic())
	})
})

var _ = Describe("Actions", func() {
	var (
		env  *Environment
		cell *Node
	)

	BeforeEach(func() {
		env = NewEnvironment()
		cell = env.NewNode()
		cell.SetConcentration(Biomass, 10)
		cell.SetConcentration(Nutrient, 4)
		env.AddNode(cell)
	})

	It("should split a node", func() {
		r := MakeReactionBuilder().WithAction(SplitNode{}).Build(env, cell)
		cell.AddReaction(r)

		Expect(r.Execute()).To(Succeed())

		Expect(env.NodeCount()).To(Equal(2))
		child := env.Nodes()[1].(*Node)
		Expect(child.Concentration(Biomass)).To(Equal(5.0))
		Expect(cell.Concentration(Biomass)).To(Equal(5.0))
		Expect(child.Concentration(Nutrient)).To(Equal(2.0))
		Expect(env.Neighborhood(cell)).To(ConsistOf(child))

		Expect(child.Reactions()).To(HaveLen(1))
		clone := child.Reactions()[0].(*Reaction)
		Expect(clone.ID()).ToNot(Equal(r.ID()))
		Expect(clone.Node()).To(BeIdenticalTo(child))
	})

	It("should remove a dead node", func() {
		r := MakeReactionBuilder().WithAction(Die{}).Build(env, cell)

		Expect(r.Execute()).To(Succeed())

		Expect(env.NodeCount()).To(BeZero())
	})

	It("should spawn reactions", func() {
		template := MakeReactionBuilder().WithName("decay")
		r := MakeReactionBuilder().
			WithAction(SpawnReaction{Template: template}).
			Build(env, cell)

		Expect(r.Execute()).To(Succeed())
		Expect(r.Execute()).To(Succeed())

		Expect(cell.Reactions()).To(HaveLen(2))
	})

	It("should feed every node", func() {
		other := env.NewNode()
		env.AddNode(other)
		r := MakeReactionBuilder().
			WithAction(Feed{Molecule: Nutrient, Amount: 1}).
			Build(env, nil)

		Expect(r.Execute()).To(Succeed())

		Expect(cell.Concentration(Nutrient)).To(Equal(5.0))
		Expect(other.Concentration(Nutrient)).To(Equal(1.0))
	})

	It("should fail node actions on global reactions", func() {
		for _, a := range []Action{
			ChangeConcentration{Molecule: Biomass, Delta: 1},
			SplitNode{},
			Die{},
			SpawnReaction{Template: MakeReactionBuilder()},
		} {
			r := MakeReactionBuilder().WithAction(a).Build(env, nil)
			Expect(r.Execute()).To(MatchError(ErrNoNode))
		}
	})
})

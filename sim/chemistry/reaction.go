package chemistry

import (
	"fmt"
	"hash/fnv"
	"math/rand/v2"

	"github.com/sarchlab/reactor/sim/model"
	"github.com/sarchlab/reactor/sim/timing"
)

// A Condition describes a guard of a reaction independently of the node the
// reaction lives on.
type Condition interface {
	// Bind creates the guard for a node, which is nil for global reactions.
	Bind(env *Environment, n *Node) model.Condition
	Dependencies() []model.Dependency
	Context() model.Context
}

// An Action describes an effect of a reaction independently of the node the
// reaction lives on.
type Action interface {
	// Bind creates the effect for a node, which is nil for global reactions.
	Bind(env *Environment, n *Node) model.Action
	Dependencies() []model.Dependency
	Context() model.Context
}

// ReactionBuilder can build reactions.
type ReactionBuilder struct {
	name       string
	rate       float64
	seed       uint64
	reactants  []Molecule
	conditions []Condition
	actions    []Action
}

// MakeReactionBuilder creates a builder of reactions with a rate of 1.
func MakeReactionBuilder() ReactionBuilder {
	return ReactionBuilder{
		name: "reaction",
		rate: 1,
	}
}

// WithName sets the name of the reactions.
func (b ReactionBuilder) WithName(name string) ReactionBuilder {
	b.name = name
	return b
}

// WithRate sets the kinetic constant.
func (b ReactionBuilder) WithRate(k float64) ReactionBuilder {
	b.rate = k
	return b
}

// WithSeed sets the seed of the random streams of the reactions.
func (b ReactionBuilder) WithSeed(seed uint64) ReactionBuilder {
	b.seed = seed
	return b
}

// WithReactants sets the molecules whose concentrations multiply the rate.
func (b ReactionBuilder) WithReactants(molecules ...Molecule) ReactionBuilder {
	b.reactants = append(b.reactants[:len(b.reactants):len(b.reactants)],
		molecules...)
	return b
}

// WithCondition adds a guard.
func (b ReactionBuilder) WithCondition(c Condition) ReactionBuilder {
	b.conditions = append(b.conditions[:len(b.conditions):len(b.conditions)],
		c)
	return b
}

// WithAction adds an effect.
func (b ReactionBuilder) WithAction(a Action) ReactionBuilder {
	b.actions = append(b.actions[:len(b.actions):len(b.actions)], a)
	return b
}

// Build creates a reaction on node n, or a global reaction if n is nil. The
// reaction is not added to the node.
func (b ReactionBuilder) Build(env *Environment, n *Node) *Reaction {
	if b.rate < 0 {
		panic("chemistry: rate must not be negative")
	}

	id := env.nextReactionID()

	r := &Reaction{
		id:        id,
		name:      b.name,
		env:       env,
		node:      n,
		rate:      b.rate,
		reactants: b.reactants,
		tau:       timing.Infinity,
		blueprint: b,
		rng:       rand.New(rand.NewPCG(b.seed, stream(id))),
	}

	contexts := []model.Context{}
	for _, m := range b.reactants {
		r.inbound = append(r.inbound, model.Dependency(m))
	}

	for _, c := range b.conditions {
		r.conditions = append(r.conditions, c.Bind(env, n))
		r.inbound = append(r.inbound, c.Dependencies()...)
		contexts = append(contexts, c.Context())
	}
	r.inputContext = model.Widest(contexts...)

	contexts = contexts[:0]
	for _, a := range b.actions {
		r.actions = append(r.actions, a.Bind(env, n))
		r.outbound = append(r.outbound, a.Dependencies()...)
		contexts = append(contexts, a.Context())
	}
	r.outputContext = model.Widest(contexts...)

	return r
}

func stream(id string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(id))

	return h.Sum64()
}

// Reaction is a reaction with mass-action kinetics. Its propensity is the
// rate times the concentrations of its reactants, and the waiting time until
// it fires is exponentially distributed.
type Reaction struct {
	id   string
	name string
	env  *Environment
	node *Node

	rate      float64
	reactants []Molecule

	conditions    []model.Condition
	actions       []model.Action
	inbound       []model.Dependency
	outbound      []model.Dependency
	inputContext  model.Context
	outputContext model.Context

	rng        *rand.Rand
	propensity float64
	tau        timing.VTimeInSec

	blueprint ReactionBuilder
}

var _ model.Reaction = (*Reaction)(nil)

// ID returns the unique ID of the reaction.
func (r *Reaction) ID() string {
	return r.id
}

// Name returns the name of the reaction followed by its ID.
func (r *Reaction) Name() string {
	return fmt.Sprintf("%s#%s", r.name, r.id)
}

// Node returns the host node, or nil for a global reaction.
func (r *Reaction) Node() model.Node {
	if r.node == nil {
		return nil
	}

	return r.node
}

// Tau returns the time the reaction fires next.
func (r *Reaction) Tau() timing.VTimeInSec {
	return r.tau
}

// Propensity returns the propensity computed at the last update.
func (r *Reaction) Propensity() float64 {
	return r.propensity
}

// CanExecute tells if all the conditions hold.
func (r *Reaction) CanExecute() bool {
	for _, c := range r.conditions {
		if !c.IsValid() {
			return false
		}
	}

	return true
}

// Execute runs the actions in order and stops at the first failure.
func (r *Reaction) Execute() error {
	for _, a := range r.actions {
		if err := a.Execute(); err != nil {
			return fmt.Errorf("chemistry: %s: %w", r.Name(), err)
		}
	}

	return nil
}

// Initialize draws the first firing time.
func (r *Reaction) Initialize(now timing.VTimeInSec, _ model.Environment) {
	r.propensity = r.computePropensity()
	r.tau = r.sample(now)
}

// Update recomputes the propensity. An executed reaction draws a new firing
// time. Otherwise, the remaining waiting time is rescaled by the change of
// propensity, so that no random number is wasted.
func (r *Reaction) Update(
	now timing.VTimeInSec,
	executed bool,
	_ model.Environment,
) {
	prev := r.propensity
	r.propensity = r.computePropensity()

	switch {
	case executed:
		r.tau = r.sample(now)
	case r.propensity == prev:
	case r.propensity == 0:
		r.tau = timing.Infinity
	case prev == 0 || r.tau.IsInfinite():
		r.tau = r.sample(now)
	default:
		remaining := r.tau.Minus(now)
		r.tau = now.Plus(remaining.Times(prev / r.propensity))
	}
}

// Conditions returns the bound conditions.
func (r *Reaction) Conditions() []model.Condition {
	return r.conditions
}

// InboundDependencies returns the molecules the reaction reads.
func (r *Reaction) InboundDependencies() []model.Dependency {
	return r.inbound
}

// OutboundDependencies returns the molecules the reaction writes.
func (r *Reaction) OutboundDependencies() []model.Dependency {
	return r.outbound
}

// InputContext returns the widest context of the conditions.
func (r *Reaction) InputContext() model.Context {
	return r.inputContext
}

// OutputContext returns the widest context of the actions.
func (r *Reaction) OutputContext() model.Context {
	return r.outputContext
}

// CloneFor builds the same reaction on another node, with its own random
// stream.
func (r *Reaction) CloneFor(n *Node) *Reaction {
	return r.blueprint.Build(r.env, n)
}

func (r *Reaction) computePropensity() float64 {
	p := r.rate
	if r.node == nil {
		return p
	}

	for _, m := range r.reactants {
		p *= r.node.Concentration(m)
	}

	return p
}

func (r *Reaction) sample(now timing.VTimeInSec) timing.VTimeInSec {
	if r.propensity <= 0 {
		return timing.Infinity
	}

	return now.Plus(timing.VTimeInSec(r.rng.ExpFloat64() / r.propensity))
}

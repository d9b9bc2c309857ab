package chemistry

import (
	"errors"

	"github.com/sarchlab/reactor/sim/model"
)

// ErrNoNode is returned by actions that need a node when they run on a global
// reaction.
var ErrNoNode = errors.New("chemistry: action needs a node")

// ConcentrationAtLeast holds when a molecule reaches a threshold on the node.
type ConcentrationAtLeast struct {
	Molecule  Molecule
	Threshold float64
}

// Bind creates the condition for a node.
func (c ConcentrationAtLeast) Bind(_ *Environment, n *Node) model.Condition {
	return &concentrationCheck{def: c, node: n}
}

// Dependencies returns the molecule.
func (c ConcentrationAtLeast) Dependencies() []model.Dependency {
	return []model.Dependency{model.Dependency(c.Molecule)}
}

// Context is local.
func (c ConcentrationAtLeast) Context() model.Context {
	return model.LocalContext
}

type concentrationCheck struct {
	def ConcentrationAtLeast
	node *Node
}

func (c *concentrationCheck) IsValid() bool {
	return c.node != nil &&
		c.node.Concentration(c.def.Molecule) >= c.def.Threshold
}

func (c *concentrationCheck) ReactionReady() {}

// ChangeConcentration adds Delta to a molecule of the node.
type ChangeConcentration struct {
	Molecule Molecule
	Delta    float64
}

// Bind creates the action for a node.
func (a ChangeConcentration) Bind(_ *Environment, n *Node) model.Action {
	return &concentrationChange{def: a, node: n}
}

// Dependencies returns the molecule.
func (a ChangeConcentration) Dependencies() []model.Dependency {
	return []model.Dependency{model.Dependency(a.Molecule)}
}

// Context is local.
func (a ChangeConcentration) Context() model.Context {
	return model.LocalContext
}

type concentrationChange struct {
	def ChangeConcentration
	node *Node
}

func (a *concentrationChange) Execute() error {
	if a.node == nil {
		return ErrNoNode
	}

	a.node.AddConcentration(a.def.Molecule, a.def.Delta)

	return nil
}

func (a *concentrationChange) Context() model.Context {
	return a.def.Context()
}

// Feed adds Amount of a molecule to every node of the environment. It is
// meant for global reactions.
type Feed struct {
	Molecule Molecule
	Amount   float64
}

// Bind creates the action.
func (a Feed) Bind(env *Environment, _ *Node) model.Action {
	return &feeding{def: a, env: env}
}

// Dependencies returns the molecule.
func (a Feed) Dependencies() []model.Dependency {
	return []model.Dependency{model.Dependency(a.Molecule)}
}

// Context is global.
func (a Feed) Context() model.Context {
	return model.GlobalContext
}

type feeding struct {
	def Feed
	env  *Environment
}

func (a *feeding) Execute() error {
	for _, n := range a.env.Nodes() {
		n.(*Node).AddConcentration(a.def.Molecule, a.def.Amount)
	}

	return nil
}

func (a *feeding) Context() model.Context {
	return a.def.Context()
}

// SplitNode divides the node in two. The new node gets half of every
// molecule and a copy of every reaction, and becomes a neighbor of the
// original one.
type SplitNode struct{}

// Bind creates the action for a node.
func (a SplitNode) Bind(env *Environment, n *Node) model.Action {
	return &division{env: env, node: n}
}

// Dependencies returns Everything, as every molecule changes.
func (a SplitNode) Dependencies() []model.Dependency {
	return []model.Dependency{model.Everything}
}

// Context is the neighborhood, where the new node appears.
func (a SplitNode) Context() model.Context {
	return model.NeighborhoodContext
}

type division struct {
	env  *Environment
	node *Node
}

func (a *division) Execute() error {
	if a.node == nil {
		return ErrNoNode
	}

	child := a.env.NewNode()
	a.node.split(child)

	for _, r := range a.node.Reactions() {
		if cr, ok := r.(*Reaction); ok {
			child.AddReaction(cr.CloneFor(child))
		}
	}

	a.env.AddNode(child)
	a.env.Connect(a.node, child)

	return nil
}

func (a *division) Context() model.Context {
	return model.NeighborhoodContext
}

// Die removes the node from the environment.
type Die struct{}

// Bind creates the action for a node.
func (a Die) Bind(env *Environment, n *Node) model.Action {
	return &death{env: env, node: n}
}

// Dependencies returns Everything, as the node and its molecules disappear.
func (a Die) Dependencies() []model.Dependency {
	return []model.Dependency{model.Everything}
}

// Context is the neighborhood, which loses a node.
func (a Die) Context() model.Context {
	return model.NeighborhoodContext
}

type death struct {
	env  *Environment
	node *Node
}

func (a *death) Execute() error {
	if a.node == nil {
		return ErrNoNode
	}

	a.env.RemoveNode(a.node)

	return nil
}

func (a *death) Context() model.Context {
	return model.NeighborhoodContext
}

// SpawnReaction adds a new reaction to the node each time it runs.
type SpawnReaction struct {
	Template ReactionBuilder
}

// Bind creates the action for a node.
func (a SpawnReaction) Bind(env *Environment, n *Node) model.Action {
	return &spawn{def: a, env: env, node: n}
}

// Dependencies is empty. The new reaction is scheduled on its own.
func (a SpawnReaction) Dependencies() []model.Dependency {
	return nil
}

// Context is local.
func (a SpawnReaction) Context() model.Context {
	return model.LocalContext
}

type spawn struct {
	def SpawnReaction
	env  *Environment
	node *Node
}

func (a *spawn) Execute() error {
	if a.node == nil {
		return ErrNoNode
	}

	a.node.AddReaction(a.def.Template.Build(a.env, a.node))

	return nil
}

func (a *spawn) Context() model.Context {
	return model.LocalContext
}

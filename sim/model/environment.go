package model

// A Node hosts reactions.
type Node interface {
	ID() int
	Reactions() []Reaction
}

// A ChangeListener is notified about structural changes of an environment.
// The simulation engine is the listener; it defers every change until it is
// safe to apply.
type ChangeListener interface {
	NodeAdded(n Node)
	NodeRemoved(n Node, oldNeighborhood []Node)
	NodeMoved(n Node)
	NeighborAdded(a, b Node)
	NeighborRemoved(a, b Node)
	ReactionAdded(r Reaction)
	ReactionRemoved(r Reaction)
}

// An Environment supplies the nodes, their neighborhoods and the termination
// predicate of a simulation.
type Environment interface {
	Nodes() []Node
	Neighborhood(n Node) []Node
	GlobalReactions() []Reaction
	IsTerminated() bool

	// Bind attaches the listener that receives all later structural changes.
	Bind(l ChangeListener)
}

// A DependencyGraph maps an executed reaction to the reactions whose tau may
// need to be recomputed.
type DependencyGraph interface {
	CreateDependencies(r Reaction)
	RemoveDependencies(r Reaction)
	OutboundDependencies(r Reaction) *ReactionSet
	AddNeighbor(a, b Node)
	RemoveNeighbor(a, b Node)
	GlobalInputContextReactions() *ReactionSet
}

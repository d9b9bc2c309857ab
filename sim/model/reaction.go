package model

import (
	"fmt"

	"github.com/sarchlab/reactor/sim/timing"
)

// Context defines how far the influence of a reaction, a condition or an
// action reaches.
type Context int

// The reachable contexts, from the narrowest to the widest.
const (
	LocalContext Context = iota
	NeighborhoodContext
	GlobalContext
)

func (c Context) String() string {
	switch c {
	case LocalContext:
		return "local"
	case NeighborhoodContext:
		return "neighborhood"
	case GlobalContext:
		return "global"
	default:
		return "unknown"
	}
}

// Widest returns the widest of the given contexts.
func Widest(contexts ...Context) Context {
	widest := LocalContext
	for _, c := range contexts {
		if c > widest {
			widest = c
		}
	}

	return widest
}

// A Dependency is a tag that a reaction reads (inbound) or writes (outbound).
type Dependency string

// Everything is a dependency that matches every other dependency.
const Everything Dependency = "*"

// Matches tells if two dependencies refer to the same data.
func (d Dependency) Matches(other Dependency) bool {
	return d == Everything || other == Everything || d == other
}

// A Condition guards the execution of a reaction.
type Condition interface {
	// IsValid tells if the condition currently holds.
	IsValid() bool

	// ReactionReady is called right before the reaction executes, when the
	// condition was part of what allowed it to run.
	ReactionReady()
}

// An Action is one of the side effects of a reaction.
type Action interface {
	Execute() error
	Context() Context
}

// A Reaction is a timed, conditionally-executable unit of behavior bound to a
// node. Reactions are compared by identity, so implementations must use
// pointer receivers.
type Reaction interface {
	// Node returns the host node, or nil for a global reaction.
	Node() Node

	// Tau returns the time at which the reaction is next due to fire.
	Tau() timing.VTimeInSec

	// CanExecute tells if all the conditions of the reaction hold.
	CanExecute() bool

	// Execute runs all the actions of the reaction.
	Execute() error

	// Initialize computes the first tau once the reaction is scheduled.
	Initialize(now timing.VTimeInSec, env Environment)

	// Update recomputes the internal state and tau of the reaction. Executed
	// is true when the reaction was the one selected by the engine.
	Update(now timing.VTimeInSec, executed bool, env Environment)

	Conditions() []Condition
	InboundDependencies() []Dependency
	OutboundDependencies() []Dependency
	InputContext() Context
	OutputContext() Context
}

// A Named object can tell its name. Reactions and nodes may implement it to
// get readable logs and records.
type Named interface {
	Name() string
}

// NameOf returns the name of a Named object, or its type otherwise.
func NameOf(x any) string {
	if n, ok := x.(Named); ok {
		return n.Name()
	}

	return fmt.Sprintf("%T", x)
}

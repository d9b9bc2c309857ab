package engine

import (
	"fmt"
	"sync"

	"github.com/sarchlab/reactor/sim/model"
)

// An Update is a structural change of the environment that the engine has
// not applied to the scheduler and the dependency graph yet.
type Update interface {
	isUpdate()
}

// NodeAddition records that a node joined the environment.
type NodeAddition struct{ Node model.Node }

// NodeRemoval records that a node left the environment. The neighborhood is
// the one the node had before leaving.
type NodeRemoval struct {
	Node            model.Node
	OldNeighborhood []model.Node
}

// NodeMovement records that a node changed position.
type NodeMovement struct{ Node model.Node }

// NeighborAddition records that two nodes became neighbors.
type NeighborAddition struct{ A, B model.Node }

// NeighborRemoval records that two nodes are no longer neighbors.
type NeighborRemoval struct{ A, B model.Node }

// ReactionAddition records that a reaction was added to a node.
type ReactionAddition struct{ Reaction model.Reaction }

// ReactionRemoval records that a reaction was removed from a node.
type ReactionRemoval struct{ Reaction model.Reaction }

func (NodeAddition) isUpdate()     {}
func (NodeRemoval) isUpdate()      {}
func (NodeMovement) isUpdate()     {}
func (NeighborAddition) isUpdate() {}
func (NeighborRemoval) isUpdate()  {}
func (ReactionAddition) isUpdate() {}
func (ReactionRemoval) isUpdate()  {}

// updateLog collects updates in the order they are reported. Reports may
// come from batch workers, so the log is guarded.
type updateLog struct {
	lock    sync.Mutex
	pending []Update
}

func (l *updateLog) append(u Update) {
	l.lock.Lock()
	defer l.lock.Unlock()

	l.pending = append(l.pending, u)
}

func (l *updateLog) take() []Update {
	l.lock.Lock()
	defer l.lock.Unlock()

	updates := l.pending
	l.pending = nil

	return updates
}

func (l *updateLog) empty() bool {
	l.lock.Lock()
	defer l.lock.Unlock()

	return len(l.pending) == 0
}

// applyUpdates drains the log. Each update first adds the reactions it makes
// stale to affected and is then committed. Updates raised while committing
// are applied in the same call.
func (e *Engine) applyUpdates(affected *model.ReactionSet) {
	for {
		updates := e.updates.take()
		if len(updates) == 0 {
			return
		}

		for _, u := range updates {
			e.invalidatedBy(u, affected)
			e.commit(u)
		}
	}
}

func (e *Engine) invalidatedBy(u Update, affected *model.ReactionSet) {
	switch u := u.(type) {
	case ReactionAddition:
		affected.Add(u.Reaction)
	case ReactionRemoval:
	case NodeAddition:
		addAll(affected, u.Node.Reactions())
		e.addNonLocal(affected, e.env.Neighborhood(u.Node)...)
		e.addGlobal(affected)
	case NodeRemoval:
		e.addNonLocal(affected, u.OldNeighborhood...)
		e.addGlobal(affected)
	case NodeMovement:
		e.addNonLocal(affected, u.Node)
		e.addNonLocal(affected, e.env.Neighborhood(u.Node)...)
		e.addGlobal(affected)
	case NeighborAddition:
		e.addNeighborChange(affected, u.A, u.B)
	case NeighborRemoval:
		e.addNeighborChange(affected, u.A, u.B)
	default:
		panic(fmt.Sprintf("engine: unknown update %T", u))
	}
}

func (e *Engine) commit(u Update) {
	switch u := u.(type) {
	case ReactionAddition:
		e.ScheduleReaction(u.Reaction)
	case ReactionRemoval:
		e.unscheduleReaction(u.Reaction)
	case NodeAddition:
		for _, r := range u.Node.Reactions() {
			e.ScheduleReaction(r)
		}
	case NodeRemoval:
		for _, r := range u.Node.Reactions() {
			e.unscheduleReaction(r)
		}
	case NodeMovement:
	case NeighborAddition:
		e.graph.AddNeighbor(u.A, u.B)
	case NeighborRemoval:
		e.graph.RemoveNeighbor(u.A, u.B)
	}
}

func (e *Engine) addNeighborChange(
	affected *model.ReactionSet,
	a, b model.Node,
) {
	e.addNonLocal(affected, a, b)
	e.addNonLocal(affected, e.env.Neighborhood(a)...)
	e.addNonLocal(affected, e.env.Neighborhood(b)...)
	e.addGlobal(affected)
}

// addNonLocal adds the reactions of the nodes that read beyond their own node.
func (e *Engine) addNonLocal(affected *model.ReactionSet, nodes ...model.Node) {
	for _, n := range nodes {
		for _, r := range n.Reactions() {
			if r.InputContext() != model.LocalContext {
				affected.Add(r)
			}
		}
	}
}

func (e *Engine) addGlobal(affected *model.ReactionSet) {
	addAll(affected, e.graph.GlobalInputContextReactions().Slice())
}

func addAll(set *model.ReactionSet, reactions []model.Reaction) {
	for _, r := range reactions {
		set.Add(r)
	}
}

// The engine listens to the environment and defers every change.

// NodeAdded records the addition of a node.
func (e *Engine) NodeAdded(n model.Node) {
	e.updates.append(NodeAddition{Node: n})
}

// NodeRemoved records the removal of a node.
func (e *Engine) NodeRemoved(n model.Node, oldNeighborhood []model.Node) {
	e.updates.append(NodeRemoval{Node: n, OldNeighborhood: oldNeighborhood})
}

// NodeMoved records the movement of a node.
func (e *Engine) NodeMoved(n model.Node) {
	e.updates.append(NodeMovement{Node: n})
}

// NeighborAdded records a new neighbor link.
func (e *Engine) NeighborAdded(a, b model.Node) {
	e.updates.append(NeighborAddition{A: a, B: b})
}

// NeighborRemoved records a dropped neighbor link.
func (e *Engine) NeighborRemoved(a, b model.Node) {
	e.updates.append(NeighborRemoval{A: a, B: b})
}

// ReactionAdded records the addition of a reaction.
func (e *Engine) ReactionAdded(r model.Reaction) {
	e.updates.append(ReactionAddition{Reaction: r})
}

// ReactionRemoved records the removal of a reaction.
func (e *Engine) ReactionRemoved(r model.Reaction) {
	e.updates.append(ReactionRemoval{Reaction: r})
}

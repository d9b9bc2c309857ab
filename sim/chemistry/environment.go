// Package chemistry is an incarnation of the simulation model where nodes are
// compartments of molecules and reactions follow mass-action kinetics. Nodes
// can divide and die, which makes the environment grow and shrink while the
// simulation runs.
package chemistry

import (
	"slices"
	"sync"

	"github.com/sarchlab/reactor/sim/id"
	"github.com/sarchlab/reactor/sim/model"
)

// Environment is a set of nodes connected by undirected links.
type Environment struct {
	lock      sync.RWMutex
	nodes     []*Node
	links     map[*Node][]*Node
	global    []model.Reaction
	nextID    int
	listener  model.ChangeListener
	terminate func(env *Environment) bool

	reactionIDs id.IDGenerator
}

var _ model.Environment = (*Environment)(nil)

// NewEnvironment creates an empty environment.
func NewEnvironment() *Environment {
	return &Environment{
		links:       make(map[*Node][]*Node),
		reactionIDs: id.NewIDGenerator(),
	}
}

// TerminateWhen sets the predicate that ends the simulation.
func (e *Environment) TerminateWhen(pred func(env *Environment) bool) {
	e.lock.Lock()
	defer e.lock.Unlock()

	e.terminate = pred
}

// IsTerminated tells if the termination predicate holds.
func (e *Environment) IsTerminated() bool {
	e.lock.RLock()
	pred := e.terminate
	e.lock.RUnlock()

	return pred != nil && pred(e)
}

// Bind sets the listener that receives the structural changes.
func (e *Environment) Bind(l model.ChangeListener) {
	e.lock.Lock()
	defer e.lock.Unlock()

	e.listener = l
}

// NewNode creates a node with a fresh ID. The node is not part of the
// environment until it is added.
func (e *Environment) NewNode() *Node {
	e.lock.Lock()
	defer e.lock.Unlock()

	n := newNode(e.nextID)
	e.nextID++

	return n
}

// AddNode puts a node into the environment.
func (e *Environment) AddNode(n *Node) {
	e.lock.Lock()
	e.nodes = append(e.nodes, n)
	e.lock.Unlock()

	n.setEnvironment(e)
	e.notify(func(l model.ChangeListener) { l.NodeAdded(n) })
}

// RemoveNode takes a node and all its links out of the environment. The links
// are reported as removed before the node.
func (e *Environment) RemoveNode(n *Node) bool {
	e.lock.Lock()

	i := slices.Index(e.nodes, n)
	if i < 0 {
		e.lock.Unlock()
		return false
	}

	e.nodes = slices.Delete(e.nodes, i, i+1)

	old := e.links[n]
	for _, m := range old {
		e.links[m] = without(e.links[m], n)
	}
	delete(e.links, n)

	e.lock.Unlock()

	n.setEnvironment(nil)

	oldNeighborhood := make([]model.Node, len(old))
	for i, m := range old {
		oldNeighborhood[i] = m
	}

	for _, m := range old {
		e.notify(func(l model.ChangeListener) { l.NeighborRemoved(n, m) })
	}

	e.notify(func(l model.ChangeListener) { l.NodeRemoved(n, oldNeighborhood) })

	return true
}

// Connect links two nodes. It does nothing if they are already linked.
func (e *Environment) Connect(a, b *Node) {
	e.lock.Lock()
	if a == b || slices.Contains(e.links[a], b) {
		e.lock.Unlock()
		return
	}

	e.links[a] = append(e.links[a], b)
	e.links[b] = append(e.links[b], a)
	e.lock.Unlock()

	e.notify(func(l model.ChangeListener) { l.NeighborAdded(a, b) })
}

// Disconnect drops the link between two nodes.
func (e *Environment) Disconnect(a, b *Node) {
	e.lock.Lock()
	if !slices.Contains(e.links[a], b) {
		e.lock.Unlock()
		return
	}

	e.links[a] = without(e.links[a], b)
	e.links[b] = without(e.links[b], a)
	e.lock.Unlock()

	e.notify(func(l model.ChangeListener) { l.NeighborRemoved(a, b) })
}

// Touch reports that a node moved.
func (e *Environment) Touch(n *Node) {
	e.notify(func(l model.ChangeListener) { l.NodeMoved(n) })
}

// AddGlobalReaction adds a reaction that is not hosted by any node.
func (e *Environment) AddGlobalReaction(r model.Reaction) {
	e.lock.Lock()
	e.global = append(e.global, r)
	e.lock.Unlock()

	e.notify(func(l model.ChangeListener) { l.ReactionAdded(r) })
}

// Nodes returns the nodes in the order they were added.
func (e *Environment) Nodes() []model.Node {
	e.lock.RLock()
	defer e.lock.RUnlock()

	nodes := make([]model.Node, len(e.nodes))
	for i, n := range e.nodes {
		nodes[i] = n
	}

	return nodes
}

// NodeCount returns the number of nodes.
func (e *Environment) NodeCount() int {
	e.lock.RLock()
	defer e.lock.RUnlock()

	return len(e.nodes)
}

// Neighborhood returns the nodes linked to n.
func (e *Environment) Neighborhood(n model.Node) []model.Node {
	node, ok := n.(*Node)
	if !ok {
		return nil
	}

	e.lock.RLock()
	defer e.lock.RUnlock()

	links := e.links[node]
	neighbors := make([]model.Node, len(links))
	for i, m := range links {
		neighbors[i] = m
	}

	return neighbors
}

// GlobalReactions returns the reactions that are not hosted by any node.
func (e *Environment) GlobalReactions() []model.Reaction {
	e.lock.RLock()
	defer e.lock.RUnlock()

	return slices.Clone(e.global)
}

func (e *Environment) nextReactionID() string {
	return e.reactionIDs.Generate()
}

func (e *Environment) notify(fn func(l model.ChangeListener)) {
	e.lock.RLock()
	l := e.listener
	e.lock.RUnlock()

	if l != nil {
		fn(l)
	}
}

func without(nodes []*Node, n *Node) []*Node {
	return slices.DeleteFunc(slices.Clone(nodes), func(m *Node) bool {
		return m == n
	})
}

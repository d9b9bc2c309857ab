package chemistry

import (
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/sarchlab/reactor/sim/model"
)

// A Molecule names a chemical species.
type Molecule string

// A Node is a compartment that holds molecules and the reactions that
// transform them.
type Node struct {
	id  int
	env *Environment

	lock      sync.RWMutex
	molecules map[Molecule]float64
	reactions []model.Reaction
}

func newNode(id int) *Node {
	return &Node{
		id:        id,
		molecules: make(map[Molecule]float64),
	}
}

// ID returns the ID of the node.
func (n *Node) ID() int {
	return n.id
}

// Name returns a readable name of the node.
func (n *Node) Name() string {
	return fmt.Sprintf("node-%d", n.id)
}

// Reactions returns the reactions hosted by the node.
func (n *Node) Reactions() []model.Reaction {
	n.lock.RLock()
	defer n.lock.RUnlock()

	return slices.Clone(n.reactions)
}

// Concentration returns the concentration of a molecule. Missing molecules
// have a concentration of 0.
func (n *Node) Concentration(m Molecule) float64 {
	n.lock.RLock()
	defer n.lock.RUnlock()

	return n.molecules[m]
}

// SetConcentration sets the concentration of a molecule.
func (n *Node) SetConcentration(m Molecule, c float64) {
	n.lock.Lock()
	defer n.lock.Unlock()

	n.molecules[m] = c
}

// AddConcentration changes the concentration of a molecule by delta. The
// concentration never drops below 0.
func (n *Node) AddConcentration(m Molecule, delta float64) {
	n.lock.Lock()
	defer n.lock.Unlock()

	n.molecules[m] = max(n.molecules[m]+delta, 0)
}

// Molecules returns a copy of all the concentrations.
func (n *Node) Molecules() map[Molecule]float64 {
	n.lock.RLock()
	defer n.lock.RUnlock()

	return maps.Clone(n.molecules)
}

// AddReaction makes the node host a reaction. If the node is part of an
// environment, the environment reports the new reaction.
func (n *Node) AddReaction(r model.Reaction) {
	n.lock.Lock()
	n.reactions = append(n.reactions, r)
	env := n.env
	n.lock.Unlock()

	if env != nil {
		env.notify(func(l model.ChangeListener) { l.ReactionAdded(r) })
	}
}

// RemoveReaction stops hosting a reaction.
func (n *Node) RemoveReaction(r model.Reaction) bool {
	n.lock.Lock()
	i := slices.Index(n.reactions, r)
	if i < 0 {
		n.lock.Unlock()
		return false
	}

	n.reactions = slices.Delete(n.reactions, i, i+1)
	env := n.env
	n.lock.Unlock()

	if env != nil {
		env.notify(func(l model.ChangeListener) { l.ReactionRemoved(r) })
	}

	return true
}

// split moves half of every molecule into child.
func (n *Node) split(child *Node) {
	n.lock.Lock()
	defer n.lock.Unlock()

	child.lock.Lock()
	defer child.lock.Unlock()

	for m, c := range n.molecules {
		half := c / 2
		n.molecules[m] = half
		child.molecules[m] = half
	}
}

func (n *Node) setEnvironment(env *Environment) {
	n.lock.Lock()
	defer n.lock.Unlock()

	n.env = env
}

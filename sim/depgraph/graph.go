// Package depgraph provides a dependency graph that links reactions through
// the data they read and write and the distance between their nodes.
package depgraph

import (
	"github.com/sarchlab/reactor/sim/model"
)

// Graph is a dependency graph of reactions. There is an edge from r to s if
// r writes something that s reads and s is within the reach of r.
//
// Graph is not safe for concurrent mutation. Concurrent reads are safe.
type Graph struct {
	env model.Environment

	all      *model.ReactionSet
	byNode   map[model.Node]*model.ReactionSet
	nodeless *model.ReactionSet
	wide     *model.ReactionSet
	global   *model.ReactionSet

	outbound map[model.Reaction]*model.ReactionSet
	inbound  map[model.Reaction]*model.ReactionSet
}

var _ model.DependencyGraph = (*Graph)(nil)

// New creates an empty graph. The environment tells the neighborhoods.
func New(env model.Environment) *Graph {
	return &Graph{
		env:      env,
		all:      model.NewReactionSet(),
		byNode:   make(map[model.Node]*model.ReactionSet),
		nodeless: model.NewReactionSet(),
		wide:     model.NewReactionSet(),
		global:   model.NewReactionSet(),
		outbound: make(map[model.Reaction]*model.ReactionSet),
		inbound:  make(map[model.Reaction]*model.ReactionSet),
	}
}

// CreateDependencies adds a reaction and links it with the reactions already
// in the graph.
func (g *Graph) CreateDependencies(r model.Reaction) {
	if g.all.Contains(r) {
		return
	}

	g.all.Add(r)

	if n := r.Node(); n != nil {
		set, ok := g.byNode[n]
		if !ok {
			set = model.NewReactionSet()
			g.byNode[n] = set
		}

		set.Add(r)
	} else {
		g.nodeless.Add(r)
	}

	if r.InputContext() == model.GlobalContext {
		g.global.Add(r)
	}

	if isWide(r) {
		g.wide.Add(r)
	}

	g.attach(r)
}

// RemoveDependencies drops a reaction and all its edges.
func (g *Graph) RemoveDependencies(r model.Reaction) {
	if !g.all.Contains(r) {
		return
	}

	g.detach(r)

	g.all.Remove(r)
	g.nodeless.Remove(r)
	g.wide.Remove(r)
	g.global.Remove(r)

	if n := r.Node(); n != nil {
		if set, ok := g.byNode[n]; ok {
			set.Remove(r)

			if set.Len() == 0 {
				delete(g.byNode, n)
			}
		}
	}
}

// OutboundDependencies returns the reactions that depend on r. The returned
// set must not be modified.
func (g *Graph) OutboundDependencies(r model.Reaction) *model.ReactionSet {
	return g.outbound[r]
}

// InboundDependencies returns the reactions that r depends on. The returned
// set must not be modified.
func (g *Graph) InboundDependencies(r model.Reaction) *model.ReactionSet {
	return g.inbound[r]
}

// GlobalInputContextReactions returns the reactions that read the whole
// environment.
func (g *Graph) GlobalInputContextReactions() *model.ReactionSet {
	return g.global
}

// AddNeighbor refreshes the edges around a new link. The environment must
// already contain the link.
func (g *Graph) AddNeighbor(a, b model.Node) {
	g.refreshAround(a, b)
}

// RemoveNeighbor refreshes the edges around a dropped link. The environment
// must already miss the link.
func (g *Graph) RemoveNeighbor(a, b model.Node) {
	g.refreshAround(a, b)
}

// refreshAround rebuilds the edges of every reaction whose reach may have
// gone through the link between a and b.
func (g *Graph) refreshAround(a, b model.Node) {
	nodes := []model.Node{a, b}
	nodes = append(nodes, g.env.Neighborhood(a)...)
	nodes = append(nodes, g.env.Neighborhood(b)...)

	touched := model.NewReactionSet()
	for _, n := range nodes {
		touched.Union(g.byNode[n])
	}

	for _, r := range touched.Slice() {
		g.detach(r)
	}

	for _, r := range touched.Slice() {
		g.attach(r)
	}
}

// attach links r with every candidate, in both directions.
func (g *Graph) attach(r model.Reaction) {
	for _, s := range g.candidates(r).Slice() {
		if s == r {
			continue
		}

		if g.influences(r, s) {
			g.link(r, s)
		}

		if g.influences(s, r) {
			g.link(s, r)
		}
	}
}

func (g *Graph) detach(r model.Reaction) {
	for _, s := range g.outbound[r].Slice() {
		g.inbound[s].Remove(r)
	}

	for _, s := range g.inbound[r].Slice() {
		g.outbound[s].Remove(r)
	}

	delete(g.outbound, r)
	delete(g.inbound, r)
}

func (g *Graph) link(from, to model.Reaction) {
	out, ok := g.outbound[from]
	if !ok {
		out = model.NewReactionSet()
		g.outbound[from] = out
	}

	in, ok := g.inbound[to]
	if !ok {
		in = model.NewReactionSet()
		g.inbound[to] = in
	}

	out.Add(to)
	in.Add(from)
}

// candidates returns the reactions that may be linked with r: the ones on
// nodes at most two hops away, plus the ones that reach everywhere.
func (g *Graph) candidates(r model.Reaction) *model.ReactionSet {
	n := r.Node()
	if n == nil || isWide(r) {
		return g.all
	}

	set := model.NewReactionSet()
	for _, near := range g.withinHops(n, 2) {
		set.Union(g.byNode[near])
	}

	set.Union(g.nodeless)
	set.Union(g.wide)

	return set
}

// influences tells if executing r can change the tau of s.
func (g *Graph) influences(r, s model.Reaction) bool {
	return writesWhatIsRead(r, s) && g.reaches(r, s)
}

func (g *Graph) reaches(r, s model.Reaction) bool {
	from, to := r.Node(), s.Node()
	if from == nil || to == nil {
		return true
	}

	out, in := r.OutputContext(), s.InputContext()
	if out == model.GlobalContext || in == model.GlobalContext {
		return true
	}

	hops := 0
	if out == model.NeighborhoodContext {
		hops++
	}

	if in == model.NeighborhoodContext {
		hops++
	}

	for _, n := range g.withinHops(from, hops) {
		if n == to {
			return true
		}
	}

	return false
}

// withinHops lists the nodes at most hops links away from n, n included.
func (g *Graph) withinHops(n model.Node, hops int) []model.Node {
	seen := map[model.Node]bool{n: true}
	nodes := []model.Node{n}
	frontier := []model.Node{n}

	for range hops {
		var next []model.Node
		for _, f := range frontier {
			for _, m := range g.env.Neighborhood(f) {
				if seen[m] {
					continue
				}

				seen[m] = true
				nodes = append(nodes, m)
				next = append(next, m)
			}
		}

		frontier = next
	}

	return nodes
}

func writesWhatIsRead(r, s model.Reaction) bool {
	for _, out := range r.OutboundDependencies() {
		for _, in := range s.InboundDependencies() {
			if out.Matches(in) {
				return true
			}
		}
	}

	return false
}

func isWide(r model.Reaction) bool {
	return r.InputContext() == model.GlobalContext ||
		r.OutputContext() == model.GlobalContext
}

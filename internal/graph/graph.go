package graph

import (
	"fmt"
	"slices"

	"github.com/vk/mechnet/internal/mech"
)

// edgeCount tracks multiplicity between one ordered node pair. Multiple
// projections between the same pair (different ports) collapse into one
// adjacency entry with counts.
type edgeCount struct {
	total    int
	feedback int
}

// structural reports whether the pair is connected by at least one
// non-feedback edge.
func (e *edgeCount) structural() bool { return e.total > e.feedback }

// Graph is the scheduling view of a composition: vertices wrap node
// handles, edges mirror projections but store only connectivity.
type Graph struct {
	nodes    map[mech.NodeID]struct{}
	parents  map[mech.NodeID]map[mech.NodeID]*edgeCount
	children map[mech.NodeID]map[mech.NodeID]*edgeCount

	stale bool
	comps [][]mech.NodeID
	queue [][]mech.NodeID
	roles map[mech.NodeID]Role
	level map[mech.NodeID]int
}

// New returns an empty scheduling graph.
func New() *Graph {
	return &Graph{
		nodes:    make(map[mech.NodeID]struct{}),
		parents:  make(map[mech.NodeID]map[mech.NodeID]*edgeCount),
		children: make(map[mech.NodeID]map[mech.NodeID]*edgeCount),
		stale:    true,
	}
}

// AddNode registers a vertex. Adding an existing vertex is a no-op.
func (g *Graph) AddNode(id mech.NodeID) {
	if _, ok := g.nodes[id]; ok {
		return
	}
	g.nodes[id] = struct{}{}
	g.parents[id] = make(map[mech.NodeID]*edgeCount)
	g.children[id] = make(map[mech.NodeID]*edgeCount)
	g.stale = true
}

// RemoveNode drops a vertex and every edge touching it.
func (g *Graph) RemoveNode(id mech.NodeID) error {
	if _, ok := g.nodes[id]; !ok {
		return fmt.Errorf("remove node: vertex %d not in graph", id)
	}
	for p := range g.parents[id] {
		delete(g.children[p], id)
	}
	for c := range g.children[id] {
		delete(g.parents[c], id)
	}
	delete(g.parents, id)
	delete(g.children, id)
	delete(g.nodes, id)
	g.stale = true
	return nil
}

// AddEdge records one sender→receiver projection. Feedback edges are
// ordering shortcuts: they never participate in cycle or level
// computation.
func (g *Graph) AddEdge(sender, receiver mech.NodeID, feedback bool) error {
	if _, ok := g.nodes[sender]; !ok {
		return fmt.Errorf("add edge: sender vertex %d not in graph", sender)
	}
	if _, ok := g.nodes[receiver]; !ok {
		return fmt.Errorf("add edge: receiver vertex %d not in graph", receiver)
	}
	ec := g.children[sender][receiver]
	if ec == nil {
		ec = &edgeCount{}
		g.children[sender][receiver] = ec
		g.parents[receiver][sender] = ec
	}
	ec.total++
	if feedback {
		ec.feedback++
	}
	g.stale = true
	return nil
}

// RemoveEdge removes one previously-added sender→receiver projection with
// the given feedback designation.
func (g *Graph) RemoveEdge(sender, receiver mech.NodeID, feedback bool) error {
	ec := g.children[sender][receiver]
	if ec == nil || ec.total == 0 {
		return fmt.Errorf("remove edge: no edge %d->%d", sender, receiver)
	}
	if feedback && ec.feedback == 0 {
		return fmt.Errorf("remove edge: no feedback edge %d->%d", sender, receiver)
	}
	if !feedback && !ec.structural() {
		return fmt.Errorf("remove edge: no non-feedback edge %d->%d", sender, receiver)
	}
	ec.total--
	if feedback {
		ec.feedback--
	}
	if ec.total == 0 {
		delete(g.children[sender], receiver)
		delete(g.parents[receiver], sender)
	}
	g.stale = true
	return nil
}

// NumNodes returns the vertex count.
func (g *Graph) NumNodes() int { return len(g.nodes) }

// Parents returns the sorted set of nodes with a non-feedback edge into id.
func (g *Graph) Parents(id mech.NodeID) []mech.NodeID {
	var out []mech.NodeID
	for p, ec := range g.parents[id] {
		if ec.structural() {
			out = append(out, p)
		}
	}
	slices.Sort(out)
	return out
}

// Children returns the sorted set of nodes id has a non-feedback edge into.
func (g *Graph) Children(id mech.NodeID) []mech.NodeID {
	var out []mech.NodeID
	for c, ec := range g.children[id] {
		if ec.structural() {
			out = append(out, c)
		}
	}
	slices.Sort(out)
	return out
}

// sortedNodes returns all vertices in handle order, the iteration order
// for every derivation, which keeps rebuilds deterministic.
func (g *Graph) sortedNodes() []mech.NodeID {
	out := make([]mech.NodeID, 0, len(g.nodes))
	for id := range g.nodes {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

// rebuild rederives components, queue, and roles. Callers hold no partial
// results: every query goes through here first.
func (g *Graph) rebuild() {
	if !g.stale {
		return
	}
	g.comps = g.stronglyConnected()
	g.queue, g.level = g.levelize(g.comps)
	g.roles = g.classify(g.comps)
	g.stale = false
}

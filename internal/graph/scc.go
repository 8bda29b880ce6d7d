package graph

import (
	"slices"

	"github.com/vk/mechnet/internal/mech"
)

// stronglyConnected runs Tarjan's algorithm over the non-feedback edge
// subset and returns the components, each sorted by handle, in a
// deterministic order.
func (g *Graph) stronglyConnected() [][]mech.NodeID {
	index := make(map[mech.NodeID]int, len(g.nodes))
	lowlink := make(map[mech.NodeID]int, len(g.nodes))
	onStack := make(map[mech.NodeID]bool, len(g.nodes))
	var stack []mech.NodeID
	var comps [][]mech.NodeID
	next := 0

	var strongConnect func(v mech.NodeID)
	strongConnect = func(v mech.NodeID) {
		index[v] = next
		lowlink[v] = next
		next++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range g.Children(v) {
			if _, seen := index[w]; !seen {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], index[w])
			}
		}

		if lowlink[v] == index[v] {
			var comp []mech.NodeID
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				comp = append(comp, w)
				if w == v {
					break
				}
			}
			slices.Sort(comp)
			comps = append(comps, comp)
		}
	}

	for _, v := range g.sortedNodes() {
		if _, seen := index[v]; !seen {
			strongConnect(v)
		}
	}
	return comps
}

// cyclic reports whether a component is a true cycle: more than one
// member, or a single member with a non-feedback self-edge.
func (g *Graph) cyclic(comp []mech.NodeID) bool {
	if len(comp) > 1 {
		return true
	}
	v := comp[0]
	if ec := g.children[v][v]; ec != nil && ec.structural() {
		return true
	}
	return false
}

package graph

import (
	"slices"

	"github.com/vk/mechnet/internal/mech"
)

// levelize assigns each strongly-connected component a level by Kahn's
// algorithm over the condensed graph, then expands components back into
// sets of original nodes. Every node of a component shares a set, and for
// every non-feedback edge crossing component boundaries the sender's set
// index is strictly less than the receiver's.
func (g *Graph) levelize(comps [][]mech.NodeID) ([][]mech.NodeID, map[mech.NodeID]int) {
	compOf := make(map[mech.NodeID]int, len(g.nodes))
	for ci, comp := range comps {
		for _, v := range comp {
			compOf[v] = ci
		}
	}

	// Condensed in-degrees, counting each parent component once.
	inDeg := make([]int, len(comps))
	compParents := make([]map[int]struct{}, len(comps))
	compChildren := make([]map[int]struct{}, len(comps))
	for ci := range comps {
		compParents[ci] = make(map[int]struct{})
		compChildren[ci] = make(map[int]struct{})
	}
	for ci, comp := range comps {
		for _, v := range comp {
			for _, w := range g.Children(v) {
				cj := compOf[w]
				if cj == ci {
					continue
				}
				if _, ok := compChildren[ci][cj]; !ok {
					compChildren[ci][cj] = struct{}{}
					compParents[cj][ci] = struct{}{}
					inDeg[cj]++
				}
			}
		}
	}

	// Kahn leveling in waves: a component's level is one past its deepest
	// parent. Seed with in-degree-zero components; the condensation is
	// acyclic by construction, so every component is processed.
	var frontier []int
	for ci := range comps {
		if inDeg[ci] == 0 {
			frontier = append(frontier, ci)
		}
	}
	slices.Sort(frontier)

	var queue [][]mech.NodeID
	level := make(map[mech.NodeID]int, len(g.nodes))
	for len(frontier) > 0 {
		var set []mech.NodeID
		var next []int
		for _, ci := range frontier {
			set = append(set, comps[ci]...)
			for cj := range compChildren[ci] {
				inDeg[cj]--
				if inDeg[cj] == 0 {
					next = append(next, cj)
				}
			}
		}
		slices.Sort(set)
		for _, v := range set {
			level[v] = len(queue)
		}
		queue = append(queue, set)
		slices.Sort(next)
		frontier = next
	}
	return queue, level
}

// ConsiderationQueue returns the ordered sequence of consideration sets.
// The returned slices are shared; callers must not mutate them.
func (g *Graph) ConsiderationQueue() [][]mech.NodeID {
	g.rebuild()
	return g.queue
}

// Level returns a node's consideration set index.
func (g *Graph) Level(id mech.NodeID) (int, bool) {
	g.rebuild()
	l, ok := g.level[id]
	return l, ok
}

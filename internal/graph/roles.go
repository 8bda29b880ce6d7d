package graph

import (
	"slices"
	"strings"

	"github.com/vk/mechnet/internal/mech"
)

// Role labels a node's structural position in the graph. A node may hold
// several roles at once (e.g. ORIGIN and CYCLE).
type Role uint8

const (
	// RoleOrigin: no incoming non-feedback edges; receives trial input.
	RoleOrigin Role = 1 << iota
	// RoleTerminal: no outgoing non-feedback edges; contributes to trial
	// output.
	RoleTerminal
	// RoleCycle: member of a cycle in the non-feedback subgraph.
	RoleCycle
	// RoleFeedbackSender: sender endpoint of an explicit feedback edge.
	RoleFeedbackSender
	// RoleFeedbackReceiver: receiver endpoint of an explicit feedback edge.
	RoleFeedbackReceiver
	// RoleInternal: none of the above.
	RoleInternal
)

// Has reports whether r carries the given role bit.
func (r Role) Has(role Role) bool { return r&role != 0 }

func (r Role) String() string {
	var parts []string
	for _, e := range []struct {
		bit  Role
		name string
	}{
		{RoleOrigin, "ORIGIN"},
		{RoleTerminal, "TERMINAL"},
		{RoleCycle, "CYCLE"},
		{RoleFeedbackSender, "FEEDBACK_SENDER"},
		{RoleFeedbackReceiver, "FEEDBACK_RECEIVER"},
		{RoleInternal, "INTERNAL"},
	} {
		if r.Has(e.bit) {
			parts = append(parts, e.name)
		}
	}
	if len(parts) == 0 {
		return "NONE"
	}
	return strings.Join(parts, "|")
}

// classify labels every node from the acyclic view and the feedback
// designations.
func (g *Graph) classify(comps [][]mech.NodeID) map[mech.NodeID]Role {
	roles := make(map[mech.NodeID]Role, len(g.nodes))

	for _, comp := range comps {
		if !g.cyclic(comp) {
			continue
		}
		for _, v := range comp {
			roles[v] |= RoleCycle
		}
	}

	for id := range g.nodes {
		if len(g.Parents(id)) == 0 {
			roles[id] |= RoleOrigin
		}
		if len(g.Children(id)) == 0 {
			roles[id] |= RoleTerminal
		}
		for c, ec := range g.children[id] {
			if ec.feedback > 0 {
				roles[id] |= RoleFeedbackSender
				roles[c] |= RoleFeedbackReceiver
			}
		}
	}

	for id := range g.nodes {
		if roles[id] == 0 {
			roles[id] = RoleInternal
		}
	}
	return roles
}

// Roles returns a node's role set.
func (g *Graph) Roles(id mech.NodeID) Role {
	g.rebuild()
	return g.roles[id]
}

// NodesByRole returns all nodes carrying the role, in handle order.
func (g *Graph) NodesByRole(role Role) []mech.NodeID {
	g.rebuild()
	var out []mech.NodeID
	for id, r := range g.roles {
		if r.Has(role) {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return out
}

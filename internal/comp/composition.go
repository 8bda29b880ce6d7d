package comp

import (
	"fmt"

	"github.com/vk/mechnet/internal/graph"
	"github.com/vk/mechnet/internal/mech"
	"github.com/vk/mechnet/internal/scheduler"
)

// execContext is the per-context pair of value state and scheduling
// history. Contexts over the same composition never share either.
type execContext struct {
	state *mech.State
	sched *scheduler.Scheduler
}

// Composition is a network of nodes and projections plus everything
// needed to evaluate it: the scheduling graph, firing conditions, and
// context-keyed state.
type Composition struct {
	name  string
	arena *mech.Arena
	g     *graph.Graph

	names map[string]mech.NodeID
	conds map[mech.NodeID]scheduler.Condition
	term  scheduler.Termination

	contexts map[string]*execContext
	running  bool
}

// New returns an empty composition.
func New(name string) *Composition {
	return &Composition{
		name:     name,
		arena:    mech.NewArena(),
		g:        graph.New(),
		names:    make(map[string]mech.NodeID),
		conds:    make(map[mech.NodeID]scheduler.Condition),
		contexts: make(map[string]*execContext),
	}
}

// Name returns the composition's name.
func (c *Composition) Name() string { return c.name }

func (c *Composition) guard(op string) error {
	if c.running {
		return &StructuralError{Op: op, Reason: "composition is mid-trial; topology may be mutated only between trials"}
	}
	return nil
}

// AddNode constructs a node from cfg and registers it in the scheduling
// graph. Duplicate names are a structural error.
func (c *Composition) AddNode(cfg mech.NodeConfig) (*mech.Node, error) {
	if err := c.guard("add node"); err != nil {
		return nil, err
	}
	if _, dup := c.names[cfg.Name]; dup {
		return nil, &StructuralError{Op: "add node", Reason: fmt.Sprintf("duplicate node name %q", cfg.Name)}
	}
	n, err := c.arena.AddNode(cfg)
	if err != nil {
		return nil, err
	}
	c.names[n.Name] = n.ID
	c.g.AddNode(n.ID)
	return n, nil
}

// NodeByName resolves a node through the composition-owned name table.
func (c *Composition) NodeByName(name string) (*mech.Node, bool) {
	id, ok := c.names[name]
	if !ok {
		return nil, false
	}
	return c.arena.Node(id), true
}

// Node resolves a node by handle.
func (c *Composition) Node(id mech.NodeID) *mech.Node { return c.arena.Node(id) }

// RemoveNode deletes a node and every projection touching it, from both
// the arena and the scheduling graph.
func (c *Composition) RemoveNode(name string) error {
	if err := c.guard("remove node"); err != nil {
		return err
	}
	id, ok := c.names[name]
	if !ok {
		return &StructuralError{Op: "remove node", Reason: fmt.Sprintf("unknown node %q", name)}
	}
	if _, err := c.arena.RemoveNode(id); err != nil {
		return err
	}
	if err := c.g.RemoveNode(id); err != nil {
		return err
	}
	delete(c.names, name)
	delete(c.conds, id)
	return nil
}

// AddProjection connects a sender output port to a receiver input port
// and mirrors the edge into the scheduling graph.
func (c *Composition) AddProjection(sender, receiver mech.PortID, m mech.Matrix, feedback bool) (*mech.Projection, error) {
	if err := c.guard("add projection"); err != nil {
		return nil, err
	}
	pr, err := c.arena.AddPathway(sender, receiver, m, feedback)
	if err != nil {
		return nil, &StructuralError{Op: "add projection", Reason: err.Error()}
	}
	return pr, c.mirrorEdge(pr)
}

// AddModulatory connects a sender output port to a receiver parameter
// port. Modulatory projections order the sender before the receiver but
// are never part of a cycle designation unless marked feedback.
func (c *Composition) AddModulatory(sender, receiver mech.PortID, op mech.ModOp) (*mech.Projection, error) {
	if err := c.guard("add projection"); err != nil {
		return nil, err
	}
	pr, err := c.arena.AddModulatory(sender, receiver, op)
	if err != nil {
		return nil, &StructuralError{Op: "add projection", Reason: err.Error()}
	}
	return pr, c.mirrorEdge(pr)
}

func (c *Composition) mirrorEdge(pr *mech.Projection) error {
	sNode := c.arena.Port(pr.Sender).Owner
	rNode := c.arena.Port(pr.Receiver).Owner
	return c.g.AddEdge(sNode, rNode, pr.Feedback)
}

// Connect wires the primary output of sender to the primary input of
// receiver with a uniform weight. The common single-edge case.
func (c *Composition) Connect(sender, receiver string, weight float64, feedback bool) (*mech.Projection, error) {
	return c.ConnectMatrix(sender, receiver, mech.Scalar(weight), feedback)
}

// ConnectMatrix is Connect with an explicit transform matrix.
func (c *Composition) ConnectMatrix(sender, receiver string, m mech.Matrix, feedback bool) (*mech.Projection, error) {
	sn, ok := c.NodeByName(sender)
	if !ok {
		return nil, &StructuralError{Op: "add projection", Reason: fmt.Sprintf("unknown sender node %q", sender)}
	}
	rn, ok := c.NodeByName(receiver)
	if !ok {
		return nil, &StructuralError{Op: "add projection", Reason: fmt.Sprintf("unknown receiver node %q", receiver)}
	}
	return c.AddProjection(sn.PrimaryOutput(), rn.PrimaryInput(), m, feedback)
}

// RemoveProjection deletes a projection from the arena and the scheduling
// graph atomically from the caller's point of view.
func (c *Composition) RemoveProjection(id mech.ProjID) error {
	if err := c.guard("remove projection"); err != nil {
		return err
	}
	pr := c.arena.Proj(id)
	if pr == nil {
		return &StructuralError{Op: "remove projection", Reason: fmt.Sprintf("unknown projection handle %d", id)}
	}
	sNode := c.arena.Port(pr.Sender).Owner
	rNode := c.arena.Port(pr.Receiver).Owner
	feedback := pr.Feedback
	if err := c.arena.RemoveProjection(id); err != nil {
		return err
	}
	return c.g.RemoveEdge(sNode, rNode, feedback)
}

// SetCondition attaches a firing condition to a named node. Conditions
// apply to every execution context from its next Run.
func (c *Composition) SetCondition(name string, cond scheduler.Condition) error {
	n, ok := c.NodeByName(name)
	if !ok {
		return &StructuralError{Op: "set condition", Reason: fmt.Sprintf("unknown node %q", name)}
	}
	if cond == nil {
		delete(c.conds, n.ID)
	} else {
		c.conds[n.ID] = cond
	}
	return nil
}

// SetTermination replaces the default one-pass trial termination rule.
func (c *Composition) SetTermination(t scheduler.Termination) { c.term = t }

// ConsiderationQueue returns the ordered consideration sets as node
// records.
func (c *Composition) ConsiderationQueue() [][]*mech.Node {
	ids := c.g.ConsiderationQueue()
	out := make([][]*mech.Node, len(ids))
	for i, set := range ids {
		out[i] = make([]*mech.Node, len(set))
		for j, id := range set {
			out[i][j] = c.arena.Node(id)
		}
	}
	return out
}

// NodesByRole returns all nodes carrying the role, in creation order.
func (c *Composition) NodesByRole(role graph.Role) []*mech.Node {
	ids := c.g.NodesByRole(role)
	out := make([]*mech.Node, len(ids))
	for i, id := range ids {
		out[i] = c.arena.Node(id)
	}
	return out
}

// Roles returns a named node's structural role set.
func (c *Composition) Roles(name string) (graph.Role, error) {
	n, ok := c.NodeByName(name)
	if !ok {
		return 0, &StructuralError{Op: "roles", Reason: fmt.Sprintf("unknown node %q", name)}
	}
	return c.g.Roles(n.ID), nil
}

// context returns (creating if needed) the execution context for key.
func (c *Composition) context(key string) *execContext {
	ec := c.contexts[key]
	if ec == nil {
		ec = &execContext{state: mech.NewState(), sched: scheduler.New()}
		c.contexts[key] = ec
	}
	return ec
}

// Reinitialize resets a node's integrator and value history under one
// execution context. A nil value restores configured defaults.
func (c *Composition) Reinitialize(contextKey, name string, value [][]float64) error {
	n, ok := c.NodeByName(name)
	if !ok {
		return &StructuralError{Op: "reinitialize", Reason: fmt.Sprintf("unknown node %q", name)}
	}
	c.context(contextKey).state.Reinitialize(n, value)
	return nil
}

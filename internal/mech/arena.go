package mech

import "fmt"

// Arena owns every node, port, and projection record and hands out stable
// integer handles. All structural mutation goes through the arena so that
// both endpoints of a relationship are always updated together.
type Arena struct {
	nodes map[NodeID]*Node
	ports map[PortID]*Port
	projs map[ProjID]*Projection

	nextNode NodeID
	nextPort PortID
	nextProj ProjID
}

// NewArena returns an empty arena.
func NewArena() *Arena {
	return &Arena{
		nodes: make(map[NodeID]*Node),
		ports: make(map[PortID]*Port),
		projs: make(map[ProjID]*Projection),
	}
}

// Node looks up a node record; nil if the handle is dead.
func (a *Arena) Node(id NodeID) *Node { return a.nodes[id] }

// Port looks up a port record; nil if the handle is dead.
func (a *Arena) Port(id PortID) *Port { return a.ports[id] }

// Proj looks up a projection record; nil if the handle is dead.
func (a *Arena) Proj(id ProjID) *Projection { return a.projs[id] }

// NumNodes returns the count of live nodes.
func (a *Arena) NumNodes() int { return len(a.nodes) }

// AddNode constructs a node with its ports from cfg. Configuration
// problems surface here, before any trial runs.
func (a *Arena) AddNode(cfg NodeConfig) (*Node, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	variable := copyValue(cfg.Variable)
	if variable == nil {
		variable = [][]float64{{0}}
	}
	fn := cfg.Fn
	if fn == nil {
		fn = Identity{}
	}
	maxIter := cfg.MaxIter
	if maxIter <= 0 {
		maxIter = DefaultMaxIterations
	}

	a.nextNode++
	n := &Node{
		ID:          a.nextNode,
		Name:        cfg.Name,
		Variable:    variable,
		Fn:          fn,
		Integrator:  cfg.Integrator,
		Termination: cfg.Termination,
		Clip:        cfg.Clip,
		Noise:       cfg.Noise,
		MaxIter:     maxIter,
	}

	inputs := cfg.InputPorts
	if len(inputs) == 0 {
		inputs = make([]InputPortConfig, len(variable))
		for i := range inputs {
			inputs[i] = InputPortConfig{Name: fmt.Sprintf("in_%d", i)}
		}
	}
	for _, pc := range inputs {
		p := a.newPort(n.ID, InputPort, pc.Name)
		p.Combine = pc.Combine
		n.InputPorts = append(n.InputPorts, p.ID)
	}

	for _, pc := range cfg.ParamPorts {
		p := a.newPort(n.ID, ParameterPort, pc.Name)
		p.Base = pc.Base
		n.ParamPorts = append(n.ParamPorts, p.ID)
	}

	outputs := cfg.OutputPorts
	if len(outputs) == 0 {
		outputs = []OutputPortConfig{{Name: "out", Row: 0}}
	}
	for _, pc := range outputs {
		p := a.newPort(n.ID, OutputPort, pc.Name)
		p.Row = pc.Row
		p.Fn = pc.Fn
		n.OutputPorts = append(n.OutputPorts, p.ID)
	}

	a.nodes[n.ID] = n
	return n, nil
}

func (a *Arena) newPort(owner NodeID, kind PortKind, name string) *Port {
	a.nextPort++
	p := &Port{ID: a.nextPort, Owner: owner, Kind: kind, Name: name}
	a.ports[p.ID] = p
	return p
}

// RemoveNode deletes a node, its ports, and every projection touching
// those ports. The removed projection handles are returned so callers can
// mirror the removal in the scheduling graph.
func (a *Arena) RemoveNode(id NodeID) ([]ProjID, error) {
	n := a.nodes[id]
	if n == nil {
		return nil, fmt.Errorf("remove node: unknown node handle %d", id)
	}
	var removed []ProjID
	for _, pid := range a.nodePorts(n) {
		p := a.ports[pid]
		for _, prj := range append(append([]ProjID{}, p.Afferents...), p.Efferents...) {
			if a.projs[prj] != nil {
				if err := a.RemoveProjection(prj); err != nil {
					return removed, err
				}
				removed = append(removed, prj)
			}
		}
		delete(a.ports, pid)
	}
	delete(a.nodes, id)
	return removed, nil
}

func (a *Arena) nodePorts(n *Node) []PortID {
	out := make([]PortID, 0, len(n.InputPorts)+len(n.ParamPorts)+len(n.OutputPorts))
	out = append(out, n.InputPorts...)
	out = append(out, n.ParamPorts...)
	out = append(out, n.OutputPorts...)
	return out
}

// AddPathway connects a sender output port to a receiver input port.
func (a *Arena) AddPathway(sender, receiver PortID, m Matrix, feedback bool) (*Projection, error) {
	sp, rp, err := a.endpoints(sender, receiver)
	if err != nil {
		return nil, err
	}
	if rp.Kind != InputPort {
		return nil, &ConfigError{
			Subject: "projection",
			Reason:  fmt.Sprintf("pathway receiver must be an input port, got %s", rp.Kind),
		}
	}
	return a.link(&Projection{Kind: Pathway, Sender: sp.ID, Receiver: rp.ID, Matrix: m, Feedback: feedback}), nil
}

// AddModulatory connects a sender output port to a receiver parameter port.
func (a *Arena) AddModulatory(sender, receiver PortID, op ModOp) (*Projection, error) {
	sp, rp, err := a.endpoints(sender, receiver)
	if err != nil {
		return nil, err
	}
	if rp.Kind != ParameterPort {
		return nil, &ConfigError{
			Subject: "projection",
			Reason:  fmt.Sprintf("modulatory receiver must be a parameter port, got %s", rp.Kind),
		}
	}
	if !op.Valid() {
		return nil, &ConfigError{Subject: "projection", Reason: "invalid modulation operator"}
	}
	return a.link(&Projection{Kind: Modulatory, Sender: sp.ID, Receiver: rp.ID, Op: op}), nil
}

func (a *Arena) endpoints(sender, receiver PortID) (*Port, *Port, error) {
	sp := a.ports[sender]
	if sp == nil {
		return nil, nil, &ConfigError{Subject: "projection", Reason: "sender port does not exist"}
	}
	rp := a.ports[receiver]
	if rp == nil {
		return nil, nil, &ConfigError{Subject: "projection", Reason: "receiver port does not exist"}
	}
	if sp.Kind != OutputPort {
		return nil, nil, &ConfigError{
			Subject: "projection",
			Reason:  fmt.Sprintf("sender must be an output port, got %s", sp.Kind),
		}
	}
	return sp, rp, nil
}

func (a *Arena) link(pr *Projection) *Projection {
	a.nextProj++
	pr.ID = a.nextProj
	a.projs[pr.ID] = pr
	a.ports[pr.Sender].Efferents = append(a.ports[pr.Sender].Efferents, pr.ID)
	a.ports[pr.Receiver].Afferents = append(a.ports[pr.Receiver].Afferents, pr.ID)
	return pr
}

// ParamPort finds a node's parameter port by name.
func (a *Arena) ParamPort(n *Node, name string) (*Port, bool) {
	for _, pid := range n.ParamPorts {
		if p := a.ports[pid]; p != nil && p.Name == name {
			return p, true
		}
	}
	return nil, false
}

// RemoveProjection deletes a projection and unhooks both endpoints.
func (a *Arena) RemoveProjection(id ProjID) error {
	pr := a.projs[id]
	if pr == nil {
		return fmt.Errorf("remove projection: unknown projection handle %d", id)
	}
	if sp := a.ports[pr.Sender]; sp != nil {
		sp.removeEfferent(id)
	}
	if rp := a.ports[pr.Receiver]; rp != nil {
		rp.removeAfferent(id)
	}
	delete(a.projs, id)
	return nil
}

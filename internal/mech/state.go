package mech

// NodeState is one node's mutable data under a single execution context.
type NodeState struct {
	// Variable holds the aggregated input, one row per input port.
	Variable [][]float64
	// Value is the node's last computed result; PrevValue the one before,
	// used by convergence measures.
	Value     [][]float64
	PrevValue [][]float64

	// integ is the integrator's previous value; nil until first use.
	integ [][]float64

	// Fired counts completed firings of this node under this context.
	Fired int
}

// State holds all per-context mutable data for one topology: node records,
// published output-port values, and outputs staged for publication. Two
// States over the same arena never share data, which is what lets one
// topology be evaluated under many execution contexts independently.
type State struct {
	nodes    map[NodeID]*NodeState
	ports    map[PortID][]float64
	staged   map[PortID][]float64
	external map[NodeID][][]float64
}

// NewState returns an empty state for one execution context.
func NewState() *State {
	return &State{
		nodes:    make(map[NodeID]*NodeState),
		ports:    make(map[PortID][]float64),
		staged:   make(map[PortID][]float64),
		external: make(map[NodeID][][]float64),
	}
}

// NodeState returns (creating if needed) the record for a node, seeding
// variable and value from the node's defaults.
func (st *State) NodeState(n *Node) *NodeState {
	ns := st.nodes[n.ID]
	if ns == nil {
		ns = &NodeState{
			Variable:  copyValue(n.Variable),
			Value:     copyValue(n.Variable),
			PrevValue: copyValue(n.Variable),
		}
		st.nodes[n.ID] = ns
	}
	return ns
}

// SetExternalInput assigns a node's trial input, consumed by input ports
// with no pathway afferents during aggregation. The row count must match
// the node's input port count; a mismatch surfaces at execution.
func (st *State) SetExternalInput(id NodeID, input [][]float64) {
	st.external[id] = copyValue(input)
}

// ClearExternalInputs drops all assigned trial inputs.
func (st *State) ClearExternalInputs() {
	st.external = make(map[NodeID][][]float64)
}

// PortValue returns the published value of an output port, or nil if the
// owning node has never published.
func (st *State) PortValue(id PortID) []float64 {
	return st.ports[id]
}

// Stage buffers an output port value without making it visible. Downstream
// nodes keep seeing the previously published value until Publish runs.
func (st *State) Stage(id PortID, v []float64) {
	st.staged[id] = v
}

// Publish flips every staged port value to visible. The trial scheduler
// calls this after each consideration set completes, which is what makes
// nodes within a set logically simultaneous.
func (st *State) Publish() {
	for id, v := range st.staged {
		st.ports[id] = v
	}
	st.staged = make(map[PortID][]float64)
}

// Reinitialize resets a node's integrator and value history. A nil value
// restores the node's configured defaults.
func (st *State) Reinitialize(n *Node, value [][]float64) {
	ns := st.NodeState(n)
	if value == nil {
		value = n.Variable
	}
	ns.Value = copyValue(value)
	ns.PrevValue = copyValue(value)
	if n.Integrator != nil && n.Integrator.Initial != nil {
		ns.integ = copyValue(n.Integrator.Initial)
	} else {
		ns.integ = nil
	}
}

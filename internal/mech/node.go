package mech

import "fmt"

// Handles into the arena. Zero is never a valid handle.
type (
	NodeID int
	PortID int
	ProjID int
)

// DefaultMaxIterations bounds a stateful node's settle loop within one
// firing. Exceeding it degrades to a logged warning, not an error.
const DefaultMaxIterations = 1000

// IntegratorSpec puts a node in stateful mode: each firing blends new
// input with the previous integrated value before the node's function runs.
//
//	new = rate*input + (1-rate)*previous + noise
//
// The rate is modulable through a parameter port named "rate".
type IntegratorSpec struct {
	Rate float64
	// Initial seeds the integrator's previous value. Nil seeds zeros in
	// the shape of the node's variable.
	Initial [][]float64
}

// ClipSpec bounds a node's final value into [Min, Max]. It applies after
// the function, never to the integrator's intermediate output.
type ClipSpec struct {
	Min float64
	Max float64
}

func (c *ClipSpec) clip(v float64) float64 {
	if v < c.Min {
		return c.Min
	}
	if v > c.Max {
		return c.Max
	}
	return v
}

// Node is one unit of computation. Ports are held as ordered handle lists;
// the port records themselves live in the arena.
type Node struct {
	ID   NodeID
	Name string

	// Variable is the node's default variable, one row per input port.
	// It fixes the shape every aggregated input must match.
	Variable [][]float64

	InputPorts  []PortID
	ParamPorts  []PortID
	OutputPorts []PortID

	Fn          Function
	Integrator  *IntegratorSpec
	Termination *TerminationSpec
	Clip        *ClipSpec
	Noise       func() float64
	MaxIter     int
}

// Stateful reports whether the node runs through an integrator.
func (n *Node) Stateful() bool { return n.Integrator != nil }

// PrimaryInput returns the node's first input port handle.
func (n *Node) PrimaryInput() PortID { return n.InputPorts[0] }

// PrimaryOutput returns the node's first output port handle.
func (n *Node) PrimaryOutput() PortID { return n.OutputPorts[0] }

// InputPortConfig describes one input port at node construction.
type InputPortConfig struct {
	Name    string
	Combine CombineRule
}

// ParamPortConfig describes one modulable parameter at node construction.
// Name must match a parameter the node's function consults (or "rate" for
// the integrator).
type ParamPortConfig struct {
	Name string
	Base float64
}

// OutputPortConfig describes one output port at node construction. Row
// selects which slice of the node's value the port reads; RowAll means the
// whole value flattened.
type OutputPortConfig struct {
	Name string
	Row  int
	Fn   Function
}

// NodeConfig is everything needed to construct a node. Zero-value fields
// get defaults: a [[0]] variable, identity function, one input port per
// variable row, and one output port reading row 0.
type NodeConfig struct {
	Name        string
	Variable    [][]float64
	Fn          Function
	InputPorts  []InputPortConfig
	ParamPorts  []ParamPortConfig
	OutputPorts []OutputPortConfig
	Integrator  *IntegratorSpec
	Termination *TerminationSpec
	Clip        *ClipSpec
	Noise       func() float64
	MaxIter     int
}

func (cfg *NodeConfig) validate() error {
	if cfg.Name == "" {
		return &ConfigError{Subject: "node", Reason: "name must not be empty"}
	}
	for _, row := range cfg.Variable {
		if len(row) == 0 {
			return &ConfigError{Subject: "node " + cfg.Name, Reason: "variable rows must not be empty"}
		}
	}
	if len(cfg.InputPorts) > 0 && len(cfg.Variable) > 0 && len(cfg.InputPorts) != len(cfg.Variable) {
		return &ConfigError{
			Subject: "node " + cfg.Name,
			Reason:  "input port count must equal variable row count",
		}
	}
	if cfg.Termination != nil {
		if cfg.Integrator == nil {
			return &ConfigError{
				Subject: "node " + cfg.Name,
				Reason:  "termination threshold requires an integrator",
			}
		}
		if err := cfg.Termination.Validate(); err != nil {
			return err
		}
	}
	if cfg.Integrator != nil && (cfg.Integrator.Rate < 0 || cfg.Integrator.Rate > 1) {
		return &ConfigError{
			Subject: "node " + cfg.Name,
			Reason:  "integrator rate must be in [0, 1]",
		}
	}
	if cfg.Clip != nil && cfg.Clip.Min > cfg.Clip.Max {
		return &ConfigError{Subject: "node " + cfg.Name, Reason: "clip min exceeds max"}
	}
	fn := cfg.Fn
	if fn == nil {
		fn = Identity{}
	}
	modulable := make(map[string]bool)
	for _, name := range fn.ParamNames() {
		modulable[name] = true
	}
	if cfg.Integrator != nil {
		modulable["rate"] = true
	}
	for _, p := range cfg.ParamPorts {
		if !modulable[p.Name] {
			return &ConfigError{
				Subject: "node " + cfg.Name,
				Reason:  fmt.Sprintf("parameter port %q is not consulted by function %q", p.Name, fn.Name()),
			}
		}
	}
	rows := len(cfg.Variable)
	if rows == 0 {
		rows = 1
	}
	for _, op := range cfg.OutputPorts {
		if op.Row != RowAll && (op.Row < 0 || op.Row >= rows) {
			return &ConfigError{
				Subject: "node " + cfg.Name,
				Reason:  "output port row index out of range",
			}
		}
	}
	return nil
}

package config

import "context"

// Model is the unified, format-agnostic representation of one composition
// definition, merged from all loaded model files.
type Model struct {
	Name        string
	Nodes       []*Node
	Projections []*Projection
	Inputs      map[string][][][]float64
	Run         Run
}

// Node describes one mechanism.
type Node struct {
	Name          string
	Function      string
	Args          map[string]float64
	Variable      [][]float64
	MaxIterations int
	Integrator    *Integrator
	Termination   *Termination
	Clip          *Clip
	InputPorts    []InputPort
	Parameters    []Parameter
	Condition     *Condition
}

// InputPort declares one input port and how its afferents combine.
// An empty Combine means elementwise sum.
type InputPort struct {
	Name    string
	Combine string
}

// Integrator puts a node in stateful mode.
type Integrator struct {
	Rate    float64
	Initial [][]float64
}

// Termination configures a stateful node's settle rule.
type Termination struct {
	Measure    string
	Comparator string
	Threshold  float64
}

// Clip bounds a node's final value.
type Clip struct {
	Min float64
	Max float64
}

// Parameter declares one modulable parameter port.
type Parameter struct {
	Name string
	Base float64
}

// Condition gates a node's firing.
type Condition struct {
	Kind string
	Node string
	N    int
}

// Projection describes one directed edge. Modulates selects a parameter
// port on the receiver; empty means a pathway into the primary input.
type Projection struct {
	Sender    string
	Receiver  string
	Weight    *float64
	Matrix    [][]float64
	Feedback  bool
	Modulates string
	Operator  string
}

// Run holds trial-loop settings.
type Run struct {
	Trials int
	Passes int
}

// Loader is the interface for a format-specific model loader.
type Loader interface {
	// Load reads model definitions from the given paths and merges them
	// into one format-agnostic Model.
	Load(ctx context.Context, paths ...string) (*Model, error)
}

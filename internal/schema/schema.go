package schema

// HCL block structures for model files. These mirror the HCL surface
// exactly; translation into the format-agnostic config model happens in
// the hclmodel package.

// IntegratorBlock puts a node in stateful mode.
type IntegratorBlock struct {
	Rate    float64     `hcl:"rate"`
	Initial [][]float64 `hcl:"initial,optional"`
}

// TerminationBlock configures when a stateful node stops iterating.
type TerminationBlock struct {
	Measure    string  `hcl:"measure,optional"`
	Comparator string  `hcl:"comparator,optional"`
	Threshold  float64 `hcl:"threshold"`
}

// ClipBlock bounds a node's final value.
type ClipBlock struct {
	Min float64 `hcl:"min"`
	Max float64 `hcl:"max"`
}

// InputPortBlock names an input port and the rule its pathway afferents
// combine under.
type InputPortBlock struct {
	Name    string `hcl:"name,label"`
	Combine string `hcl:"combine,optional"`
}

// ParameterBlock declares one modulable parameter port on a node.
type ParameterBlock struct {
	Name string  `hcl:"name,label"`
	Base float64 `hcl:"base"`
}

// ConditionBlock attaches a firing condition to a node.
type ConditionBlock struct {
	Kind string `hcl:"kind"`
	Node string `hcl:"node,optional"`
	N    int    `hcl:"n,optional"`
}

// Node represents a `node` block from a user's model file.
type Node struct {
	Name          string             `hcl:"name,label"`
	Function      string             `hcl:"function,optional"`
	Args          map[string]float64 `hcl:"args,optional"`
	Variable      [][]float64        `hcl:"variable,optional"`
	MaxIterations int                `hcl:"max_iterations,optional"`
	Integrator    *IntegratorBlock   `hcl:"integrator,block"`
	Termination   *TerminationBlock  `hcl:"termination,block"`
	Clip          *ClipBlock         `hcl:"clip,block"`
	InputPorts    []*InputPortBlock  `hcl:"input_port,block"`
	Parameters    []*ParameterBlock  `hcl:"parameter,block"`
	Condition     *ConditionBlock    `hcl:"condition,block"`
}

// Projection represents a `projection` block: a directed weighted edge
// from the sender node's primary output to the receiver node's primary
// input, or to a named parameter port when `modulates` is set.
type Projection struct {
	Sender    string      `hcl:"sender,label"`
	Receiver  string      `hcl:"receiver,label"`
	Weight    *float64    `hcl:"weight,optional"`
	Matrix    [][]float64 `hcl:"matrix,optional"`
	Feedback  bool        `hcl:"feedback,optional"`
	Modulates string      `hcl:"modulates,optional"`
	Operator  string      `hcl:"operator,optional"`
}

// Input represents an `input` block: the per-trial input sequence for one
// origin node.
type Input struct {
	Node   string        `hcl:"node,label"`
	Trials [][][]float64 `hcl:"trials"`
}

// Run represents the optional `run` block.
type Run struct {
	Trials int `hcl:"trials,optional"`
	Passes int `hcl:"passes,optional"`
}

// Model is the top-level structure of one model file.
type Model struct {
	Name        string        `hcl:"name,optional"`
	Nodes       []*Node       `hcl:"node,block"`
	Projections []*Projection `hcl:"projection,block"`
	Inputs      []*Input      `hcl:"input,block"`
	Run         *Run          `hcl:"run,block"`
}

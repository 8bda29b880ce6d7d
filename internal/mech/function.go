package mech

import (
	"fmt"
	"math"
)

// Params holds the effective parameter values for one invocation of a
// transform function: base values after modulation and any runtime
// overrides. A missing key means "use the function's own default".
type Params map[string]float64

// Get returns the parameter named key, or fallback if it is absent.
func (p Params) Get(key string, fallback float64) float64 {
	if p == nil {
		return fallback
	}
	if v, ok := p[key]; ok {
		return v
	}
	return fallback
}

// Function is a pure transform applied row-wise to a node's variable.
// Implementations must not retain state between calls; stateful behavior
// belongs to the integrator, not the function.
type Function interface {
	Name() string
	// ParamNames lists the parameter names Apply consults. A parameter
	// port may only bind to one of these (or to the integrator's "rate").
	ParamNames() []string
	Apply(in []float64, p Params) []float64
}

// Identity passes its input through unchanged.
type Identity struct{}

func (Identity) Name() string { return "identity" }

func (Identity) ParamNames() []string { return nil }

func (Identity) Apply(in []float64, _ Params) []float64 {
	return copyRow(in)
}

// Linear computes slope*x + intercept elementwise. Both parameters are
// modulable through parameter ports named "slope" and "intercept".
type Linear struct {
	Slope     float64
	Intercept float64
}

func (Linear) Name() string { return "linear" }

func (Linear) ParamNames() []string { return []string{"slope", "intercept"} }

func (f Linear) Apply(in []float64, p Params) []float64 {
	slope := p.Get("slope", f.Slope)
	icpt := p.Get("intercept", f.Intercept)
	out := make([]float64, len(in))
	for i, v := range in {
		out[i] = slope*v + icpt
	}
	return out
}

// Logistic computes 1 / (1 + exp(-gain*(x-bias))) elementwise.
type Logistic struct {
	Gain float64
	Bias float64
}

func (Logistic) Name() string { return "logistic" }

func (Logistic) ParamNames() []string { return []string{"gain", "bias"} }

func (f Logistic) Apply(in []float64, p Params) []float64 {
	gain := p.Get("gain", f.Gain)
	if gain == 0 && f.Gain == 0 {
		gain = 1
	}
	bias := p.Get("bias", f.Bias)
	out := make([]float64, len(in))
	for i, v := range in {
		out[i] = 1 / (1 + math.Exp(-gain*(v-bias)))
	}
	return out
}

// ReLU computes max(0, x) elementwise, with an optional leak slope for
// negative inputs.
type ReLU struct {
	Leak float64
}

func (ReLU) Name() string { return "relu" }

func (ReLU) ParamNames() []string { return []string{"leak"} }

func (f ReLU) Apply(in []float64, p Params) []float64 {
	leak := p.Get("leak", f.Leak)
	out := make([]float64, len(in))
	for i, v := range in {
		if v > 0 {
			out[i] = v
		} else {
			out[i] = leak * v
		}
	}
	return out
}

// FunctionByName constructs one of the named transform functions from a
// flat argument map. Unknown names are a configuration error.
func FunctionByName(name string, args map[string]float64) (Function, error) {
	get := func(key string, fallback float64) float64 {
		if v, ok := args[key]; ok {
			return v
		}
		return fallback
	}
	switch name {
	case "", "identity":
		return Identity{}, nil
	case "linear":
		return Linear{Slope: get("slope", 1), Intercept: get("intercept", 0)}, nil
	case "logistic":
		return Logistic{Gain: get("gain", 1), Bias: get("bias", 0)}, nil
	case "relu":
		return ReLU{Leak: get("leak", 0)}, nil
	default:
		return nil, &ConfigError{Subject: "function", Reason: fmt.Sprintf("unknown function %q", name)}
	}
}

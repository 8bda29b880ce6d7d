package mech

import (
	"context"

	"github.com/vk/mechnet/internal/ctxlog"
)

// ExecResult is the outcome of one firing of a node: the final value, how
// many settle iterations it took, and whether the termination condition
// was actually met. A firing that hits the iteration ceiling reports
// Converged=false and carries the last computed value.
type ExecResult struct {
	Value      [][]float64
	Iterations int
	Converged  bool
}

// Execute runs one full update cycle for a node under the given state:
// aggregate inputs, modulate parameters, compute (iterating a stateful
// node until its termination condition holds), and stage output-port
// values for publication.
//
// overrides are runtime parameter values scoped to exactly this
// invocation; they shadow modulated values and are discarded afterward.
func (a *Arena) Execute(ctx context.Context, id NodeID, st *State, overrides Params) (ExecResult, error) {
	n := a.nodes[id]
	if n == nil {
		return ExecResult{}, &ConfigError{Subject: "execute", Reason: "unknown node handle"}
	}
	ns := st.NodeState(n)

	if err := a.aggregate(n, ns, st); err != nil {
		return ExecResult{}, err
	}
	params := a.modulate(n, st, overrides)

	res, err := a.compute(ctx, n, ns, params)
	if err != nil {
		return ExecResult{}, err
	}

	if err := a.stageOutputs(n, ns, st); err != nil {
		return ExecResult{}, err
	}
	ns.Fired++
	return res, nil
}

// aggregate pulls every pathway afferent of every input port, applies the
// projection matrices, and combines contributions into the port's row of
// the node's variable. A port with no non-feedback afferents also folds in
// the node's external input for the trial, so an origin node keeps its
// input even when feedback projections arrive at the same port. A port
// that pulls nothing at all carries over its previous variable row.
func (a *Arena) aggregate(n *Node, ns *NodeState, st *State) error {
	ext := st.external[n.ID]
	for i, pid := range n.InputPorts {
		p := a.ports[pid]
		var acc []float64
		structural := false
		for _, prjID := range p.Afferents {
			pr := a.projs[prjID]
			if pr == nil || pr.Kind != Pathway {
				continue
			}
			sv := st.PortValue(pr.Sender)
			if sv == nil {
				sv = a.defaultPortValue(a.ports[pr.Sender])
			}
			tv, err := pr.Matrix.Apply(sv)
			if err != nil {
				return a.located(err, n, p)
			}
			acc, err = p.Combine.combine(acc, tv)
			if err != nil {
				return a.located(err, n, p)
			}
			if !pr.Feedback {
				structural = true
			}
		}
		if !structural && i < len(ext) {
			var err error
			acc, err = p.Combine.combine(acc, copyRow(ext[i]))
			if err != nil {
				return a.located(err, n, p)
			}
		}
		if acc == nil {
			acc = copyRow(ns.Variable[i])
		}
		if p.Fn != nil {
			acc = p.Fn.Apply(acc, nil)
		}
		if len(acc) != len(n.Variable[i]) {
			return &ShapeError{Node: n.Name, Port: p.Name, What: "variable row", Want: len(n.Variable[i]), Got: len(acc)}
		}
		ns.Variable[i] = acc
	}
	return nil
}

func (a *Arena) located(err error, n *Node, p *Port) error {
	if se, ok := err.(*ShapeError); ok && se.Node == "" {
		se.Node = n.Name
		se.Port = p.Name
	}
	return err
}

// modulate resolves every parameter port to its effective value for this
// invocation: base value shaped by each modulatory afferent's operator,
// then shadowed by runtime overrides.
func (a *Arena) modulate(n *Node, st *State, overrides Params) Params {
	params := make(Params, len(n.ParamPorts)+len(overrides))
	for _, pid := range n.ParamPorts {
		p := a.ports[pid]
		v := p.Base
		for _, prjID := range p.Afferents {
			pr := a.projs[prjID]
			if pr == nil || pr.Kind != Modulatory {
				continue
			}
			sv := st.PortValue(pr.Sender)
			if sv == nil {
				sv = a.defaultPortValue(a.ports[pr.Sender])
			}
			sig := 0.0
			if len(sv) > 0 {
				sig = sv[0]
			}
			v = pr.Op.Apply(v, sig)
		}
		params[p.Name] = v
	}
	for k, v := range overrides {
		params[k] = v
	}
	return params
}

// compute runs the function (through the integrator when stateful) until
// the termination condition holds or the iteration ceiling is reached.
// Every iteration reuses the already-aggregated variable; only the
// integrator's previous value advances.
func (a *Arena) compute(ctx context.Context, n *Node, ns *NodeState, params Params) (ExecResult, error) {
	var res ExecResult
	for {
		res.Iterations++

		pre := ns.Variable
		if n.Stateful() {
			integ, err := a.integrate(n, ns, params)
			if err != nil {
				return ExecResult{}, err
			}
			pre = integ
		}

		out := make([][]float64, len(pre))
		for i, row := range pre {
			out[i] = n.Fn.Apply(row, params)
		}
		if !n.Stateful() && n.Noise != nil {
			for _, row := range out {
				for j := range row {
					row[j] += n.Noise()
				}
			}
		}
		if n.Clip != nil {
			for _, row := range out {
				for j := range row {
					row[j] = n.Clip.clip(row[j])
				}
			}
		}

		ns.PrevValue = ns.Value
		ns.Value = out

		if !n.Stateful() || n.Termination == nil {
			res.Converged = true
			break
		}
		if n.Termination.Satisfied(ns.Value, ns.PrevValue) {
			res.Converged = true
			break
		}
		if res.Iterations >= n.MaxIter {
			ctxlog.FromContext(ctx).Warn("iteration ceiling reached before termination; keeping last value",
				"node", n.Name, "iterations", res.Iterations,
				"status", n.Termination.Status(ns.Value, ns.PrevValue),
				"threshold", n.Termination.Threshold)
			res.Converged = false
			break
		}
	}
	res.Value = copyValue(ns.Value)
	return res, nil
}

// integrate advances the node's integrator one step:
// new = rate*input + (1-rate)*previous + noise.
func (a *Arena) integrate(n *Node, ns *NodeState, params Params) ([][]float64, error) {
	rate := params.Get("rate", n.Integrator.Rate)
	prev := ns.integ
	if prev == nil {
		if n.Integrator.Initial != nil {
			prev = copyValue(n.Integrator.Initial)
		} else {
			prev = zerosLike(n.Variable)
		}
	}
	if len(prev) != len(ns.Variable) {
		return nil, &ShapeError{Node: n.Name, What: "integrator state", Want: len(ns.Variable), Got: len(prev)}
	}
	out := make([][]float64, len(ns.Variable))
	for i, row := range ns.Variable {
		if len(prev[i]) != len(row) {
			return nil, &ShapeError{Node: n.Name, What: "integrator row", Want: len(row), Got: len(prev[i])}
		}
		out[i] = make([]float64, len(row))
		for j, v := range row {
			out[i][j] = rate*v + (1-rate)*prev[i][j]
			if n.Noise != nil {
				out[i][j] += n.Noise()
			}
		}
	}
	ns.integ = out
	return out, nil
}

// stageOutputs computes each output port's slice of the final value and
// buffers it; the scheduler publishes the whole set at once.
func (a *Arena) stageOutputs(n *Node, ns *NodeState, st *State) error {
	for _, pid := range n.OutputPorts {
		p := a.ports[pid]
		src, err := sliceValue(ns.Value, p.Row)
		if err != nil {
			return a.located(err, n, p)
		}
		if p.Fn != nil {
			src = p.Fn.Apply(src, nil)
		}
		st.Stage(pid, src)
	}
	return nil
}

// defaultPortValue is what downstream sees from an output port whose node
// has never published: zeros in the port's slice shape.
func (a *Arena) defaultPortValue(p *Port) []float64 {
	owner := a.nodes[p.Owner]
	src, err := sliceValue(owner.Variable, p.Row)
	if err != nil {
		return nil
	}
	return make([]float64, len(src))
}

func sliceValue(value [][]float64, row int) ([]float64, error) {
	if row == RowAll {
		var out []float64
		for _, r := range value {
			out = append(out, r...)
		}
		return out, nil
	}
	if row < 0 || row >= len(value) {
		return nil, &ShapeError{What: "output row index", Want: len(value), Got: row}
	}
	return copyRow(value[row]), nil
}

func zerosLike(v [][]float64) [][]float64 {
	out := make([][]float64, len(v))
	for i, row := range v {
		out[i] = make([]float64, len(row))
	}
	return out
}

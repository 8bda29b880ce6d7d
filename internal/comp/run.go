package comp

import (
	"context"
	"fmt"

	"github.com/vk/mechnet/internal/ctxlog"
	"github.com/vk/mechnet/internal/graph"
	"github.com/vk/mechnet/internal/mech"
	"github.com/vk/mechnet/internal/scheduler"
)

// Inputs maps each ORIGIN node to its sequence of per-trial input values.
// Trials beyond the sequence length reuse the last value.
type Inputs map[string][][][]float64

// TrialResult maps each TERMINAL node to its value at the end of one
// trial.
type TrialResult map[string][][]float64

// Results holds one TrialResult per completed trial.
type Results []TrialResult

// RunOptions configures one Run call. The zero value runs a single trial
// under the default execution context with one-pass trials.
type RunOptions struct {
	// Trials is the number of trials to evaluate; 0 means 1.
	Trials int
	// Context selects the execution context; independent contexts share
	// topology but never state.
	Context string
	// Termination overrides the composition's trial termination rule for
	// this run only.
	Termination scheduler.Termination
	// Callbacks hook trial/pass/time-step boundaries.
	Callbacks scheduler.Callbacks
}

// runner adapts the composition to the scheduler's Runner contract for
// one execution context.
type runner struct {
	arena *mech.Arena
	state *mech.State
}

func (r runner) FireNode(ctx context.Context, id mech.NodeID) error {
	_, err := r.arena.Execute(ctx, id, r.state, nil)
	return err
}

func (r runner) PublishSet(context.Context) {
	r.state.Publish()
}

// Run evaluates the composition over discrete trials and returns each
// trial's terminal-node values. A shape error aborts the current trial
// but the results of completed trials are returned alongside the error.
func (c *Composition) Run(ctx context.Context, inputs Inputs, opts RunOptions) (Results, error) {
	if c.running {
		return nil, &StructuralError{Op: "run", Reason: "composition is already mid-trial"}
	}
	logger := ctxlog.FromContext(ctx)

	trials := opts.Trials
	if trials <= 0 {
		trials = 1
	}

	series := make(map[mech.NodeID][][][]float64, len(inputs))
	for name, vals := range inputs {
		n, ok := c.NodeByName(name)
		if !ok {
			return nil, &StructuralError{Op: "run", Reason: fmt.Sprintf("inputs name unknown node %q", name)}
		}
		if !c.g.Roles(n.ID).Has(graph.RoleOrigin) {
			return nil, &StructuralError{Op: "run", Reason: fmt.Sprintf("node %q is not an origin; only origin nodes take trial input", name)}
		}
		if len(vals) == 0 {
			return nil, &StructuralError{Op: "run", Reason: fmt.Sprintf("empty input sequence for node %q", name)}
		}
		series[n.ID] = vals
	}

	queue := c.g.ConsiderationQueue()
	terminals := c.g.NodesByRole(graph.RoleTerminal)

	ec := c.context(opts.Context)
	for id, cond := range c.conds {
		ec.sched.SetCondition(id, cond)
	}
	term := opts.Termination
	if term == nil {
		term = c.term
	}
	ec.sched.SetTermination(term)

	c.running = true
	defer func() { c.running = false }()

	var results Results
	for t := 0; t < trials; t++ {
		for id, vals := range series {
			idx := t
			if idx >= len(vals) {
				idx = len(vals) - 1
			}
			ec.state.SetExternalInput(id, vals[idx])
		}

		if err := ec.sched.RunTrial(ctx, queue, runner{arena: c.arena, state: ec.state}, opts.Callbacks); err != nil {
			return results, fmt.Errorf("composition %q: %w", c.name, err)
		}

		result := make(TrialResult, len(terminals))
		for _, id := range terminals {
			n := c.arena.Node(id)
			result[n.Name] = c.Value(opts.Context, n.Name)
		}
		results = append(results, result)
		logger.Debug("trial recorded", "composition", c.name, "trial", t, "terminals", len(result))
	}
	return results, nil
}

// Value returns a copy of a node's current value under one execution
// context; nil if the node is unknown.
func (c *Composition) Value(contextKey, name string) [][]float64 {
	n, ok := c.NodeByName(name)
	if !ok {
		return nil
	}
	ns := c.context(contextKey).state.NodeState(n)
	out := make([][]float64, len(ns.Value))
	for i, row := range ns.Value {
		out[i] = append([]float64(nil), row...)
	}
	return out
}

package comp

import (
	"context"
	"fmt"

	"github.com/vk/mechnet/internal/config"
	"github.com/vk/mechnet/internal/ctxlog"
	"github.com/vk/mechnet/internal/mech"
	"github.com/vk/mechnet/internal/scheduler"
)

// Build constructs a complete, validated composition from a config model.
func Build(ctx context.Context, model *config.Model) (*Composition, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Build: starting composition construction.")

	name := model.Name
	if name == "" {
		name = "composition"
	}
	c := New(name)

	// First pass: create all nodes.
	for _, nc := range model.Nodes {
		cfg, err := nodeConfig(nc)
		if err != nil {
			return nil, err
		}
		if _, err := c.AddNode(cfg); err != nil {
			return nil, err
		}
	}
	logger.Debug("Build: node creation complete.", "node_count", len(model.Nodes))

	// Second pass: link projections.
	for _, pc := range model.Projections {
		if err := link(c, pc); err != nil {
			return nil, err
		}
	}
	logger.Debug("Build: projection linking complete.", "projection_count", len(model.Projections))

	// Third pass: conditions, which may reference any node by name.
	for _, nc := range model.Nodes {
		if nc.Condition == nil {
			continue
		}
		cond, err := buildCondition(c, nc.Condition)
		if err != nil {
			return nil, fmt.Errorf("node %q: %w", nc.Name, err)
		}
		if err := c.SetCondition(nc.Name, cond); err != nil {
			return nil, err
		}
	}

	if model.Run.Passes > 0 {
		c.SetTermination(scheduler.AfterNPasses{N: model.Run.Passes})
	}

	logger.Debug("Build: composition construction successful.")
	return c, nil
}

func nodeConfig(nc *config.Node) (mech.NodeConfig, error) {
	fn, err := mech.FunctionByName(nc.Function, nc.Args)
	if err != nil {
		return mech.NodeConfig{}, fmt.Errorf("node %q: %w", nc.Name, err)
	}
	cfg := mech.NodeConfig{
		Name:     nc.Name,
		Variable: nc.Variable,
		Fn:       fn,
		MaxIter:  nc.MaxIterations,
	}
	if nc.Integrator != nil {
		cfg.Integrator = &mech.IntegratorSpec{Rate: nc.Integrator.Rate, Initial: nc.Integrator.Initial}
	}
	if nc.Termination != nil {
		measure := mech.MeasureMaxAbsDiff
		if nc.Termination.Measure != "" {
			if measure, err = mech.MeasureByName(nc.Termination.Measure); err != nil {
				return mech.NodeConfig{}, fmt.Errorf("node %q: %w", nc.Name, err)
			}
		}
		cmp := mech.CmpLE
		if nc.Termination.Comparator != "" {
			if cmp, err = mech.ComparatorByName(nc.Termination.Comparator); err != nil {
				return mech.NodeConfig{}, fmt.Errorf("node %q: %w", nc.Name, err)
			}
		}
		cfg.Termination = &mech.TerminationSpec{Measure: measure, Comparator: cmp, Threshold: nc.Termination.Threshold}
	}
	if nc.Clip != nil {
		cfg.Clip = &mech.ClipSpec{Min: nc.Clip.Min, Max: nc.Clip.Max}
	}
	for _, ip := range nc.InputPorts {
		rule, err := mech.CombineRuleByName(ip.Combine)
		if err != nil {
			return mech.NodeConfig{}, fmt.Errorf("node %q: %w", nc.Name, err)
		}
		cfg.InputPorts = append(cfg.InputPorts, mech.InputPortConfig{Name: ip.Name, Combine: rule})
	}
	for _, p := range nc.Parameters {
		cfg.ParamPorts = append(cfg.ParamPorts, mech.ParamPortConfig{Name: p.Name, Base: p.Base})
	}
	return cfg, nil
}

func link(c *Composition, pc *config.Projection) error {
	if pc.Modulates == "" {
		var m mech.Matrix
		switch {
		case pc.Matrix != nil:
			m = mech.Matrix(pc.Matrix)
		case pc.Weight != nil:
			m = mech.Scalar(*pc.Weight)
		}
		_, err := c.ConnectMatrix(pc.Sender, pc.Receiver, m, pc.Feedback)
		return err
	}

	sn, ok := c.NodeByName(pc.Sender)
	if !ok {
		return &StructuralError{Op: "add projection", Reason: fmt.Sprintf("unknown sender node %q", pc.Sender)}
	}
	rn, ok := c.NodeByName(pc.Receiver)
	if !ok {
		return &StructuralError{Op: "add projection", Reason: fmt.Sprintf("unknown receiver node %q", pc.Receiver)}
	}
	pp, ok := c.arena.ParamPort(rn, pc.Modulates)
	if !ok {
		return &StructuralError{
			Op:     "add projection",
			Reason: fmt.Sprintf("node %q has no parameter port %q", pc.Receiver, pc.Modulates),
		}
	}
	op := mech.ModAdd
	if pc.Operator != "" {
		var err error
		if op, err = mech.ModOpByName(pc.Operator); err != nil {
			return err
		}
	}
	_, err := c.AddModulatory(sn.PrimaryOutput(), pp.ID, op)
	return err
}

func buildCondition(c *Composition, cc *config.Condition) (scheduler.Condition, error) {
	resolve := func() (mech.NodeID, error) {
		n, ok := c.NodeByName(cc.Node)
		if !ok {
			return 0, fmt.Errorf("condition references unknown node %q", cc.Node)
		}
		return n.ID, nil
	}
	switch cc.Kind {
	case "", "always":
		return scheduler.Always{}, nil
	case "after_n_calls":
		id, err := resolve()
		if err != nil {
			return nil, err
		}
		return scheduler.AfterNCalls{Node: id, N: cc.N}, nil
	case "every_n_calls":
		id, err := resolve()
		if err != nil {
			return nil, err
		}
		return scheduler.EveryNCalls{Node: id, N: cc.N}, nil
	case "at_pass":
		return scheduler.AtPass{N: cc.N}, nil
	default:
		return nil, fmt.Errorf("unknown condition kind %q", cc.Kind)
	}
}

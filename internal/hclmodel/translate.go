// Translation from the HCL schema structs into the format-agnostic
// configuration model defined in the config package.

package hclmodel

import (
	"github.com/vk/mechnet/internal/config"
	"github.com/vk/mechnet/internal/schema"
)

func translateNode(s *schema.Node) *config.Node {
	n := &config.Node{
		Name:          s.Name,
		Function:      s.Function,
		Args:          s.Args,
		Variable:      s.Variable,
		MaxIterations: s.MaxIterations,
	}
	if s.Integrator != nil {
		n.Integrator = &config.Integrator{Rate: s.Integrator.Rate, Initial: s.Integrator.Initial}
	}
	if s.Termination != nil {
		n.Termination = &config.Termination{
			Measure:    s.Termination.Measure,
			Comparator: s.Termination.Comparator,
			Threshold:  s.Termination.Threshold,
		}
	}
	if s.Clip != nil {
		n.Clip = &config.Clip{Min: s.Clip.Min, Max: s.Clip.Max}
	}
	for _, ip := range s.InputPorts {
		n.InputPorts = append(n.InputPorts, config.InputPort{Name: ip.Name, Combine: ip.Combine})
	}
	for _, p := range s.Parameters {
		n.Parameters = append(n.Parameters, config.Parameter{Name: p.Name, Base: p.Base})
	}
	if s.Condition != nil {
		n.Condition = &config.Condition{Kind: s.Condition.Kind, Node: s.Condition.Node, N: s.Condition.N}
	}
	return n
}

func translateProjection(s *schema.Projection) *config.Projection {
	return &config.Projection{
		Sender:    s.Sender,
		Receiver:  s.Receiver,
		Weight:    s.Weight,
		Matrix:    s.Matrix,
		Feedback:  s.Feedback,
		Modulates: s.Modulates,
		Operator:  s.Operator,
	}
}

package mech

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustAddNode(t *testing.T, a *Arena, cfg NodeConfig) *Node {
	t.Helper()
	n, err := a.AddNode(cfg)
	require.NoError(t, err)
	return n
}

func fire(t *testing.T, a *Arena, st *State, n *Node) ExecResult {
	t.Helper()
	res, err := a.Execute(context.Background(), n.ID, st, nil)
	require.NoError(t, err)
	return res
}

func TestAggregationCombinesWeightedAfferents(t *testing.T) {
	a := NewArena()
	s1 := mustAddNode(t, a, NodeConfig{Name: "s1"})
	s2 := mustAddNode(t, a, NodeConfig{Name: "s2"})
	r := mustAddNode(t, a, NodeConfig{Name: "r"})

	_, err := a.AddPathway(s1.PrimaryOutput(), r.PrimaryInput(), Scalar(2), false)
	require.NoError(t, err)
	_, err = a.AddPathway(s2.PrimaryOutput(), r.PrimaryInput(), Scalar(3), false)
	require.NoError(t, err)

	st := NewState()
	st.SetExternalInput(s1.ID, [][]float64{{1}})
	st.SetExternalInput(s2.ID, [][]float64{{2}})
	fire(t, a, st, s1)
	fire(t, a, st, s2)
	st.Publish()

	res := fire(t, a, st, r)
	assert.Empty(t, cmp.Diff([][]float64{{8}}, res.Value))
	assert.Equal(t, 1, res.Iterations)
	assert.True(t, res.Converged)
}

func TestCombineRules(t *testing.T) {
	// s1 contributes 6 (2 through weight 3) and s2 contributes 4.
	build := func(t *testing.T, rule CombineRule) (*Arena, *State, *Node) {
		a := NewArena()
		s1 := mustAddNode(t, a, NodeConfig{Name: "s1"})
		s2 := mustAddNode(t, a, NodeConfig{Name: "s2"})
		r := mustAddNode(t, a, NodeConfig{
			Name:       "r",
			InputPorts: []InputPortConfig{{Name: "in", Combine: rule}},
		})
		_, err := a.AddPathway(s1.PrimaryOutput(), r.PrimaryInput(), Scalar(3), false)
		require.NoError(t, err)
		_, err = a.AddPathway(s2.PrimaryOutput(), r.PrimaryInput(), nil, false)
		require.NoError(t, err)

		st := NewState()
		st.SetExternalInput(s1.ID, [][]float64{{2}})
		st.SetExternalInput(s2.ID, [][]float64{{4}})
		fire(t, a, st, s1)
		fire(t, a, st, s2)
		st.Publish()
		return a, st, r
	}

	t.Run("product", func(t *testing.T) {
		a, st, r := build(t, CombineProduct)
		res := fire(t, a, st, r)
		assert.Empty(t, cmp.Diff([][]float64{{24}}, res.Value))
	})

	t.Run("max", func(t *testing.T) {
		a, st, r := build(t, CombineMax)
		res := fire(t, a, st, r)
		assert.Empty(t, cmp.Diff([][]float64{{6}}, res.Value))
	})
}

func TestExternalInputSurvivesFeedbackAfferent(t *testing.T) {
	a := NewArena()
	src := mustAddNode(t, a, NodeConfig{Name: "src"})
	loop := mustAddNode(t, a, NodeConfig{Name: "loop"})
	_, err := a.AddPathway(src.PrimaryOutput(), loop.PrimaryInput(), Scalar(2), true)
	require.NoError(t, err)

	st := NewState()
	st.SetExternalInput(loop.ID, [][]float64{{1}})

	// Nothing published yet: the feedback afferent reads zeros and the
	// trial input still arrives.
	res := fire(t, a, st, loop)
	assert.Empty(t, cmp.Diff([][]float64{{1}}, res.Value))

	st.SetExternalInput(src.ID, [][]float64{{3}})
	fire(t, a, st, src)
	st.Publish()

	res = fire(t, a, st, loop)
	assert.Empty(t, cmp.Diff([][]float64{{7}}, res.Value))
}

func TestNoiseHook(t *testing.T) {
	a := NewArena()

	t.Run("stateless", func(t *testing.T) {
		n := mustAddNode(t, a, NodeConfig{Name: "noisy", Noise: func() float64 { return 0.5 }})
		st := NewState()
		st.SetExternalInput(n.ID, [][]float64{{1}})
		res := fire(t, a, st, n)
		assert.Empty(t, cmp.Diff([][]float64{{1.5}}, res.Value))
	})

	t.Run("integrator", func(t *testing.T) {
		n := mustAddNode(t, a, NodeConfig{
			Name:       "drift",
			Integrator: &IntegratorSpec{Rate: 1},
			Noise:      func() float64 { return 0.25 },
		})
		st := NewState()
		st.SetExternalInput(n.ID, [][]float64{{1}})
		res := fire(t, a, st, n)
		assert.Empty(t, cmp.Diff([][]float64{{1.25}}, res.Value))
	})
}

func TestStatelessExecutionIsIdempotent(t *testing.T) {
	a := NewArena()
	n := mustAddNode(t, a, NodeConfig{Name: "n", Fn: Linear{Slope: 3, Intercept: 1}})

	st := NewState()
	st.SetExternalInput(n.ID, [][]float64{{2}})

	first := fire(t, a, st, n)
	second := fire(t, a, st, n)
	assert.Empty(t, cmp.Diff(first.Value, second.Value))
	assert.Empty(t, cmp.Diff([][]float64{{7}}, second.Value))
}

func TestIntegratorConvergence(t *testing.T) {
	a := NewArena()
	n := mustAddNode(t, a, NodeConfig{
		Name:        "settle",
		Integrator:  &IntegratorSpec{Rate: 0.5},
		Termination: &TerminationSpec{Measure: MeasureMaxAbsDiff, Comparator: CmpLE, Threshold: 0.1},
	})

	st := NewState()
	st.SetExternalInput(n.ID, [][]float64{{1}})
	res := fire(t, a, st, n)

	// 0.5, 0.75, 0.875, 0.9375: consecutive diff first drops to 0.0625
	// on the fourth step.
	assert.Equal(t, 4, res.Iterations)
	assert.True(t, res.Converged)
	require.Len(t, res.Value, 1)
	assert.InDelta(t, 0.9375, res.Value[0][0], 1e-12)
}

func TestIterationCeilingDegradesToWarning(t *testing.T) {
	a := NewArena()
	n := mustAddNode(t, a, NodeConfig{
		Name:        "stuck",
		Integrator:  &IntegratorSpec{Rate: 0.5},
		Termination: &TerminationSpec{Measure: MeasureMaxAbsDiff, Comparator: CmpLE, Threshold: 1e-15},
		MaxIter:     5,
	})

	st := NewState()
	st.SetExternalInput(n.ID, [][]float64{{1}})
	res, err := a.Execute(context.Background(), n.ID, st, nil)
	require.NoError(t, err, "ceiling must not fail the trial")
	assert.False(t, res.Converged)
	assert.Equal(t, 5, res.Iterations)
	assert.NotEmpty(t, res.Value)
}

func TestShapeMismatchIsFatal(t *testing.T) {
	a := NewArena()
	s := mustAddNode(t, a, NodeConfig{Name: "s"})
	r := mustAddNode(t, a, NodeConfig{Name: "r"})

	// 1x2 matrix turns a length-1 value into length 2, which the
	// receiver's variable row cannot hold.
	_, err := a.AddPathway(s.PrimaryOutput(), r.PrimaryInput(), Matrix{{1, 2}}, false)
	require.NoError(t, err)

	st := NewState()
	st.SetExternalInput(s.ID, [][]float64{{1}})
	fire(t, a, st, s)
	st.Publish()

	_, err = a.Execute(context.Background(), r.ID, st, nil)
	var se *ShapeError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "r", se.Node)
}

func TestParameterModulation(t *testing.T) {
	a := NewArena()
	m := mustAddNode(t, a, NodeConfig{Name: "mod"})
	r := mustAddNode(t, a, NodeConfig{
		Name:       "r",
		Fn:         Linear{Slope: 1},
		ParamPorts: []ParamPortConfig{{Name: "slope", Base: 1}},
	})

	pp, ok := a.ParamPort(r, "slope")
	require.True(t, ok)
	_, err := a.AddModulatory(m.PrimaryOutput(), pp.ID, ModAdd)
	require.NoError(t, err)

	st := NewState()
	st.SetExternalInput(m.ID, [][]float64{{3}})
	fire(t, a, st, m)
	st.Publish()

	st.SetExternalInput(r.ID, [][]float64{{2}})
	res := fire(t, a, st, r)
	// slope = base 1 + modulatory signal 3.
	assert.Empty(t, cmp.Diff([][]float64{{8}}, res.Value))
}

func TestRuntimeOverridesAreScopedToOneInvocation(t *testing.T) {
	a := NewArena()
	n := mustAddNode(t, a, NodeConfig{
		Name:       "n",
		Fn:         Linear{Slope: 1},
		ParamPorts: []ParamPortConfig{{Name: "slope", Base: 2}},
	})

	st := NewState()
	st.SetExternalInput(n.ID, [][]float64{{2}})

	res, err := a.Execute(context.Background(), n.ID, st, Params{"slope": 10})
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff([][]float64{{20}}, res.Value))

	// Next invocation sees the base value again.
	res = fire(t, a, st, n)
	assert.Empty(t, cmp.Diff([][]float64{{4}}, res.Value))
}

func TestStagedOutputsInvisibleUntilPublish(t *testing.T) {
	a := NewArena()
	n := mustAddNode(t, a, NodeConfig{Name: "n"})

	st := NewState()
	st.SetExternalInput(n.ID, [][]float64{{7}})
	fire(t, a, st, n)

	assert.Nil(t, st.PortValue(n.PrimaryOutput()))
	st.Publish()
	assert.Equal(t, []float64{7}, st.PortValue(n.PrimaryOutput()))
}

func TestReinitializeResetsIntegrator(t *testing.T) {
	a := NewArena()
	n := mustAddNode(t, a, NodeConfig{
		Name:        "settle",
		Integrator:  &IntegratorSpec{Rate: 0.5},
		Termination: &TerminationSpec{Threshold: 0.1},
	})

	st := NewState()
	st.SetExternalInput(n.ID, [][]float64{{1}})
	first := fire(t, a, st, n)

	st.Reinitialize(n, nil)
	again := fire(t, a, st, n)
	assert.Equal(t, first.Iterations, again.Iterations)
	assert.Empty(t, cmp.Diff(first.Value, again.Value))
}

func TestNodeConfigValidation(t *testing.T) {
	a := NewArena()

	t.Run("termination without integrator", func(t *testing.T) {
		_, err := a.AddNode(NodeConfig{Name: "x", Termination: &TerminationSpec{Threshold: 0.1}})
		var ce *ConfigError
		require.ErrorAs(t, err, &ce)
	})

	t.Run("integrator rate out of range", func(t *testing.T) {
		_, err := a.AddNode(NodeConfig{Name: "x", Integrator: &IntegratorSpec{Rate: 1.5}})
		assert.Error(t, err)
	})

	t.Run("clip min above max", func(t *testing.T) {
		_, err := a.AddNode(NodeConfig{Name: "x", Clip: &ClipSpec{Min: 2, Max: 1}})
		assert.Error(t, err)
	})

	t.Run("empty name", func(t *testing.T) {
		_, err := a.AddNode(NodeConfig{})
		assert.Error(t, err)
	})

	t.Run("parameter port not consulted by function", func(t *testing.T) {
		_, err := a.AddNode(NodeConfig{
			Name:       "x",
			ParamPorts: []ParamPortConfig{{Name: "slope", Base: 1}},
		})
		var ce *ConfigError
		require.ErrorAs(t, err, &ce)
		assert.Contains(t, ce.Reason, "slope")
	})

	t.Run("rate port allowed with integrator", func(t *testing.T) {
		_, err := a.AddNode(NodeConfig{
			Name:       "x",
			Integrator: &IntegratorSpec{Rate: 0.5},
			ParamPorts: []ParamPortConfig{{Name: "rate", Base: 0.5}},
		})
		assert.NoError(t, err)
	})

	t.Run("rate port without integrator", func(t *testing.T) {
		_, err := a.AddNode(NodeConfig{
			Name:       "y",
			ParamPorts: []ParamPortConfig{{Name: "rate", Base: 0.5}},
		})
		assert.Error(t, err)
	})
}

func TestClipAppliesToFinalValue(t *testing.T) {
	a := NewArena()
	n := mustAddNode(t, a, NodeConfig{
		Name: "clipped",
		Fn:   Linear{Slope: 10},
		Clip: &ClipSpec{Min: 0, Max: 5},
	})

	st := NewState()
	st.SetExternalInput(n.ID, [][]float64{{2}})
	res := fire(t, a, st, n)
	assert.Empty(t, cmp.Diff([][]float64{{5}}, res.Value))
}

package comp

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/mechnet/internal/graph"
	"github.com/vk/mechnet/internal/mech"
	"github.com/vk/mechnet/internal/scheduler"
)

func addNode(t *testing.T, c *Composition, cfg mech.NodeConfig) *mech.Node {
	t.Helper()
	n, err := c.AddNode(cfg)
	require.NoError(t, err)
	return n
}

func connect(t *testing.T, c *Composition, sender, receiver string, weight float64, feedback bool) *mech.Projection {
	t.Helper()
	pr, err := c.Connect(sender, receiver, weight, feedback)
	require.NoError(t, err)
	return pr
}

// chain builds A -> B -> C with weights 2 and 5.
func chain(t *testing.T) *Composition {
	t.Helper()
	c := New("chain")
	addNode(t, c, mech.NodeConfig{Name: "A"})
	addNode(t, c, mech.NodeConfig{Name: "B"})
	addNode(t, c, mech.NodeConfig{Name: "C"})
	connect(t, c, "A", "B", 2, false)
	connect(t, c, "B", "C", 5, false)
	return c
}

func TestChainEvaluation(t *testing.T) {
	c := chain(t)
	inputs := Inputs{"A": {{{1}}}}

	results, err := c.Run(context.Background(), inputs, RunOptions{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Empty(t, cmp.Diff(TrialResult{"C": {{10}}}, results[0]))

	// Identical run under a fresh context is bit-identical.
	again, err := c.Run(context.Background(), inputs, RunOptions{Context: "replay"})
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(results, again))
}

func TestChainRolesAndQueue(t *testing.T) {
	c := chain(t)

	r, err := c.Roles("A")
	require.NoError(t, err)
	assert.True(t, r.Has(graph.RoleOrigin))

	r, err = c.Roles("B")
	require.NoError(t, err)
	assert.Equal(t, graph.RoleInternal, r)

	r, err = c.Roles("C")
	require.NoError(t, err)
	assert.True(t, r.Has(graph.RoleTerminal))

	queue := c.ConsiderationQueue()
	require.Len(t, queue, 3)
	assert.Equal(t, "A", queue[0][0].Name)
	assert.Equal(t, "B", queue[1][0].Name)
	assert.Equal(t, "C", queue[2][0].Name)
}

// feedbackNet builds A -> B -> C -> D -> E with D -> B marked feedback:
//
//	A --1--> B --2--> C --3--> D --1--> E
//	         ^                 |
//	         +-------4---------+  (feedback)
func feedbackNet(t *testing.T) *Composition {
	t.Helper()
	c := New("feedback")
	for _, name := range []string{"A", "B", "C", "D", "E"} {
		addNode(t, c, mech.NodeConfig{Name: name})
	}
	connect(t, c, "A", "B", 1, false)
	connect(t, c, "B", "C", 2, false)
	connect(t, c, "C", "D", 3, false)
	connect(t, c, "D", "E", 1, false)
	connect(t, c, "D", "B", 4, true)
	return c
}

func TestFeedbackAcrossTrials(t *testing.T) {
	c := feedbackNet(t)

	// The single input value is reused for the second trial. On trial
	// one the feedback sender has never published, so it contributes
	// zero; on trial two B sees D's value from the end of trial one.
	results, err := c.Run(context.Background(), Inputs{"A": {{{1}}}}, RunOptions{Trials: 2})
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Empty(t, cmp.Diff(TrialResult{"E": {{6}}}, results[0]))
	assert.Empty(t, cmp.Diff(TrialResult{"E": {{150}}}, results[1]))

	assert.Empty(t, cmp.Diff([][]float64{{25}}, c.Value("", "B")))
	assert.Empty(t, cmp.Diff([][]float64{{150}}, c.Value("", "D")))
}

func TestFeedbackRolesAndLeveling(t *testing.T) {
	c := feedbackNet(t)

	r, err := c.Roles("D")
	require.NoError(t, err)
	assert.True(t, r.Has(graph.RoleFeedbackSender))
	assert.False(t, r.Has(graph.RoleCycle))

	r, err = c.Roles("B")
	require.NoError(t, err)
	assert.True(t, r.Has(graph.RoleFeedbackReceiver))

	// The feedback edge never collapses the loop into one set.
	assert.Len(t, c.ConsiderationQueue(), 5)
}

func TestOriginKeepsInputUnderFeedback(t *testing.T) {
	// A -> B structural, B -> A feedback: A stays an origin, and its
	// trial input must combine with the feedback contribution rather
	// than be discarded.
	c := New("loop")
	addNode(t, c, mech.NodeConfig{Name: "A"})
	addNode(t, c, mech.NodeConfig{Name: "B"})
	connect(t, c, "A", "B", 1, false)
	connect(t, c, "B", "A", 1, true)

	r, err := c.Roles("A")
	require.NoError(t, err)
	assert.True(t, r.Has(graph.RoleOrigin))
	assert.True(t, r.Has(graph.RoleFeedbackReceiver))

	results, err := c.Run(context.Background(), Inputs{"A": {{{1}}}}, RunOptions{Trials: 2})
	require.NoError(t, err)
	require.Len(t, results, 2)

	// Trial one: feedback reads zeros, A = 1. Trial two: A = 1 + 1.
	assert.Empty(t, cmp.Diff(TrialResult{"B": {{1}}}, results[0]))
	assert.Empty(t, cmp.Diff(TrialResult{"B": {{2}}}, results[1]))
	assert.Empty(t, cmp.Diff([][]float64{{2}}, c.Value("", "A")))
}

func TestExecutionContextIsolation(t *testing.T) {
	c := feedbackNet(t)
	inputs := Inputs{"A": {{{1}}}}

	_, err := c.Run(context.Background(), inputs, RunOptions{Trials: 2, Context: "warm"})
	require.NoError(t, err)

	// A fresh context starts from scratch: its first trial matches the
	// warm context's first, not its second.
	cold, err := c.Run(context.Background(), inputs, RunOptions{Context: "cold"})
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(TrialResult{"E": {{6}}}, cold[0]))
	assert.Empty(t, cmp.Diff([][]float64{{150}}, c.Value("warm", "D")))
	assert.Empty(t, cmp.Diff([][]float64{{6}}, c.Value("cold", "D")))
}

func TestMutationRejectedMidTrial(t *testing.T) {
	c := chain(t)

	var mutationErr error
	cb := scheduler.Callbacks{BeforePass: func(*scheduler.Clock) {
		_, mutationErr = c.AddNode(mech.NodeConfig{Name: "late"})
	}}
	_, err := c.Run(context.Background(), Inputs{"A": {{{1}}}}, RunOptions{Callbacks: cb})
	require.NoError(t, err)

	var se *StructuralError
	require.ErrorAs(t, mutationErr, &se)

	// Between trials the same mutation is fine.
	_, err = c.AddNode(mech.NodeConfig{Name: "late"})
	assert.NoError(t, err)
}

func TestStructuralErrors(t *testing.T) {
	c := chain(t)

	t.Run("duplicate node name", func(t *testing.T) {
		_, err := c.AddNode(mech.NodeConfig{Name: "A"})
		var se *StructuralError
		require.ErrorAs(t, err, &se)
	})

	t.Run("unknown projection endpoint", func(t *testing.T) {
		_, err := c.Connect("A", "missing", 1, false)
		assert.Error(t, err)
	})

	t.Run("input for unknown node", func(t *testing.T) {
		_, err := c.Run(context.Background(), Inputs{"missing": {{{1}}}}, RunOptions{})
		assert.Error(t, err)
	})

	t.Run("input for non-origin node", func(t *testing.T) {
		_, err := c.Run(context.Background(), Inputs{"B": {{{1}}}}, RunOptions{})
		assert.Error(t, err)
	})
}

func TestRemoveNodeDetachesProjections(t *testing.T) {
	c := chain(t)
	require.NoError(t, c.RemoveNode("B"))

	// A and C are now disconnected: both origin and terminal.
	r, err := c.Roles("A")
	require.NoError(t, err)
	assert.True(t, r.Has(graph.RoleOrigin) && r.Has(graph.RoleTerminal))

	results, err := c.Run(context.Background(), Inputs{"A": {{{3}}}}, RunOptions{})
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(TrialResult{"A": {{3}}, "C": {{0}}}, results[0]))
}

func TestRemoveProjectionRestoresLeveling(t *testing.T) {
	c := chain(t)
	pr, err := c.Connect("A", "C", 1, false)
	require.NoError(t, err)
	require.Len(t, c.ConsiderationQueue(), 3)

	require.NoError(t, c.RemoveProjection(pr.ID))
	require.Len(t, c.ConsiderationQueue(), 3)

	results, err := c.Run(context.Background(), Inputs{"A": {{{1}}}}, RunOptions{})
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(TrialResult{"C": {{10}}}, results[0]))
}

func TestIntegratorNodeInComposition(t *testing.T) {
	c := New("settle")
	addNode(t, c, mech.NodeConfig{Name: "in"})
	addNode(t, c, mech.NodeConfig{
		Name:        "acc",
		Integrator:  &mech.IntegratorSpec{Rate: 0.5},
		Termination: &mech.TerminationSpec{Threshold: 0.1},
	})
	connect(t, c, "in", "acc", 1, false)

	results, err := c.Run(context.Background(), Inputs{"in": {{{1}}}}, RunOptions{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Len(t, results[0]["acc"], 1)
	assert.InDelta(t, 0.9375, results[0]["acc"][0][0], 1e-12)

	// A second trial keeps integrating from where the first left off;
	// reinitializing restores the first trial's result.
	second, err := c.Run(context.Background(), Inputs{"in": {{{1}}}}, RunOptions{})
	require.NoError(t, err)
	assert.Greater(t, second[0]["acc"][0][0], results[0]["acc"][0][0])

	require.NoError(t, c.Reinitialize("", "acc", nil))
	third, err := c.Run(context.Background(), Inputs{"in": {{{1}}}}, RunOptions{})
	require.NoError(t, err)
	assert.InDelta(t, 0.9375, third[0]["acc"][0][0], 1e-12)
}

func TestConditionGatedRun(t *testing.T) {
	// B fires only on the second pass of each trial, so after a
	// two-pass trial it has seen A's published value.
	c := New("gated")
	a := addNode(t, c, mech.NodeConfig{Name: "A"})
	addNode(t, c, mech.NodeConfig{Name: "B"})
	connect(t, c, "A", "B", 2, false)

	require.NoError(t, c.SetCondition("B", scheduler.AfterNCalls{Node: a.ID, N: 2}))
	c.SetTermination(scheduler.AfterNPasses{N: 2})

	results, err := c.Run(context.Background(), Inputs{"A": {{{3}}}}, RunOptions{})
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(TrialResult{"B": {{6}}}, results[0]))
}

func TestTrialSequenceAdvancesInputs(t *testing.T) {
	c := chain(t)
	inputs := Inputs{"A": {{{1}}, {{2}}, {{4}}}}

	results, err := c.Run(context.Background(), inputs, RunOptions{Trials: 4})
	require.NoError(t, err)
	require.Len(t, results, 4)
	assert.Empty(t, cmp.Diff(TrialResult{"C": {{10}}}, results[0]))
	assert.Empty(t, cmp.Diff(TrialResult{"C": {{20}}}, results[1]))
	assert.Empty(t, cmp.Diff(TrialResult{"C": {{40}}}, results[2]))
	assert.Empty(t, cmp.Diff(TrialResult{"C": {{40}}}, results[3]), "trailing trials reuse the last input")
}

func TestModulatoryProjectionOrdersSender(t *testing.T) {
	c := New("mod")
	addNode(t, c, mech.NodeConfig{Name: "gain"})
	addNode(t, c, mech.NodeConfig{Name: "src"})
	r := addNode(t, c, mech.NodeConfig{
		Name:       "target",
		Fn:         mech.Linear{Slope: 1},
		ParamPorts: []mech.ParamPortConfig{{Name: "slope", Base: 1}},
	})
	connect(t, c, "src", "target", 1, false)
	g, ok := c.NodeByName("gain")
	require.True(t, ok)
	pp, ok := c.arena.ParamPort(r, "slope")
	require.True(t, ok)
	_, err := c.AddModulatory(g.PrimaryOutput(), pp.ID, mech.ModMultiply)
	require.NoError(t, err)

	// gain must execute before target within the same trial.
	queue := c.ConsiderationQueue()
	require.Len(t, queue, 2)
	assert.Equal(t, "gain", queue[0][0].Name)

	results, err := c.Run(context.Background(),
		Inputs{"gain": {{{3}}}, "src": {{{2}}}}, RunOptions{})
	require.NoError(t, err)
	// slope = base 1 * signal 3; input = 2.
	assert.Empty(t, cmp.Diff([][]float64{{6}}, results[0]["target"]))
}

package scheduler

import "github.com/vk/mechnet/internal/mech"

// Condition gates one node's firing. Ready is consulted every time the
// node's consideration set comes up; a false result skips the node for
// that pass only.
type Condition interface {
	Ready(c *Clock, self mech.NodeID) bool
}

// Always fires the node every time it is considered. This is the default.
type Always struct{}

func (Always) Ready(*Clock, mech.NodeID) bool { return true }

// AfterNCalls holds the node back until another node has fired at least N
// times within the current trial.
type AfterNCalls struct {
	Node mech.NodeID
	N    int
}

func (a AfterNCalls) Ready(c *Clock, _ mech.NodeID) bool {
	return c.TrialFires(a.Node) >= a.N
}

// EveryNCalls fires the node once per N firings of another node within
// the current trial.
type EveryNCalls struct {
	Node mech.NodeID
	N    int
}

func (e EveryNCalls) Ready(c *Clock, self mech.NodeID) bool {
	return c.TrialFires(e.Node) >= e.N*(c.TrialFires(self)+1)
}

// AtPass fires the node only during pass N of the trial.
type AtPass struct {
	N int
}

func (a AtPass) Ready(c *Clock, _ mech.NodeID) bool { return c.Pass == a.N }

// ConditionFunc adapts a plain predicate into a Condition.
type ConditionFunc func(c *Clock, self mech.NodeID) bool

func (f ConditionFunc) Ready(c *Clock, self mech.NodeID) bool { return f(c, self) }

// Termination decides when a trial is over. Done is checked after each
// completed pass.
type Termination interface {
	Done(c *Clock) bool
}

// AfterNPasses ends the trial once N passes have completed. The default
// trial is a single pass.
type AfterNPasses struct {
	N int
}

func (a AfterNPasses) Done(c *Clock) bool { return c.Pass >= a.N }

// TerminationFunc adapts a plain predicate into a Termination.
type TerminationFunc func(c *Clock) bool

func (f TerminationFunc) Done(c *Clock) bool { return f(c) }

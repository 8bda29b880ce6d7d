package scheduler

import "github.com/vk/mechnet/internal/mech"

// Clock is the scheduling history conditions are evaluated against:
// current trial, pass, and time-step counters plus per-node fire counts.
type Clock struct {
	// Trial counts completed trials across the run.
	Trial int
	// Pass counts completed passes within the current trial.
	Pass int
	// TimeStep is the consideration set index currently executing.
	TimeStep int

	fires      map[mech.NodeID]int
	trialFires map[mech.NodeID]int
}

func newClock() *Clock {
	return &Clock{
		fires:      make(map[mech.NodeID]int),
		trialFires: make(map[mech.NodeID]int),
	}
}

// Fires returns a node's total firings across the whole run.
func (c *Clock) Fires(id mech.NodeID) int { return c.fires[id] }

// TrialFires returns a node's firings within the current trial.
func (c *Clock) TrialFires(id mech.NodeID) int { return c.trialFires[id] }

func (c *Clock) noteFire(id mech.NodeID) {
	c.fires[id]++
	c.trialFires[id]++
}

func (c *Clock) beginTrial() {
	c.Pass = 0
	c.TimeStep = 0
	c.trialFires = make(map[mech.NodeID]int)
}

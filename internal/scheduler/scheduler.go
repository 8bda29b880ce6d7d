package scheduler

import (
	"context"
	"fmt"

	"github.com/vk/mechnet/internal/ctxlog"
	"github.com/vk/mechnet/internal/mech"
)

// Runner is the scheduler's view of the composition: it fires one node's
// execution state machine and flips a completed set's buffered outputs to
// visible.
type Runner interface {
	FireNode(ctx context.Context, id mech.NodeID) error
	PublishSet(ctx context.Context)
}

// Callbacks hook trial/pass/time-step boundaries. Nil fields are skipped.
type Callbacks struct {
	BeforeTrial    func(c *Clock)
	AfterTrial     func(c *Clock)
	BeforePass     func(c *Clock)
	AfterPass      func(c *Clock)
	BeforeTimeStep func(c *Clock)
	AfterTimeStep  func(c *Clock)
}

// Scheduler owns firing conditions, the trial termination rule, and the
// clock. One scheduler drives one execution context.
type Scheduler struct {
	clock *Clock
	conds map[mech.NodeID]Condition
	term  Termination
}

// New returns a scheduler with no per-node conditions and the default
// one-pass trial termination.
func New() *Scheduler {
	return &Scheduler{
		clock: newClock(),
		conds: make(map[mech.NodeID]Condition),
		term:  AfterNPasses{N: 1},
	}
}

// SetCondition attaches a firing condition to a node. A nil condition
// restores the default (always fire).
func (s *Scheduler) SetCondition(id mech.NodeID, cond Condition) {
	if cond == nil {
		delete(s.conds, id)
		return
	}
	s.conds[id] = cond
}

// SetTermination replaces the trial termination rule. Nil restores the
// one-pass default.
func (s *Scheduler) SetTermination(t Termination) {
	if t == nil {
		t = AfterNPasses{N: 1}
	}
	s.term = t
}

// Clock exposes the scheduling history, read-only by convention.
func (s *Scheduler) Clock() *Clock { return s.clock }

// RunTrial executes one trial: passes over the consideration queue until
// the termination rule holds. Within a pass, each set's nodes fire
// sequentially but their outputs are published together after the set,
// so none observes another's output from the same set.
func (s *Scheduler) RunTrial(ctx context.Context, queue [][]mech.NodeID, run Runner, cb Callbacks) error {
	logger := ctxlog.FromContext(ctx)
	s.clock.beginTrial()
	if cb.BeforeTrial != nil {
		cb.BeforeTrial(s.clock)
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if cb.BeforePass != nil {
			cb.BeforePass(s.clock)
		}
		for ts, set := range queue {
			s.clock.TimeStep = ts
			if cb.BeforeTimeStep != nil {
				cb.BeforeTimeStep(s.clock)
			}
			for _, id := range set {
				cond, ok := s.conds[id]
				if !ok {
					cond = Always{}
				}
				if !cond.Ready(s.clock, id) {
					logger.Debug("condition not ready, node held", "node", id, "trial", s.clock.Trial, "pass", s.clock.Pass)
					continue
				}
				if err := run.FireNode(ctx, id); err != nil {
					return fmt.Errorf("trial %d pass %d: %w", s.clock.Trial, s.clock.Pass, err)
				}
				s.clock.noteFire(id)
			}
			run.PublishSet(ctx)
			if cb.AfterTimeStep != nil {
				cb.AfterTimeStep(s.clock)
			}
		}
		s.clock.Pass++
		if cb.AfterPass != nil {
			cb.AfterPass(s.clock)
		}
		if s.term.Done(s.clock) {
			break
		}
	}

	if cb.AfterTrial != nil {
		cb.AfterTrial(s.clock)
	}
	s.clock.Trial++
	logger.Debug("trial complete", "trial", s.clock.Trial, "passes", s.clock.Pass)
	return nil
}

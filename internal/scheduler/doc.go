// Package scheduler walks a consideration queue once per trial, firing
// each node subject to its firing condition and publishing each set's
// outputs only after the whole set has run, so that nodes within a set
// are logically simultaneous.
//
// The scheduler owns all scheduling history (the Clock): pass and
// time-step counters plus per-node fire counts, which is the state
// conditions are predicates over.
package scheduler

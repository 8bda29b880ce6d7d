// Package comp assembles mechanisms and projections into a runnable
// composition: it owns the arena, mirrors every projection into the
// scheduling graph, holds the name table (no process-wide registry), and
// evaluates the network over discrete trials under named execution
// contexts.
//
// Topology is mutated only between trials; any structural call during an
// in-flight Run is rejected and leaves the composition in its last valid
// state.
package comp

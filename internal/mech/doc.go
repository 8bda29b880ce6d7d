// Package mech implements the node execution model: an arena of nodes,
// ports, and projections addressed by stable integer handles, plus the
// per-node update cycle that aggregates weighted inputs, modulates
// parameters, applies a transform function (optionally through a stateful
// integrator), and publishes results to named output ports.
//
// The arena owns every record. Nodes, ports, and projections never hold
// pointers to each other; relationships are handle lookups, which keeps the
// object graph acyclic even when the network itself is not.
//
// All mutable per-evaluation data (port variables, node values, integrator
// state) lives in a State, never on the arena records themselves, so a
// single topology can be evaluated under many independent execution
// contexts at once.
package mech

// Package graph turns an arbitrary, possibly cyclic, directed graph of
// nodes into a deterministic execution plan. It maintains parent/child
// adjacency under incremental mutation, finds strongly-connected
// components over the non-feedback edge subset, levels the condensed
// graph into an ordered consideration queue, and classifies each node's
// structural role.
//
// Vertices carry only connectivity; numeric values never flow through
// this package. Derived structures (components, queue, roles) are marked
// stale on mutation and rebuilt lazily on the next query, so batch edits
// stay cheap.
package graph

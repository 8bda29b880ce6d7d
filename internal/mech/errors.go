package mech

import "fmt"

// ShapeError reports an incompatibility between an expected and received
// vector length. It is fatal to the trial in which it occurs but leaves
// earlier trials' results intact.
type ShapeError struct {
	Node string
	Port string
	What string
	Want int
	Got  int
}

func (e *ShapeError) Error() string {
	loc := e.What
	if e.Node != "" {
		loc = fmt.Sprintf("node %q %s", e.Node, e.What)
		if e.Port != "" {
			loc = fmt.Sprintf("node %q port %q %s", e.Node, e.Port, e.What)
		}
	}
	return fmt.Sprintf("shape mismatch: %s expects length %d, got %d", loc, e.Want, e.Got)
}

// ConfigError reports an invalid node or projection configuration. These
// are raised at construction time, before any trial runs.
type ConfigError struct {
	Subject string
	Reason  string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration for %s: %s", e.Subject, e.Reason)
}

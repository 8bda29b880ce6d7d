package comp

import "fmt"

// StructuralError reports a malformed graph mutation: unknown or
// duplicate names, bad projection endpoints, or mutation during an
// in-flight trial. The composition is unchanged when one is returned.
type StructuralError struct {
	Op     string
	Reason string
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Reason)
}

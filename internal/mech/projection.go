package mech

import "fmt"

// ProjKind distinguishes value-carrying pathway projections from
// parameter-shaping modulatory projections.
type ProjKind int

const (
	// Pathway projections feed input ports; their matrix transforms the
	// sender's value in transit.
	Pathway ProjKind = iota
	// Modulatory projections feed parameter ports; their operator combines
	// the sender's (scalar) value with the port's base value.
	Modulatory
)

func (k ProjKind) String() string {
	switch k {
	case Pathway:
		return "pathway"
	case Modulatory:
		return "modulatory"
	default:
		return fmt.Sprintf("ProjKind(%d)", int(k))
	}
}

// Projection is a directed edge from a sender output port to a receiver
// input or parameter port. A projection is owned by the arena and
// referenced by both endpoints; RemoveProjection unhooks both sides in one
// call.
type Projection struct {
	ID       ProjID
	Kind     ProjKind
	Sender   PortID
	Receiver PortID

	// Matrix applies to pathway projections only; nil is identity.
	Matrix Matrix

	// Feedback marks the edge as an ordering shortcut: it is excluded from
	// cycle and level computation, and its receiver sees the sender's value
	// from a strictly earlier pass or trial.
	Feedback bool

	// Op applies to modulatory projections only.
	Op ModOp
}

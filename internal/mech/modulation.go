package mech

import "fmt"

// ModOp is the closed set of operators a modulatory projection can apply
// to a parameter port's base value.
type ModOp int

const (
	// ModAdd adds the modulatory signal to the base value.
	ModAdd ModOp = iota
	// ModMultiply scales the base value by the modulatory signal.
	ModMultiply
	// ModOverride replaces the base value with the modulatory signal.
	ModOverride
	// ModDisable ignores the modulatory signal; the base value passes
	// through unchanged.
	ModDisable
)

var modOpNames = map[ModOp]string{
	ModAdd:      "add",
	ModMultiply: "multiply",
	ModOverride: "override",
	ModDisable:  "disable",
}

func (op ModOp) String() string {
	if s, ok := modOpNames[op]; ok {
		return s
	}
	return fmt.Sprintf("ModOp(%d)", int(op))
}

// Valid reports whether op is one of the defined operators.
func (op ModOp) Valid() bool {
	_, ok := modOpNames[op]
	return ok
}

// ModOpByName parses a modulation operator name.
func ModOpByName(name string) (ModOp, error) {
	for op, s := range modOpNames {
		if s == name {
			return op, nil
		}
	}
	return 0, &ConfigError{Subject: "modulation", Reason: fmt.Sprintf("unknown operator %q", name)}
}

// Apply combines a parameter's base value with one modulatory signal.
func (op ModOp) Apply(base, signal float64) float64 {
	switch op {
	case ModAdd:
		return base + signal
	case ModMultiply:
		return base * signal
	case ModOverride:
		return signal
	case ModDisable:
		return base
	default:
		return base
	}
}

package mech

import "fmt"

// PortKind distinguishes the three slot types a node exposes.
type PortKind int

const (
	InputPort PortKind = iota
	ParameterPort
	OutputPort
)

func (k PortKind) String() string {
	switch k {
	case InputPort:
		return "input"
	case ParameterPort:
		return "parameter"
	case OutputPort:
		return "output"
	default:
		return fmt.Sprintf("PortKind(%d)", int(k))
	}
}

// CombineRule controls how multiple pathway afferents into one input port
// are merged into the port's variable.
type CombineRule int

const (
	// CombineSum adds afferent contributions elementwise (the default).
	CombineSum CombineRule = iota
	// CombineProduct multiplies afferent contributions elementwise.
	CombineProduct
	// CombineMax keeps the elementwise maximum across afferents.
	CombineMax
)

// CombineRuleByName parses a combination rule name.
func CombineRuleByName(name string) (CombineRule, error) {
	switch name {
	case "", "sum":
		return CombineSum, nil
	case "product":
		return CombineProduct, nil
	case "max":
		return CombineMax, nil
	default:
		return 0, &ConfigError{Subject: "input port", Reason: fmt.Sprintf("unknown combine rule %q", name)}
	}
}

func (r CombineRule) combine(acc, next []float64) ([]float64, error) {
	if acc == nil {
		return next, nil
	}
	if len(acc) != len(next) {
		return nil, &ShapeError{What: "afferent value", Want: len(acc), Got: len(next)}
	}
	for i, v := range next {
		switch r {
		case CombineProduct:
			acc[i] *= v
		case CombineMax:
			if v > acc[i] {
				acc[i] = v
			}
		default:
			acc[i] += v
		}
	}
	return acc, nil
}

// RowAll selects a node's whole value (rows concatenated) as an output
// port's source, rather than a single indexed row.
const RowAll = -1

// Port is one named slot on a node. Which fields are meaningful depends on
// Kind: input ports aggregate pathway Afferents through Combine; parameter
// ports carry a Base value shaped by modulatory Afferents; output ports
// read Row of the owner's value through Fn and feed Efferents.
type Port struct {
	ID    PortID
	Owner NodeID
	Kind  PortKind
	Name  string

	Afferents []ProjID
	Efferents []ProjID

	Combine CombineRule
	Fn      Function
	Base    float64
	Row     int
}

func (p *Port) removeAfferent(id ProjID) {
	p.Afferents = removeID(p.Afferents, id)
}

func (p *Port) removeEfferent(id ProjID) {
	p.Efferents = removeID(p.Efferents, id)
}

func removeID(ids []ProjID, id ProjID) []ProjID {
	for i, v := range ids {
		if v == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}

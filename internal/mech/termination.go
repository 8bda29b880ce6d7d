package mech

import (
	"fmt"
	"math"
)

// Measure identifies how a stateful node's termination status scalar is
// computed from its value.
type Measure int

const (
	// MeasureMaxAbsDiff is the convergence measure: the maximum absolute
	// elementwise difference between the new and previous value.
	MeasureMaxAbsDiff Measure = iota
	// MeasureMaxAbs is a boundary measure: the maximum absolute element
	// of the new value alone.
	MeasureMaxAbs
)

var measureNames = map[Measure]string{
	MeasureMaxAbsDiff: "max_abs_diff",
	MeasureMaxAbs:     "max_abs",
}

func (m Measure) String() string {
	if s, ok := measureNames[m]; ok {
		return s
	}
	return fmt.Sprintf("Measure(%d)", int(m))
}

// MeasureByName parses a termination measure name.
func MeasureByName(name string) (Measure, error) {
	for m, s := range measureNames {
		if s == name {
			return m, nil
		}
	}
	return 0, &ConfigError{Subject: "termination", Reason: fmt.Sprintf("unknown measure %q", name)}
}

// Comparator relates the termination status scalar to the threshold.
type Comparator int

const (
	CmpLE Comparator = iota
	CmpLT
	CmpGE
	CmpGT
)

var comparatorNames = map[Comparator]string{
	CmpLE: "<=",
	CmpLT: "<",
	CmpGE: ">=",
	CmpGT: ">",
}

func (c Comparator) String() string {
	if s, ok := comparatorNames[c]; ok {
		return s
	}
	return fmt.Sprintf("Comparator(%d)", int(c))
}

// ComparatorByName parses a comparator symbol.
func ComparatorByName(name string) (Comparator, error) {
	for c, s := range comparatorNames {
		if s == name {
			return c, nil
		}
	}
	return 0, &ConfigError{Subject: "termination", Reason: fmt.Sprintf("unknown comparator %q", name)}
}

func (c Comparator) holds(status, threshold float64) bool {
	switch c {
	case CmpLE:
		return status <= threshold
	case CmpLT:
		return status < threshold
	case CmpGE:
		return status >= threshold
	case CmpGT:
		return status > threshold
	default:
		return false
	}
}

// TerminationSpec configures when a stateful node stops iterating within a
// single firing. The zero value of Measure and Comparator gives the default
// "max abs diff <= threshold" convergence rule.
type TerminationSpec struct {
	Measure    Measure
	Comparator Comparator
	Threshold  float64
}

// Validate rejects invalid measure/comparator/threshold combinations.
// Called at node construction, before any trial runs.
func (s *TerminationSpec) Validate() error {
	if _, ok := measureNames[s.Measure]; !ok {
		return &ConfigError{Subject: "termination", Reason: fmt.Sprintf("invalid measure %d", int(s.Measure))}
	}
	if _, ok := comparatorNames[s.Comparator]; !ok {
		return &ConfigError{Subject: "termination", Reason: fmt.Sprintf("invalid comparator %d", int(s.Comparator))}
	}
	if math.IsNaN(s.Threshold) {
		return &ConfigError{Subject: "termination", Reason: "threshold is NaN"}
	}
	if s.Measure == MeasureMaxAbsDiff && s.Threshold < 0 {
		return &ConfigError{Subject: "termination", Reason: "convergence threshold must be non-negative"}
	}
	return nil
}

// Status computes the termination status scalar. The previous value is
// consulted only by two-argument (convergence) measures.
func (s *TerminationSpec) Status(value, previous [][]float64) float64 {
	switch s.Measure {
	case MeasureMaxAbsDiff:
		maxd := 0.0
		for i, row := range value {
			for j, v := range row {
				var p float64
				if i < len(previous) && j < len(previous[i]) {
					p = previous[i][j]
				}
				if d := math.Abs(v - p); d > maxd {
					maxd = d
				}
			}
		}
		return maxd
	case MeasureMaxAbs:
		maxv := 0.0
		for _, row := range value {
			for _, v := range row {
				if a := math.Abs(v); a > maxv {
					maxv = a
				}
			}
		}
		return maxv
	default:
		return math.Inf(1)
	}
}

// Satisfied reports whether the status scalar meets the threshold.
func (s *TerminationSpec) Satisfied(value, previous [][]float64) bool {
	return s.Comparator.holds(s.Status(value, previous), s.Threshold)
}

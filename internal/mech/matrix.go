package mech

// Matrix transforms a sender's value on its way to a receiver port.
//
// Three shapes are recognized:
//   - nil: identity, passes any vector through unchanged.
//   - 1x1: uniform scaling, multiplies every element by m[0][0] regardless
//     of the vector's length. This is the common "weighted edge" case.
//   - RxC: a full linear map; the input length must equal R and the output
//     has length C.
type Matrix [][]float64

// Scalar returns a 1x1 matrix that scales any vector uniformly by w.
func Scalar(w float64) Matrix {
	return Matrix{{w}}
}

// IsScalar reports whether the matrix is a 1x1 uniform scaling.
func (m Matrix) IsScalar() bool {
	return len(m) == 1 && len(m[0]) == 1
}

// Apply transforms in through the matrix. A nil matrix is the identity.
// A full matrix whose row count does not match len(in) is a shape error.
func (m Matrix) Apply(in []float64) ([]float64, error) {
	if m == nil {
		out := make([]float64, len(in))
		copy(out, in)
		return out, nil
	}
	if m.IsScalar() {
		out := make([]float64, len(in))
		for i, v := range in {
			out[i] = v * m[0][0]
		}
		return out, nil
	}
	if len(m) != len(in) {
		return nil, &ShapeError{What: "matrix input", Want: len(m), Got: len(in)}
	}
	cols := len(m[0])
	out := make([]float64, cols)
	for i, row := range m {
		if len(row) != cols {
			return nil, &ShapeError{What: "matrix row", Want: cols, Got: len(row)}
		}
		for j, w := range row {
			out[j] += in[i] * w
		}
	}
	return out, nil
}

func copyRow(row []float64) []float64 {
	out := make([]float64, len(row))
	copy(out, row)
	return out
}

func copyValue(v [][]float64) [][]float64 {
	if v == nil {
		return nil
	}
	out := make([][]float64, len(v))
	for i, row := range v {
		out[i] = copyRow(row)
	}
	return out
}

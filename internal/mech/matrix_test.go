package mech

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatrixApply(t *testing.T) {
	t.Run("nil matrix is identity", func(t *testing.T) {
		out, err := Matrix(nil).Apply([]float64{1, 2, 3})
		require.NoError(t, err)
		assert.Empty(t, cmp.Diff([]float64{1, 2, 3}, out))
	})

	t.Run("scalar matrix scales any length", func(t *testing.T) {
		m := Scalar(2.5)
		out, err := m.Apply([]float64{2, 4})
		require.NoError(t, err)
		assert.Empty(t, cmp.Diff([]float64{5, 10}, out))
	})

	t.Run("full matrix maps rows to columns", func(t *testing.T) {
		m := Matrix{{1, 0, 2}, {0, 1, 1}}
		out, err := m.Apply([]float64{3, 4})
		require.NoError(t, err)
		assert.Empty(t, cmp.Diff([]float64{3, 4, 10}, out))
	})

	t.Run("row count mismatch is a shape error", func(t *testing.T) {
		m := Matrix{{1, 0}, {0, 1}}
		_, err := m.Apply([]float64{1, 2, 3})
		var se *ShapeError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, 2, se.Want)
		assert.Equal(t, 3, se.Got)
	})
}

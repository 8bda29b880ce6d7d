package mech

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModOpApply(t *testing.T) {
	cases := []struct {
		op   ModOp
		want float64
	}{
		{ModAdd, 5},
		{ModMultiply, 6},
		{ModOverride, 3},
		{ModDisable, 2},
	}
	for _, tc := range cases {
		t.Run(tc.op.String(), func(t *testing.T) {
			assert.Equal(t, tc.want, tc.op.Apply(2, 3))
		})
	}
}

func TestModOpByName(t *testing.T) {
	op, err := ModOpByName("override")
	require.NoError(t, err)
	assert.Equal(t, ModOverride, op)

	_, err = ModOpByName("gate")
	var ce *ConfigError
	require.ErrorAs(t, err, &ce)
}

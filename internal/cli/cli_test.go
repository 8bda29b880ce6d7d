package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseModelPathSources(t *testing.T) {
	t.Run("from -model flag", func(t *testing.T) {
		var out bytes.Buffer
		cfg, done, err := Parse([]string{"-model", "model.hcl"}, &out)
		require.NoError(t, err)
		require.False(t, done)
		assert.Equal(t, "model.hcl", cfg.ModelPath)
	})

	t.Run("from -m shorthand", func(t *testing.T) {
		var out bytes.Buffer
		cfg, done, err := Parse([]string{"-m", "model.hcl"}, &out)
		require.NoError(t, err)
		require.False(t, done)
		assert.Equal(t, "model.hcl", cfg.ModelPath)
	})

	t.Run("from positional argument", func(t *testing.T) {
		var out bytes.Buffer
		cfg, done, err := Parse([]string{"models/"}, &out)
		require.NoError(t, err)
		require.False(t, done)
		assert.Equal(t, "models/", cfg.ModelPath)
	})

	t.Run("flag wins over positional", func(t *testing.T) {
		var out bytes.Buffer
		cfg, _, err := Parse([]string{"-model", "a.hcl", "b.hcl"}, &out)
		require.NoError(t, err)
		assert.Equal(t, "a.hcl", cfg.ModelPath)
	})
}

func TestParseNoArgsPrintsUsage(t *testing.T) {
	var out bytes.Buffer
	cfg, done, err := Parse(nil, &out)
	require.NoError(t, err)
	assert.True(t, done)
	assert.Nil(t, cfg)
	assert.Contains(t, out.String(), "Usage:")
}

func TestParseDefaults(t *testing.T) {
	var out bytes.Buffer
	cfg, _, err := Parse([]string{"model.hcl"}, &out)
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.Trials)
	assert.Equal(t, "", cfg.Context)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestParseValidation(t *testing.T) {
	cases := []struct {
		name string
		args []string
	}{
		{"negative trials", []string{"-trials", "-1", "model.hcl"}},
		{"bad log format", []string{"-log-format", "xml", "model.hcl"}},
		{"bad log level", []string{"-log-level", "loud", "model.hcl"}},
		{"unknown flag", []string{"-frobnicate", "model.hcl"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var out bytes.Buffer
			_, _, err := Parse(tc.args, &out)
			var ee *ExitError
			require.ErrorAs(t, err, &ee)
			assert.Equal(t, 2, ee.Code)
		})
	}
}

func TestParseOverrides(t *testing.T) {
	var out bytes.Buffer
	cfg, _, err := Parse([]string{
		"-trials", "5", "-context", "probe", "-log-format", "TEXT", "-log-level", "DEBUG", "model.hcl",
	}, &out)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Trials)
	assert.Equal(t, "probe", cfg.Context)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, "debug", cfg.LogLevel)
}

// Package config defines the format-agnostic model of a composition as
// described by the user: nodes, projections, per-trial inputs, and run
// settings, plus the Loader interface implemented by format-specific
// packages such as hclmodel.
//
// The config.Model is the single source of truth the comp builder
// constructs a composition from.
package config

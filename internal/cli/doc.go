// Package cli parses command-line arguments into an app configuration.
// It owns the usage text and argument validation, and reports failures
// through ExitError so the entrypoint can map them to exit codes.
package cli

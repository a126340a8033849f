// Package model defines the shared value types and errors for the
// succinct CLI and library packages.
//
// This package has no external dependencies. It holds the tree kind and
// executor kind enumerations, the sentinel errors returned by tree
// navigation, and the exit codes (ExitCode) plus the CLIError type that
// carries an exit code up to the process boundary.
package model

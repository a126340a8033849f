package model

import (
	"fmt"
	"strings"
)

// TreeKind identifies which succinct representation a tree uses.
// The kind is written into every saved tree file so that a loader can
// reject a file of the wrong representation before decoding it.
type TreeKind string

const (
	// KindBP is the balanced parentheses representation. A node is the
	// index of its opening parenthesis; labels are kept in pre-order.
	KindBP TreeKind = "bp"

	// KindLOUDS is the level-order unary degree sequence representation.
	// A node is the index of the first bit of its degree description;
	// labels are kept in level order.
	KindLOUDS TreeKind = "louds"
)

// String returns the string representation of TreeKind.
func (k TreeKind) String() string {
	return string(k)
}

// IsValid checks whether the TreeKind is one of the predefined kinds.
func (k TreeKind) IsValid() bool {
	switch k {
	case KindBP, KindLOUDS:
		return true
	default:
		return false
	}
}

// Byte returns the single-byte tag used for the kind in saved tree files.
func (k TreeKind) Byte() byte {
	switch k {
	case KindBP:
		return 'B'
	case KindLOUDS:
		return 'L'
	default:
		return 0
	}
}

// TreeKindFromByte is the inverse of TreeKind.Byte.
func TreeKindFromByte(b byte) (TreeKind, error) {
	switch b {
	case 'B':
		return KindBP, nil
	case 'L':
		return KindLOUDS, nil
	default:
		return "", fmt.Errorf("unknown tree kind tag %q", b)
	}
}

// ParseTreeKind converts a string to a TreeKind.
// Returns an error if the string does not match any valid kind.
func ParseTreeKind(s string) (TreeKind, error) {
	kind := TreeKind(strings.ToLower(s))
	if !kind.IsValid() {
		return "", fmt.Errorf("invalid tree kind: %q (valid: bp, louds)", s)
	}
	return kind, nil
}

// ExecutorKind selects where CI pipeline steps are executed.
type ExecutorKind string

const (
	// ExecutorLocal runs steps as child processes on the host, with the
	// toolchain selected through GOTOOLCHAIN.
	ExecutorLocal ExecutorKind = "local"

	// ExecutorDocker runs steps inside a golang:<tag> container per channel.
	ExecutorDocker ExecutorKind = "docker"
)

// String returns the string representation of ExecutorKind.
func (e ExecutorKind) String() string {
	return string(e)
}

// IsValid checks whether the ExecutorKind is one of the predefined kinds.
func (e ExecutorKind) IsValid() bool {
	return e == ExecutorLocal || e == ExecutorDocker
}

// ParseExecutorKind converts a string to an ExecutorKind.
func ParseExecutorKind(s string) (ExecutorKind, error) {
	kind := ExecutorKind(strings.ToLower(s))
	if !kind.IsValid() {
		return "", fmt.Errorf("invalid executor: %q (valid: local, docker)", s)
	}
	return kind, nil
}

// ExitCode defines the CLI exit codes. CI systems and scripts rely on
// these values, so existing codes must never be renumbered.
type ExitCode int

const (
	// ExitSuccess indicates the command completed successfully.
	ExitSuccess ExitCode = 0

	// ExitGeneralError indicates an unspecified error occurred.
	ExitGeneralError ExitCode = 1

	// ExitInvalidInput indicates an invalid bit sequence, tree document
	// or saved tree file.
	ExitInvalidInput ExitCode = 2

	// ExitNodeError indicates a navigation query referenced something
	// that is not a node, or asked for a relative that does not exist.
	ExitNodeError ExitCode = 3

	// ExitDockerNotRunning indicates the Docker daemon is not accessible.
	ExitDockerNotRunning ExitCode = 4

	// ExitPipelineFailed indicates at least one CI channel that is not
	// allowed to fail did fail.
	ExitPipelineFailed ExitCode = 5

	// ExitConfigError indicates the configuration file could not be
	// loaded or failed validation.
	ExitConfigError ExitCode = 6
)

// CLIError is a custom error type that carries an exit code.
// This allows the CLI layer to translate domain errors into
// appropriate process exit codes.
type CLIError struct {
	// Code is the exit code to return to the OS.
	Code ExitCode

	// Message is the human-readable error description.
	Message string

	// Err is the underlying error, if any.
	Err error
}

// Error satisfies the error interface. It returns the human-readable
// error message, optionally including the underlying error.
func (e *CLIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for use with errors.Is/errors.As.
func (e *CLIError) Unwrap() error {
	return e.Err
}

// NewCLIError creates a new CLIError with the given exit code and message.
func NewCLIError(code ExitCode, message string) *CLIError {
	return &CLIError{Code: code, Message: message}
}

// WrapCLIError creates a new CLIError that wraps an existing error.
func WrapCLIError(code ExitCode, message string, err error) *CLIError {
	return &CLIError{Code: code, Message: message, Err: err}
}

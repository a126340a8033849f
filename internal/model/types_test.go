package model

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestTreeKind_String verifies that TreeKind values produce the expected
// string representations for CLI output and JSON serialization.
func TestTreeKind_String(t *testing.T) {
	assert.Equal(t, "bp", KindBP.String())
	assert.Equal(t, "louds", KindLOUDS.String())
}

// TestTreeKind_IsValid checks that only defined kinds pass validation.
func TestTreeKind_IsValid(t *testing.T) {
	assert.True(t, KindBP.IsValid())
	assert.True(t, KindLOUDS.IsValid())
	assert.False(t, TreeKind("dfuds").IsValid())
	assert.False(t, TreeKind("").IsValid())
}

// TestParseTreeKind verifies string-to-kind conversion,
// including case normalization and error cases.
func TestParseTreeKind(t *testing.T) {
	tests := []struct {
		input    string
		expected TreeKind
		hasError bool
	}{
		{"bp", KindBP, false},
		{"louds", KindLOUDS, false},
		{"BP", KindBP, false},       // case insensitive
		{"Louds", KindLOUDS, false}, // case insensitive
		{"dfuds", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result, err := ParseTreeKind(tt.input)
			if tt.hasError {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.expected, result)
			}
		})
	}
}

// TestTreeKind_ByteRoundTrip verifies that the file tag of every kind
// maps back to the same kind, and that unknown tags are rejected.
func TestTreeKind_ByteRoundTrip(t *testing.T) {
	for _, kind := range []TreeKind{KindBP, KindLOUDS} {
		got, err := TreeKindFromByte(kind.Byte())
		require.NoError(t, err)
		assert.Equal(t, kind, got)
	}

	_, err := TreeKindFromByte('X')
	assert.Error(t, err)
	assert.Equal(t, byte(0), TreeKind("other").Byte())
}

// TestParseExecutorKind verifies executor parsing used by the --executor flag.
func TestParseExecutorKind(t *testing.T) {
	got, err := ParseExecutorKind("Docker")
	require.NoError(t, err)
	assert.Equal(t, ExecutorDocker, got)

	got, err = ParseExecutorKind("local")
	require.NoError(t, err)
	assert.Equal(t, ExecutorLocal, got)

	_, err = ParseExecutorKind("kubernetes")
	assert.Error(t, err)
}

// TestCLIError verifies message formatting and unwrapping of CLIError.
func TestCLIError(t *testing.T) {
	// Without an underlying error only the message is shown.
	plain := NewCLIError(ExitInvalidInput, "bad bits")
	assert.Equal(t, "bad bits", plain.Error())
	assert.Nil(t, plain.Unwrap())

	// With an underlying error both parts are shown and errors.Is
	// reaches the sentinel through the wrapper.
	wrapped := WrapCLIError(ExitNodeError, "query failed", ErrNotANode)
	assert.Equal(t, "query failed: "+ErrNotANode.Error(), wrapped.Error())
	assert.True(t, errors.Is(wrapped, ErrNotANode))

	var cliErr *CLIError
	require.True(t, errors.As(fmt.Errorf("outer: %w", wrapped), &cliErr))
	assert.Equal(t, ExitNodeError, cliErr.Code)
}

// TestIsNodeError verifies the classification used for exit code mapping.
func TestIsNodeError(t *testing.T) {
	assert.True(t, IsNodeError(ErrHasNoParent))
	assert.True(t, IsNodeError(fmt.Errorf("index 7: %w", ErrNotANode)))
	assert.False(t, IsNodeError(ErrInvalidBits))
	assert.False(t, IsNodeError(nil))

	assert.True(t, IsInputError(fmt.Errorf("load: %w", ErrDecode)))
	assert.True(t, IsInputError(ErrEmptyTree))
	assert.False(t, IsInputError(ErrNoSibling))
}

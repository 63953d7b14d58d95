package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		expected string
	}{
		{
			name:     "without underlying error",
			err:      New(CodeSchedulingCycle, "cycle detected"),
			expected: "[SCHEDULING_CYCLE] cycle detected",
		},
		{
			name:     "with underlying error",
			err:      Wrap(CodeParseError, "graphml read failed", errors.New("unexpected EOF")),
			expected: "[PARSE_ERROR] graphml read failed: unexpected EOF",
		},
		{
			name:     "with node",
			err:      NewNode(CodeStructuralError, "enable port must be boolean", "top::sub1::gate"),
			expected: "[STRUCTURAL_ERROR] enable port must be boolean (node: top::sub1::gate)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	underlying := errors.New("underlying error")
	err := Wrap(CodeFIFOError, "fifo reshape failed", underlying)

	unwrapped := err.Unwrap()
	assert.Equal(t, underlying, unwrapped)
}

func TestAppError_Is(t *testing.T) {
	err1 := New(CodeContextError, "error 1")
	err2 := New(CodeContextError, "error 2")
	err3 := New(CodeFIFOError, "error 3")

	assert.True(t, errors.Is(err1, err2))
	assert.False(t, errors.Is(err1, err3))
}

func TestIsSchedulingCycle(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "scheduling cycle error",
			err:      ErrSchedulingCycle,
			expected: true,
		},
		{
			name:     "wrapped scheduling cycle error",
			err:      Wrap(CodeSchedulingCycle, "cycle", errors.New("2 nodes remain")),
			expected: true,
		},
		{
			name:     "other error",
			err:      ErrContextError,
			expected: false,
		},
		{
			name:     "nil error",
			err:      nil,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsSchedulingCycle(tt.err))
		})
	}
}

func TestIsContextError(t *testing.T) {
	assert.True(t, IsContextError(ErrContextError))
	assert.False(t, IsContextError(ErrFIFOError))
}

func TestIsStructuralError(t *testing.T) {
	assert.True(t, IsStructuralError(ErrStructuralError))
	assert.False(t, IsStructuralError(ErrParseError))
}

func TestGetErrorCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{
			name:     "app error",
			err:      New(CodeFIFOError, "fifo error"),
			expected: CodeFIFOError,
		},
		{
			name:     "wrapped app error",
			err:      Wrap(CodeParseError, "parse", errors.New("inner")),
			expected: CodeParseError,
		},
		{
			name:     "standard error",
			err:      errors.New("standard error"),
			expected: CodeUnknown,
		},
		{
			name:     "nil error",
			err:      nil,
			expected: CodeUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetErrorCode(tt.err))
		})
	}
}

func TestGetErrorMessage(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{
			name:     "app error",
			err:      New(CodeMissingPartition, "subsystem has no partition"),
			expected: "subsystem has no partition",
		},
		{
			name:     "standard error",
			err:      errors.New("standard error"),
			expected: "standard error",
		},
		{
			name:     "nil error",
			err:      nil,
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetErrorMessage(tt.err))
		})
	}
}

func TestExitStatus(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"nil", nil, ExitSuccess},
		{"cycle", ErrSchedulingCycle, ExitSchedulingCycle},
		{"context", New(CodeContextError, "unspecialized clock domain"), ExitContextError},
		{"fifo", Wrap(CodeFIFOError, "alignment", errors.New("3 % 2 != 0")), ExitFIFOError},
		{"missing partition", ErrMissingPartition, ExitMissingPartition},
		{"plain error", errors.New("boom"), ExitUnknown},
		{"unmapped code", ErrDatabaseError, ExitUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ExitStatus(tt.err))
		})
	}
}

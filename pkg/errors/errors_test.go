package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(ErrCodeInvalidAddress, "op %d out of range", 7)

	if err.Code != ErrCodeInvalidAddress {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeInvalidAddress)
	}

	if err.Message != "op 7 out of range" {
		t.Errorf("Message = %v, want %v", err.Message, "op 7 out of range")
	}

	expected := "INVALID_ADDRESS: op 7 out of range"
	if err.Error() != expected {
		t.Errorf("Error() = %v, want %v", err.Error(), expected)
	}
}

func TestWrap(t *testing.T) {
	cause := errors.New("underlying error")
	err := Wrap(ErrCodeInvalidFormat, cause, "failed to decode")

	if err.Code != ErrCodeInvalidFormat {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeInvalidFormat)
	}

	if err.Cause != cause {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}

	if unwrapped := errors.Unwrap(err); unwrapped != cause {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, cause)
	}

	if !errors.Is(err, cause) {
		t.Error("errors.Is(err, cause) = false, want true")
	}
}

func TestIs(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		code     Code
		expected bool
	}{
		{
			name:     "matching code",
			err:      New(ErrCodeCycle, "test"),
			code:     ErrCodeCycle,
			expected: true,
		},
		{
			name:     "non-matching code",
			err:      New(ErrCodeCycle, "test"),
			code:     ErrCodeInternal,
			expected: false,
		},
		{
			name:     "outer code",
			err:      Wrap(ErrCodeInvalidFormat, New(ErrCodeInvalidAddress, "inner"), "outer"),
			code:     ErrCodeInvalidFormat,
			expected: true,
		},
		{
			name:     "inner code",
			err:      Wrap(ErrCodeInvalidFormat, New(ErrCodeInvalidAddress, "inner"), "outer"),
			code:     ErrCodeInvalidAddress,
			expected: true,
		},
		{
			name:     "through fmt wrapping",
			err:      fmt.Errorf("context: %w", New(ErrCodeCycle, "inner")),
			code:     ErrCodeCycle,
			expected: true,
		},
		{
			name:     "non-Error type",
			err:      errors.New("plain error"),
			code:     ErrCodeInvalidInput,
			expected: false,
		},
		{
			name:     "nil error",
			err:      nil,
			code:     ErrCodeInvalidInput,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Is(tt.err, tt.code); got != tt.expected {
				t.Errorf("Is() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestGetCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected Code
	}{
		{"Error type", New(ErrCodeConflictingLink, "test"), ErrCodeConflictingLink},
		{"plain error", errors.New("plain"), ""},
		{"nil", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetCode(tt.err); got != tt.expected {
				t.Errorf("GetCode() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{"Error type", New(ErrCodeInvalidInput, "friendly message"), "friendly message"},
		{"plain error", errors.New("plain error"), "plain error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := UserMessage(tt.err); got != tt.expected {
				t.Errorf("UserMessage() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestIsInputError(t *testing.T) {
	if !IsInputError(New(ErrCodeInvalidSetting, "x")) {
		t.Error("IsInputError(INVALID_SETTING) = false, want true")
	}
	if IsInputError(New(ErrCodeCycle, "x")) {
		t.Error("IsInputError(CYCLE) = true, want false")
	}
	if IsInputError(New(ErrCodeInternal, "x")) {
		t.Error("IsInputError(INTERNAL_ERROR) = true, want false")
	}
}

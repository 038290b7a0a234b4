package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(ErrCodeInvalidInput, "test message: %s", "value")

	if err.Code != ErrCodeInvalidInput {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeInvalidInput)
	}
	if err.Message != "test message: value" {
		t.Errorf("Message = %v, want %v", err.Message, "test message: value")
	}

	expected := "INVALID_INPUT: test message: value"
	if err.Error() != expected {
		t.Errorf("Error() = %v, want %v", err.Error(), expected)
	}
}

func TestWrap(t *testing.T) {
	cause := errors.New("exit status 1")
	err := Wrap(ErrCodeEngineFailed, cause, "batch %d", 3)

	if err.Code != ErrCodeEngineFailed {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeEngineFailed)
	}
	if errors.Unwrap(err) != cause {
		t.Errorf("Unwrap() = %v, want %v", errors.Unwrap(err), cause)
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is(err, cause) = false, want true")
	}
	if got, want := err.Error(), "ENGINE_FAILED: batch 3: exit status 1"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
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
			err:      New(ErrCodeDecodeFailed, "test"),
			code:     ErrCodeDecodeFailed,
			expected: true,
		},
		{
			name:     "non-matching code",
			err:      New(ErrCodeDecodeFailed, "test"),
			code:     ErrCodeVectorizeFailed,
			expected: false,
		},
		{
			name:     "outer code wins",
			err:      Wrap(ErrCodeStoreFailed, New(ErrCodeInvalidDataset, "inner"), "outer"),
			code:     ErrCodeStoreFailed,
			expected: true,
		},
		{
			name:     "fmt wrapped",
			err:      fmt.Errorf("run: %w", New(ErrCodeEngineFailed, "boom")),
			code:     ErrCodeEngineFailed,
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

func TestGetCodeAndUserMessage(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", New(ErrCodeAlreadyExists, "network exists"))
	if got := GetCode(err); got != ErrCodeAlreadyExists {
		t.Errorf("GetCode() = %v, want %v", got, ErrCodeAlreadyExists)
	}
	if got := UserMessage(err); got != "network exists" {
		t.Errorf("UserMessage() = %q, want %q", got, "network exists")
	}

	plain := errors.New("plain")
	if got := GetCode(plain); got != "" {
		t.Errorf("GetCode(plain) = %v, want empty", got)
	}
	if got := UserMessage(plain); got != "plain" {
		t.Errorf("UserMessage(plain) = %q, want %q", got, "plain")
	}
}

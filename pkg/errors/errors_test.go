package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestErrorFormat(t *testing.T) {
	err := New(ErrCodeInvalidName, "empty name after normalization")
	want := "INVALID_NAME: empty name after normalization"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestErrorFormatWithCause(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := Wrap(ErrCodeNetwork, cause, "fetch https://pypi.org/simple/requests/")
	want := "NETWORK_ERROR: fetch https://pypi.org/simple/requests/: connection refused"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestUnwrap(t *testing.T) {
	cause := stderrors.New("boom")
	err := Wrap(ErrCodeInternal, cause, "wrapped")
	if !stderrors.Is(err, cause) {
		t.Error("errors.Is should find the wrapped cause")
	}
}

func TestIs(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code Code
		want bool
	}{
		{"matching code", New(ErrCodeResolutionConflict, "pkg"), ErrCodeResolutionConflict, true},
		{"different code", New(ErrCodeResolutionConflict, "pkg"), ErrCodeIntegrityMismatch, false},
		{"wrapped in fmt", fmt.Errorf("outer: %w", New(ErrCodeNotFound, "gone")), ErrCodeNotFound, true},
		{"plain error", stderrors.New("plain"), ErrCodeNotFound, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Is(tt.err, tt.code); got != tt.want {
				t.Errorf("Is() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetCode(t *testing.T) {
	if got := GetCode(New(ErrCodeTimeout, "slow")); got != ErrCodeTimeout {
		t.Errorf("GetCode() = %q, want %q", got, ErrCodeTimeout)
	}
	if got := GetCode(stderrors.New("plain")); got != "" {
		t.Errorf("GetCode() = %q, want empty", got)
	}
}

func TestUserMessage(t *testing.T) {
	err := New(ErrCodeNoCompatibleArtifact, "no wheel for cp311 on linux/arm64")
	if got := UserMessage(err); got != "no wheel for cp311 on linux/arm64" {
		t.Errorf("UserMessage() = %q", got)
	}
	plain := stderrors.New("plain failure")
	if got := UserMessage(plain); got != "plain failure" {
		t.Errorf("UserMessage() = %q", got)
	}
}

func TestFatal(t *testing.T) {
	tests := []struct {
		code Code
		want bool
	}{
		{ErrCodeIntegrityMismatch, true},
		{ErrCodeUnsupportedPlatform, true},
		{ErrCodeNoCompatibleArtifact, true},
		{ErrCodeResolutionConflict, true},
		{ErrCodeMalformedRequirement, false},
		{ErrCodeNetwork, false},
		{ErrCodeNotFound, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			if got := Fatal(New(tt.code, "x")); got != tt.want {
				t.Errorf("Fatal(%s) = %v, want %v", tt.code, got, tt.want)
			}
		})
	}
}

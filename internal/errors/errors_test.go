package errors

import (
	goerrors "errors"
	"fmt"
	"strings"
	"testing"
)

func TestErrorString(t *testing.T) {
	e := New(RetrievalUnavailable, "vector store unreachable", nil)
	got := e.Error()
	if !strings.Contains(got, "RETRIEVAL_UNAVAILABLE") {
		t.Errorf("expected code in message, got %q", got)
	}
	if !strings.Contains(got, "vector store unreachable") {
		t.Errorf("expected message text, got %q", got)
	}
}

func TestErrorWrapsCause(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	e := New(InferenceUnavailable, "generate failed", cause)

	if !strings.Contains(e.Error(), "connection refused") {
		t.Errorf("cause missing from message: %q", e.Error())
	}
	if !goerrors.Is(e, cause) {
		t.Error("errors.Is should find the wrapped cause")
	}
}

func TestCodeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{"coded", New(Timeout, "slow branch", nil), Timeout},
		{"wrapped coded", fmt.Errorf("outer: %w", New(InvalidRequest, "bad limit", nil)), InvalidRequest},
		{"plain", fmt.Errorf("plain"), InternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CodeOf(tt.err); got != tt.want {
				t.Errorf("CodeOf() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestIsInvalidRequest(t *testing.T) {
	if !IsInvalidRequest(New(InvalidRequest, "limit out of bounds", nil)) {
		t.Error("expected true for InvalidRequest error")
	}
	if IsInvalidRequest(New(StoreError, "read failed", nil)) {
		t.Error("expected false for other codes")
	}
}

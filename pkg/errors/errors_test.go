package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(ErrCodeNodeNotFound, "node %s not found", "n1")

	if err.Code != ErrCodeNodeNotFound {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeNodeNotFound)
	}
	if err.Message != "node n1 not found" {
		t.Errorf("Message = %v, want %v", err.Message, "node n1 not found")
	}

	expected := "NODE_NOT_FOUND: node n1 not found"
	if err.Error() != expected {
		t.Errorf("Error() = %v, want %v", err.Error(), expected)
	}
}

func TestWrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(ErrCodeStore, cause, "load flow")

	if err.Cause != cause {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}
	if errors.Unwrap(err) != cause {
		t.Errorf("Unwrap() = %v, want %v", errors.Unwrap(err), cause)
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is(err, cause) = false, want true")
	}
	if err.Error() != "STORE_ERROR: load flow: connection refused" {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestIs(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		code     Code
		expected bool
	}{
		{"matching code", New(ErrCodeReadOnly, "locked"), ErrCodeReadOnly, true},
		{"non-matching code", New(ErrCodeReadOnly, "locked"), ErrCodeConflict, false},
		{"outermost code wins", Wrap(ErrCodeStore, New(ErrCodeInvalidInput, "inner"), "outer"), ErrCodeStore, true},
		{"fmt wrapped", fmt.Errorf("edit: %w", New(ErrCodeInvalidPort, "bad")), ErrCodeInvalidPort, true},
		{"plain error", errors.New("plain"), ErrCodeInvalidInput, false},
		{"nil error", nil, ErrCodeInvalidInput, false},
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
	if got := GetCode(New(ErrCodeLinkNotFound, "x")); got != ErrCodeLinkNotFound {
		t.Errorf("GetCode() = %v", got)
	}
	if got := GetCode(errors.New("plain")); got != "" {
		t.Errorf("GetCode(plain) = %v, want empty", got)
	}
	if got := GetCode(nil); got != "" {
		t.Errorf("GetCode(nil) = %v, want empty", got)
	}
}

func TestUserMessage(t *testing.T) {
	if got := UserMessage(New(ErrCodeInvalidInput, "friendly message")); got != "friendly message" {
		t.Errorf("UserMessage() = %q", got)
	}
	if got := UserMessage(errors.New("plain error")); got != "plain error" {
		t.Errorf("UserMessage() = %q", got)
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{New(ErrCodeInvalidInput, ""), http.StatusBadRequest},
		{New(ErrCodeInvalidPort, ""), http.StatusBadRequest},
		{New(ErrCodeFlowNotFound, ""), http.StatusNotFound},
		{New(ErrCodeNodeNotFound, ""), http.StatusNotFound},
		{New(ErrCodeReadOnly, ""), http.StatusForbidden},
		{New(ErrCodeConflict, ""), http.StatusConflict},
		{New(ErrCodeUnsupported, ""), http.StatusNotImplemented},
		{New(ErrCodeStore, ""), http.StatusInternalServerError},
		{errors.New("plain"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := HTTPStatus(tt.err); got != tt.want {
			t.Errorf("HTTPStatus(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

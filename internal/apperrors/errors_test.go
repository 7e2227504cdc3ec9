package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestIsFollowsWrapping(t *testing.T) {
	base := Conflict("audio")
	wrapped := fmt.Errorf("create audio: %w", base)

	if !Is(wrapped, ErrCodeConflict) {
		t.Fatal("Is(wrapped, CONFLICT) = false, want true")
	}
	if Is(wrapped, ErrCodeNotFound) {
		t.Error("Is(wrapped, NOT_FOUND) = true, want false")
	}
	if Is(errors.New("plain"), ErrCodeConflict) {
		t.Error("plain error matched a code")
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{NotFound("correspondent", "Jane Doe"), http.StatusNotFound},
		{InvalidInput("size", "too big"), http.StatusBadRequest},
		{TransientIO("download", errors.New("eof")), http.StatusBadGateway},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := HTTPStatus(tt.err); got != tt.want {
			t.Errorf("HTTPStatus(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestUnwrapReachesCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := DatabaseError("insert audio", cause)
	if !errors.Is(err, cause) {
		t.Error("errors.Is did not reach cause")
	}
	if !err.Retryable {
		t.Error("database errors should be marked retryable")
	}
	if Conflict("audio").Retryable {
		t.Error("conflicts should not be retryable")
	}
}

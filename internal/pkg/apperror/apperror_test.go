package apperror

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSentinelMatching(t *testing.T) {
	err := New(KindInvalidTransition, "invitation %s is %s", "abc", "cancelled")
	wrapped := fmt.Errorf("resend: %w", err)

	assert.True(t, errors.Is(wrapped, ErrInvalidTransition))
	assert.False(t, errors.Is(wrapped, ErrNotFound))
	assert.Equal(t, KindInvalidTransition, KindOf(wrapped))
	assert.Equal(t, "invitation abc is cancelled", err.Error())
}

func TestKindOfUnclassified(t *testing.T) {
	assert.Equal(t, Kind(""), KindOf(nil))
	assert.Equal(t, KindPersistenceFailure, KindOf(errors.New("connection reset")))
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("disk full")
	err := Wrap(KindRecordingFailed, cause, "audit append failed")

	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, ErrRecordingFailed)
	assert.Contains(t, err.Error(), "disk full")
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		kind Kind
		want int
	}{
		{"", 200},
		{KindUnauthenticated, 401},
		{KindAuthorizationDenied, 403},
		{KindEntitlementDenied, 403},
		{KindSelfActionForbidden, 403},
		{KindValidation, 400},
		{KindUnknownFeature, 400},
		{KindNotFound, 404},
		{KindInvalidTransition, 409},
		{KindRecordingFailed, 500},
		{KindPersistenceFailure, 500},
	}

	for _, tt := range tests {
		if got := HTTPStatus(tt.kind); got != tt.want {
			t.Fatalf("HTTPStatus(%q) = %d, want %d", tt.kind, got, tt.want)
		}
	}
}

func TestInternalKinds(t *testing.T) {
	assert.True(t, IsInternal(KindRecordingFailed))
	assert.True(t, IsInternal(KindPersistenceFailure))
	assert.False(t, IsInternal(KindEntitlementDenied))
}

func TestWithDetails(t *testing.T) {
	err := New(KindEntitlementDenied, "feature not enabled").With("feature", "advanced-reports")
	assert.Equal(t, "advanced-reports", err.Details["feature"])
}

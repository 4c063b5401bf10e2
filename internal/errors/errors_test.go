package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUserErrorFormatting(t *testing.T) {
	err := UserError{
		Message:    "rotation failed",
		Details:    "wire details",
		Suggestion: "re-run the tool",
	}

	msg := err.Error()
	assert.Contains(t, msg, "rotation failed")
	assert.Contains(t, msg, "Details: wire details")
	assert.Contains(t, msg, "💡 Try: re-run the tool")
}

func TestUserErrorUnwrap(t *testing.T) {
	inner := errors.New("boom")
	err := UserError{Message: "outer", Err: inner}

	assert.ErrorIs(t, err, inner)
}

func TestCapacityError(t *testing.T) {
	err := CapacityError{User: "deploy-bot", KeyCount: 2}

	assert.Contains(t, err.Error(), "deploy-bot")
	assert.Contains(t, err.Error(), "--force")
	assert.True(t, IsCapacity(err))
	assert.True(t, IsCapacity(fmt.Errorf("rotate: %w", err)))
	assert.False(t, IsCapacity(errors.New("other")))
}

func TestIAMErrorSuggestions(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{"access denied", errors.New("api error AccessDenied: not authorized"), "iam:CreateAccessKey"},
		{"limit exceeded", errors.New("LimitExceeded: Cannot exceed quota"), "delete-access-key"},
		{"missing user", errors.New("NoSuchEntity: user not found"), "list-users"},
		{"throttled", errors.New("Throttling: Rate exceeded"), "rate limit"},
		{"expired", errors.New("ExpiredToken: token expired"), "aws configure"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := IAMError("CreateAccessKey", tt.err)
			assert.Contains(t, wrapped.Error(), "IAM CreateAccessKey failed")
			assert.Contains(t, wrapped.Error(), tt.expected)
			assert.ErrorIs(t, wrapped, tt.err)
		})
	}
}

func TestLocalIOError(t *testing.T) {
	err := LocalIOError("write", "/home/x/.aws/credentials", errors.New("permission denied"))

	assert.Contains(t, err.Error(), "/home/x/.aws/credentials")
	assert.Contains(t, err.Error(), "permission denied")
}

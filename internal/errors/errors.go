package errors

import (
	"errors"
	"fmt"
	"strings"
)

// UserError represents an error that should be shown to the user with helpful context
type UserError struct {
	Message    string
	Suggestion string
	Details    string
	Err        error
}

func (e UserError) Error() string {
	var parts []string

	if e.Message != "" {
		parts = append(parts, e.Message)
	} else if e.Err != nil {
		parts = append(parts, e.Err.Error())
	}

	if e.Details != "" {
		parts = append(parts, "\n  Details: "+e.Details)
	}

	if e.Suggestion != "" {
		parts = append(parts, "\n  💡 Try: "+e.Suggestion)
	}

	return strings.Join(parts, "")
}

func (e UserError) Unwrap() error {
	return e.Err
}

// CapacityError indicates the user already holds the two-key maximum and
// rotation cannot proceed without operator intervention.
type CapacityError struct {
	User     string
	KeyCount int
}

func (e CapacityError) Error() string {
	return fmt.Sprintf(
		"user '%s' already has %d access keys (the IAM limit is 2)\n  💡 Try: delete one key manually, or pass --force to deactivate the oldest key automatically",
		e.User, e.KeyCount)
}

// IsCapacity reports whether err is (or wraps) a CapacityError.
func IsCapacity(err error) bool {
	var ce CapacityError
	return errors.As(err, &ce)
}

// IAMError wraps a failed identity service call with the operation that
// failed and a suggestion derived from the AWS error code.
func IAMError(operation string, err error) error {
	return UserError{
		Message:    fmt.Sprintf("IAM %s failed", operation),
		Details:    err.Error(),
		Suggestion: iamSuggestion(err),
		Err:        err,
	}
}

// LocalIOError wraps a credentials file read/write failure with path context.
func LocalIOError(action, path string, err error) error {
	return UserError{
		Message:    fmt.Sprintf("failed to %s credentials file %s", action, path),
		Details:    err.Error(),
		Suggestion: "Check that the file exists and is readable/writable by the current user",
		Err:        err,
	}
}

// iamSuggestion returns helpful suggestions based on common IAM error codes
func iamSuggestion(err error) string {
	errStr := err.Error()

	switch {
	case strings.Contains(errStr, "AccessDenied"):
		return "Check IAM permissions for iam:ListAccessKeys, iam:CreateAccessKey, iam:UpdateAccessKey and iam:DeleteAccessKey"
	case strings.Contains(errStr, "LimitExceeded"):
		return "The user still has two access keys. Delete one with 'aws iam delete-access-key' and re-run"
	case strings.Contains(errStr, "NoSuchEntity"):
		return "Verify the IAM user name. List users with 'aws iam list-users'"
	case strings.Contains(errStr, "Throttling") || strings.Contains(errStr, "Rate exceeded"):
		return "AWS rate limit exceeded. Wait a moment and re-run"
	case strings.Contains(errStr, "ExpiredToken") || strings.Contains(errStr, "InvalidClientTokenId"):
		return "Your AWS credentials are expired or invalid. Run 'aws configure' or refresh your session"
	case strings.Contains(errStr, "no such host") || strings.Contains(errStr, "connection refused"):
		return "Unable to reach AWS. Check your network connection"
	default:
		return "Check AWS credentials and IAM permissions, then re-run"
	}
}

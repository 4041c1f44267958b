// Package errors provides standardized error handling for the payment
// confirmation pipeline.
package errors

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeSignatureMissing ErrorCode = "SIGNATURE_MISSING"
	ErrCodeSignatureInvalid ErrorCode = "SIGNATURE_INVALID"

	ErrCodeApplicationNotFound ErrorCode = "APPLICATION_NOT_FOUND"
	ErrCodeStoreUnavailable    ErrorCode = "STORE_UNAVAILABLE"

	ErrCodeDispatchFailed        ErrorCode = "DISPATCH_FAILED"
	ErrCodeTransitionWriteFailed ErrorCode = "TRANSITION_WRITE_FAILED"
	ErrCodeCommitFailed          ErrorCode = "COMMIT_FAILED"

	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// ==========================
// 2. Error Constructors
// ==========================

// NewSignatureMissingError covers an absent signature header or an
// unconfigured webhook secret. Non-retryable from our side.
func NewSignatureMissingError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeSignatureMissing,
		Message:   "Webhook signature missing or secret unconfigured",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewSignatureInvalidError creates a non-retryable verification error.
func NewSignatureInvalidError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeSignatureInvalid,
		Message:   "Webhook signature verification failed",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewApplicationNotFoundError creates a non-retryable lookup error.
func NewApplicationNotFoundError(applicationID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeApplicationNotFound,
		Message:   "Application record not found",
		Details:   fmt.Sprintf("applicationId: %s", applicationID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewStoreUnavailableError creates a retryable storage error.
func NewStoreUnavailableError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeStoreUnavailable,
		Message:   "Application store transaction failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewDispatchFailedError creates a retryable notification send error.
func NewDispatchFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDispatchFailed,
		Message:   "Notification delivery failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewTransitionWriteFailedError marks the dangerous case: notification sent
// but the paid state could not be written.
func NewTransitionWriteFailedError(applicationID string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeTransitionWriteFailed,
		Message:   "Paid-state write failed after notification was sent",
		Details:   fmt.Sprintf("applicationId: %s, error: %s", applicationID, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewCommitFailedError creates a retryable commit-stamp error.
func NewCommitFailedError(applicationID string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeCommitFailed,
		Message:   "Processed-marker commit failed",
		Details:   fmt.Sprintf("applicationId: %s, error: %s", applicationID, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 3. Helpers
// ==========================

// Normalize ensures we always have a StandardError.
func Normalize(err error) *StandardError {
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr
	}
	return &StandardError{
		Code:      ErrCodeInternal,
		Message:   "Unexpected error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// HTTPStatus maps an error to the status the provider-facing handler should
// return: client error for non-retryable verification failures (the provider
// must not redeliver the same way), server error for retryable downstream
// failures (the provider should redeliver).
func HTTPStatus(err error) int {
	stdErr := Normalize(err)
	if stdErr.Retryable {
		return http.StatusInternalServerError
	}
	return http.StatusBadRequest
}

// Package errors provides the standardized error taxonomy for the
// notification-to-state pipeline.
package errors

import (
	"fmt"
	"time"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// ErrCodeFetchFailed: mailbox service unreachable or message unparseable.
	ErrCodeFetchFailed ErrorCode = "FETCH_FAILED"
	// ErrCodeClassificationFailed: classifier returned an unrecognized literal
	// or the call itself failed.
	ErrCodeClassificationFailed ErrorCode = "CLASSIFICATION_FAILED"
	// ErrCodeNotificationDecode: a pulled notification payload was undecodable.
	ErrCodeNotificationDecode ErrorCode = "NOTIFICATION_DECODE_FAILED"
	// ErrCodePersistenceFailed: durable write of the application store failed.
	ErrCodePersistenceFailed ErrorCode = "PERSISTENCE_FAILED"
	// ErrCodeValidationFailed: request body missing required fields.
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
)

// PipelineError represents a structured application error.
type PipelineError struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Retryable bool      `json:"retryable"`
	Timestamp time.Time `json:"timestamp"`
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("PipelineError[%s]: %s", e.Code, e.Message)
}

// NewFetchError creates a retryable mailbox fetch error. A failed fetch
// aborts that message only; a later notification may re-deliver it.
func NewFetchError(messageID string, err error) *PipelineError {
	return &PipelineError{
		Code:      ErrCodeFetchFailed,
		Message:   "Mailbox message fetch failed",
		Details:   fmt.Sprintf("messageId: %s, error: %s", messageID, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewClassificationError creates a non-retryable classifier protocol error.
func NewClassificationError(details string) *PipelineError {
	return &PipelineError{
		Code:      ErrCodeClassificationFailed,
		Message:   "Classifier returned an unexpected result",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewNotificationDecodeError creates a non-retryable payload decode error.
// The affected item is skipped; the poll cycle continues.
func NewNotificationDecodeError(err error) *PipelineError {
	return &PipelineError{
		Code:      ErrCodeNotificationDecode,
		Message:   "Notification payload could not be decoded",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewPersistenceError creates a retryable durable-write error. In-memory
// state remains the source of truth until the next successful write.
func NewPersistenceError(err error) *PipelineError {
	return &PipelineError{
		Code:      ErrCodePersistenceFailed,
		Message:   "Application store write failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewValidationError creates a non-retryable request validation error.
func NewValidationError(details string) *PipelineError {
	return &PipelineError{
		Code:      ErrCodeValidationFailed,
		Message:   "Request validation failed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

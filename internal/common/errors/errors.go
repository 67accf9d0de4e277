// Package errors provides the error taxonomy shared by the stores, the
// orchestrator and the workflow workers.
package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeNotFound            ErrorCode = "NOT_FOUND"
	ErrCodeAlreadySaved        ErrorCode = "ALREADY_SAVED"
	ErrCodeValidationFailed    ErrorCode = "VALIDATION_FAILED"
	ErrCodeInvalidFilterFormat ErrorCode = "INVALID_FILTER_FORMAT"
	ErrCodeBackendFailure      ErrorCode = "BACKEND_FAILURE"
	ErrCodeBackendTimeout      ErrorCode = "BACKEND_TIMEOUT"
	ErrCodeInternal            ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`

	cause error
}

func (e *StandardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("StandardError[%s]: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause, if any.
func (e *StandardError) Unwrap() error {
	return e.cause
}

// Is matches any StandardError carrying the same code, so the sentinels below
// work with errors.Is through wrapping.
func (e *StandardError) Is(target error) bool {
	t, ok := target.(*StandardError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// WithMetadata returns e after merging the given key/value into Metadata.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// Sentinels for errors.Is comparisons.
var (
	ErrNotFound         = &StandardError{Code: ErrCodeNotFound}
	ErrAlreadySaved     = &StandardError{Code: ErrCodeAlreadySaved}
	ErrValidationFailed = &StandardError{Code: ErrCodeValidationFailed}
	ErrInvalidFilter    = &StandardError{Code: ErrCodeInvalidFilterFormat}
	ErrBackendFailure   = &StandardError{Code: ErrCodeBackendFailure}
	ErrBackendTimeout   = &StandardError{Code: ErrCodeBackendTimeout}
)

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}

	for k, v := range e.ErrorVariables {
		vars[k] = v
	}

	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

// NewNotFoundError reports an unknown record id.
func NewNotFoundError(resource string, id int) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotFound,
		Message:   fmt.Sprintf("%s not found", resource),
		Details:   fmt.Sprintf("id: %d", id),
		Retryable: false,
		Metadata:  map[string]interface{}{"resource": resource, "id": id},
		Timestamp: time.Now().UTC(),
	}
}

// NewAlreadySavedError reports a duplicate bookmark.
func NewAlreadySavedError(propertyID int) *StandardError {
	return &StandardError{
		Code:      ErrCodeAlreadySaved,
		Message:   "Property already saved",
		Details:   fmt.Sprintf("propertyId: %d", propertyID),
		Retryable: false,
		Metadata:  map[string]interface{}{"propertyId": propertyID},
		Timestamp: time.Now().UTC(),
	}
}

// NewValidationError reports a malformed create/update payload.
func NewValidationError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeValidationFailed,
		Message:   "Payload validation failed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidFilterFormatError creates a non-retryable filter format error.
func NewInvalidFilterFormatError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidFilterFormat,
		Message:   "Invalid filter format",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewBackendFailureError wraps a transport or storage error.
func NewBackendFailureError(backend, operation string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeBackendFailure,
		Message:   fmt.Sprintf("%s backend failed during %s", backend, operation),
		Details:   errString(err),
		Retryable: true,
		Metadata:  map[string]interface{}{"backend": backend, "operation": operation},
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewBackendTimeoutError reports a backend call that exceeded its deadline.
func NewBackendTimeoutError(backend, operation string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeBackendTimeout,
		Message:   fmt.Sprintf("%s backend timed out during %s", backend, operation),
		Details:   errString(err),
		Retryable: true,
		Metadata:  map[string]interface{}{"backend": backend, "operation": operation},
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// Backend classifies err for the given backend call. StandardErrors pass
// through untouched; deadline errors become BACKEND_TIMEOUT and everything
// else BACKEND_FAILURE.
func Backend(backend, operation string, err error) error {
	if err == nil {
		return nil
	}
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return err
	}
	if stderrors.Is(err, context.DeadlineExceeded) {
		return NewBackendTimeoutError(backend, operation, err)
	}
	return NewBackendFailureError(backend, operation, err)
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// BPMNErrorMapping maps internal error codes to BPMN error codes.
var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeNotFound:            "PROPERTY_NOT_FOUND",
	ErrCodeAlreadySaved:        "PROPERTY_ALREADY_SAVED",
	ErrCodeValidationFailed:    "VALIDATION_FAILED",
	ErrCodeInvalidFilterFormat: "INVALID_FILTER_FORMAT",
	ErrCodeBackendFailure:      "BACKEND_FAILURE",
	ErrCodeBackendTimeout:      "BACKEND_TIMEOUT",
}

// GetRetryCount returns the recommended job retry count for a code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeBackendFailure:
		return 3
	case ErrCodeBackendTimeout:
		return 2
	default:
		return 0 // Business errors: no retry
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, exists := BPMNErrorMapping[stdErr.Code]
	if !exists {
		bpmnCode = string(stdErr.Code)
	}

	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	vars := map[string]interface{}{
		"originalErrorCode": string(stdErr.Code),
		"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
	}
	for k, v := range stdErr.Metadata {
		vars[k] = v
	}

	return &BPMNError{
		Code:           bpmnCode,
		Message:        stdErr.Message,
		Details:        stdErr.Details,
		Retryable:      stdErr.Retryable,
		Retries:        retries,
		ErrorVariables: vars,
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// AsStandardError extracts the StandardError from err's chain.
func AsStandardError(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}

// CodeOf returns the code of err, or INTERNAL_ERROR when err is not a StandardError.
func CodeOf(err error) ErrorCode {
	if stdErr, ok := AsStandardError(err); ok {
		return stdErr.Code
	}
	return ErrCodeInternal
}

// IsRetryable reports whether err is a transient backend error.
func IsRetryable(err error) bool {
	if stdErr, ok := AsStandardError(err); ok {
		return stdErr.Retryable
	}
	return false
}

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "BACKEND"):
		return "BACKEND"
	case strings.Contains(codeStr, "NOT_FOUND") || strings.Contains(codeStr, "SAVED"):
		return "BUSINESS"
	case strings.Contains(codeStr, "INVALID") || strings.Contains(codeStr, "VALIDATION"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}

// Package errors provides standardized error handling for the scoring
// surfaces and BPMN workflow integration.
package errors

import (
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
	ErrCodeSchemaMismatch        ErrorCode = "SCHEMA_MISMATCH"
	ErrCodeInvalidCategory       ErrorCode = "INVALID_CATEGORY"
	ErrCodeInputValidationFailed ErrorCode = "INPUT_VALIDATION_FAILED"

	ErrCodeModelLoadFailed  ErrorCode = "MODEL_LOAD_FAILED"
	ErrCodePredictionFailed ErrorCode = "PREDICTION_FAILED"

	ErrCodeDatasetLoadFailed ErrorCode = "DATASET_LOAD_FAILED"
	ErrCodeCacheUnavailable  ErrorCode = "CACHE_UNAVAILABLE"

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

	cause error
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause so errors.Is matches sentinel errors.
func (e *StandardError) Unwrap() error {
	return e.cause
}

// WithMetadata attaches a key/value pair and returns the same error.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

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

// NewSchemaMismatchError reports a feature vector or model feature list
// that disagrees with the closed encoder schema.
func NewSchemaMismatchError(cause error) *StandardError {
	return &StandardError{
		Code:      ErrCodeSchemaMismatch,
		Message:   "Feature schema mismatch",
		Details:   cause.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
}

// NewInvalidCategoryError reports a categorical value outside the known level set.
func NewInvalidCategoryError(field, value string, cause error) *StandardError {
	e := &StandardError{
		Code:      ErrCodeInvalidCategory,
		Message:   "Unknown category value",
		Details:   fmt.Sprintf("field: %s, value: %q", field, value),
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
	return e.WithMetadata("field", field).WithMetadata("value", value)
}

// NewInputValidationError creates a non-retryable input validation error.
func NewInputValidationError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInputValidationFailed,
		Message:   "Input validation failed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewModelLoadFailedError creates a non-retryable model artifact error.
func NewModelLoadFailedError(path string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeModelLoadFailed,
		Message:   "Failed to load model artifact",
		Details:   fmt.Sprintf("path: %s, error: %s", path, err.Error()),
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewPredictionFailedError wraps an unexpected predictor failure.
func NewPredictionFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodePredictionFailed,
		Message:   "Prediction failed",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewDatasetLoadFailedError creates a retryable dataset read error.
func NewDatasetLoadFailedError(source string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDatasetLoadFailed,
		Message:   "Failed to load sample dataset",
		Details:   fmt.Sprintf("source: %s, error: %s", source, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewCacheUnavailableError creates a retryable cache error.
func NewCacheUnavailableError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeCacheUnavailable,
		Message:   "Prediction cache unavailable",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewInternalError wraps anything that is not already a StandardError.
func NewInternalError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeInternal,
		Message:   "Unexpected error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// BPMNErrorMapping maps internal error codes to BPMN error codes.
var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeSchemaMismatch:        "SCHEMA_MISMATCH",
	ErrCodeInvalidCategory:       "INVALID_CATEGORY",
	ErrCodeInputValidationFailed: "INPUT_VALIDATION_FAILED",
	ErrCodeModelLoadFailed:       "MODEL_LOAD_FAILED",
	ErrCodePredictionFailed:      "PREDICTION_FAILED",
	ErrCodeDatasetLoadFailed:     "DATASET_LOAD_FAILED",
	ErrCodeCacheUnavailable:      "CACHE_UNAVAILABLE",
}

// GetRetryCount returns the recommended retry count for an error code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeDatasetLoadFailed:
		return 3
	case ErrCodeCacheUnavailable:
		return 1
	default:
		return 0 // scoring errors are deterministic
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

// AsStandardError unwraps err into a StandardError, wrapping unknown errors as internal.
func AsStandardError(err error) *StandardError {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr
	}
	return NewInternalError(err)
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "SCHEMA") || strings.Contains(codeStr, "CATEGORY"):
		return "ENCODING"
	case strings.Contains(codeStr, "VALIDATION"):
		return "VALIDATION"
	case strings.Contains(codeStr, "MODEL") || strings.Contains(codeStr, "PREDICTION"):
		return "MODEL"
	case strings.Contains(codeStr, "DATASET"):
		return "DATASET"
	case strings.Contains(codeStr, "CACHE"):
		return "CACHE"
	default:
		return "OTHER"
	}
}

// HTTPStatus maps an error code onto the status the web surface returns.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeInvalidCategory, ErrCodeInputValidationFailed:
		return 422
	case ErrCodeDatasetLoadFailed, ErrCodeCacheUnavailable:
		return 503
	default:
		return 500
	}
}

package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"time"
)

/**
 * Error types for the pdfocr service
 *
 * Every failure of an extraction is reported as a ProcessingError so the
 * HTTP layer and the job worker can classify it without string matching.
 */

// ErrorCode enum for structured error handling
type ErrorCode string

const (
	// Input errors
	ErrorInvalidInput      ErrorCode = "INVALID_INPUT"
	ErrorUnsupportedFormat ErrorCode = "UNSUPPORTED_FORMAT"

	// Collaborator errors
	ErrorRasterizationFailed ErrorCode = "RASTERIZATION_FAILED"
	ErrorOCRFailed           ErrorCode = "OCR_FAILED"

	// Processing errors
	ErrorProcessingTimeout ErrorCode = "PROCESSING_TIMEOUT"
	ErrorInternal          ErrorCode = "INTERNAL"

	// Storage errors
	ErrorStorageFailed ErrorCode = "STORAGE_FAILED"
)

// ProcessingError represents a structured processing error
type ProcessingError struct {
	Code      ErrorCode
	Message   string
	JobID     string
	Timestamp time.Time
	Details   map[string]interface{}
	Cause     error
}

func (e *ProcessingError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ProcessingError) Unwrap() error {
	return e.Cause
}

// HTTPStatus maps the error code to the status returned when errors are not
// reported in-band.
func (e *ProcessingError) HTTPStatus() int {
	switch e.Code {
	case ErrorInvalidInput, ErrorUnsupportedFormat:
		return http.StatusBadRequest
	case ErrorRasterizationFailed:
		return http.StatusUnprocessableEntity
	case ErrorOCRFailed:
		return http.StatusBadGateway
	case ErrorProcessingTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// Description is the client-facing text of the error. Collaborator
// failures carry the renderer's or OCR engine's own reason.
func (e *ProcessingError) Description() string {
	switch e.Code {
	case ErrorRasterizationFailed, ErrorOCRFailed:
		if e.Cause != nil {
			return e.Message + ": " + e.Cause.Error()
		}
	}
	return e.Message
}

// WithJobID attaches a job id and returns the same error.
func (e *ProcessingError) WithJobID(jobID string) *ProcessingError {
	e.JobID = jobID
	return e
}

// Factory functions for common errors

func NewInvalidInputError(message string, cause error) *ProcessingError {
	return &ProcessingError{
		Code:      ErrorInvalidInput,
		Message:   message,
		Timestamp: time.Now(),
		Cause:     cause,
	}
}

func NewUnsupportedFormatError(mimeType string) *ProcessingError {
	return &ProcessingError{
		Code:      ErrorUnsupportedFormat,
		Message:   fmt.Sprintf("Unsupported file format: %s", mimeType),
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"mime_type": mimeType,
		},
	}
}

func NewRasterizationError(renderer string, cause error) *ProcessingError {
	return &ProcessingError{
		Code:      ErrorRasterizationFailed,
		Message:   fmt.Sprintf("PDF rasterization failed (renderer: %s)", renderer),
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"renderer": renderer,
		},
		Cause: cause,
	}
}

func NewOCRFailedError(page int, cause error) *ProcessingError {
	return &ProcessingError{
		Code:      ErrorOCRFailed,
		Message:   fmt.Sprintf("OCR failed on page %d", page),
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"page": page,
		},
		Cause: cause,
	}
}

func NewProcessingTimeoutError(jobID string, duration time.Duration, cause error) *ProcessingError {
	return &ProcessingError{
		Code:      ErrorProcessingTimeout,
		Message:   fmt.Sprintf("Processing timed out after %v", duration),
		JobID:     jobID,
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"timeout_duration": duration.String(),
		},
		Cause: cause,
	}
}

func NewInternalError(message string, cause error) *ProcessingError {
	return &ProcessingError{
		Code:      ErrorInternal,
		Message:   message,
		Timestamp: time.Now(),
		Cause:     cause,
	}
}

func NewStorageFailedError(jobID string, cause error) *ProcessingError {
	return &ProcessingError{
		Code:      ErrorStorageFailed,
		Message:   "Failed to store extraction results",
		JobID:     jobID,
		Timestamp: time.Now(),
		Cause:     cause,
	}
}

// As returns the ProcessingError in err's chain. Errors that are not
// classified are wrapped as INTERNAL.
func As(err error) *ProcessingError {
	if err == nil {
		return nil
	}
	var perr *ProcessingError
	if stderrors.As(err, &perr) {
		return perr
	}
	return NewInternalError("Unexpected processing failure", err)
}

// CodeOf returns the error code of err, or ErrorInternal when unclassified.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	return As(err).Code
}

// ToMap converts error to map for job status storage
func (e *ProcessingError) ToMap() map[string]interface{} {
	result := map[string]interface{}{
		"error_code": string(e.Code),
		"message":    e.Message,
		"timestamp":  e.Timestamp,
	}

	if e.JobID != "" {
		result["job_id"] = e.JobID
	}

	for k, v := range e.Details {
		result[k] = v
	}

	if e.Cause != nil {
		result["cause"] = e.Cause.Error()
	}

	return result
}

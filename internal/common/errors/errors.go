// Package errors provides the standardized error taxonomy shared by the store,
// the generation pipeline, the HTTP boundary and the content workers.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// Generation
	ErrCodeMalformedGeneration       ErrorCode = "MALFORMED_GENERATION"
	ErrCodeUpstreamGenerationFailure ErrorCode = "UPSTREAM_GENERATION_FAILURE"
	ErrCodeUnknownAction             ErrorCode = "UNKNOWN_ACTION"

	// Schema
	ErrCodeUnknownSectionType ErrorCode = "UNKNOWN_SECTION_TYPE"
	ErrCodeValidationFailed   ErrorCode = "VALIDATION_FAILED"

	// Page aggregate
	ErrCodeDuplicateSlug    ErrorCode = "DUPLICATE_SLUG"
	ErrCodeProtectedPage    ErrorCode = "PROTECTED_PAGE"
	ErrCodePageNotFound     ErrorCode = "PAGE_NOT_FOUND"
	ErrCodeSectionNotFound  ErrorCode = "SECTION_NOT_FOUND"
	ErrCodeInvalidReorder   ErrorCode = "INVALID_REORDER"
	ErrCodeEmptyRegenApply  ErrorCode = "EMPTY_REGEN_APPLY"
	ErrCodeInvalidRegenStep ErrorCode = "INVALID_REGEN_STATE"

	// Infrastructure
	ErrCodeDatabaseOperationFailed ErrorCode = "DATABASE_OPERATION_FAILED"
	ErrCodeCacheOperationFailed    ErrorCode = "CACHE_OPERATION_FAILED"
	ErrCodeSearchQueryFailed       ErrorCode = "SEARCH_QUERY_FAILED"
	ErrCodeEventPublishFailed      ErrorCode = "EVENT_PUBLISH_FAILED"
	ErrCodeInternal                ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	cause     error
}

func (e *StandardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("StandardError[%s]: %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause, if any.
func (e *StandardError) Unwrap() error {
	return e.cause
}

// Is matches any StandardError carrying the same code, so the sentinels
// below work with errors.Is.
func (e *StandardError) Is(target error) bool {
	t, ok := target.(*StandardError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Sentinels for errors.Is comparisons.
var (
	ErrMalformedGeneration       = &StandardError{Code: ErrCodeMalformedGeneration}
	ErrUpstreamGenerationFailure = &StandardError{Code: ErrCodeUpstreamGenerationFailure}
	ErrUnknownAction             = &StandardError{Code: ErrCodeUnknownAction}
	ErrUnknownSectionType        = &StandardError{Code: ErrCodeUnknownSectionType}
	ErrValidationFailed          = &StandardError{Code: ErrCodeValidationFailed}
	ErrDuplicateSlug             = &StandardError{Code: ErrCodeDuplicateSlug}
	ErrProtectedPage             = &StandardError{Code: ErrCodeProtectedPage}
	ErrPageNotFound              = &StandardError{Code: ErrCodePageNotFound}
	ErrSectionNotFound           = &StandardError{Code: ErrCodeSectionNotFound}
	ErrInvalidReorder            = &StandardError{Code: ErrCodeInvalidReorder}
	ErrEmptyRegenApply           = &StandardError{Code: ErrCodeEmptyRegenApply}
	ErrInvalidRegenState         = &StandardError{Code: ErrCodeInvalidRegenStep}
	ErrDatabaseOperationFailed   = &StandardError{Code: ErrCodeDatabaseOperationFailed}
)

// ==========================
// 2. Error Constructors
// ==========================

// NewMalformedGenerationError keeps the raw model output for manual recovery.
func NewMalformedGenerationError(raw string, cause error) *StandardError {
	details := "model output is not valid JSON"
	if cause != nil {
		details = cause.Error()
	}
	return &StandardError{
		Code:      ErrCodeMalformedGeneration,
		Message:   "Model output could not be parsed",
		Details:   details,
		Retryable: false,
		Metadata:  map[string]interface{}{"raw": raw},
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
}

// NewUpstreamGenerationFailure is retryable by the user; the core never retries.
func NewUpstreamGenerationFailure(provider string, cause error) *StandardError {
	return &StandardError{
		Code:      ErrCodeUpstreamGenerationFailure,
		Message:   fmt.Sprintf("Generation provider '%s' failed", provider),
		Details:   causeText(cause),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
}

func NewUnknownActionError(action string) *StandardError {
	return &StandardError{
		Code:      ErrCodeUnknownAction,
		Message:   fmt.Sprintf("Unknown action: %s", action),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewUnknownSectionTypeError(sectionType string) *StandardError {
	return &StandardError{
		Code:      ErrCodeUnknownSectionType,
		Message:   "Unknown section type",
		Details:   fmt.Sprintf("sectionType: %s", sectionType),
		Retryable: false,
		Metadata:  map[string]interface{}{"sectionType": sectionType},
		Timestamp: time.Now().UTC(),
	}
}

func NewValidationError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeValidationFailed,
		Message:   "Validation failed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewDuplicateSlugError(slug string) *StandardError {
	return &StandardError{
		Code:      ErrCodeDuplicateSlug,
		Message:   "A page with this slug already exists",
		Details:   fmt.Sprintf("slug: %s", slug),
		Retryable: false,
		Metadata:  map[string]interface{}{"slug": slug},
		Timestamp: time.Now().UTC(),
	}
}

func NewProtectedPageError(slug string) *StandardError {
	return &StandardError{
		Code:      ErrCodeProtectedPage,
		Message:   "Core pages cannot be deleted or renamed",
		Details:   fmt.Sprintf("slug: %s", slug),
		Retryable: false,
		Metadata:  map[string]interface{}{"slug": slug},
		Timestamp: time.Now().UTC(),
	}
}

func NewPageNotFoundError(ref string) *StandardError {
	return &StandardError{
		Code:      ErrCodePageNotFound,
		Message:   "Page not found",
		Details:   ref,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewSectionNotFoundError(id string) *StandardError {
	return &StandardError{
		Code:      ErrCodeSectionNotFound,
		Message:   "Section not found",
		Details:   fmt.Sprintf("sectionId: %s", id),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewInvalidReorderError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidReorder,
		Message:   "Ordered ids must cover exactly the page's sections",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewEmptyRegenApplyError(pageID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeEmptyRegenApply,
		Message:   "Refusing to replace sections with an empty preview",
		Details:   fmt.Sprintf("pageId: %s", pageID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewInvalidRegenStateError(from, op string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidRegenStep,
		Message:   fmt.Sprintf("Cannot %s while %s", op, from),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewDatabaseError(op string, cause error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDatabaseOperationFailed,
		Message:   "Database operation failed",
		Details:   fmt.Sprintf("op: %s, error: %s", op, causeText(cause)),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
}

func NewCacheError(op string, cause error) *StandardError {
	return &StandardError{
		Code:      ErrCodeCacheOperationFailed,
		Message:   "Cache operation failed",
		Details:   fmt.Sprintf("op: %s, error: %s", op, causeText(cause)),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
}

func NewSearchQueryFailedError(op string, cause error) *StandardError {
	return &StandardError{
		Code:      ErrCodeSearchQueryFailed,
		Message:   "Elasticsearch request failed",
		Details:   fmt.Sprintf("op: %s, error: %s", op, causeText(cause)),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
}

func NewEventPublishFailedError(event string, cause error) *StandardError {
	return &StandardError{
		Code:      ErrCodeEventPublishFailed,
		Message:   "Page event publish failed",
		Details:   fmt.Sprintf("event: %s, error: %s", event, causeText(cause)),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
}

func causeText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// ==========================
// 3. Classification
// ==========================

// AsStandardError normalizes any error into a StandardError.
func AsStandardError(err error) *StandardError {
	if err == nil {
		return nil
	}
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr
	}
	return &StandardError{
		Code:      ErrCodeInternal,
		Message:   "Unexpected error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// RawOutput returns the model text attached to a MalformedGenerationError.
func RawOutput(err error) (string, bool) {
	var stdErr *StandardError
	if !stderrors.As(err, &stdErr) || stdErr.Code != ErrCodeMalformedGeneration {
		return "", false
	}
	raw, ok := stdErr.Metadata["raw"].(string)
	return raw, ok
}

// HTTPStatus maps an error code to the status the HTTP boundary returns.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeDuplicateSlug:
		return http.StatusConflict
	case ErrCodeProtectedPage:
		return http.StatusForbidden
	case ErrCodePageNotFound, ErrCodeSectionNotFound:
		return http.StatusNotFound
	case ErrCodeUnknownAction, ErrCodeUnknownSectionType, ErrCodeValidationFailed,
		ErrCodeInvalidReorder, ErrCodeEmptyRegenApply, ErrCodeInvalidRegenStep:
		return http.StatusBadRequest
	case ErrCodeMalformedGeneration:
		return http.StatusBadGateway
	case ErrCodeUpstreamGenerationFailure:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// GetRetryCount returns how many times a workflow engine may retry a job
// failing with code. Generation failures are never retried automatically.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeDatabaseOperationFailed,
		ErrCodeCacheOperationFailed,
		ErrCodeSearchQueryFailed,
		ErrCodeEventPublishFailed:
		return 3
	default:
		return 0
	}
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "GENERATION") || strings.Contains(codeStr, "ACTION"):
		return "AI"
	case strings.Contains(codeStr, "SLUG") || strings.Contains(codeStr, "PAGE") ||
		strings.Contains(codeStr, "SECTION_NOT_FOUND") || strings.Contains(codeStr, "REORDER") ||
		strings.Contains(codeStr, "REGEN"):
		return "PAGE"
	case strings.Contains(codeStr, "SECTION_TYPE") || strings.Contains(codeStr, "VALIDATION"):
		return "VALIDATION"
	case strings.Contains(codeStr, "DATABASE") || strings.Contains(codeStr, "CACHE"):
		return "DATABASE"
	case strings.Contains(codeStr, "SEARCH"):
		return "SEARCH"
	case strings.Contains(codeStr, "EVENT"):
		return "EVENTS"
	default:
		return "OTHER"
	}
}

// ==========================
// 4. BPMN Error Integration
// ==========================

// BPMNError represents an error thrown to the Camunda workflow engine.
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

// ToErrorVariables returns a map suitable for Camunda job fail variables.
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

// ConvertToBPMNError converts a StandardError to a BPMNError. The raw model
// output of a malformed generation travels along as a process variable.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	vars := map[string]interface{}{
		"errorCategory": GetErrorCategory(stdErr.Code),
		"timestamp":     stdErr.Timestamp.Format(time.RFC3339),
	}
	if raw, ok := stdErr.Metadata["raw"]; ok {
		vars["rawOutput"] = raw
	}

	return &BPMNError{
		Code:           string(stdErr.Code),
		Message:        stdErr.Message,
		Details:        stdErr.Details,
		Retryable:      stdErr.Retryable,
		Retries:        retries,
		ErrorVariables: vars,
	}
}

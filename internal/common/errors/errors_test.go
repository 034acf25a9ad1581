package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Sentinel Matching
// ==========================

func TestStandardError_IsMatchesByCode(t *testing.T) {
	err := NewDuplicateSlugError("promo")
	wrapped := fmt.Errorf("create page: %w", err)

	assert.True(t, stderrors.Is(wrapped, ErrDuplicateSlug))
	assert.False(t, stderrors.Is(wrapped, ErrProtectedPage))
}

func TestStandardError_UnwrapsCause(t *testing.T) {
	cause := stderrors.New("connection reset")
	err := NewUpstreamGenerationFailure("anthropic", cause)

	assert.True(t, stderrors.Is(err, cause))
	assert.True(t, err.Retryable)
	assert.Contains(t, err.Error(), "UPSTREAM_GENERATION_FAILURE")
}

// ==========================
// Classification
// ==========================

func TestAsStandardError(t *testing.T) {
	assert.Nil(t, AsStandardError(nil))

	plain := AsStandardError(stderrors.New("boom"))
	assert.Equal(t, ErrCodeInternal, plain.Code)
	assert.Equal(t, "boom", plain.Details)

	std := NewPageNotFoundError("slug: missing")
	assert.Same(t, std, AsStandardError(fmt.Errorf("resolve: %w", std)))
}

func TestRawOutput(t *testing.T) {
	err := fmt.Errorf("parse: %w", NewMalformedGenerationError("not json", stderrors.New("invalid character")))
	raw, ok := RawOutput(err)
	require.True(t, ok)
	assert.Equal(t, "not json", raw)

	_, ok = RawOutput(NewValidationError("x"))
	assert.False(t, ok)
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want int
	}{
		{ErrCodeDuplicateSlug, http.StatusConflict},
		{ErrCodeProtectedPage, http.StatusForbidden},
		{ErrCodePageNotFound, http.StatusNotFound},
		{ErrCodeSectionNotFound, http.StatusNotFound},
		{ErrCodeUnknownSectionType, http.StatusBadRequest},
		{ErrCodeInvalidReorder, http.StatusBadRequest},
		{ErrCodeUnknownAction, http.StatusBadRequest},
		{ErrCodeMalformedGeneration, http.StatusBadGateway},
		{ErrCodeUpstreamGenerationFailure, http.StatusServiceUnavailable},
		{ErrCodeDatabaseOperationFailed, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.code))
		})
	}
}

func TestGetErrorCategory(t *testing.T) {
	assert.Equal(t, "AI", GetErrorCategory(ErrCodeMalformedGeneration))
	assert.Equal(t, "PAGE", GetErrorCategory(ErrCodeDuplicateSlug))
	assert.Equal(t, "PAGE", GetErrorCategory(ErrCodeEmptyRegenApply))
	assert.Equal(t, "VALIDATION", GetErrorCategory(ErrCodeUnknownSectionType))
	assert.Equal(t, "DATABASE", GetErrorCategory(ErrCodeDatabaseOperationFailed))
	assert.Equal(t, "SEARCH", GetErrorCategory(ErrCodeSearchQueryFailed))
	assert.Equal(t, "OTHER", GetErrorCategory(ErrCodeInternal))
}

// ==========================
// BPMN Conversion
// ==========================

func TestConvertToBPMNError(t *testing.T) {
	t.Run("generation failures are not retried", func(t *testing.T) {
		bpmn := ConvertToBPMNError(NewUpstreamGenerationFailure("gemini", stderrors.New("429")))
		assert.Equal(t, "UPSTREAM_GENERATION_FAILURE", bpmn.Code)
		assert.Equal(t, 0, bpmn.Retries)
		assert.True(t, bpmn.Retryable)
	})

	t.Run("database errors are retried", func(t *testing.T) {
		bpmn := ConvertToBPMNError(NewDatabaseError("replace sections", stderrors.New("conn closed")))
		assert.Equal(t, 3, bpmn.Retries)
	})

	t.Run("raw output travels as a variable", func(t *testing.T) {
		bpmn := ConvertToBPMNError(NewMalformedGenerationError("{oops", nil))
		vars := bpmn.ToErrorVariables()
		assert.Equal(t, "{oops", vars["rawOutput"])
		assert.Equal(t, "MALFORMED_GENERATION", vars["errorCode"])
		assert.Equal(t, "AI", vars["errorCategory"])
	})
}

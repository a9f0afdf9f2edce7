package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_DerivesCategoryAndSeverity(t *testing.T) {
	tests := []struct {
		code     string
		category Category
		severity Severity
	}{
		{ErrCodeConfigInvalid, CategoryConfig, SeverityFatal},
		{ErrCodeRunLocked, CategoryConfig, SeverityFatal},
		{ErrCodeFileNotFound, CategoryIO, SeverityWarning},
		{ErrCodeFileUnreadable, CategoryIO, SeverityWarning},
		{ErrCodeCacheCorrupt, CategoryIO, SeverityWarning},
		{ErrCodeParseFailed, CategoryParse, SeverityWarning},
		{ErrCodeWriteFailed, CategoryStorage, SeverityFatal},
		{ErrCodeInternal, CategoryInternal, SeverityError},
	}
	for _, tt := range tests {
		e := New(tt.code, "boom", nil)
		assert.Equal(t, tt.category, e.Category, tt.code)
		assert.Equal(t, tt.severity, e.Severity, tt.code)
	}
}

func TestError_FormatAndUnwrap(t *testing.T) {
	cause := fmt.Errorf("disk full")
	e := New(ErrCodeWriteFailed, "insert failed", cause)

	assert.Equal(t, "[ERR_404_WRITE_FAILED] insert failed", e.Error())
	assert.Equal(t, cause, stderrors.Unwrap(e))
	assert.True(t, stderrors.Is(e, cause))
	assert.True(t, e.IsFatal())
}

func TestError_IsMatchesByCode(t *testing.T) {
	e := New(ErrCodeCacheMiss, "not here", nil)
	assert.True(t, stderrors.Is(e, New(ErrCodeCacheMiss, "different message", nil)))
	assert.False(t, stderrors.Is(e, New(ErrCodeCacheCorrupt, "not here", nil)))
}

func TestError_Chaining(t *testing.T) {
	e := New(ErrCodeFileTooLarge, "file too large", nil).
		WithDetail("path", "big.go").
		WithDetail("size", "12582912").
		WithSuggestion("raise processing.max_file_size_mb")

	assert.Equal(t, "big.go", e.Details["path"])
	assert.Equal(t, "12582912", e.Details["size"])
	assert.Equal(t, "raise processing.max_file_size_mb", e.Suggestion)
}

func TestWrap(t *testing.T) {
	assert.Nil(t, Wrap(ErrCodeInternal, nil))

	cause := fmt.Errorf("underlying")
	e := Wrap(ErrCodeParseFailed, cause)
	require.NotNil(t, e)
	assert.Equal(t, "underlying", e.Message)
	assert.Equal(t, cause, e.Cause)
}

func TestConvenienceConstructors(t *testing.T) {
	assert.Equal(t, ErrCodeConfigInvalid, ConfigError("bad", nil).Code)
	assert.Equal(t, ErrCodeWriteFailed, StorageError("bad", nil).Code)
	assert.Equal(t, ErrCodeParseFailed, ParseError("bad", nil).Code)
}

// Package errors provides structured error handling for srcmetrics.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: IO errors (file, cache, disk)
//   - 3XX: Parse errors
//   - 4XX: Storage errors
//   - 5XX: Internal errors
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryIO indicates file, cache, and disk I/O errors.
	CategoryIO Category = "IO"
	// CategoryParse indicates source parsing errors.
	CategoryParse Category = "PARSE"
	// CategoryStorage indicates metric store errors.
	CategoryStorage Category = "STORAGE"
	// CategoryInternal indicates unexpected internal errors.
	CategoryInternal Category = "INTERNAL"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal indicates unrecoverable error, must abort.
	SeverityFatal Severity = "FATAL"
	// SeverityError indicates operation failed but can continue.
	SeverityError Severity = "ERROR"
	// SeverityWarning indicates degraded operation, continuing.
	SeverityWarning Severity = "WARNING"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigNotFound = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  = "ERR_102_CONFIG_INVALID"
	ErrCodeNoCache        = "ERR_103_CACHE_NOT_CONFIGURED"
	ErrCodeNotStudied     = "ERR_104_STUDY_REQUIRED"
	ErrCodeRunLocked      = "ERR_105_RUN_IN_PROGRESS"

	// IO errors (200-299)
	ErrCodeFileNotFound  = "ERR_201_FILE_NOT_FOUND"
	ErrCodeFileTooLarge  = "ERR_202_FILE_TOO_LARGE"
	ErrCodeCacheMiss     = "ERR_203_CACHE_MISS"
	ErrCodeCacheCorrupt  = "ERR_204_CACHE_CORRUPT"
	ErrCodeFileUnreadable = "ERR_205_FILE_UNREADABLE"

	// Parse errors (300-399)
	ErrCodeUnsupportedLanguage = "ERR_301_UNSUPPORTED_LANGUAGE"
	ErrCodeParseFailed         = "ERR_302_PARSE_FAILED"

	// Storage errors (400-499)
	ErrCodeStoreOpen     = "ERR_401_STORE_OPEN"
	ErrCodeTxBegin       = "ERR_402_TX_BEGIN"
	ErrCodeTxCommit      = "ERR_403_TX_COMMIT"
	ErrCodeWriteFailed   = "ERR_404_WRITE_FAILED"
	ErrCodeIndexRebuild  = "ERR_405_INDEX_REBUILD"
	ErrCodeStudyFailed   = "ERR_406_STUDY_FAILED"
	ErrCodeStoreCorrupt  = "ERR_407_STORE_CORRUPT"
	ErrCodeValueRejected = "ERR_408_VALUE_REJECTED"

	// Internal errors (500-599)
	ErrCodeInternal = "ERR_501_INTERNAL"
)

// categoryFromCode derives the error category from the numeric range.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}
	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryIO
	case '3':
		return CategoryParse
	case '4':
		return CategoryStorage
	default:
		return CategoryInternal
	}
}

// severityFromCode derives severity. Configuration and storage errors are
// fatal to the invocation; IO and parse errors are recoverable per document.
func severityFromCode(code string) Severity {
	switch categoryFromCode(code) {
	case CategoryConfig, CategoryStorage:
		return SeverityFatal
	case CategoryIO, CategoryParse:
		return SeverityWarning
	default:
		return SeverityError
	}
}

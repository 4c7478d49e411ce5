package models

import "errors"

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource already exists")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrBadRequest     = errors.New("bad request")
	ErrInternalServer = errors.New("internal server error")

	// Search failures
	ErrEmptyCriteria   = errors.New("search criteria contain no usable terms")
	ErrSearchTimeout   = errors.New("search timed out")
	ErrExecutionFailed = errors.New("search execution failed")

	// Quota failures
	ErrQuotaExceeded       = errors.New("daily search limit exceeded")
	ErrExportLimitExceeded = errors.New("daily export limit exceeded")
)

package apperrors

import "errors"

var (
	ErrNotFound                = errors.New("not found")
	ErrNoWarehouseConnection   = errors.New("no warehouse connection")
	ErrPrimaryMetadataFailed   = errors.New("all primary metadata queries failed")
	ErrVectorIndexUnavailable  = errors.New("vector retrieval unavailable")
	ErrUnsafeQuery             = errors.New("query rejected by read-only guard")
	ErrUnsupportedWarehouse    = errors.New("unsupported warehouse type")
	ErrGenerationNotConfigured = errors.New("generation client not configured")
)

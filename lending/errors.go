package lending

import (
	"errors"
)

var (
	// ErrNotFound is returned when a referenced book, user or ledger entry does not exist.
	ErrNotFound = errors.New("not found")

	// ErrForbidden is returned when the caller lacks the rights for an operation.
	ErrForbidden = errors.New("forbidden")

	// ErrConflict is returned when an operation lost a race, e.g. the book is already requested.
	ErrConflict = errors.New("conflict")

	// ErrInvalidState is returned when an operation is not valid in the current state of the book.
	ErrInvalidState = errors.New("invalid state")

	// ErrInvalidInput is returned when supplied data fails validation.
	ErrInvalidInput = errors.New("invalid input")

	// ErrConcurrencyConflict is returned by stores when an optimistic version check fails.
	// It is the only error the workflow engine retries.
	ErrConcurrencyConflict = errors.New("concurrency error, no rows were affected")

	// ErrStoreFailure wraps persistence-layer faults (store unreachable, broken query, ...).
	ErrStoreFailure = errors.New("store failure")
)

var (
	ErrNilDatabaseConnection = errors.New("database connection must not be nil")
	ErrUnsupportedDialect    = errors.New("unsupported sql dialect")
	ErrInvalidSearchField    = errors.New("field is not searchable")
	ErrBuildingQueryFailed   = errors.New("building query failed")
	ErrScanningDBRowFailed   = errors.New("scanning db row failed")
	ErrNilStore              = errors.New("store must not be nil")
)

package domain

import "errors"

var (
	// ErrSectionCycle rejects a move that would place a section under itself
	// or one of its descendants.
	ErrSectionCycle = errors.New("section cannot be moved under itself or its descendant")

	// ErrCrossEstimateMove rejects linking a section to a parent from another estimate.
	ErrCrossEstimateMove = errors.New("parent section belongs to a different estimate")

	ErrInvalidSortOrder = errors.New("sort order must not be negative")

	// ErrImportCancelled is returned by an import run whose session was marked failed.
	ErrImportCancelled = errors.New("import cancelled")

	ErrUnsupportedFormat = errors.New("unsupported estimate file format")
)

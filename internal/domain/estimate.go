package domain

import "time"

type Estimate struct {
	ID             string
	OrganizationID string
	Name           string

	// Current snapshot pointer. Empty until the first snapshot is written.
	SnapshotPath    string
	SnapshotVersion int
	SnapshotAt      *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasSnapshot reports whether a snapshot has ever been published for the estimate.
func (e *Estimate) HasSnapshot() bool {
	return e.SnapshotPath != ""
}

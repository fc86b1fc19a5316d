package domain

import "time"

type ImportSession struct {
	ID               string
	EstimateID       string
	FileName         string
	Status           ImportStatus
	TotalRows        int
	ClassifiedRows   int
	UnclassifiedRows int
	Error            string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Fail moves the session to failed with the given reason.
func (s *ImportSession) Fail(reason string, now time.Time) {
	s.Status = ImportFailed
	s.Error = reason
	s.UpdatedAt = now
}

// Complete records the classification tally and closes the session.
func (s *ImportSession) Complete(classified, unclassified int, now time.Time) {
	s.Status = ImportCompleted
	s.ClassifiedRows = classified
	s.UnclassifiedRows = unclassified
	s.UpdatedAt = now
}

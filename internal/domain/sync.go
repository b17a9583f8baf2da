package domain

import "time"

// SyncResult summarizes one sync run for a source. It is returned to the
// caller and never persisted. MessagesProcessed always equals
// ContentCreated + ContentSkipped.
type SyncResult struct {
	SourceID          string
	SourceName        string
	MessagesProcessed int
	ContentCreated    int
	ContentSkipped    int
	Errors            []string
	StartedAt         time.Time
	FinishedAt        time.Time
	Duration          time.Duration
}

package models

import "time"

// Status is the per-game processing outcome recorded in the manifest.
type Status string

const (
	StatusDone       Status = "DONE"
	StatusSkipMedium Status = "SKIP_MEDIUM"
	StatusError      Status = "ERROR"
)

// ManifestEntry records one processing attempt for a game. A game may
// accumulate multiple entries across retried runs.
type ManifestEntry struct {
	GameID      string
	Status      Status
	Reason      string
	ProcessedAt time.Time
}

// Processed reports whether this entry settles the game, i.e. it should not
// be retried even under retry-errors mode.
func (e ManifestEntry) Processed() bool {
	return e.Status == StatusDone || e.Status == StatusSkipMedium
}

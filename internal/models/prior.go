package models

import "time"

// Baseline is a team's possession-weighted pace/efficiency under close-game
// conditions.
type Baseline struct {
	Pace  float64 `json:"pace"`
	Ortg  float64 `json:"ortg"`
	NPoss int     `json:"nPoss"`
}

// StateDelta expresses a blowout bucket (leading or trailing) as a ratio to
// the team's baseline, with the bucket's possession count as a confidence
// signal.
type StateDelta struct {
	PaceDelta float64 `json:"paceDelta"`
	PppDelta  float64 `json:"pppDelta"`
	NPoss     int     `json:"nPoss"`
}

// PriorEntry is one team's finalized prior. Leading/Trailing are nil when the
// bucket did not meet its sample threshold.
type PriorEntry struct {
	Team     string      `json:"team"`
	Baseline Baseline    `json:"baseline"`
	Leading  *StateDelta `json:"leading,omitempty"`
	Trailing *StateDelta `json:"trailing,omitempty"`
}

// PriorsArtifact is the output of an aggregation run, recomputed wholesale
// from the raw store every time.
type PriorsArtifact struct {
	League      string       `json:"league"`
	Season      string       `json:"season"`
	GeneratedAt time.Time    `json:"generated_at"`
	Priors      []PriorEntry `json:"priors"`
}

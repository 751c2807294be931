package models

// GameState buckets a game's final period by the absolute score margin entering Q4.
type GameState string

const (
	GameStateBlowout GameState = "blowout"
	GameStateClose   GameState = "close"
)

// TeamState is a team's position within a blowout ("leading"/"trailing")
// or "neutral" inside a close game.
type TeamState string

const (
	TeamStateLeading  TeamState = "leading"
	TeamStateTrailing TeamState = "trailing"
	TeamStateNeutral  TeamState = "neutral"
)

// TeamPeriodRow is the unit of raw persisted data: one team's final-period
// efficiency sample for one game, tagged with its classified state.
// Rows are append-only and never mutated once written.
type TeamPeriodRow struct {
	GameID    string
	Team      string
	GameState GameState
	TeamState TeamState
	Pace      float64
	Ortg      float64
	Poss      float64
	FTARate   float64
}

// RowKey is the composite uniqueness key of the raw store.
type RowKey struct {
	GameID    string
	Team      string
	GameState GameState
	TeamState TeamState
}

// Key returns the row's dedup key.
func (r TeamPeriodRow) Key() RowKey {
	return RowKey{GameID: r.GameID, Team: r.Team, GameState: r.GameState, TeamState: r.TeamState}
}

package segment

import "nba_priors/mining/internal/models"

// Classify buckets a team's final-period state from its signed point
// differential entering Q4. Margins strictly between the close and blowout
// thresholds contribute no row (ok=false).
func Classify(margin, blowoutMargin, closeMargin int) (models.GameState, models.TeamState, bool) {
	abs := margin
	if abs < 0 {
		abs = -abs
	}

	switch {
	case abs >= blowoutMargin:
		if margin > 0 {
			return models.GameStateBlowout, models.TeamStateLeading, true
		}
		return models.GameStateBlowout, models.TeamStateTrailing, true
	case abs <= closeMargin:
		return models.GameStateClose, models.TeamStateNeutral, true
	default:
		return "", "", false
	}
}

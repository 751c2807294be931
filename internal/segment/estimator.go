package segment

import (
	"math"

	"nba_priors/mining/internal/discovery"
	"nba_priors/mining/internal/models"
)

// FallbackEstimator derives a final-period efficiency proxy from a team's
// season-log game totals when the detailed period-scoped box score is
// unavailable. The possession count is scaled by one quarter to approximate
// a single-period sample; this is the approximation the pipeline was mined
// with, so swapping it out changes comparability of the raw store.
type FallbackEstimator struct {
	BlowoutMargin int
	CloseMargin   int
}

// Rows builds zero, one, or two classified rows from the game's team log
// lines. Teams with a non-positive estimated possession count are dropped.
func (e FallbackEstimator) Rows(gameID string, margins *Margins, lines []discovery.TeamGameLine) []models.TeamPeriodRow {
	var rows []models.TeamPeriodRow
	for _, line := range lines {
		margin, ok := margins.ByTeam[line.TeamID]
		if !ok {
			continue
		}
		gameState, teamState, ok := Classify(margin, e.BlowoutMargin, e.CloseMargin)
		if !ok {
			continue
		}

		// MIN in the game log is the team total (~240); one team-minute
		// bucket is a fifth of that.
		minPlayed := line.Min / 5.0

		poss := Possessions(line.Fga, line.Fta, line.Oreb, line.Tov)
		if poss <= 0 {
			continue
		}

		pace := 100.0
		if minPlayed > 0 {
			pace = (poss / minPlayed) * 48
		}
		ortg := (line.Pts / poss) * 100

		ftaRate := 0.0
		if line.Fga > 0 {
			ftaRate = line.Fta / line.Fga
		}

		rows = append(rows, models.TeamPeriodRow{
			GameID:    gameID,
			Team:      line.TeamAbbr,
			GameState: gameState,
			TeamState: teamState,
			Pace:      round2(pace),
			Ortg:      round2(ortg),
			Poss:      round2(poss / 4),
			FTARate:   round4(ftaRate),
		})
	}
	return rows
}

// Possessions is the standard estimator: FGA + 0.44*FTA - OREB + TOV.
func Possessions(fga, fta, oreb, tov float64) float64 {
	return fga + 0.44*fta - oreb + tov
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
func round4(v float64) float64 { return math.Round(v*10000) / 10000 }

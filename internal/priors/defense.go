package priors

import (
	"sort"

	"nba_priors/mining/internal/models"
)

// TeamDefense is a team's average final-period defensive rating: the mean
// offensive rating its opponents posted across shared games in the raw store.
type TeamDefense struct {
	Team  string
	Drtg  float64
	Games int
}

// DefensiveRatings derives per-team defensive ratings from the raw rows,
// ordered by team name.
func DefensiveRatings(rows []models.TeamPeriodRow) []TeamDefense {
	byGame := make(map[string][]models.TeamPeriodRow)
	teams := make(map[string]struct{})
	for _, r := range rows {
		byGame[r.GameID] = append(byGame[r.GameID], r)
		teams[r.Team] = struct{}{}
	}

	var out []TeamDefense
	for team := range teams {
		var sum float64
		var n int
		for _, gameRows := range byGame {
			var mine, opp *models.TeamPeriodRow
			for i := range gameRows {
				if gameRows[i].Team == team {
					mine = &gameRows[i]
				} else {
					opp = &gameRows[i]
				}
			}
			if mine == nil || opp == nil {
				continue
			}
			sum += opp.Ortg
			n++
		}
		if n == 0 {
			continue
		}
		out = append(out, TeamDefense{Team: team, Drtg: sum / float64(n), Games: n})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Team < out[j].Team })
	return out
}

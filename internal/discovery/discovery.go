// Package discovery resolves a season into its completed regular-season
// games, keeping the per-team game log lines the fallback estimator feeds on.
package discovery

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"nba_priors/mining/internal/client"
)

const (
	// LeagueID identifies the NBA in the stats API.
	LeagueID = "00"
	// SeasonType restricts discovery to the regular-season competition.
	SeasonType = "Regular Season"

	// Regular-season game ids carry this prefix; preseason, playoffs and
	// in-season tournament games use other prefixes.
	regularSeasonPrefix = "002"
)

// TeamGameLine is one team's season-log row for one game: the final totals
// the fallback efficiency proxy is derived from.
type TeamGameLine struct {
	GameID   string
	TeamID   int
	TeamAbbr string
	Min      float64
	Pts      float64
	Fga      float64
	Fta      float64
	Oreb     float64
	Tov      float64
}

// SeasonGames is the discovery result: completed regular-season game ids in
// upstream order, plus the team log lines grouped by game.
type SeasonGames struct {
	Season  string
	GameIDs []string
	Lines   map[string][]TeamGameLine
}

// DiscoveryError is fatal for the run; a partial game list is meaningless.
type DiscoveryError struct {
	Reason string
	Err    error
}

func (e *DiscoveryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("discovery failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("discovery failed: %s", e.Reason)
}

func (e *DiscoveryError) Unwrap() error { return e.Err }

// Discover fetches the season's game log and filters it to completed
// regular-season games.
func Discover(ctx context.Context, c *client.Client, season string) (*SeasonGames, error) {
	log.Info().Str("season", season).Msg("Fetching game data")

	tables, err := c.LeagueGameFinder(ctx, season, LeagueID, SeasonType)
	if err != nil {
		return nil, &DiscoveryError{Reason: "game finder fetch", Err: err}
	}

	finder := findGameLogTable(tables)
	if finder == nil {
		return nil, &DiscoveryError{Reason: "no game log table in response"}
	}

	sg := &SeasonGames{Season: season, Lines: make(map[string][]TeamGameLine)}
	for i := range finder.Rows {
		gid := finder.Str(i, "GAME_ID")
		if !strings.HasPrefix(gid, regularSeasonPrefix) {
			continue
		}
		// WL is null until the game has a recorded outcome.
		if finder.Str(i, "WL") == "" {
			continue
		}
		tid, ok := finder.Int(i, "TEAM_ID")
		if !ok {
			continue
		}

		line := TeamGameLine{
			GameID:   gid,
			TeamID:   tid,
			TeamAbbr: strings.TrimSpace(finder.Str(i, "TEAM_ABBREVIATION")),
			Min:      floatOr(finder, i, "MIN", 240),
			Pts:      floatOr(finder, i, "PTS", 0),
			Fga:      floatOr(finder, i, "FGA", 0),
			Fta:      floatOr(finder, i, "FTA", 0),
			Oreb:     floatOr(finder, i, "OREB", 0),
			Tov:      floatOr(finder, i, "TOV", 0),
		}

		if _, seen := sg.Lines[gid]; !seen {
			sg.GameIDs = append(sg.GameIDs, gid)
		}
		sg.Lines[gid] = append(sg.Lines[gid], line)
	}

	if len(sg.GameIDs) == 0 {
		return nil, &DiscoveryError{Reason: "no completed regular-season games"}
	}

	log.Info().
		Str("season", season).
		Int("games", len(sg.GameIDs)).
		Msg("Completed games discovered")

	return sg, nil
}

func findGameLogTable(tables []client.ResultTable) *client.ResultTable {
	for i := range tables {
		t := &tables[i]
		if t.HasColumns("GAME_ID", "TEAM_ID", "TEAM_ABBREVIATION", "WL") && len(t.Rows) > 0 {
			return t
		}
	}
	return nil
}

func floatOr(t *client.ResultTable, row int, col string, def float64) float64 {
	if v, ok := t.Float(row, col); ok {
		return v
	}
	return def
}

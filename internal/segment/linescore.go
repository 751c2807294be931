package segment

import (
	"fmt"

	"nba_priors/mining/internal/client"
)

// NoLineScoreError means the game's summary carried no usable
// quarter-by-quarter score line. Recorded in the manifest; never fatal.
type NoLineScoreError struct {
	GameID string
}

func (e *NoLineScoreError) Error() string {
	return fmt.Sprintf("no line score for game %s", e.GameID)
}

// Margins holds each team's signed point differential entering Q4.
type Margins struct {
	ByTeam map[int]int    `json:"by_team"`
	Abbr   map[int]string `json:"abbr"`
}

// The summary response interleaves several tables whose order has shifted
// between API builds. Candidate matchers are tried in priority order; the
// first table carrying the required columns with enough rows wins.
type tableMatcher struct {
	columns []string
	minRows int
}

var lineScoreMatchers = []tableMatcher{
	{columns: []string{"TEAM_ID", "TEAM_ABBREVIATION", "PTS_QTR1", "PTS_QTR2", "PTS_QTR3"}, minRows: 2},
	{columns: []string{"TEAM_ID", "PTS_QTR1", "PTS_QTR2", "PTS_QTR3"}, minRows: 2},
}

func extractLineScore(tables []client.ResultTable) *client.ResultTable {
	for _, m := range lineScoreMatchers {
		for i := range tables {
			t := &tables[i]
			if t.HasColumns(m.columns...) && len(t.Rows) >= m.minRows {
				return t
			}
		}
	}
	return nil
}

// computeMargins derives both teams' Q4-entry differentials from the first
// two line-score rows. Missing quarter cells count as zero.
func computeMargins(gameID string, line *client.ResultTable) (*Margins, error) {
	if line == nil || len(line.Rows) < 2 {
		return nil, &NoLineScoreError{GameID: gameID}
	}

	type teamLine struct {
		id   int
		abbr string
		pts  int
	}

	read := func(row int) (teamLine, bool) {
		id, ok := line.Int(row, "TEAM_ID")
		if !ok {
			return teamLine{}, false
		}
		pts := 0
		for _, col := range []string{"PTS_QTR1", "PTS_QTR2", "PTS_QTR3"} {
			if v, ok := line.Float(row, col); ok {
				pts += int(v)
			}
		}
		return teamLine{id: id, abbr: line.Str(row, "TEAM_ABBREVIATION"), pts: pts}, true
	}

	t1, ok1 := read(0)
	t2, ok2 := read(1)
	if !ok1 || !ok2 {
		return nil, &NoLineScoreError{GameID: gameID}
	}

	m := &Margins{
		ByTeam: map[int]int{t1.id: t1.pts - t2.pts, t2.id: t2.pts - t1.pts},
		Abbr:   map[int]string{},
	}
	if t1.abbr != "" {
		m.Abbr[t1.id] = t1.abbr
	}
	if t2.abbr != "" {
		m.Abbr[t2.id] = t2.abbr
	}
	return m, nil
}

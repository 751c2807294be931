// Package priors aggregates the raw store into possession-weighted per-team
// priors: a close-game baseline plus leading/trailing blowout deltas
// expressed as ratios to that baseline.
package priors

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"
	"time"

	"nba_priors/mining/internal/models"
)

// Params are the sample-size and foul-filter settings for one aggregation
// run.
type Params struct {
	BaselineMinPoss  float64
	TreatmentMinPoss float64
	CloseFTARateMax  float64
	FoulFilter       bool
}

// Generate recomputes the priors artifact wholesale from the raw rows. The
// raw store is treated as read-only.
func Generate(rows []models.TeamPeriodRow, season string, p Params) *models.PriorsArtifact {
	artifact := &models.PriorsArtifact{
		League:      "NBA",
		Season:      season,
		GeneratedAt: time.Now().UTC(),
		Priors:      []models.PriorEntry{},
	}

	byTeam := make(map[string][]models.TeamPeriodRow)
	for _, r := range rows {
		byTeam[r.Team] = append(byTeam[r.Team], r)
	}

	teams := make([]string, 0, len(byTeam))
	for t := range byTeam {
		teams = append(teams, t)
	}
	sort.Strings(teams)

	for _, team := range teams {
		entry, ok := teamEntry(team, byTeam[team], p)
		if ok {
			artifact.Priors = append(artifact.Priors, entry)
		}
	}
	return artifact
}

func teamEntry(team string, rows []models.TeamPeriodRow, p Params) (models.PriorEntry, bool) {
	var closeRows, blowoutRows []models.TeamPeriodRow
	for _, r := range rows {
		switch r.GameState {
		case models.GameStateClose:
			// Foul-fests inflate pace and FT efficiency; drop them from
			// the baseline when the filter is on.
			if p.FoulFilter && r.FTARate > p.CloseFTARateMax {
				continue
			}
			closeRows = append(closeRows, r)
		case models.GameStateBlowout:
			blowoutRows = append(blowoutRows, r)
		}
	}

	closePoss := totalPoss(closeRows)
	if closePoss < p.BaselineMinPoss {
		return models.PriorEntry{}, false
	}

	basePace := weightedMean(closeRows, func(r models.TeamPeriodRow) float64 { return r.Pace })
	baseOrtg := weightedMean(closeRows, func(r models.TeamPeriodRow) float64 { return r.Ortg })

	entry := models.PriorEntry{
		Team: team,
		Baseline: models.Baseline{
			Pace:  round2(basePace),
			Ortg:  round2(baseOrtg),
			NPoss: int(closePoss),
		},
	}

	for _, state := range []models.TeamState{models.TeamStateLeading, models.TeamStateTrailing} {
		var bucket []models.TeamPeriodRow
		for _, r := range blowoutRows {
			if r.TeamState == state {
				bucket = append(bucket, r)
			}
		}
		poss := totalPoss(bucket)
		if poss < p.TreatmentMinPoss {
			continue
		}

		delta := &models.StateDelta{
			PaceDelta: round4(weightedMean(bucket, func(r models.TeamPeriodRow) float64 { return r.Pace }) / basePace),
			PppDelta:  round4(weightedMean(bucket, func(r models.TeamPeriodRow) float64 { return r.Ortg }) / baseOrtg),
			NPoss:     int(poss),
		}
		if state == models.TeamStateLeading {
			entry.Leading = delta
		} else {
			entry.Trailing = delta
		}
	}

	// A baseline alone is not a prior; at least one blowout-state delta
	// must have met its sample threshold.
	if entry.Leading == nil && entry.Trailing == nil {
		return models.PriorEntry{}, false
	}
	return entry, true
}

// WriteArtifact writes the artifact as indented JSON.
func WriteArtifact(path string, a *models.PriorsArtifact) error {
	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal priors artifact: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write priors artifact: %w", err)
	}
	return nil
}

// ReadArtifact loads a previously generated artifact.
func ReadArtifact(path string) (*models.PriorsArtifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read priors artifact: %w", err)
	}
	var a models.PriorsArtifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("decode priors artifact: %w", err)
	}
	return &a, nil
}

func totalPoss(rows []models.TeamPeriodRow) float64 {
	sum := 0.0
	for _, r := range rows {
		sum += r.Poss
	}
	return sum
}

func weightedMean(rows []models.TeamPeriodRow, val func(models.TeamPeriodRow) float64) float64 {
	var num, den float64
	for _, r := range rows {
		num += val(r) * r.Poss
		den += r.Poss
	}
	if den == 0 {
		return 0
	}
	return num / den
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
func round4(v float64) float64 { return math.Round(v*10000) / 10000 }

package priors

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nba_priors/mining/internal/models"
)

func defaultParams() Params {
	return Params{
		BaselineMinPoss:  100,
		TreatmentMinPoss: 20,
		CloseFTARateMax:  0.35,
		FoulFilter:       true,
	}
}

func closeRow(gameID string, pace, ortg, poss, ftaRate float64) models.TeamPeriodRow {
	return models.TeamPeriodRow{
		GameID:    gameID,
		Team:      "BOS",
		GameState: models.GameStateClose,
		TeamState: models.TeamStateNeutral,
		Pace:      pace,
		Ortg:      ortg,
		Poss:      poss,
		FTARate:   ftaRate,
	}
}

func leadingRow(gameID string, pace, ortg, poss float64) models.TeamPeriodRow {
	return models.TeamPeriodRow{
		GameID:    gameID,
		Team:      "BOS",
		GameState: models.GameStateBlowout,
		TeamState: models.TeamStateLeading,
		Pace:      pace,
		Ortg:      ortg,
		Poss:      poss,
		FTARate:   0.2,
	}
}

func TestGenerate_EqualWeightsAverage(t *testing.T) {
	rows := []models.TeamPeriodRow{
		closeRow("g1", 100, 110, 50, 0.2),
		closeRow("g2", 90, 110, 50, 0.2),
		leadingRow("g3", 95, 99, 25),
	}

	artifact := Generate(rows, "2025-26", defaultParams())
	require.Len(t, artifact.Priors, 1)

	entry := artifact.Priors[0]
	assert.Equal(t, "BOS", entry.Team)
	assert.Equal(t, 95.0, entry.Baseline.Pace, "Equal possessions weigh equally")
	assert.Equal(t, 110.0, entry.Baseline.Ortg)
	assert.Equal(t, 100, entry.Baseline.NPoss)
	assert.Equal(t, "NBA", artifact.League)
	assert.Equal(t, "2025-26", artifact.Season)

	require.NotNil(t, entry.Leading)
	assert.Equal(t, 1.0, entry.Leading.PaceDelta, "95 against a baseline of 95")
	assert.Equal(t, 0.9, entry.Leading.PppDelta)
	assert.Equal(t, 25, entry.Leading.NPoss)
	assert.Nil(t, entry.Trailing)
}

func TestGenerate_PossessionWeightedMean(t *testing.T) {
	rows := []models.TeamPeriodRow{
		closeRow("g1", 100, 100, 90, 0.2),
		closeRow("g2", 90, 120, 30, 0.2),
		leadingRow("g3", 95, 110, 25),
	}

	artifact := Generate(rows, "2025-26", defaultParams())
	require.Len(t, artifact.Priors, 1)

	// (100*90 + 90*30) / 120 = 97.5; (100*90 + 120*30) / 120 = 105
	assert.Equal(t, 97.5, artifact.Priors[0].Baseline.Pace)
	assert.Equal(t, 105.0, artifact.Priors[0].Baseline.Ortg)
}

func TestGenerate_BaselineBelowThresholdExcluded(t *testing.T) {
	rows := []models.TeamPeriodRow{
		closeRow("g1", 100, 110, 60, 0.2),
		leadingRow("g2", 95, 99, 25),
	}

	artifact := Generate(rows, "2025-26", defaultParams())
	assert.Empty(t, artifact.Priors, "60 close possessions is under the 100 floor")
}

func TestGenerate_TreatmentBelowThresholdDropsDelta(t *testing.T) {
	rows := []models.TeamPeriodRow{
		closeRow("g1", 100, 110, 60, 0.2),
		closeRow("g2", 100, 110, 60, 0.2),
		leadingRow("g3", 95, 99, 25),
		{
			GameID:    "g4",
			Team:      "BOS",
			GameState: models.GameStateBlowout,
			TeamState: models.TeamStateTrailing,
			Pace:      105,
			Ortg:      90,
			Poss:      15,
			FTARate:   0.2,
		},
	}

	artifact := Generate(rows, "2025-26", defaultParams())
	require.Len(t, artifact.Priors, 1)

	entry := artifact.Priors[0]
	require.NotNil(t, entry.Leading)
	assert.Nil(t, entry.Trailing, "15 trailing possessions is under the 20 floor")
}

func TestGenerate_NoDeltaNoEntry(t *testing.T) {
	rows := []models.TeamPeriodRow{
		closeRow("g1", 100, 110, 60, 0.2),
		closeRow("g2", 100, 110, 60, 0.2),
		leadingRow("g3", 95, 99, 10),
	}

	artifact := Generate(rows, "2025-26", defaultParams())
	assert.Empty(t, artifact.Priors, "A baseline with no qualifying delta is not a prior")
}

func TestGenerate_FoulFilter(t *testing.T) {
	rows := []models.TeamPeriodRow{
		closeRow("g1", 100, 110, 100, 0.2),
		closeRow("g2", 120, 140, 100, 0.5),
		leadingRow("g3", 100, 110, 25),
	}

	filtered := Generate(rows, "2025-26", defaultParams())
	require.Len(t, filtered.Priors, 1)
	assert.Equal(t, 100.0, filtered.Priors[0].Baseline.Pace, "Foul-fest row excluded from the baseline")
	assert.Equal(t, 100, filtered.Priors[0].Baseline.NPoss)

	off := defaultParams()
	off.FoulFilter = false
	unfiltered := Generate(rows, "2025-26", off)
	require.Len(t, unfiltered.Priors, 1)
	assert.Equal(t, 110.0, unfiltered.Priors[0].Baseline.Pace)
	assert.Equal(t, 200, unfiltered.Priors[0].Baseline.NPoss)
}

func TestGenerate_TeamsSorted(t *testing.T) {
	mk := func(team string) []models.TeamPeriodRow {
		return []models.TeamPeriodRow{
			{GameID: "c-" + team, Team: team, GameState: models.GameStateClose, TeamState: models.TeamStateNeutral, Pace: 100, Ortg: 110, Poss: 120, FTARate: 0.2},
			{GameID: "b-" + team, Team: team, GameState: models.GameStateBlowout, TeamState: models.TeamStateLeading, Pace: 95, Ortg: 100, Poss: 25, FTARate: 0.2},
		}
	}

	var rows []models.TeamPeriodRow
	for _, team := range []string{"WAS", "BOS", "MIA"} {
		rows = append(rows, mk(team)...)
	}

	artifact := Generate(rows, "2025-26", defaultParams())
	require.Len(t, artifact.Priors, 3)
	assert.Equal(t, "BOS", artifact.Priors[0].Team)
	assert.Equal(t, "MIA", artifact.Priors[1].Team)
	assert.Equal(t, "WAS", artifact.Priors[2].Team)
}

func TestArtifactRoundTrip(t *testing.T) {
	rows := []models.TeamPeriodRow{
		closeRow("g1", 100, 110, 120, 0.2),
		leadingRow("g2", 95, 99, 25),
	}
	artifact := Generate(rows, "2025-26", defaultParams())
	require.Len(t, artifact.Priors, 1)

	path := filepath.Join(t.TempDir(), "blowout_priors_2025-26.json")
	require.NoError(t, WriteArtifact(path, artifact))

	loaded, err := ReadArtifact(path)
	require.NoError(t, err)
	assert.Equal(t, artifact.League, loaded.League)
	assert.Equal(t, artifact.Season, loaded.Season)
	require.Len(t, loaded.Priors, 1)
	assert.Equal(t, artifact.Priors[0], loaded.Priors[0])
}

func TestDefensiveRatings(t *testing.T) {
	rows := []models.TeamPeriodRow{
		{GameID: "g1", Team: "BOS", GameState: models.GameStateBlowout, TeamState: models.TeamStateLeading, Ortg: 120, Poss: 24},
		{GameID: "g1", Team: "WAS", GameState: models.GameStateBlowout, TeamState: models.TeamStateTrailing, Ortg: 90, Poss: 24},
		{GameID: "g2", Team: "BOS", GameState: models.GameStateClose, TeamState: models.TeamStateNeutral, Ortg: 110, Poss: 25},
		{GameID: "g2", Team: "MIA", GameState: models.GameStateClose, TeamState: models.TeamStateNeutral, Ortg: 100, Poss: 25},
	}

	ratings := DefensiveRatings(rows)
	require.Len(t, ratings, 3)

	assert.Equal(t, "BOS", ratings[0].Team)
	assert.Equal(t, 95.0, ratings[0].Drtg, "Mean of opponent ratings 90 and 100")
	assert.Equal(t, 2, ratings[0].Games)

	assert.Equal(t, "MIA", ratings[1].Team)
	assert.Equal(t, 110.0, ratings[1].Drtg)
	assert.Equal(t, 1, ratings[1].Games)

	assert.Equal(t, "WAS", ratings[2].Team)
	assert.Equal(t, 120.0, ratings[2].Drtg)
}

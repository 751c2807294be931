// Package segment classifies each game's final period and produces its raw
// efficiency rows, preferring period-scoped advanced box scores and falling
// back to a season-log proxy when the detailed source is blocked.
package segment

import (
	"context"

	"github.com/rs/zerolog/log"

	"nba_priors/mining/internal/client"
	"nba_priors/mining/internal/discovery"
	"nba_priors/mining/internal/metrics"
	"nba_priors/mining/internal/models"
)

// LineScoreCache lets retry runs skip refetching summaries for games whose
// margins are already known. A nil cache disables caching.
type LineScoreCache interface {
	GetMargins(ctx context.Context, gameID string) (*Margins, bool)
	SetMargins(ctx context.Context, gameID string, m *Margins)
}

// Options configures classification thresholds and the metric source.
type Options struct {
	BlowoutMargin int
	CloseMargin   int
	UseAdvanced   bool
}

// Fetcher turns one game id into classified team-period rows.
type Fetcher struct {
	client *client.Client
	cache  LineScoreCache
	opts   Options
	est    FallbackEstimator
}

// NewFetcher creates a fetcher. cache may be nil.
func NewFetcher(c *client.Client, cache LineScoreCache, opts Options) *Fetcher {
	return &Fetcher{
		client: c,
		cache:  cache,
		opts:   opts,
		est:    FallbackEstimator{BlowoutMargin: opts.BlowoutMargin, CloseMargin: opts.CloseMargin},
	}
}

// Margins fetches the game's line score and computes both teams' Q4-entry
// differentials.
func (f *Fetcher) Margins(ctx context.Context, gameID string) (*Margins, error) {
	if f.cache != nil {
		if m, ok := f.cache.GetMargins(ctx, gameID); ok {
			metrics.CacheHitsTotal.Inc()
			return m, nil
		}
		metrics.CacheMissesTotal.Inc()
	}

	tables, err := f.client.BoxScoreSummary(ctx, gameID)
	if err != nil {
		return nil, err
	}

	m, err := computeMargins(gameID, extractLineScore(tables))
	if err != nil {
		return nil, err
	}

	if f.cache != nil {
		f.cache.SetMargins(ctx, gameID, m)
	}
	return m, nil
}

// Rows produces the game's classified rows plus the manifest status/reason
// summarizing the outcome.
func (f *Fetcher) Rows(ctx context.Context, gameID string, margins *Margins, lines []discovery.TeamGameLine) ([]models.TeamPeriodRow, models.Status, string) {
	// Margins are symmetric, so either both teams classify or neither does.
	if !anyClassifiable(margins, f.opts.BlowoutMargin, f.opts.CloseMargin) {
		return nil, models.StatusSkipMedium, "medium_margin"
	}

	if f.opts.UseAdvanced {
		rows, err := f.advancedRows(ctx, gameID, margins, lines)
		if err != nil {
			log.Warn().
				Err(err).
				Str("game_id", gameID).
				Msg("Advanced box score unavailable, using fallback estimator")
		} else if len(rows) > 0 {
			return rows, models.StatusDone, "success"
		}
	}

	if len(lines) < 2 {
		return nil, models.StatusError, "no_game_lines"
	}

	rows := f.est.Rows(gameID, margins, lines)
	if len(rows) == 0 {
		return nil, models.StatusSkipMedium, "no_valid_rows"
	}
	return rows, models.StatusDone, "success"
}

// advancedRows extracts per-team Q4 efficiency from the period-scoped
// advanced box score. FTA rate is not part of the advanced table; it is
// approximated from the season-log totals when available.
func (f *Fetcher) advancedRows(ctx context.Context, gameID string, margins *Margins, lines []discovery.TeamGameLine) ([]models.TeamPeriodRow, error) {
	tables, err := f.client.BoxScoreAdvanced(ctx, gameID, 4, 4)
	if err != nil {
		return nil, err
	}

	var stats *client.ResultTable
	for i := range tables {
		t := &tables[i]
		if t.HasColumns("TEAM_ID", "TEAM_ABBREVIATION", "PACE", "OFF_RATING", "POSS") && len(t.Rows) >= 2 {
			stats = t
			break
		}
	}
	if stats == nil {
		return nil, nil
	}

	var rows []models.TeamPeriodRow
	for i := range stats.Rows {
		tid, ok := stats.Int(i, "TEAM_ID")
		if !ok {
			continue
		}
		margin, ok := margins.ByTeam[tid]
		if !ok {
			continue
		}
		gameState, teamState, ok := Classify(margin, f.opts.BlowoutMargin, f.opts.CloseMargin)
		if !ok {
			continue
		}

		pace, okPace := stats.Float(i, "PACE")
		ortg, okOrtg := stats.Float(i, "OFF_RATING")
		poss, okPoss := stats.Float(i, "POSS")
		if !okPace || !okOrtg || !okPoss || poss <= 0 {
			continue
		}

		rows = append(rows, models.TeamPeriodRow{
			GameID:    gameID,
			Team:      stats.Str(i, "TEAM_ABBREVIATION"),
			GameState: gameState,
			TeamState: teamState,
			Pace:      round2(pace),
			Ortg:      round2(ortg),
			Poss:      round2(poss),
			FTARate:   round4(ftaRateFor(lines, tid)),
		})
	}
	return rows, nil
}

func anyClassifiable(margins *Margins, blowout, closeMargin int) bool {
	for _, m := range margins.ByTeam {
		if _, _, ok := Classify(m, blowout, closeMargin); ok {
			return true
		}
	}
	return false
}

func ftaRateFor(lines []discovery.TeamGameLine, teamID int) float64 {
	for _, l := range lines {
		if l.TeamID == teamID && l.Fga > 0 {
			return l.Fta / l.Fga
		}
	}
	return 0
}

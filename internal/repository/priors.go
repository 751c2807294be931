package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"

	"nba_priors/mining/internal/models"
)

// PriorRepository publishes priors artifacts into the team_blowout_priors
// table:
//
//	team_blowout_priors (
//	    league text, season text, team_abbr text,
//	    baseline jsonb, leading jsonb, trailing jsonb, meta jsonb,
//	    updated_at timestamptz,
//	    unique (league, season, team_abbr)
//	)
type PriorRepository struct {
	db *Database
}

// UpsertArtifact publishes every entry of the artifact atomically, keyed by
// (league, season, team_abbr). Returns the number of rows written.
func (r *PriorRepository) UpsertArtifact(ctx context.Context, a *models.PriorsArtifact) (int, error) {
	query := `
		INSERT INTO team_blowout_priors (league, season, team_abbr, baseline, leading, trailing, meta, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		ON CONFLICT (league, season, team_abbr) DO UPDATE SET
			baseline = EXCLUDED.baseline,
			leading = EXCLUDED.leading,
			trailing = EXCLUDED.trailing,
			meta = EXCLUDED.meta,
			updated_at = NOW()
	`

	meta, err := json.Marshal(map[string]any{
		"generated_at": a.GeneratedAt,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to marshal meta: %w", err)
	}

	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	count := 0
	for _, p := range a.Priors {
		baseline, err := json.Marshal(p.Baseline)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal baseline for %s: %w", p.Team, err)
		}

		var leading, trailing []byte
		if p.Leading != nil {
			if leading, err = json.Marshal(p.Leading); err != nil {
				return 0, fmt.Errorf("failed to marshal leading delta for %s: %w", p.Team, err)
			}
		}
		if p.Trailing != nil {
			if trailing, err = json.Marshal(p.Trailing); err != nil {
				return 0, fmt.Errorf("failed to marshal trailing delta for %s: %w", p.Team, err)
			}
		}

		if _, err := tx.Exec(ctx, query, a.League, a.Season, p.Team, baseline, leading, trailing, meta); err != nil {
			return 0, fmt.Errorf("failed to upsert prior for %s: %w", p.Team, err)
		}
		count++
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit priors: %w", err)
	}

	log.Info().
		Str("league", a.League).
		Str("season", a.Season).
		Int("count", count).
		Msg("Priors published")

	return count, nil
}

// Package pipeline drives the mining run: discovery, manifest filtering,
// sequential per-game fetching with batched flushes, and final aggregation.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"nba_priors/mining/internal/client"
	"nba_priors/mining/internal/config"
	"nba_priors/mining/internal/discovery"
	"nba_priors/mining/internal/metrics"
	"nba_priors/mining/internal/models"
	"nba_priors/mining/internal/priors"
	"nba_priors/mining/internal/repository"
	"nba_priors/mining/internal/segment"
	"nba_priors/mining/internal/store"
)

// Pipeline wires the discovery, fetch, store and aggregation stages. It is
// deliberately single-threaded: concurrent fetches get the client throttled
// and concurrent store writers would break the dedup invariant.
type Pipeline struct {
	cfg     *config.Config
	client  *client.Client
	fetcher *segment.Fetcher
	store   *store.Store
	repo    *repository.PriorRepository
}

// New creates a pipeline. repo may be nil to disable priors publication.
func New(cfg *config.Config, c *client.Client, fetcher *segment.Fetcher, st *store.Store, repo *repository.PriorRepository) *Pipeline {
	return &Pipeline{
		cfg:     cfg,
		client:  c,
		fetcher: fetcher,
		store:   st,
		repo:    repo,
	}
}

// Run mines the season and then regenerates the priors artifact.
func (p *Pipeline) Run(ctx context.Context, retryErrors bool) error {
	if err := p.Mine(ctx, retryErrors); err != nil {
		return err
	}
	_, err := p.Aggregate(ctx)
	return err
}

// Mine crawls every unprocessed game of the configured season. Per-game
// failures are swallowed into manifest entries; only discovery and store I/O
// errors (and cancellation) terminate the run.
func (p *Pipeline) Mine(ctx context.Context, retryErrors bool) error {
	season := p.cfg.Season

	games, err := discovery.Discover(ctx, p.client, season)
	if err != nil {
		return fmt.Errorf("mine %s: %w", season, err)
	}

	processed := p.store.AlreadyProcessed(retryErrors)
	var target []string
	for _, gid := range games.GameIDs {
		if _, done := processed[gid]; !done {
			target = append(target, gid)
		}
	}

	if p.cfg.MaxGames > 0 && len(target) > p.cfg.MaxGames {
		target = target[:p.cfg.MaxGames]
	}

	log.Info().
		Str("season", season).
		Int("total", len(games.GameIDs)).
		Int("new", len(target)).
		Bool("retry_errors", retryErrors).
		Msg("Targeting new games")

	for i, gid := range target {
		// Cancellation is honored between games, never mid-fetch.
		if err := ctx.Err(); err != nil {
			if flushErr := p.store.Flush(); flushErr != nil {
				return flushErr
			}
			return err
		}

		rows, status, reason := p.processGame(ctx, gid, games.Lines[gid])
		entry := models.ManifestEntry{
			GameID:      gid,
			Status:      status,
			Reason:      reason,
			ProcessedAt: time.Now().UTC(),
		}

		added := p.store.StageGame(entry, rows)
		metrics.GamesProcessedTotal.WithLabelValues(string(status)).Inc()
		metrics.RowsAppendedTotal.Add(float64(added))

		if added > 0 {
			log.Info().Str("game_id", gid).Int("rows", added).Msg("Captured rows")
		}
		if status == models.StatusError {
			log.Error().Str("game_id", gid).Str("reason", reason).Msg("Game failed")
		}

		flushed, err := p.store.FlushIfFull()
		if err != nil {
			return err
		}
		if flushed {
			log.Info().
				Int("done", i+1).
				Int("total", len(target)).
				Msg("Progress saved")
		}
	}

	return p.store.Flush()
}

// processGame runs steps 1-3 for a single game. Panics and errors are both
// converted into manifest outcomes so a bad game never aborts the batch.
func (p *Pipeline) processGame(ctx context.Context, gid string, lines []discovery.TeamGameLine) (rows []models.TeamPeriodRow, status models.Status, reason string) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Str("game_id", gid).
				Interface("panic", r).
				Msg("Panic while processing game")
			rows, status, reason = nil, models.StatusError, "panic"
		}
	}()

	margins, err := p.fetcher.Margins(ctx, gid)
	_ = p.client.Throttle(ctx, p.cfg.SummaryDelay)
	if err != nil {
		return nil, models.StatusError, errorReason(err)
	}

	rows, status, reason = p.fetcher.Rows(ctx, gid, margins, lines)
	_ = p.client.Throttle(ctx, p.cfg.AdvancedDelay)
	return rows, status, reason
}

// Aggregate regenerates the priors artifact from the full raw store, writes
// it to disk, and publishes it when a repository is configured.
func (p *Pipeline) Aggregate(ctx context.Context) (*models.PriorsArtifact, error) {
	season := p.cfg.Season

	rows, err := store.LoadRows(p.cfg.RawPath(season))
	if err != nil {
		return nil, err
	}

	artifact := priors.Generate(rows, season, priors.Params{
		BaselineMinPoss:  p.cfg.BaselineMinPoss,
		TreatmentMinPoss: p.cfg.TreatmentMinPoss,
		CloseFTARateMax:  p.cfg.CloseFTARateMax,
		FoulFilter:       p.cfg.FoulFilter,
	})

	path := p.cfg.ArtifactPath(season)
	if err := priors.WriteArtifact(path, artifact); err != nil {
		return nil, err
	}

	log.Info().
		Str("season", season).
		Str("path", path).
		Int("teams", len(artifact.Priors)).
		Msg("Priors artifact written")

	for _, d := range priors.DefensiveRatings(rows) {
		log.Debug().
			Str("team", d.Team).
			Float64("q4_drtg", d.Drtg).
			Int("games", d.Games).
			Msg("Q4 defensive rating")
	}

	if p.repo != nil {
		if _, err := p.repo.UpsertArtifact(ctx, artifact); err != nil {
			return nil, fmt.Errorf("publish priors: %w", err)
		}
	}

	return artifact, nil
}

func errorReason(err error) string {
	var nls *segment.NoLineScoreError
	if errors.As(err, &nls) {
		return "no_linescore"
	}
	var status *client.StatusError
	if errors.As(err, &status) {
		return fmt.Sprintf("http_%d", status.Code)
	}
	var schema *client.SchemaError
	if errors.As(err, &schema) {
		return "schema_mismatch"
	}
	return "fetch_failed"
}

// Command publish uploads a generated priors artifact into the
// team_blowout_priors table, upserting on (league, season, team_abbr).
package main

import (
	"context"
	"flag"

	"github.com/rs/zerolog/log"

	"nba_priors/mining/internal/config"
	"nba_priors/mining/internal/priors"
	"nba_priors/mining/internal/repository"
)

func main() {
	file := flag.String("file", "", "path to a blowout_priors_<season>.json artifact")
	flag.Parse()

	if *file == "" {
		log.Fatal().Msg("-file is required")
	}

	cfg := config.MustLoad()
	if cfg.DatabaseHost == "" {
		log.Fatal().Msg("DATABASE_HOST must be configured to publish priors")
	}

	artifact, err := priors.ReadArtifact(*file)
	if err != nil {
		log.Fatal().Err(err).Str("file", *file).Msg("Failed to read artifact")
	}
	if len(artifact.Priors) == 0 {
		log.Info().Str("file", *file).Msg("No priors found in artifact")
		return
	}

	ctx := context.Background()
	db, err := repository.NewDatabase(ctx, cfg.DatabaseDSN())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	count, err := db.Priors.UpsertArtifact(ctx, artifact)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to publish priors")
	}

	log.Info().Int("count", count).Str("file", *file).Msg("Priors uploaded")
}

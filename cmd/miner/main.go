// Command miner crawls a season's box scores, classifies final-period game
// states, and aggregates possession-weighted blowout priors. Progress is
// checkpointed so an interrupted run resumes where it left off.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"nba_priors/mining/internal/cache"
	"nba_priors/mining/internal/client"
	"nba_priors/mining/internal/config"
	"nba_priors/mining/internal/pipeline"
	"nba_priors/mining/internal/repository"
	"nba_priors/mining/internal/scheduler"
	"nba_priors/mining/internal/segment"
	"nba_priors/mining/internal/store"
)

func main() {
	season := flag.String("season", "", "season to mine (overrides SEASON env)")
	retryErrors := flag.Bool("retry-errors", false, "reprocess games whose prior runs ended in ERROR")
	aggregateOnly := flag.Bool("aggregate-only", false, "skip mining and regenerate the priors artifact")
	worker := flag.Bool("worker", false, "run continuously, re-mining on the configured cron schedule")
	flag.Parse()

	setupLogger()

	log.Info().Msg("Starting blowout prior miner")

	cfg := config.MustLoad()
	if *season != "" {
		cfg.Season = *season
	}
	log.Info().
		Str("season", cfg.Season).
		Str("env", cfg.AppEnv).
		Msg("Configuration loaded")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info().Msg("Received shutdown signal, finishing current game...")
		cancel()
	}()

	// Concurrent runs would interleave appends and violate the raw store's
	// dedup invariant.
	release, err := store.AcquireLock(cfg.LockPath(cfg.Season))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to acquire run lock")
	}
	defer release()

	statsClient := client.New(cfg.StatsBaseURL, cfg.StatsTimeout, cfg.MaxRetries, cfg.RetryInitialDelay)

	var lineScoreCache segment.LineScoreCache
	if cfg.RedisHost != "" {
		rc, err := cache.NewRedisCache(cache.Config{
			Host:     cfg.RedisHost,
			Port:     fmt.Sprintf("%d", cfg.RedisPort),
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      cfg.LineScoreCacheTTL,
		})
		if err != nil {
			log.Warn().Err(err).Msg("Failed to connect to Redis - continuing without line-score cache")
		} else {
			defer rc.Close()
			lineScoreCache = rc
			log.Info().Msg("Line-score cache connected")
		}
	}

	st, err := store.Open(cfg.ManifestPath(cfg.Season), cfg.RawPath(cfg.Season), cfg.BatchSize)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open store")
	}

	var repo *repository.PriorRepository
	if cfg.DatabaseHost != "" {
		db, err := repository.NewDatabase(ctx, cfg.DatabaseDSN())
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to database")
		}
		defer db.Close()
		repo = db.Priors
	}

	fetcher := segment.NewFetcher(statsClient, lineScoreCache, segment.Options{
		BlowoutMargin: cfg.BlowoutMargin,
		CloseMargin:   cfg.CloseMargin,
		UseAdvanced:   cfg.AdvancedBoxScores,
	})

	p := pipeline.New(cfg, statsClient, fetcher, st, repo)

	if cfg.EnableMetrics {
		go startMetricsServer(cfg.MetricsPort)
	}

	switch {
	case *aggregateOnly:
		if _, err := p.Aggregate(ctx); err != nil {
			log.Fatal().Err(err).Msg("Aggregation failed")
		}

	case *worker:
		sched := scheduler.New(cfg.RemineCron, func(ctx context.Context) error {
			return p.Run(ctx, *retryErrors)
		})
		if err := sched.Start(ctx); err != nil {
			log.Fatal().Err(err).Msg("Failed to start scheduler")
		}

		if err := p.Run(ctx, *retryErrors); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("Initial run failed, waiting for next schedule")
		}

		<-ctx.Done()
		sched.Stop()

	default:
		if err := p.Run(ctx, *retryErrors); err != nil {
			if errors.Is(err, context.Canceled) {
				log.Info().Msg("Run interrupted; progress saved")
				return
			}
			log.Fatal().Err(err).Msg("Run failed")
		}
	}

	log.Info().Msg("Done")
}

// setupLogger configures the zerolog logger
func setupLogger() {
	if os.Getenv("APP_ENV") == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		})
	}

	level := zerolog.InfoLevel
	if lvl := os.Getenv("LOG_LEVEL"); lvl != "" {
		if parsed, err := zerolog.ParseLevel(lvl); err == nil {
			level = parsed
		}
	}
	zerolog.SetGlobalLevel(level)
}

// startMetricsServer starts the Prometheus metrics HTTP server
func startMetricsServer(port int) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})

	addr := fmt.Sprintf(":%d", port)
	log.Info().Int("port", port).Msg("Starting metrics server")

	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Error().Err(err).Msg("Metrics server failed")
	}
}

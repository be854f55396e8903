package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/prosante/appointment-scheduling/internal/config"
	"github.com/prosante/appointment-scheduling/internal/db"
	"github.com/prosante/appointment-scheduling/internal/logging"
	redisclient "github.com/prosante/appointment-scheduling/internal/redis"
	"github.com/prosante/appointment-scheduling/internal/scheduling"
)

// The retention worker removes blocked intervals that ended long ago so the
// coarse window queries stay cheap. It never touches appointments; those
// are the professionals' records.
func main() {
	cfg, err := config.Load()
	if err != nil {
		fallback := logging.New("prod", "retention-worker")
		fallback.Fatal().Err(err).Msg("config load error")
	}

	logger := logging.New(cfg.Env, "retention-worker")
	logger.Info().
		Str("env", cfg.Env).
		Dur("interval", cfg.WorkerInterval).
		Dur("retention", cfg.BlockedRetention).
		Msg("starting up")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres connection error")
	}
	defer pgPool.Close()
	logger.Info().Msg("connected to Postgres")

	rdb, err := redisclient.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connection error")
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			logger.Error().Err(err).Msg("error closing redis")
		}
	}()

	repo := scheduling.NewPgRepository(pgPool)
	locker := redisclient.NewRedisCalendarLocker(rdb, cfg.LockTTL)
	svc := scheduling.NewService(repo, locker, logger)

	// Run once at startup.
	runOnce(rootCtx, svc, cfg.BlockedRetention, logger)

	ticker := time.NewTicker(cfg.WorkerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			logger.Info().Msg("shutdown signal received, stopping retention worker")
			return
		case <-ticker.C:
			runOnce(rootCtx, svc, cfg.BlockedRetention, logger)
		}
	}
}

func runOnce(ctx context.Context, svc *scheduling.Service, retention time.Duration, logger zerolog.Logger) {
	runCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	start := time.Now()
	n, err := svc.PruneBlockedIntervals(runCtx, retention)
	if err != nil {
		logger.Error().Err(err).Msg("retention run error")
		return
	}
	logger.Info().Int64("pruned", n).Dur("took", time.Since(start)).Msg("retention run complete")
}

package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/medibook/booking-core/internal/account"
	"github.com/medibook/booking-core/internal/availability"
	"github.com/medibook/booking-core/internal/booking"
	"github.com/medibook/booking-core/internal/config"
	"github.com/medibook/booking-core/internal/db"
	"github.com/medibook/booking-core/internal/logging"
	redisclient "github.com/medibook/booking-core/internal/redis"
)

// The repair worker re-fires booking notifications that a crashed or timed
// out reservation left behind. Notification creation is duplicate-proof, so
// the loop is safe to run as often as configured.
func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := logging.New("repair-worker", "dev")
		bootLog.Fatal().Err(err).Msg("config load error")
	}

	log := logging.New("repair-worker", cfg.Env)
	log.Info().Str("env", cfg.Env).Dur("interval", cfg.RepairInterval).Msg("repair-worker starting up")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		log.Fatal().Err(err).Msg("postgres connection error")
	}
	defer pgPool.Close()
	log.Info().Msg("connected to Postgres")

	rdb, err := redisclient.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		log.Fatal().Err(err).Msg("redis connection error")
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Error().Err(err).Msg("error closing redis")
		}
	}()
	log.Info().Msg("connected to Redis")

	accountRepo := account.NewPgRepository(pgPool)
	availRepo := availability.NewPgRepository(pgPool)
	bookingRepo := booking.NewPgRepository(pgPool)
	locker := redisclient.NewRedisSlotLocker(rdb, cfg.LockTTL)

	svc := booking.NewService(bookingRepo, accountRepo, availRepo, locker, log)

	runOnce(rootCtx, svc, log)

	ticker := time.NewTicker(cfg.RepairInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			log.Info().Msg("shutdown signal received, stopping repair worker")
			return
		case <-ticker.C:
			runOnce(rootCtx, svc, log)
		}
	}
}

func runOnce(ctx context.Context, svc *booking.Service, log zerolog.Logger) {
	runCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	start := time.Now()
	repaired, err := svc.RepairSideEffects(runCtx)
	if err != nil {
		log.Error().Err(err).Msg("repair run error")
		return
	}
	log.Info().Int("repaired", repaired).Dur("elapsed", time.Since(start)).Msg("repair run complete")
}

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"

	"ticketing/internal/pkg/bootstrap"
	"ticketing/internal/pkg/logger"
	"ticketing/internal/pkg/zookeeper"
	"ticketing/internal/service/ticketing/infrastructure/persistence"
)

const (
	serviceName  = "ticketing-migrate"
	lockResource = "ticketing-schema-migration"
	lockTimeout  = 2 * time.Minute
)

func main() {
	cfg, err := bootstrap.LoadConfig("")
	if err != nil {
		logger.L().Fatal().Err(err).Msg("failed to load configuration")
	}
	logger.Init(serviceName, cfg.App.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logger.L().Error().Err(err).Msg("migration failed")
		stop()
		os.Exit(1)
	}
	logger.L().Info().Msg("schema is up to date")
}

func run(ctx context.Context, cfg *bootstrap.Config) error {
	db, err := persistence.Open(ctx, cfg.Infra.MySQL)
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	if len(cfg.Infra.Zookeeper.Servers) > 0 {
		conn, err := zookeeper.Connect(ctx, cfg.Infra.Zookeeper.Servers, cfg.Infra.Zookeeper.SessionTimeout)
		if err != nil {
			return err
		}
		defer conn.Close()

		lock, err := zookeeper.NewDistributedLock(conn, lockResource)
		if err != nil {
			return err
		}
		lockCtx, cancel := context.WithTimeout(ctx, lockTimeout)
		defer cancel()
		if err := lock.Lock(lockCtx); err != nil {
			return errors.Wrap(err, "acquire migration lock")
		}
		defer func() {
			if err := lock.Unlock(); err != nil {
				logger.L().Warn().Err(err).Msg("failed to release migration lock")
			}
		}()
		logger.L().Info().Str("resource", lockResource).Msg("migration lock acquired")
	} else {
		logger.L().Warn().Msg("no zookeeper servers configured, running migration without a lock")
	}

	return persistence.AutoMigrate(ctx, db)
}

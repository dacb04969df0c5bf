// cmd/historian/main.go is an asynchronous historian service that pops room actions from a Redis queue and persists them to PostgreSQL.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jason-s-yu/bingo/internal/cache"
	"github.com/jason-s-yu/bingo/internal/config"
	"github.com/jason-s-yu/bingo/internal/database"
	"github.com/jason-s-yu/bingo/internal/historian"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
)

func main() {
	logger := logrus.New()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("config: %v", err)
	}
	logger.SetLevel(cfg.LogLevel)

	if !cfg.DatabaseEnabled() || !cfg.RedisEnabled() {
		logger.Fatal("historian needs both PG_HOST and REDIS_ADDR")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := database.ConnectDB(ctx, cfg.PostgresURL()); err != nil {
		logger.Fatalf("database: %v", err)
	}
	defer database.Close()

	rdb, err := cache.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisDB)
	if err != nil {
		logger.Fatalf("redis: %v", err)
	}
	defer rdb.Close()

	queue := cache.NewActionQueue(rdb, cfg.HistorianQueueName)
	svc := historian.New(queue, database.ActionStore{}, historian.Config{
		BatchSize:     cfg.HistorianBatchSize,
		FlushInterval: cfg.HistorianFlush,
		Inactivity:    cfg.GameInactivity,
	}, logger)

	logger.Infof("bingo-historian started; draining %s", queue.Name())
	svc.Run(ctx)
	logger.Info("bingo-historian shut down")
}

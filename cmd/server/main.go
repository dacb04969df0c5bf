// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jason-s-yu/bingo/internal/auth"
	"github.com/jason-s-yu/bingo/internal/cache"
	"github.com/jason-s-yu/bingo/internal/config"
	"github.com/jason-s-yu/bingo/internal/database"
	"github.com/jason-s-yu/bingo/internal/game"
	"github.com/jason-s-yu/bingo/internal/handlers"
	"github.com/jason-s-yu/bingo/internal/level"
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

	if cfg.AuthPrivateKeyFile != "" && cfg.AuthPublicKeyFile != "" {
		err = auth.InitFromPath(cfg.AuthPrivateKeyFile, cfg.AuthPublicKeyFile, cfg.TokenExpire)
	} else {
		logger.Warn("no auth key files configured; tokens will not survive a restart")
		err = auth.Init(cfg.TokenExpire)
	}
	if err != nil {
		logger.Fatalf("auth: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps := game.Deps{Logger: logger}

	if cfg.DatabaseEnabled() {
		if cfg.AutoMigrate {
			if err := database.MigrateUp(cfg.PostgresURL(), logger); err != nil {
				logger.Fatalf("migrate: %v", err)
			}
		}
		if err := database.ConnectDB(ctx, cfg.PostgresURL()); err != nil {
			logger.Fatalf("database: %v", err)
		}
		defer database.Close()
		deps.Levels = level.NewService(database.ExperienceStore{})
		deps.Results = database.GameRecorder{}
		logger.Info("connected to Postgres; experience and results are persisted")
	} else {
		logger.Warn("PG_HOST not set; running without accounts, experience or results")
	}

	if cfg.RedisEnabled() {
		rdb, err := cache.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisDB)
		if err != nil {
			logger.Fatalf("redis: %v", err)
		}
		defer rdb.Close()
		deps.Actions = cache.NewActionQueue(rdb, cfg.HistorianQueueName)
		logger.Infof("publishing room actions to %s", cfg.HistorianQueueName)
	}

	mode, err := game.ParseMode(cfg.DefaultGameMode)
	if err != nil {
		logger.Fatalf("DEFAULT_GAME_MODE %q: %v", cfg.DefaultGameMode, err)
	}

	engine := game.NewEngine(game.Config{
		DrawInterval: cfg.DrawInterval,
		DefaultMode:  mode,
		EndOnBingo:   cfg.EndOnBingo,
	}, deps)
	gs := handlers.NewGameServer(engine, logger)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: gs.Routes(),
	}

	go func() {
		logger.Infof("Running on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server exited: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	engine.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("http shutdown: %v", err)
	}
}

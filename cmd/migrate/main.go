// cmd/migrate/main.go applies or rolls back the embedded schema migrations.
package main

import (
	"flag"

	"github.com/jason-s-yu/bingo/internal/config"
	"github.com/jason-s-yu/bingo/internal/database"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
)

func main() {
	down := flag.Int("down", 0, "roll back this many migrations instead of migrating up")
	flag.Parse()

	logger := logrus.New()
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("config: %v", err)
	}
	logger.SetLevel(cfg.LogLevel)
	if !cfg.DatabaseEnabled() {
		logger.Fatal("PG_HOST is not set")
	}

	if *down > 0 {
		err = database.MigrateDown(cfg.PostgresURL(), *down, logger)
	} else {
		err = database.MigrateUp(cfg.PostgresURL(), logger)
	}
	if err != nil {
		logger.Fatalf("migrate: %v", err)
	}
}

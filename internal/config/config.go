// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Config is the server configuration read from the environment.
type Config struct {
	Port     string
	LogLevel logrus.Level

	DrawInterval    time.Duration
	DefaultGameMode string
	EndOnBingo      bool

	// Postgres; an empty host disables persistence.
	PGUser      string
	PGPassword  string
	PGHost      string
	PGPort      string
	PGDatabase  string
	AutoMigrate bool

	// Redis; an empty address disables the action log.
	RedisAddr          string
	RedisDB            int
	HistorianQueueName string
	HistorianBatchSize int
	HistorianFlush     time.Duration
	GameInactivity     time.Duration

	TokenExpire time.Duration // 0 means tokens never expire
	// Raw ed25519 key files; when unset a key pair is generated at startup.
	AuthPrivateKeyFile string
	AuthPublicKeyFile  string
}

// Load reads the configuration from environment variables.
func Load() (*Config, error) {
	lvl, err := logrus.ParseLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}

	drawInterval, err := getEnvDuration("DRAW_INTERVAL", 3*time.Second)
	if err != nil {
		return nil, err
	}
	if drawInterval <= 0 {
		return nil, fmt.Errorf("DRAW_INTERVAL must be positive, got %s", drawInterval)
	}

	tokenExpire := time.Duration(0)
	if raw := os.Getenv("TOKEN_EXPIRE_TIME"); raw != "" && raw != "never" && raw != "0" {
		if tokenExpire, err = time.ParseDuration(raw); err != nil {
			return nil, fmt.Errorf("invalid TOKEN_EXPIRE_TIME: %w", err)
		}
	}

	return &Config{
		Port:     getEnv("PORT", "8080"),
		LogLevel: lvl,

		DrawInterval:    drawInterval,
		DefaultGameMode: getEnv("DEFAULT_GAME_MODE", "75"),
		EndOnBingo:      getEnvBool("END_ON_BINGO", false),

		PGUser:      os.Getenv("POSTGRES_USER"),
		PGPassword:  os.Getenv("POSTGRES_PASSWORD"),
		PGHost:      os.Getenv("PG_HOST"),
		PGPort:      getEnv("PG_PORT", "5432"),
		PGDatabase:  os.Getenv("PG_DATABASE"),
		AutoMigrate: getEnvBool("AUTO_MIGRATE", false),

		RedisAddr:          os.Getenv("REDIS_ADDR"),
		RedisDB:            getEnvInt("REDIS_DB", 0),
		HistorianQueueName: getEnv("HISTORIAN_QUEUE_NAME", "bingo_actions"),
		HistorianBatchSize: getEnvInt("HISTORIAN_BATCH_SIZE", 100),
		HistorianFlush:     time.Duration(getEnvInt("HISTORIAN_FLUSH_MS", 500)) * time.Millisecond,
		GameInactivity:     time.Duration(getEnvInt("GAME_INACTIVITY_TIMEOUT_SEC", 600)) * time.Second,

		TokenExpire:        tokenExpire,
		AuthPrivateKeyFile: os.Getenv("AUTH_PRIVATE_KEY_FILE"),
		AuthPublicKeyFile:  os.Getenv("AUTH_PUBLIC_KEY_FILE"),
	}, nil
}

// DatabaseEnabled reports whether Postgres settings were provided.
func (c *Config) DatabaseEnabled() bool {
	return c.PGHost != ""
}

// RedisEnabled reports whether the action log is configured.
func (c *Config) RedisEnabled() bool {
	return c.RedisAddr != ""
}

// PostgresURL builds the pgx connection string.
func (c *Config) PostgresURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s", c.PGUser, c.PGPassword, c.PGHost, c.PGPort, c.PGDatabase)
}

// getEnv reads an environment variable or returns a default value.
func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

// getEnvInt parses an environment variable as integer, else a default value.
func getEnvInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

func getEnvBool(key string, def bool) bool {
	switch strings.ToLower(os.Getenv(key)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return def
}

// getEnvDuration accepts Go durations ("3s") or a bare number of seconds.
func getEnvDuration(key string, def time.Duration) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	if secs, err := strconv.Atoi(s); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

// internal/config/config_test.go
package config

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, k := range []string{
		"PORT", "LOG_LEVEL", "DRAW_INTERVAL", "DEFAULT_GAME_MODE", "END_ON_BINGO",
		"PG_HOST", "PG_PORT", "REDIS_ADDR", "REDIS_DB", "HISTORIAN_QUEUE_NAME",
		"HISTORIAN_BATCH_SIZE", "HISTORIAN_FLUSH_MS", "TOKEN_EXPIRE_TIME", "AUTO_MIGRATE",
		"GAME_INACTIVITY_TIMEOUT_SEC",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, logrus.InfoLevel, cfg.LogLevel)
	assert.Equal(t, 3*time.Second, cfg.DrawInterval)
	assert.Equal(t, "75", cfg.DefaultGameMode)
	assert.False(t, cfg.EndOnBingo)
	assert.False(t, cfg.DatabaseEnabled())
	assert.False(t, cfg.RedisEnabled())
	assert.Equal(t, "bingo_actions", cfg.HistorianQueueName)
	assert.Equal(t, 100, cfg.HistorianBatchSize)
	assert.Equal(t, 500*time.Millisecond, cfg.HistorianFlush)
	assert.Equal(t, 10*time.Minute, cfg.GameInactivity)
	assert.Zero(t, cfg.TokenExpire)
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9000")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("DRAW_INTERVAL", "5")
	t.Setenv("DEFAULT_GAME_MODE", "90")
	t.Setenv("END_ON_BINGO", "true")
	t.Setenv("PG_HOST", "db")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("TOKEN_EXPIRE_TIME", "72h")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, logrus.DebugLevel, cfg.LogLevel)
	assert.Equal(t, 5*time.Second, cfg.DrawInterval)
	assert.Equal(t, "90", cfg.DefaultGameMode)
	assert.True(t, cfg.EndOnBingo)
	assert.True(t, cfg.DatabaseEnabled())
	assert.True(t, cfg.RedisEnabled())
	assert.Equal(t, 2, cfg.RedisDB)
	assert.Equal(t, 72*time.Hour, cfg.TokenExpire)

	t.Setenv("DRAW_INTERVAL", "1500ms")
	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, 1500*time.Millisecond, cfg.DrawInterval)
}

func TestLoadRejectsBadValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("LOG_LEVEL", "loud")
	_, err := Load()
	assert.Error(t, err)

	clearEnv(t)
	t.Setenv("DRAW_INTERVAL", "soon")
	_, err = Load()
	assert.Error(t, err)

	clearEnv(t)
	t.Setenv("DRAW_INTERVAL", "0")
	_, err = Load()
	assert.Error(t, err)

	clearEnv(t)
	t.Setenv("TOKEN_EXPIRE_TIME", "forever")
	_, err = Load()
	assert.Error(t, err)
}

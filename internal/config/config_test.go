package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setTestEnv(t *testing.T) {
	t.Helper()
	t.Setenv("APP_ENV", "development")
	t.Setenv("BLOCKCHAIN_URL", "http://localhost:9090")
	t.Setenv("LEDGER_STORE", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("KAFKA_BROKERS", "")
	t.Setenv("SETTLEMENT_TIMEOUT", "")
	t.Setenv("ANCHOR_EARN_RECEIPTS", "")
}

func TestLoadDefaults(t *testing.T) {
	setTestEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, "memory", cfg.StoreDriver)
	assert.Equal(t, "points.db", cfg.SQLitePath)
	assert.Zero(t, cfg.SettlementTimeout)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.False(t, cfg.AnchorEarnReceipts)
}

func TestLoadMissingRequired(t *testing.T) {
	setTestEnv(t)
	t.Setenv("APP_ENV", "")
	t.Setenv("BLOCKCHAIN_URL", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "APP_ENV")
	assert.Contains(t, err.Error(), "BLOCKCHAIN_URL")
}

func TestLoadPostgresRequiresDatabaseURL(t *testing.T) {
	setTestEnv(t)
	t.Setenv("LEDGER_STORE", "postgres")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")

	t.Setenv("DATABASE_URL", "postgres://localhost/points")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.StoreDriver)
}

func TestLoadRejectsUnknownStore(t *testing.T) {
	setTestEnv(t)
	t.Setenv("LEDGER_STORE", "cassandra")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown LEDGER_STORE")
}

func TestLoadRejectsMemoryInProduction(t *testing.T) {
	setTestEnv(t)
	t.Setenv("APP_ENV", "production")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not allowed in production")
}

func TestLoadParsesOptions(t *testing.T) {
	setTestEnv(t)
	t.Setenv("KAFKA_BROKERS", "broker1:9092, broker2:9092")
	t.Setenv("SETTLEMENT_TIMEOUT", "3s")
	t.Setenv("ANCHOR_EARN_RECEIPTS", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 3*time.Second, cfg.SettlementTimeout)
	assert.True(t, cfg.AnchorEarnReceipts)
}

func TestLoadRejectsBadDuration(t *testing.T) {
	setTestEnv(t)
	t.Setenv("SETTLEMENT_TIMEOUT", "soon")

	_, err := Load()
	require.Error(t, err)
}

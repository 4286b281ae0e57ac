package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv unsets the configuration variables for the test. godotenv never
// overrides a variable that exists, even when empty.
func clearEnv(t *testing.T) {
	for _, key := range []string{
		"CONFIG_FILE", "PORT", "DB_PATH", "BANK_IBAN", "CURRENCY", "LOG_LEVEL", "LOG_DEV",
		"REDIS_ADDR", "REDIS_CHANNEL", "WEBHOOK_URL", "WEBHOOK_TIMEOUT", "DISPATCH_INTERVAL",
	} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "data/ledger.db", cfg.DBPath)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 10*time.Second, cfg.Notify.DispatchInterval)
	assert.Error(t, cfg.Validate(), "bank IBAN is required")
}

func TestLoadFileThenEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	t.Chdir(dir)

	path := filepath.Join(dir, "ledger.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: "9090"
bank_iban: CZ6508000000192000145399
log:
  level: debug
  development: true
notify:
  redis_addr: localhost:6379
  webhook_timeout: 2s
`), 0o600))

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("PORT", "7070")
	t.Setenv("DISPATCH_INTERVAL", "1m")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "7070", cfg.Port, "environment wins over the file")
	assert.Equal(t, "CZ6508000000192000145399", cfg.BankIBAN)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Log.Development)
	assert.Equal(t, "localhost:6379", cfg.Notify.RedisAddr)
	assert.Equal(t, "ledger.events", cfg.Notify.RedisChannel)
	assert.Equal(t, 2*time.Second, cfg.Notify.WebhookTimeout)
	assert.Equal(t, time.Minute, cfg.Notify.DispatchInterval)
	assert.NoError(t, cfg.Validate())
}

func TestLoadDotEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	t.Chdir(dir)

	envFile := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(envFile, []byte("BANK_IBAN=DE89370400440532013000\nLOG_LEVEL=warn\n"), 0o600))

	cfg, err := Load(envFile)
	require.NoError(t, err)
	assert.Equal(t, "DE89370400440532013000", cfg.BankIBAN)
	assert.Equal(t, "warn", cfg.Log.Level)

	_, err = Load(filepath.Join(dir, "missing.env"))
	assert.Error(t, err)
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"LOG_DEV", "maybe"},
		{"WEBHOOK_TIMEOUT", "soon"},
		{"DISPATCH_INTERVAL", "10"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			clearEnv(t)
			t.Chdir(t.TempDir())
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			assert.ErrorContains(t, err, tt.key)
		})
	}
}

func TestLoadRejectsBadFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	t.Chdir(dir)

	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: [unterminated"), 0o600))
	t.Setenv("CONFIG_FILE", path)

	_, err := Load()
	assert.Error(t, err)
}

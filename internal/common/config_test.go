package common

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	for k, v := range map[string]string{
		"RI_DB_HOST":             "db.example.com",
		"RI_DB_USER":             "app",
		"RI_DB_PASSWORD":         "secret",
		"RI_DB_NAME":             "users",
		"RI_DI_ENDPOINT":         "https://di.example.com",
		"RI_DI_KEY":              "di-key",
		"RI_COSMOS_ENDPOINT":     "https://cosmos.example.com",
		"RI_COSMOS_KEY":          "cosmos-key",
		"RI_COSMOS_DATABASE":     "receipts-db",
		"RI_COSMOS_CONTAINER":    "receipts",
		"RI_STORAGE_ACCOUNT_URL": "https://acct.blob.core.windows.net",
		"RI_STORAGE_ACCOUNT_KEY": "storage-key",
		"RI_BLOB_CONTAINER":      "receipts",
	} {
		t.Setenv(k, v)
	}
}

func TestLoadConfigFromEnv(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("RI_DB_PORT", "5433")
	t.Setenv("RI_LOG_LEVEL", "debug")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "db.example.com", cfg.DBHost)
	assert.Equal(t, 5433, cfg.DBPort)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "https://di.example.com", cfg.DIEndpoint)
	assert.Equal(t, "receipts", cfg.BlobContainer)
}

func TestLoadConfigDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 5432, cfg.DBPort)
	assert.Equal(t, "TrainingHard1", cfg.DIModelID)
	assert.Equal(t, "2024-02-29-preview", cfg.DIAPIVersion)
	assert.Equal(t, 2000, cfg.DIPollIntervalMS)
	assert.Equal(t, 120_000, cfg.DITimeoutMS)
}

func TestLoadConfigMissingRequired(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("RI_DI_KEY", "")

	cfg, err := LoadConfig()
	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConfig))
	assert.Contains(t, err.Error(), "di_key")
}

func TestLoadConfigFileThenEnvPrecedence(t *testing.T) {
	setRequiredEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log_level: warn\naddr: \":9090\"\n"), 0o600))
	t.Setenv("RI_CONFIG", path)
	t.Setenv("RI_LOG_LEVEL", "error")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	// env overrides file, file overrides defaults
	assert.Equal(t, "error", cfg.LogLevel)
	assert.Equal(t, ":9090", cfg.Addr)
}

package polyquery

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"SQLITE_DB_PATH", "MOCK_API_URL", "MOCK_API_KEY",
		"AUDIT_LOG_PATH", "NL_ORACLE", "DATA_FILE_PATHS",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	clearEnv(t)
	config, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "sample.db", config.DbPath)
	assert.Equal(t, "http://127.0.0.1:9001", config.APIBaseURL)
	assert.Equal(t, "audit.log", config.AuditLogPath)
	assert.Equal(t, "static", config.Oracle)
	assert.Equal(t, 60, config.CacheTTLSeconds)
}

func TestLoadConfigFromFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(`
db_path: /data/store.db
api_base_url: https://api.internal:8443
cache_ttl_seconds: 300
file_paths:
  - data/users.csv
  - data/users.xlsx
`), 0644))

	config, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "/data/store.db", config.DbPath)
	assert.Equal(t, "https://api.internal:8443", config.APIBaseURL)
	assert.Equal(t, 300, config.CacheTTLSeconds)
	assert.Equal(t, []string{"data/users.csv", "data/users.xlsx"}, config.FilePaths)

	// File values that were not set keep their defaults.
	assert.Equal(t, "audit.log", config.AuditLogPath)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yml"))
	assert.Error(t, err)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("SQLITE_DB_PATH", "/env/store.db")
	t.Setenv("MOCK_API_URL", "http://env-api:9001")
	t.Setenv("MOCK_API_KEY", "env-key")
	t.Setenv("DATA_FILE_PATHS", "a.csv, b.json ,")

	config, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "/env/store.db", config.DbPath)
	assert.Equal(t, "http://env-api:9001", config.APIBaseURL)
	assert.Equal(t, "env-key", config.APIKey)
	assert.Equal(t, []string{"a.csv", "b.json"}, config.FilePaths)
}

package runtime

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Empty(t, cfg.DatasourceURL)
	assert.Equal(t, int32(10), cfg.MaxConns)
	assert.Equal(t, int32(2), cfg.MinConns)
	assert.Equal(t, 2*time.Second, cfg.TxMaxWait)
	assert.Equal(t, 5*time.Second, cfg.TxTimeout)
	assert.Equal(t, ErrorFormatMinimal, cfg.ErrorFormat)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Empty(t, cfg.TxIsolation)
	assert.Equal(t, 10*time.Minute, cfg.SettingsCacheTTL)
	assert.Equal(t, "@every 15m", cfg.SweepSchedule)
	assert.Empty(t, cfg.RedisURL)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig_FromEnvFile(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, "test.env")
	content := "DATABASE_URL=postgres://u:p@localhost:5432/jobs\n" +
		"DB_MAX_CONNS=20\n" +
		"TX_TIMEOUT=30s\n" +
		"TX_ISOLATION=Serializable\n" +
		"ERROR_FORMAT=pretty\n" +
		"LOG_QUERIES=true\n" +
		"DB_OMIT=administrators.password_hash, employers.password_hash,job_seekers.password_hash\n"
	require.NoError(t, os.WriteFile(envFile, []byte(content), 0o600))

	for _, key := range []string{"DATABASE_URL", "DB_MAX_CONNS", "TX_TIMEOUT", "TX_ISOLATION", "ERROR_FORMAT", "LOG_QUERIES", "DB_OMIT"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	cfg, err := LoadConfig(envFile)
	require.NoError(t, err)
	assert.Equal(t, "postgres://u:p@localhost:5432/jobs", cfg.DatasourceURL)
	assert.Equal(t, int32(20), cfg.MaxConns)
	assert.Equal(t, 30*time.Second, cfg.TxTimeout)
	assert.Equal(t, pgx.Serializable, cfg.TxIsolation)
	assert.Equal(t, ErrorFormatPretty, cfg.ErrorFormat)
	assert.True(t, cfg.LogQueries)
	assert.Equal(t, []string{"password_hash"}, cfg.OmittedColumns("employers"))
	assert.Len(t, cfg.Omit, 3)
}

func TestLoadConfig_Errors(t *testing.T) {
	t.Run("missing env file", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "")
		_, err := LoadConfig(filepath.Join(t.TempDir(), "empty.env"))
		assert.Error(t, err)
	})

	t.Run("required", func(t *testing.T) {
		dir := t.TempDir()
		envFile := filepath.Join(dir, "x.env")
		require.NoError(t, os.WriteFile(envFile, []byte("LOG_LEVEL=debug\n"), 0o600))
		t.Setenv("DATABASE_URL", "")
		_, err := LoadConfig(envFile)
		assert.ErrorContains(t, err, "DATABASE_URL")
	})

	t.Run("bad duration", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "postgres://localhost/jobs")
		t.Setenv("TX_MAX_WAIT", "soon")
		dir := t.TempDir()
		envFile := filepath.Join(dir, "x.env")
		require.NoError(t, os.WriteFile(envFile, nil, 0o600))
		_, err := LoadConfig(envFile)
		assert.ErrorContains(t, err, "TX_MAX_WAIT")
	})

	t.Run("bad isolation", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "postgres://localhost/jobs")
		t.Setenv("TX_ISOLATION", "chaotic")
		dir := t.TempDir()
		envFile := filepath.Join(dir, "x.env")
		require.NoError(t, os.WriteFile(envFile, nil, 0o600))
		_, err := LoadConfig(envFile)
		assert.ErrorContains(t, err, "TX_ISOLATION")
	})
}

func TestParseOmit(t *testing.T) {
	got, err := parseOmit("a.x,a.y,b.z")
	require.NoError(t, err)
	assert.Equal(t, map[string][]string{"a": {"x", "y"}, "b": {"z"}}, got)

	_, err = parseOmit("nodot")
	assert.Error(t, err)
}

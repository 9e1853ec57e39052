package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configKeys = []string{
	"DB_PATH", "DB_DRIVER", "READ_POOL_SIZE", "LISTEN_ADDR", "LOG_LEVEL", "ENV",
	"JWT_SECRET", "AUTH_ISSUER_URL", "AUTH_JWKS_URL", "AUTH_AUDIENCE", "AUTH_ALLOWED_ISSUERS",
	"RATE_LIMIT_RPS", "RATE_LIMIT_BURST", "CORS_ALLOWED_ORIGINS",
	"MAX_UPLOAD_MB", "PANEL_CONCURRENCY", "HISTORY_BUFFER", "ARCHIVE_URL",
	"S3_ENDPOINT", "S3_REGION", "S3_KEY_ID", "S3_SECRET", "GCS_KEY_FILE",
	"AZURE_ACCOUNT_NAME", "AZURE_ACCOUNT_KEY", "WATCH_DIR", "WATCH_OWNER",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range configKeys {
		t.Setenv(k, "")
	}
}

func TestLoadFromEnv_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "tabula.sqlite", cfg.DBPath)
	assert.Equal(t, "sqlite3", cfg.DBDriver)
	assert.Equal(t, 8, cfg.ReadPoolSize)
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, DevJWTSecret, cfg.Auth.JWTSecret)
	assert.Equal(t, int64(64<<20), cfg.MaxUploadBytes)
	assert.Equal(t, 4, cfg.PanelConcurrency)
	assert.Equal(t, 256, cfg.HistoryBuffer)
	assert.Equal(t, "uploads", cfg.ArchiveURL)
	assert.Equal(t, []string{"*"}, cfg.CORSAllowedOrigins)
	assert.InDelta(t, 100.0, cfg.RateLimitRPS, 0.001)
	assert.Equal(t, 200, cfg.RateLimitBurst)
	assert.Nil(t, cfg.S3KeyID)
	assert.False(t, cfg.HasS3Config())
	assert.False(t, cfg.HasAzureConfig())
	assert.NotEmpty(t, cfg.Warnings)
}

func TestLoadFromEnv_AllVarsSet(t *testing.T) {
	clearEnv(t)
	t.Setenv("DB_PATH", "/tmp/t.sqlite")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("READ_POOL_SIZE", "2")
	t.Setenv("JWT_SECRET", "s3cr3t")
	t.Setenv("MAX_UPLOAD_MB", "5")
	t.Setenv("PANEL_CONCURRENCY", "16")
	t.Setenv("ARCHIVE_URL", "s3://raw/uploads")
	t.Setenv("S3_KEY_ID", "key")
	t.Setenv("S3_SECRET", "secret")
	t.Setenv("S3_ENDPOINT", "s3.example.com")
	t.Setenv("S3_REGION", "eu-central")
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://a.example , ,https://b.example")
	t.Setenv("AUTH_ALLOWED_ISSUERS", "https://i1,https://i2")
	t.Setenv("WATCH_DIR", "/srv/drop")
	t.Setenv("WATCH_OWNER", "etl")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "/tmp/t.sqlite", cfg.DBPath)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, 2, cfg.ReadPoolSize)
	assert.Equal(t, "s3cr3t", cfg.Auth.JWTSecret)
	assert.Equal(t, int64(5<<20), cfg.MaxUploadBytes)
	assert.Equal(t, 16, cfg.PanelConcurrency)
	assert.Equal(t, "s3://raw/uploads", cfg.ArchiveURL)
	assert.True(t, cfg.HasS3Config())
	require.NotNil(t, cfg.S3Region)
	assert.Equal(t, "eu-central", *cfg.S3Region)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, []string{"https://i1", "https://i2"}, cfg.Auth.AllowedIssuers)
	assert.Equal(t, "/srv/drop", cfg.WatchDir)
	assert.Empty(t, cfg.Warnings)
}

func TestLoadFromEnv_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown driver", map[string]string{"DB_DRIVER": "postgres"}},
		{"non-numeric pool", map[string]string{"READ_POOL_SIZE": "many"}},
		{"zero concurrency", map[string]string{"PANEL_CONCURRENCY": "0"}},
		{"watch dir without owner", map[string]string{"WATCH_DIR": "/tmp/in"}},
		{"production dev secret", map[string]string{"ENV": "production", "CORS_ALLOWED_ORIGINS": "https://x"}},
		{"production cors wildcard", map[string]string{"ENV": "production", "JWT_SECRET": "real"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := LoadFromEnv()
			require.Error(t, err)
		})
	}
}

func TestLoadFromEnv_ProductionOK(t *testing.T) {
	clearEnv(t)
	t.Setenv("ENV", "production")
	t.Setenv("JWT_SECRET", "real")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://app.example")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
}

func TestLoadFromEnv_OIDCWithoutSecret(t *testing.T) {
	clearEnv(t)
	t.Setenv("AUTH_ISSUER_URL", "https://issuer.example")
	t.Setenv("AUTH_AUDIENCE", "tabula")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Empty(t, cfg.Auth.JWTSecret)
	assert.True(t, cfg.Auth.OIDCEnabled())
	require.NoError(t, cfg.Auth.Validate())
}

func TestAuthConfig_Validate(t *testing.T) {
	a := AuthConfig{}
	require.Error(t, a.Validate())
	a.IssuerURL = "https://issuer"
	require.Error(t, a.Validate())
	a.Audience = "aud"
	require.NoError(t, a.Validate())
}

func TestSlogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range tests {
		cfg := &Config{LogLevel: in}
		assert.Equal(t, want, cfg.SlogLevel(), in)
	}
}

func TestLoadDotEnv_FileNotFound(t *testing.T) {
	err := LoadDotEnv("/nonexistent/.env")
	if err != nil {
		t.Errorf("expected no error for missing .env, got: %v", err)
	}
}

func TestLoadDotEnv_ParsesKeyValue(t *testing.T) {
	tmpDir := t.TempDir()
	envFile := filepath.Join(tmpDir, ".env")

	err := os.WriteFile(envFile, []byte("# comment\nTEST_KEY=\"test_value\"\nnot a pair\n"), 0644)
	if err != nil {
		t.Fatalf("write .env: %v", err)
	}

	if err := LoadDotEnv(envFile); err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}

	if val := os.Getenv("TEST_KEY"); val != "test_value" {
		t.Errorf("TEST_KEY = %q, want %q", val, "test_value")
	}
	_ = os.Unsetenv("TEST_KEY")
}

func TestLoadDotEnv_EnvVarPrecedence(t *testing.T) {
	t.Setenv("TEST_PRECEDENCE_KEY", "from_env")

	tmpDir := t.TempDir()
	envFile := filepath.Join(tmpDir, ".env")

	err := os.WriteFile(envFile, []byte("TEST_PRECEDENCE_KEY=from_file\n"), 0644)
	if err != nil {
		t.Fatalf("write .env: %v", err)
	}

	if err := LoadDotEnv(envFile); err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}

	if val := os.Getenv("TEST_PRECEDENCE_KEY"); val != "from_env" {
		t.Errorf("TEST_PRECEDENCE_KEY = %q, want %q (env precedence)", val, "from_env")
	}
}

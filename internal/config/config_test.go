package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// inTempDir runs the test from an empty directory so no stray .env is read.
func inTempDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	inTempDir(t)
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("MONGO_URI", "mongodb://localhost:27017")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, "blog", cfg.MongoDB)
	assert.Equal(t, time.Duration(0), cfg.TokenTTL)
	assert.Equal(t, 10*time.Minute, cfg.ReconcileInterval)
	assert.Equal(t, time.Minute, cfg.StatsCacheTTL)
	assert.Equal(t, int64(5<<20), cfg.MaxImageBytes)
	assert.Equal(t, []string{"http://localhost:5173", "http://localhost:3000"}, cfg.AllowedOrigins)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoad_EnvOverrides(t *testing.T) {
	inTempDir(t)
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("MONGO_URI", "mongodb://db:27017")
	t.Setenv("PORT", "8080")
	t.Setenv("TOKEN_TTL", "24h")
	t.Setenv("MINIO_USE_SSL", "true")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL)
	assert.True(t, cfg.MinioUseSSL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
}

func TestLoad_DotEnvFile(t *testing.T) {
	dir := inTempDir(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"),
		[]byte("JWT_SECRET=from-file\nMONGO_URI=mongodb://file:27017\nMONGO_DB=other\n"), 0o600))
	t.Setenv("MONGO_DB", "from-env")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.JWTSecret)
	assert.Equal(t, "mongodb://file:27017", cfg.MongoURI)
	assert.Equal(t, "from-env", cfg.MongoDB)
}

func TestLoad_MissingSecret(t *testing.T) {
	inTempDir(t)
	t.Setenv("JWT_SECRET", "")
	t.Setenv("MONGO_URI", "mongodb://localhost:27017")

	_, err := Load()
	assert.ErrorContains(t, err, "JWT_SECRET")
}

func TestConfig_Validate(t *testing.T) {
	valid := Config{
		JWTSecret:         "s",
		MongoURI:          "mongodb://x",
		ReconcileInterval: time.Minute,
		StatsCacheTTL:     time.Minute,
		MaxImageBytes:     1,
	}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"no mongo uri", func(c *Config) { c.MongoURI = "" }},
		{"negative ttl", func(c *Config) { c.TokenTTL = -time.Second }},
		{"zero reconcile interval", func(c *Config) { c.ReconcileInterval = 0 }},
		{"zero stats cache ttl", func(c *Config) { c.StatsCacheTTL = 0 }},
		{"zero image size", func(c *Config) { c.MaxImageBytes = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid
			tt.mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}

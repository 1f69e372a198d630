package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "todo_db", cfg.MongoDB)
	assert.Equal(t, 7*24*time.Hour, cfg.TokenTTL)
	assert.Equal(t, []string{"http://localhost:3000", "http://localhost:5173"}, cfg.CORSOrigins)
	assert.True(t, cfg.UsesDefaultSecret())
	assert.Empty(t, cfg.RabbitURL)
	assert.Equal(t, time.Hour, cfg.JWKSCacheTTL)
	assert.Equal(t, time.Minute, cfg.JWKSUnknownKID)
	assert.Equal(t, 24*time.Hour, cfg.DedupeTTL)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("APP_PORT", "9000")
	t.Setenv("JWT", "s3cret")
	t.Setenv("GOOGLE_CLIENT_ID", "client-123")
	t.Setenv("CORS_ORIGINS", "https://app.example.com, ,https://admin.example.com")
	t.Setenv("TOKEN_TTL", "24h")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, "client-123", cfg.GoogleClientID)
	assert.Equal(t, []string{"https://app.example.com", "https://admin.example.com"}, cfg.CORSOrigins)
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL)
	assert.False(t, cfg.UsesDefaultSecret())
}

func TestLoad_RejectsNonPositiveTTL(t *testing.T) {
	t.Setenv("TOKEN_TTL", "0s")

	_, err := Load()
	assert.Error(t, err)
}

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsAndEnvOverrides(t *testing.T) {
	t.Setenv("CLEANHUB_SECURITY_JWTSECRET", "from-env")
	t.Setenv("CLEANHUB_POSTGRES_DSN", "postgres://localhost/cleanhub")
	t.Setenv("CLEANHUB_HTTP_PORT", "8080")
	t.Setenv("CLEANHUB_ALLOWCORSORIGINS", "https://a.test,https://b.test")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.Equal(t, "from-env", cfg.Security.JWTSecret)
	assert.Equal(t, 168*time.Hour, cfg.Security.TokenTTL)
	assert.Equal(t, "token", cfg.Security.CookieName)
	assert.Equal(t, 48*time.Hour, cfg.Jobs.PendingReminderAge)
	assert.Equal(t, "cleanhub:events", cfg.Events.Stream)
	assert.Equal(t, []string{"https://a.test", "https://b.test"}, cfg.AllowCORSOrigins)
	assert.False(t, cfg.IsProduction())
	assert.NoError(t, cfg.Validate())
}

func TestValidateFailsFast(t *testing.T) {
	cfg := &AppConfig{}

	err := cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{"postgres.dsn", "events.stream", "security.jwtsecret", "security.tokenttl", "security.cookiename"} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestValidateRequiresOriginsInProduction(t *testing.T) {
	cfg := &AppConfig{
		Environment: EnvironmentProduction,
		Postgres:    PostgresConfig{DSN: "postgres://localhost/cleanhub"},
		Events:      EventsConfig{Stream: "cleanhub:events"},
		Security:    SecurityConfig{JWTSecret: "s", TokenTTL: time.Hour, CookieName: "jwt"},
	}

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "allowcorsorigins")

	cfg.AllowCORSOrigins = []string{"https://app.cleanhub.test"}
	assert.NoError(t, cfg.Validate())

	cfg.Environment = "development"
	cfg.AllowCORSOrigins = nil
	assert.NoError(t, cfg.Validate())
}

func TestValidateWorker(t *testing.T) {
	cfg := &AppConfig{
		Postgres: PostgresConfig{DSN: "postgres://localhost/cleanhub"},
		Events:   EventsConfig{Stream: "cleanhub:events"},
	}
	assert.Error(t, cfg.ValidateWorker())

	cfg.Worker = WorkerConfig{Group: "g", Consumer: "c", ClaimInterval: time.Second}
	assert.NoError(t, cfg.ValidateWorker())
}

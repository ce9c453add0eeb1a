package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// baseValidConfig returns a fully-valid configuration object that callers
// can tweak inside table tests.
func baseValidConfig() Config {
	return Config{
		AppPort:             8080,
		AppBaseURL:          "http://localhost:8080",
		BcryptCost:          12,
		SignInRatePerMin:    5,
		LogLevel:            "info",
		LogFormat:           "json",
		MongoURI:            "mongodb://localhost:27017",
		MongoDBName:         "test",
		JWTSecret:           "this-is-a-super-secret-jwt-key-with-32-plus-chars",
		JWTAlgorithm:        "HS256",
		SessionTokenMinutes: 60,
		ResetTokenMinutes:   15,
		MailFrom:            "no-reply@buzzaar.example",
		WSOutboxBuffer:      256,
		WSMaxSessionSec:     900,
	}
}

// clearConfigEnvVars removes every environment variable that the Config loader
// consumes so each test starts with a clean slate.
func clearConfigEnvVars(t *testing.T) {
	t.Helper()

	for _, k := range []string{
		"APP_PORT",
		"APP_BASE_URL",
		"BCRYPT_COST",
		"SIGNIN_RATE_PER_MIN",
		"LOG_LEVEL",
		"LOG_FORMAT",
		"MONGO_URI",
		"MONGO_DB_NAME",
		"JWT_SECRET",
		"JWT_ALGORITHM",
		"SESSION_TOKEN_MINUTES",
		"RESET_TOKEN_MINUTES",
		"POSTMARK_TOKEN",
		"MAIL_FROM",
		"WS_OUTBOX_BUFFER",
		"WS_MAX_SESSION_SEC",
		"ROUTE_METRICS_ENABLED",
		"REQUEST_LOGGING_ENABLED",
	} {
		if err := os.Unsetenv(k); err != nil {
			t.Logf("warning: failed to unset %s: %v", k, err)
		}
	}
}

func TestConfigLoadDefaults(t *testing.T) {
	clearConfigEnvVars(t)
	ResetCache()

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.AppPort)
	assert.Equal(t, "http://localhost:8080", cfg.AppBaseURL)
	assert.Equal(t, 12, cfg.BcryptCost)
	assert.Equal(t, 5, cfg.SignInRatePerMin)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "mongodb://mongo:27017", cfg.MongoURI)
	assert.Equal(t, "buzzaar", cfg.MongoDBName)
	assert.Equal(t, "HS256", cfg.JWTAlgorithm)
	assert.Equal(t, 60, cfg.SessionTokenMinutes)
	assert.Equal(t, 15, cfg.ResetTokenMinutes)
	assert.Equal(t, 256, cfg.WSOutboxBuffer)
	assert.Equal(t, 900, cfg.WSMaxSessionSec)
	assert.True(t, cfg.RouteMetricsEnabled)
	assert.False(t, cfg.RequestLoggingEnabled)
}

func TestConfigLoadWithOverride(t *testing.T) {
	clearConfigEnvVars(t)
	ResetCache()

	t.Setenv("APP_PORT", "9999")
	t.Setenv("RESET_TOKEN_MINUTES", "30")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.AppPort)
	assert.Equal(t, 30, cfg.ResetTokenMinutes)
}

func TestConfigLoadCaches(t *testing.T) {
	clearConfigEnvVars(t)
	ResetCache()

	first, err := Load()
	require.NoError(t, err)

	t.Setenv("APP_PORT", "9100")

	second, err := Load()
	require.NoError(t, err)
	assert.Equal(t, first.AppPort, second.AppPort, "cached config must not observe later env changes")
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"bad port", func(c *Config) { c.AppPort = 0 }, "APP_PORT"},
		{"bad base url", func(c *Config) { c.AppBaseURL = "localhost" }, "APP_BASE_URL"},
		{"bcrypt too low", func(c *Config) { c.BcryptCost = 4 }, "BCRYPT_COST"},
		{"bcrypt too high", func(c *Config) { c.BcryptCost = 20 }, "BCRYPT_COST"},
		{"empty mongo uri", func(c *Config) { c.MongoURI = "" }, "MONGO_URI"},
		{"short hs256 secret", func(c *Config) { c.JWTSecret = "short" }, "JWT_SECRET"},
		{"unknown algorithm", func(c *Config) { c.JWTAlgorithm = "none" }, "JWT_ALGORITHM"},
		{"zero reset window", func(c *Config) { c.ResetTokenMinutes = 0 }, "RESET_TOKEN_MINUTES"},
		{"zero session window", func(c *Config) { c.SessionTokenMinutes = 0 }, "SESSION_TOKEN_MINUTES"},
		{"empty mail from", func(c *Config) { c.MailFrom = "" }, "MAIL_FROM"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := baseValidConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

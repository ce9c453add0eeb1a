package test

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"buzzaar/internal/config"
)

func validConfig() config.Config {
	return config.Config{
		AppPort:             8080,
		AppBaseURL:          "http://localhost:8080",
		BcryptCost:          12,
		SignInRatePerMin:    5,
		LogLevel:            "info",
		LogFormat:           "json",
		MongoURI:            "mongodb://localhost:27017",
		MongoDBName:         "test",
		JWTSecret:           "test-secret-with-32-plus-characters",
		JWTAlgorithm:        "HS256",
		SessionTokenMinutes: 60,
		ResetTokenMinutes:   15,
		MailFrom:            "no-reply@buzzaar.example",
		WSOutboxBuffer:      256,
		WSMaxSessionSec:     900,
	}
}

func TestConfig_LoadDefaults(t *testing.T) {
	clearConfigEnvVars(t)
	config.ResetCache()

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.AppPort)
	assert.Equal(t, "http://localhost:8080", cfg.AppBaseURL)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "mongodb://mongo:27017", cfg.MongoURI)
	assert.Equal(t, "buzzaar", cfg.MongoDBName)
	assert.Equal(t, "HS256", cfg.JWTAlgorithm)
	assert.Equal(t, 60, cfg.SessionTokenMinutes)
	assert.Equal(t, 15, cfg.ResetTokenMinutes)
	assert.Equal(t, "no-reply@buzzaar.example", cfg.MailFrom)
	assert.Equal(t, 256, cfg.WSOutboxBuffer)
	assert.Equal(t, 900, cfg.WSMaxSessionSec)
}

func TestConfig_LoadWithOverride(t *testing.T) {
	clearConfigEnvVars(t)
	config.ResetCache()

	err := os.Setenv("APP_PORT", "9999")
	require.NoError(t, err)
	defer func() {
		err := os.Unsetenv("APP_PORT")
		require.NoError(t, err)
	}()

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.AppPort)

	// Other defaults remain unchanged
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "buzzaar", cfg.MongoDBName)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr bool
		errMsg  string
	}{
		{
			name:    "valid config",
			mutate:  func(c *config.Config) {},
			wantErr: false,
		},
		{
			name:    "invalid port",
			mutate:  func(c *config.Config) { c.AppPort = 0 },
			wantErr: true,
			errMsg:  "APP_PORT must be greater than 0",
		},
		{
			name:    "base url without scheme",
			mutate:  func(c *config.Config) { c.AppBaseURL = "localhost:8080" },
			wantErr: true,
			errMsg:  "APP_BASE_URL must be an http(s) URL",
		},
		{
			name:    "empty log level",
			mutate:  func(c *config.Config) { c.LogLevel = "" },
			wantErr: true,
			errMsg:  "LOG_LEVEL cannot be empty",
		},
		{
			name:    "empty JWT secret",
			mutate:  func(c *config.Config) { c.JWTSecret = "" },
			wantErr: true,
			errMsg:  "JWT_SECRET cannot be empty",
		},
		{
			name:    "short JWT secret",
			mutate:  func(c *config.Config) { c.JWTSecret = "too-short" },
			wantErr: true,
			errMsg:  "at least 32 characters",
		},
		{
			name:    "unsupported algorithm",
			mutate:  func(c *config.Config) { c.JWTAlgorithm = "RS256" },
			wantErr: true,
			errMsg:  "JWT_ALGORITHM must be HS256",
		},
		{
			name:    "reset token lifetime must be positive",
			mutate:  func(c *config.Config) { c.ResetTokenMinutes = 0 },
			wantErr: true,
			errMsg:  "RESET_TOKEN_MINUTES must be greater than 0",
		},
		{
			name:    "bcrypt cost out of range",
			mutate:  func(c *config.Config) { c.BcryptCost = 4 },
			wantErr: true,
			errMsg:  "BCRYPT_COST must be between 10 and 16",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_Caching(t *testing.T) {
	clearConfigEnvVars(t)
	config.ResetCache()

	cfg1, err := config.Load()
	require.NoError(t, err)

	cfg2, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, cfg1, cfg2)
}

// Helper function to clear config-related environment variables
func clearConfigEnvVars(t *testing.T) {
	envVars := []string{
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
	}

	for _, envVar := range envVars {
		if err := os.Unsetenv(envVar); err != nil {
			t.Logf("Warning: failed to unset %s: %v", envVar, err)
		}
	}
}

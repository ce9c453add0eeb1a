package config

import (
	"errors"
	"strings"
	"sync"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	AppPort               int    `mapstructure:"APP_PORT"`
	AppBaseURL            string `mapstructure:"APP_BASE_URL"`
	BcryptCost            int    `mapstructure:"BCRYPT_COST"`
	SignInRatePerMin      int    `mapstructure:"SIGNIN_RATE_PER_MIN"`
	LogLevel              string `mapstructure:"LOG_LEVEL"`
	LogFormat             string `mapstructure:"LOG_FORMAT"`
	MongoURI              string `mapstructure:"MONGO_URI"`
	MongoDBName           string `mapstructure:"MONGO_DB_NAME"`
	JWTSecret             string `mapstructure:"JWT_SECRET"`
	JWTAlgorithm          string `mapstructure:"JWT_ALGORITHM"`
	SessionTokenMinutes   int    `mapstructure:"SESSION_TOKEN_MINUTES"`
	ResetTokenMinutes     int    `mapstructure:"RESET_TOKEN_MINUTES"`
	PostmarkToken         string `mapstructure:"POSTMARK_TOKEN"`
	MailFrom              string `mapstructure:"MAIL_FROM"`
	WSOutboxBuffer        int    `mapstructure:"WS_OUTBOX_BUFFER"`
	WSMaxSessionSec       int    `mapstructure:"WS_MAX_SESSION_SEC"`
	RouteMetricsEnabled   bool   `mapstructure:"ROUTE_METRICS_ENABLED"`
	RequestLoggingEnabled bool   `mapstructure:"REQUEST_LOGGING_ENABLED"`
}

var (
	cachedConfig *Config
	configMutex  sync.RWMutex
)

// Load loads configuration from environment variables and .env file.
// The result is cached for subsequent calls.
func Load() (Config, error) {
	configMutex.RLock()
	if cachedConfig != nil {
		defer configMutex.RUnlock()
		return *cachedConfig, nil
	}
	configMutex.RUnlock()

	configMutex.Lock()
	defer configMutex.Unlock()

	// Double-check in case another goroutine loaded it while we waited for the lock
	if cachedConfig != nil {
		return *cachedConfig, nil
	}

	v := viper.New()

	v.SetDefault("APP_PORT", 8080)
	v.SetDefault("APP_BASE_URL", "http://localhost:8080")
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("SIGNIN_RATE_PER_MIN", 5)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("MONGO_URI", "mongodb://mongo:27017")
	v.SetDefault("MONGO_DB_NAME", "buzzaar")
	v.SetDefault("JWT_SECRET", "this-is-a-default-jwt-secret-key-with-32-plus-characters")
	v.SetDefault("JWT_ALGORITHM", "HS256")
	v.SetDefault("SESSION_TOKEN_MINUTES", 60)
	v.SetDefault("RESET_TOKEN_MINUTES", 15)
	v.SetDefault("POSTMARK_TOKEN", "")
	v.SetDefault("MAIL_FROM", "no-reply@buzzaar.example")
	v.SetDefault("WS_OUTBOX_BUFFER", 256) // WebSocket channel buffer size
	v.SetDefault("WS_MAX_SESSION_SEC", 900)
	v.SetDefault("ROUTE_METRICS_ENABLED", true)
	v.SetDefault("REQUEST_LOGGING_ENABLED", false)

	// Read from .env when present, then let OS env win
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, err
		}
	}

	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	cachedConfig = &cfg

	return cfg, nil
}

// ResetCache clears the cached configuration (for testing purposes)
func ResetCache() {
	configMutex.Lock()
	defer configMutex.Unlock()
	cachedConfig = nil
}

// Validate checks if required configuration fields are properly set
func (c Config) Validate() error {
	if c.AppPort <= 0 {
		return errors.New("APP_PORT must be greater than 0")
	}
	if c.AppBaseURL == "" || !strings.HasPrefix(c.AppBaseURL, "http") {
		return errors.New("APP_BASE_URL must be an http(s) URL")
	}
	if c.BcryptCost < 10 || c.BcryptCost > 16 {
		return errors.New("BCRYPT_COST must be between 10 and 16")
	}
	if c.SignInRatePerMin < 1 {
		return errors.New("SIGNIN_RATE_PER_MIN must be greater than or equal to 1")
	}
	if c.LogLevel == "" {
		return errors.New("LOG_LEVEL cannot be empty")
	}
	if c.LogFormat == "" {
		return errors.New("LOG_FORMAT cannot be empty")
	}
	if c.MongoURI == "" {
		return errors.New("MONGO_URI cannot be empty")
	}
	if c.MongoDBName == "" {
		return errors.New("MONGO_DB_NAME cannot be empty")
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET cannot be empty")
	}
	if c.JWTAlgorithm == "HS256" && len(c.JWTSecret) < 32 {
		return errors.New("JWT_SECRET must be at least 32 characters for HS256")
	}
	if c.SessionTokenMinutes <= 0 {
		return errors.New("SESSION_TOKEN_MINUTES must be greater than 0")
	}
	if c.ResetTokenMinutes <= 0 {
		return errors.New("RESET_TOKEN_MINUTES must be greater than 0")
	}
	if c.MailFrom == "" {
		return errors.New("MAIL_FROM cannot be empty")
	}
	if c.WSOutboxBuffer <= 0 {
		return errors.New("WS_OUTBOX_BUFFER must be greater than 0")
	}
	if c.WSMaxSessionSec <= 0 {
		return errors.New("WS_MAX_SESSION_SEC must be greater than 0")
	}
	if c.JWTAlgorithm != "HS256" {
		return errors.New("JWT_ALGORITHM must be HS256")
	}
	return nil
}

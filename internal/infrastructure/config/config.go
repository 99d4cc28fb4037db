package config

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"

	"github.com/incidenthub/auth-gateway/internal/core/domain"
)

// MinSigningKeyLength is the shortest accepted HMAC-SHA256 key, in bytes.
const MinSigningKeyLength = 32

const base64KeyPrefix = "base64:"

type Config struct {
	Port     string `env:"PORT,      default=8081"`
	Env      string `env:"ENV,       default=development"`
	LogLevel string `env:"LOG_LEVEL, default=info"`

	JWTSecret  string        `env:"JWT_SECRET"`
	TokenTTL   time.Duration `env:"TOKEN_TTL,   default=24h"`
	BcryptCost int           `env:"BCRYPT_COST, default=10"`

	Directory DirectoryConfig
	Throttle  ThrottleConfig
	RateLimit RateLimitConfig
	Mongo     MongoConfig
	Redis     RedisConfig
}

type DirectoryConfig struct {
	URL     string        `env:"DIRECTORY_URL,     default=http://user-service:8082"`
	Timeout time.Duration `env:"DIRECTORY_TIMEOUT, default=5s"`
}

type ThrottleConfig struct {
	MaxFailures int           `env:"LOGIN_MAX_FAILURES, default=5"`
	Lockout     time.Duration `env:"LOGIN_LOCKOUT,      default=15m"`
}

// RateLimitConfig bounds per-client request rates on /api/auth. A zero RPS
// disables the limiter.
type RateLimitConfig struct {
	RPS   float64 `env:"AUTH_RATE_LIMIT_RPS,   default=10"`
	Burst int     `env:"AUTH_RATE_LIMIT_BURST, default=20"`
}

// MongoConfig enables the audit trail when URI is set.
type MongoConfig struct {
	URI          string `env:"MONGO_URI"`
	Database     string `env:"MONGO_DB,      default=incidenthub_auth"`
	AuditWorkers int    `env:"AUDIT_WORKERS, default=4"`
}

// RedisConfig enables the login throttle when Addr is set.
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB, default=0"`
}

// Load reads configuration from environment variables using go-envconfig.
// A .env file in the working directory, when present, seeds variables that
// are not already set.
func Load(ctx context.Context) (*Config, error) {
	if err := loadDotenv(".env"); err != nil {
		return nil, err
	}
	return load(ctx, envconfig.OsLookuper())
}

// loadDotenv applies path when it exists. A missing file is not an error; an
// unreadable or malformed one is.
func loadDotenv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("config: load %s: %w", path, err)
	}
	return nil
}

func load(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("config: load: %w", err)
	}
	return &cfg, nil
}

// IsDevelopment reports whether human-friendly logging should be used.
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.Env, "development")
}

// SigningKey returns the raw HMAC key. A "base64:" prefix marks
// base64-encoded key material; anything else is used as UTF-8 bytes.
func (c *Config) SigningKey() ([]byte, error) {
	secret := c.JWTSecret
	if !strings.HasPrefix(secret, base64KeyPrefix) {
		return []byte(secret), nil
	}
	key, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(secret, base64KeyPrefix))
	if err != nil {
		return nil, &domain.ConfigurationError{Field: "JWT_SECRET", Message: "invalid base64 key material"}
	}
	return key, nil
}

// Validate rejects settings the gateway cannot start with.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return &domain.ConfigurationError{Field: "JWT_SECRET", Message: "must be set"}
	}
	key, err := c.SigningKey()
	if err != nil {
		return err
	}
	if len(key) < MinSigningKeyLength {
		return &domain.ConfigurationError{
			Field:   "JWT_SECRET",
			Message: fmt.Sprintf("must be at least %d bytes, got %d", MinSigningKeyLength, len(key)),
		}
	}
	if c.TokenTTL <= 0 {
		return &domain.ConfigurationError{Field: "TOKEN_TTL", Message: "must be positive"}
	}
	u, err := url.Parse(c.Directory.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return &domain.ConfigurationError{Field: "DIRECTORY_URL", Message: "must be an absolute http(s) URL"}
	}
	return nil
}

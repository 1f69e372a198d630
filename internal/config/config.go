package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// DefaultJWTSecret is used when JWT is unset. Only acceptable for local development.
const DefaultJWTSecret = "default_secret_key"

// Config is built once at startup and handed to every component that needs it.
type Config struct {
	Port     string `env:"APP_PORT" envDefault:"8080"`
	MongoURI string `env:"MONGO_URI" envDefault:"mongodb://localhost:27017"`
	MongoDB  string `env:"MONGO_DB" envDefault:"todo_db"`

	JWTSecret string        `env:"JWT" envDefault:"default_secret_key"`
	TokenTTL  time.Duration `env:"TOKEN_TTL" envDefault:"168h"`

	GoogleClientID string        `env:"GOOGLE_CLIENT_ID"`
	GoogleCertsURL string        `env:"GOOGLE_CERTS_URL" envDefault:"https://www.googleapis.com/oauth2/v3/certs"`
	JWKSCacheTTL   time.Duration `env:"JWKS_CACHE_TTL" envDefault:"1h"`
	JWKSUnknownKID time.Duration `env:"JWKS_UNKNOWN_KID_INTERVAL" envDefault:"1m"`

	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000,http://localhost:5173"`

	RedisAddr string        `env:"REDIS_ADDR"` // notify worker de-duplication
	DedupeTTL time.Duration `env:"NOTIFY_DEDUPE_TTL" envDefault:"24h"`

	RabbitURL         string `env:"RABBIT_URL"`
	RabbitExchange    string `env:"RABBIT_EXCHANGE" envDefault:"todo.events"`
	RabbitQueue       string `env:"RABBIT_QUEUE" envDefault:"todo.notify"`
	RabbitBindKey     string `env:"RABBIT_BIND_KEY" envDefault:"user.registered"`
	RabbitConcurrency int    `env:"RABBIT_CONCURRENCY" envDefault:"4"`

	LogProduction bool   `env:"LOG_PRODUCTION" envDefault:"false"`
	DDEnabled     bool   `env:"DD_ENABLED" envDefault:"false"`
	DDService     string `env:"DD_SERVICE" envDefault:"todo-service"`
}

func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.CORSOrigins = trimCSV(cfg.CORSOrigins)
	if cfg.TokenTTL <= 0 {
		return Config{}, fmt.Errorf("TOKEN_TTL must be positive, got %s", cfg.TokenTTL)
	}
	if cfg.RabbitConcurrency <= 0 {
		cfg.RabbitConcurrency = 1
	}
	return cfg, nil
}

// UsesDefaultSecret reports whether tokens are signed with the development fallback.
func (c Config) UsesDefaultSecret() bool {
	return c.JWTSecret == DefaultJWTSecret
}

func trimCSV(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

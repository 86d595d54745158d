// Package config loads process configuration from the environment.
package config

import (
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
)

// DefaultJWTSecret is used when JWT_SECRET is unset. Deployments must
// override it; cmd/server logs a warning when it is in effect.
const DefaultJWTSecret = "insecure-dev-secret"

// Config holds all tunables for the backend process.
type Config struct {
	Port        int           `env:"PORT,default=8080"`
	DatabaseURL string        `env:"DATABASE_URL"`
	JWTSecret   string        `env:"JWT_SECRET"`
	SessionTTL  time.Duration `env:"SESSION_TTL,default=1h"`
	LogLevel    string        `env:"LOG_LEVEL,default=info"`

	// Comma-separated list of origins allowed to call the API with
	// credentials.
	CORSAllowedOrigins string `env:"CORS_ALLOWED_ORIGINS"`
}

// Load decodes configuration from the environment and applies defaults that
// envdecode tags cannot express.
func Load() (Config, error) {
	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil && err != envdecode.ErrNoTargetFieldsAreSet {
		return Config{}, err
	}
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = time.Hour
	}
	if strings.TrimSpace(cfg.JWTSecret) == "" {
		cfg.JWTSecret = DefaultJWTSecret
	}
	if strings.TrimSpace(cfg.CORSAllowedOrigins) == "" {
		cfg.CORSAllowedOrigins = "http://localhost:3000,http://localhost:5173"
	}
	return cfg, nil
}

// AllowedOrigins returns the parsed CORS origin list.
func (c Config) AllowedOrigins() []string {
	var origins []string
	for _, candidate := range strings.Split(c.CORSAllowedOrigins, ",") {
		if trimmed := strings.TrimSpace(candidate); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}

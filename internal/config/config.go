// Package config loads application configuration from environment variables.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/iliyamo/field-interventions/internal/totals"
)

// Config holds the core runtime configuration.  Optional groups (rate
// limiting, cache, blobs, queue, redis) have their own loaders with
// defaults.
type Config struct {
	Env            string // application environment (dev, test, prod)
	Port           string // HTTP port to listen on
	DBUser         string
	DBPass         string // may be empty
	DBHost         string
	DBPort         string
	DBName         string
	JWTSecret      string
	AccessTTLMin   int
	RefreshTTLDays int
	BcryptCost     int

	LogLevel              string
	DefaultTaxRatePercent float64
	RequestTimeout        time.Duration
	AutoMigrate           bool

	// Bootstrap administrator, created at start-up when both are set.
	AdminEmail    string
	AdminPassword string
}

// Load reads the configuration.  Missing required variables are fatal.
func Load() Config {
	return Config{
		Env:            must("APP_ENV"),
		Port:           must("APP_PORT"),
		DBUser:         must("DB_USER"),
		DBPass:         os.Getenv("DB_PASS"),
		DBHost:         must("DB_HOST"),
		DBPort:         must("DB_PORT"),
		DBName:         must("DB_NAME"),
		JWTSecret:      must("JWT_SECRET"),
		AccessTTLMin:   mustInt("ACCESS_TOKEN_TTL_MIN"),
		RefreshTTLDays: mustInt("REFRESH_TOKEN_TTL_DAYS"),
		BcryptCost:     mustInt("BCRYPT_COST"),

		LogLevel:              envStr("LOG_LEVEL", "info"),
		DefaultTaxRatePercent: taxRate("DEFAULT_TAX_RATE_PERCENT", 20),
		RequestTimeout:        envDur("REQUEST_TIMEOUT", 5*time.Second),
		AutoMigrate:           envBool("DB_AUTO_MIGRATE", true),

		AdminEmail:    strings.TrimSpace(os.Getenv("ADMIN_EMAIL")),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
	}
}

// IsDev reports whether the service runs in a developer environment.
func (c Config) IsDev() bool {
	switch strings.ToLower(c.Env) {
	case "dev", "development", "local":
		return true
	}
	return false
}

// must retrieves a required environment variable or exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatal().Str("key", key).Msg("missing required env var")
	}
	return v
}

// mustInt is like must but parses an integer.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatal().Str("key", key).Str("value", s).Msg("invalid int env var")
	}
	return n
}

// taxRate reads a percentage in [0, 100]; anything else is fatal so that a
// typo never silently bills the wrong tax.
func taxRate(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err == nil {
		err = totals.CheckTaxRate(f)
	}
	if err != nil {
		log.Fatal().Err(err).Str("key", key).Str("value", v).Msg("tax rate must be a number between 0 and 100 with at most two decimals")
	}
	return f
}

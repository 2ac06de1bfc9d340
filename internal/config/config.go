// Package config handles loading application configuration from environment
// variables. All config is centralized here so no other package reads env
// vars directly. Sensible defaults are provided for development.
package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
)

// Config holds all application configuration. Populated from environment
// variables at startup. Passed to other packages via dependency injection.
type Config struct {
	// Env is the runtime environment: "development" or "production".
	Env string

	// Port is the HTTP listen port (default: 8080).
	Port int

	// BaseURL is the public-facing URL used for links and redirects.
	BaseURL string

	// LogLevel controls log verbosity: "debug", "info", "warn", "error".
	// Defaults to debug in development and info otherwise.
	LogLevel string

	// MigrationsPath is the directory holding the SQL migrations.
	MigrationsPath string

	// AllowedOrigins lists the origins allowed to call the API cross-origin.
	AllowedOrigins []string

	// TrustedProxies lists the CIDRs whose forwarding headers are trusted.
	TrustedProxies []string

	// Database holds MariaDB connection settings.
	Database DatabaseConfig

	// Redis holds Redis connection settings.
	Redis RedisConfig

	// Admin holds the admin API key settings.
	Admin AdminConfig

	// Calendar holds the layout defaults.
	Calendar CalendarConfig
}

// DatabaseConfig holds MariaDB connection parameters. Individual fields
// (Host, User, Password, Name) are read from separate env vars so
// container orchestrators can manage each independently.
// If DATABASE_URL is set, it takes precedence over the individual fields.
type DatabaseConfig struct {
	// Host is the MariaDB address in host:port format (default: "localhost:3306").
	// If no port is specified, 3306 is appended automatically.
	Host string

	// User is the MariaDB username (default: "almanac").
	User string

	// Password is the MariaDB password (default: "almanac").
	Password string

	// Name is the database name (default: "almanac").
	Name string

	// dsnOverride is set when DATABASE_URL is provided, bypassing individual fields.
	dsnOverride string

	// MaxOpenConns is the maximum number of open connections in the pool.
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections in the pool.
	MaxIdleConns int

	// ConnMaxLifetime is how long a connection can be reused.
	ConnMaxLifetime time.Duration
}

// DSN returns the go-sql-driver/mysql connection string. If DATABASE_URL was
// set, it is returned as-is. Otherwise the DSN is built from the individual
// Host/User/Password/Name fields using the driver's Config.FormatDSN()
// to safely handle special characters in passwords.
func (d DatabaseConfig) DSN() string {
	if d.dsnOverride != "" {
		return d.dsnOverride
	}
	cfg := mysql.NewConfig()
	cfg.User = d.User
	cfg.Passwd = d.Password
	cfg.Net = "tcp"
	cfg.Addr = ensurePort(d.Host, "3306")
	cfg.DBName = d.Name
	cfg.ParseTime = true
	return cfg.FormatDSN()
}

// ensurePort appends the default port if the host string doesn't include one.
// Allows users to set DB_HOST=mydb (gets :3306) or DB_HOST=mydb:3307 (as-is).
func ensurePort(host, defaultPort string) string {
	_, _, err := net.SplitHostPort(host)
	if err != nil {
		return net.JoinHostPort(host, defaultPort)
	}
	return host
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	// URL is the Redis connection URL (e.g., "redis://localhost:6379").
	// Empty disables the layout cache.
	URL string
}

// AdminConfig guards the mutating API endpoints.
type AdminConfig struct {
	// KeyHash is the bcrypt hash of the admin API key. Generate one with
	// `htpasswd -bnBC 12 "" <key> | tr -d ':\n'`.
	KeyHash string

	// WriteRateLimit is the number of writes one client IP may make per
	// WriteRateWindow.
	WriteRateLimit  int
	WriteRateWindow time.Duration
}

// CalendarConfig holds the layout defaults applied when a request does not
// override them.
type CalendarConfig struct {
	StartHour          int
	EndHour            int
	HourHeight         float64
	MinDurationMinutes int
	CellCap            int

	// LayoutCacheTTL is how long computed layouts stay in Redis. Zero
	// disables caching.
	LayoutCacheTTL time.Duration
}

// Load reads configuration from environment variables with sensible defaults.
// Returns an error if required variables are missing or out of range.
func Load() (*Config, error) {
	cfg := &Config{
		Env:            getEnv("ENV", "development"),
		Port:           getEnvInt("PORT", 8080),
		BaseURL:        getEnv("BASE_URL", "http://localhost:8080"),
		LogLevel:       getEnv("LOG_LEVEL", ""),
		MigrationsPath: getEnv("MIGRATIONS_PATH", "db/migrations"),
		AllowedOrigins: getEnvList("CORS_ORIGINS", nil),
		TrustedProxies: getEnvList("TRUSTED_PROXIES", []string{
			"127.0.0.0/8",
			"10.0.0.0/8",
			"172.16.0.0/12",
			"192.168.0.0/16",
			"fd00::/8",
		}),

		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost:3306"),
			User:            getEnv("DB_USER", "almanac"),
			Password:        getEnv("DB_PASSWORD", "almanac"),
			Name:            getEnv("DB_NAME", "almanac"),
			dsnOverride:     getEnv("DATABASE_URL", ""),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		},

		Redis: RedisConfig{
			URL: getEnv("REDIS_URL", "redis://localhost:6379"),
		},

		Admin: AdminConfig{
			KeyHash:         getEnv("ADMIN_KEY_HASH", ""),
			WriteRateLimit:  getEnvInt("WRITE_RATE_LIMIT", 60),
			WriteRateWindow: getEnvDuration("WRITE_RATE_WINDOW", time.Minute),
		},

		Calendar: CalendarConfig{
			StartHour:          getEnvInt("CALENDAR_START_HOUR", 7),
			EndHour:            getEnvInt("CALENDAR_END_HOUR", 23),
			HourHeight:         getEnvFloat("CALENDAR_HOUR_HEIGHT", 48),
			MinDurationMinutes: getEnvInt("CALENDAR_MIN_DURATION", 30),
			CellCap:            getEnvInt("CALENDAR_CELL_CAP", 3),
			LayoutCacheTTL:     getEnvDuration("LAYOUT_CACHE_TTL", 10*time.Minute),
		},
	}

	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
		if cfg.IsDevelopment() {
			cfg.LogLevel = "debug"
		}
	}

	// Validate required fields in production. Case-insensitive check catches
	// common variants like "Production", "prod", etc.
	envLower := strings.ToLower(cfg.Env)
	if envLower == "production" || envLower == "prod" {
		if cfg.Admin.KeyHash == "" {
			return nil, fmt.Errorf("ADMIN_KEY_HASH is required in production")
		}
	}
	if cfg.Admin.KeyHash != "" && !strings.HasPrefix(cfg.Admin.KeyHash, "$2") {
		return nil, fmt.Errorf("ADMIN_KEY_HASH must be a bcrypt hash")
	}

	c := cfg.Calendar
	if c.StartHour < 0 || c.EndHour > 24 || c.StartHour >= c.EndHour {
		return nil, fmt.Errorf("CALENDAR_START_HOUR/CALENDAR_END_HOUR must satisfy 0 <= start < end <= 24, got %d-%d", c.StartHour, c.EndHour)
	}
	if c.HourHeight <= 0 {
		return nil, fmt.Errorf("CALENDAR_HOUR_HEIGHT must be positive")
	}
	if c.MinDurationMinutes < 0 {
		return nil, fmt.Errorf("CALENDAR_MIN_DURATION must not be negative")
	}

	return cfg, nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	env := strings.ToLower(c.Env)
	return env == "development" || env == "dev"
}

// --- Helper functions for reading environment variables ---

// getEnv reads a string env var or returns the default.
func getEnv(key, defaultVal string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return defaultVal
}

// getEnvInt reads an integer env var or returns the default.
func getEnvInt(key string, defaultVal int) int {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

// getEnvFloat reads a float env var or returns the default.
func getEnvFloat(key string, defaultVal float64) float64 {
	if val, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

// getEnvList reads a comma-separated env var or returns the default.
func getEnvList(key string, defaultVal []string) []string {
	val, ok := os.LookupEnv(key)
	if !ok {
		return defaultVal
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// getEnvDuration reads a duration env var (e.g., "720h") or returns the default.
func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}

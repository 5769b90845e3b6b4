package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Database drivers
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMongo    = "mongo"
)

// Config holds the server configuration
type Config struct {
	Environment string          `yaml:"environment"` // development or production
	Server      ServerConfig    `yaml:"server"`
	Database    DatabaseConfig  `yaml:"database"`
	JWT         JWTConfig       `yaml:"jwt"`
	Log         LogConfig       `yaml:"log"`
	Seed        SeedConfig      `yaml:"seed"`
	RateLimit   RateLimitConfig `yaml:"rate_limit"`
}

// ServerConfig configures the HTTP listener
type ServerConfig struct {
	Port            int           `yaml:"port"`
	CORSOrigins     []string      `yaml:"cors_origins"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	SecureCookies   bool          `yaml:"secure_cookies"`
}

// DatabaseConfig selects and configures the store
type DatabaseConfig struct {
	Driver       string `yaml:"driver"` // postgres, sqlite or mongo
	URL          string `yaml:"url"`
	MongoDB      string `yaml:"mongo_database"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
}

// JWTConfig configures access tokens
type JWTConfig struct {
	Secret    string        `yaml:"secret"`
	ExpiresIn time.Duration `yaml:"expires_in"`
	Issuer    string        `yaml:"issuer"`
}

// LogConfig configures the logger
type LogConfig struct {
	Level   string `yaml:"level"` // DEBUG, INFO, WARN, ERROR
	File    string `yaml:"file"`
	Console bool   `yaml:"console"`
	Format  string `yaml:"format"` // text or json
}

// SeedConfig controls the demo data endpoint
type SeedConfig struct {
	Enabled bool  `yaml:"enabled"`
	Value   int64 `yaml:"value"`
}

// RateLimitConfig limits the public auth endpoints per client IP
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled"`
	Rate    float64 `yaml:"rate"` // requests per second
	Burst   int     `yaml:"burst"`
}

// IsDevelopment reports whether the server runs in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "" || c.Environment == "development"
}

// Addr returns the listen address
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}

// Dir returns ~/.taskboard, or an empty string when there is no home directory
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ""
	}
	return filepath.Join(home, ".taskboard")
}

// DefaultConfig returns default settings
func DefaultConfig() *Config {
	dir := Dir()
	dbPath, logPath := "taskboard.db", ""
	if dir != "" {
		dbPath = filepath.Join(dir, "taskboard.db")
		logPath = filepath.Join(dir, "logs", "server.log")
	}

	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port:            3000,
			CORSOrigins:     []string{"http://localhost:5173"},
			ShutdownTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			Driver:       DriverSQLite,
			URL:          dbPath,
			MongoDB:      "taskboard",
			MaxOpenConns: 10,
			MaxIdleConns: 5,
		},
		JWT: JWTConfig{
			Secret:    "dev-secret-change-me",
			ExpiresIn: 7 * 24 * time.Hour,
			Issuer:    "taskboard",
		},
		Log: LogConfig{
			Level:   "INFO",
			File:    logPath,
			Console: true,
			Format:  "text",
		},
		Seed: SeedConfig{Enabled: true, Value: 42},
		RateLimit: RateLimitConfig{
			Enabled: true,
			Rate:    5,
			Burst:   10,
		},
	}
}

// Load reads configuration. path may be empty, in which case
// ~/.taskboard/server.yaml is used when it exists. Values from a .env file in
// the working directory and from the environment override the file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		if dir := Dir(); dir != "" {
			candidate := filepath.Join(dir, "server.yaml")
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
			}
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	// .env is optional; existing environment variables win over it
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	c.Environment = getEnv("NODE_ENV", getEnv("ENVIRONMENT", c.Environment))

	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		c.Server.Port = port
	}
	if v := os.Getenv("CORS_ORIGIN"); v != "" {
		c.Server.CORSOrigins = splitList(v)
	}
	c.Server.SecureCookies = getEnvBool("SECURE_COOKIES", c.Server.SecureCookies)

	c.Database.Driver = getEnv("DATABASE_DRIVER", c.Database.Driver)
	c.Database.URL = getEnv("DATABASE_URL", getEnv("MONGODB_URI", c.Database.URL))
	c.Database.MongoDB = getEnv("MONGO_DATABASE", c.Database.MongoDB)

	c.JWT.Secret = getEnv("JWT_SECRET", c.JWT.Secret)
	if v := os.Getenv("JWT_EXPIRES_IN"); v != "" {
		d, err := parseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid JWT_EXPIRES_IN %q: %w", v, err)
		}
		c.JWT.ExpiresIn = d
	}

	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.File = getEnv("LOG_FILE", c.Log.File)
	c.Log.Console = getEnvBool("LOG_CONSOLE", c.Log.Console)
	c.Log.Format = getEnv("LOG_FORMAT", c.Log.Format)

	c.Seed.Enabled = getEnvBool("SEED_ENABLED", c.Seed.Enabled)
	c.RateLimit.Enabled = getEnvBool("RATE_LIMIT_ENABLED", c.RateLimit.Enabled)
	return nil
}

// Validate checks the configuration for values the server cannot run with
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverPostgres, DriverSQLite, DriverMongo:
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}
	if c.Database.URL == "" {
		return fmt.Errorf("database url is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Server.Port)
	}
	if c.JWT.ExpiresIn <= 0 {
		return fmt.Errorf("jwt expires_in must be positive")
	}
	if !c.IsDevelopment() && (c.JWT.Secret == "" || c.JWT.Secret == DefaultConfig().JWT.Secret) {
		return fmt.Errorf("JWT_SECRET must be set outside development")
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("jwt secret is required")
	}
	if c.RateLimit.Enabled && c.RateLimit.Rate <= 0 {
		return fmt.Errorf("rate_limit.rate must be positive")
	}
	return nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultValue
	}
	return b
}

// parseDuration accepts Go durations plus the "7d" day form used in .env files
func parseDuration(s string) (time.Duration, error) {
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil {
			return 0, err
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	return time.ParseDuration(s)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

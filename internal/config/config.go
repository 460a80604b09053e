package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server   ServerConfig
	GRPC     GRPCConfig
	Worker   WorkerConfig
	Monitor  MonitorConfig
	DB       DatabaseConfig
	Forecast ForecastConfig
	Redis    RedisConfig
	Logging  LoggingConfig
}

type GRPCConfig struct {
	Port int
}

type ServerConfig struct {
	Host      string
	Port      int
	RateLimit float64
}

type WorkerConfig struct {
	Count      int
	BufferSize int
}

// MonitorConfig drives the simulated sensor cycle.
type MonitorConfig struct {
	Enabled  bool
	Interval time.Duration
	Seed     int64
}

type DatabaseConfig struct {
	Driver string
	Path   string
	DSN    string
}

// Source returns the data source name for the configured driver.
func (d DatabaseConfig) Source() string {
	if d.Driver == "pgx" {
		return d.DSN
	}
	return d.Path
}

type ForecastConfig struct {
	BundleTTL    time.Duration
	PeriodDays   int
	CadenceHours int
}

// RedisConfig is optional. An empty URL disables alert publishing.
type RedisConfig struct {
	URL     string
	Channel string
}

type LoggingConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:      getEnv("SERVER_HOST", "localhost"),
			Port:      getEnvInt("SERVER_PORT", 8080),
			RateLimit: getEnvFloat("SERVER_RATE_LIMIT", 20),
		},
		GRPC: GRPCConfig{
			Port: getEnvInt("GRPC_PORT", 50051),
		},
		Worker: WorkerConfig{
			Count:      getEnvInt("WORKER_COUNT", 2),
			BufferSize: getEnvInt("WORKER_BUFFER_SIZE", 20),
		},
		Monitor: MonitorConfig{
			Enabled:  getEnvBool("MONITOR_ENABLED", true),
			Interval: getEnvDuration("MONITOR_INTERVAL", time.Minute),
			Seed:     int64(getEnvInt("MONITOR_SEED", 0)),
		},
		DB: DatabaseConfig{
			Driver: getEnv("DB_DRIVER", "sqlite"),
			Path:   getEnv("DB_PATH", "./data/flood-alerts.db"),
			DSN:    getEnv("DB_DSN", ""),
		},
		Forecast: ForecastConfig{
			BundleTTL:    getEnvDuration("FORECAST_BUNDLE_TTL", time.Hour),
			PeriodDays:   getEnvInt("FORECAST_PERIOD_DAYS", 30),
			CadenceHours: getEnvInt("FORECAST_CADENCE_HOURS", 1),
		},
		Redis: RedisConfig{
			URL:     getEnv("REDIS_URL", ""),
			Channel: getEnv("REDIS_ALERT_CHANNEL", "flood:alerts"),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.GRPC.Port < 1 || c.GRPC.Port > 65535 {
		return fmt.Errorf("invalid grpc port: %d", c.GRPC.Port)
	}
	if c.Server.RateLimit <= 0 {
		return fmt.Errorf("rate limit must be positive: %v", c.Server.RateLimit)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}
	if c.Logging.Format != "json" && c.Logging.Format != "text" {
		return fmt.Errorf("invalid log format: %s", c.Logging.Format)
	}

	if c.Worker.Count < 1 {
		return fmt.Errorf("worker count must be at least 1")
	}
	if c.Worker.BufferSize < 0 {
		return fmt.Errorf("worker buffer size must not be negative")
	}

	if c.Monitor.Interval < time.Second {
		return fmt.Errorf("monitor interval must be at least 1 second")
	}

	switch c.DB.Driver {
	case "sqlite":
		if c.DB.Path == "" {
			return fmt.Errorf("DB_PATH is required for sqlite")
		}
	case "pgx":
		if c.DB.DSN == "" {
			return fmt.Errorf("DB_DSN is required for pgx")
		}
	default:
		return fmt.Errorf("unsupported db driver: %s", c.DB.Driver)
	}

	if c.Forecast.CadenceHours < 1 {
		return fmt.Errorf("forecast cadence must be at least 1 hour")
	}
	if c.Forecast.PeriodDays < 1 {
		return fmt.Errorf("forecast period must be at least 1 day")
	}
	if c.Forecast.BundleTTL < time.Minute {
		return fmt.Errorf("forecast bundle TTL must be at least 1 minute")
	}

	return nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return fallback
}

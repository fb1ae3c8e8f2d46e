package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/kapu/game-character-etl/internal/constants"
)

// Supported database drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	Paths    PathsConfig
	Scrape   ScrapeConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Pipeline PipelineConfig
	Console  ConsoleConfig
	Logging  LoggingConfig
}

type PathsConfig struct {
	InputDir        string
	WorkDir         string
	CatalogFile     string
	CorrectionsFile string
}

type ScrapeConfig struct {
	Throttle         bool
	DelayMin         time.Duration
	DelayMax         time.Duration
	Timeout          time.Duration
	BreakerThreshold int
	BreakerReset     time.Duration
}

type DatabaseConfig struct {
	Driver    string
	Host      string
	Port      int
	User      string
	Password  string
	SSLMode   string
	SQLiteDir string
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
	PageTTL  time.Duration
}

type PipelineConfig struct {
	Retries    int
	RetryDelay time.Duration
	Schedule   string
}

type ConsoleConfig struct {
	Addr         string
	QueryTimeout time.Duration
	MaxRows      int
}

type LoggingConfig struct {
	Level string
	File  string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Paths: PathsConfig{
			InputDir:        getEnv("INPUT_DIR", "data_input"),
			WorkDir:         getEnv("WORK_DIR", "temp"),
			CatalogFile:     getEnv("CATALOG_FILE", ""),
			CorrectionsFile: getEnv("CORRECTIONS_FILE", ""),
		},
		Scrape: ScrapeConfig{
			Throttle:         getEnvBool("SCRAPE_THROTTLE", true),
			DelayMin:         time.Duration(getEnvInt("SCRAPE_DELAY_MIN_SECONDS", int(constants.ScrapeConfig.DelayMin/time.Second))) * time.Second,
			DelayMax:         time.Duration(getEnvInt("SCRAPE_DELAY_MAX_SECONDS", int(constants.ScrapeConfig.DelayMax/time.Second))) * time.Second,
			Timeout:          time.Duration(getEnvInt("SCRAPE_TIMEOUT_SECONDS", int(constants.ScrapeConfig.Timeout/time.Second))) * time.Second,
			BreakerThreshold: getEnvInt("SCRAPE_BREAKER_THRESHOLD", constants.ScrapeConfig.BreakerThreshold),
			BreakerReset:     time.Duration(getEnvInt("SCRAPE_BREAKER_RESET_SECONDS", int(constants.ScrapeConfig.BreakerReset/time.Second))) * time.Second,
		},
		Database: DatabaseConfig{
			Driver:    strings.ToLower(getEnv("DB_DRIVER", DriverPostgres)),
			Host:      getEnv("POSTGRES_HOST", "localhost"),
			Port:      getEnvInt("POSTGRES_PORT", 5432),
			User:      getEnv("POSTGRES_USER", "postgres"),
			Password:  getEnv("POSTGRES_PASSWORD", getEnv("POSTGRES_MASTER_PASSW", "")),
			SSLMode:   getEnv("POSTGRES_SSLMODE", "disable"),
			SQLiteDir: getEnv("SQLITE_DIR", "data"),
		},
		Redis: RedisConfig{
			Enabled:  getEnvBool("REDIS_ENABLED", false),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
			PageTTL:  time.Duration(getEnvInt("PAGE_CACHE_TTL_MINUTES", int(constants.CacheTTL.Page/time.Minute))) * time.Minute,
		},
		Pipeline: PipelineConfig{
			Retries:    getEnvInt("PIPELINE_RETRIES", constants.RetryConfig.MaxRetries),
			RetryDelay: time.Duration(getEnvInt("PIPELINE_RETRY_DELAY_SECONDS", int(constants.RetryConfig.Delay/time.Second))) * time.Second,
			Schedule:   getEnv("PIPELINE_SCHEDULE", ""),
		},
		Console: ConsoleConfig{
			Addr:         getEnv("CONSOLE_ADDR", ":8080"),
			QueryTimeout: time.Duration(getEnvInt("CONSOLE_QUERY_TIMEOUT_SECONDS", int(constants.ConsoleConfig.QueryTimeout/time.Second))) * time.Second,
			MaxRows:      getEnvInt("CONSOLE_MAX_ROWS", constants.ConsoleConfig.MaxRows),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
			File:  getEnv("LOG_FILE", "logs/etl.log"),
		},
	}

	if cfg.Database.Password == "" {
		if path := getEnv("POSTGRES_PASSWORD_FILE", ""); path != "" {
			password, err := readSecretFile(path)
			if err != nil {
				return nil, err
			}
			cfg.Database.Password = password
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Paths.InputDir == "" {
		return fmt.Errorf("INPUT_DIR is required")
	}
	if c.Paths.WorkDir == "" {
		return fmt.Errorf("WORK_DIR is required")
	}
	if c.Scrape.DelayMin < 0 || c.Scrape.DelayMax < c.Scrape.DelayMin {
		return fmt.Errorf("SCRAPE_DELAY_MIN_SECONDS must be between 0 and SCRAPE_DELAY_MAX_SECONDS")
	}
	if c.Scrape.Timeout <= 0 {
		return fmt.Errorf("SCRAPE_TIMEOUT_SECONDS must be positive")
	}
	if c.Scrape.BreakerThreshold <= 0 {
		return fmt.Errorf("SCRAPE_BREAKER_THRESHOLD must be positive")
	}
	switch c.Database.Driver {
	case DriverPostgres:
		if c.Database.Host == "" {
			return fmt.Errorf("POSTGRES_HOST is required")
		}
	case DriverSQLite:
		if c.Database.SQLiteDir == "" {
			return fmt.Errorf("SQLITE_DIR is required")
		}
	default:
		return fmt.Errorf("unknown DB_DRIVER %q", c.Database.Driver)
	}
	if c.Pipeline.Retries < 0 {
		return fmt.Errorf("PIPELINE_RETRIES must not be negative")
	}
	if c.Console.QueryTimeout <= 0 {
		return fmt.Errorf("CONSOLE_QUERY_TIMEOUT_SECONDS must be positive")
	}
	if c.Console.MaxRows <= 0 {
		return fmt.Errorf("CONSOLE_MAX_ROWS must be positive")
	}
	return nil
}

// readSecretFile returns the first line of path, trimmed.
func readSecretFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read secret file: %w", err)
	}
	line, _, _ := strings.Cut(string(data), "\n")
	return strings.TrimSpace(line), nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

// ParseCommaSeparated splits a list flag or env value, dropping blanks.
func ParseCommaSeparated(value string) []string {
	if value == "" {
		return []string{}
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/javajoker/brawlrec-backend/internal/runlock"
	"github.com/javajoker/brawlrec-backend/internal/utils"
)

type Config struct {
	Environment string
	Server      ServerConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	Moxfield    MoxfieldConfig
	Ingestion   IngestionConfig
	Log         LogConfig
}

type ServerConfig struct {
	Port                 string
	Host                 string
	ReadTimeout          int
	WriteTimeout         int
	IdleTimeout          int
	AllowedOrigins       []string
	TriggerRatePerMinute int `validate:"min=1"`
}

type DatabaseConfig struct {
	Driver       string `validate:"oneof=postgres sqlite"`
	Host         string
	Port         string
	User         string
	Password     string
	Database     string
	SSLMode      string
	Path         string // sqlite file path, ":memory:" allowed
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  int
	LogLevel     string `validate:"oneof=silent error warn info"`
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	LockTTL  time.Duration
}

// Enabled reports whether a Redis address was configured.
func (r RedisConfig) Enabled() bool {
	return r.Addr != ""
}

type MoxfieldConfig struct {
	BaseURL        string        `validate:"required,url"`
	UserAgent      string        `validate:"required"`
	Format         string        `validate:"required"`
	RequestDelay   time.Duration `validate:"min=0"`
	RequestTimeout time.Duration `validate:"gt=0"`
	PageSize       int           `validate:"min=1,max=100"`
}

type IngestionConfig struct {
	MaxDecksPerRun int `validate:"min=1"`
}

type LogConfig struct {
	Level  string `validate:"log_level"`
	Format string `validate:"oneof=text json"`
}

func Load() (*Config, error) {
	// Load .env file if it exists
	godotenv.Load()

	environment := getEnv("ENVIRONMENT", "development")
	logFormat := "text"
	if environment == "production" {
		logFormat = "json"
	}

	config := &Config{
		Environment: environment,
		Server: ServerConfig{
			Port:                 getEnv("SERVER_PORT", "8080"),
			Host:                 getEnv("SERVER_HOST", "localhost"),
			ReadTimeout:          getEnvAsInt("SERVER_READ_TIMEOUT", 15),
			WriteTimeout:         getEnvAsInt("SERVER_WRITE_TIMEOUT", 15),
			IdleTimeout:          getEnvAsInt("SERVER_IDLE_TIMEOUT", 60),
			AllowedOrigins:       getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
			TriggerRatePerMinute: getEnvAsInt("TRIGGER_RATE_PER_MINUTE", 2),
		},
		Database: DatabaseConfig{
			Driver:       getEnv("DB_DRIVER", "postgres"),
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnv("DB_PORT", "5432"),
			User:         getEnv("DB_USER", "postgres"),
			Password:     getEnv("DB_PASSWORD", ""),
			Database:     getEnv("DB_NAME", "brawlrec"),
			SSLMode:      getEnv("DB_SSL_MODE", "disable"),
			Path:         getEnv("DB_PATH", "brawlrec.db"),
			MaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 25),
			MaxLifetime:  getEnvAsInt("DB_MAX_LIFETIME", 300),
			LogLevel:     getEnv("DB_LOG_LEVEL", "warn"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			LockTTL:  getEnvAsDuration("RUN_LOCK_TTL", runlock.DefaultTTL),
		},
		Moxfield: MoxfieldConfig{
			BaseURL:        getEnv("MOXFIELD_BASE_URL", "https://api.moxfield.com/v2"),
			UserAgent:      getEnv("MOXFIELD_USER_AGENT", "MoxKey; BrawlREC 1.0"),
			Format:         getEnv("MOXFIELD_FORMAT", "brawl"),
			RequestDelay:   time.Duration(getEnvAsInt("MOXFIELD_REQUEST_DELAY_MS", 500)) * time.Millisecond,
			RequestTimeout: getEnvAsDuration("MOXFIELD_REQUEST_TIMEOUT", 30*time.Second),
			PageSize:       getEnvAsInt("MOXFIELD_PAGE_SIZE", 64),
		},
		Ingestion: IngestionConfig{
			MaxDecksPerRun: getEnvAsInt("MAX_DECKS_PER_RUN", 1000),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", logFormat),
		},
	}

	return config, config.Validate()
}

func (c *Config) Validate() error {
	for name, section := range map[string]interface{}{
		"server":    c.Server,
		"database":  c.Database,
		"moxfield":  c.Moxfield,
		"ingestion": c.Ingestion,
		"log":       c.Log,
	} {
		if err := utils.ValidateStruct(section); err != nil {
			details := utils.GetValidationErrors(err)
			if len(details) == 0 {
				return fmt.Errorf("invalid %s config: %w", name, err)
			}
			messages := make([]string, 0, len(details))
			for _, d := range details {
				messages = append(messages, d.Message)
			}
			return fmt.Errorf("invalid %s config: %s", name, strings.Join(messages, "; "))
		}
	}

	if c.Database.Driver == "postgres" && c.Database.Password == "" && c.Environment == "production" {
		return fmt.Errorf("database password is required in production")
	}

	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Package config loads runtime settings from the environment, after merging
// an optional .env file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type DatabaseConfig struct {
	Driver          string // postgres, mysql or memory
	DSN             string // overrides the individual fields when set
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type StorageConfig struct {
	AWSRegion    string
	AWSAccessKey string
	AWSSecretKey string
	S3Bucket     string
	BaseURL      string
	UploadDir    string
}

// S3Enabled reports whether uploads go to S3 instead of the local disk.
func (c StorageConfig) S3Enabled() bool {
	return c.AWSRegion != "" && c.AWSAccessKey != "" && c.AWSSecretKey != "" && c.S3Bucket != ""
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

func (c SMTPConfig) Enabled() bool {
	return c.Host != "" && c.From != ""
}

type Config struct {
	Port    string
	GinMode string

	Database DatabaseConfig
	Storage  StorageConfig
	SMTP     SMTPConfig

	RedisURL       string
	SearchCacheTTL time.Duration

	JWTSecret string
	JWTTTL    time.Duration

	RatingResetOnEmpty bool

	RateLimitPerMinute int
	RateLimitBurst     int

	FirebaseServiceAccountPath string

	AMQPURL      string
	AMQPExchange string

	LogLevel  string
	LogFormat string

	NotificationRetention       time.Duration
	NotificationCleanupInterval time.Duration
}

// Load reads .env when present, then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:    getEnv("PORT", "8080"),
		GinMode: getEnv("GIN_MODE", "debug"),
		Database: DatabaseConfig{
			Driver:          strings.ToLower(getEnv("DB_DRIVER", "postgres")),
			DSN:             os.Getenv("DB_DSN"),
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "postgres"),
			Password:        os.Getenv("DB_PASSWORD"),
			Name:            getEnv("DB_NAME", "carpool"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
		},
		Storage: StorageConfig{
			AWSRegion:    os.Getenv("AWS_REGION"),
			AWSAccessKey: os.Getenv("AWS_ACCESS_KEY_ID"),
			AWSSecretKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
			S3Bucket:     os.Getenv("AWS_S3_BUCKET"),
			BaseURL:      getEnv("BASE_URL", "http://localhost:8080"),
			UploadDir:    getEnv("UPLOAD_DIR", "./uploads"),
		},
		SMTP: SMTPConfig{
			Host:     os.Getenv("SMTP_HOST"),
			Port:     getEnvInt("SMTP_PORT", 587),
			Username: os.Getenv("SMTP_USERNAME"),
			Password: os.Getenv("SMTP_PASSWORD"),
			From:     os.Getenv("EMAIL_FROM"),
		},
		RedisURL:                    os.Getenv("REDIS_URL"),
		SearchCacheTTL:              getEnvDuration("SEARCH_CACHE_TTL", 30*time.Second),
		JWTSecret:                   os.Getenv("JWT_SECRET"),
		JWTTTL:                      getEnvDuration("JWT_TTL", 24*time.Hour),
		RatingResetOnEmpty:          getEnvBool("RATING_RESET_ON_EMPTY", false),
		RateLimitPerMinute:          getEnvInt("RATE_LIMIT_PER_MINUTE", 120),
		RateLimitBurst:              getEnvInt("RATE_LIMIT_BURST", 20),
		FirebaseServiceAccountPath:  os.Getenv("FIREBASE_SERVICE_ACCOUNT_PATH"),
		AMQPURL:                     os.Getenv("AMQP_URL"),
		AMQPExchange:                getEnv("AMQP_EXCHANGE", "carpool.events"),
		LogLevel:                    getEnv("LOG_LEVEL", "info"),
		LogFormat:                   getEnv("LOG_FORMAT", "text"),
		NotificationRetention:       getEnvDuration("NOTIFICATION_RETENTION", 30*24*time.Hour),
		NotificationCleanupInterval: getEnvDuration("NOTIFICATION_CLEANUP_INTERVAL", time.Hour),
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	switch cfg.Database.Driver {
	case "postgres", "mysql", "memory":
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.Database.Driver)
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return n
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if b, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return b
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return d
	}
	return fallback
}

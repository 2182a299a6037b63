package config

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("DB_DRIVER", "")
	t.Setenv("RATING_RESET_ON_EMPTY", "")
	t.Setenv("SEARCH_CACHE_TTL", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.False(t, cfg.RatingResetOnEmpty)
	assert.Equal(t, 30*time.Second, cfg.SearchCacheTTL)
	assert.Equal(t, 24*time.Hour, cfg.JWTTTL)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("DB_DRIVER", "MySQL")
	t.Setenv("RATING_RESET_ON_EMPTY", "true")
	t.Setenv("SEARCH_CACHE_TTL", "2m")
	t.Setenv("RATE_LIMIT_PER_MINUTE", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "mysql", cfg.Database.Driver)
	assert.True(t, cfg.RatingResetOnEmpty)
	assert.Equal(t, 2*time.Minute, cfg.SearchCacheTTL)
	assert.Equal(t, 120, cfg.RateLimitPerMinute)
}

func TestLoadRejectsBadSettings(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("DB_DRIVER", "sqlite")
	_, err = Load()
	assert.Error(t, err)
}

func TestStorageAndSMTPToggles(t *testing.T) {
	assert.False(t, StorageConfig{AWSRegion: "eu-west-1"}.S3Enabled())
	assert.True(t, StorageConfig{AWSRegion: "eu-west-1", AWSAccessKey: "a", AWSSecretKey: "b", S3Bucket: "c"}.S3Enabled())
	assert.False(t, SMTPConfig{Host: "smtp.example.com"}.Enabled())
}

func TestNewLogger(t *testing.T) {
	log := (&Config{LogLevel: "debug", LogFormat: "json"}).NewLogger()
	assert.Equal(t, logrus.DebugLevel, log.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, log.Formatter)

	log = (&Config{LogLevel: "chatty"}).NewLogger()
	assert.Equal(t, logrus.InfoLevel, log.GetLevel())
}

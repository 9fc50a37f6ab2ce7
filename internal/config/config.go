// Package config provides configuration management for the application.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	RabbitMQ RabbitMQConfig
	Redis    RedisConfig
	Storage  StorageConfig
	Auth     AuthConfig
	Trending TrendingConfig
	Upload   UploadConfig
	Logging  LoggingConfig
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Port            int
	Mode            string
	ShutdownTimeout time.Duration
	AllowOrigins    []string
}

// DatabaseConfig contains database connection configuration.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type DatabaseConfig struct {
	Host           string
	Name           string
	User           string
	Password       string
	SSLMode        string
	Port           int
	MaxConnections int
	MinConnections int
	MaxIdleTime    time.Duration
	MaxLifetime    time.Duration
}

// URL returns the database connection string in URL form, as golang-migrate expects it.
func (d DatabaseConfig) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode)
}

// RabbitMQConfig contains RabbitMQ connection and queue configuration.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type RabbitMQConfig struct {
	Host            string
	User            string
	Password        string
	ResolutionQueue string
	TranscribeQueue string
	Port            int
	ConfirmTimeout  time.Duration
}

// RedisConfig contains the Redis connection used by the trending cache and the scheduler.
type RedisConfig struct {
	URL        string
	RankingKey string
}

// StorageConfig contains object store configuration.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type StorageConfig struct {
	Driver       string
	Endpoint     string
	AccessKey    string
	SecretKey    string
	Region       string
	UseSSL       bool
	UploadBucket string
	VideoBucket  string
	PhotoBucket  string
	CDNBaseURL   string
}

// AuthConfig contains session token configuration.
type AuthConfig struct {
	JWTSecret    string
	TokenTTL     time.Duration
	CookieName   string
	CookieDomain string
	CookieSecure bool
}

// TrendingConfig contains trending refresh scheduling.
type TrendingConfig struct {
	Interval    time.Duration
	Concurrency int
}

// UploadConfig bounds multipart uploads.
type UploadConfig struct {
	MaxVideoSize      int64
	MaxImageSize      int64
	MaxThumbnails     int
	MaxSubtitleSize   int64
	MultipartMemLimit int64
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level string
	File  string
}

// Load loads configuration from file and environment variables.
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	setDefaults()

	viper.SetEnvPrefix("APP")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found, use defaults and env vars
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate reports configuration that would make the server unusable.
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwtsecret must be set")
	}
	switch c.Storage.Driver {
	case "minio", "s3", "memory":
	default:
		return fmt.Errorf("storage.driver must be 'minio', 's3' or 'memory', got %q", c.Storage.Driver)
	}
	if c.Trending.Interval <= 0 {
		return fmt.Errorf("trending.interval must be positive")
	}
	if c.Upload.MaxThumbnails <= 0 {
		return fmt.Errorf("upload.maxthumbnails must be positive")
	}
	return nil
}

func setDefaults() {
	// Server
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.mode", "release")
	viper.SetDefault("server.shutdowntimeout", 30*time.Second)
	viper.SetDefault("server.alloworigins", []string{"http://localhost:5173"})

	// Database
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.name", "fairpipe")
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "postgres")
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("database.maxconnections", 10)
	viper.SetDefault("database.minconnections", 2)
	viper.SetDefault("database.maxidletime", 10*time.Minute)
	viper.SetDefault("database.maxlifetime", 1*time.Hour)

	// RabbitMQ
	viper.SetDefault("rabbitmq.host", "localhost")
	viper.SetDefault("rabbitmq.port", 5672)
	viper.SetDefault("rabbitmq.user", "guest")
	viper.SetDefault("rabbitmq.password", "guest")
	viper.SetDefault("rabbitmq.resolutionqueue", "resolution_jobs")
	viper.SetDefault("rabbitmq.transcribequeue", "transcribe_jobs")
	viper.SetDefault("rabbitmq.confirmtimeout", 5*time.Second)

	// Redis
	viper.SetDefault("redis.url", "redis://localhost:6379/0")
	viper.SetDefault("redis.rankingkey", "sortedVids")

	// Storage
	viper.SetDefault("storage.driver", "minio")
	viper.SetDefault("storage.endpoint", "localhost:9000")
	viper.SetDefault("storage.accesskey", "minioadmin")
	viper.SetDefault("storage.secretkey", "minioadmin")
	viper.SetDefault("storage.region", "us-east-1")
	viper.SetDefault("storage.usessl", false)
	viper.SetDefault("storage.uploadbucket", "upload")
	viper.SetDefault("storage.videobucket", "video")
	viper.SetDefault("storage.photobucket", "photo")
	viper.SetDefault("storage.cdnbaseurl", "http://localhost:9000")

	// Auth
	viper.SetDefault("auth.jwtsecret", "")
	viper.SetDefault("auth.tokenttl", 7*24*time.Hour)
	viper.SetDefault("auth.cookiename", "session")
	viper.SetDefault("auth.cookiedomain", "")
	viper.SetDefault("auth.cookiesecure", false)

	// Trending
	viper.SetDefault("trending.interval", 60*time.Second)
	viper.SetDefault("trending.concurrency", 2)

	// Upload
	viper.SetDefault("upload.maxvideosize", 2<<30)       // 2GB
	viper.SetDefault("upload.maximagesize", 10<<20)      // 10MB
	viper.SetDefault("upload.maxsubtitlesize", 2<<20)    // 2MB
	viper.SetDefault("upload.multipartmemlimit", 32<<20) // 32MB
	viper.SetDefault("upload.maxthumbnails", 5)

	// Logging
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.file", "")
}

package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all service configuration. It is resolved once at start-up
// from defaults, an optional .env file and the environment.
type Config struct {
	Port              string        `mapstructure:"port"`
	MongoURI          string        `mapstructure:"mongo_uri"`
	MongoDB           string        `mapstructure:"mongo_db"`
	RedisAddr         string        `mapstructure:"redis_addr"`
	RedisPassword     string        `mapstructure:"redis_password"`
	MinioEndpoint     string        `mapstructure:"minio_endpoint"`
	MinioAccessKey    string        `mapstructure:"minio_access_key"`
	MinioSecretKey    string        `mapstructure:"minio_secret_key"`
	MinioBucket       string        `mapstructure:"minio_bucket"`
	MinioUseSSL       bool          `mapstructure:"minio_use_ssl"`
	MinioPublicURL    string        `mapstructure:"minio_public_url"`
	JWTSecret         string        `mapstructure:"jwt_secret"`
	TokenTTL          time.Duration `mapstructure:"token_ttl"`
	ReconcileInterval time.Duration `mapstructure:"reconcile_interval"`
	StatsCacheTTL     time.Duration `mapstructure:"stats_cache_ttl"`
	MaxImageBytes     int64         `mapstructure:"max_image_bytes"`
	AllowedOrigins    []string      `mapstructure:"allowed_origins"`
	LogLevel          string        `mapstructure:"log_level"`
}

// Load reads configuration. A missing .env file is not an error.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.AllowedOrigins = splitList(cfg.AllowedOrigins)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the service cannot run safely with.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("config: JWT_SECRET is required")
	}
	if c.MongoURI == "" {
		return errors.New("config: MONGO_URI is required")
	}
	if c.TokenTTL < 0 {
		return errors.New("config: TOKEN_TTL must not be negative")
	}
	if c.ReconcileInterval <= 0 {
		return errors.New("config: RECONCILE_INTERVAL must be positive")
	}
	if c.StatsCacheTTL <= 0 {
		return errors.New("config: STATS_CACHE_TTL must be positive")
	}
	if c.MaxImageBytes <= 0 {
		return errors.New("config: MAX_IMAGE_BYTES must be positive")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "3000")
	v.SetDefault("mongo_uri", "")
	v.SetDefault("mongo_db", "blog")
	v.SetDefault("redis_addr", "redis:6379")
	v.SetDefault("redis_password", "")
	v.SetDefault("minio_endpoint", "minio:9000")
	v.SetDefault("minio_access_key", "")
	v.SetDefault("minio_secret_key", "")
	v.SetDefault("minio_bucket", "nimi-blog")
	v.SetDefault("minio_use_ssl", false)
	v.SetDefault("minio_public_url", "")
	v.SetDefault("jwt_secret", "")
	v.SetDefault("token_ttl", "0s")
	v.SetDefault("reconcile_interval", "10m")
	v.SetDefault("stats_cache_ttl", "1m")
	v.SetDefault("max_image_bytes", 5<<20)
	v.SetDefault("allowed_origins", "http://localhost:5173,http://localhost:3000")
	v.SetDefault("log_level", "info")
}

// splitList accepts both a YAML-style list and a single comma separated value.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Storage drivers understood by storage.New.
const (
	DriverS3     = "s3"
	DriverCompat = "compat"
	DriverLocal  = "local"
)

// DefaultAllowedExtensions is the media allow-list used when BACKUP_ALLOWED_EXTENSIONS is unset.
var DefaultAllowedExtensions = []string{
	".jpg", ".jpeg", ".png", ".gif", ".webp", ".avif", ".svg", ".ico",
	".mp4", ".webm", ".mov", ".mp3", ".pdf",
}

type Config struct {
	Storage  StorageConfig
	Backup   BackupConfig
	CDN      CDNConfig
	Sync     SyncConfig
	Lock     LockConfig
	Database DatabaseConfig
	Server   ServerConfig
	Log      LogConfig
}

type StorageConfig struct {
	Driver         string
	Bucket         string
	Region         string
	Endpoint       string
	AccessKey      string
	SecretKey      string
	SessionToken   string
	UseSSL         bool
	ForcePathStyle bool
	LocalRoot      string
}

type BackupConfig struct {
	Root              string
	Prefix            string
	MaxBackups        int
	AllowedExtensions []string
}

type CDNConfig struct {
	DistributionID string
}

type SyncConfig struct {
	SourceDir   string
	KeyPrefix   string
	Concurrency int
}

type LockConfig struct {
	Enabled       bool
	RedisURL      string
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int
	TTLSeconds    int
}

type DatabaseConfig struct {
	URL string
}

type ServerConfig struct {
	Port           string
	Mode           string
	ReadTimeout    int
	WriteTimeout   int
	AllowedOrigins []string
}

type LogConfig struct {
	Level string
}

var (
	once     sync.Once
	instance *Config
)

// Load reads .env (when present) and the process environment once and
// returns the memoized configuration.
func Load() *Config {
	once.Do(func() {
		// Load .env file if it exists
		_ = godotenv.Load()

		v := viper.New()
		// Read from environment variables
		v.AutomaticEnv()
		instance = FromViper(v)
	})

	return instance
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("STORAGE_DRIVER", DriverS3)
	v.SetDefault("S3_BUCKET", "")
	v.SetDefault("AWS_REGION", "us-east-1")
	v.SetDefault("S3_ENDPOINT", "")
	v.SetDefault("S3_USE_SSL", true)
	v.SetDefault("S3_FORCE_PATH_STYLE", false)
	v.SetDefault("STORAGE_LOCAL_ROOT", "./data/bucket")
	v.SetDefault("BACKUP_ROOT", "backups")
	v.SetDefault("S3_BACKUP_PREFIX", "")
	v.SetDefault("S3_MAX_BACKUPS", 5)
	v.SetDefault("BACKUP_ALLOWED_EXTENSIONS", strings.Join(DefaultAllowedExtensions, ","))
	v.SetDefault("CLOUDFRONT_DISTRIBUTION_ID", "")
	v.SetDefault("SYNC_SOURCE_DIR", "public")
	v.SetDefault("SYNC_KEY_PREFIX", "")
	v.SetDefault("SYNC_CONCURRENCY", 8)
	v.SetDefault("LOCK_ENABLED", false)
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("REDIS_HOST", "127.0.0.1")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("LOCK_TTL_SECONDS", 3600)
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("SERVER_MODE", "release")
	v.SetDefault("SERVER_READ_TIMEOUT", 15)
	v.SetDefault("SERVER_WRITE_TIMEOUT", 15)
	v.SetDefault("SERVER_ALLOWED_ORIGINS", "*")
	v.SetDefault("LOG_LEVEL", "info")
}

// FromViper builds a Config from v after registering defaults.
func FromViper(v *viper.Viper) *Config {
	SetDefaults(v)

	return &Config{
		Storage: StorageConfig{
			Driver:         strings.ToLower(strings.TrimSpace(v.GetString("STORAGE_DRIVER"))),
			Bucket:         strings.TrimSpace(v.GetString("S3_BUCKET")),
			Region:         strings.TrimSpace(v.GetString("AWS_REGION")),
			Endpoint:       strings.TrimSpace(v.GetString("S3_ENDPOINT")),
			AccessKey:      v.GetString("AWS_ACCESS_KEY_ID"),
			SecretKey:      v.GetString("AWS_SECRET_ACCESS_KEY"),
			SessionToken:   v.GetString("AWS_SESSION_TOKEN"),
			UseSSL:         v.GetBool("S3_USE_SSL"),
			ForcePathStyle: v.GetBool("S3_FORCE_PATH_STYLE"),
			LocalRoot:      v.GetString("STORAGE_LOCAL_ROOT"),
		},
		Backup: BackupConfig{
			Root:              v.GetString("BACKUP_ROOT"),
			Prefix:            v.GetString("S3_BACKUP_PREFIX"),
			MaxBackups:        v.GetInt("S3_MAX_BACKUPS"),
			AllowedExtensions: splitList(v.GetString("BACKUP_ALLOWED_EXTENSIONS")),
		},
		CDN: CDNConfig{
			DistributionID: strings.TrimSpace(v.GetString("CLOUDFRONT_DISTRIBUTION_ID")),
		},
		Sync: SyncConfig{
			SourceDir:   v.GetString("SYNC_SOURCE_DIR"),
			KeyPrefix:   v.GetString("SYNC_KEY_PREFIX"),
			Concurrency: v.GetInt("SYNC_CONCURRENCY"),
		},
		Lock: LockConfig{
			Enabled:       v.GetBool("LOCK_ENABLED"),
			RedisURL:      v.GetString("REDIS_URL"),
			RedisHost:     v.GetString("REDIS_HOST"),
			RedisPort:     v.GetString("REDIS_PORT"),
			RedisPassword: v.GetString("REDIS_PASSWORD"),
			RedisDB:       v.GetInt("REDIS_DB"),
			TTLSeconds:    v.GetInt("LOCK_TTL_SECONDS"),
		},
		Database: DatabaseConfig{
			URL: v.GetString("DATABASE_URL"),
		},
		Server: ServerConfig{
			Port:           v.GetString("SERVER_PORT"),
			Mode:           v.GetString("SERVER_MODE"),
			ReadTimeout:    v.GetInt("SERVER_READ_TIMEOUT"),
			WriteTimeout:   v.GetInt("SERVER_WRITE_TIMEOUT"),
			AllowedOrigins: splitList(v.GetString("SERVER_ALLOWED_ORIGINS")),
		},
		Log: LogConfig{
			Level: v.GetString("LOG_LEVEL"),
		},
	}
}

// Validate reports configuration errors that make storage work impossible.
func (c *Config) Validate() error {
	var errs []error
	switch c.Storage.Driver {
	case DriverS3, DriverCompat:
		if c.Storage.Bucket == "" {
			errs = append(errs, errors.New("S3_BUCKET is required"))
		}
	case DriverLocal:
		if c.Storage.LocalRoot == "" {
			errs = append(errs, errors.New("STORAGE_LOCAL_ROOT is required for the local driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORAGE_DRIVER %q", c.Storage.Driver))
	}
	if c.Storage.Driver == DriverCompat {
		if c.Storage.Endpoint == "" {
			errs = append(errs, errors.New("S3_ENDPOINT is required for the compat driver"))
		}
		if c.Storage.AccessKey == "" || c.Storage.SecretKey == "" {
			errs = append(errs, errors.New("AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY are required for the compat driver"))
		}
	}
	if c.Backup.MaxBackups < 0 {
		errs = append(errs, fmt.Errorf("S3_MAX_BACKUPS must not be negative, got %d", c.Backup.MaxBackups))
	}
	if c.Sync.Concurrency < 0 {
		errs = append(errs, fmt.Errorf("SYNC_CONCURRENCY must not be negative, got %d", c.Sync.Concurrency))
	}
	return errors.Join(errs...)
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		out = append(out, trimmed)
	}
	return out
}

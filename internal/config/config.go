package config

import (
	"fmt"
	"net"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	AppEnv   string `envconfig:"APP_ENV" default:"development"`
	GinMode  string `envconfig:"GIN_MODE" default:"debug"`
	Port     uint   `envconfig:"PORT" default:"8080"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// Database
	DBDriver           string        `envconfig:"DB_DRIVER" default:"mysql"`
	DBHost             string        `envconfig:"DB_HOST" default:"localhost"`
	DBPort             string        `envconfig:"DB_PORT" default:"3306"`
	DBUser             string        `envconfig:"DB_USER" default:"relief"`
	DBPassword         string        `envconfig:"DB_PASSWORD" default:"reliefpassword"`
	DBName             string        `envconfig:"DB_NAME" default:"relief_management"`
	DBDSN              string        `envconfig:"DB_DSN"`
	SlowQueryThreshold time.Duration `envconfig:"SLOW_QUERY_THRESHOLD" default:"200ms"`

	// Sessions
	RedisHost     string `envconfig:"REDIS_HOST"`
	RedisPort     string `envconfig:"REDIS_PORT" default:"6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	SessionSecret string `envconfig:"SESSION_SECRET" default:"default-secret-key-change-me"`

	AllowedOrigins []string `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:3000"`

	// Backup
	BackupDir        string        `envconfig:"BACKUP_DIR" default:"./backups"`
	SnapshotStore    string        `envconfig:"SNAPSHOT_STORE" default:"local"`
	SnapshotS3Bucket string        `envconfig:"SNAPSHOT_S3_BUCKET"`
	SnapshotS3Region string        `envconfig:"SNAPSHOT_S3_REGION"`
	SnapshotS3Prefix string        `envconfig:"SNAPSHOT_S3_PREFIX" default:"snapshots/"`
	ImportLock       string        `envconfig:"IMPORT_LOCK" default:"local"`
	ImportLockTTL    time.Duration `envconfig:"IMPORT_LOCK_TTL" default:"10m"`
	MaxImportBytes   int64         `envconfig:"MAX_IMPORT_BYTES" default:"67108864"`
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg := new(Config)
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("process environment config: %w", err)
	}

	switch cfg.DBDriver {
	case "mysql", "postgres", "sqlite":
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}

	switch cfg.SnapshotStore {
	case "local":
	case "s3":
		if cfg.SnapshotS3Bucket == "" || cfg.SnapshotS3Region == "" {
			return nil, fmt.Errorf("SNAPSHOT_STORE=s3 requires SNAPSHOT_S3_BUCKET and SNAPSHOT_S3_REGION")
		}
	default:
		return nil, fmt.Errorf("unsupported SNAPSHOT_STORE %q", cfg.SnapshotStore)
	}

	switch cfg.ImportLock {
	case "local":
	case "redis":
		if cfg.RedisHost == "" {
			return nil, fmt.Errorf("IMPORT_LOCK=redis requires REDIS_HOST")
		}
	default:
		return nil, fmt.Errorf("unsupported IMPORT_LOCK %q", cfg.ImportLock)
	}

	return cfg, nil
}

// IsProduction reports whether the server runs in gin release mode.
func (c *Config) IsProduction() bool {
	return c.GinMode == "release"
}

// RedisAddr returns host:port for the redis server, or "" when redis is not configured.
func (c *Config) RedisAddr() string {
	if c.RedisHost == "" {
		return ""
	}
	return net.JoinHostPort(c.RedisHost, c.RedisPort)
}

// DSN returns the driver-specific connection string. DB_DSN wins when set.
func (c *Config) DSN() string {
	if c.DBDSN != "" {
		return c.DBDSN
	}

	switch c.DBDriver {
	case "postgres":
		return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
			c.DBHost,
			c.DBPort,
			c.DBUser,
			c.DBPassword,
			c.DBName,
		)
	case "sqlite":
		return fmt.Sprintf("file:%s.db?_foreign_keys=on", c.DBName)
	default:
		return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
			c.DBUser,
			c.DBPassword,
			c.DBHost,
			c.DBPort,
			c.DBName,
		)
	}
}

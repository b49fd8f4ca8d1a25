package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_NAME", "relief_test")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "local", cfg.SnapshotStore)
	assert.Equal(t, "local", cfg.ImportLock)
	assert.Equal(t, 10*time.Minute, cfg.ImportLockTTL)
	assert.Equal(t, int64(64<<20), cfg.MaxImportBytes)
	assert.Equal(t, "file:relief_test.db?_foreign_keys=on", cfg.DSN())
	assert.False(t, cfg.IsProduction())
}

func TestLoad_Rejects(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown driver", map[string]string{"DB_DRIVER": "oracle"}},
		{"s3 without bucket", map[string]string{"DB_DRIVER": "sqlite", "SNAPSHOT_STORE": "s3"}},
		{"unknown store", map[string]string{"DB_DRIVER": "sqlite", "SNAPSHOT_STORE": "ftp"}},
		{"redis lock without redis", map[string]string{"DB_DRIVER": "sqlite", "IMPORT_LOCK": "redis", "REDIS_HOST": ""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestConfig_DSNAndRedis(t *testing.T) {
	cfg := &Config{
		DBDriver:   "postgres",
		DBHost:     "db",
		DBPort:     "5432",
		DBUser:     "relief",
		DBPassword: "secret",
		DBName:     "relief",
		RedisPort:  "6379",
	}
	assert.Equal(t, "host=db port=5432 user=relief password=secret dbname=relief sslmode=disable", cfg.DSN())
	assert.Equal(t, "", cfg.RedisAddr())

	cfg.RedisHost = "cache"
	assert.Equal(t, "cache:6379", cfg.RedisAddr())

	cfg.DBDSN = "postgres://override"
	assert.Equal(t, "postgres://override", cfg.DSN())
}

package main

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/yukikurage/relief-management-api/internal/access"
	"github.com/yukikurage/relief-management-api/internal/backup"
	"github.com/yukikurage/relief-management-api/internal/config"
	"github.com/yukikurage/relief-management-api/internal/database"
	"github.com/yukikurage/relief-management-api/internal/models"
	"gorm.io/gorm"
)

// app is the state shared by every command.
type app struct {
	cfg   *config.Config
	log   *logrus.Logger
	db    *gorm.DB
	redis *redis.Client
}

func newLogger(cfg *config.Config) *logrus.Logger {
	log := logrus.New()
	if cfg.IsProduction() {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	}
	return log
}

// setup loads the configuration and opens the database.
func setup() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	log := newLogger(cfg)

	db, err := database.Connect(cfg, log)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, log: log, db: db}
	if addr := cfg.RedisAddr(); addr != "" {
		a.redis = redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: cfg.RedisPassword,
		})
	}
	return a, nil
}

func (a *app) Close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.WithError(err).Warn("failed to close redis client")
		}
	}
	if sqlDB, err := a.db.DB(); err == nil {
		sqlDB.Close()
	}
}

// backupService builds the backup service from configuration.
func (a *app) backupService(ctx context.Context, gate *backup.Gate) (*backup.Service, error) {
	store, err := backup.NewSnapshotStore(ctx, backup.StoreConfig{
		Kind:   a.cfg.SnapshotStore,
		Dir:    a.cfg.BackupDir,
		Bucket: a.cfg.SnapshotS3Bucket,
		Region: a.cfg.SnapshotS3Region,
		Prefix: a.cfg.SnapshotS3Prefix,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot store: %w", err)
	}

	var lock backup.ImportLock
	if a.cfg.ImportLock == "redis" {
		if a.redis == nil {
			return nil, fmt.Errorf("IMPORT_LOCK=redis requires REDIS_HOST")
		}
		lock = backup.NewRedisLock(a.redis, a.cfg.ImportLockTTL, a.log)
	} else {
		lock = backup.NewLocalLock()
	}

	return backup.NewService(a.db, backup.Config{
		Store:          store,
		Lock:           lock,
		Gate:           gate,
		MaxImportBytes: a.cfg.MaxImportBytes,
	}, a.log)
}

// operator is the identity of whoever runs the command line on the server host.
var operator = &access.Identity{Username: "cli", Role: models.RoleSuperAdmin}

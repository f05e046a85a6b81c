// Package store persists reels, run logs and tracked sources with gorm.
package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"reelscraper/pkg/config"
	errs "reelscraper/pkg/errors"
	"reelscraper/pkg/logger"
	"reelscraper/pkg/models"
	"reelscraper/pkg/retry"
)

// ErrRunLogNotFound is returned when a run log does not exist or is no
// longer running.
var ErrRunLogNotFound = errors.New("run log not found or not running")

// Store is the single database handle shared by every component.
type Store struct {
	db     *gorm.DB
	logger logger.Logger
}

// Open connects to cfg.URL, tunes the pool, waits for the database to
// answer and migrates the schema.
func Open(ctx context.Context, cfg config.DatabaseConfig, log logger.Logger) (*Store, error) {
	if log == nil {
		log = logger.GetLogger()
	}
	log = log.WithField("component", "store")

	dialector, err := dialectorFor(cfg.URL)
	if err != nil {
		return nil, err
	}

	// gorm.Open pings postgres itself
	db, err := retry.DoWithResult(func() (*gorm.DB, error) {
		db, err := gorm.Open(dialector, &gorm.Config{Logger: gormLogger(log)})
		if err != nil {
			return nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
		if err := sqlDB.PingContext(ctx); err != nil {
			_ = sqlDB.Close()
			return nil, err
		}
		return db, nil
	}, &retry.Config{
		MaxAttempts: max(cfg.ConnectAttempts, 1),
		Backoff:     retry.DefaultExponentialBackoff(),
		RetryIf:     retry.Always,
		Context:     ctx,
		Op:          "store.connect",
		Logger:      log,
	})
	if err != nil {
		return nil, errs.Wrap("store.open", errs.ErrorTypeDatabase, err)
	}

	s := &Store{db: db, logger: log}
	if err := s.AutoMigrate(); err != nil {
		_ = s.Close()
		return nil, err
	}

	log.InfoWithFields("Database ready", map[string]interface{}{
		"driver":         dialector.Name(),
		"max_open_conns": cfg.MaxOpenConns,
		"max_idle_conns": cfg.MaxIdleConns,
	})
	return s, nil
}

// New wraps an already opened gorm handle.
func New(db *gorm.DB, log logger.Logger) *Store {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Store{db: db, logger: log.WithField("component", "store")}
}

func dialectorFor(url string) (gorm.Dialector, error) {
	switch {
	case strings.HasPrefix(url, "sqlite://"):
		path := strings.TrimPrefix(url, "sqlite://")
		if path != ":memory:" && !strings.HasPrefix(path, "file:") {
			if dir := filepath.Dir(path); dir != "." {
				if err := os.MkdirAll(dir, 0755); err != nil {
					return nil, errs.Wrap("store.open", errs.ErrorTypeDatabase, err)
				}
			}
		}
		return sqlite.Open(path), nil
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		return postgres.Open(url), nil
	default:
		return nil, errs.New("store.open", errs.ErrorTypeConfig, fmt.Sprintf("unsupported database URL format: %s", url))
	}
}

func gormLogger(log logger.Logger) gormlogger.Interface {
	if log.GetZerolog().GetLevel() <= zerolog.DebugLevel {
		return gormlogger.Default.LogMode(gormlogger.Info)
	}
	return gormlogger.Default.LogMode(gormlogger.Warn)
}

// AutoMigrate creates or updates every table.
func (s *Store) AutoMigrate() error {
	err := s.db.AutoMigrate(
		&models.User{},
		&models.Project{},
		&models.Competitor{},
		&models.Hashtag{},
		&models.Reel{},
		&models.RunLog{},
	)
	return errs.Wrap("store.migrate", errs.ErrorTypeDatabase, err)
}

// DB exposes the gorm handle.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Close releases the connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) withCtx(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

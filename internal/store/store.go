// Package store persists locations, geocoding searches and weather history
// with gorm.  PostgreSQL is used when the DSN looks like a Postgres URL or
// keyword string; anything else is treated as a SQLite file path.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/i474232898/weather-lookup/internal/common"
	"github.com/i474232898/weather-lookup/internal/weather"
)

const DefaultSQLitePath = "weather.db"

// Options configures the connection pool and query logging.
type Options struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	// LogQueries enables gorm's SQL logger at info level.
	LogQueries bool
	Logger     *zap.Logger
}

// Store implements the location, search and weather stores on one gorm
// handle.
type Store struct {
	db  *gorm.DB
	log *zap.SugaredLogger
}

// Open connects to dsn, registers the metrics plugin and configures the pool.
func Open(dsn string, opts Options) (*Store, error) {
	logLevel := gormlogger.Silent
	if opts.LogQueries {
		logLevel = gormlogger.Info
	}
	cfg := &gorm.Config{
		Logger:                                   gormlogger.Default.LogMode(logLevel),
		DisableForeignKeyConstraintWhenMigrating: true,
		NowFunc:                                  func() time.Time { return time.Now().UTC() },
	}

	dialector, driver := dialectorFor(dsn)
	db, err := gorm.Open(dialector, cfg)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", driver, err)
	}

	s := New(db, opts.Logger)
	if err := db.Use(&MetricsPlugin{}); err != nil {
		s.log.Warnw("failed to register gorm metrics plugin", "err", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}
	if driver == "sqlite" && isMemorySQLite(dsn) {
		// every new connection would get its own empty database
		sqlDB.SetMaxOpenConns(1)
	} else if opts.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}

	s.log.Infow("database connected", "driver", driver)
	return s, nil
}

// New wraps an existing gorm handle.
func New(db *gorm.DB, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{db: db, log: log.Sugar().Named("store")}
}

// Migrate creates or updates the schema.
func (s *Store) Migrate() error {
	if err := s.db.AutoMigrate(
		&weather.Location{},
		&weather.GeocodeSearch{},
		&weather.WeatherData{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func dialectorFor(dsn string) (gorm.Dialector, string) {
	if isPostgresDSN(dsn) {
		return postgres.Open(dsn), "postgres"
	}
	if dsn == "" {
		dsn = DefaultSQLitePath
	}
	return sqlite.Open(dsn), "sqlite"
}

func isPostgresDSN(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") ||
		strings.HasPrefix(dsn, "postgresql://") ||
		common.HasAny(dsn, "host=", "dbname=")
}

func isMemorySQLite(dsn string) bool {
	return common.HasAny(dsn, ":memory:", "mode=memory")
}

// notFound maps gorm's miss to the domain sentinel.
func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return weather.ErrNotFound
	}
	return err
}

func dbTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

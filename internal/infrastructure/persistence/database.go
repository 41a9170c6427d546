package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/erp/production/internal/infrastructure/config"
	"github.com/erp/production/internal/infrastructure/logger"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const sqliteMemory = ":memory:"

// Database is an open GORM handle plus the pool underneath it.
type Database struct {
	DB     *gorm.DB
	Driver string
	pool   *sql.DB
}

// Option adjusts how Open configures GORM.
type Option func(*gorm.Config)

// WithZapLogger routes GORM statement logs through zap at level, flagging
// statements slower than slow.
func WithZapLogger(log *zap.Logger, level gormlogger.LogLevel, slow time.Duration) Option {
	return func(c *gorm.Config) {
		c.Logger = logger.NewGormLogger(log, level, logger.WithSlowThreshold(slow))
	}
}

// Open connects to the configured database and verifies it answers a ping.
// GORM logging is silent unless an option installs a logger.
func Open(cfg *config.DatabaseConfig, opts ...Option) (*Database, error) {
	dialector, err := dialectorFor(cfg)
	if err != nil {
		return nil, err
	}

	gormCfg := &gorm.Config{
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
		SkipDefaultTransaction: true,
		TranslateError:         true,
		PrepareStmt:            cfg.Driver != config.DriverSQLite,
	}
	for _, opt := range opts {
		opt(gormCfg)
	}

	gdb, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	pool, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	configurePool(pool, cfg)

	if err := pool.Ping(); err != nil {
		_ = pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &Database{DB: gdb, Driver: cfg.Driver, pool: pool}, nil
}

func dialectorFor(cfg *config.DatabaseConfig) (gorm.Dialector, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		return sqlite.Open(sqliteDSN(cfg.DSN())), nil
	case config.DriverPostgres, "":
		return postgres.Open(cfg.DSN()), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

func configurePool(pool *sql.DB, cfg *config.DatabaseConfig) {
	if cfg.Driver == config.DriverSQLite && cfg.SQLitePath == sqliteMemory {
		// each connection would see its own empty in-memory database
		pool.SetMaxOpenConns(1)
		return
	}
	pool.SetMaxOpenConns(cfg.MaxOpenConns)
	pool.SetMaxIdleConns(cfg.MaxIdleConns)
	pool.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Minute)
	pool.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTime) * time.Minute)
}

// sqliteDSN opens file databases in WAL mode with immediate transactions.
// sqlite ignores FOR UPDATE; BEGIN IMMEDIATE takes the write lock up front,
// so stock-moving transactions serialize while plain reads keep going.
func sqliteDSN(path string) string {
	if path == sqliteMemory || strings.Contains(path, "?") {
		return path
	}
	return "file:" + path + "?_journal_mode=WAL&_busy_timeout=5000&_txlock=immediate&_foreign_keys=1"
}

func (d *Database) Close() error {
	return d.pool.Close()
}

// Ping checks the database answers within ctx.
func (d *Database) Ping(ctx context.Context) error {
	return d.pool.PingContext(ctx)
}

// Stats reports the connection pool.
func (d *Database) Stats() sql.DBStats {
	return d.pool.Stats()
}

// AutoMigrate creates or updates the tables of every persisted type. The
// server uses SQL migrations against postgres; this serves sqlite setups and tests.
func (d *Database) AutoMigrate() error {
	return AutoMigrate(d.DB)
}

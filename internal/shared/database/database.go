package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB keeps the GORM handle next to the pooled sql.DB it was opened with.
type DB struct {
	*sql.DB
	GORM *gorm.DB
}

type Options struct {
	Debug           bool
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

func DefaultOptions() Options {
	return Options{MaxOpenConns: 25, MaxIdleConns: 5, ConnMaxLifetime: time.Hour}
}

// Open connects to Postgres through GORM and pings it. All timestamps GORM
// writes are UTC.
func Open(ctx context.Context, connStr string, opts Options) (*DB, error) {
	if connStr == "" {
		return nil, errors.New("DATABASE_URL is empty")
	}

	level := logger.Warn
	if opts.Debug {
		level = logger.Info
	}
	gormDB, err := gorm.Open(postgres.Open(connStr), &gorm.Config{
		Logger:  logger.Default.LogMode(level),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := gormDB.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(opts.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info().Int("max_open", opts.MaxOpenConns).Msg("✅ Database connected")
	return &DB{DB: sqlDB, GORM: gormDB}, nil
}

func (db *DB) Close() error {
	log.Info().Msg("🔌 Closing database connection")
	return db.DB.Close()
}

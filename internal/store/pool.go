package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var ErrNoRows = sql.ErrNoRows

// Options configure the archive database connection.
type Options struct {
	DatabaseURL string
	MinConns    int32
	MaxConns    int32
	LogLevel    string
	Environment string
}

// Pool wraps a gorm-managed Postgres connection for raw SQL access.
type Pool struct {
	gdb   *gorm.DB
	sqlDB *sql.DB
}

func NewPool(ctx context.Context, opts Options) (*Pool, error) {
	if strings.TrimSpace(opts.DatabaseURL) == "" {
		return nil, fmt.Errorf("database URL is required")
	}

	gdb, err := gorm.Open(postgres.Open(opts.DatabaseURL), &gorm.Config{
		Logger: logger.Default.LogMode(resolveGormLogLevel(opts.LogLevel, opts.Environment)),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("open gorm database: %w", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("get gorm sql db: %w", err)
	}

	maxOpen := int(opts.MaxConns)
	if maxOpen <= 0 {
		maxOpen = 8
	}
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(max(1, min(int(opts.MinConns), maxOpen)))
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	pool := &Pool{gdb: gdb, sqlDB: sqlDB}
	if err := pool.migrate(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("migrate schema: %w", err)
	}
	return pool, nil
}

func (p *Pool) Close() {
	if p != nil && p.sqlDB != nil {
		_ = p.sqlDB.Close()
	}
}

func (p *Pool) Ping(ctx context.Context) error {
	if p == nil || p.sqlDB == nil {
		return fmt.Errorf("database pool is not initialized")
	}
	return p.sqlDB.PingContext(ctx)
}

func (p *Pool) Exec(ctx context.Context, query string, args ...any) error {
	if p == nil || p.gdb == nil {
		return fmt.Errorf("database pool is not initialized")
	}
	return p.gdb.WithContext(ctx).Exec(query, args...).Error
}

func (p *Pool) QueryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return p.gdb.WithContext(ctx).Raw(query, args...).Row()
}

func (p *Pool) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return p.gdb.WithContext(ctx).Raw(query, args...).Rows()
}

func (p *Pool) migrate(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			run_id BIGSERIAL PRIMARY KEY,
			started_at TIMESTAMPTZ NOT NULL,
			input_count INT NOT NULL,
			output_count INT NOT NULL,
			duplicates_removed INT NOT NULL,
			pass1_successes INT NOT NULL,
			pass2_successes INT NOT NULL,
			fetch_failures INT NOT NULL,
			locations_found INT NOT NULL,
			total_ms BIGINT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS run_items (
			run_item_id BIGSERIAL PRIMARY KEY,
			run_id BIGINT NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
			source TEXT NOT NULL,
			title TEXT NOT NULL,
			link TEXT NOT NULL,
			published TIMESTAMPTZ NOT NULL,
			summary TEXT NOT NULL,
			location TEXT,
			has_article BOOLEAN NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_run_items_run_id ON run_items(run_id)`,
	}
	for _, statement := range statements {
		if err := p.Exec(ctx, statement); err != nil {
			return err
		}
	}
	return nil
}

func resolveGormLogLevel(logLevel, environment string) logger.LogLevel {
	switch strings.ToLower(strings.TrimSpace(logLevel)) {
	case "debug", "trace":
		return logger.Info
	case "warn", "warning":
		return logger.Warn
	case "error", "fatal", "panic":
		return logger.Error
	}
	if strings.EqualFold(strings.TrimSpace(environment), "local") {
		return logger.Warn
	}
	return logger.Silent
}

// Package db opens the dialect-appropriate connection pool for a run and,
// for Postgres, a parallel pgxpool used only for the COPY-based bulk stage
// load path (spec §5, SPEC_FULL.md §4.4 Postgres COPY supplement).
package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"
	_ "github.com/microsoft/go-mssqldb"

	"fileloader/internal/config"
	"fileloader/internal/dialect"
	"fileloader/internal/util"
)

// serverPoolSize is the connection pool size for networked database
// families; sqlite runs single-connection because the driver serializes
// all access to one file handle (spec §5).
const serverPoolSize = 20

// Pool bundles the database/sql handle every dialect shares with an
// optional pgxpool used for Postgres's COPY bulk-load fast path.
type Pool struct {
	Dialect dialect.Dialect
	SQL     *sql.DB
	PG      *pgxpool.Pool
}

// Open connects to cfg.DatabaseURL, inferring the dialect and sizing the
// pool per spec §5: ~20 connections for server databases, 1 for embedded
// SQLite, with a 30s connection-acquisition timeout as the pool's only
// enforced timeout.
func Open(ctx context.Context, cfg *config.RunConfig) (*Pool, error) {
	d, err := dialect.FromURL(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	connStr := util.ExpandEnvUniversal(cfg.DatabaseURL)

	sqlDB, err := sql.Open(d.DriverName(), connStr)
	if err != nil {
		return nil, fmt.Errorf("open %s pool (%s): %w", d, util.MaskCredentials(connStr), err)
	}

	size := serverPoolSize
	if d.Embedded() {
		size = 1
	}
	sqlDB.SetMaxOpenConns(size)
	sqlDB.SetMaxIdleConns(size)
	sqlDB.SetConnMaxLifetime(0)

	acquireCtx, cancel := context.WithTimeout(ctx, connectTimeout(cfg))
	defer cancel()
	if err := sqlDB.PingContext(acquireCtx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("connect to %s database (%s): %w", d, util.MaskCredentials(connStr), err)
	}

	p := &Pool{Dialect: d, SQL: sqlDB}

	if d == dialect.Postgres {
		pgCfg, err := pgxpool.ParseConfig(connStr)
		if err != nil {
			sqlDB.Close()
			return nil, fmt.Errorf("parse postgres pool config: %w", err)
		}
		pgCfg.MaxConns = int32(serverPoolSize)
		pg, err := pgxpool.NewWithConfig(ctx, pgCfg)
		if err != nil {
			sqlDB.Close()
			return nil, fmt.Errorf("open postgres copy pool: %w", err)
		}
		p.PG = pg
	}

	return p, nil
}

func connectTimeout(cfg *config.RunConfig) time.Duration {
	if cfg.ConnectTimeout > 0 {
		return cfg.ConnectTimeout
	}
	return config.DefaultConnectTimeout
}

// Close releases both the database/sql handle and, if open, the Postgres
// COPY pool.
func (p *Pool) Close() {
	if p.PG != nil {
		p.PG.Close()
	}
	if p.SQL != nil {
		p.SQL.Close()
	}
}

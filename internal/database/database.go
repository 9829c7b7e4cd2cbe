// Package database はデータベース接続、方言、スキーマを管理します。
package database

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"

	"go-todo-api/internal/config"
)

// DB は接続プールとその方言をまとめたものです。
type DB struct {
	*sql.DB
	Dialect Dialect
}

// Open は設定に従ってデータベース接続を初期化し、疎通を確認します。
func Open(ctx context.Context, cfg config.DatabaseConfig) (*DB, error) {
	dialect, err := ParseDialect(cfg.Driver)
	if err != nil {
		return nil, err
	}

	dsn, err := DataSourceName(cfg, dialect)
	if err != nil {
		return nil, err
	}

	sqlDB, err := sql.Open(dialect.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("could not open database: %w", err)
	}

	if dialect == SQLite {
		// SQLiteは単一ライターのため接続を1本に固定する
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
		sqlDB.SetConnMaxLifetime(0)
	} else {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("could not ping database: %w", err)
	}

	log.Info("Connected to database", "driver", dialect.DriverName())
	return &DB{DB: sqlDB, Dialect: dialect}, nil
}

// DataSourceName は接続文字列を組み立てます。cfg.DSN があればそれを使います。
func DataSourceName(cfg config.DatabaseConfig, dialect Dialect) (string, error) {
	if cfg.DSN != "" {
		return cfg.DSN, nil
	}

	switch dialect {
	case MySQL:
		mc := mysql.NewConfig()
		mc.User = cfg.User
		mc.Passwd = cfg.Pass
		mc.Net = "tcp"
		mc.Addr = net.JoinHostPort(cfg.Host, cfg.Port)
		mc.DBName = cfg.Name
		mc.ParseTime = true
		mc.Loc = time.UTC
		return mc.FormatDSN(), nil
	case Postgres:
		u := url.URL{
			Scheme:   "postgres",
			User:     url.UserPassword(cfg.User, cfg.Pass),
			Host:     net.JoinHostPort(cfg.Host, cfg.Port),
			Path:     "/" + cfg.Name,
			RawQuery: "sslmode=disable",
		}
		return u.String(), nil
	case SQLite:
		return fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000", cfg.Name), nil
	}
	return "", fmt.Errorf("unsupported database driver %q", dialect)
}

// InsertReturningID はINSERT文を実行し、採番されたIDを返します。
func (db *DB) InsertReturningID(ctx context.Context, query string, args ...any) (int64, error) {
	if db.Dialect.usesReturning() {
		var id int64
		err := db.QueryRowContext(ctx, db.Dialect.Rebind(query+" RETURNING id"), args...).Scan(&id)
		return id, err
	}

	result, err := db.ExecContext(ctx, db.Dialect.Rebind(query), args...)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

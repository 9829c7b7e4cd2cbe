package database

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
)

// emailはどの方言でも大文字小文字を区別して一意にする
var schemas = map[Dialect][]string{
	MySQL: {
		`CREATE TABLE IF NOT EXISTS users (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			username VARCHAR(255) NOT NULL,
			email VARCHAR(255) COLLATE utf8mb4_bin NOT NULL,
			password_hash VARCHAR(255) NOT NULL,
			CONSTRAINT uq_users_email UNIQUE (email)
		) DEFAULT CHARSET = utf8mb4`,
		`CREATE TABLE IF NOT EXISTS todos (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			user_id BIGINT NOT NULL,
			title VARCHAR(100) NOT NULL,
			description MEDIUMTEXT NOT NULL,
			created_at DATETIME(6) NOT NULL,
			completed_at DATETIME(6) NULL,
			version BIGINT NOT NULL DEFAULT 1,
			INDEX idx_todos_user_id (user_id),
			CONSTRAINT fk_todos_user FOREIGN KEY (user_id) REFERENCES users (id) ON DELETE CASCADE
		) DEFAULT CHARSET = utf8mb4`,
	},
	SQLite: {
		`CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			username TEXT NOT NULL,
			email TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS todos (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL REFERENCES users (id) ON DELETE CASCADE,
			title VARCHAR(100) NOT NULL,
			description TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			completed_at DATETIME,
			version INTEGER NOT NULL DEFAULT 1
		)`,
		`CREATE INDEX IF NOT EXISTS idx_todos_user_id ON todos (user_id)`,
	},
	Postgres: {
		`CREATE TABLE IF NOT EXISTS users (
			id BIGSERIAL PRIMARY KEY,
			username VARCHAR(255) NOT NULL,
			email VARCHAR(255) NOT NULL UNIQUE,
			password_hash VARCHAR(255) NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS todos (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users (id) ON DELETE CASCADE,
			title VARCHAR(100) NOT NULL,
			description TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL,
			completed_at TIMESTAMP NULL,
			version BIGINT NOT NULL DEFAULT 1
		)`,
		`CREATE INDEX IF NOT EXISTS idx_todos_user_id ON todos (user_id)`,
	},
}

// Migrate はテーブルが無ければ作成します。何度実行しても結果は同じです。
func (db *DB) Migrate(ctx context.Context) error {
	statements, ok := schemas[db.Dialect]
	if !ok {
		return fmt.Errorf("no schema for driver %q", db.Dialect)
	}

	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("could not apply schema: %w", err)
		}
	}
	log.Debug("Schema is up to date", "driver", db.Dialect.DriverName())
	return nil
}

package database

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"

	"go-todo-api/internal/config"
)

// Dialect はSQL方言の違いを吸収します。値はdatabase/sqlのドライバ名です。
type Dialect string

const (
	MySQL    Dialect = config.DriverMySQL
	SQLite   Dialect = config.DriverSQLite
	Postgres Dialect = config.DriverPostgres
)

const (
	mysqlDuplicateEntry     = 1062
	postgresUniqueViolation = "23505"
)

// ParseDialect はドライバ名から方言を返します。
func ParseDialect(driver string) (Dialect, error) {
	switch d := Dialect(driver); d {
	case MySQL, SQLite, Postgres:
		return d, nil
	}
	return "", fmt.Errorf("unsupported database driver %q", driver)
}

// DriverName はsql.Openに渡すドライバ名です。
func (d Dialect) DriverName() string {
	return string(d)
}

// Rebind は ? プレースホルダを方言の形式に書き換えます。
func (d Dialect) Rebind(query string) string {
	if d != Postgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

// IsUniqueViolation は一意制約違反のエラーかどうかを判定します。
func (d Dialect) IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}

	switch d {
	case MySQL:
		var mysqlErr *mysql.MySQLError
		return errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry
	case SQLite:
		var sqliteErr sqlite3.Error
		return errors.As(err, &sqliteErr) &&
			(sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
				sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey)
	case Postgres:
		var pgErr *pgconn.PgError
		return errors.As(err, &pgErr) && pgErr.Code == postgresUniqueViolation
	}
	return false
}

// LastInsertIdはpgxでは使えない
func (d Dialect) usesReturning() bool {
	return d == Postgres
}

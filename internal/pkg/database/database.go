package database

import (
	"database/sql"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

// IsSQLiteMemory reports whether dsn is an in-memory sqlite database. Those
// are private to one connection unless shared-cache, which then fails
// concurrent writers with SQLITE_LOCKED instead of waiting.
func IsSQLiteMemory(dsn string) bool {
	return dsn == ":memory:" || strings.Contains(dsn, "mode=memory")
}

// IsSQLite reports whether dsn points at a sqlite database rather than postgres.
func IsSQLite(dsn string) bool {
	return strings.HasPrefix(dsn, "file:") || strings.HasPrefix(dsn, "sqlite:") || dsn == ":memory:"
}

// Open returns a bun handle for dsn. Postgres DSNs go through pgdriver, while
// "file:" and ":memory:" DSNs open sqlite. In-memory sqlite gets a single
// connection; file databases keep the pool and should set _journal_mode=WAL
// and _busy_timeout in the DSN.
func Open(dsn, password string) (*bun.DB, error) {
	if IsSQLite(dsn) {
		sqldb, err := sql.Open("sqlite3", strings.TrimPrefix(dsn, "sqlite:"))
		if err != nil {
			return nil, err
		}
		if IsSQLiteMemory(dsn) {
			sqldb.SetMaxOpenConns(1)
		}
		return bun.NewDB(sqldb, sqlitedialect.New()), nil
	}

	opts := []pgdriver.Option{pgdriver.WithDSN(dsn)}
	if password != "" {
		opts = append(opts, pgdriver.WithPassword(password))
	}
	sqldb := sql.OpenDB(pgdriver.NewConnector(opts...))
	return bun.NewDB(sqldb, pgdialect.New()), nil
}

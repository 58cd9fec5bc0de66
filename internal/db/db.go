// Package db replays generated rows against a live database to confirm
// that constraints accept or reject them as predicted.
package db

import (
	"context"
	"database/sql"

	"schemaanalyst/internal/config"

	"github.com/go-sql-driver/mysql"
	"github.com/pkg/errors"
	"modernc.org/sqlite"
)

// StrictSQLMode is the MySQL session mode used for verification.
const StrictSQLMode = "STRICT_ALL_TABLES,NO_BACKSLASH_ESCAPES"

// DB is a verification connection.
type DB struct {
	*sql.DB
	dialect string
}

// Open connects to dsn using the driver for dialect. SQLite connections are
// limited to one so in-memory databases and pragmas stay on one handle.
func Open(ctx context.Context, dialect, dsn string) (*DB, error) {
	var driver string
	switch dialect {
	case config.DialectMySQL:
		driver = "mysql"
		strict, err := strictDSN(dsn)
		if err != nil {
			return nil, err
		}
		dsn = strict
	case config.DialectSQLite:
		driver = "sqlite"
	default:
		return nil, errors.Errorf("unsupported dialect %q", dialect)
	}
	conn, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", dialect)
	}
	d := &DB{DB: conn, dialect: dialect}
	if dialect == config.DialectSQLite {
		conn.SetMaxOpenConns(1)
		if _, err := conn.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
			_ = conn.Close()
			return nil, errors.Wrap(err, "enable foreign keys")
		}
	}
	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, errors.Wrapf(err, "ping %s", dialect)
	}
	return d, nil
}

// strictDSN makes MySQL reject out-of-range values instead of clamping
// them and read backslashes in string literals as plain characters. An
// explicit sql_mode in dsn is kept.
func strictDSN(dsn string) (string, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", errors.Wrap(err, "parse mysql dsn")
	}
	if cfg.Params == nil {
		cfg.Params = map[string]string{}
	}
	if _, ok := cfg.Params["sql_mode"]; !ok {
		cfg.Params["sql_mode"] = "'" + StrictSQLMode + "'"
	}
	return cfg.FormatDSN(), nil
}

// Dialect returns the dialect the connection was opened with.
func (d *DB) Dialect() string { return d.dialect }

// ErrorCode extracts the driver error number, if err came from a driver.
func ErrorCode(err error) (int, bool) {
	if err == nil {
		return 0, false
	}
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return int(mysqlErr.Number), true
	}
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code(), true
	}
	return 0, false
}

package db

import (
	"context"
	"fmt"

	"schemaanalyst/internal/config"
	"schemaanalyst/internal/util"

	"github.com/pkg/errors"
)

// EnsureDatabase creates the database named in a MySQL DSN if it does not
// exist. Other dialects need no preparation.
func EnsureDatabase(ctx context.Context, dialect, dsn string) error {
	if dialect != config.DialectMySQL {
		return nil
	}
	name := config.DatabaseName(dsn)
	if name == "" {
		return nil
	}
	admin, err := Open(ctx, dialect, config.AdminDSN(dsn))
	if err != nil {
		return err
	}
	defer util.CloseWithErr(admin, "db admin")
	if _, err := admin.ExecContext(ctx, fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", name)); err != nil {
		return errors.Wrapf(err, "create database %s", name)
	}
	return nil
}

package db

import (
	"database/sql"
	"embed"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// NewDB opens the sqlite database at dbPath and applies pending migrations.
func NewDB(dbPath string) (*sql.DB, error) {
	sqlLite, err := goose.OpenDBWithDriver("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	goose.SetBaseFS(embedMigrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		sqlLite.Close()
		return nil, err
	}

	if err := goose.Up(sqlLite, "migrations"); err != nil {
		sqlLite.Close()
		return nil, err
	}

	return sqlLite, nil
}

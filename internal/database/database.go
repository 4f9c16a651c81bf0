package database

import (
	"database/sql"
	"embed"
	"fmt"

	"github.com/charmbracelet/log"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
	_ "github.com/tursodatabase/libsql-client-go/libsql"
)

//go:embed migrations/*.sql
var migrations embed.FS

// InitDB opens the database and applies all pending migrations. When primaryURL is
// empty, dbPath is opened as a local SQLite file (":memory:" for tests); otherwise
// the remote Turso database is used. The returned teardown closes the database.
func InitDB(dbPath string, primaryURL string, authToken string) (*sql.DB, func(), error) {
	var (
		db      *sql.DB
		dialect string
		err     error
	)
	if primaryURL == "" {
		log.Info("Initializing local-only SQLite database", "path", dbPath)
		db, err = sql.Open("sqlite3", localDSN(dbPath))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open local database: %w", err)
		}
		// SQLite allows a single writer; one connection also keeps ":memory:" shared.
		db.SetMaxOpenConns(1)
		dialect = "sqlite3"
	} else {
		log.Info("Initializing Turso database", "url", primaryURL)
		db, err = sql.Open("libsql", primaryURL+"?authToken="+authToken)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open db %s: %w", primaryURL, err)
		}
		dialect = "turso"
	}

	if err := migrate(db, dialect); err != nil {
		db.Close()
		return nil, nil, err
	}
	log.Info("Database initialized successfully")

	teardown := func() {
		if err := db.Close(); err != nil {
			log.Warn("Failed to close database", "error", err)
		}
	}
	return db, teardown, nil
}

func localDSN(dbPath string) string {
	if dbPath == ":memory:" {
		return "file::memory:?_foreign_keys=on"
	}
	return "file:" + dbPath + "?_foreign_keys=on&_busy_timeout=5000"
}

func migrate(db *sql.DB, dialect string) error {
	goose.SetBaseFS(migrations)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("failed to set migration dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}

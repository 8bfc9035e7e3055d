package db

import (
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
)

// Options controls how a dataset database is opened.
type Options struct {
	// Path is a file path or a "file:" URI.
	Path string
	// LogSQL wraps the connection with the statement logging connector.
	LogSQL bool
	Logger *slog.Logger
}

// OpenReadOnly opens an existing SQLite database without ever creating or writing it.
func OpenReadOnly(opts Options) (*sql.DB, error) {
	dsn := buildReadOnlyDSN(opts.Path)

	var db *sql.DB
	if opts.LogSQL {
		connector, err := NewLoggingConnector(dsn, opts.Logger)
		if err != nil {
			return nil, fmt.Errorf("db connector: %w", err)
		}
		db = sql.OpenDB(connector)
	} else {
		var err error
		db, err = sql.Open("sqlite3", dsn)
		if err != nil {
			return nil, fmt.Errorf("db open: %w", err)
		}
	}

	// One request reads the table once; a single connection is enough.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}

	return db, nil
}

func Close(db *sql.DB) error {
	if db == nil {
		return nil
	}
	return db.Close()
}

func buildReadOnlyDSN(path string) string {
	// - mode=ro: never create the file, never write
	// - busy_timeout: tolerate a concurrent writer holding the lock
	params := []string{
		"mode=ro",
		"_busy_timeout=5000",
	}

	// If caller provided something like "file:/data/app.db?x=y" as Path, don't double-wrap
	if strings.HasPrefix(path, "file:") {
		sep := "?"
		if strings.Contains(path, "?") {
			sep = "&"
		}
		return path + sep + strings.Join(params, "&")
	}

	return fmt.Sprintf("file:%s?%s", path, strings.Join(params, "&"))
}

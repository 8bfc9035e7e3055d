package dataset

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"airquality-server/internal/db"
)

const sqlitePrefix = "sqlite:"

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// IsSQLitePath reports whether path names a SQLite database rather than a text file.
func IsSQLitePath(path string) bool {
	if strings.HasPrefix(path, sqlitePrefix) {
		return true
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		return true
	}
	return false
}

type sqliteSource struct {
	path   string
	table  string
	logSQL bool
	logger *slog.Logger
}

func (s sqliteSource) read(ctx context.Context) (header []string, rows [][]string, err error) {
	path := strings.TrimPrefix(s.path, sqlitePrefix)
	if !tableName.MatchString(s.table) {
		return nil, nil, fmt.Errorf("%w: invalid table name %q", ErrUnreadableSource, s.table)
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil, fmt.Errorf("%w: %s", ErrSourceNotFound, path)
		}
		return nil, nil, fmt.Errorf("%w: %v", ErrUnreadableSource, err)
	}

	conn, err := db.OpenReadOnly(db.Options{Path: path, LogSQL: s.logSQL, Logger: s.logger})
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrUnreadableSource, err)
	}
	defer func() {
		if err := db.Close(conn); err != nil {
			s.logger.Error("close dataset database", "path", path, "error", err)
		}
	}()

	res, err := conn.QueryContext(ctx, `SELECT * FROM "`+s.table+`"`)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrUnreadableSource, err)
	}
	defer func() {
		if err := res.Close(); err != nil {
			s.logger.Error("close dataset rows", "table", s.table, "error", err)
		}
	}()

	cols, err := res.Columns()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrUnreadableSource, err)
	}
	header = make([]string, len(cols))
	for i, c := range cols {
		header[i] = canonicalColumn(c)
	}

	cells := make([]sql.NullString, len(cols))
	dest := make([]any, len(cols))
	for i := range cells {
		dest[i] = &cells[i]
	}
	for res.Next() {
		if err := res.Scan(dest...); err != nil {
			return nil, nil, fmt.Errorf("%w: scan: %v", ErrUnreadableSource, err)
		}
		row := make([]string, len(cells))
		for i, c := range cells {
			row[i] = c.String
		}
		rows = append(rows, row)
	}
	if err := res.Err(); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrUnreadableSource, err)
	}
	return header, rows, nil
}

// canonicalColumn maps SQL-style names such as country_label onto the dataset's column names.
func canonicalColumn(name string) string {
	key := strings.ToLower(strings.TrimSpace(name))
	key = strings.NewReplacer("_", " ", "-", " ").Replace(key)
	for _, col := range []string{ColumnCountry, ColumnPollutant, ColumnValue, ColumnUnit} {
		if key == strings.ToLower(col) {
			return col
		}
	}
	return name
}

package db

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	sqlite3 "github.com/mattn/go-sqlite3"
)

// loggingConnector opens sqlite3 connections whose statements are logged at debug level.
type loggingConnector struct {
	dsn    string
	driver *sqlite3.SQLiteDriver
	logger *slog.Logger
}

type loggingConn struct {
	driver.Conn
	logger *slog.Logger
}

type loggingStmt struct {
	driver.Stmt
	query  string
	logger *slog.Logger
}

// countingRows logs the number of rows read once the result set is closed.
type countingRows struct {
	driver.Rows
	query  string
	start  time.Time
	n      int
	logger *slog.Logger
}

// NewLoggingConnector returns a driver.Connector for sql.OpenDB that logs every
// statement with its args, duration and error, and every result set with its row count.
// If logger is nil, slog.Default() is used.
func NewLoggingConnector(dsn string, logger *slog.Logger) (driver.Connector, error) {
	if logger == nil {
		logger = slog.Default()
	}
	return &loggingConnector{
		dsn:    dsn,
		driver: &sqlite3.SQLiteDriver{},
		logger: logger.With("component", "sqlite"),
	}, nil
}

func (c *loggingConnector) Driver() driver.Driver { return c.driver }

func (c *loggingConnector) Connect(ctx context.Context) (driver.Conn, error) {
	conn, err := c.driver.Open(c.dsn)
	if err != nil {
		c.logger.Debug("sql connect failed", "dsn", c.dsn, "error", err)
		return nil, err
	}
	c.logger.Debug("sql connect", "dsn", c.dsn)
	return &loggingConn{Conn: conn, logger: c.logger}, nil
}

func (c *loggingConn) Prepare(query string) (driver.Stmt, error) {
	return c.PrepareContext(context.Background(), query)
}

func (c *loggingConn) PrepareContext(ctx context.Context, query string) (driver.Stmt, error) {
	// sqlite3 connections always implement ConnPrepareContext.
	stmt, err := c.Conn.(driver.ConnPrepareContext).PrepareContext(ctx, query)
	if err != nil {
		c.logger.Debug("sql prepare failed", "sql", query, "error", err)
		return nil, err
	}
	return &loggingStmt{Stmt: stmt, query: query, logger: c.logger}, nil
}

func (s *loggingStmt) Exec(args []driver.Value) (driver.Result, error) {
	start := time.Now()
	//nolint:staticcheck // SA1019: database/sql only calls Exec when ExecContext is absent
	res, err := s.Stmt.Exec(args)
	s.log("exec", args, start, err)
	return res, err
}

func (s *loggingStmt) Query(args []driver.Value) (driver.Rows, error) {
	named := make([]driver.NamedValue, len(args))
	for i, v := range args {
		named[i] = driver.NamedValue{Ordinal: i + 1, Value: v}
	}
	return s.QueryContext(context.Background(), named)
}

func (s *loggingStmt) QueryContext(ctx context.Context, args []driver.NamedValue) (driver.Rows, error) {
	start := time.Now()
	rows, err := s.Stmt.(driver.StmtQueryContext).QueryContext(ctx, args)
	values := make([]driver.Value, len(args))
	for i, a := range args {
		values[i] = a.Value
	}
	s.log("query", values, start, err)
	if err != nil {
		return nil, err
	}
	return &countingRows{Rows: rows, query: s.query, start: start, logger: s.logger}, nil
}

func (s *loggingStmt) log(op string, args []driver.Value, start time.Time, err error) {
	attrs := []any{
		"op", op,
		"sql", s.query,
		"args", formatArgs(args),
		"elapsed_ms", time.Since(start).Milliseconds(),
	}
	if err != nil {
		attrs = append(attrs, "error", err)
	}
	s.logger.Debug("sql", attrs...)
}

func (r *countingRows) Next(dest []driver.Value) error {
	err := r.Rows.Next(dest)
	if err == nil {
		r.n++
	}
	return err
}

func (r *countingRows) Close() error {
	err := r.Rows.Close()
	attrs := []any{
		"sql", r.query,
		"rows", r.n,
		"elapsed_ms", time.Since(r.start).Milliseconds(),
	}
	if err != nil && !errors.Is(err, io.EOF) {
		attrs = append(attrs, "error", err)
	}
	r.logger.Debug("sql rows", attrs...)
	return err
}

func formatArgs(args []driver.Value) []string {
	out := make([]string, len(args))
	for i, v := range args {
		switch t := v.(type) {
		case nil:
			out[i] = "NULL"
		case []byte:
			out[i] = string(t)
		default:
			out[i] = fmt.Sprint(t)
		}
	}
	return out
}

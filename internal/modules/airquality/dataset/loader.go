package dataset

import (
	"context"
	"log/slog"

	"airquality-server/internal/config"
	"airquality-server/internal/metrics"
)

// Loader reads the configured source afresh on every call.
type Loader struct {
	path   string
	table  string
	logSQL bool
	logger *slog.Logger
}

func NewLoader(cfg config.Config, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		path:   cfg.DatasetPath,
		table:  cfg.DatasetTable,
		logSQL: cfg.LogLevel <= slog.LevelDebug,
		logger: logger.With("component", "dataset"),
	}
}

func (l *Loader) Path() string { return l.path }

// Load never fails: when the source cannot be used it returns Demo() with the
// reason attached.
func (l *Loader) Load(ctx context.Context) Dataset {
	ds, err := l.TryLoad(ctx)
	if err != nil {
		reason := Reason(err)
		l.logger.Warn("dataset source unavailable, using demo data",
			"source", l.path,
			"reason", reason,
			"error", err,
		)
		metrics.DatasetLoaded(string(OriginDemo), reason)
		return Demo().withFallback(l.path, err)
	}

	metrics.DatasetLoaded(string(OriginSource), "")
	l.logger.Debug("dataset loaded", "source", l.path, "rows", ds.Len())
	return ds
}

// TryLoad reads and validates the source, returning the ingestion error instead of
// substituting demo data.
func (l *Loader) TryLoad(ctx context.Context) (Dataset, error) {
	if err := ctx.Err(); err != nil {
		return Dataset{}, err
	}

	var (
		header []string
		rows   [][]string
		err    error
	)
	if IsSQLitePath(l.path) {
		src := sqliteSource{path: l.path, table: l.table, logSQL: l.logSQL, logger: l.logger}
		header, rows, err = src.read(ctx)
	} else {
		header, rows, err = readDelimitedFile(l.path)
	}
	if err != nil {
		return Dataset{}, err
	}

	return build(header, rows, OriginSource, l.path)
}

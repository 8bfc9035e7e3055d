package dataset

import (
	"errors"
	"fmt"
)

var (
	ErrSourceNotFound        = errors.New("dataset source not found")
	ErrEmptySource           = errors.New("dataset source is empty")
	ErrUnparseableDelimiter  = errors.New("no delimiter yields more than one column")
	ErrMissingRequiredColumn = errors.New("required column missing")
	ErrUnreadableSource      = errors.New("dataset source unreadable")
)

// MissingColumnError names the required column a source lacks.
type MissingColumnError struct {
	Column string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("required column %q missing", e.Column)
}

func (e *MissingColumnError) Unwrap() error {
	return ErrMissingRequiredColumn
}

// Reason maps a load error to a short stable label for logs and metrics.
func Reason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrSourceNotFound):
		return "source_not_found"
	case errors.Is(err, ErrEmptySource):
		return "empty_source"
	case errors.Is(err, ErrUnparseableDelimiter):
		return "unparseable_delimiter"
	case errors.Is(err, ErrMissingRequiredColumn):
		return "missing_required_column"
	case errors.Is(err, ErrUnreadableSource):
		return "unreadable_source"
	default:
		return "other"
	}
}

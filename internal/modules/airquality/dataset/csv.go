package dataset

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Delimiters are tried in this order; the first giving a multi-column header wins.
var Delimiters = []rune{';', ',', '\t', '|'}

// readDelimitedFile reads a delimited text file into a header and its well-formed rows.
func readDelimitedFile(path string) (header []string, rows [][]string, err error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil, fmt.Errorf("%w: %s", ErrSourceNotFound, path)
		}
		return nil, nil, fmt.Errorf("%w: %v", ErrUnreadableSource, err)
	}
	defer f.Close()

	return readDelimited(f)
}

func readDelimited(r io.Reader) (header []string, rows [][]string, err error) {
	// A UTF-8 or UTF-16 byte order mark is consumed; anything else passes through untouched.
	data, err := io.ReadAll(transform.NewReader(r, unicode.BOMOverride(transform.Nop)))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrUnreadableSource, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil, ErrEmptySource
	}

	for _, delim := range Delimiters {
		header, rows := parseWith(data, delim)
		if len(header) > 1 {
			return header, rows, nil
		}
	}
	return nil, nil, ErrUnparseableDelimiter
}

// parseWith splits data on delim. Records that fail to parse or whose field count
// differs from the header are skipped.
func parseWith(data []byte, delim rune) (header []string, rows [][]string) {
	cr := csv.NewReader(bytes.NewReader(data))
	cr.Comma = delim
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err != nil {
		return nil, nil
	}

	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			continue
		}
		if err != nil {
			break
		}
		if len(rec) != len(header) {
			continue
		}
		rows = append(rows, rec)
	}
	return header, rows
}

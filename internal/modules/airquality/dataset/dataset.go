package dataset

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

const (
	ColumnCountry   = "Country Label"
	ColumnPollutant = "Pollutant"
	ColumnValue     = "Value"
	ColumnUnit      = "Unit"
)

// RequiredColumns must all be present in a source header.
var RequiredColumns = []string{ColumnCountry, ColumnPollutant, ColumnValue}

type Origin string

const (
	OriginSource Origin = "source"
	OriginDemo   Origin = "demo"
)

// Row is one measurement as stored in a Dataset.
type Row struct {
	Country   string  `json:"country"`
	Pollutant string  `json:"pollutant"`
	Value     float64 `json:"value"`
	Unit      string  `json:"unit,omitempty"`
}

// Dataset is an immutable table of measurements together with where it came from.
// The zero value is an empty dataset with no columns.
type Dataset struct {
	frame    dataframe.DataFrame
	origin   Origin
	source   string
	fallback error
}

func (d Dataset) Frame() dataframe.DataFrame { return d.frame }
func (d Dataset) Origin() Origin             { return d.origin }
func (d Dataset) Source() string             { return d.source }

// FallbackReason is the load error that caused demo data to be used, or nil.
func (d Dataset) FallbackReason() error { return d.fallback }

func (d Dataset) Len() int {
	if d.frame.Err != nil {
		return 0
	}
	return d.frame.Nrow()
}

func (d Dataset) Columns() []string {
	if d.frame.Err != nil {
		return nil
	}
	return d.frame.Names()
}

func (d Dataset) HasColumn(name string) bool {
	return slices.Contains(d.Columns(), name)
}

// Rows returns the measurements in load order.
func (d Dataset) Rows() []Row {
	n := d.Len()
	if n == 0 || !d.HasColumn(ColumnValue) {
		return nil
	}
	countries := d.stringColumn(ColumnCountry)
	pollutants := d.stringColumn(ColumnPollutant)
	units := d.stringColumn(ColumnUnit)
	values := d.frame.Col(ColumnValue).Float()

	rows := make([]Row, n)
	for i := range rows {
		rows[i] = Row{Value: values[i]}
		if countries != nil {
			rows[i].Country = countries[i]
		}
		if pollutants != nil {
			rows[i].Pollutant = pollutants[i]
		}
		if units != nil {
			rows[i].Unit = units[i]
		}
	}
	return rows
}

func (d Dataset) stringColumn(name string) []string {
	if !d.HasColumn(name) {
		return nil
	}
	return d.frame.Col(name).Records()
}

func (d Dataset) withFallback(source string, reason error) Dataset {
	d.source = source
	d.fallback = reason
	return d
}

// build turns a header and raw rows into a Dataset. Rows must already have exactly
// len(header) fields. Rows whose Value is negative or not a number are dropped.
func build(header []string, rows [][]string, origin Origin, source string) (Dataset, error) {
	names := normalizeHeader(header)
	for _, col := range RequiredColumns {
		if !slices.Contains(names, col) {
			return Dataset{}, &MissingColumnError{Column: col}
		}
	}
	valueIdx := slices.Index(names, ColumnValue)

	cols := make([][]string, len(names))
	values := make([]float64, 0, len(rows))
	for _, row := range rows {
		if len(row) != len(names) {
			continue
		}
		v, ok := parseValue(row[valueIdx])
		if !ok {
			continue
		}
		values = append(values, v)
		for i := range names {
			if i == valueIdx {
				continue
			}
			cols[i] = append(cols[i], strings.TrimSpace(row[i]))
		}
	}

	ser := make([]series.Series, len(names))
	for i, name := range names {
		if i == valueIdx {
			ser[i] = series.New(values, series.Float, name)
			continue
		}
		if cols[i] == nil {
			cols[i] = []string{}
		}
		ser[i] = series.New(cols[i], series.String, name)
	}

	frame := dataframe.New(ser...)
	if frame.Err != nil {
		return Dataset{}, fmt.Errorf("build frame: %w", frame.Err)
	}
	return Dataset{frame: frame, origin: origin, source: source}, nil
}

func parseValue(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || v < 0 {
		return 0, false
	}
	return v, true
}

// normalizeHeader trims names and makes them unique so the frame never renames a
// required column: later duplicates get a ".N" suffix, blank names become "Unnamed: i".
func normalizeHeader(header []string) []string {
	names := make([]string, len(header))
	seen := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.TrimSpace(h)
		if name == "" {
			name = fmt.Sprintf("Unnamed: %d", i)
		}
		if n, dup := seen[name]; dup {
			seen[name] = n + 1
			name = fmt.Sprintf("%s.%d", name, n+1)
		} else {
			seen[name] = 0
		}
		names[i] = name
	}
	return names
}

// FromRecords builds a source Dataset from in-memory records whose first entry is the
// header. It applies the same column and value rules as a file load.
func FromRecords(records [][]string) (Dataset, error) {
	if len(records) == 0 {
		return Dataset{}, ErrEmptySource
	}
	return build(records[0], records[1:], OriginSource, "")
}

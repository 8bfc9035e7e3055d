// Package service computes the per-country, per-pollutant figures shown on the dashboard.
package service

import (
	"math"
	"slices"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"airquality-server/internal/modules/airquality/dataset"
	"airquality-server/internal/modules/airquality/types"
)

const (
	// NoDataUnit is the unit reported for a pair with no measurements.
	NoDataUnit = "No data"
	// NoDataSentinel is the single entry of a distinct list whose column is absent.
	NoDataSentinel = "No data available"
	DefaultUnit    = dataset.DemoUnit
)

// Average returns the mean Value of the rows matching country and pollutant exactly,
// rounded to two decimals half-to-even. No matching rows yields {0, 0, "No data"}.
func Average(ds dataset.Dataset, country, pollutant string) types.AggregateResult {
	noData := types.AggregateResult{Average: 0, Count: 0, Unit: NoDataUnit}
	if ds.Len() == 0 || !ds.HasColumn(dataset.ColumnCountry) || !ds.HasColumn(dataset.ColumnPollutant) {
		return noData
	}

	byCountry := ds.Frame().Filter(equals(dataset.ColumnCountry, country))
	if byCountry.Err != nil || byCountry.Nrow() == 0 {
		return noData
	}
	matched := byCountry.Filter(equals(dataset.ColumnPollutant, pollutant))
	if matched.Err != nil || matched.Nrow() == 0 {
		return noData
	}

	values := matched.Col(dataset.ColumnValue)
	return types.AggregateResult{
		Average: Round2(values.Mean()),
		Count:   matched.Nrow(),
		Unit:    firstUnit(matched),
	}
}

// equals matches cells by their text. series.Eq would never match a cell holding "NaN",
// which a string series stores as NA.
func equals(column, want string) dataframe.F {
	return dataframe.F{
		Colname:    column,
		Comparator: series.CompFunc,
		Comparando: func(el series.Element) bool { return el.String() == want },
	}
}

func firstUnit(df dataframe.DataFrame) string {
	col := df.Col(dataset.ColumnUnit)
	if col.Err != nil || col.Len() == 0 {
		return DefaultUnit
	}
	if unit := col.Elem(0).String(); unit != "" {
		return unit
	}
	return DefaultUnit
}

// Round2 rounds to two decimals, ties to even.
func Round2(x float64) float64 {
	return math.RoundToEven(x*100) / 100
}

// DistinctCountries lists the unique non-empty countries in ascending order.
func DistinctCountries(ds dataset.Dataset) []string {
	return distinct(ds, dataset.ColumnCountry)
}

// DistinctPollutants lists the unique non-empty pollutants in ascending order.
func DistinctPollutants(ds dataset.Dataset) []string {
	return distinct(ds, dataset.ColumnPollutant)
}

func distinct(ds dataset.Dataset, column string) []string {
	if !ds.HasColumn(column) {
		return []string{NoDataSentinel}
	}
	col := ds.Frame().Col(column)
	if col.Err != nil {
		return []string{NoDataSentinel}
	}

	seen := make(map[string]struct{}, col.Len())
	out := make([]string, 0)
	for i := 0; i < col.Len(); i++ {
		v := col.Elem(i).String()
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	slices.Sort(out)
	return out
}

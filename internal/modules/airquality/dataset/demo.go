package dataset

import "fmt"

const DemoUnit = "µg/m³"

// demoBases holds the base value in tenths of µg/m³ per country for NO2 and PM2.5.
var demoBases = []struct {
	country   string
	no2, pm25 int
}{
	{"France", 273, 121},
	{"Germany", 258, 119},
	{"Italy", 312, 187},
	{"Spain", 264, 112},
	{"Poland", 221, 226},
	{"Netherlands", 235, 124},
	{"Belgium", 249, 136},
	{"Sweden", 127, 63},
	{"Austria", 214, 128},
	{"Portugal", 196, 98},
}

const demoRepetitions = 5

var demoPollutants = [2]string{"NO2", "PM2.5"}

// Demo returns the fixed sample dataset used when no source can be read.
// Every call yields the same 50 rows: each repetition lists every country once, alternating
// the pollutant between neighbours and between repetitions. Each (country, pollutant) pair
// gets 2 or 3 rows and averages to its base value.
func Demo() Dataset {
	records := make([][]string, 0, 1+demoRepetitions*len(demoBases))
	records = append(records, []string{ColumnCountry, ColumnPollutant, ColumnValue, ColumnUnit})
	for r := 0; r < demoRepetitions; r++ {
		offset := (r - 2) * 10
		for c, b := range demoBases {
			base := b.no2
			if (r+c)%2 == 1 {
				base = b.pm25
			}
			records = append(records, []string{b.country, demoPollutants[(r+c)%2], tenths(base + offset), DemoUnit})
		}
	}

	ds, err := FromRecords(records)
	if err != nil {
		panic(fmt.Sprintf("dataset: demo data invalid: %v", err))
	}
	ds.origin = OriginDemo
	return ds
}

func tenths(v int) string {
	return fmt.Sprintf("%d.%d", v/10, v%10)
}

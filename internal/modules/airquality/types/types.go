package types

import "time"

// AggregateResult is the mean value, sample count and unit for one (country, pollutant) pair.
type AggregateResult struct {
	Average float64 `json:"average"`
	Count   int     `json:"count"`
	Unit    string  `json:"unit"`
}

// ChartSpec is the minimal payload needed to render one bar.
type ChartSpec struct {
	Country   string  `json:"country"`
	Pollutant string  `json:"pollutant"`
	Value     float64 `json:"value"`
	Unit      string  `json:"unit"`
	Count     int     `json:"count"`
}

// ChartEvent is published after a chart slot has been refreshed.
type ChartEvent struct {
	Country   string    `json:"country"`
	Pollutant string    `json:"pollutant"`
	Position  string    `json:"position"`
	Value     float64   `json:"value"`
	Unit      string    `json:"unit"`
	Count     int       `json:"count"`
	Origin    string    `json:"origin"`
	Time      time.Time `json:"time"`
}

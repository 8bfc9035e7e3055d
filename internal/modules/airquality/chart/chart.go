// Package chart turns an aggregate into the bar chart description sent to the browser
// and renders the same description as a PNG.
package chart

import (
	"errors"
	"fmt"
	"io"
	"math"
	"net/url"

	gochart "github.com/wcharczuk/go-chart/v2"

	"airquality-server/internal/modules/airquality/types"
)

const (
	Height      = 400
	Width       = 600
	XTitle      = "Country"
	NoDataLabel = "No data"
)

var ErrRendering = errors.New("chart rendering failed")

type Bar struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// Figure is a renderable single-series bar chart.
type Figure struct {
	Title  string          `json:"title"`
	XTitle string          `json:"x_title"`
	YTitle string          `json:"y_title"`
	Height int             `json:"height"`
	Bars   []Bar           `json:"bars"`
	NoData bool            `json:"no_data"`
	Image  string          `json:"image"`
	Spec   types.ChartSpec `json:"spec"`
}

// Build describes the chart for spec. A zero count gives a "no data" placeholder.
func Build(spec types.ChartSpec) (Figure, error) {
	if math.IsNaN(spec.Value) || math.IsInf(spec.Value, 0) {
		return Figure{}, fmt.Errorf("%w: non-finite value %v for %s in %s", ErrRendering, spec.Value, spec.Pollutant, spec.Country)
	}

	fig := Figure{
		XTitle: XTitle,
		Height: Height,
		Image:  ImageURL(spec.Country, spec.Pollutant),
		Spec:   spec,
	}

	if spec.Count == 0 {
		fig.Title = fmt.Sprintf("No data for %s in %s", spec.Pollutant, spec.Country)
		fig.YTitle = spec.Pollutant
		fig.Bars = []Bar{{Label: NoDataLabel, Value: 0}}
		fig.NoData = true
		return fig, nil
	}

	fig.Title = fmt.Sprintf("%s Level in %s (based on %d measurements)", spec.Pollutant, spec.Country, spec.Count)
	fig.YTitle = fmt.Sprintf("%s (%s)", spec.Pollutant, spec.Unit)
	fig.Bars = []Bar{{Label: spec.Country, Value: spec.Value}}
	return fig, nil
}

// ImageURL is the PNG endpoint for a country and pollutant.
func ImageURL(country, pollutant string) string {
	q := url.Values{}
	q.Set("country", country)
	q.Set("pollutant", pollutant)
	return "/chart.png?" + q.Encode()
}

// RenderPNG draws fig as a PNG bar chart.
func RenderPNG(w io.Writer, fig Figure) error {
	if len(fig.Bars) == 0 {
		return fmt.Errorf("%w: figure has no bars", ErrRendering)
	}

	top := 1.0
	bars := make([]gochart.Value, 0, len(fig.Bars))
	for _, b := range fig.Bars {
		if math.IsNaN(b.Value) || math.IsInf(b.Value, 0) {
			return fmt.Errorf("%w: non-finite bar %q", ErrRendering, b.Label)
		}
		top = math.Max(top, b.Value*1.2)
		bars = append(bars, gochart.Value{Label: b.Label, Value: b.Value})
	}

	height := fig.Height
	if height <= 0 {
		height = Height
	}

	bc := gochart.BarChart{
		Title:  fig.Title,
		Width:  Width,
		Height: height,
		Background: gochart.Style{
			Padding: gochart.Box{Top: 40},
		},
		BarWidth: 120,
		YAxis: gochart.YAxis{
			Name:  fig.YTitle,
			Range: &gochart.ContinuousRange{Min: 0, Max: top},
		},
		Bars: bars,
	}

	if err := bc.Render(gochart.PNG, w); err != nil {
		return fmt.Errorf("%w: %v", ErrRendering, err)
	}
	return nil
}

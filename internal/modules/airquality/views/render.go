package views

import (
	"errors"
	"html/template"
	"io"
	"io/fs"
	"net/http"
	"strconv"

	"airquality-server/internal/modules/airquality/chart"
)

var pagesTmpl *template.Template

var errNotLoaded = errors.New("page templates not loaded: call views.LoadTemplates during startup")

// loadTemplatesFromFS loads page templates from the given fs and dir.
// Used by LoadTemplates and by tests to simulate failure scenarios.
func loadTemplatesFromFS(fsys fs.FS, dir string) error {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		return err
	}
	pagesTmpl, err = template.New("").Funcs(funcs).ParseFS(sub, "*.html", "partials/*.html")
	if err != nil {
		return err
	}
	return nil
}

// LoadTemplates loads embedded page templates. Call during startup before
// serving requests; if it returns an error, do not start the server.
func LoadTemplates() error {
	return loadTemplatesFromFS(viewsFS, "templates")
}

var funcs = template.FuncMap{
	"value": func(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) },
}

// ChartCard is one of the two chart slots on the dashboard.
type ChartCard struct {
	Position          string
	Countries         []string
	Pollutants        []string
	SelectedCountry   string
	SelectedPollutant string
	Figure            chart.Figure
}

type IndexData struct {
	Countries  []string
	Pollutants []string
	Charts     []ChartCard
	Origin     string
	Rows       int
	// FallbackReason is set when demo data replaced the configured source.
	FallbackReason string
}

type ErrorData struct {
	Status  int
	Title   string
	Message string
}

func RenderIndex(w io.Writer, data *IndexData) error {
	if pagesTmpl == nil {
		return errNotLoaded
	}
	return pagesTmpl.ExecuteTemplate(w, "index.html", data)
}

func RenderError(w io.Writer, data *ErrorData) error {
	if pagesTmpl == nil {
		return errNotLoaded
	}
	return pagesTmpl.ExecuteTemplate(w, "error.html", data)
}

// RenderChartPartial executes only the chart card partial into w.
func RenderChartPartial(w io.Writer, data *ChartCard) error {
	if pagesTmpl == nil {
		return errNotLoaded
	}
	return pagesTmpl.ExecuteTemplate(w, "partials/chart.html", data)
}

// StaticHandler serves the embedded JS and CSS under /static/.
func StaticHandler() http.Handler {
	sub, err := fs.Sub(viewsFS, "static")
	if err != nil {
		panic(err)
	}
	return http.StripPrefix("/static/", http.FileServerFS(sub))
}

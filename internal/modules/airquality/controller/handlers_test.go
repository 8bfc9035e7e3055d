package controller

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"airquality-server/internal/modules/airquality/chart"
	"airquality-server/internal/modules/airquality/dataset"
	"airquality-server/internal/modules/airquality/types"
	"airquality-server/internal/modules/airquality/views"
)

type mockLoader struct {
	ds    dataset.Dataset
	panic bool
	calls int
}

func (m *mockLoader) Load(ctx context.Context) dataset.Dataset {
	m.calls++
	if m.panic {
		panic("loader exploded")
	}
	return m.ds
}

type mockPublisher struct {
	mu     sync.Mutex
	events []types.ChartEvent
	err    error
}

func (m *mockPublisher) PublishChart(ctx context.Context, event types.ChartEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return m.err
}

func franceDataset(t *testing.T) dataset.Dataset {
	t.Helper()
	ds, err := dataset.FromRecords([][]string{
		{"Country Label", "Pollutant", "Value", "Unit"},
		{"France", "NO2", "38.7", "µg/m³"},
	})
	if err != nil {
		t.Fatalf("FromRecords: %v", err)
	}
	return ds
}

func newTestMux(t *testing.T, loader DatasetLoader, publisher ChartPublisher) *http.ServeMux {
	t.Helper()
	if err := views.LoadTemplates(); err != nil {
		t.Fatalf("LoadTemplates(): %v", err)
	}
	mux := http.NewServeMux()
	NewAirQualityController(loader, publisher, nil).RegisterRoutes(mux)
	return mux
}

func serve(mux *http.ServeMux, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func Test_handleIndex(t *testing.T) {
	t.Run("renders two default charts from demo data", func(t *testing.T) {
		mux := newTestMux(t, &mockLoader{ds: dataset.Demo()}, nil)

		rec := serve(mux, "/")

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d; want %d", rec.Code, http.StatusOK)
		}
		if ct := rec.Header().Get("Content-Type"); ct != "text/html; charset=utf-8" {
			t.Errorf("Content-Type = %q", ct)
		}
		body := rec.Body.String()
		for _, want := range []string{
			"NO2 Level in Austria (based on 3 measurements)",
			"NO2 Level in Belgium (based on 3 measurements)",
			`<option value="Portugal">`,
			`<option value="PM2.5">`,
		} {
			if !strings.Contains(body, want) {
				t.Errorf("body missing %q", want)
			}
		}
	})

	t.Run("single country is used for both charts", func(t *testing.T) {
		mux := newTestMux(t, &mockLoader{ds: franceDataset(t)}, nil)

		rec := serve(mux, "/")

		body := rec.Body.String()
		if n := strings.Count(body, "NO2 Level in France (based on 1 measurements)"); n < 2 {
			t.Errorf("France chart rendered %d times; want both slots", n)
		}
	})

	t.Run("returns 404 page when path is not /", func(t *testing.T) {
		mux := newTestMux(t, &mockLoader{ds: dataset.Demo()}, nil)

		rec := serve(mux, "/dashboard")

		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d; want %d", rec.Code, http.StatusNotFound)
		}
		if !strings.Contains(rec.Body.String(), "Page not found") {
			t.Errorf("body = %q; expected not found page", rec.Body.String())
		}
	})

	t.Run("returns 500 error page when loading panics", func(t *testing.T) {
		mux := newTestMux(t, &mockLoader{panic: true}, nil)

		rec := serve(mux, "/")

		if rec.Code != http.StatusInternalServerError {
			t.Errorf("status = %d; want %d", rec.Code, http.StatusInternalServerError)
		}
		body := rec.Body.String()
		if !strings.Contains(body, "Something went wrong") || !strings.Contains(body, "loader exploded") {
			t.Errorf("body = %q; expected error page", body)
		}
	})
}

func decodeChart(t *testing.T, rec *httptest.ResponseRecorder) chart.Figure {
	t.Helper()
	var resp struct {
		Chart *chart.Figure `json:"chart"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Chart == nil {
		t.Fatal("response has no chart")
	}
	return *resp.Chart
}

func Test_handleUpdateChart(t *testing.T) {
	t.Run("returns chart for known pair", func(t *testing.T) {
		mux := newTestMux(t, &mockLoader{ds: franceDataset(t)}, nil)

		rec := serve(mux, "/update_chart/France/NO2/1")

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d; want %d", rec.Code, http.StatusOK)
		}
		fig := decodeChart(t, rec)
		if fig.Title != "NO2 Level in France (based on 1 measurements)" {
			t.Errorf("title = %q", fig.Title)
		}
		want := types.ChartSpec{Country: "France", Pollutant: "NO2", Value: 38.7, Unit: "µg/m³", Count: 1}
		if fig.Spec != want {
			t.Errorf("spec = %+v; want %+v", fig.Spec, want)
		}
	})

	t.Run("unknown country is a no-data chart, not an error", func(t *testing.T) {
		mux := newTestMux(t, &mockLoader{ds: franceDataset(t)}, nil)

		rec := serve(mux, "/update_chart/Atlantis/NO2/2")

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d; want %d", rec.Code, http.StatusOK)
		}
		fig := decodeChart(t, rec)
		if !fig.NoData {
			t.Error("expected no_data chart")
		}
		if fig.Title != "No data for NO2 in Atlantis" {
			t.Errorf("title = %q", fig.Title)
		}
	})

	t.Run("decodes escaped path segments", func(t *testing.T) {
		ds, err := dataset.FromRecords([][]string{
			{"Country Label", "Pollutant", "Value"},
			{"Czech Republic", "PM2.5", "20"},
		})
		if err != nil {
			t.Fatal(err)
		}
		mux := newTestMux(t, &mockLoader{ds: ds}, nil)

		rec := serve(mux, "/update_chart/Czech%20Republic/PM2.5/1")

		fig := decodeChart(t, rec)
		if fig.Spec.Count != 1 || fig.Spec.Country != "Czech Republic" {
			t.Errorf("spec = %+v", fig.Spec)
		}
	})

	t.Run("returns error payload when loading panics", func(t *testing.T) {
		pub := &mockPublisher{}
		mux := newTestMux(t, &mockLoader{panic: true}, pub)

		rec := serve(mux, "/update_chart/France/NO2/1")

		if rec.Code != http.StatusInternalServerError {
			t.Errorf("status = %d; want %d", rec.Code, http.StatusInternalServerError)
		}
		var body map[string]string
		if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if !strings.Contains(body["error"], "loader exploded") {
			t.Errorf("error = %q", body["error"])
		}
		if len(pub.events) != 0 {
			t.Errorf("published %d events on failure; want 0", len(pub.events))
		}
	})

	t.Run("publishes one event with the slot position", func(t *testing.T) {
		pub := &mockPublisher{}
		mux := newTestMux(t, &mockLoader{ds: franceDataset(t)}, pub)

		serve(mux, "/update_chart/France/NO2/2")

		if len(pub.events) != 1 {
			t.Fatalf("published %d events; want 1", len(pub.events))
		}
		ev := pub.events[0]
		if ev.Position != "2" || ev.Country != "France" || ev.Pollutant != "NO2" {
			t.Errorf("event = %+v", ev)
		}
		if ev.Value != 38.7 || ev.Count != 1 || ev.Origin != "source" {
			t.Errorf("event = %+v", ev)
		}
		if ev.Time.IsZero() {
			t.Error("event time not set")
		}
	})

	t.Run("publish failure does not fail the request", func(t *testing.T) {
		pub := &mockPublisher{err: errors.New("broker down")}
		mux := newTestMux(t, &mockLoader{ds: franceDataset(t)}, pub)

		rec := serve(mux, "/update_chart/France/NO2/1")

		if rec.Code != http.StatusOK {
			t.Errorf("status = %d; want %d", rec.Code, http.StatusOK)
		}
	})
}

func Test_handleUpdateChart_htmlFragment(t *testing.T) {
	pub := &mockPublisher{}
	mux := newTestMux(t, &mockLoader{ds: franceDataset(t)}, pub)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/update_chart/France/NO2/2", nil)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; want %d", rec.Code, http.StatusOK)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/html; charset=utf-8" {
		t.Errorf("Content-Type = %q", ct)
	}
	body := rec.Body.String()
	for _, want := range []string{
		`data-position="2"`,
		"NO2 Level in France (based on 1 measurements)",
		`<option value="France" selected>`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q", want)
		}
	}
	if strings.Contains(body, "<html") {
		t.Error("fragment must not contain the page layout")
	}
	if len(pub.events) != 1 || pub.events[0].Position != "2" {
		t.Errorf("events = %+v; want one for position 2", pub.events)
	}
}

func Test_wantsHTML(t *testing.T) {
	tests := []struct {
		accept string
		want   bool
	}{
		{"", false},
		{"*/*", false},
		{"application/json", false},
		{"text/html", true},
		{"Text/HTML; charset=utf-8", true},
		{"text/html,application/json", true},
		{"application/json, text/html", false},
	}

	for _, tt := range tests {
		t.Run(tt.accept, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/update_chart/a/b/1", nil)
			if tt.accept != "" {
				req.Header.Set("Accept", tt.accept)
			}
			if got := wantsHTML(req); got != tt.want {
				t.Errorf("wantsHTML(%q) = %v; want %v", tt.accept, got, tt.want)
			}
		})
	}
}

func Test_handleChartImage(t *testing.T) {
	t.Run("renders png", func(t *testing.T) {
		mux := newTestMux(t, &mockLoader{ds: franceDataset(t)}, nil)

		rec := serve(mux, chart.ImageURL("France", "NO2"))

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d; want %d (%s)", rec.Code, http.StatusOK, rec.Body.String())
		}
		if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
			t.Errorf("Content-Type = %q; want image/png", ct)
		}
		if !strings.HasPrefix(rec.Body.String(), "\x89PNG") {
			t.Error("body is not a PNG")
		}
	})

	t.Run("requires country and pollutant", func(t *testing.T) {
		mux := newTestMux(t, &mockLoader{ds: franceDataset(t)}, nil)

		rec := serve(mux, "/chart.png?country=France")

		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d; want %d", rec.Code, http.StatusBadRequest)
		}
	})
}

func Test_apiEndpoints(t *testing.T) {
	mux := newTestMux(t, &mockLoader{ds: franceDataset(t)}, nil)

	tests := []struct {
		name       string
		target     string
		wantStatus int
		wantBody   []string
	}{
		{"countries", "/api/v1/countries", http.StatusOK, []string{`["France"]`}},
		{"pollutants", "/api/v1/pollutants", http.StatusOK, []string{`["NO2"]`}},
		{"dataset", "/api/v1/dataset", http.StatusOK, []string{`"origin":"source"`, `"rows":1`}},
		{"unknown api path", "/api/v1/nope", http.StatusNotFound, []string{`"error"`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(mux, tt.target)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d; want %d", rec.Code, tt.wantStatus)
			}
			if ct := rec.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
				t.Errorf("Content-Type = %q; want application/json", ct)
			}
			for _, want := range tt.wantBody {
				if !strings.Contains(rec.Body.String(), want) {
					t.Errorf("body = %q; want %s", rec.Body.String(), want)
				}
			}
		})
	}
}

func Test_handleDataset_demoFallback(t *testing.T) {
	ds := dataset.Demo()
	mux := newTestMux(t, &mockLoader{ds: ds}, nil)

	rec := serve(mux, "/api/v1/dataset")

	var summary datasetSummary
	if err := json.NewDecoder(rec.Body).Decode(&summary); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if summary.Origin != "demo" || summary.Rows != 50 {
		t.Errorf("summary = %+v", summary)
	}
	if summary.Measurements != nil {
		t.Errorf("measurements listed without ?rows=true: %d", len(summary.Measurements))
	}
}

func Test_handleDataset_rows(t *testing.T) {
	mux := newTestMux(t, &mockLoader{ds: franceDataset(t)}, nil)

	rec := serve(mux, "/api/v1/dataset?rows=true")

	var summary datasetSummary
	if err := json.NewDecoder(rec.Body).Decode(&summary); err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := []dataset.Row{{Country: "France", Pollutant: "NO2", Value: 38.7, Unit: "µg/m³"}}
	if len(summary.Measurements) != 1 || summary.Measurements[0] != want[0] {
		t.Errorf("measurements = %+v; want %+v", summary.Measurements, want)
	}
}

func Test_recovered(t *testing.T) {
	err := recovered(func() error { panic("boom") })
	if err == nil || !strings.Contains(err.Error(), "boom") {
		t.Errorf("recovered() = %v; want error mentioning panic", err)
	}

	want := errors.New("plain")
	if err := recovered(func() error { return want }); err != want {
		t.Errorf("recovered() = %v; want %v", err, want)
	}
}

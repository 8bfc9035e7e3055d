package controller

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"airquality-server/internal/modules/airquality/chart"
	"airquality-server/internal/modules/airquality/dataset"
	"airquality-server/internal/modules/airquality/service"
	"airquality-server/internal/modules/airquality/types"
	"airquality-server/internal/modules/airquality/views"
	"airquality-server/internal/utils"
)

func (c *airQualityControllerImpl) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		c.renderErrorPage(w, http.StatusNotFound, "Page not found", "The page you requested does not exist.")
		return
	}

	var buf bytes.Buffer
	err := recovered(func() error {
		data, err := c.buildIndex(r.Context())
		if err != nil {
			return err
		}
		return views.RenderIndex(&buf, data)
	})
	if err != nil {
		c.logger.Error("index: build failed", "error", err)
		c.renderErrorPage(w, http.StatusInternalServerError, "Something went wrong", "Unable to build the dashboard: "+err.Error())
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := w.Write(buf.Bytes()); err != nil {
		c.logger.Error("index: write response failed", "error", err)
	}
}

func (c *airQualityControllerImpl) buildIndex(ctx context.Context) (*views.IndexData, error) {
	ds := c.loader.Load(ctx)
	countries := service.DistinctCountries(ds)
	pollutants := service.DistinctPollutants(ds)
	sel := defaultSelection(countries, pollutants)

	data := &views.IndexData{
		Countries:  countries,
		Pollutants: pollutants,
		Origin:     string(ds.Origin()),
		Rows:       ds.Len(),
	}
	if reason := ds.FallbackReason(); reason != nil {
		data.FallbackReason = reason.Error()
	}

	for i, country := range []string{sel.Country1, sel.Country2} {
		fig, err := figureFor(ds, country, sel.Pollutant)
		if err != nil {
			return nil, err
		}
		data.Charts = append(data.Charts, views.ChartCard{
			Position:          fmt.Sprint(i + 1),
			Countries:         countries,
			Pollutants:        pollutants,
			SelectedCountry:   country,
			SelectedPollutant: sel.Pollutant,
			Figure:            fig,
		})
	}
	return data, nil
}

func (c *airQualityControllerImpl) handleUpdateChart(w http.ResponseWriter, r *http.Request) {
	country := r.PathValue("country")
	pollutant := r.PathValue("pollutant")
	position := r.PathValue("position")
	if country == "" || pollutant == "" || position == "" {
		utils.WriteError(w, http.StatusBadRequest, "missing country, pollutant or position")
		return
	}

	var (
		fig chart.Figure
		ds  dataset.Dataset
	)
	err := recovered(func() error {
		ds = c.loader.Load(r.Context())
		var err error
		fig, err = figureFor(ds, country, pollutant)
		return err
	})
	if err != nil {
		c.logger.Error("update chart failed",
			"country", country,
			"pollutant", pollutant,
			"position", position,
			"error", err,
		)
		utils.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	c.logger.Debug("chart updated",
		"country", country,
		"pollutant", pollutant,
		"position", position,
		"count", fig.Spec.Count,
	)

	if wantsHTML(r) {
		c.writeChartPartial(w, r, ds, position, fig)
		return
	}

	body, err := utils.EncodeJSON(map[string]chart.Figure{"chart": fig})
	if err != nil {
		c.logger.Error("update chart: encode failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	c.publishUpdate(r.Context(), ds, position, fig)
	utils.WriteRawJSON(w, http.StatusOK, body)
}

// writeChartPartial answers an update with the chart card HTML instead of JSON.
func (c *airQualityControllerImpl) writeChartPartial(w http.ResponseWriter, r *http.Request, ds dataset.Dataset, position string, fig chart.Figure) {
	var buf bytes.Buffer
	err := recovered(func() error {
		return views.RenderChartPartial(&buf, &views.ChartCard{
			Position:          position,
			Countries:         service.DistinctCountries(ds),
			Pollutants:        service.DistinctPollutants(ds),
			SelectedCountry:   fig.Spec.Country,
			SelectedPollutant: fig.Spec.Pollutant,
			Figure:            fig,
		})
	})
	if err != nil {
		c.logger.Error("update chart: render partial failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	c.publishUpdate(r.Context(), ds, position, fig)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := w.Write(buf.Bytes()); err != nil {
		c.logger.Error("update chart: write response failed", "error", err)
	}
}

func (c *airQualityControllerImpl) publishUpdate(ctx context.Context, ds dataset.Dataset, position string, fig chart.Figure) {
	c.publish(ctx, types.ChartEvent{
		Country:   fig.Spec.Country,
		Pollutant: fig.Spec.Pollutant,
		Position:  position,
		Value:     fig.Spec.Value,
		Unit:      fig.Spec.Unit,
		Count:     fig.Spec.Count,
		Origin:    string(ds.Origin()),
		Time:      time.Now().UTC(),
	})
}

func (c *airQualityControllerImpl) handleChartImage(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	country, pollutant := q.Get("country"), q.Get("pollutant")
	if country == "" || pollutant == "" {
		utils.WriteError(w, http.StatusBadRequest, "missing 'country' or 'pollutant'")
		return
	}

	var buf bytes.Buffer
	err := recovered(func() error {
		fig, err := figureFor(c.loader.Load(r.Context()), country, pollutant)
		if err != nil {
			return err
		}
		return chart.RenderPNG(&buf, fig)
	})
	if err != nil {
		c.logger.Error("chart image failed", "country", country, "pollutant", pollutant, "error", err)
		utils.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	if _, err := w.Write(buf.Bytes()); err != nil {
		c.logger.Error("chart image: write response failed", "error", err)
	}
}

func (c *airQualityControllerImpl) handleCountries(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSON(w, http.StatusOK, service.DistinctCountries(c.loader.Load(r.Context())))
}

func (c *airQualityControllerImpl) handlePollutants(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSON(w, http.StatusOK, service.DistinctPollutants(c.loader.Load(r.Context())))
}

type datasetSummary struct {
	Origin         string   `json:"origin"`
	Source         string   `json:"source,omitempty"`
	Rows           int      `json:"rows"`
	Columns        []string `json:"columns"`
	FallbackReason string   `json:"fallback_reason,omitempty"`
	// Measurements is only filled for ?rows=true.
	Measurements []dataset.Row `json:"measurements,omitempty"`
}

func (c *airQualityControllerImpl) handleDataset(w http.ResponseWriter, r *http.Request) {
	ds := c.loader.Load(r.Context())
	summary := datasetSummary{
		Origin:  string(ds.Origin()),
		Source:  ds.Source(),
		Rows:    ds.Len(),
		Columns: ds.Columns(),
	}
	if reason := ds.FallbackReason(); reason != nil {
		summary.FallbackReason = reason.Error()
	}
	if withRows, _ := strconv.ParseBool(r.URL.Query().Get("rows")); withRows {
		summary.Measurements = ds.Rows()
	}
	utils.WriteJSON(w, http.StatusOK, summary)
}

func (c *airQualityControllerImpl) handleAPINotFound(w http.ResponseWriter, r *http.Request) {
	utils.WriteError(w, http.StatusNotFound, "no such endpoint: "+r.URL.Path)
}

func (c *airQualityControllerImpl) renderErrorPage(w http.ResponseWriter, status int, title, message string) {
	var buf bytes.Buffer
	if err := views.RenderError(&buf, &views.ErrorData{Status: status, Title: title, Message: message}); err != nil {
		c.logger.Error("error page render failed", "error", err)
		utils.WriteError(w, status, message)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write(buf.Bytes()); err != nil {
		c.logger.Error("error page: write response failed", "error", err)
	}
}

func (c *airQualityControllerImpl) publish(ctx context.Context, event types.ChartEvent) {
	if c.publisher == nil {
		return
	}
	if err := c.publisher.PublishChart(ctx, event); err != nil {
		c.logger.Warn("chart event not published", "position", event.Position, "error", err)
	}
}

func figureFor(ds dataset.Dataset, country, pollutant string) (chart.Figure, error) {
	agg := service.Average(ds, country, pollutant)
	return chart.Build(types.ChartSpec{
		Country:   country,
		Pollutant: pollutant,
		Value:     agg.Average,
		Unit:      agg.Unit,
		Count:     agg.Count,
	})
}

// recovered runs fn and turns a panic into an error.
func recovered(fn func() error) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("internal error: %v", rec)
		}
	}()
	return fn()
}

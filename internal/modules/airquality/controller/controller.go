package controller

import (
	"context"
	"log/slog"
	"net/http"

	"airquality-server/internal/modules/airquality/dataset"
	"airquality-server/internal/modules/airquality/types"
)

// DatasetLoader yields a fresh dataset snapshot; it never fails.
type DatasetLoader interface {
	Load(ctx context.Context) dataset.Dataset
}

// ChartPublisher announces refreshed charts to other consumers.
type ChartPublisher interface {
	PublishChart(ctx context.Context, event types.ChartEvent) error
}

type AirQualityController interface {
	RegisterRoutes(mux *http.ServeMux)
}

type airQualityControllerImpl struct {
	loader    DatasetLoader
	publisher ChartPublisher
	logger    *slog.Logger
}

func NewAirQualityController(loader DatasetLoader, publisher ChartPublisher, logger *slog.Logger) AirQualityController {
	if logger == nil {
		logger = slog.Default()
	}
	return &airQualityControllerImpl{loader: loader, publisher: publisher, logger: logger}
}

func (c *airQualityControllerImpl) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /", c.handleIndex)
	mux.HandleFunc("GET /update_chart/{country}/{pollutant}/{position}", c.handleUpdateChart)
	mux.HandleFunc("GET /chart.png", c.handleChartImage)
	mux.HandleFunc("GET /api/v1/countries", c.handleCountries)
	mux.HandleFunc("GET /api/v1/pollutants", c.handlePollutants)
	mux.HandleFunc("GET /api/v1/dataset", c.handleDataset)
	mux.HandleFunc("GET /api/", c.handleAPINotFound)
}

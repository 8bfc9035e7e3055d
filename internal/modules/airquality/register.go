package airquality

import (
	"log/slog"
	"net/http"

	"airquality-server/internal/modules/airquality/controller"
	"airquality-server/internal/modules/airquality/views"
)

// RegisterFeature mounts the dashboard, chart and dataset routes plus the static assets.
func RegisterFeature(mux *http.ServeMux, loader controller.DatasetLoader, publisher controller.ChartPublisher, logger *slog.Logger) {
	airQualityController := controller.NewAirQualityController(loader, publisher, logger)
	airQualityController.RegisterRoutes(mux)
	mux.Handle("GET /static/", views.StaticHandler())
}

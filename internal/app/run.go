package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"airquality-server/internal/config"
	httpapi "airquality-server/internal/httpapi"
	"airquality-server/internal/modules/airquality"
	"airquality-server/internal/modules/airquality/controller"
	"airquality-server/internal/modules/airquality/dataset"
	"airquality-server/internal/modules/airquality/views"
	"airquality-server/internal/mqtt"
)

func Run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	logger.Info("config loaded",
		"appEnv", cfg.AppEnv,
		"logLevel", cfg.LogLevel.String(),
		"httpAddr", cfg.HTTPAddr,
		"datasetPath", cfg.DatasetPath,
		"datasetTable", cfg.DatasetTable,
		"mqttBroker", cfg.MQTTBroker,
		"mqttPort", cfg.MQTTPort,
		"mqttTopic", cfg.MQTTTopic,
	)

	if err := views.LoadTemplates(); err != nil {
		return err
	}

	loader := dataset.NewLoader(cfg, logger)
	// Every request reloads the source; this load only reports what the first request will see.
	ds := loader.Load(ctx)
	logger.Info("dataset checked", "origin", ds.Origin(), "rows", ds.Len(), "source", cfg.DatasetPath)

	publisher, closePublisher := newPublisher(ctx, cfg, logger)

	mux := httpapi.NewMux(loader)
	airquality.RegisterFeature(mux, loader, publisher, logger)

	srv := httpapi.NewServer(cfg, mux, logger)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http listening", "addr", cfg.HTTPAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		closePublisher()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("http shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		closePublisher()
		return err
	}

	logger.Info("mqtt disconnecting")
	closePublisher()

	err := <-errCh
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return ctx.Err()
}

// newPublisher connects to the broker when one is configured. A broker that is
// down at startup does not stop the server; publishing resumes once it connects.
func newPublisher(ctx context.Context, cfg config.Config, logger *slog.Logger) (controller.ChartPublisher, func()) {
	if cfg.MQTTBroker == "" {
		logger.Info("mqtt disabled (MQTT_BROKER not set)")
		return mqtt.Discard{}, func() {}
	}

	p := mqtt.NewPublisher(cfg, logger)

	connectCtx, connectCancel := context.WithTimeout(ctx, 5*time.Second)
	err := p.Connect(connectCtx)
	connectCancel()
	if err != nil {
		logger.Warn("mqtt connection failed (continuing, will retry in background)", "error", err)
	}

	return p, p.Disconnect
}

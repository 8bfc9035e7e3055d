package httpapi

import (
	"context"
	"net/http"

	"airquality-server/internal/modules/airquality/dataset"
	"airquality-server/internal/utils"
)

// DatasetProbe is the part of the dataset loader the health check needs.
type DatasetProbe interface {
	Load(ctx context.Context) dataset.Dataset
}

type healthchecker interface {
	handleHealthz(w http.ResponseWriter, r *http.Request)
}

type healthcheckerImpl struct {
	probe DatasetProbe
}

func NewHealthchecker(probe DatasetProbe) healthchecker {
	return &healthcheckerImpl{probe: probe}
}

type healthResponse struct {
	Status         string `json:"status"`
	Origin         string `json:"origin"`
	Rows           int    `json:"rows"`
	FallbackReason string `json:"fallback_reason,omitempty"`
}

// handleHealthz always answers 200: demo data keeps the service usable. A demo
// fallback is reported as "degraded".
func (h *healthcheckerImpl) handleHealthz(w http.ResponseWriter, r *http.Request) {
	ds := h.probe.Load(r.Context())

	resp := healthResponse{
		Status: "ok",
		Origin: string(ds.Origin()),
		Rows:   ds.Len(),
	}
	if reason := ds.FallbackReason(); reason != nil {
		resp.Status = "degraded"
		resp.FallbackReason = reason.Error()
	}
	utils.WriteJSON(w, http.StatusOK, resp)
}

func registerHealthcheck(mux *http.ServeMux, probe DatasetProbe) {
	healthchecker := NewHealthchecker(probe)
	mux.HandleFunc("GET /healthz", healthchecker.handleHealthz)
}

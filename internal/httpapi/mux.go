package httpapi

import (
	"net/http"

	"airquality-server/internal/metrics"
)

func NewMux(probe DatasetProbe) *http.ServeMux {
	mux := http.NewServeMux()
	registerHealthcheck(mux, probe)
	mux.Handle("GET /metrics", metrics.Handler())
	return mux
}

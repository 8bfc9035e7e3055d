package controller

import (
	"net/http"
	"strings"

	"airquality-server/internal/modules/airquality/service"
)

// fallbackPollutant is used when the dataset lists no pollutants.
const fallbackPollutant = "NO2"

type selection struct {
	Country1  string
	Country2  string
	Pollutant string
}

// defaultSelection picks the first two countries and the first pollutant.
// A single-country list is used for both charts.
func defaultSelection(countries, pollutants []string) selection {
	sel := selection{
		Country1:  service.NoDataSentinel,
		Pollutant: fallbackPollutant,
	}
	if len(countries) > 0 {
		sel.Country1 = countries[0]
	}
	sel.Country2 = sel.Country1
	if len(countries) > 1 {
		sel.Country2 = countries[1]
	}
	if len(pollutants) > 0 {
		sel.Pollutant = pollutants[0]
	}
	return sel
}

// wantsHTML reports whether the first media type in Accept is text/html.
// Anything else, including a missing header or */*, gets JSON.
func wantsHTML(r *http.Request) bool {
	first, _, _ := strings.Cut(r.Header.Get("Accept"), ",")
	mediaType, _, _ := strings.Cut(first, ";")
	return strings.EqualFold(strings.TrimSpace(mediaType), "text/html")
}

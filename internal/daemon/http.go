package daemon

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"procwatch/internal/metrics"
)

type counter interface {
	Counts() (entries, bound int)
}

func newHTTPHandler(m *metrics.Collector, c counter) http.Handler {
	r := mux.NewRouter()
	r.Handle("/metrics", m.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		entries, bound := c.Counts()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":  "healthy",
			"entries": entries,
			"bound":   bound,
		})
	}).Methods(http.MethodGet)
	return r
}

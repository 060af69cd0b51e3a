package publisher

import (
	"encoding/json"
	"net/http"
	"os"

	"github.com/gorilla/mux"
)

// NewRouter serves the latest published document at /snapshot.json, a health
// check at /healthz and, when metrics is non-nil, metrics at /metrics.
func NewRouter(docPath string, metrics http.Handler) *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/snapshot.json", func(w http.ResponseWriter, r *http.Request) {
		data, err := os.ReadFile(docPath)
		if os.IsNotExist(err) {
			http.Error(w, "no snapshot published yet", http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-cache")
		w.Write(data)
	}).Methods("GET")

	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}).Methods("GET")

	if metrics != nil {
		router.Handle("/metrics", metrics).Methods("GET")
	}
	return router
}

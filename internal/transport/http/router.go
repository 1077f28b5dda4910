package http

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
)

// NewRouter mounts the game socket, the lobby endpoints, health and metrics.
// allowedOrigins applies to the REST endpoints; empty allows any origin.
func NewRouter(games *GameHandler, rest *RESTHandler, gatherer prometheus.Gatherer, allowedOrigins []string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /ws", games.ServeWS)
	mux.HandleFunc("GET /categories", rest.Categories)
	mux.HandleFunc("GET /count", rest.Count)
	mux.HandleFunc("GET /highscores", rest.Highscores)
	mux.HandleFunc("GET /highscores/last", rest.LastHighscore)
	if gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	return cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet},
		AllowedHeaders: []string{"Content-Type"},
	}).Handler(mux)
}

package httpapi

import (
	"net/http"

	"github.com/DoyleJ11/matchqueue-backend/internal/hub"
	"github.com/DoyleJ11/matchqueue-backend/internal/store"
	"github.com/DoyleJ11/matchqueue-backend/internal/ws"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type Deps struct {
	Hub            *hub.Hub
	Reader         store.Reader
	Gatherer       prometheus.Gatherer
	OriginPatterns []string
	Logger         *zap.Logger
}

func SetupRoutes(d Deps) http.Handler {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Reader == nil {
		d.Reader = store.Nop{}
	}
	log := d.Logger.Named("http")

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(log))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", Healthz)
	r.Get("/ws", ws.Handler(d.Hub, ws.Options{OriginPatterns: d.OriginPatterns, Logger: d.Logger}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/queue/stats", QueueStats(d.Hub))
		r.Get("/lobby/{lobbyID}", GetLobby(d.Hub))
		r.Get("/matches", RecentMatches(d.Reader, log))
		r.Get("/stats/user/{userID}", UserStats(d.Reader, log))
	})

	if d.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

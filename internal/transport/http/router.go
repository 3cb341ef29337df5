package http

import (
	"net/http"
	"time"

	"github.com/roomkit/roomd/config"
	httpmw "github.com/roomkit/roomd/internal/transport/http/middleware"
	"github.com/roomkit/roomd/internal/transport/ws"
	"github.com/roomkit/roomd/pkg/metrics"

	"github.com/go-chi/chi/v5"
	middlewareChi "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

func NewRouter(h *Handler, wsServer *ws.Server, cfg *config.Watcher) http.Handler {
	r := chi.NewRouter()
	r.Use(middlewareChi.RequestID)
	r.Use(middlewareChi.RealIP)
	r.Use(middlewareChi.Recoverer)
	r.Use(httpmw.Logging)

	if cfg.Current().CORS.Enabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{"*"},
			AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"*"},
			AllowCredentials: true,
		}))
	}

	// Everything behind the shared key.
	r.Group(func(pr chi.Router) {
		pr.Use(httpmw.Auth(cfg))

		// WS upgrade has no write timeout; keep it out of the
		// Timeout-wrapped group.
		pr.Get("/ws", wsServer.HandleWS)

		pr.Group(func(ar chi.Router) {
			ar.Use(middlewareChi.Timeout(30 * time.Second))

			ar.Get("/", h.Index)

			ar.Route("/room/{room}", func(rm chi.Router) {
				rm.Get("/", h.GetRoom)
				rm.Post("/", h.UpdateRoom)
				rm.Delete("/", h.DeleteRoom)
			})

			ar.Post("/file/{filename}", h.UploadFile)
			ar.Delete("/file/{filename}", h.DeleteFile)
			ar.Get("/file/*", h.ServeFile)
			ar.Get("/files", h.ListFiles)
		})
	})

	// health + metrics stay open
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	return r
}

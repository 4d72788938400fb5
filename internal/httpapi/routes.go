package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/DoyleJ11/bunker-server/internal/hub"
	"github.com/DoyleJ11/bunker-server/internal/ws"
)

func SetupRoutes(h *hub.Hub, log *zap.Logger, wsOpts ws.Options) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", Healthz)
	r.Get("/rooms/{code}", GetRoom(h, log))
	r.Get("/ws", ws.Handler(h, log, wsOpts))
	return r
}

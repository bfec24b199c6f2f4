package httpapi

import (
	stdhttp "net/http"

	"sdproxy/internal/http/handlers"
	appmw "sdproxy/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewRouter(app *handlers.App) stdhttp.Handler {
	r := chi.NewRouter()
	r.Use(appmw.RequestID, middleware.RealIP, middleware.Recoverer, appmw.Logger(app.Logger))

	// Health
	r.Get("/v1/healthz", app.Health)

	// The proxy surface is a single endpoint; the target backend operation
	// travels inside the envelope.
	r.Post("/api", app.Proxy)

	return r
}

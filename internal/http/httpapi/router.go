package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"sponsorkit/internal/http/handlers"
	"sponsorkit/internal/infra"
	"sponsorkit/internal/middleware"
)

// Options configures the router.
type Options struct {
	Logger *infra.Logger
	// RefreshToken guards POST /v1/refresh. Empty disables refresh.
	RefreshToken string
	// RefreshPerMinute caps refresh calls per client IP.
	RefreshPerMinute int
	// AllowedOrigins enables CORS for browsers embedding the sheets.
	AllowedOrigins []string
}

func NewRouter(app *handlers.App, opts Options) http.Handler {
	logger := infra.OrDiscard(opts.Logger)
	perMinute := opts.RefreshPerMinute
	if perMinute <= 0 {
		perMinute = 6
	}

	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(*logger),
	)
	if len(opts.AllowedOrigins) > 0 {
		r.Use(middleware.CORS(opts.AllowedOrigins))
	}

	r.Get("/v1/healthz", app.Health)

	r.Route("/v1/renders", func(r chi.Router) {
		r.Get("/", app.ListRenders)
		r.Get("/{file}", app.Render)
	})
	r.Get("/v1/renders.zip", app.Archive)

	r.With(
		middleware.RateLimit(perMinute, time.Minute),
		middleware.RequireToken(opts.RefreshToken),
	).Post("/v1/refresh", app.Refresh)

	return r
}

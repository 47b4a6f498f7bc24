package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"merabuchpan/internal/http/handlers"
	"merabuchpan/internal/middleware"
)

// Options carries router-level settings that are not part of the App.
type Options struct {
	DefaultLocale      string
	CORSAllowedOrigins []string
	GeneratePerMinute  int
	CountryLookup      middleware.CountryLookup
	// TrustProxyHeaders takes the client address from X-Forwarded-For and
	// X-Real-IP. Enable it only behind a proxy that overwrites them.
	TrustProxyHeaders  bool
}

// NewRouter mounts the page, the form actions and the JSON API.
func NewRouter(app *handlers.App, logger zerolog.Logger, opts Options) http.Handler {
	r := chi.NewRouter()

	if opts.TrustProxyHeaders {
		r.Use(chimw.RealIP)
	}
	r.Use(
		middleware.RequestID(logger),
		middleware.Logger(logger),
		chimw.Recoverer,
		middleware.I18N(opts.DefaultLocale, opts.CountryLookup),
	)

	r.Get("/", app.Index)
	r.Route("/photos/{slot}", func(r chi.Router) {
		r.Post("/", app.SelectPhoto)
		r.Get("/preview", app.Preview)
	})
	r.With(middleware.RateLimit(opts.GeneratePerMinute, time.Minute)).Post("/generate", app.Generate)
	r.Post("/reset", app.Reset)
	r.Get("/download", app.Download)

	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.CORS(opts.CORSAllowedOrigins))
		r.Get("/healthz", app.Health)
		r.Get("/state", app.State)
		r.Get("/stats", app.Stats)
	})

	return r
}

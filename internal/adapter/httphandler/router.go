package httphandler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/niksmo/product-explorer/internal/core/port"
	"github.com/unrolled/secure"
)

type Metrics interface {
	Handler() http.Handler
	Middleware(http.Handler) http.Handler
}

type RouterConfig struct {
	Explorer port.Explorer
	// Metrics is optional.
	Metrics        Metrics
	RateLimit      int
	RateWindow     time.Duration
	RequestTimeout time.Duration
}

func NewRouter(cfg RouterConfig) http.Handler {
	secureMiddleware := secure.New(secure.Options{
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		BrowserXssFilter:      true,
		ReferrerPolicy:        "strict-origin-when-cross-origin",
		ContentSecurityPolicy: "default-src 'none'",
	})

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware)
	}
	r.Use(secureMiddleware.Handler)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics.Handler())
	}

	r.Group(func(r chi.Router) {
		if cfg.RateLimit > 0 {
			r.Use(httprate.Limit(
				cfg.RateLimit, cfg.RateWindow,
				httprate.WithKeyFuncs(httprate.KeyByIP),
			))
		}
		if cfg.RequestTimeout > 0 {
			r.Use(middleware.Timeout(cfg.RequestTimeout))
		}
		r.Use(AllowJSON)
		r.Use(Session)
		NewHandler(cfg.Explorer).Register(r)
	})

	return r
}

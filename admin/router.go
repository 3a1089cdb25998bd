package admin

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jonwraymond/metacache/auth"
	"github.com/jonwraymond/metacache/health"
	"github.com/jonwraymond/metacache/metacache"
	"github.com/jonwraymond/metacache/observe"
)

// ErrNoCache is returned by NewRouter when Config.Cache is nil.
var ErrNoCache = errors.New("admin: cache is required")

// Config wires the admin API.
type Config struct {
	// Cache is the metadata cache being administered.
	Cache *metacache.Cache

	// Authenticator validates credentials on /v1 routes. When nil every
	// request runs as an anonymous identity carrying AnonymousRoles.
	Authenticator auth.Authenticator

	// Authorizer decides per-route actions.
	// Default: auth.AllowAllAuthorizer
	Authorizer auth.Authorizer

	// AnonymousRoles are granted to the anonymous identity.
	AnonymousRoles []string

	// Health backs /healthz, /readyz and /health. Nil disables them.
	Health *health.Aggregator

	// Metrics serves /metrics.
	// Default: promhttp.Handler()
	Metrics http.Handler

	// Logger receives request and failure logs.
	// Default: observe.NopLogger()
	Logger observe.Logger
}

// NewRouter builds the admin HTTP handler.
func NewRouter(cfg Config) (chi.Router, error) {
	if cfg.Cache == nil {
		return nil, ErrNoCache
	}
	if cfg.Authorizer == nil {
		cfg.Authorizer = auth.AllowAllAuthorizer{}
	}
	if cfg.Metrics == nil {
		cfg.Metrics = promhttp.Handler()
	}
	if cfg.Logger == nil {
		cfg.Logger = observe.NopLogger()
	}

	h := &handlers{cache: cfg.Cache, logger: cfg.Logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(cfg.Logger))
	r.Use(middleware.Recoverer)
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, errors.New("no such route"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
	})

	if cfg.Health != nil {
		r.Mount("/", health.Routes(cfg.Health))
	}
	r.Method(http.MethodGet, "/metrics", cfg.Metrics)

	r.Route("/v1", func(r chi.Router) {
		if cfg.Authenticator != nil {
			r.Use(auth.Middleware(cfg.Authenticator, authFailure))
		} else {
			r.Use(anonymous(cfg.AnonymousRoles))
		}
		r.Use(middleware.NoCache)

		require := func(action string) func(http.Handler) http.Handler {
			return auth.Require(cfg.Authorizer, action, authFailure)
		}

		r.With(require("describe:object")).Get("/objects/{businessKey}", h.objectByBusinessKey)
		r.With(require("describe:children")).Get("/objects/{businessKey}/children", h.children)
		r.With(require("describe:table")).Get("/tables/{table}", h.objectByTable)
		r.With(require("describe:element")).Get("/tables/{table}/columns/{column}", h.elementByColumn)

		r.Route("/cache", func(r chi.Router) {
			r.With(require("cache:stats")).Get("/stats", h.stats)
			r.With(require("cache:clear")).Post("/clear", h.clear)
			r.With(require("cache:clear-all")).Post("/clear-all", h.clearAll)
			r.With(require("cache:toggle")).Put("/enabled", h.toggle)
		})
		r.With(require("epoch:bump")).Post("/epoch/bump", h.bump)
	})

	return r, nil
}

func anonymous(roles []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := auth.AnonymousIdentity()
			id.Roles = append([]string(nil), roles...)
			next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), id)))
		})
	}
}

func requestLogger(logger observe.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug(r.Context(), "admin request",
				observe.F("method", r.Method),
				observe.F("path", r.URL.Path),
				observe.F("status", ww.Status()),
				observe.F("bytes", ww.BytesWritten()),
				observe.F("duration_ms", time.Since(start).Milliseconds()),
				observe.F("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}

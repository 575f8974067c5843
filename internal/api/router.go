// 文件路径: internal/api/router.go
// 模块说明: chi 路由装配。/api/v1 下的读接口经过 ETag 与条件请求中间件。
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/creamcroissant/formboard/internal/api/handler"
	"github.com/creamcroissant/formboard/internal/api/middleware"
	"github.com/creamcroissant/formboard/internal/etag"
	"github.com/creamcroissant/formboard/internal/security"
	"github.com/creamcroissant/formboard/internal/service"
)

var quietPaths = []string{"/health", "/healthz", "/_internal/ready", "/metrics"}

// Services bundles what the HTTP layer calls into.
type Services struct {
	Accounts    service.AccountService
	Forms       service.FormService
	Submissions service.SubmissionService
}

// RouterOption customizes optional router behavior.
type RouterOption func(*routerOptions)

type routerOptions struct {
	etagEnabled    bool
	conditionalGet bool
	resolver       *etag.Resolver
	metrics        *middleware.Metrics
	gatherer       prometheus.Gatherer
	rateLimiter    *security.RateLimiter
	allowedOrigins []string
	maxBodyBytes   int64
	ready          func(context.Context) error
}

// WithETag toggles ETag generation and 304 handling for /api/v1.
func WithETag(enabled, conditionalGet bool) RouterOption {
	return func(o *routerOptions) {
		o.etagEnabled = enabled
		o.conditionalGet = conditionalGet
	}
}

// WithResolver overrides the ETag resolver (mainly to pin its clock).
func WithResolver(resolver *etag.Resolver) RouterOption {
	return func(o *routerOptions) { o.resolver = resolver }
}

// WithMetrics enables request metrics and exposes gatherer on /metrics.
func WithMetrics(metrics *middleware.Metrics, gatherer prometheus.Gatherer) RouterOption {
	return func(o *routerOptions) {
		o.metrics = metrics
		o.gatherer = gatherer
	}
}

// WithRateLimiter throttles /api/v1 per client IP.
func WithRateLimiter(limiter *security.RateLimiter) RouterOption {
	return func(o *routerOptions) { o.rateLimiter = limiter }
}

// WithCORS sets the allowed origins.
func WithCORS(origins []string) RouterOption {
	return func(o *routerOptions) { o.allowedOrigins = origins }
}

// WithBodyLimit caps request bodies.
func WithBodyLimit(maxBytes int64) RouterOption {
	return func(o *routerOptions) { o.maxBodyBytes = maxBytes }
}

// WithReadiness plugs a dependency check into /_internal/ready.
func WithReadiness(check func(context.Context) error) RouterOption {
	return func(o *routerOptions) { o.ready = check }
}

// NewRouter wires health, metrics and the /api/v1 resources.
func NewRouter(logger *slog.Logger, services Services, opts ...RouterOption) http.Handler {
	options := routerOptions{etagEnabled: true, conditionalGet: true}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}
	if services.Accounts == nil || services.Forms == nil || services.Submissions == nil {
		panic("router requires account, form and submission services")
	}
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(
		chiMiddleware.RequestID,
		chiMiddleware.RealIP,
	)
	if options.metrics != nil {
		r.Use(options.metrics.Middleware())
	}
	r.Use(
		middleware.CORS(middleware.CORSConfig{AllowedOrigins: options.allowedOrigins, MaxAge: 86400}),
		middleware.BodyLimit(options.maxBodyBytes),
		middleware.StructuredLogger(middleware.LoggingConfig{
			Logger:        logger,
			SlowThreshold: 500 * time.Millisecond,
			SkipPaths:     quietPaths,
		}),
		chiMiddleware.Recoverer,
		chiMiddleware.Compress(5),
	)

	health := func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, map[string]any{
			"status": "ok",
			"ts":     time.Now().UTC().Format(time.RFC3339Nano),
		})
	}
	r.Get("/healthz", health)
	r.Get("/health", health)
	r.Get("/_internal/ready", func(w http.ResponseWriter, req *http.Request) {
		if options.ready != nil {
			if err := options.ready(req.Context()); err != nil {
				logger.Warn("readiness check failed", "error", err)
				respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		respondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})

	if options.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(options.gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(v1 chi.Router) {
		if options.rateLimiter != nil {
			v1.Use(middleware.RateLimit(middleware.RateLimitConfig{Limiter: options.rateLimiter, Logger: logger}))
		}
		if options.etagEnabled {
			// ConditionalGet must sit outside ETag so it sees the header ETag sets.
			if options.conditionalGet {
				v1.Use(middleware.ConditionalGet(options.metrics))
			}
			v1.Use(middleware.ETag(middleware.ETagConfig{
				Resolver: options.resolver,
				Logger:   logger,
				Metrics:  options.metrics,
			}))
		}

		handler.NewAccountHandler(services.Accounts, logger).Mount(v1)
		handler.NewFormHandler(services.Forms, services.Submissions, logger).Mount(v1)
		handler.NewSubmissionHandler(services.Submissions, logger).Mount(v1)
	})

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		logger.Warn("unmapped route hit", "method", req.Method, "path", req.URL.Path)
		http.NotFound(w, req)
	})

	return r
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

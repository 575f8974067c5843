// 文件路径: internal/bootstrap/infra.go
// 模块说明: 组装缓存、限流器、ETag 解析器与指标等共享基础设施。
package bootstrap

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/creamcroissant/formboard/internal/api/middleware"
	"github.com/creamcroissant/formboard/internal/cache"
	"github.com/creamcroissant/formboard/internal/config"
	"github.com/creamcroissant/formboard/internal/etag"
	"github.com/creamcroissant/formboard/internal/security"
)

// Infrastructure bundles helpers shared by services and the HTTP layer.
type Infrastructure struct {
	Cache    cache.Store
	Resolver *etag.Resolver
	// RateLimiter is nil when rate limiting is disabled.
	RateLimiter *security.RateLimiter
	// Registry and Metrics are nil when metrics are disabled.
	Registry *prometheus.Registry
	Metrics  *middleware.Metrics
}

// BuildInfrastructure wires default implementations from cfg.
func BuildInfrastructure(cfg *config.Config) (*Infrastructure, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required / 配置不能为空")
	}

	infra := &Infrastructure{
		Cache: cache.NewStore(cache.Options{
			Prefix:          "formboard",
			DefaultTTL:      5 * time.Minute,
			CleanupInterval: time.Minute,
		}),
		Resolver: etag.NewResolver(nil),
	}

	if cfg.RateLimit.Enabled {
		limiter, err := security.NewRateLimiter(infra.Cache, cfg.RateLimit.Requests, cfg.RateLimit.Window)
		if err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
		infra.RateLimiter = limiter
	}

	if cfg.Metrics.Enabled {
		registry := prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		infra.Registry = registry
		infra.Metrics = middleware.NewMetrics(middleware.MetricsConfig{
			Namespace:  cfg.Metrics.Namespace,
			Subsystem:  cfg.Metrics.Subsystem,
			Buckets:    cfg.Metrics.Buckets,
			SkipPaths:  []string{"/metrics", "/health", "/healthz", "/_internal/ready"},
			Registerer: registry,
		})
	}

	return infra, nil
}

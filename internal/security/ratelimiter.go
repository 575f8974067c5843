// 文件路径: internal/security/ratelimiter.go
// 模块说明: 固定窗口限流器，计数保存在缓存中。
package security

import (
	"context"
	"fmt"
	"time"

	"github.com/creamcroissant/formboard/internal/cache"
)

// RateLimiter counts hits per key within a fixed window.
type RateLimiter struct {
	store  cache.Store
	limit  int
	window time.Duration
	now    func() time.Time
}

// RateResult 描述 Allow 调用的结果。
type RateResult struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// NewRateLimiter 使用缓存存储构建限流器。
func NewRateLimiter(store cache.Store, limit int, window time.Duration) (*RateLimiter, error) {
	if store == nil {
		return nil, fmt.Errorf("rate limiter requires cache store / 限流器需要缓存存储")
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive / limit 必须为正数")
	}
	if window <= 0 {
		window = time.Minute
	}
	return &RateLimiter{store: store.Namespace("rate"), limit: limit, window: window, now: time.Now}, nil
}

// Allow 判断指定 key 是否可以在当前窗口内继续请求。
func (l *RateLimiter) Allow(ctx context.Context, key string) (RateResult, error) {
	if l == nil {
		return RateResult{}, fmt.Errorf("rate limiter not initialized / 限流器未初始化")
	}

	ttl := l.window
	if remain, ok := l.store.TTL(ctx, key); ok {
		ttl = remain
	}
	current, err := l.store.Increment(ctx, key, 1, ttl)
	if err != nil {
		return RateResult{}, fmt.Errorf("increment rate limit counter: %w", err)
	}

	remaining := l.limit - int(current)
	if remaining < 0 {
		remaining = 0
	}
	return RateResult{
		Allowed:   current <= int64(l.limit),
		Limit:     l.limit,
		Remaining: remaining,
		ResetAt:   l.now().UTC().Add(ttl),
	}, nil
}

// Reset 清除指定 key 的计数。
func (l *RateLimiter) Reset(ctx context.Context, key string) {
	if l != nil {
		l.store.Delete(ctx, key)
	}
}

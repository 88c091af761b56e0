package linkverify

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// HostGates spaces requests to the same host by a minimum interval. Each
// host gets a token bucket holding one token, refilled every interval.
// Different hosts never wait on each other.
type HostGates struct {
	mu       sync.Mutex
	limit    rate.Limit
	limiters map[string]*rate.Limiter
}

// NewHostGates returns gates for the given per-host interval. A zero
// interval disables spacing.
func NewHostGates(interval time.Duration) *HostGates {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &HostGates{limit: limit, limiters: make(map[string]*rate.Limiter)}
}

// Wait blocks until a request to host may be dispatched or ctx is done.
func (g *HostGates) Wait(ctx context.Context, host string) error {
	return g.limiter(host).Wait(ctx)
}

func (g *HostGates) limiter(host string) *rate.Limiter {
	g.mu.Lock()
	defer g.mu.Unlock()
	l, ok := g.limiters[host]
	if !ok {
		l = rate.NewLimiter(g.limit, 1)
		g.limiters[host] = l
	}
	return l
}

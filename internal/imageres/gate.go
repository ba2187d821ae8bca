package imageres

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Gate enforces a process-wide minimum spacing between calls to the
// product-image service. All callers share one Gate; each Wait suspends
// until that caller's slot is due.
type Gate struct {
	lim *rate.Limiter
}

// NewGate returns a Gate admitting one call per interval. The first call
// passes immediately. A non-positive interval disables spacing.
func NewGate(interval time.Duration) *Gate {
	if interval <= 0 {
		return &Gate{lim: rate.NewLimiter(rate.Inf, 1)}
	}
	return &Gate{lim: rate.NewLimiter(rate.Every(interval), 1)}
}

// Wait blocks until the next slot or ctx is done.
func (g *Gate) Wait(ctx context.Context) error {
	return g.lim.Wait(ctx)
}

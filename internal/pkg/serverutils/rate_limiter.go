package serverutils

import (
	"sync"

	"essay-coach-be/pkg/apperror"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/time/rate"
)

type limiterPool struct {
	mu    sync.Mutex
	m     map[string]*rate.Limiter
	rps   float64
	burst int
}

func (p *limiterPool) get(key string) *rate.Limiter {
	p.mu.Lock()
	defer p.mu.Unlock()
	if l, ok := p.m[key]; ok {
		return l
	}
	l := rate.NewLimiter(rate.Limit(p.rps), p.burst)
	p.m[key] = l
	return l
}

// RateLimiter throttles requests per authenticated user, falling back to the
// client IP for anonymous requests.
func RateLimiter(rps float64, burst int) fiber.Handler {
	if rps <= 0 {
		rps = 5
	}
	if burst <= 0 {
		burst = 10
	}
	pool := &limiterPool{m: make(map[string]*rate.Limiter), rps: rps, burst: burst}

	return func(ctx *fiber.Ctx) error {
		key, _ := ctx.Locals("user_id").(string)
		if key == "" {
			key = ctx.IP()
		}
		if !pool.get(key).Allow() {
			return apperror.ErrRateLimited
		}
		return ctx.Next()
	}
}

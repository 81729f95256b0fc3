package responses

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/cliossg/formkit/pkg/cl/config"
	"github.com/cliossg/formkit/pkg/cl/httpx"
	"github.com/cliossg/formkit/pkg/cl/logger"
	"github.com/cliossg/formkit/pkg/cl/middleware"
)

// Guard protects the public respondent endpoints with CORS headers and a
// per-address token bucket. It is a lifecycle component: Start runs the
// idle-limiter sweep and Stop ends it.
type Guard struct {
	mu       sync.Mutex
	limiters map[string]*visitor
	limit    rate.Limit
	burst    int
	idle     time.Duration

	allowedOrigins []string
	cancel         context.CancelFunc
	log            logger.Logger
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewGuard allows cfg.RateLimit requests per minute per address with bursts of cfg.Burst.
func NewGuard(cfg config.ResponsesConfig, log logger.Logger) *Guard {
	perMinute := cfg.RateLimit
	if perMinute <= 0 {
		perMinute = 10
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	return &Guard{
		limiters:       make(map[string]*visitor),
		limit:          rate.Every(time.Minute / time.Duration(perMinute)),
		burst:          burst,
		idle:           10 * time.Minute,
		allowedOrigins: cfg.AllowedOrigins,
		log:            log,
	}
}

func (g *Guard) Start(ctx context.Context) error {
	sweepCtx, cancel := context.WithCancel(context.Background())
	g.cancel = cancel
	go g.cleanup(sweepCtx)
	g.log.Info("Respondent guard started")
	return nil
}

func (g *Guard) Stop(ctx context.Context) error {
	if g.cancel != nil {
		g.cancel()
	}
	return nil
}

func (g *Guard) cleanup(ctx context.Context) {
	ticker := time.NewTicker(g.idle)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			g.sweep(now)
		}
	}
}

func (g *Guard) sweep(now time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for ip, v := range g.limiters {
		if now.Sub(v.lastSeen) > g.idle {
			delete(g.limiters, ip)
		}
	}
}

func (g *Guard) allow(ip string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	v, ok := g.limiters[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(g.limit, g.burst)}
		g.limiters[ip] = v
	}
	v.lastSeen = time.Now()
	return v.limiter.Allow()
}

// Middleware applies CORS and, for non-preflight requests, the rate limit.
func (g *Guard) Middleware(next http.Handler) http.Handler {
	return g.cors(g.rateLimit(next))
}

// CORS applies only the origin checks, for respondent steps that are not
// counted against the rate limit.
func (g *Guard) CORS(next http.Handler) http.Handler {
	return g.cors(next)
}

func (g *Guard) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := middleware.GetClientIP(r.Context())
		if ip == "" {
			ip = middleware.ExtractIP(r)
		}
		if !g.allow(ip) {
			httpx.Error(w, r, http.StatusTooManyRequests, "rate_limited", "Too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (g *Guard) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && g.isAllowedOrigin(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			w.Header().Add("Vary", "Origin")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (g *Guard) isAllowedOrigin(origin string) bool {
	if len(g.allowedOrigins) == 0 {
		return true // If no origins configured, allow all
	}
	for _, allowed := range g.allowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	return false
}

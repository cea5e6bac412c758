package api

import (
	"context"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limit is a per-client token bucket.
type Limit struct {
	Rate  float64 // tokens per second
	Burst int
}

// RateLimits splits traffic into reads, which only look at published
// snapshots, and writes, which take the scheduler lock to mutate the arena.
type RateLimits struct {
	Reads      Limit
	Writes     Limit
	IdleExpiry time.Duration // clients idle this long are forgotten
	TrustProxy bool          // key clients by X-Forwarded-For / X-Real-IP
}

// DefaultRateLimits allows a polling dashboard but only a trickle of host
// operations per client.
func DefaultRateLimits() RateLimits {
	return RateLimits{
		Reads:      Limit{Rate: 20, Burst: 40},
		Writes:     Limit{Rate: 2, Burst: 5},
		IdleExpiry: 10 * time.Minute,
	}
}

// Traffic classes, also used as metric labels.
const (
	classRead  = "read"
	classWrite = "write"
)

func trafficClass(r *http.Request) string {
	switch r.Method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return classRead
	default:
		return classWrite
	}
}

// bucketTable holds one limiter per client for a traffic class.
type bucketTable struct {
	limit   Limit
	mu      sync.Mutex
	clients map[string]*bucket
}

type bucket struct {
	lim  *rate.Limiter
	seen time.Time
}

func newBucketTable(l Limit) *bucketTable {
	if l.Burst <= 0 {
		l.Burst = 1
	}
	return &bucketTable{limit: l, clients: make(map[string]*bucket)}
}

func (t *bucketTable) allow(client string, now time.Time) bool {
	t.mu.Lock()
	b, ok := t.clients[client]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(rate.Limit(t.limit.Rate), t.limit.Burst)}
		t.clients[client] = b
	}
	b.seen = now
	t.mu.Unlock()
	return b.lim.AllowN(now, 1)
}

// expire drops clients not seen since cutoff and returns how many remain.
func (t *bucketTable) expire(cutoff time.Time) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	for client, b := range t.clients {
		if b.seen.Before(cutoff) {
			delete(t.clients, client)
		}
	}
	return len(t.clients)
}

// RequestLimiter rate limits API requests per client, with a tighter budget
// for requests that mutate the arena.
type RequestLimiter struct {
	cfg    RateLimits
	tables map[string]*bucketTable
	now    func() time.Time
}

// NewRequestLimiter builds a limiter. Idle clients are only forgotten while
// Run is active.
func NewRequestLimiter(cfg RateLimits) *RequestLimiter {
	if cfg.IdleExpiry <= 0 {
		cfg.IdleExpiry = DefaultRateLimits().IdleExpiry
	}
	l := &RequestLimiter{
		cfg: cfg,
		tables: map[string]*bucketTable{
			classRead:  newBucketTable(cfg.Reads),
			classWrite: newBucketTable(cfg.Writes),
		},
		now: time.Now,
	}
	return l
}

// Run expires idle clients until ctx is done.
func (l *RequestLimiter) Run(ctx context.Context) {
	ticker := time.NewTicker(l.cfg.IdleExpiry / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.expireIdle()
		}
	}
}

func (l *RequestLimiter) expireIdle() {
	cutoff := l.now().Add(-l.cfg.IdleExpiry)
	for class, t := range l.tables {
		UpdateRateLimitClients(class, t.expire(cutoff))
	}
}

// Allow reports whether r fits its client's budget for r's traffic class.
func (l *RequestLimiter) Allow(r *http.Request) bool {
	class := trafficClass(r)
	if l.tables[class].allow(clientIP(r, l.cfg.TrustProxy), l.now()) {
		return true
	}
	RecordRateLimited(class)
	return false
}

// Middleware rejects over-budget requests with 429.
func (l *RequestLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.Allow(r) {
			w.Header().Set("Retry-After", "1")
			writeError(w, "Too many requests", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP keys a request by its peer address, or by the first forwarded
// address when the server sits behind a trusted proxy.
func clientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
			first, _, _ := strings.Cut(fwd, ",")
			return strings.TrimSpace(first)
		}
		if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// connGate caps concurrent websocket viewers, in total and per client.
type connGate struct {
	mu       sync.Mutex
	perIP    map[string]int
	total    int
	maxTotal int
	maxPerIP int
}

func newConnGate(maxTotal, maxPerIP int) *connGate {
	return &connGate{perIP: make(map[string]int), maxTotal: maxTotal, maxPerIP: maxPerIP}
}

// acquire reserves a slot for ip. It returns the rejection reason, or ""
// when the slot was granted.
func (g *connGate) acquire(ip string) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	switch {
	case g.total >= g.maxTotal:
		return "ws_total_limit"
	case g.perIP[ip] >= g.maxPerIP:
		return "ws_ip_limit"
	}
	g.total++
	g.perIP[ip]++
	return ""
}

func (g *connGate) release(ip string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.perIP[ip] == 0 {
		return
	}
	g.total--
	if g.perIP[ip]--; g.perIP[ip] == 0 {
		delete(g.perIP, ip)
	}
}

// DefaultCORSOrigins are the browser origins allowed when none are configured.
var DefaultCORSOrigins = []string{
	"http://localhost:*",
	"http://127.0.0.1:*",
}

// OriginChecker decides which websocket origins may connect. Patterns may
// end in ":*" to allow any port.
type OriginChecker struct {
	patterns []string
}

// NewOriginChecker builds a checker from CORS-style patterns.
func NewOriginChecker(patterns []string) *OriginChecker {
	if patterns == nil {
		patterns = DefaultCORSOrigins
	}
	return &OriginChecker{patterns: patterns}
}

// Allowed reports whether origin matches a pattern. Requests without an
// Origin header come from non-browser clients and are allowed.
func (oc *OriginChecker) Allowed(origin string) bool {
	if origin == "" {
		return true
	}
	for _, p := range oc.patterns {
		if p == "*" || p == origin {
			return true
		}
		if base, ok := strings.CutSuffix(p, ":*"); ok && strings.HasPrefix(origin, base+":") {
			return true
		}
	}
	return false
}

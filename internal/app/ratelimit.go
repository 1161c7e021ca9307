package app

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

const (
	limiterIdleTTL         = 10 * time.Minute
	limiterCleanupInterval = time.Minute
)

// ClientLimiter rate limits requests per client address. Buckets of clients
// idle for longer than limiterIdleTTL are dropped.
type ClientLimiter struct {
	mu         sync.Mutex
	limiters   *gocache.Cache
	rate       rate.Limit
	burst      int
	trustProxy bool
}

// NewClientLimiter allows requestsPerSecond per client with the given burst.
// A non-positive rate disables limiting. X-Forwarded-For is only used to
// identify the client when trustProxy is set.
func NewClientLimiter(requestsPerSecond float64, burst int, trustProxy bool) *ClientLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &ClientLimiter{
		limiters:   gocache.New(limiterIdleTTL, limiterCleanupInterval),
		rate:       rate.Limit(requestsPerSecond),
		burst:      burst,
		trustProxy: trustProxy,
	}
}

// AllowRequest reports whether the client behind r may proceed.
func (l *ClientLimiter) AllowRequest(r *http.Request) bool {
	if l == nil {
		return true
	}
	return l.Allow(clientAddr(r, l.trustProxy))
}

func (l *ClientLimiter) Allow(client string) bool {
	if l == nil || l.rate <= 0 {
		return true
	}
	return l.limiter(client).Allow()
}

func (l *ClientLimiter) limiter(client string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	var limiter *rate.Limiter
	if cached, found := l.limiters.Get(client); found {
		limiter = cached.(*rate.Limiter)
	} else {
		limiter = rate.NewLimiter(l.rate, l.burst)
	}
	// Re-set on every hit so the idle TTL counts from the last request.
	l.limiters.SetDefault(client, limiter)
	return limiter
}

func (l *ClientLimiter) tracked() int {
	return l.limiters.ItemCount()
}

// clientAddr is the socket host, or the first X-Forwarded-For hop when the
// server runs behind a trusted proxy.
func clientAddr(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
			first, _, _ := strings.Cut(forwarded, ",")
			if first = strings.TrimSpace(first); first != "" {
				return first
			}
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

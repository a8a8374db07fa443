package notify

import (
	"net"
	"net/http"
	"strings"
	"sync"

	"github.com/lawnchairsociety/castcore/internal/config"
)

// connLimiter caps subscriber connections per address and in total.
// A zero limit means unlimited.
type connLimiter struct {
	mu       sync.Mutex
	perIP    map[string]int
	total    int
	maxPerIP int
	maxTotal int
}

func newConnLimiter(cfg config.ConnectionsConfig) *connLimiter {
	return &connLimiter{
		perIP:    make(map[string]int),
		maxPerIP: cfg.MaxPerIP,
		maxTotal: cfg.MaxTotal,
	}
}

// acquire takes a slot for ip, returning false when a limit is reached.
func (l *connLimiter) acquire(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.maxTotal > 0 && l.total >= l.maxTotal {
		return false
	}
	if l.maxPerIP > 0 && l.perIP[ip] >= l.maxPerIP {
		return false
	}
	l.perIP[ip]++
	l.total++
	return true
}

func (l *connLimiter) release(ip string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if n := l.perIP[ip]; n > 1 {
		l.perIP[ip] = n - 1
	} else if n == 1 {
		delete(l.perIP, ip)
	}
	if l.total > 0 {
		l.total--
	}
}

func (l *connLimiter) counts() (total, addresses int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.total, len(l.perIP)
}

// clientIP returns the caller's address, preferring the first
// X-Forwarded-For entry, then X-Real-IP, set by a reverse proxy.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

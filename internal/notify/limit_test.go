package notify

import (
	"net/http"
	"testing"

	"github.com/lawnchairsociety/castcore/internal/config"
)

func TestConnLimiterPerIP(t *testing.T) {
	l := newConnLimiter(config.ConnectionsConfig{MaxPerIP: 2, MaxTotal: 100})

	if !l.acquire("192.168.1.1") || !l.acquire("192.168.1.1") {
		t.Fatal("first two connections should be allowed")
	}
	if l.acquire("192.168.1.1") {
		t.Error("third connection from the same address should be rejected")
	}
	if !l.acquire("192.168.1.2") {
		t.Error("connection from a different address should be allowed")
	}

	l.release("192.168.1.1")
	if !l.acquire("192.168.1.1") {
		t.Error("connection should be allowed after release")
	}
}

func TestConnLimiterTotal(t *testing.T) {
	l := newConnLimiter(config.ConnectionsConfig{MaxPerIP: 10, MaxTotal: 3})

	for _, ip := range []string{"10.0.0.1", "10.0.0.2", "10.0.0.3"} {
		if !l.acquire(ip) {
			t.Fatalf("acquire(%s) should be allowed", ip)
		}
	}
	if l.acquire("10.0.0.4") {
		t.Error("fourth connection should be rejected by the total limit")
	}
	l.release("10.0.0.1")
	if !l.acquire("10.0.0.4") {
		t.Error("connection should be allowed after release")
	}
}

func TestConnLimiterUnlimited(t *testing.T) {
	l := newConnLimiter(config.ConnectionsConfig{})
	for i := 0; i < 500; i++ {
		if !l.acquire("127.0.0.1") {
			t.Fatalf("acquire #%d rejected with no limits set", i)
		}
	}
	if total, addrs := l.counts(); total != 500 || addrs != 1 {
		t.Errorf("counts() = %d, %d, want 500, 1", total, addrs)
	}
}

func TestConnLimiterReleaseForgetsAddress(t *testing.T) {
	l := newConnLimiter(config.ConnectionsConfig{MaxPerIP: 1})
	l.acquire("10.1.1.1")
	l.release("10.1.1.1")
	l.release("10.1.1.1")

	if total, addrs := l.counts(); total != 0 || addrs != 0 {
		t.Errorf("counts() = %d, %d, want 0, 0", total, addrs)
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{"remote addr", "192.168.1.1:4242", nil, "192.168.1.1"},
		{"remote addr without port", "192.168.1.1", nil, "192.168.1.1"},
		{"forwarded for", "10.0.0.1:80", map[string]string{"X-Forwarded-For": "203.0.113.5, 10.0.0.1"}, "203.0.113.5"},
		{"real ip", "10.0.0.1:80", map[string]string{"X-Real-IP": " 203.0.113.9 "}, "203.0.113.9"},
		{"forwarded wins", "10.0.0.1:80", map[string]string{"X-Forwarded-For": "198.51.100.1", "X-Real-IP": "203.0.113.9"}, "198.51.100.1"},
		{"ipv6", "[::1]:9000", nil, "::1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &http.Request{RemoteAddr: tt.remoteAddr, Header: http.Header{}}
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			if got := clientIP(r); got != tt.want {
				t.Errorf("clientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

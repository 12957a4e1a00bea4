package http

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// IPConfig names the proxy networks whose forwarding headers are believed.
type IPConfig struct {
	TrustedProxies []string // CIDR ranges
}

// ExtractClientIP resolves the client address a request should be attributed
// to. Attempts and lockouts key on this value, so forwarding headers are
// honored only when the direct peer sits inside a trusted proxy range; a
// spoofed X-Forwarded-For from an arbitrary client must not be able to shift
// blame onto someone else's address.
func ExtractClientIP(r *http.Request, config *IPConfig) string {
	peer := peerAddr(r)

	if config == nil || !config.trusts(peer) {
		return peer
	}

	// X-Forwarded-For accumulates left to right; the leftmost parseable
	// entry is the original client.
	for _, candidate := range strings.Split(r.Header.Get("X-Forwarded-For"), ",") {
		candidate = strings.TrimSpace(candidate)
		if _, err := netip.ParseAddr(candidate); err == nil {
			return candidate
		}
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		if _, err := netip.ParseAddr(xri); err == nil {
			return xri
		}
	}

	return peer
}

// peerAddr strips the port from RemoteAddr.
func peerAddr(r *http.Request) string {
	if r.RemoteAddr == "" {
		return "unknown"
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func (c *IPConfig) trusts(ip string) bool {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}

	for _, cidr := range c.TrustedProxies {
		prefix, err := netip.ParsePrefix(cidr)
		if err != nil {
			continue
		}
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

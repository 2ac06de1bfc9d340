package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// TrustedProxies configures Echo to trust X-Real-IP and X-Forwarded-For only
// from the given CIDRs, so c.RealIP() (used by the write rate limiter and
// request log) returns the client rather than the reverse proxy.
func TrustedProxies(e *echo.Echo, trustedCIDRs []string) {
	e.IPExtractor = buildIPExtractor(trustedCIDRs)
}

// buildIPExtractor returns an Echo IPExtractor that trusts forwarding
// headers only from connections originating in trusted CIDRs.
func buildIPExtractor(trustedCIDRs []string) echo.IPExtractor {
	var trusted []*net.IPNet
	for _, cidr := range trustedCIDRs {
		_, network, err := net.ParseCIDR(strings.TrimSpace(cidr))
		if err != nil {
			slog.Warn("ignoring invalid trusted proxy CIDR", slog.String("cidr", cidr))
			continue
		}
		trusted = append(trusted, network)
	}

	return func(req *http.Request) string {
		directIP := extractDirectIP(req.RemoteAddr)
		if !isTrusted(directIP, trusted) {
			return directIP
		}

		if realIP := strings.TrimSpace(req.Header.Get(echo.HeaderXRealIP)); realIP != "" {
			return realIP
		}
		// Leftmost X-Forwarded-For entry is the original client.
		if xff := req.Header.Get(echo.HeaderXForwardedFor); xff != "" {
			client, _, _ := strings.Cut(xff, ",")
			if client = strings.TrimSpace(client); client != "" {
				return client
			}
		}
		return directIP
	}
}

// extractDirectIP extracts the IP address from a "host:port" RemoteAddr.
func extractDirectIP(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}

func isTrusted(ipStr string, trusted []*net.IPNet) bool {
	ip := net.ParseIP(ipStr)
	if ip == nil {
		return false
	}
	for _, network := range trusted {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

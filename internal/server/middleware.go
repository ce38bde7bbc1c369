package server

import (
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/apirelay/featbot/internal/notify"
)

// newNonce creates the process-wide CSP nonce. Created once at startup and
// injected into the server rather than living as an ambient global.
func newNonce() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// secureHeaders applies the hardening headers to every response.
func (s *Server) secureHeaders(next http.Handler) http.Handler {
	csp := fmt.Sprintf(
		"default-src 'self'; script-src 'self' 'nonce-%s'; style-src 'self' 'nonce-%s'; img-src 'self'; font-src 'self'; object-src 'none'; upgrade-insecure-requests",
		s.nonce, s.nonce)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Content-Security-Policy", csp)
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Permissions-Policy", "accelerometer=(), camera=(), geolocation=(), gyroscope=(), magnetometer=(), microphone=(), payment=(), usb=(), interest-cohort=()")
		next.ServeHTTP(w, r)
	})
}

// classify assembles the ordered requestor classification the notification
// sink mirrors to the operator chat. The core treats these as opaque pairs;
// richer enrichment (geolocation, UA parsing) belongs to external ingress.
func (s *Server) classify(r *http.Request) []notify.Field {
	fields := []notify.Field{
		{Key: "ip", Value: clientIP(r)},
		{Key: "host", Value: r.Host},
		{Key: "path", Value: r.URL.RequestURI()},
		{Key: "source", Value: r.UserAgent()},
	}
	return lo.Filter(fields, func(f notify.Field, _ int) bool {
		return f.Value != ""
	})
}

// clientIP resolves the caller's network address, trusting the first
// X-Forwarded-For hop when present (the service runs behind a proxy).
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if first, _, ok := strings.Cut(fwd, ","); ok {
			return strings.TrimSpace(first)
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// isBlockedUA reports whether the user agent matches the configured
// block-list by case-insensitive substring.
func (s *Server) isBlockedUA(ua string) bool {
	lowered := strings.ToLower(ua)
	return lo.SomeBy(s.uaBlocked, func(blocked string) bool {
		return strings.Contains(lowered, blocked)
	})
}

func blockedIPSet(entries []string) map[string]struct{} {
	set := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if e = strings.TrimSpace(e); e != "" {
			set[e] = struct{}{}
		}
	}
	return set
}

func normalizeBlocklist(entries []string) []string {
	cleaned := lo.FilterMap(entries, func(e string, _ int) (string, bool) {
		e = strings.ToLower(strings.TrimSpace(e))
		return e, e != ""
	})
	return lo.Uniq(cleaned)
}

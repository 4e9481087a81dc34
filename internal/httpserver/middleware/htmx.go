package middleware

import (
	"context"
	"net/http"
	"strings"
)

type htmxKey struct{}

// HTMXRequest describes the htmx headers of a console request.
type HTMXRequest struct {
	Enabled bool
	Target  string
	Trigger string
}

// HTMX parses HX-* request headers into the context.
func HTMX() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hx := HTMXRequest{
				Enabled: strings.EqualFold(r.Header.Get("HX-Request"), "true"),
				Target:  strings.TrimPrefix(r.Header.Get("HX-Target"), "#"),
				Trigger: r.Header.Get("HX-Trigger"),
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), htmxKey{}, hx)))
		})
	}
}

// HTMXFromContext returns the parsed headers; the zero value outside HTMX().
func HTMXFromContext(ctx context.Context) HTMXRequest {
	hx, _ := ctx.Value(htmxKey{}).(HTMXRequest)
	return hx
}

// IsHTMXRequest reports whether htmx issued the request.
func IsHTMXRequest(ctx context.Context) bool {
	return HTMXFromContext(ctx).Enabled
}

// RequireHTMX hides fragment routes from direct navigation.
func RequireHTMX() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Add("Vary", "HX-Request")
			if !IsHTMXRequest(r.Context()) {
				http.NotFound(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// NoStore marks console responses uncacheable.
func NoStore() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "no-store")
			next.ServeHTTP(w, r)
		})
	}
}

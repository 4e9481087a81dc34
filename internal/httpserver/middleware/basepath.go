package middleware

import (
	"context"
	"net/http"

	"github.com/clothhaven/storefront/internal/templates/helpers"
)

type basePathKey struct{}

// ConsoleBase records the mount point of the inventory console so templates can build
// links that survive a custom base path.
func ConsoleBase(basePath string) func(http.Handler) http.Handler {
	base := helpers.CleanBase(basePath)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), basePathKey{}, base)))
		})
	}
}

// BasePathFromContext returns the console mount point, "/" outside the console routes.
func BasePathFromContext(ctx context.Context) string {
	if base, ok := ctx.Value(basePathKey{}).(string); ok && base != "" {
		return base
	}
	return "/"
}

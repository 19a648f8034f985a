package middleware

import (
	"log/slog"
	"net/http"

	"github.com/rpattn/dataql/internal/logging"
	"github.com/rpattn/dataql/internal/query"
	"github.com/rpattn/dataql/internal/repository"
)

// HopCacheMiddleware attaches a fresh hop loader to the request context so
// every join hop a request repeats is run once.
func HopCacheMiddleware(stores repository.Registry, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			loader := query.NewHopLoader(stores, logging.FromContext(r.Context(), logger))
			ctx := query.WithHopLoader(r.Context(), loader)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Chain wraps h in middlewares, the first one outermost.
func Chain(h http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}

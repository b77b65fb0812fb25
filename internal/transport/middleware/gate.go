package middleware

import (
	"log/slog"
	"net/http"
	"strings"
)

// RouteGate redirects every path outside the allow-list to the landing page.
type RouteGate struct {
	paths    map[string]struct{}
	prefixes []string
	logger   *slog.Logger
}

func NewRouteGate(paths, prefixes []string, logger *slog.Logger) *RouteGate {
	g := &RouteGate{paths: make(map[string]struct{}, len(paths)), logger: logger}
	for _, p := range paths {
		g.paths[p] = struct{}{}
	}
	for _, p := range prefixes {
		if p != "" {
			g.prefixes = append(g.prefixes, p)
		}
	}
	return g
}

func (g *RouteGate) Allowed(path string) bool {
	if _, ok := g.paths[path]; ok {
		return true
	}
	for _, p := range g.prefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

func (g *RouteGate) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !g.Allowed(r.URL.Path) {
			g.logger.DebugContext(r.Context(), "route gate: redirecting", "path", r.URL.Path)
			http.Redirect(w, r, "/", http.StatusTemporaryRedirect)
			return
		}
		next.ServeHTTP(w, r)
	})
}

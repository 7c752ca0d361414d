package chi

import (
	"net/http"

	gochi "github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

// CORSOptions holds the cross-origin policy.
type CORSOptions struct {
	AllowedOrigins   []string
	AllowCredentials bool
}

// NewRouter mounts the API routes behind the given middlewares, CORS and path escaping.
func NewRouter(s *Server, corsOpts CORSOptions, middlewares ...func(http.Handler) http.Handler) *gochi.Mux {
	r := gochi.NewRouter()
	r.Use(middlewares...)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: corsOpts.AllowedOrigins,
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch,
			http.MethodDelete, http.MethodOptions, http.MethodHead,
		},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: corsOpts.AllowCredentials,
		MaxAge:           600,
	}))
	r.Use(escapedRoutePath)

	r.NotFound(s.NotFound)
	r.MethodNotAllowed(s.MethodNotAllowed)

	r.Get("/", s.Root)
	r.Get("/search/{sort}/{tags}/{k_tags}/{q}", s.Search)
	r.Get("/plot/{k_tags}/{q}", s.Plot)
	r.Get("/chat/{k_tags}/{q}", s.Chat)
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)

	return r
}

// escapedRoutePath routes on the escaped path so URL parameters stay
// percent-encoded until bindPath decodes them exactly once.
func escapedRoutePath(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rctx := gochi.RouteContext(r.Context()); rctx != nil && rctx.RoutePath == "" {
			rctx.RoutePath = r.URL.EscapedPath()
		}
		next.ServeHTTP(w, r)
	})
}

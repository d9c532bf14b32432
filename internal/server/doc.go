// Package server provides the HTTP router, middleware and handlers for the tophits web service.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering.
//
// # Routes
//
//	GET /health                      → {"status":"ok"}
//	GET /metrics                     → Prometheus exposition
//	GET /api/search?q=&type=&limit=  → catalog search proxy
//	GET /api/artist?name=            → exact-match artist lookup with top tracks
//	GET /api/artist-top-tracks/{id}  → up to five tracks, most popular first
//	GET /api/random-hits             → popular tracks sampled from a random era
//	GET /                            → embedded browser frontend
//
// The track endpoints render an HTML fragment instead of JSON when called with ?format=html.
//
// # Errors
//
// Every error is a JSON [ErrorResponse] {"error": "...", "code": "..."}. Validation errors are 400, upstream
// failures 502, and missing or rejected catalog credentials a 500 with a generic message.
//
// # Middleware
//
// [New] installs, outermost first: [RequestID], [Recover], [Logger], [Metrics] and [CORS].
package server

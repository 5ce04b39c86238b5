// Package http provides the HTTP handlers for the session API.
//
// Handlers are mounted twice by the server: under the API prefix (/api by
// default) and at the root.
//
// Endpoints:
//   - Sessions: POST /sessions, GET /sessions, DELETE /sessions/:id
//   - Driving: POST /sessions/:id/interact, POST /sessions/:id/action
//   - Viewing: GET /sessions/:id/screenshot, GET /sessions/:id/events
//   - Diagnostics: GET /sessions/:id/debug, GET /debug/session/:id
//   - Health: / and /health
//
// Errors are written as {"error": message, "details": cause chain} with the
// status from failure.Status: 400 for bad input, 404 for unknown sessions,
// 504 for timeouts and 500 otherwise.
//
// Example Usage:
//
//	handlers := http.NewHandlers(http.Deps{Registry: reg, Dispatcher: d, Coordinator: tc, Inspector: in})
//	handlers.Register(router.Group("/api"))
//	router.GET("/health", handlers.Health)
package http

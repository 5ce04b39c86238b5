// Package server assembles the HTTP server: configuration, provider and
// agent clients, the session core, middleware and routes.
//
// Middleware order: recovery, request id, tracing, metrics, access log,
// CORS, rate limit. Responses are gzip-compressed when enabled, except
// WebSocket upgrades.
//
// Example Usage:
//
//	srv, err := server.NewServer(cfg)
//	if err != nil {
//		return err
//	}
//	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
//	defer stop()
//	return srv.Run(ctx)
package server

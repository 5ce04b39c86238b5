// Package main is the entry point for the computer-agent controller.
//
// The server exposes an HTTP API for driving remote computers (cloud
// browsers and Ubuntu desktops) with a computer-use agent:
//
//	Client → computer-agent → Agent model API (Responses)
//	                        → Computer provider (Scrapybara)
//
// It provides:
//   - REST API for session lifecycle, agent turns and direct actions
//   - WebSocket event stream per session
//   - Prometheus metrics and health reporting
//
// Configuration:
//   - Defaults, then an optional YAML file (-config or CONFIG_FILE)
//   - Environment variables (12-factor)
//   - CLI flags (override env vars)
//
// Usage:
//
//	# Production mode
//	SCRAPYBARA_API_KEY=... OPENAI_API_KEY=... ./server -port 5000
//
//	# Development mode (colored logs, debug level)
//	./server -dev
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown, releasing every live session
package main

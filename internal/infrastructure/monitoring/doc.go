/*
Package monitoring provides Prometheus metrics for the controller.

# Overview

Each Metrics value owns a private registry, so tests and multiple servers in
one process never collide on metric names. The registry is served by
Handler at /metrics.

# Features

- HTTP request metrics labelled by route template
- Session lifecycle metrics (active, created, deleted)
- Agent turn and direct action metrics
- Provider call counts and latency
- Event stream connection metrics

# Usage

	metrics := monitoring.NewMetrics()
	router.Use(monitoring.Middleware(metrics))
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	timer := monitoring.NewTimer(metrics, "screenshot")
	shot, err := c.Screenshot(ctx)
	timer.Stop(err)
*/
package monitoring

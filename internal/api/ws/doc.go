// Package ws streams session events to WebSocket clients.
//
// Message Types (Server → Client):
//   - system: subscription confirmed
//   - turn: an agent turn finished; carries items, screenshot, current_url
//   - action: a direct action finished; carries screenshot, current_url
//   - deleted: the session was deleted; the connection closes next
//   - pong: reply to a client ping
//
// Message Types (Client → Server):
//   - ping: keep-alive
//
// Example Usage:
//
//	hub := ws.NewHub(logger)
//	handler := ws.NewHandler(hub, checkSession, logger, metrics)
//	router.GET("/sessions/:id/events", handler.Events)
package ws

// Package scrapybara adapts Scrapybara remote instances to the computer
// interfaces.
//
// A browser session runs on a "browser" instance and a desktop session on an
// "ubuntu" instance. The Launcher starts an instance, polls until it is
// running (with exponential backoff) and starts the browser when needed.
// Computer translates typed actions into the provider's action vocabulary.
//
// Endpoints used:
//   - POST /start
//   - GET  /instance/{id}
//   - POST /instance/{id}/computer
//   - GET  /instance/{id}/stream_url
//   - POST /instance/{id}/browser/start|goto|back|forward
//   - GET  /instance/{id}/browser/current_url
//   - POST /instance/{id}/stop
//
// Computer exposes its instance through computer.InstanceHolder, which is
// where the stream URL resolver finds it.
package scrapybara

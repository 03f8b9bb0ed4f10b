// Package server provides the HTTP surface of convo-gateway: the
// webhook ingestion endpoint, the REST API for conversations and
// messages, the live push endpoints (SSE and WebSocket), and the HTML
// views. It owns the request-to-processor wiring and the graceful
// shutdown of all components.
package server

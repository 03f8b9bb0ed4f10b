// Package web serves the read-only HTML views: a conversation index, a
// conversation detail page, and a live viewer that streams accepted
// messages over WebSocket. Templates are embedded with go:embed so the
// binary ships self-contained.
package web

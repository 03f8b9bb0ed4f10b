// Package fanout provides the in-process publish/subscribe broker that
// pushes accepted messages to live viewers of a conversation.
//
// One Broker instance is constructed at startup and shared by the webhook
// processor (publisher) and the WebSocket/SSE handlers (subscribers).
// Delivery is best-effort and at-most-once per subscriber: full subscriber
// buffers are dropped rather than blocking the webhook write path, and a
// process restart clears all subscriptions. Missed pushes are always
// recoverable by re-fetching messages through the REST API.
package fanout

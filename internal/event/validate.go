// ABOUTME: Structural validation of webhook event envelopes
// ABOUTME: Pure checks for required fields, timestamp format, and supported kinds

package event

import (
	"time"
)

// timestampLayouts are the accepted ISO-8601 forms. The upstream CRM sends
// zoneless timestamps like "2025-02-21T10:20:44.349308"; those are
// interpreted as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
}

// Validate structurally checks an envelope and returns the typed event.
// It has no side effects: payload fields that depend on the event kind
// are checked later by the Processor.
func Validate(env *Envelope) (*Event, *Error) {
	if env.Type == "" || env.Timestamp == "" || len(env.Data) == 0 {
		return nil, validationErr("missing required fields: 'type', 'timestamp' and 'data'")
	}

	ts, err := ParseTimestamp(env.Timestamp)
	if err != nil {
		return nil, validationErr("invalid timestamp format, use ISO 8601")
	}

	kind := Kind(env.Type)
	switch kind {
	case KindNewConversation, KindNewMessage, KindCloseConversation:
	default:
		return nil, validationErr("unsupported event type %q", env.Type)
	}

	return &Event{
		Kind:      kind,
		Timestamp: ts,
		Data:      env.Data,
	}, nil
}

// ParseTimestamp parses an ISO-8601 datetime, accepting both zoned RFC 3339
// and the zoneless form. Zoneless times are taken as UTC.
func ParseTimestamp(s string) (time.Time, error) {
	var lastErr error
	for _, layout := range timestampLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t.UTC(), nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// ABOUTME: Error taxonomy for webhook event processing
// ABOUTME: Typed errors that the endpoint maps onto HTTP status codes

package event

import "fmt"

// ErrorKind classifies a processing failure for HTTP mapping
type ErrorKind int

const (
	// KindValidation: malformed envelope or payload (400)
	KindValidation ErrorKind = iota
	// KindConflict: duplicate conversation or message id (409)
	KindConflict
	// KindNotFound: unknown conversation reference (404)
	KindNotFound
	// KindState: write against a CLOSED conversation (400)
	KindState
)

// Error is a typed processing failure. Every failure the Processor or
// Validate can produce is one of these; nothing else escapes to the
// endpoint, so no input can surface a generic server error.
type Error struct {
	Kind   ErrorKind
	Detail string
}

func (e *Error) Error() string {
	return e.Detail
}

func validationErr(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Detail: fmt.Sprintf(format, args...)}
}

func conflictErr(detail string) *Error {
	return &Error{Kind: KindConflict, Detail: detail}
}

func notFoundErr(detail string) *Error {
	return &Error{Kind: KindNotFound, Detail: detail}
}

func stateErr(detail string) *Error {
	return &Error{Kind: KindState, Detail: detail}
}

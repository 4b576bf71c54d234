package transport

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadyStarted is returned by Start when called more than once
	// on the same Transport instance.
	ErrAlreadyStarted = errors.New("transport: already started")

	// ErrClosed is returned by Send when the transport has already been
	// closed.
	ErrClosed = errors.New("transport: closed")

	// ErrUnsupported is returned by Send implementations that cannot
	// address an individual session out of band.
	ErrUnsupported = errors.New("transport: operation unsupported by this binding")

	// ErrUnknownSession is returned by Send when sessionID does not
	// correspond to any connection the transport is tracking.
	ErrUnknownSession = errors.New("transport: unknown session")
)

// HTTP status codes a MessageHandler may suggest via StatusHint. Named
// here, rather than importing net/http into this transport-agnostic
// package, so a handler that never binds to HTTP still only depends on
// plain integers.
const (
	StatusForbidden          = 403
	StatusServiceUnavailable = 503
)

// StatusHint lets a MessageHandler suggest the HTTP status a response
// Message should carry, for decisions spec.md §7 maps to a real HTTP
// status rather than a 200 OK wrapping a JSON-RPC error body —
// authorization denial (403) and session-table exhaustion (503) are the
// two cases this runtime produces. A transport without a status-code
// concept (stdio) ignores it entirely; the accompanying *jsonrpc.Message
// returned alongside it from HandleMessage is still the wire body on
// every transport.
//
// StatusHint is returned as the error value of HandleMessage but is not
// a transport failure: transports MUST distinguish it (via AsStatusHint)
// from a genuine HandleError-worthy fault and still emit the response
// Message that came back alongside it.
type StatusHint struct {
	Status          int
	WWWAuthenticate string
	RetryAfter      string
}

// Error implements error so StatusHint can be returned and wrapped
// through the ordinary error-handling path.
func (h *StatusHint) Error() string {
	return fmt.Sprintf("transport: status hint %d", h.Status)
}

// AsStatusHint extracts a *StatusHint from err, unwrapping as needed.
func AsStatusHint(err error) (*StatusHint, bool) {
	var hint *StatusHint
	if errors.As(err, &hint) {
		return hint, true
	}
	return nil, false
}

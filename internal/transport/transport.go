package transport

import (
	"context"

	"github.com/airsstack/mcp-runtime/internal/jsonrpc"
)

// MessageContext carries a single inbound message together with whatever
// transport-specific context T the binding needs to reply or to identify
// the session. It is passed by value through the dispatch path.
type MessageContext[T any] struct {
	// SessionID identifies the logical MCP session this message belongs
	// to. Stdio has exactly one session for the process lifetime; HTTP
	// assigns one per Mcp-Session-Id.
	SessionID string

	// Message is the parsed JSON-RPC envelope.
	Message *jsonrpc.Message

	// Extra is the transport-specific payload (struct{} for stdio,
	// HTTPContext for the HTTP engine).
	Extra T
}

// MessageHandler is implemented by the MCP server core. A Transport calls
// HandleMessage for every inbound message, HandleError when a
// transport-level failure occurs that is not itself a JSON-RPC error
// (e.g. malformed framing, a write failure on the other side), and
// HandleClose exactly once per lifecycle when the transport's peer goes
// away (stdin EOF, HTTP connection drop, or an explicit Close). Handler
// methods MUST NOT block on acquiring a per-session lock across a
// suspension point; the transport may be delivering concurrently for
// distinct sessions.
type MessageHandler[T any] interface {
	// HandleMessage processes one inbound message. The returned Message
	// is the reply to write back, or nil if the inbound message was a
	// notification (no response is ever written for those). A non-nil
	// error is either a genuine transport-level fault (the reply, if
	// any, should still be written, and HandleError is also due) or a
	// *StatusHint the caller can extract via AsStatusHint to pick a
	// non-200 HTTP status for the accompanying reply.
	HandleMessage(ctx context.Context, mc MessageContext[T]) (*jsonrpc.Message, error)

	// HandleError is called when the transport encounters a failure
	// that could not be turned into a JSON-RPC error response attached
	// to a specific message (e.g. unreadable frame, closed connection
	// mid-write). The handler may log it; it never blocks transport
	// shutdown.
	HandleError(ctx context.Context, sessionID string, err error)

	// HandleClose is called exactly once, when the transport's peer for
	// sessionID goes away: stdin EOF for the stdio transport, or
	// connection/stream teardown for an HTTP session. Calling Close
	// twice on the same Transport MUST NOT cause a second HandleClose.
	HandleClose(ctx context.Context, sessionID string)
}

// Transport is the contract a wire binding implements to feed messages to
// a MessageHandler and write responses back out. Implementations own
// their own I/O loop; Start blocks until ctx is cancelled or Close is
// called, then returns nil (or the error that caused the loop to exit).
type Transport[T any] interface {
	// Start begins reading and dispatching messages to handler. It
	// blocks for the lifetime of the transport. Calling Start more than
	// once on the same instance is a programmer error.
	Start(ctx context.Context, handler MessageHandler[T]) error

	// Send writes a server-initiated message (a notification, or a
	// response produced asynchronously after HandleMessage already
	// returned) to the given session. Implementations that cannot
	// address an individual session out of band (plain stdio) MAY
	// return ErrUnsupported.
	Send(ctx context.Context, sessionID string, msg *jsonrpc.Message) error

	// Close releases transport resources and unblocks Start. It is safe
	// to call Close more than once; subsequent calls are no-ops.
	Close(ctx context.Context) error

	// State reports the current lifecycle state.
	State() State
}

// Package transport defines the event-driven contract between a wire
// transport (stdio, HTTP+SSE, or any future binding) and the MCP server
// core. A Transport owns framing and connection lifecycle; it knows
// nothing about JSON-RPC semantics or MCP methods. A MessageHandler owns
// dispatch; it knows nothing about how bytes reached it.
//
// # Architecture
//
// Package structure:
//
//	internal/transport/
//	├── transport.go   # Transport[T] / MessageHandler[T] / MessageContext[T]
//	├── state.go       # connection lifecycle State enum
//	├── context.go      # context key helpers shared by transport adapters
//	├── errors.go       # transport-level sentinel errors
//	└── wire.go         # small helper constructors
//
// Concrete bindings live in sibling packages: internal/stdio implements
// Transport[struct{}] over os.Stdin/os.Stdout; internal/httptransport
// implements Transport[HTTPContext] over an internal/httpengine Engine.
//
// # Lifecycle
//
// A Transport moves through Constructed -> Started -> Closed. Start is
// called exactly once; Close is idempotent and triggers exactly one
// HandleClose per session lifecycle, after which no further calls to
// MessageHandler are made for that transport instance. Ordering is
// guaranteed only within a single session's message stream, never across
// sessions or transport instances.
//
// # Generic type parameter
//
// T carries transport-specific context (stdio has none, so T is
// struct{}; HTTP carries request-scoped values such as the client's
// remote address and User-Agent). This keeps
// the core server free of any HTTP import while still letting HTTP
// handlers recover their own context without a type assertion.
package transport

// Package httpengine implements the framework-agnostic HTTP Engine
// Abstraction of spec.md §4.7: bind/start/shutdown lifecycle, handler
// registration, and a middleware chain, concretely backed by
// github.com/gorilla/mux the way ruaan-deysel-unraid-management-agent
// wires gorilla/mux as its HTTP router. internal/httptransport builds
// the MCP-aware JSON-RPC request pipeline (§4.7 steps 3-6) on top of the
// Engine interface defined here; this package only ever speaks
// net/http, never jsonrpc.
package httpengine

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
)

// Middleware wraps an http.Handler, the same shape the teacher's
// transportcore.Middleware used, generalized to a bare function type
// with no framework-specific router dependency.
type Middleware func(http.Handler) http.Handler

// Engine is the framework-agnostic contract spec.md §4.7 describes.
// Concrete bindings (only MuxEngine in this repo) own an HTTP framework;
// callers never import gorilla/mux directly.
type Engine interface {
	// Handle registers handler for pattern, restricted to methods. An
	// empty methods slice means "any method".
	Handle(pattern string, methods []string, handler http.Handler)

	// Use appends middleware to the chain applied to every registered
	// route, in registration order (first registered is outermost).
	Use(mw ...Middleware)

	// Bind resolves addr to a listening socket without yet serving
	// requests, so LocalAddr is available before Start blocks (useful
	// for tests binding to ":0").
	Bind(addr string) error

	// Start serves requests on the bound listener. Blocks until
	// Shutdown is called or the listener errors.
	Start() error

	// Shutdown gracefully stops serving, waiting for in-flight requests
	// up to ctx's deadline.
	Shutdown(ctx context.Context) error

	// LocalAddr reports the bound address, or nil before Bind.
	LocalAddr() net.Addr

	// EngineType names the concrete HTTP framework backing this Engine.
	EngineType() string
}

// MuxEngine is the gorilla/mux-backed Engine implementation.
type MuxEngine struct {
	router *mux.Router

	mu         sync.RWMutex
	mw         []Middleware
	listener   net.Listener
	httpServer *http.Server

	readTimeout  time.Duration
	writeTimeout time.Duration
	idleTimeout  time.Duration
}

// Config configures a MuxEngine's underlying http.Server timeouts.
type Config struct {
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// NewMuxEngine constructs a MuxEngine. Handlers and middleware may be
// registered before or after Bind, but registrations after Start has
// begun serving are not observed by in-flight connections (gorilla/mux
// routers are read concurrently without additional locking once
// installed on the http.Server, matching net/http's own contract).
func NewMuxEngine(cfg Config) *MuxEngine {
	return &MuxEngine{
		router:       mux.NewRouter(),
		readTimeout:  cfg.ReadTimeout,
		writeTimeout: cfg.WriteTimeout,
		idleTimeout:  cfg.IdleTimeout,
	}
}

// Handle implements Engine.
func (e *MuxEngine) Handle(pattern string, methods []string, handler http.Handler) {
	route := e.router.Handle(pattern, handler)
	if len(methods) > 0 {
		route.Methods(methods...)
	}
}

// Use implements Engine.
func (e *MuxEngine) Use(mw ...Middleware) {
	e.mw = append(e.mw, mw...)
}

// Bind implements Engine.
func (e *MuxEngine) Bind(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("httpengine: listen %s: %w", addr, err)
	}

	e.mu.Lock()
	e.listener = listener
	e.httpServer = &http.Server{
		Handler:      e.wrapped(),
		ReadTimeout:  e.readTimeout,
		WriteTimeout: e.writeTimeout,
		IdleTimeout:  e.idleTimeout,
	}
	e.mu.Unlock()
	return nil
}

// wrapped applies every registered middleware around the router, first
// registered outermost, matching the teacher's router.applyMiddleware
// ordering.
func (e *MuxEngine) wrapped() http.Handler {
	var handler http.Handler = e.router
	for i := len(e.mw) - 1; i >= 0; i-- {
		handler = e.mw[i](handler)
	}
	return handler
}

// Start implements Engine. Bind must be called first.
func (e *MuxEngine) Start() error {
	e.mu.RLock()
	listener := e.listener
	srv := e.httpServer
	e.mu.RUnlock()

	if listener == nil || srv == nil {
		return fmt.Errorf("httpengine: Start called before Bind")
	}

	if err := srv.Serve(listener); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("httpengine: serve: %w", err)
	}
	return nil
}

// Shutdown implements Engine.
func (e *MuxEngine) Shutdown(ctx context.Context) error {
	e.mu.RLock()
	srv := e.httpServer
	e.mu.RUnlock()

	if srv == nil {
		return nil
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
	}
	return srv.Shutdown(ctx)
}

// LocalAddr implements Engine.
func (e *MuxEngine) LocalAddr() net.Addr {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.listener == nil {
		return nil
	}
	return e.listener.Addr()
}

// EngineType implements Engine.
func (e *MuxEngine) EngineType() string { return "gorilla-mux" }

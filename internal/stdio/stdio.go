// Package stdio implements transport.Transport over a process's standard
// input and output: one JSON-RPC message per line, newline-delimited,
// read from os.Stdin and written to os.Stdout. There is exactly one
// logical session for the lifetime of the process.
package stdio

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/airsstack/mcp-runtime/internal/jsonrpc"
	"github.com/airsstack/mcp-runtime/internal/transport"
)

// SessionID is the fixed session identifier stdio transports use, since a
// stdio connection is always exactly one session for the process lifetime.
const SessionID = "stdio"

// DefaultMaxLineBytes bounds a single JSON-RPC line when New is used
// directly. Callers that need a different limit (internal/config's
// [stdio].buffer_size) should use NewWithLineLimit.
const DefaultMaxLineBytes = 64 * 1024

// readerBufferSize is the chunk size bufio.Reader grows by while
// scanning for a line's terminating '\n'; it is independent of
// maxLineBytes, which bounds how much of a line readLine will retain.
const readerBufferSize = 4096

// Transport implements transport.Transport[struct{}] over stdin/stdout.
type Transport struct {
	in     io.Reader
	out    io.Writer
	logger *slog.Logger

	maxLineBytes int

	mu      sync.Mutex
	state   transport.State
	handler transport.MessageHandler[struct{}]

	closeOnce sync.Once
	writeMu   sync.Mutex
}

// New constructs a stdio Transport reading from in and writing to out,
// bounding a single line to DefaultMaxLineBytes. Callers typically pass
// os.Stdin and os.Stdout.
func New(in io.Reader, out io.Writer, logger *slog.Logger) *Transport {
	return NewWithLineLimit(in, out, logger, DefaultMaxLineBytes)
}

// NewWithLineLimit is New with an explicit, configurable line-length
// bound (spec.md §4.6: "bounded buffer, default 64 KiB per line,
// configurable"). maxLineBytes <= 0 falls back to DefaultMaxLineBytes.
func NewWithLineLimit(in io.Reader, out io.Writer, logger *slog.Logger, maxLineBytes int) *Transport {
	if logger == nil {
		logger = slog.Default()
	}
	if maxLineBytes <= 0 {
		maxLineBytes = DefaultMaxLineBytes
	}
	return &Transport{in: in, out: out, logger: logger, maxLineBytes: maxLineBytes, state: transport.StateConstructed}
}

// State reports the current lifecycle state.
func (t *Transport) State() transport.State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Start reads newline-delimited JSON-RPC messages until ctx is cancelled
// or the input stream reaches EOF. Each line is parsed, classified, and
// dispatched to handler; the handler's reply (if any) is written back as
// a single line. A line longer than the configured limit produces a
// ParseError response in place of that line and the stream continues
// (spec.md §4.6, §8 boundary behavior); it never terminates the session
// on its own. handler.HandleClose fires exactly once, however the loop
// ends (EOF, context cancellation, a read fault, or a panic).
func (t *Transport) Start(ctx context.Context, handler transport.MessageHandler[struct{}]) (err error) {
	t.mu.Lock()
	if t.state != transport.StateConstructed {
		t.mu.Unlock()
		return transport.ErrAlreadyStarted
	}
	t.state = transport.StateStarted
	t.handler = handler
	t.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			handler.HandleError(ctx, SessionID, fmt.Errorf("stdio: panic in read loop: %v", r))
			err = fmt.Errorf("stdio: panic in read loop: %v", r)
		}
		t.notifyClose(ctx)
		t.mu.Lock()
		t.state = transport.StateClosed
		t.mu.Unlock()
	}()

	reader := bufio.NewReaderSize(t.in, readerBufferSize)

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		line, tooLong, readErr := t.readLine(reader)
		switch {
		case tooLong:
			t.writeLine(ctx, handler, jsonrpc.NewErrorResponse(nil, jsonrpc.CodeParseError, "line exceeds maximum length", nil), false)
		case len(bytesTrim(line)) > 0:
			t.dispatchLine(ctx, handler, line)
		}

		if readErr != nil {
			if readErr == io.EOF {
				return nil
			}
			handler.HandleError(ctx, SessionID, readErr)
			return readErr
		}
	}
}

// readLine reads one newline-delimited line from r. It never aborts on
// an oversized line: once the accumulated line would exceed
// t.maxLineBytes, it stops retaining bytes (tooLong becomes true and the
// returned line is nil) but keeps consuming the underlying stream up to
// the next '\n' so the caller can resume at the following line. err is
// io.EOF at end of stream, or a genuine I/O error; both end the line
// (with whatever was read, if anything) the same as a newline would.
func (t *Transport) readLine(r *bufio.Reader) (line []byte, tooLong bool, err error) {
	for {
		chunk, readErr := r.ReadSlice('\n')
		if !tooLong {
			if len(line)+len(chunk) > t.maxLineBytes {
				tooLong = true
				line = nil
			} else {
				line = append(line, chunk...)
			}
		}
		switch readErr {
		case nil:
			return line, tooLong, nil
		case bufio.ErrBufferFull:
			continue
		default:
			return line, tooLong, readErr
		}
	}
}

func (t *Transport) dispatchLine(ctx context.Context, handler transport.MessageHandler[struct{}], line []byte) {
	msgs, isBatch, err := jsonrpc.ParseAny(line)
	if err != nil {
		t.writeLine(ctx, handler, jsonrpc.NewErrorResponse(nil, jsonrpc.CodeParseError, "parse error", nil), false)
		return
	}

	replies := make([]*jsonrpc.Message, 0, len(msgs))
	for _, m := range msgs {
		if jsonrpc.Classify(m) == jsonrpc.KindInvalid {
			replies = append(replies, jsonrpc.NewErrorResponse(m.ID, jsonrpc.CodeInvalidRequest, "invalid request", nil))
			continue
		}

		mc := transport.NewMessageContext(SessionID, m, struct{}{})
		reply, err := handler.HandleMessage(ctx, mc)
		if err != nil {
			if _, ok := transport.AsStatusHint(err); !ok {
				handler.HandleError(ctx, SessionID, err)
			}
		}
		if reply != nil {
			replies = append(replies, reply)
		}
	}

	out, err := jsonrpc.Serialize(replies, isBatch)
	if err != nil || out == nil {
		return
	}
	t.writeRaw(out)
}

func (t *Transport) writeLine(ctx context.Context, handler transport.MessageHandler[struct{}], msg *jsonrpc.Message, isBatch bool) {
	out, err := jsonrpc.Serialize([]*jsonrpc.Message{msg}, isBatch)
	if err != nil {
		handler.HandleError(ctx, SessionID, err)
		return
	}
	t.writeRaw(out)
}

func (t *Transport) writeRaw(b []byte) {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	t.out.Write(b)
	t.out.Write([]byte("\n"))
}

// Send writes a server-initiated message (e.g. a notification) as a new
// line. sessionID must match SessionID; any other value is rejected since
// stdio has exactly one session.
func (t *Transport) Send(ctx context.Context, sessionID string, msg *jsonrpc.Message) error {
	if t.State() == transport.StateClosed {
		return transport.ErrClosed
	}
	if sessionID != SessionID {
		return transport.ErrUnknownSession
	}
	b, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	t.writeRaw(b)
	return nil
}

// notifyClose invokes handler.HandleClose at most once for this
// Transport instance, regardless of whether the natural Start exit path
// or an explicit Close call gets there first.
func (t *Transport) notifyClose(ctx context.Context) {
	t.closeOnce.Do(func() {
		t.mu.Lock()
		h := t.handler
		t.mu.Unlock()
		if h != nil {
			h.HandleClose(ctx, SessionID)
		}
	})
}

// Close marks the transport closed and fires the one HandleClose event
// this Transport instance ever delivers. Because Start blocks on a
// blocking read against stdin, Close does not itself unblock a pending
// read; callers that need prompt shutdown should cancel the context
// passed to Start and close the underlying stdin (e.g. via an *os.File).
// Close is idempotent: a second call is a no-op.
func (t *Transport) Close(ctx context.Context) error {
	t.mu.Lock()
	t.state = transport.StateClosed
	t.mu.Unlock()
	t.notifyClose(ctx)
	return nil
}

func bytesTrim(b []byte) []byte {
	start, end := 0, len(b)
	for start < end && isSpace(b[start]) {
		start++
	}
	for end > start && isSpace(b[end-1]) {
		end--
	}
	return b[start:end]
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n'
}

package transport

import "github.com/airsstack/mcp-runtime/internal/jsonrpc"

// NewMessageContext constructs a MessageContext for the given session and
// parsed message. Transport bindings call this once per inbound frame
// before handing it to MessageHandler.HandleMessage.
func NewMessageContext[T any](sessionID string, msg *jsonrpc.Message, extra T) MessageContext[T] {
	return MessageContext[T]{SessionID: sessionID, Message: msg, Extra: extra}
}

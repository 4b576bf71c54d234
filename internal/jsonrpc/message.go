// Package jsonrpc implements the JSON-RPC 2.0 message layer: framing,
// correlation, and discrimination of requests, notifications, responses,
// and batches. It has no knowledge of MCP methods; callers route by the
// Method field.
package jsonrpc

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Version is the JSON-RPC protocol version this package emits and requires.
const Version = "2.0"

// Kind classifies a parsed Message.
type Kind int

const (
	// KindInvalid indicates the message does not satisfy any JSON-RPC
	// 2.0 shape (missing jsonrpc, or mixed request/response fields).
	KindInvalid Kind = iota

	// KindRequest has an id and a method.
	KindRequest

	// KindNotification has a method and no id.
	KindNotification

	// KindResponse has an id and exactly one of result/error.
	KindResponse
)

// Message is the JSON-RPC 2.0 envelope. A single struct models all four
// variants (Request, Notification, Response, Error) per the data model's
// sum-type description; Kind discriminates which variant is populated.
//
// ID is kept as raw JSON so that numeric ids are never float-coerced and
// a null id (explicit JSON null) is distinguishable from an absent id
// (the field is simply not present in the object).
type Message struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// Error is a JSON-RPC 2.0 error object.
type Error struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("jsonrpc error %d: %s", e.Code, e.Message)
}

// hasID reports whether the id field was present in the source JSON,
// including an explicit null.
func (m *Message) hasID() bool {
	return m.ID != nil
}

// idIsNull reports whether the id was present and literally JSON null.
func (m *Message) idIsNull() bool {
	return m.hasID() && bytes.Equal(bytes.TrimSpace(m.ID), []byte("null"))
}

// Classify discriminates a Message into one of Request, Notification,
// Response, or Invalid by the presence of id, method, result, and error,
// per the JSON-RPC 2.0 data model invariants.
func Classify(m *Message) Kind {
	if m == nil || m.JSONRPC != Version {
		return KindInvalid
	}
	hasMethod := m.Method != ""
	hasResult := m.Result != nil
	hasError := m.Error != nil

	switch {
	case hasMethod && m.hasID() && !m.idIsNull() && !hasResult && !hasError:
		return KindRequest
	case hasMethod && !m.hasID() && !hasResult && !hasError:
		return KindNotification
	case !hasMethod && m.hasID() && (hasResult != hasError):
		// Exactly one of result/error, id may be null when the server
		// could not parse the id of the request it is responding to.
		return KindResponse
	default:
		return KindInvalid
	}
}

// Validate reports whether m satisfies the structural invariants for its
// apparent Kind. It does not classify silently invalid messages as valid.
func (m *Message) Validate() error {
	if Classify(m) == KindInvalid {
		return ErrInvalidRequest
	}
	return nil
}

// NewRequest constructs a well-formed request Message.
func NewRequest(id json.RawMessage, method string, params json.RawMessage) *Message {
	return &Message{JSONRPC: Version, ID: id, Method: method, Params: params}
}

// NewNotification constructs a well-formed notification Message.
func NewNotification(method string, params json.RawMessage) *Message {
	return &Message{JSONRPC: Version, Method: method, Params: params}
}

// NewResult constructs a successful response Message for the given id.
func NewResult(id json.RawMessage, result json.RawMessage) *Message {
	return &Message{JSONRPC: Version, ID: id, Result: result}
}

// NewErrorResponse constructs an error response Message for the given id.
// id may be nil (rendered as JSON null) when the request's id could not
// be parsed.
func NewErrorResponse(id json.RawMessage, code int, message string, data json.RawMessage) *Message {
	if id == nil {
		id = json.RawMessage("null")
	}
	return &Message{
		JSONRPC: Version,
		ID:      id,
		Error:   &Error{Code: code, Message: message, Data: data},
	}
}

// IDsEqual compares two raw JSON ids for equality, including the
// distinction between numeric and string id spaces (they never overlap
// because their raw encodings differ, e.g. `1` vs `"1"`).
func IDsEqual(a, b json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(a), bytes.TrimSpace(b))
}

// MarshalID encodes a Go string or integer id into the raw form used by
// RequestId. Panics on unsupported types, which is a programmer error.
func MarshalID(id any) json.RawMessage {
	switch v := id.(type) {
	case nil:
		return json.RawMessage("null")
	case string:
		b, _ := json.Marshal(v)
		return b
	case int, int32, int64, float64:
		b, _ := json.Marshal(v)
		return b
	case json.RawMessage:
		return v
	default:
		panic(fmt.Sprintf("jsonrpc: unsupported id type %T", id))
	}
}

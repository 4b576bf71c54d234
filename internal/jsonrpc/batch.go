package jsonrpc

import (
	"bytes"
	"encoding/json"
)

// ParseAny parses a single JSON-RPC message or a batch array. It returns
// the parsed messages, whether the input was a batch array, and a parse
// error if the bytes are not valid JSON at all (mapped by the caller to
// CodeParseError). Individual malformed messages inside an otherwise
// well-formed batch are represented as a Message that Classify resolves
// to KindInvalid; callers respond to those with CodeInvalidRequest
// instead of aborting the whole batch.
func ParseAny(data []byte) (msgs []*Message, isBatch bool, err error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, false, ErrParse
	}

	if trimmed[0] == '[' {
		var raw []json.RawMessage
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return nil, true, ErrParse
		}
		if len(raw) == 0 {
			// An empty batch array is itself an invalid request per the
			// JSON-RPC 2.0 spec.
			return []*Message{{JSONRPC: ""}}, true, nil
		}
		out := make([]*Message, 0, len(raw))
		for _, r := range raw {
			var m Message
			if err := json.Unmarshal(r, &m); err != nil {
				out = append(out, &Message{})
				continue
			}
			out = append(out, &m)
		}
		return out, true, nil
	}

	var m Message
	if err := json.Unmarshal(trimmed, &m); err != nil {
		return nil, false, ErrParse
	}
	return []*Message{&m}, false, nil
}

// Serialize encodes a batch of messages back to wire bytes. Responses to
// notifications (nil entries) are omitted, per the invariant that
// notifications produce no response bytes. When wasBatch is false, the
// first non-nil message is emitted un-wrapped, or nil bytes are returned
// when none remains; when wasBatch is true an array is emitted (possibly
// empty, which serializes to "[]").
func Serialize(msgs []*Message, wasBatch bool) ([]byte, error) {
	filtered := make([]*Message, 0, len(msgs))
	for _, m := range msgs {
		if m != nil {
			filtered = append(filtered, m)
		}
	}

	if !wasBatch {
		if len(filtered) == 0 {
			return nil, nil
		}
		return json.Marshal(filtered[0])
	}

	return json.Marshal(filtered)
}

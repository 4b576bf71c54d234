package jsonrpc

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify_Request(t *testing.T) {
	m := &Message{JSONRPC: Version, ID: json.RawMessage("1"), Method: "tools/list"}
	assert.Equal(t, KindRequest, Classify(m))
}

func TestClassify_Notification(t *testing.T) {
	m := &Message{JSONRPC: Version, Method: "notifications/initialized"}
	assert.Equal(t, KindNotification, Classify(m))
}

func TestClassify_Response(t *testing.T) {
	m := &Message{JSONRPC: Version, ID: json.RawMessage(`"abc"`), Result: json.RawMessage("{}")}
	assert.Equal(t, KindResponse, Classify(m))
}

func TestClassify_ErrorResponse(t *testing.T) {
	m := &Message{JSONRPC: Version, ID: json.RawMessage("null"), Error: &Error{Code: CodeParseError, Message: "bad"}}
	assert.Equal(t, KindResponse, Classify(m))
}

func TestClassify_InvalidMixedResultAndError(t *testing.T) {
	m := &Message{
		JSONRPC: Version,
		ID:      json.RawMessage("1"),
		Result:  json.RawMessage("{}"),
		Error:   &Error{Code: CodeInternalError, Message: "x"},
	}
	assert.Equal(t, KindInvalid, Classify(m))
}

func TestClassify_InvalidWrongVersion(t *testing.T) {
	m := &Message{JSONRPC: "1.0", ID: json.RawMessage("1"), Method: "x"}
	assert.Equal(t, KindInvalid, Classify(m))
}

func TestClassify_NullIDRequestIsInvalid(t *testing.T) {
	// A request with an explicit null id is not a valid request: id null
	// is reserved for error responses whose request id could not be
	// determined.
	m := &Message{JSONRPC: Version, ID: json.RawMessage("null"), Method: "tools/list"}
	assert.Equal(t, KindInvalid, Classify(m))
}

func TestIDsEqual_NumericVsStringNeverEqual(t *testing.T) {
	assert.False(t, IDsEqual(json.RawMessage("1"), json.RawMessage(`"1"`)))
	assert.True(t, IDsEqual(json.RawMessage("1"), json.RawMessage("1")))
	assert.True(t, IDsEqual(json.RawMessage(`"abc"`), json.RawMessage(`"abc"`)))
}

func TestMarshalID(t *testing.T) {
	assert.Equal(t, json.RawMessage("null"), MarshalID(nil))
	assert.Equal(t, json.RawMessage(`"x"`), MarshalID("x"))
	assert.Equal(t, json.RawMessage("5"), MarshalID(5))
}

func TestMarshalID_PanicsOnUnsupported(t *testing.T) {
	assert.Panics(t, func() { MarshalID(struct{}{}) })
}

func TestNewErrorResponse_NilIDBecomesNull(t *testing.T) {
	m := NewErrorResponse(nil, CodeParseError, "parse error", nil)
	require.NotNil(t, m.ID)
	assert.Equal(t, "null", string(m.ID))
}

func TestValidate(t *testing.T) {
	valid := &Message{JSONRPC: Version, ID: json.RawMessage("1"), Method: "x"}
	assert.NoError(t, valid.Validate())

	invalid := &Message{JSONRPC: Version}
	assert.ErrorIs(t, invalid.Validate(), ErrInvalidRequest)
}

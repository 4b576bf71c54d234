package jsonrpc

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAny_SingleMessage(t *testing.T) {
	msgs, isBatch, err := ParseAny([]byte(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`))
	require.NoError(t, err)
	assert.False(t, isBatch)
	require.Len(t, msgs, 1)
	assert.Equal(t, KindRequest, Classify(msgs[0]))
}

func TestParseAny_Batch(t *testing.T) {
	msgs, isBatch, err := ParseAny([]byte(`[
		{"jsonrpc":"2.0","id":1,"method":"tools/list"},
		{"jsonrpc":"2.0","method":"notifications/initialized"}
	]`))
	require.NoError(t, err)
	assert.True(t, isBatch)
	require.Len(t, msgs, 2)
	assert.Equal(t, KindRequest, Classify(msgs[0]))
	assert.Equal(t, KindNotification, Classify(msgs[1]))
}

func TestParseAny_EmptyBatchIsInvalid(t *testing.T) {
	msgs, isBatch, err := ParseAny([]byte(`[]`))
	require.NoError(t, err)
	assert.True(t, isBatch)
	require.Len(t, msgs, 1)
	assert.Equal(t, KindInvalid, Classify(msgs[0]))
}

func TestParseAny_MalformedEntryInBatchDoesNotAbort(t *testing.T) {
	msgs, isBatch, err := ParseAny([]byte(`[
		{"jsonrpc":"2.0","id":1,"method":"tools/list"},
		123
	]`))
	require.NoError(t, err)
	assert.True(t, isBatch)
	require.Len(t, msgs, 2)
	assert.Equal(t, KindRequest, Classify(msgs[0]))
	assert.Equal(t, KindInvalid, Classify(msgs[1]))
}

func TestParseAny_GarbageIsParseError(t *testing.T) {
	_, _, err := ParseAny([]byte(`not json`))
	assert.ErrorIs(t, err, ErrParse)
}

func TestSerialize_NotificationProducesNoBytes(t *testing.T) {
	out, err := Serialize([]*Message{nil}, false)
	require.NoError(t, err)
	assert.Nil(t, out)
}

func TestSerialize_SingleNonBatchUnwrapped(t *testing.T) {
	out, err := Serialize([]*Message{NewResult(json.RawMessage("1"), json.RawMessage("{}"))}, false)
	require.NoError(t, err)
	assert.Equal(t, byte('{'), out[0])
}

func TestSerialize_BatchKeepsArray(t *testing.T) {
	out, err := Serialize([]*Message{
		NewResult(json.RawMessage("1"), json.RawMessage("{}")),
		NewResult(json.RawMessage("2"), json.RawMessage("{}")),
	}, true)
	require.NoError(t, err)
	assert.Equal(t, byte('['), out[0])
}

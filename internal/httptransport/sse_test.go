package httptransport

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReplayBuffer_PublishAssignsMonotonicIDs(t *testing.T) {
	buf := newReplayBuffer(10)
	ev1 := buf.publish([]byte("one"))
	ev2 := buf.publish([]byte("two"))

	assert.Equal(t, "1", ev1.id)
	assert.Equal(t, "2", ev2.id)
}

func TestReplayBuffer_ReplayFromEmptyCursorReturnsEverything(t *testing.T) {
	buf := newReplayBuffer(10)
	buf.publish([]byte("one"))
	buf.publish([]byte("two"))

	events := buf.replay("")
	require.Len(t, events, 2)
	assert.Equal(t, "one", string(events[0].data))
	assert.Equal(t, "two", string(events[1].data))
}

func TestReplayBuffer_ReplaySkipsAlreadySeenEvents(t *testing.T) {
	buf := newReplayBuffer(10)
	buf.publish([]byte("one"))
	ev2 := buf.publish([]byte("two"))
	buf.publish([]byte("three"))

	events := buf.replay(ev2.id)
	require.Len(t, events, 1)
	assert.Equal(t, "three", string(events[0].data))
}

func TestReplayBuffer_EvictsOldestBeyondCapacity(t *testing.T) {
	buf := newReplayBuffer(2)
	buf.publish([]byte("one"))
	buf.publish([]byte("two"))
	buf.publish([]byte("three"))

	events := buf.replay("")
	require.Len(t, events, 2)
	assert.Equal(t, "two", string(events[0].data))
	assert.Equal(t, "three", string(events[1].data))
}

func TestReplayBuffer_UnrecognizedCursorReplaysAll(t *testing.T) {
	buf := newReplayBuffer(10)
	buf.publish([]byte("one"))

	events := buf.replay("not-a-number")
	require.Len(t, events, 1)
}

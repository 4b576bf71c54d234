package notify_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airsstack/mcp-runtime/internal/mcpproto"
	"github.com/airsstack/mcp-runtime/internal/notify"
)

func TestHub_NotifyDeliversToListener(t *testing.T) {
	h := notify.NewHub()
	ch := h.Listen("sess-1")
	defer h.Close("sess-1", ch)

	h.Notify("sess-1", notify.Notification{Method: "test/event"})

	select {
	case msg := <-ch:
		n, ok := msg.(notify.Notification)
		require.True(t, ok)
		assert.Equal(t, "test/event", n.Method)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for notification")
	}
}

func TestHub_PublishResourceUpdatedOnlyNotifiesSubscribers(t *testing.T) {
	h := notify.NewHub()
	subscribed := h.Listen("sess-sub")
	unsubscribed := h.Listen("sess-other")
	defer h.Close("sess-sub", subscribed)
	defer h.Close("sess-other", unsubscribed)

	h.Subscribe("sess-sub", "file:///a.txt")
	h.PublishResourceUpdated("file:///a.txt")

	select {
	case msg := <-subscribed:
		n := msg.(notify.Notification)
		assert.Equal(t, mcpproto.NotificationResourcesUpdated, n.Method)
	case <-time.After(time.Second):
		t.Fatal("expected subscribed session to receive notification")
	}

	select {
	case <-unsubscribed:
		t.Fatal("unsubscribed session should not receive notification")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHub_UnsubscribeStopsDelivery(t *testing.T) {
	h := notify.NewHub()
	ch := h.Listen("sess-1")
	defer h.Close("sess-1", ch)

	h.Subscribe("sess-1", "file:///a.txt")
	h.Unsubscribe("sess-1", "file:///a.txt")
	h.PublishResourceUpdated("file:///a.txt")

	select {
	case <-ch:
		t.Fatal("should not receive notification after unsubscribe")
	case <-time.After(50 * time.Millisecond):
	}
}

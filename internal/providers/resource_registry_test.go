package providers_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airsstack/mcp-runtime/internal/mcpproto"
	"github.com/airsstack/mcp-runtime/internal/notify"
	"github.com/airsstack/mcp-runtime/internal/providers"
)

type stubResource struct {
	def     mcpproto.ResourceDefinition
	content *mcpproto.ResourcesReadResult
}

func (s stubResource) Read(ctx context.Context) (*mcpproto.ResourcesReadResult, error) {
	return s.content, nil
}

func (s stubResource) Definition() mcpproto.ResourceDefinition { return s.def }

func TestResourceRegistry_RegisterAndRead(t *testing.T) {
	r := providers.NewResourceRegistry(nil)
	res := stubResource{
		def:     mcpproto.ResourceDefinition{URI: "file:///a.txt", Name: "a"},
		content: &mcpproto.ResourcesReadResult{},
	}
	require.NoError(t, r.RegisterResource("file:///a.txt", res, false))

	got, err := r.ReadResource(context.Background(), "file:///a.txt")
	require.NoError(t, err)
	assert.NotNil(t, got)
}

func TestResourceRegistry_DuplicateRegistrationRejected(t *testing.T) {
	r := providers.NewResourceRegistry(nil)
	res := stubResource{def: mcpproto.ResourceDefinition{URI: "file:///a.txt"}}
	require.NoError(t, r.RegisterResource("file:///a.txt", res, false))
	err := r.RegisterResource("file:///a.txt", res, false)
	require.Error(t, err)
	assert.ErrorIs(t, err, providers.ErrResourceAlreadyRegistered)
}

func TestResourceRegistry_ReadUnknownURI(t *testing.T) {
	r := providers.NewResourceRegistry(nil)
	_, err := r.ReadResource(context.Background(), "file:///missing.txt")
	require.Error(t, err)
	assert.ErrorIs(t, err, providers.ErrResourceNotFound)
}

func TestResourceRegistry_SubscribeRejectsNonSubscribable(t *testing.T) {
	hub := notify.NewHub()
	r := providers.NewResourceRegistry(hub)
	res := stubResource{def: mcpproto.ResourceDefinition{URI: "file:///a.txt"}}
	require.NoError(t, r.RegisterResource("file:///a.txt", res, false))

	err := r.Subscribe("sess-1", "file:///a.txt")
	require.Error(t, err)
}

func TestResourceRegistry_SubscribeAndNotifyUpdated(t *testing.T) {
	hub := notify.NewHub()
	r := providers.NewResourceRegistry(hub)
	res := stubResource{def: mcpproto.ResourceDefinition{URI: "file:///a.txt"}}
	require.NoError(t, r.RegisterResource("file:///a.txt", res, true))

	ch := hub.Listen("sess-1")
	defer hub.Close("sess-1", ch)

	require.NoError(t, r.Subscribe("sess-1", "file:///a.txt"))
	r.NotifyUpdated("file:///a.txt")

	select {
	case msg := <-ch:
		n := msg.(notify.Notification)
		assert.Equal(t, mcpproto.NotificationResourcesUpdated, n.Method)
	case <-time.After(time.Second):
		t.Fatal("expected notification")
	}
}

func TestResourceRegistry_ListResourceTemplates(t *testing.T) {
	r := providers.NewResourceRegistry(nil)
	r.RegisterTemplate(mcpproto.ResourceTemplate{URITemplate: "file:///{path}"})

	tmpls, err := r.ListResourceTemplates(context.Background())
	require.NoError(t, err)
	require.Len(t, tmpls, 1)
	assert.Equal(t, "file:///{path}", tmpls[0].URITemplate)
}

func TestResourceRegistry_ListResourcesPagination(t *testing.T) {
	r := providers.NewResourceRegistry(nil)
	for _, uri := range []string{"file:///a.txt", "file:///b.txt", "file:///c.txt"} {
		require.NoError(t, r.RegisterResource(uri, stubResource{def: mcpproto.ResourceDefinition{URI: uri}}, false))
	}

	defs, next, err := r.ListResources(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, defs, 3)
	assert.Empty(t, next)
}

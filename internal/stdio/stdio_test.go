package stdio_test

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airsstack/mcp-runtime/internal/jsonrpc"
	"github.com/airsstack/mcp-runtime/internal/stdio"
	"github.com/airsstack/mcp-runtime/internal/transport"
)

type echoHandler struct{}

func (echoHandler) HandleMessage(ctx context.Context, mc transport.MessageContext[struct{}]) (*jsonrpc.Message, error) {
	if jsonrpc.Classify(mc.Message) == jsonrpc.KindNotification {
		return nil, nil
	}
	return jsonrpc.NewResult(mc.Message.ID, json.RawMessage(`{"ok":true}`)), nil
}

func (echoHandler) HandleError(ctx context.Context, sessionID string, err error) {}

func (echoHandler) HandleClose(ctx context.Context, sessionID string) {}

// recordingHandler tracks HandleClose and HandleError calls for tests
// that need to observe them, since echoHandler discards both.
type recordingHandler struct {
	echoHandler
	closed []string
	errs   []error
}

func (h *recordingHandler) HandleError(ctx context.Context, sessionID string, err error) {
	h.errs = append(h.errs, err)
}

func (h *recordingHandler) HandleClose(ctx context.Context, sessionID string) {
	h.closed = append(h.closed, sessionID)
}

func TestTransport_RequestResponse(t *testing.T) {
	in := strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}` + "\n")
	var out bytes.Buffer

	tr := stdio.New(in, &out, nil)
	err := tr.Start(context.Background(), echoHandler{})
	require.NoError(t, err)

	assert.Contains(t, out.String(), `"result"`)
	assert.Equal(t, transport.StateClosed, tr.State())
}

func TestTransport_NotificationProducesNoOutput(t *testing.T) {
	in := strings.NewReader(`{"jsonrpc":"2.0","method":"notifications/initialized"}` + "\n")
	var out bytes.Buffer

	tr := stdio.New(in, &out, nil)
	err := tr.Start(context.Background(), echoHandler{})
	require.NoError(t, err)
	assert.Empty(t, out.String())
}

func TestTransport_MalformedLineYieldsParseError(t *testing.T) {
	in := strings.NewReader("not json\n")
	var out bytes.Buffer

	tr := stdio.New(in, &out, nil)
	err := tr.Start(context.Background(), echoHandler{})
	require.NoError(t, err)
	assert.Contains(t, out.String(), `"code":-32700`)
}

func TestTransport_DoubleStartRejected(t *testing.T) {
	tr := stdio.New(strings.NewReader(""), &bytes.Buffer{}, nil)
	require.NoError(t, tr.Start(context.Background(), echoHandler{}))
	assert.ErrorIs(t, tr.Start(context.Background(), echoHandler{}), transport.ErrAlreadyStarted)
}

func TestSend_RejectsUnknownSession(t *testing.T) {
	tr := stdio.New(strings.NewReader(""), &bytes.Buffer{}, nil)
	err := tr.Send(context.Background(), "not-stdio", jsonrpc.NewNotification("x", nil))
	assert.ErrorIs(t, err, transport.ErrUnknownSession)
}

func TestTransport_EOFFiresHandleCloseExactlyOnce(t *testing.T) {
	in := strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}` + "\n")
	var out bytes.Buffer
	h := &recordingHandler{}

	tr := stdio.New(in, &out, nil)
	require.NoError(t, tr.Start(context.Background(), h))
	assert.Equal(t, []string{stdio.SessionID}, h.closed)

	require.NoError(t, tr.Close(context.Background()))
	assert.Equal(t, []string{stdio.SessionID}, h.closed, "Close after natural EOF must not fire a second HandleClose")
}

func TestTransport_OversizedLineYieldsParseErrorAndContinues(t *testing.T) {
	oversized := strings.Repeat("x", 128) + "\n"
	goodLine := `{"jsonrpc":"2.0","id":1,"method":"tools/list"}` + "\n"
	in := strings.NewReader(oversized + goodLine)
	var out bytes.Buffer
	h := &recordingHandler{}

	tr := stdio.NewWithLineLimit(in, &out, nil, 64)
	err := tr.Start(context.Background(), h)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2, "the oversized line must not terminate the stream before the next line is processed")
	assert.Contains(t, lines[0], `"code":-32700`)
	assert.Contains(t, lines[1], `"result"`)
	assert.Equal(t, []string{stdio.SessionID}, h.closed)
}

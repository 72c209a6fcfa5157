package chat

import (
	"path/filepath"
	"testing"
	"time"

	"ai-notetaking-stream/internal/pkg/logger"
	"ai-notetaking-stream/pkg/protocol"
	"ai-notetaking-stream/pkg/socket"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(t *testing.T) *Client {
	t.Helper()
	log := logger.NewIsolatedLogger(filepath.Join(t.TempDir(), "client_test.log"))
	manager := socket.NewManager(socket.Config{URL: "ws://127.0.0.1:1/ws/chat/test"}, log)
	return NewClient(manager, nil, log)
}

func TestSendWhileClosedDropsButStillResets(t *testing.T) {
	c := testClient(t)

	// Seed some previous-generation state directly through the machine.
	c.machine.HandleFrame(inbound(t, `{"type":"start"}`))
	c.machine.HandleFrame(inbound(t, `{"type":"token","content":"old answer"}`))
	require.Equal(t, "old answer", c.Generation().StreamingText)

	err := c.SendRoutedMessage("new question", protocol.ChatOptions{})
	assert.ErrorIs(t, err, ErrChannelClosed)

	// The reset happened before the send attempt: local state reflects the
	// intent even though the envelope was dropped.
	gen := c.Generation()
	assert.Equal(t, PhaseRouting, gen.Phase)
	assert.Empty(t, gen.StreamingText)
}

func TestStopStreamIsOptimisticEvenWhenClosed(t *testing.T) {
	c := testClient(t)
	c.machine.HandleFrame(inbound(t, `{"type":"start"}`))
	c.machine.HandleFrame(inbound(t, `{"type":"token","content":"x"}`))

	err := c.StopStream()
	assert.ErrorIs(t, err, ErrChannelClosed)
	assert.Equal(t, PhaseStopping, c.Generation().Phase)
}

func TestStopStreamFromIdleKeepsPhase(t *testing.T) {
	c := testClient(t)

	err := c.StopStream()
	assert.ErrorIs(t, err, ErrChannelClosed)
	assert.Equal(t, PhaseIdle, c.Generation().Phase)
}

func TestSendRoutedMessageReusesCapturedSession(t *testing.T) {
	c := testClient(t)
	c.machine.HandleFrame(inbound(t, `{"type":"start","session_id":"sess-7"}`))
	c.machine.HandleFrame(inbound(t, `{"type":"token","content":"answer"}`))
	c.machine.HandleFrame(inbound(t, `{"type":"end"}`))

	assert.Equal(t, "sess-7", c.SessionID())

	// The command build path validates; a bad option surfaces before any
	// state mutation.
	err := c.SendRoutedMessage("hello", protocol.ChatOptions{ComplexityLevel: "extreme"})
	require.Error(t, err)
	gen := c.Generation()
	assert.Equal(t, PhaseComplete, gen.Phase)
	assert.Equal(t, "answer", gen.StreamingText)
}

func TestClientSnapshotReflectsManagerStatus(t *testing.T) {
	c := testClient(t)

	snap := c.Snapshot()
	assert.Equal(t, socket.StatusDisconnected, snap.Status)
	assert.False(t, snap.IsConnected)
	assert.Equal(t, PhaseIdle, snap.Generation.Phase)
}

func inbound(t *testing.T, payload string) socket.Inbound {
	t.Helper()
	frame, err := protocol.Decode([]byte(payload))
	require.NoError(t, err)
	return socket.Inbound{Type: frame.FrameType(), ReceivedAt: time.Now(), Frame: frame}
}

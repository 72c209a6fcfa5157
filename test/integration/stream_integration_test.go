package integration

import (
	"fmt"
	"net"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"ai-notetaking-stream/internal/mockserver"
	"ai-notetaking-stream/internal/pkg/logger"
	"ai-notetaking-stream/pkg/chat"
	"ai-notetaking-stream/pkg/notify"
	"ai-notetaking-stream/pkg/protocol"
	"ai-notetaking-stream/pkg/socket"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger(t *testing.T) logger.ILogger {
	t.Helper()
	return logger.NewIsolatedLogger(filepath.Join(t.TempDir(), "integration_test.log"))
}

// startMockServer binds a random loopback port and returns the base ws URL.
func startMockServer(t *testing.T, opts mockserver.Options) string {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := mockserver.New(testLogger(t), opts)
	go func() {
		if err := srv.Listener(ln); err != nil {
			// Shutdown closes the listener; anything else is worth seeing.
			t.Logf("mock server stopped: %v", err)
		}
	}()
	t.Cleanup(func() { srv.Shutdown() })

	return fmt.Sprintf("ws://%s", ln.Addr().String())
}

func newChatClient(t *testing.T, baseURL string) *chat.Client {
	t.Helper()
	log := testLogger(t)
	manager := socket.NewManager(socket.Config{
		URL:               baseURL + "/ws/chat/" + uuid.NewString(),
		HeartbeatInterval: 200 * time.Millisecond,
		ReconnectBase:     100 * time.Millisecond,
		MaxReconnects:     3,
	}, log)
	return chat.NewClient(manager, nil, log)
}

func waitFor(t *testing.T, c *chat.Client, what string, cond func(chat.GenerationState) bool) {
	t.Helper()
	require.Eventually(t, func() bool {
		return cond(c.Generation())
	}, 10*time.Second, 25*time.Millisecond, "timed out waiting for %s", what)
}

func TestFullGenerationRoundTrip(t *testing.T) {
	url := startMockServer(t, mockserver.Options{
		Reply:      "one two three",
		TokenDelay: 5 * time.Millisecond,
	})
	c := newChatClient(t, url)
	c.Connect()
	defer c.Disconnect()

	require.Eventually(t, func() bool {
		return c.Snapshot().IsConnected
	}, 5*time.Second, 25*time.Millisecond)

	// The catalog arrives with the connected frame, before any command.
	require.Eventually(t, func() bool {
		return len(c.Catalog().Models) == 2
	}, 5*time.Second, 25*time.Millisecond)
	assert.True(t, c.Catalog().RoutingEnabled)

	require.NoError(t, c.SendRoutedMessage("summarize my notes", protocol.ChatOptions{}))

	waitFor(t, c, "completion", func(g chat.GenerationState) bool {
		return g.Phase == chat.PhaseComplete
	})

	gen := c.Generation()
	assert.Equal(t, "one two three", strings.TrimSpace(gen.StreamingText))
	assert.NotEmpty(t, gen.ThinkingText)
	require.NotNil(t, gen.Routing)
	assert.Equal(t, "small", gen.Routing.ModelSize)
	assert.Equal(t, 1, gen.Routing.AttemptNumber)
	assert.Len(t, gen.Sources, 2)
	assert.NotEmpty(t, gen.Stats)
	assert.NotEmpty(t, c.SessionID())
}

func TestRoutingBackfilledFromTerminalFrame(t *testing.T) {
	url := startMockServer(t, mockserver.Options{
		Reply:            "short answer",
		SkipRoutingFrame: true,
	})
	c := newChatClient(t, url)
	c.Connect()
	defer c.Disconnect()

	require.Eventually(t, func() bool {
		return c.Snapshot().IsConnected
	}, 5*time.Second, 25*time.Millisecond)

	require.NoError(t, c.SendRoutedMessage("quick question", protocol.ChatOptions{}))

	waitFor(t, c, "completion", func(g chat.GenerationState) bool {
		return g.Phase == chat.PhaseComplete
	})

	gen := c.Generation()
	require.NotNil(t, gen.Routing, "model identity must be recovered from the terminal frame")
	assert.Equal(t, "small", gen.Routing.ModelSize)
	assert.Equal(t, "assistant-small-v2", gen.Routing.ModelName)
	assert.NotEmpty(t, gen.Routing.ResponseID)
}

func TestOptimisticStopSettlesOnAcknowledgement(t *testing.T) {
	url := startMockServer(t, mockserver.Options{
		Reply:      strings.Repeat("word ", 60),
		TokenDelay: 20 * time.Millisecond,
	})
	c := newChatClient(t, url)
	c.Connect()
	defer c.Disconnect()

	require.Eventually(t, func() bool {
		return c.Snapshot().IsConnected
	}, 5*time.Second, 25*time.Millisecond)

	require.NoError(t, c.SendRoutedMessage("long story please", protocol.ChatOptions{}))
	waitFor(t, c, "streaming", func(g chat.GenerationState) bool {
		return g.Phase == chat.PhaseGenerating
	})

	require.NoError(t, c.StopStream())
	assert.Equal(t, chat.PhaseStopping, c.Generation().Phase)

	waitFor(t, c, "stop acknowledgement", func(g chat.GenerationState) bool {
		return g.Phase == chat.PhaseStopped
	})
}

func TestFeedbackComparisonConfirmFlow(t *testing.T) {
	url := startMockServer(t, mockserver.Options{Reply: "first answer"})
	c := newChatClient(t, url)
	c.Connect()
	defer c.Disconnect()

	require.Eventually(t, func() bool {
		return c.Snapshot().IsConnected
	}, 5*time.Second, 25*time.Millisecond)

	require.NoError(t, c.SendRoutedMessage("tell me about my notes", protocol.ChatOptions{}))
	waitFor(t, c, "completion", func(g chat.GenerationState) bool {
		return g.Phase == chat.PhaseComplete
	})
	responseID := c.Generation().Routing.ResponseID

	require.NoError(t, c.SendFeedback(responseID, "downgrade", "too shallow"))
	waitFor(t, c, "feedback acknowledgement", func(g chat.GenerationState) bool {
		return g.Feedback != nil && g.RequiresComparison
	})
	assert.Equal(t, "downgrade", c.Generation().Feedback.FeedbackType)

	require.NoError(t, c.RequestComparison(responseID, "tell me about my notes"))
	waitFor(t, c, "comparison completion", func(g chat.GenerationState) bool {
		return g.Phase == chat.PhaseComplete && g.ComparisonRouting != nil
	})
	gen := c.Generation()
	assert.Equal(t, 2, gen.ComparisonRouting.AttemptNumber)
	assert.Equal(t, "large", gen.ComparisonRouting.ModelSize)
	assert.NotEmpty(t, gen.StreamingText)

	require.NoError(t, c.ConfirmFeedback(responseID, "large", "much better"))
	waitFor(t, c, "learning confirmation", func(g chat.GenerationState) bool {
		return g.LearningApplied
	})
	assert.False(t, c.Generation().RequiresComparison)
}

func TestHeartbeatRepliesStayOutOfHistory(t *testing.T) {
	url := startMockServer(t, mockserver.Options{})
	c := newChatClient(t, url)
	c.Connect()
	defer c.Disconnect()

	require.Eventually(t, func() bool {
		return c.Snapshot().IsConnected
	}, 5*time.Second, 25*time.Millisecond)

	// The 200ms heartbeat fires several times; every reply must be invisible.
	require.True(t, c.Ping())
	time.Sleep(700 * time.Millisecond)

	for _, in := range c.History() {
		assert.NotEqual(t, protocol.TypePong, in.Type)
	}
}

func TestNotificationChannel(t *testing.T) {
	url := startMockServer(t, mockserver.Options{})
	log := testLogger(t)

	manager := socket.NewManager(socket.Config{
		URL:               url + "/ws/notifications/" + uuid.NewString(),
		HeartbeatInterval: 200 * time.Millisecond,
	}, log)

	var received atomic.Value
	consumer := notify.NewConsumer(manager, log, func(n protocol.Notification) {
		received.Store(n)
	})
	consumer.Connect()
	defer consumer.Disconnect()

	require.Eventually(t, func() bool {
		return received.Load() != nil
	}, 5*time.Second, 25*time.Millisecond)

	n := received.Load().(protocol.Notification)
	assert.Equal(t, "Welcome back", n.Title)
	assert.NotEmpty(t, n.ID)
}

func TestResumeDeliversRemainingTokens(t *testing.T) {
	url := startMockServer(t, mockserver.Options{Reply: "alpha beta gamma delta"})
	c := newChatClient(t, url)
	c.Connect()
	defer c.Disconnect()

	require.Eventually(t, func() bool {
		return c.Snapshot().IsConnected
	}, 5*time.Second, 25*time.Millisecond)

	require.NoError(t, c.SendRoutedMessage("list the phases", protocol.ChatOptions{}))
	waitFor(t, c, "completion", func(g chat.GenerationState) bool {
		return g.Phase == chat.PhaseComplete
	})
	responseID := c.Generation().Routing.ResponseID
	baseline := len(c.History())

	// Resume is best-effort catch-up at the transport level: the replayed
	// tokens land in the connection history even though the finished
	// generation no longer accumulates them.
	require.NoError(t, c.ResumeStream(responseID, 2))

	require.Eventually(t, func() bool {
		var resumed []string
		for _, in := range c.History()[baseline:] {
			if tok, ok := in.Frame.(*protocol.TokenFrame); ok {
				resumed = append(resumed, strings.TrimSpace(tok.Content))
			}
		}
		return strings.Join(resumed, " ") == "gamma delta"
	}, 5*time.Second, 25*time.Millisecond, "resumed tokens never arrived")

	// Unknown stream ids produce nothing at all.
	quiet := len(c.History())
	require.NoError(t, c.ResumeStream("no-such-stream", 0))
	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, quiet, len(c.History()))
}

package chat

import (
	"errors"

	"ai-notetaking-stream/internal/pkg/logger"
	"ai-notetaking-stream/pkg/protocol"
	"ai-notetaking-stream/pkg/socket"
	"ai-notetaking-stream/pkg/stream"
)

// ErrChannelClosed is returned when a command is issued while the socket is
// not open. The message was dropped, not queued.
var ErrChannelClosed = errors.New("chat channel is not connected, message dropped")

// Client is the chat-channel facade: command builders on the way out, the
// generation state machine on the way in, and a snapshot bus for observers.
type Client struct {
	manager *socket.Manager
	machine *Machine
	router  *stream.Router
	bus     *SnapshotBus
	logger  logger.ILogger
}

func NewClient(manager *socket.Manager, bus *SnapshotBus, log logger.ILogger) *Client {
	machine := NewMachine(log)
	router := stream.NewRouter(machine, log)
	router.Bind(manager)

	c := &Client{
		manager: manager,
		machine: machine,
		router:  router,
		bus:     bus,
		logger:  log,
	}

	if bus != nil {
		machine.OnChange(func(gen GenerationState) {
			c.publish(gen)
		})
		manager.OnStatus(func(from, to socket.Status, err error) {
			c.publish(machine.Generation())
		})
	}
	return c
}

func (c *Client) Connect()    { c.manager.Connect() }
func (c *Client) Disconnect() { c.manager.Disconnect() }

// Snapshot is the pull-side of the collaborator contract:
// {status, isConnected, generationState}.
func (c *Client) Snapshot() Snapshot {
	status := c.manager.Status()
	return Snapshot{
		Status:      status,
		IsConnected: status == socket.StatusConnected,
		Generation:  c.machine.Generation(),
	}
}

// Generation returns the current generation state.
func (c *Client) Generation() GenerationState { return c.machine.Generation() }

// Catalog returns the model catalog announced on connect.
func (c *Client) Catalog() Catalog { return c.machine.Catalog() }

// SessionID returns the server-assigned conversation id, if one was captured.
func (c *Client) SessionID() string { return c.machine.SessionID() }

// History exposes the connection's retained frame history.
func (c *Client) History() []socket.Inbound { return c.manager.History() }

// SendRoutedMessage starts a new generation: all accumulators are cleared
// before the envelope goes out, so stale data never leaks into the new cycle.
// When no session override is given, the last server-assigned id is reused.
func (c *Client) SendRoutedMessage(content string, opts protocol.ChatOptions) error {
	if opts.SessionID == "" {
		opts.SessionID = c.machine.SessionID()
	}
	cmd, err := protocol.NewChatCommand(content, opts)
	if err != nil {
		return err
	}

	c.machine.BeginGeneration()
	if !c.manager.Send(cmd) {
		return ErrChannelClosed
	}
	return nil
}

// StopStream cancels the live generation optimistically: the local phase
// flips before the stop envelope is even written, independent of whether the
// server ever acknowledges.
func (c *Client) StopStream() error {
	c.machine.MarkStopping()
	if !c.manager.Send(protocol.NewStopCommand()) {
		return ErrChannelClosed
	}
	return nil
}

// RequestComparison asks the server to re-run a completed response with the
// alternate model so the user can pick a preferred answer.
func (c *Client) RequestComparison(responseID, query string) error {
	cmd, err := protocol.NewCompareCommand(responseID, query)
	if err != nil {
		return err
	}
	c.machine.BeginComparison()
	if !c.manager.Send(cmd) {
		return ErrChannelClosed
	}
	return nil
}

// ConfirmFeedback reports the user's pick of the comparison. No local phase
// change: the server's feedback_confirmed frame drives the transition.
func (c *Client) ConfirmFeedback(responseID, selectedModel, comment string) error {
	cmd, err := protocol.NewConfirmCommand(responseID, selectedModel, comment)
	if err != nil {
		return err
	}
	if !c.manager.Send(cmd) {
		return ErrChannelClosed
	}
	return nil
}

// SendFeedback rates a finished response (correct / downgrade / upgrade).
func (c *Client) SendFeedback(responseID, feedbackType, comment string) error {
	cmd, err := protocol.NewFeedbackCommand(responseID, feedbackType, comment)
	if err != nil {
		return err
	}
	if !c.manager.Send(cmd) {
		return ErrChannelClosed
	}
	return nil
}

// ResumeStream asks the server to continue a stream from a token index.
// Best-effort: if the server cannot resume, no further tokens arrive for that
// id and any timeout handling is the caller's concern.
func (c *Client) ResumeStream(streamID string, fromIndex int) error {
	cmd, err := protocol.NewResumeCommand(streamID, fromIndex)
	if err != nil {
		return err
	}
	if !c.manager.Send(cmd) {
		return ErrChannelClosed
	}
	return nil
}

// Ping sends one heartbeat envelope outside the regular interval.
func (c *Client) Ping() bool {
	return c.manager.Send(protocol.NewPingCommand())
}

func (c *Client) publish(gen GenerationState) {
	status := c.manager.Status()
	err := c.bus.Publish(Snapshot{
		Status:      status,
		IsConnected: status == socket.StatusConnected,
		Generation:  gen,
	})
	if err != nil {
		c.logger.Warn(logModule, "Snapshot publish failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

package notify

import (
	"ai-notetaking-stream/internal/pkg/logger"
	"ai-notetaking-stream/pkg/protocol"
	"ai-notetaking-stream/pkg/socket"
	"ai-notetaking-stream/pkg/stream"
)

const logModule = "Notify"

// Handler receives decoded notifications.
type Handler func(n protocol.Notification)

// Consumer is the notification-channel counterpart of the chat client. It
// rides the same socket Manager and Router; only the frame interpretation
// differs, which is the whole point of the transport-generic split.
type Consumer struct {
	manager *socket.Manager
	router  *stream.Router
	logger  logger.ILogger
	handler Handler
}

func NewConsumer(manager *socket.Manager, log logger.ILogger, handler Handler) *Consumer {
	c := &Consumer{
		manager: manager,
		logger:  log,
		handler: handler,
	}
	c.router = stream.NewRouter(c, log)
	c.router.Bind(manager)
	return c
}

func (c *Consumer) Connect()    { c.manager.Connect() }
func (c *Consumer) Disconnect() { c.manager.Disconnect() }

func (c *Consumer) Status() socket.Status { return c.manager.Status() }

// HandleFrame implements stream.Consumer.
func (c *Consumer) HandleFrame(in socket.Inbound) {
	switch f := in.Frame.(type) {
	case *protocol.NotificationFrame:
		if c.handler != nil {
			c.handler(f.Data)
		}
	case *protocol.PongFrame:
		// heartbeat reply
	default:
		c.logger.Debug(logModule, "Ignoring non-notification frame", map[string]interface{}{
			"type": in.Type,
		})
	}
}

package stream

import (
	"ai-notetaking-stream/internal/pkg/logger"
	"ai-notetaking-stream/pkg/socket"
)

// Consumer interprets frames for one channel kind (chat, notifications, ...).
type Consumer interface {
	HandleFrame(in socket.Inbound)
}

// ConsumerFunc adapts a plain function to the Consumer interface.
type ConsumerFunc func(in socket.Inbound)

func (f ConsumerFunc) HandleFrame(in socket.Inbound) { f(in) }

// Router fans every inbound frame out to the single registered consumer. It
// holds no state of its own; it exists so the socket Manager stays
// transport-generic and one manager implementation can back any channel kind.
type Router struct {
	consumer Consumer
	logger   logger.ILogger
}

func NewRouter(consumer Consumer, log logger.ILogger) *Router {
	return &Router{consumer: consumer, logger: log}
}

// Bind registers the router as the manager's frame handler.
func (r *Router) Bind(m *socket.Manager) {
	m.OnMessage(r.Dispatch)
}

// Dispatch hands one frame to the consumer in delivery order.
func (r *Router) Dispatch(in socket.Inbound) {
	if r.consumer == nil {
		r.logger.Warn("Router", "No consumer registered, dropping frame", map[string]interface{}{
			"type": in.Type,
		})
		return
	}
	r.consumer.HandleFrame(in)
}

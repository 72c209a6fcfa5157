package socket

import (
	"time"

	"ai-notetaking-stream/pkg/protocol"
)

// Status is the connection lifecycle state of one Manager.
type Status string

const (
	StatusDisconnected Status = "disconnected"
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
	StatusReconnecting Status = "reconnecting"
	StatusError        Status = "error"
)

// Inbound is one received frame stamped at the moment it was read off the
// socket. Frames are immutable after dispatch.
type Inbound struct {
	Type       string
	ReceivedAt time.Time
	Frame      protocol.Frame
}

// Handler consumes decoded inbound frames in socket-delivery order.
type Handler func(Inbound)

// StatusHandler observes connection state transitions. err is non-nil only
// when the transition was caused by a transport failure.
type StatusHandler func(from, to Status, err error)

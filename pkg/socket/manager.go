package socket

import (
	"math"
	"net/http"
	"sync"
	"time"

	"ai-notetaking-stream/internal/pkg/logger"
	"ai-notetaking-stream/pkg/protocol"

	"github.com/gorilla/websocket"
)

const (
	writeWait = 10 * time.Second

	defaultHeartbeatInterval = 30 * time.Second
	defaultReconnectBase     = 1 * time.Second
	defaultMaxReconnects     = 5
	defaultHistoryLimit      = 100

	logModule = "Socket"
)

// Config describes one duplex channel endpoint.
type Config struct {
	// URL is the full websocket address including the channel path,
	// e.g. "ws://localhost:3000/ws/chat/<connection_id>".
	URL string

	// AuthToken, when set, is passed as a Bearer header on dial.
	AuthToken string

	HeartbeatInterval time.Duration
	ReconnectBase     time.Duration
	MaxReconnects     int
	HistoryLimit      int
}

func (c *Config) applyDefaults() {
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = defaultHeartbeatInterval
	}
	if c.ReconnectBase <= 0 {
		c.ReconnectBase = defaultReconnectBase
	}
	if c.MaxReconnects <= 0 {
		c.MaxReconnects = defaultMaxReconnects
	}
	if c.HistoryLimit <= 0 {
		c.HistoryLimit = defaultHistoryLimit
	}
}

// Manager owns one websocket connection: it drives the status machine,
// heartbeats while connected, reconnects with exponential backoff on abnormal
// closes, and dispatches decoded frames to the registered handler.
//
// Failures never propagate as panics or synchronous errors: Send reports a
// bool, transport errors surface as status transitions, and unparseable
// frames are logged and dropped.
type Manager struct {
	cfg    Config
	logger logger.ILogger

	mu       sync.Mutex
	conn     *websocket.Conn
	status   Status
	attempts int
	history  []Inbound
	handler  Handler
	onStatus StatusHandler

	// gen invalidates pump goroutines and pending timers that belong to an
	// older connection after Disconnect or a fresh Connect.
	gen int

	heartbeatStop  chan struct{}
	reconnectTimer *time.Timer
}

func NewManager(cfg Config, log logger.ILogger) *Manager {
	cfg.applyDefaults()
	return &Manager{
		cfg:    cfg,
		logger: log,
		status: StatusDisconnected,
	}
}

// OnMessage registers the single frame consumer. Must be set before Connect.
func (m *Manager) OnMessage(h Handler) {
	m.mu.Lock()
	m.handler = h
	m.mu.Unlock()
}

// OnStatus registers the status transition observer.
func (m *Manager) OnStatus(h StatusHandler) {
	m.mu.Lock()
	m.onStatus = h
	m.mu.Unlock()
}

func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

func (m *Manager) IsConnected() bool {
	return m.Status() == StatusConnected
}

// ReconnectAttempts returns the abnormal-close counter since the last
// successful open.
func (m *Manager) ReconnectAttempts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attempts
}

// History returns a copy of the retained inbound frames, oldest first.
// Heartbeat replies are never retained.
func (m *Manager) History() []Inbound {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Inbound, len(m.history))
	copy(out, m.history)
	return out
}

// Connect opens the channel. It is a no-op while already connected. Any
// pending reconnect timer is cancelled first, so an explicit Connect always
// supersedes the automatic schedule.
func (m *Manager) Connect() {
	m.mu.Lock()
	if m.status == StatusConnected && m.conn != nil {
		m.mu.Unlock()
		return
	}
	m.cancelTimersLocked()
	m.gen++
	gen := m.gen
	url := m.cfg.URL
	header := http.Header{}
	if m.cfg.AuthToken != "" {
		header.Set("Authorization", "Bearer "+m.cfg.AuthToken)
	}
	m.mu.Unlock()

	m.setStatus(StatusConnecting, nil)

	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	if err != nil {
		m.mu.Lock()
		stale := gen != m.gen
		m.mu.Unlock()
		if stale {
			// Disconnect raced this dial; stay silent.
			return
		}
		m.logger.Error(logModule, "Dial failed", map[string]interface{}{
			"url":   url,
			"error": err.Error(),
		})
		m.setStatus(StatusError, err)
		m.scheduleReconnect()
		return
	}

	m.mu.Lock()
	if gen != m.gen {
		// Disconnect or a newer Connect won the race; this dial is stale.
		m.mu.Unlock()
		conn.Close()
		return
	}
	m.conn = conn
	m.attempts = 0
	m.startHeartbeatLocked()
	m.mu.Unlock()

	m.setStatus(StatusConnected, nil)
	m.logger.Info(logModule, "Channel connected", map[string]interface{}{"url": url})

	go m.readPump(conn, gen)
}

// Disconnect closes the channel with a normal-closure code and suppresses all
// further automatic reconnection. This is the only terminal path; recovery
// needs an explicit Connect.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	m.cancelTimersLocked()
	m.attempts = m.cfg.MaxReconnects
	m.gen++
	conn := m.conn
	m.conn = nil
	m.mu.Unlock()

	if conn != nil {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
		conn.Close()
	}
	m.setStatus(StatusDisconnected, nil)
}

// Send serializes v onto the socket if it is currently open. A false return
// means the message was dropped, not queued.
func (m *Manager) Send(v interface{}) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.status != StatusConnected || m.conn == nil {
		return false
	}
	m.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := m.conn.WriteJSON(v); err != nil {
		m.logger.Warn(logModule, "Write failed", map[string]interface{}{"error": err.Error()})
		return false
	}
	return true
}

// ReconnectDelay computes the backoff before the attempt-th reconnect
// (attempt starts at 1): base × 1.5^(attempt-1).
func ReconnectDelay(base time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return time.Duration(float64(base) * math.Pow(1.5, float64(attempt-1)))
}

func (m *Manager) readPump(conn *websocket.Conn, gen int) {
	defer conn.Close()
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			m.handleClose(gen, err)
			return
		}
		m.handleFrame(data)
	}
}

func (m *Manager) handleFrame(data []byte) {
	frame, err := protocol.Decode(data)
	if err != nil {
		// Protocol errors are local: drop the frame, keep the channel alive.
		m.logger.Warn(logModule, "Dropping unparseable frame", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	in := Inbound{
		Type:       frame.FrameType(),
		ReceivedAt: time.Now(),
		Frame:      frame,
	}

	m.mu.Lock()
	if in.Type != protocol.TypePong {
		m.history = append(m.history, in)
		if over := len(m.history) - m.cfg.HistoryLimit; over > 0 {
			m.history = m.history[over:]
		}
	}
	h := m.handler
	m.mu.Unlock()

	if h != nil {
		h(in)
	}
}

func (m *Manager) handleClose(gen int, err error) {
	m.mu.Lock()
	if gen != m.gen {
		// A Disconnect or fresh Connect already superseded this connection.
		m.mu.Unlock()
		return
	}
	m.stopHeartbeatLocked()
	m.conn = nil
	m.mu.Unlock()

	m.logger.Warn(logModule, "Channel closed", map[string]interface{}{"error": err.Error()})
	m.setStatus(StatusError, err)
	m.scheduleReconnect()
}

func (m *Manager) scheduleReconnect() {
	m.mu.Lock()
	if m.attempts >= m.cfg.MaxReconnects {
		m.mu.Unlock()
		m.logger.Warn(logModule, "Reconnect attempts exhausted", map[string]interface{}{
			"max_attempts": m.cfg.MaxReconnects,
		})
		m.setStatus(StatusDisconnected, nil)
		return
	}
	m.attempts++
	attempt := m.attempts
	delay := ReconnectDelay(m.cfg.ReconnectBase, attempt)
	m.reconnectTimer = time.AfterFunc(delay, m.Connect)
	m.mu.Unlock()

	m.logger.Info(logModule, "Reconnect scheduled", map[string]interface{}{
		"attempt":  attempt,
		"delay_ms": delay.Milliseconds(),
	})
	m.setStatus(StatusReconnecting, nil)
}

func (m *Manager) startHeartbeatLocked() {
	m.stopHeartbeatLocked()
	stop := make(chan struct{})
	m.heartbeatStop = stop
	interval := m.cfg.HeartbeatInterval

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.Send(protocol.NewPingCommand())
			case <-stop:
				return
			}
		}
	}()
}

func (m *Manager) stopHeartbeatLocked() {
	if m.heartbeatStop != nil {
		close(m.heartbeatStop)
		m.heartbeatStop = nil
	}
}

func (m *Manager) cancelTimersLocked() {
	m.stopHeartbeatLocked()
	if m.reconnectTimer != nil {
		m.reconnectTimer.Stop()
		m.reconnectTimer = nil
	}
}

func (m *Manager) setStatus(to Status, err error) {
	m.mu.Lock()
	from := m.status
	if from == to && err == nil {
		m.mu.Unlock()
		return
	}
	m.status = to
	cb := m.onStatus
	m.mu.Unlock()

	if cb != nil {
		cb(from, to, err)
	}
}

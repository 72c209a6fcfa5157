package chat

import (
	"sync"

	"ai-notetaking-stream/internal/pkg/logger"
	"ai-notetaking-stream/pkg/protocol"
	"ai-notetaking-stream/pkg/socket"
)

const logModule = "ChatStream"

// Machine translates the ordered inbound frame sequence of the chat channel
// into a GenerationState. Exactly one generation is live at a time; a new
// command supersedes the previous generation even mid-stream.
type Machine struct {
	mu      sync.RWMutex
	gen     GenerationState
	catalog Catalog

	// sessionID is the conversation identifier assigned by the server on the
	// first generation. It survives generation resets so follow-up sends can
	// reuse it.
	sessionID string

	logger   logger.ILogger
	onChange func(GenerationState)
}

func NewMachine(log logger.ILogger) *Machine {
	return &Machine{
		gen:    GenerationState{Phase: PhaseIdle},
		logger: log,
	}
}

// OnChange registers an observer invoked with a state copy after every
// mutation. Must be set before frames flow.
func (m *Machine) OnChange(fn func(GenerationState)) {
	m.mu.Lock()
	m.onChange = fn
	m.mu.Unlock()
}

// Generation returns a copy of the current generation state.
func (m *Machine) Generation() GenerationState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.gen.clone()
}

// Catalog returns the capability announcement of the current connection.
func (m *Machine) Catalog() Catalog {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := m.catalog
	out.Models = append([]protocol.ModelInfo(nil), m.catalog.Models...)
	return out
}

// SessionID returns the server-assigned conversation id, if any.
func (m *Machine) SessionID() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sessionID
}

// HandleFrame applies one inbound frame. Transitions are deterministic and
// applied in delivery order; no reordering is performed here, so token order
// is exactly transport order.
func (m *Machine) HandleFrame(in socket.Inbound) {
	m.mu.Lock()

	switch f := in.Frame.(type) {
	case *protocol.ConnectedFrame:
		m.catalog = Catalog{Models: f.Models, RoutingEnabled: f.RoutingEnabled}

	case *protocol.StartFrame:
		m.resetLocked(PhaseRouting)
		if f.SessionID != "" {
			m.sessionID = f.SessionID
		}

	case *protocol.RoutingFrame:
		// Routing info is set once per generation. A routing frame arriving
		// after a terminal backfill is ignored rather than overwriting it.
		if m.gen.Routing == nil {
			r := f.Routing
			m.gen.Routing = &r
		}

	case *protocol.TokenFrame:
		if !m.gen.Phase.terminal() {
			m.gen.StreamingText += f.Content
			m.gen.Phase = PhaseGenerating
		}

	case *protocol.ThinkingFrame:
		if !m.gen.Phase.terminal() {
			m.gen.ThinkingText += f.Content
			m.gen.Phase = PhaseThinking
		}

	case *protocol.StatusFrame:
		m.gen.StatusMessage = f.Message
		if phase, ok := phaseFromWire(f.Phase); ok && !m.gen.Phase.terminal() {
			m.gen.Phase = phase
		}

	case *protocol.SourcesFrame:
		// Replaced wholesale, never merged.
		m.gen.Sources = f.Sources

	case *protocol.EndFrame:
		m.gen.Phase = PhaseComplete
		m.gen.Stats = f.Stats
		if m.gen.Routing == nil && (f.ModelSize != "" || f.ModelName != "" || f.ResponseID != "") {
			// Backfill: some servers skip the routing frame and only report
			// the chosen model on the terminal frame.
			m.gen.Routing = &protocol.RoutingPayload{
				ModelSize:  f.ModelSize,
				ModelName:  f.ModelName,
				ResponseID: f.ResponseID,
			}
		}

	case *protocol.StoppedFrame:
		m.gen.Phase = PhaseStopped

	case *protocol.FeedbackReceivedFrame:
		fb := f.Feedback
		m.gen.Feedback = &fb
		m.gen.RequiresComparison = f.RequiresComparison

	case *protocol.CompareStartFrame:
		// Second generation cycle for the comparison: the text accumulators
		// restart, the sub-flow metadata survives.
		m.gen.StreamingText = ""
		m.gen.ThinkingText = ""
		r := f.Routing
		m.gen.ComparisonRouting = &r
		m.gen.Phase = PhaseGenerating

	case *protocol.FeedbackConfirmedFrame:
		m.gen.LearningApplied = f.LearningApplied
		m.gen.RequiresComparison = false

	case *protocol.ErrorFrame:
		m.gen.Phase = PhaseError
		m.gen.ErrorMessage = f.Message

	case *protocol.PongFrame:
		// Heartbeat acknowledgement, no state effect.
		m.mu.Unlock()
		return

	default:
		m.logger.Debug(logModule, "Ignoring unrecognized frame", map[string]interface{}{
			"type": in.Type,
		})
		m.mu.Unlock()
		return
	}

	m.notifyLocked()
}

// BeginGeneration resets all accumulators ahead of a new chat command so no
// data from the previous generation leaks into the next.
func (m *Machine) BeginGeneration() {
	m.mu.Lock()
	m.resetLocked(PhaseRouting)
	m.notifyLocked()
}

// BeginComparison restarts the text accumulators for a comparison run while
// keeping the feedback sub-flow metadata.
func (m *Machine) BeginComparison() {
	m.mu.Lock()
	m.gen.StreamingText = ""
	m.gen.ThinkingText = ""
	m.gen.Phase = PhaseGenerating
	m.notifyLocked()
}

// MarkStopping flips the phase optimistically the moment a stop command is
// issued. The UI never waits on the network to reflect cancellation; the
// server's stopped frame later settles the phase.
func (m *Machine) MarkStopping() {
	m.mu.Lock()
	if m.gen.Phase == PhaseGenerating || m.gen.Phase == PhaseThinking || m.gen.Phase == PhaseRouting {
		m.gen.Phase = PhaseStopping
	}
	m.notifyLocked()
}

func (m *Machine) resetLocked(phase Phase) {
	m.gen = GenerationState{Phase: phase}
}

// notifyLocked releases the lock and invokes the observer with a copy.
func (m *Machine) notifyLocked() {
	cb := m.onChange
	snapshot := m.gen.clone()
	m.mu.Unlock()
	if cb != nil {
		cb(snapshot)
	}
}

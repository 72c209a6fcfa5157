package chat

import (
	"ai-notetaking-stream/pkg/protocol"
)

// Phase is the lifecycle stage of one generation.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseRouting    Phase = "routing"
	PhaseThinking   Phase = "thinking"
	PhaseGenerating Phase = "generating"
	PhaseComplete   Phase = "complete"
	PhaseError      Phase = "error"

	// PhaseStopping is the optimistic client-side state between a stop command
	// and the server's stopped acknowledgement.
	PhaseStopping Phase = "stopping"
	PhaseStopped  Phase = "stopped"
)

// terminal reports whether the generation is frozen: no further accumulation
// is applied until the next reset.
func (p Phase) terminal() bool {
	switch p {
	case PhaseComplete, PhaseError, PhaseStopping, PhaseStopped:
		return true
	}
	return false
}

func phaseFromWire(s string) (Phase, bool) {
	switch Phase(s) {
	case PhaseRouting, PhaseThinking, PhaseGenerating, PhaseComplete, PhaseError, PhaseStopping, PhaseStopped:
		return Phase(s), true
	}
	return "", false
}

// GenerationState is the mutable record of one request/response cycle. It is
// reset when a chat command is sent, mutated by inbound frames, and frozen at
// a terminal phase until the next generation overwrites it.
type GenerationState struct {
	Phase         Phase  `json:"phase"`
	StreamingText string `json:"streaming_text"`
	ThinkingText  string `json:"thinking_text"`
	StatusMessage string `json:"status_message,omitempty"`
	ErrorMessage  string `json:"error_message,omitempty"`

	Sources []protocol.Source        `json:"sources,omitempty"`
	Stats   map[string]interface{}   `json:"stats,omitempty"`
	Routing *protocol.RoutingPayload `json:"routing,omitempty"`

	// Feedback/comparison sub-flow, entered after a completed generation.
	Feedback           *protocol.FeedbackPayload `json:"feedback,omitempty"`
	RequiresComparison bool                      `json:"requires_comparison"`
	ComparisonRouting  *protocol.RoutingPayload  `json:"comparison_routing,omitempty"`
	LearningApplied    bool                      `json:"learning_applied"`
}

// Catalog is the connection-level capability announcement, set once per
// connection by the connected frame. It survives generation resets.
type Catalog struct {
	Models         []protocol.ModelInfo `json:"models"`
	RoutingEnabled bool                 `json:"routing_enabled"`
}

// clone returns a deep enough copy for read-side consumers: slices and maps
// are duplicated, payload pointers are copied by value.
func (g GenerationState) clone() GenerationState {
	out := g
	if g.Sources != nil {
		out.Sources = append([]protocol.Source(nil), g.Sources...)
	}
	if g.Stats != nil {
		out.Stats = make(map[string]interface{}, len(g.Stats))
		for k, v := range g.Stats {
			out.Stats[k] = v
		}
	}
	if g.Routing != nil {
		r := *g.Routing
		out.Routing = &r
	}
	if g.Feedback != nil {
		f := *g.Feedback
		out.Feedback = &f
	}
	if g.ComparisonRouting != nil {
		c := *g.ComparisonRouting
		out.ComparisonRouting = &c
	}
	return out
}

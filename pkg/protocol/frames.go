package protocol

import (
	"encoding/json"
	"fmt"
	"time"
)

// Inbound frame type discriminators. The server emits a few aliased pairs
// (token/chunk, end/complete, stopped/cancelled); both spellings decode to the
// same variant and keep their original wire type.
const (
	TypeConnected         = "connected"
	TypeStart             = "start"
	TypeRouting           = "routing"
	TypeToken             = "token"
	TypeChunk             = "chunk"
	TypeThinking          = "thinking"
	TypeStatus            = "status"
	TypeProcessing        = "processing"
	TypeSources           = "sources"
	TypeEnd               = "end"
	TypeComplete          = "complete"
	TypeStopped           = "stopped"
	TypeCancelled         = "cancelled"
	TypeFeedbackReceived  = "feedback_received"
	TypeCompareStart      = "compare_start"
	TypeFeedbackConfirmed = "feedback_confirmed"
	TypeError             = "error"
	TypePong              = "pong"
	TypeNotification      = "notification"
)

// Frame is one decoded inbound message. FrameType returns the wire
// discriminator as received, aliases included.
type Frame interface {
	FrameType() string
}

// ModelInfo describes one entry of the model catalog announced on connect.
type ModelInfo struct {
	Name string `json:"name"`
	Size string `json:"size"`
}

// RoutingPayload is the model-selection metadata of one generation attempt.
type RoutingPayload struct {
	ModelSize      string  `json:"model_size"`
	ModelName      string  `json:"model_name"`
	Confidence     float64 `json:"confidence"`
	DecisionSource string  `json:"decision_source"`
	ResponseID     string  `json:"response_id"`
	AttemptNumber  int     `json:"attempt_number"`
}

// Source is one retrieved citation attached to a generation.
type Source struct {
	ID      string  `json:"id"`
	Title   string  `json:"title"`
	Snippet string  `json:"snippet,omitempty"`
	Score   float32 `json:"score,omitempty"`
}

// FeedbackPayload describes the server-side evaluation of a finished response.
type FeedbackPayload struct {
	ResponseID   string `json:"response_id"`
	FeedbackType string `json:"feedback_type"`
	Message      string `json:"message,omitempty"`
}

// Notification is the payload of the notification channel.
type Notification struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

type ConnectedFrame struct {
	Type           string      `json:"type"`
	Models         []ModelInfo `json:"models"`
	RoutingEnabled bool        `json:"routing_enabled"`
}

type StartFrame struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id,omitempty"`
}

type RoutingFrame struct {
	Type    string         `json:"type"`
	Routing RoutingPayload `json:"routing"`
}

type TokenFrame struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

type ThinkingFrame struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

type StatusFrame struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Phase   string `json:"phase,omitempty"`
}

type SourcesFrame struct {
	Type    string   `json:"type"`
	Sources []Source `json:"sources"`
}

type EndFrame struct {
	Type       string                 `json:"type"`
	Stats      map[string]interface{} `json:"stats,omitempty"`
	ModelSize  string                 `json:"model_size,omitempty"`
	ModelName  string                 `json:"model_name,omitempty"`
	ResponseID string                 `json:"response_id,omitempty"`
}

type StoppedFrame struct {
	Type   string `json:"type"`
	Reason string `json:"reason,omitempty"`
}

type FeedbackReceivedFrame struct {
	Type               string          `json:"type"`
	Feedback           FeedbackPayload `json:"feedback"`
	RequiresComparison bool            `json:"requires_comparison"`
}

type CompareStartFrame struct {
	Type    string         `json:"type"`
	Routing RoutingPayload `json:"routing"`
}

type FeedbackConfirmedFrame struct {
	Type            string `json:"type"`
	LearningApplied bool   `json:"learning_applied"`
	SelectedModel   string `json:"selected_model,omitempty"`
}

type ErrorFrame struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type PongFrame struct {
	Type string `json:"type"`
}

type NotificationFrame struct {
	Type string       `json:"type"`
	Data Notification `json:"data"`
}

// UnknownFrame carries an unrecognized discriminator so consumers can log and
// ignore it without the decoder failing.
type UnknownFrame struct {
	Type string
	Raw  json.RawMessage
}

func (f *ConnectedFrame) FrameType() string         { return f.Type }
func (f *StartFrame) FrameType() string             { return f.Type }
func (f *RoutingFrame) FrameType() string           { return f.Type }
func (f *TokenFrame) FrameType() string             { return f.Type }
func (f *ThinkingFrame) FrameType() string          { return f.Type }
func (f *StatusFrame) FrameType() string            { return f.Type }
func (f *SourcesFrame) FrameType() string           { return f.Type }
func (f *EndFrame) FrameType() string               { return f.Type }
func (f *StoppedFrame) FrameType() string           { return f.Type }
func (f *FeedbackReceivedFrame) FrameType() string  { return f.Type }
func (f *CompareStartFrame) FrameType() string      { return f.Type }
func (f *FeedbackConfirmedFrame) FrameType() string { return f.Type }
func (f *ErrorFrame) FrameType() string             { return f.Type }
func (f *PongFrame) FrameType() string              { return f.Type }
func (f *NotificationFrame) FrameType() string      { return f.Type }
func (f *UnknownFrame) FrameType() string           { return f.Type }

// Decode parses one raw frame into its typed variant. Unrecognized types are
// not an error; they decode to UnknownFrame so the channel keeps running.
func Decode(data []byte) (Frame, error) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to parse frame envelope: %w", err)
	}
	if env.Type == "" {
		return nil, fmt.Errorf("frame missing type discriminator")
	}

	var frame Frame
	switch env.Type {
	case TypeConnected:
		frame = &ConnectedFrame{}
	case TypeStart:
		frame = &StartFrame{}
	case TypeRouting:
		frame = &RoutingFrame{}
	case TypeToken, TypeChunk:
		frame = &TokenFrame{}
	case TypeThinking:
		frame = &ThinkingFrame{}
	case TypeStatus, TypeProcessing:
		frame = &StatusFrame{}
	case TypeSources:
		frame = &SourcesFrame{}
	case TypeEnd, TypeComplete:
		frame = &EndFrame{}
	case TypeStopped, TypeCancelled:
		frame = &StoppedFrame{}
	case TypeFeedbackReceived:
		frame = &FeedbackReceivedFrame{}
	case TypeCompareStart:
		frame = &CompareStartFrame{}
	case TypeFeedbackConfirmed:
		frame = &FeedbackConfirmedFrame{}
	case TypeError:
		frame = &ErrorFrame{}
	case TypePong:
		frame = &PongFrame{}
	case TypeNotification:
		frame = &NotificationFrame{}
	default:
		return &UnknownFrame{Type: env.Type, Raw: append(json.RawMessage(nil), data...)}, nil
	}

	if err := json.Unmarshal(data, frame); err != nil {
		return nil, fmt.Errorf("failed to parse %q frame: %w", env.Type, err)
	}
	return frame, nil
}

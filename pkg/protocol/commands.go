package protocol

// Outbound command type discriminators.
const (
	CommandChat     = "chat"
	CommandStop     = "stop"
	CommandResume   = "resume"
	CommandFeedback = "feedback"
	CommandCompare  = "compare"
	CommandConfirm  = "confirm"
	CommandPing     = "ping"
)

// Defaults applied by the chat builder when the caller leaves them unset.
const (
	DefaultComplexityLevel = "auto"
	DefaultResponseMode    = "normal"
)

type ChatCommand struct {
	Type            string `json:"type" validate:"required,eq=chat"`
	Message         string `json:"message" validate:"required"`
	SessionID       string `json:"session_id,omitempty"`
	UseRouting      bool   `json:"use_routing"`
	ForceModel      string `json:"force_model,omitempty"`
	WebSearch       bool   `json:"web_search"`
	ComplexityLevel string `json:"complexity_level" validate:"required,oneof=auto low medium high"`
	ResponseMode    string `json:"response_mode" validate:"required,oneof=normal concise detailed"`
}

type StopCommand struct {
	Type string `json:"type" validate:"required,eq=stop"`
}

type ResumeCommand struct {
	Type      string `json:"type" validate:"required,eq=resume"`
	StreamID  string `json:"stream_id" validate:"required"`
	FromIndex int    `json:"from_index" validate:"gte=0"`
}

type FeedbackCommand struct {
	Type         string `json:"type" validate:"required,eq=feedback"`
	ResponseID   string `json:"response_id" validate:"required"`
	FeedbackType string `json:"feedback_type" validate:"required,oneof=correct downgrade upgrade"`
	Comment      string `json:"comment,omitempty"`
}

type CompareCommand struct {
	Type       string `json:"type" validate:"required,eq=compare"`
	ResponseID string `json:"response_id" validate:"required"`
	Query      string `json:"query" validate:"required"`
}

type ConfirmCommand struct {
	Type          string `json:"type" validate:"required,eq=confirm"`
	ResponseID    string `json:"response_id" validate:"required"`
	SelectedModel string `json:"selected_model" validate:"required,oneof=small large"`
	Comment       string `json:"comment,omitempty"`
}

type PingCommand struct {
	Type string `json:"type" validate:"required,eq=ping"`
}

// ChatOptions are the caller-tunable knobs of a routed chat request.
// UseRouting is a pointer so "unset" can default to true.
type ChatOptions struct {
	SessionID       string
	UseRouting      *bool
	ForceModel      string
	WebSearch       bool
	ComplexityLevel string
	ResponseMode    string
}

// NewChatCommand shapes a routed chat envelope, applying defaults before
// validation. It touches no network; the chat client owns the send.
func NewChatCommand(message string, opts ChatOptions) (*ChatCommand, error) {
	useRouting := true
	if opts.UseRouting != nil {
		useRouting = *opts.UseRouting
	}
	complexity := opts.ComplexityLevel
	if complexity == "" {
		complexity = DefaultComplexityLevel
	}
	mode := opts.ResponseMode
	if mode == "" {
		mode = DefaultResponseMode
	}

	cmd := &ChatCommand{
		Type:            CommandChat,
		Message:         message,
		SessionID:       opts.SessionID,
		UseRouting:      useRouting,
		ForceModel:      opts.ForceModel,
		WebSearch:       opts.WebSearch,
		ComplexityLevel: complexity,
		ResponseMode:    mode,
	}
	if err := ValidateCommand(cmd); err != nil {
		return nil, err
	}
	return cmd, nil
}

func NewStopCommand() *StopCommand {
	return &StopCommand{Type: CommandStop}
}

func NewResumeCommand(streamID string, fromIndex int) (*ResumeCommand, error) {
	cmd := &ResumeCommand{Type: CommandResume, StreamID: streamID, FromIndex: fromIndex}
	if err := ValidateCommand(cmd); err != nil {
		return nil, err
	}
	return cmd, nil
}

func NewFeedbackCommand(responseID, feedbackType, comment string) (*FeedbackCommand, error) {
	cmd := &FeedbackCommand{
		Type:         CommandFeedback,
		ResponseID:   responseID,
		FeedbackType: feedbackType,
		Comment:      comment,
	}
	if err := ValidateCommand(cmd); err != nil {
		return nil, err
	}
	return cmd, nil
}

func NewCompareCommand(responseID, query string) (*CompareCommand, error) {
	cmd := &CompareCommand{Type: CommandCompare, ResponseID: responseID, Query: query}
	if err := ValidateCommand(cmd); err != nil {
		return nil, err
	}
	return cmd, nil
}

func NewConfirmCommand(responseID, selectedModel, comment string) (*ConfirmCommand, error) {
	cmd := &ConfirmCommand{
		Type:          CommandConfirm,
		ResponseID:    responseID,
		SelectedModel: selectedModel,
		Comment:       comment,
	}
	if err := ValidateCommand(cmd); err != nil {
		return nil, err
	}
	return cmd, nil
}

func NewPingCommand() *PingCommand {
	return &PingCommand{Type: CommandPing}
}

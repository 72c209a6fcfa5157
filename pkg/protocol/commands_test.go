package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boolPtr(b bool) *bool { return &b }

func TestNewChatCommandDefaults(t *testing.T) {
	cmd, err := NewChatCommand("hello", ChatOptions{})
	require.NoError(t, err)

	assert.Equal(t, CommandChat, cmd.Type)
	assert.True(t, cmd.UseRouting)
	assert.Equal(t, DefaultComplexityLevel, cmd.ComplexityLevel)
	assert.Equal(t, DefaultResponseMode, cmd.ResponseMode)
	assert.Empty(t, cmd.SessionID)
	assert.False(t, cmd.WebSearch)
}

func TestNewChatCommandOverrides(t *testing.T) {
	cmd, err := NewChatCommand("hello", ChatOptions{
		SessionID:       "sess-1",
		UseRouting:      boolPtr(false),
		ForceModel:      "large",
		WebSearch:       true,
		ComplexityLevel: "high",
		ResponseMode:    "detailed",
	})
	require.NoError(t, err)

	assert.False(t, cmd.UseRouting)
	assert.Equal(t, "sess-1", cmd.SessionID)
	assert.Equal(t, "large", cmd.ForceModel)
	assert.True(t, cmd.WebSearch)
	assert.Equal(t, "high", cmd.ComplexityLevel)
	assert.Equal(t, "detailed", cmd.ResponseMode)
}

func TestCommandValidation(t *testing.T) {
	tests := []struct {
		name  string
		build func() error
	}{
		{
			name: "chat requires a message",
			build: func() error {
				_, err := NewChatCommand("", ChatOptions{})
				return err
			},
		},
		{
			name: "chat rejects unknown complexity",
			build: func() error {
				_, err := NewChatCommand("hi", ChatOptions{ComplexityLevel: "extreme"})
				return err
			},
		},
		{
			name: "resume requires a stream id",
			build: func() error {
				_, err := NewResumeCommand("", 0)
				return err
			},
		},
		{
			name: "resume rejects negative index",
			build: func() error {
				_, err := NewResumeCommand("stream-1", -1)
				return err
			},
		},
		{
			name: "feedback rejects unknown type",
			build: func() error {
				_, err := NewFeedbackCommand("r1", "amazing", "")
				return err
			},
		},
		{
			name: "compare requires a query",
			build: func() error {
				_, err := NewCompareCommand("r1", "")
				return err
			},
		},
		{
			name: "confirm rejects unknown model",
			build: func() error {
				_, err := NewConfirmCommand("r1", "medium", "")
				return err
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.build())
		})
	}
}

func TestValidCommandsPass(t *testing.T) {
	_, err := NewResumeCommand("stream-1", 5)
	assert.NoError(t, err)

	_, err = NewFeedbackCommand("r1", "correct", "nice")
	assert.NoError(t, err)

	_, err = NewCompareCommand("r1", "original question")
	assert.NoError(t, err)

	_, err = NewConfirmCommand("r1", "large", "")
	assert.NoError(t, err)

	assert.Equal(t, CommandStop, NewStopCommand().Type)
	assert.Equal(t, CommandPing, NewPingCommand().Type)
}

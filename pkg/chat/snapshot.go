package chat

import (
	"context"
	"encoding/json"
	"fmt"

	"ai-notetaking-stream/pkg/socket"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// TopicChatState carries one message per observed state change.
const TopicChatState = "chat_state_snapshots"

// Snapshot is what UI collaborators consume: connection status plus the
// current generation state. They never touch the socket directly.
type Snapshot struct {
	Status      socket.Status   `json:"status"`
	IsConnected bool            `json:"is_connected"`
	Generation  GenerationState `json:"generation"`
}

// SnapshotBus publishes state snapshots to any number of subscribers over an
// in-process pub/sub channel.
type SnapshotBus struct {
	pubSub *gochannel.GoChannel
}

func NewSnapshotBus() *SnapshotBus {
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermill.NopLogger{},
	)
	return &SnapshotBus{pubSub: pubSub}
}

// Publish emits one snapshot. Errors are returned, not fatal: a full or
// closed bus must never stall the stream itself.
func (b *SnapshotBus) Publish(s Snapshot) error {
	payload, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	if err := b.pubSub.Publish(TopicChatState, msg); err != nil {
		return fmt.Errorf("failed to publish snapshot: %w", err)
	}
	return nil
}

// Subscribe returns a channel of decoded snapshots. The channel closes when
// ctx is cancelled or the bus is closed.
func (b *SnapshotBus) Subscribe(ctx context.Context) (<-chan Snapshot, error) {
	messages, err := b.pubSub.Subscribe(ctx, TopicChatState)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", TopicChatState, err)
	}

	out := make(chan Snapshot)
	go func() {
		defer close(out)
		for msg := range messages {
			var s Snapshot
			if err := json.Unmarshal(msg.Payload, &s); err != nil {
				msg.Ack() // malformed snapshots are dropped, not retried
				continue
			}
			msg.Ack()
			select {
			case out <- s:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func (b *SnapshotBus) Close() error {
	return b.pubSub.Close()
}

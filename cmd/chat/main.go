package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"ai-notetaking-stream/internal/bootstrap"
	"ai-notetaking-stream/internal/config"
	"ai-notetaking-stream/pkg/chat"
	"ai-notetaking-stream/pkg/protocol"

	"github.com/fatih/color"
)

func main() {
	// 1. Load Configuration
	cfg := config.Load()

	// 2. Bootstrap Dependencies (Container)
	notifyColor := color.New(color.FgYellow)
	container := bootstrap.NewContainer(cfg, func(n protocol.Notification) {
		notifyColor.Printf("\n[notification] %s: %s\n> ", n.Title, n.Message)
	})

	// 3. Render streamed state from the snapshot bus
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	snapshots, err := container.SnapshotBus.Subscribe(ctx)
	if err != nil {
		log.Fatalf("Unable to subscribe to snapshots: %v", err)
	}
	go render(snapshots)

	// 4. Connect both channels
	container.ChatClient.Connect()
	container.Notifications.Connect()

	fmt.Println("Connected. Type a message, /stop to cancel a stream, /quit to exit.")

	// 5. Read stdin commands
	scanner := bufio.NewScanner(os.Stdin)
	fmt.Print("> ")
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
		case line == "/quit":
			container.ChatClient.Disconnect()
			container.Notifications.Disconnect()
			return
		case line == "/stop":
			if err := container.ChatClient.StopStream(); err != nil {
				color.Red("stop failed: %v", err)
			}
		default:
			if err := container.ChatClient.SendRoutedMessage(line, protocol.ChatOptions{}); err != nil {
				color.Red("send failed: %v", err)
			}
		}
		fmt.Print("> ")
	}
}

// render prints streamed text incrementally as snapshots arrive.
func render(snapshots <-chan chat.Snapshot) {
	tokenColor := color.New(color.FgWhite)
	thinkColor := color.New(color.FgCyan, color.Faint)

	printedTokens := 0
	printedThinking := 0
	lastPhase := chat.PhaseIdle

	for s := range snapshots {
		gen := s.Generation
		if gen.Phase == chat.PhaseRouting && lastPhase != chat.PhaseRouting {
			// New generation: accumulators were reset.
			printedTokens = 0
			printedThinking = 0
			fmt.Println()
		}

		if len(gen.ThinkingText) > printedThinking {
			thinkColor.Print(gen.ThinkingText[printedThinking:])
			printedThinking = len(gen.ThinkingText)
		}
		if len(gen.StreamingText) > printedTokens {
			tokenColor.Print(gen.StreamingText[printedTokens:])
			printedTokens = len(gen.StreamingText)
		}

		if gen.Phase != lastPhase {
			switch gen.Phase {
			case chat.PhaseComplete:
				if gen.Routing != nil {
					color.Green("\n[done: %s]", gen.Routing.ModelName)
				} else {
					color.Green("\n[done]")
				}
				fmt.Print("> ")
			case chat.PhaseStopped:
				color.Magenta("\n[stopped]")
				fmt.Print("> ")
			case chat.PhaseError:
				color.Red("\n[error: %s]", gen.ErrorMessage)
				fmt.Print("> ")
			}
			lastPhase = gen.Phase
		}
	}
}

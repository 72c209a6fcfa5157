package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"ai-notetaking-stream/internal/bootstrap"
	"ai-notetaking-stream/internal/config"
	"ai-notetaking-stream/internal/mockserver"
	"ai-notetaking-stream/internal/pkg/logger"
	"ai-notetaking-stream/internal/tracer"
	"ai-notetaking-stream/pkg/chat"
	"ai-notetaking-stream/pkg/protocol"
)

// Scripted end-to-end run against the in-repo mock assistant: one full
// generation, a feedback/comparison round, and a stop round.
func main() {
	shutdownTracer := tracer.Init("ai-notetaking-stream-simulation")
	defer shutdownTracer(context.Background())

	cfg := config.Load()
	cfg.App.ServerURL = "ws://localhost:" + cfg.App.MockPort

	// 1. Mock assistant backend
	serverLogger := logger.NewIsolatedLogger("logs/mockserver.log")
	server := mockserver.New(serverLogger, mockserver.Options{TokenDelay: 20 * time.Millisecond})
	go func() {
		if err := server.Listen(":" + cfg.App.MockPort); err != nil {
			log.Printf("Mock server stopped: %v", err)
		}
	}()
	defer server.Shutdown()
	time.Sleep(200 * time.Millisecond)

	// 2. Client container
	container := bootstrap.NewContainer(cfg, func(n protocol.Notification) {
		fmt.Printf("[notification] %s: %s\n", n.Title, n.Message)
	})
	client := container.ChatClient
	client.Connect()
	container.Notifications.Connect()
	defer client.Disconnect()
	defer container.Notifications.Disconnect()

	waitFor(client, func(s chat.Snapshot) bool { return s.IsConnected }, "connect")

	// 3. Full generation
	fmt.Println("=== Round 1: routed message ===")
	must(client.SendRoutedMessage("summarize my notes about the exam", protocol.ChatOptions{}))
	final := waitFor(client, func(s chat.Snapshot) bool { return s.Generation.Phase == chat.PhaseComplete }, "generation")
	fmt.Printf("phase=%s session=%s\n", final.Generation.Phase, client.SessionID())
	fmt.Printf("text: %s\n", final.Generation.StreamingText)
	if final.Generation.Routing == nil {
		log.Fatal("Missing routing info on completed generation")
	}
	fmt.Printf("routed to: %s (%s)\n", final.Generation.Routing.ModelName, final.Generation.Routing.ModelSize)
	fmt.Printf("sources: %d, history frames: %d\n", len(final.Generation.Sources), len(client.History()))

	// 4. Feedback / comparison sub-flow
	fmt.Println("=== Round 2: feedback and comparison ===")
	responseID := final.Generation.Routing.ResponseID
	must(client.SendFeedback(responseID, "downgrade", "too brief"))
	fb := waitFor(client, func(s chat.Snapshot) bool { return s.Generation.RequiresComparison }, "feedback")
	fmt.Printf("requires comparison: %v\n", fb.Generation.RequiresComparison)

	must(client.RequestComparison(responseID, "summarize my notes about the exam"))
	cmp := waitFor(client, func(s chat.Snapshot) bool { return s.Generation.Phase == chat.PhaseComplete }, "comparison")
	fmt.Printf("comparison text: %s\n", cmp.Generation.StreamingText)

	must(client.ConfirmFeedback(responseID, "large", "prefer the detailed answer"))
	confirmed := waitFor(client, func(s chat.Snapshot) bool { return s.Generation.LearningApplied }, "confirm")
	fmt.Printf("learning applied: %v\n", confirmed.Generation.LearningApplied)

	// 5. Optimistic stop
	fmt.Println("=== Round 3: optimistic stop ===")
	must(client.SendRoutedMessage("write a very long essay", protocol.ChatOptions{}))
	time.Sleep(60 * time.Millisecond)
	must(client.StopStream())
	fmt.Printf("phase immediately after stop: %s\n", client.Generation().Phase)
	stopped := waitFor(client, func(s chat.Snapshot) bool { return s.Generation.Phase == chat.PhaseStopped }, "stop ack")
	fmt.Printf("phase after server ack: %s\n", stopped.Generation.Phase)

	fmt.Println("=== Simulation complete ===")
}

func waitFor(client *chat.Client, done func(chat.Snapshot) bool, what string) chat.Snapshot {
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		s := client.Snapshot()
		if done(s) {
			return s
		}
		time.Sleep(25 * time.Millisecond)
	}
	log.Fatalf("Timed out waiting for %s", what)
	return chat.Snapshot{}
}

func must(err error) {
	if err != nil {
		log.Fatalf("Command failed: %v", err)
	}
}

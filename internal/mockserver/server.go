package mockserver

import (
	"encoding/json"
	"net"
	"strings"
	"time"

	"ai-notetaking-stream/internal/pkg/logger"
	"ai-notetaking-stream/pkg/protocol"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

const logModule = "MockServer"

// Options tune the scripted behavior per scenario.
type Options struct {
	// Reply is streamed word by word as token frames.
	Reply string

	// Thinking is streamed as thinking frames ahead of the tokens.
	Thinking string

	// TokenDelay is the pause between streamed frames.
	TokenDelay time.Duration

	// SkipRoutingFrame omits the routing frame so clients exercise the
	// backfill-from-end path.
	SkipRoutingFrame bool
}

func (o *Options) applyDefaults() {
	if o.Reply == "" {
		o.Reply = "Here is a short summary of your recent notes about the exam schedule."
	}
	if o.Thinking == "" {
		o.Thinking = "Scanning relevant notes. Ranking by similarity."
	}
}

// Server is a scripted stand-in for the assistant backend's streaming
// endpoints. It speaks the full outbound command set and emits deterministic
// frame sequences, which makes it the harness for cmd/simulation and the
// integration tests.
type Server struct {
	app    *fiber.App
	logger logger.ILogger
	opts   Options
}

func New(log logger.ILogger, opts Options) *Server {
	opts.applyDefaults()

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})
	app.Use(otelfiber.Middleware())

	s := &Server{app: app, logger: log, opts: opts}

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/chat/:connection_id", websocket.New(s.handleChat))
	app.Get("/ws/notifications/:connection_id", websocket.New(s.handleNotifications))

	return s
}

func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

// Listener serves on a pre-bound listener (tests use :0 for a random port).
func (s *Server) Listener(ln net.Listener) error {
	return s.app.Listener(ln)
}

func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

type chatSession struct {
	id           string
	lastTokens   []string
	lastResponse string
}

func (s *Server) handleChat(conn *websocket.Conn) {
	connID := conn.Params("connection_id")
	s.logger.Info(logModule, "Chat channel opened", map[string]interface{}{"connection_id": connID})

	conn.WriteJSON(protocol.ConnectedFrame{
		Type: protocol.TypeConnected,
		Models: []protocol.ModelInfo{
			{Name: "assistant-small-v2", Size: "small"},
			{Name: "assistant-large-v1", Size: "large"},
		},
		RoutingEnabled: true,
	})

	sess := &chatSession{}
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			s.logger.Info(logModule, "Chat channel closed", map[string]interface{}{
				"connection_id": connID,
				"error":         err.Error(),
			})
			return
		}

		var env struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(data, &env); err != nil {
			conn.WriteJSON(protocol.ErrorFrame{Type: protocol.TypeError, Message: "malformed command"})
			continue
		}

		switch env.Type {
		case protocol.CommandChat:
			var cmd protocol.ChatCommand
			if err := json.Unmarshal(data, &cmd); err != nil {
				conn.WriteJSON(protocol.ErrorFrame{Type: protocol.TypeError, Message: "malformed chat command"})
				continue
			}
			s.streamReply(conn, sess, cmd)

		case protocol.CommandStop:
			conn.WriteJSON(protocol.StoppedFrame{Type: protocol.TypeStopped, Reason: "stopped by client"})

		case protocol.CommandPing:
			conn.WriteJSON(protocol.PongFrame{Type: protocol.TypePong})

		case protocol.CommandFeedback:
			var cmd protocol.FeedbackCommand
			if err := json.Unmarshal(data, &cmd); err != nil {
				continue
			}
			conn.WriteJSON(protocol.FeedbackReceivedFrame{
				Type: protocol.TypeFeedbackReceived,
				Feedback: protocol.FeedbackPayload{
					ResponseID:   cmd.ResponseID,
					FeedbackType: cmd.FeedbackType,
					Message:      "feedback recorded",
				},
				RequiresComparison: cmd.FeedbackType != "correct",
			})

		case protocol.CommandCompare:
			var cmd protocol.CompareCommand
			if err := json.Unmarshal(data, &cmd); err != nil {
				continue
			}
			s.streamComparison(conn, sess, cmd)

		case protocol.CommandConfirm:
			var cmd protocol.ConfirmCommand
			if err := json.Unmarshal(data, &cmd); err != nil {
				continue
			}
			conn.WriteJSON(protocol.FeedbackConfirmedFrame{
				Type:            protocol.TypeFeedbackConfirmed,
				LearningApplied: true,
				SelectedModel:   cmd.SelectedModel,
			})

		case protocol.CommandResume:
			var cmd protocol.ResumeCommand
			if err := json.Unmarshal(data, &cmd); err != nil {
				continue
			}
			s.resumeTokens(conn, sess, cmd)

		default:
			s.logger.Warn(logModule, "Unknown command", map[string]interface{}{"type": env.Type})
		}
	}
}

func (s *Server) streamReply(conn *websocket.Conn, sess *chatSession, cmd protocol.ChatCommand) {
	if sess.id == "" {
		if cmd.SessionID != "" {
			sess.id = cmd.SessionID
		} else {
			sess.id = uuid.NewString()
		}
	}
	responseID := uuid.NewString()
	sess.lastResponse = responseID

	modelSize := "small"
	if cmd.ForceModel != "" {
		modelSize = cmd.ForceModel
	}
	modelName := "assistant-small-v2"
	if modelSize == "large" {
		modelName = "assistant-large-v1"
	}

	conn.WriteJSON(protocol.StartFrame{Type: protocol.TypeStart, SessionID: sess.id})

	if !s.opts.SkipRoutingFrame {
		conn.WriteJSON(protocol.RoutingFrame{
			Type: protocol.TypeRouting,
			Routing: protocol.RoutingPayload{
				ModelSize:      modelSize,
				ModelName:      modelName,
				Confidence:     0.92,
				DecisionSource: "heuristic",
				ResponseID:     responseID,
				AttemptNumber:  1,
			},
		})
	}

	conn.WriteJSON(protocol.StatusFrame{
		Type:    protocol.TypeStatus,
		Message: "Retrieving context",
		Phase:   "routing",
	})

	for _, sentence := range strings.Split(s.opts.Thinking, ". ") {
		s.pause()
		conn.WriteJSON(protocol.ThinkingFrame{Type: protocol.TypeThinking, Content: sentence + " "})
	}

	sess.lastTokens = sess.lastTokens[:0]
	for _, word := range strings.Fields(s.opts.Reply) {
		token := word + " "
		sess.lastTokens = append(sess.lastTokens, token)
		s.pause()
		conn.WriteJSON(protocol.TokenFrame{Type: protocol.TypeToken, Content: token})
	}

	conn.WriteJSON(protocol.SourcesFrame{
		Type: protocol.TypeSources,
		Sources: []protocol.Source{
			{ID: uuid.NewString(), Title: "Exam schedule", Snippet: "Final exam on Friday.", Score: 0.87},
			{ID: uuid.NewString(), Title: "Study plan", Snippet: "Revise chapters 3-5.", Score: 0.74},
		},
	})

	conn.WriteJSON(protocol.EndFrame{
		Type: protocol.TypeEnd,
		Stats: map[string]interface{}{
			"total_tokens": len(sess.lastTokens),
			"duration_ms":  int64(len(sess.lastTokens)) * s.opts.TokenDelay.Milliseconds(),
		},
		ModelSize:  modelSize,
		ModelName:  modelName,
		ResponseID: responseID,
	})
}

func (s *Server) streamComparison(conn *websocket.Conn, sess *chatSession, cmd protocol.CompareCommand) {
	conn.WriteJSON(protocol.CompareStartFrame{
		Type: protocol.TypeCompareStart,
		Routing: protocol.RoutingPayload{
			ModelSize:      "large",
			ModelName:      "assistant-large-v1",
			Confidence:     1,
			DecisionSource: "comparison",
			ResponseID:     cmd.ResponseID,
			AttemptNumber:  2,
		},
	})

	for _, word := range strings.Fields("A more detailed answer from the larger model.") {
		s.pause()
		conn.WriteJSON(protocol.TokenFrame{Type: protocol.TypeToken, Content: word + " "})
	}

	conn.WriteJSON(protocol.EndFrame{
		Type:       protocol.TypeEnd,
		Stats:      map[string]interface{}{"comparison": true},
		ModelSize:  "large",
		ModelName:  "assistant-large-v1",
		ResponseID: cmd.ResponseID,
	})
}

func (s *Server) resumeTokens(conn *websocket.Conn, sess *chatSession, cmd protocol.ResumeCommand) {
	// Best-effort: an unknown stream id or an index past the end simply
	// produces no further tokens, mirroring the real backend.
	if cmd.StreamID != sess.lastResponse || cmd.FromIndex >= len(sess.lastTokens) {
		return
	}
	for _, token := range sess.lastTokens[cmd.FromIndex:] {
		s.pause()
		conn.WriteJSON(protocol.TokenFrame{Type: protocol.TypeToken, Content: token})
	}
	conn.WriteJSON(protocol.EndFrame{
		Type:       protocol.TypeEnd,
		ModelSize:  "small",
		ModelName:  "assistant-small-v2",
		ResponseID: sess.lastResponse,
	})
}

func (s *Server) handleNotifications(conn *websocket.Conn) {
	connID := conn.Params("connection_id")
	s.logger.Info(logModule, "Notification channel opened", map[string]interface{}{"connection_id": connID})

	conn.WriteJSON(protocol.NotificationFrame{
		Type: protocol.TypeNotification,
		Data: protocol.Notification{
			ID:        uuid.NewString(),
			Title:     "Welcome back",
			Message:   "Your notes are up to date.",
			CreatedAt: time.Now(),
		},
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var env struct {
			Type string `json:"type"`
		}
		if json.Unmarshal(data, &env) == nil && env.Type == protocol.CommandPing {
			conn.WriteJSON(protocol.PongFrame{Type: protocol.TypePong})
		}
	}
}

func (s *Server) pause() {
	if s.opts.TokenDelay > 0 {
		time.Sleep(s.opts.TokenDelay)
	}
}

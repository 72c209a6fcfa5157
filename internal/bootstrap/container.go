package bootstrap

import (
	"ai-notetaking-stream/internal/config"
	"ai-notetaking-stream/internal/pkg/logger"
	"ai-notetaking-stream/pkg/chat"
	"ai-notetaking-stream/pkg/fetch"
	"ai-notetaking-stream/pkg/notify"
	"ai-notetaking-stream/pkg/socket"

	"github.com/google/uuid"
)

type Container struct {
	Config *config.Config
	Logger logger.ILogger

	// Streaming
	ChatClient  *chat.Client
	SnapshotBus *chat.SnapshotBus

	// Notification channel (second instantiation of the same transport)
	Notifications *notify.Consumer

	// Cached REST fetcher for the non-streaming data surface
	Fetcher *fetch.Client
}

func NewContainer(cfg *config.Config, onNotification notify.Handler) *Container {
	// 1. Core Facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	// 2. Chat channel
	// The connection id in the path lets the server attribute frames to this
	// client without a handshake field.
	socketLogger := logger.NewIsolatedLogger(cfg.App.SocketLog)
	chatManager := socket.NewManager(socket.Config{
		URL:               cfg.App.ServerURL + cfg.Stream.ChatPath + "/" + uuid.NewString(),
		AuthToken:         cfg.App.AuthToken,
		HeartbeatInterval: cfg.Stream.HeartbeatInterval,
		ReconnectBase:     cfg.Stream.ReconnectBase,
		MaxReconnects:     cfg.Stream.MaxReconnects,
		HistoryLimit:      cfg.Stream.HistoryLimit,
	}, socketLogger)

	bus := chat.NewSnapshotBus()
	chatClient := chat.NewClient(chatManager, bus, sysLogger)

	// 3. Notification channel
	notifyLogger := logger.NewIsolatedLogger(cfg.App.NotifyLog)
	notifyManager := socket.NewManager(socket.Config{
		URL:               cfg.App.ServerURL + cfg.Stream.NotificationPath + "/" + uuid.NewString(),
		AuthToken:         cfg.App.AuthToken,
		HeartbeatInterval: cfg.Stream.HeartbeatInterval,
		ReconnectBase:     cfg.Stream.ReconnectBase,
		MaxReconnects:     cfg.Stream.MaxReconnects,
		HistoryLimit:      cfg.Stream.HistoryLimit,
	}, notifyLogger)
	notifications := notify.NewConsumer(notifyManager, notifyLogger, onNotification)

	// 4. REST fetcher with its own TTL cache instance
	fetcher := fetch.NewClient(cfg.Fetch.BaseURL, cfg.App.AuthToken, cfg.Fetch.CacheTTL, sysLogger)

	return &Container{
		Config:        cfg,
		Logger:        sysLogger,
		ChatClient:    chatClient,
		SnapshotBus:   bus,
		Notifications: notifications,
		Fetcher:       fetcher,
	}
}

package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App    AppConfig
	Stream StreamConfig
	Fetch  FetchConfig
}

type AppConfig struct {
	Environment string
	LogFilePath string
	SocketLog   string
	NotifyLog   string
	ServerURL   string // ws:// base of the assistant backend
	MockPort    string // port for the in-repo mock server (simulation / integration)
	AuthToken   string
}

type StreamConfig struct {
	ChatPath          string
	NotificationPath  string
	HeartbeatInterval time.Duration
	ReconnectBase     time.Duration
	MaxReconnects     int
	HistoryLimit      int
}

type FetchConfig struct {
	BaseURL  string
	CacheTTL time.Duration
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, using system environment")
	}

	return &Config{
		App: AppConfig{
			Environment: getEnv("GO_ENV", "development"),
			LogFilePath: getEnv("LOG_FILE_PATH", "logs/stream.log"),
			SocketLog:   getEnv("SOCKET_LOG_PATH", "logs/socket.log"),
			NotifyLog:   getEnv("NOTIFY_LOG_PATH", "logs/notification.log"),
			ServerURL:   getEnv("ASSISTANT_WS_URL", "ws://localhost:3000"),
			MockPort:    getEnv("MOCK_SERVER_PORT", "3000"),
			AuthToken:   getEnv("ASSISTANT_TOKEN", ""),
		},
		Stream: StreamConfig{
			ChatPath:          getEnv("CHAT_WS_PATH", "/ws/chat"),
			NotificationPath:  getEnv("NOTIFICATION_WS_PATH", "/ws/notifications"),
			HeartbeatInterval: getEnvAsDuration("HEARTBEAT_INTERVAL_MS", 30000),
			ReconnectBase:     getEnvAsDuration("RECONNECT_BASE_DELAY_MS", 1000),
			MaxReconnects:     getEnvAsInt("MAX_RECONNECT_ATTEMPTS", 5),
			HistoryLimit:      getEnvAsInt("MESSAGE_HISTORY_LIMIT", 100),
		},
		Fetch: FetchConfig{
			BaseURL:  getEnv("ASSISTANT_API_URL", "http://localhost:3000/api"),
			CacheTTL: getEnvAsDuration("FETCH_CACHE_TTL_MS", 30000),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallbackMs int) time.Duration {
	return time.Duration(getEnvAsInt(key, fallbackMs)) * time.Millisecond
}

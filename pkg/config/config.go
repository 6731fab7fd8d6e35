package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"pushboard-backend/pkg/vapid"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	DatabaseURL string

	// Web Push
	Vapid        vapid.Identity
	PushTTL      time.Duration
	PushUrgency  string
	PushTopic    string
	PushTimeout  time.Duration
	AllowOrigins string

	// Realtime board
	BoardChannel      string
	BoardEvent        string
	GoogleProjectID   string
	GoogleCredentials string
}

func Load() *Config {
	// Load .env file if it exists
	_ = godotenv.Load()

	return &Config{
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: getEnv("DATABASE_URL", ""),
		Vapid: vapid.NewIdentity(
			getEnv("WEB_PUSH_EMAIL", ""),
			getEnv("WEB_PUSH_PUBLIC_KEY", getEnv("NEXT_PUBLIC_WEB_PUSH_PUBLIC_KEY", "")),
			getEnv("WEB_PUSH_PRIVATE_KEY", ""),
		),
		PushTTL:           getDuration("WEB_PUSH_TTL", 24*time.Hour),
		PushUrgency:       getEnv("WEB_PUSH_URGENCY", "normal"),
		PushTopic:         getEnv("WEB_PUSH_TOPIC", ""),
		PushTimeout:       getDuration("WEB_PUSH_TIMEOUT", 30*time.Second),
		AllowOrigins:      getEnv("ALLOW_ORIGINS", ""),
		BoardChannel:      getEnv("BOARD_CHANNEL", "chat-channel"),
		BoardEvent:        getEnv("BOARD_EVENT", "new-message"),
		GoogleProjectID:   getEnv("GOOGLE_PROJECT_ID", ""),
		GoogleCredentials: getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),
	}
}

// Origins splits ALLOW_ORIGINS on commas. Empty means any origin.
func (c *Config) Origins() []string {
	var origins []string
	for _, origin := range strings.Split(c.AllowOrigins, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getDuration accepts Go durations ("90s") or plain seconds ("90").
func getDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if parsed, err := time.ParseDuration(value); err == nil {
		return parsed
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

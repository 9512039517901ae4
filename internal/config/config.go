package config

import (
	"os"
	"strconv"
	"time"
)

const defaultSystemPrompt = "You are an AI named 'Astra GPT'. Your author is InfernalAtom683. " +
	"You speak English, Chinese, Korean and Arabic."

type Config struct {
	HTTPAddr    string
	PostgresDSN string

	AdminAPIKey string

	CompletionBaseURL string
	CompletionAPIKey  string
	SystemPrompt      string

	PolicyPath string

	RateLimitRequests      int
	RateLimitChatRequests  int
	RateLimitWindowSeconds int
	RateLimitFailClosed    bool
	RateLimitMaxKeys       int

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	AuditMaxEvents int
}

func FromEnv() Config {
	return Config{
		HTTPAddr:               envDefault("HTTP_ADDR", ":8080"),
		PostgresDSN:            os.Getenv("POSTGRES_DSN"),
		AdminAPIKey:            os.Getenv("ADMIN_API_KEY"),
		CompletionBaseURL:      envDefault("COMPLETION_BASE_URL", "https://free.v36.cm/v1"),
		CompletionAPIKey:       os.Getenv("COMPLETION_API_KEY"),
		SystemPrompt:           envDefault("SYSTEM_PROMPT", defaultSystemPrompt),
		PolicyPath:             os.Getenv("ASTRA_POLICY_PATH"),
		RateLimitRequests:      envIntDefault("RATE_LIMIT_REQUESTS", 0),
		RateLimitChatRequests:  envIntDefault("RATE_LIMIT_CHAT_REQUESTS", envIntDefault("RATE_LIMIT_REQUESTS", 0)),
		RateLimitWindowSeconds: envIntDefault("RATE_LIMIT_WINDOW_SECONDS", 60),
		RateLimitFailClosed:    envBoolDefault("RATE_LIMIT_FAIL_CLOSED", false),
		RateLimitMaxKeys:       envIntDefault("RATE_LIMIT_MAX_KEYS", 10000),
		RedisAddr:              os.Getenv("REDIS_ADDR"),
		RedisPassword:          os.Getenv("REDIS_PASSWORD"),
		RedisDB:                envIntDefault("REDIS_DB", 0),
		AuditMaxEvents:         envIntDefault("AUDIT_MAX_EVENTS", 10000),
	}
}

func (c Config) RateLimitWindow() time.Duration {
	if c.RateLimitWindowSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(c.RateLimitWindowSeconds) * time.Second
}

func envDefault(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func envIntDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parsed, err := strconv.Atoi(v)
	if err != nil || parsed < 0 {
		return def
	}
	return parsed
}

func envBoolDefault(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	switch v {
	case "1", "true", "TRUE", "True", "yes", "YES", "Yes":
		return true
	case "0", "false", "FALSE", "False", "no", "NO", "No":
		return false
	default:
		return def
	}
}

package model

import "time"

// ================ Config ================
type ServerConfig struct {
	Port           string        `envconfig:"SERVER_PORT" default:"8000"`
	ReadTimeout    time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"30s"`
	WriteTimeout   time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"60s"`
	IdleTimeout    time.Duration `envconfig:"SERVER_IDLE_TIMEOUT" default:"120s"`
	AllowedOrigins []string      `envconfig:"SERVER_ALLOWED_ORIGINS" default:"*"`
}

type CoachModelConfig struct {
	Model       string        `envconfig:"COACH_MODEL" default:"gemini-2.5-flash"`
	MaxTokens   int           `envconfig:"COACH_MAX_TOKENS" default:"2048"`
	Temperature float32       `envconfig:"COACH_TEMPERATURE" default:"0.2"`
	TopP        float32       `envconfig:"COACH_TOP_P" default:"0.9"`
	TopK        int32         `envconfig:"COACH_TOP_K" default:"40"`
	Timeout     time.Duration `envconfig:"COACH_TIMEOUT" default:"0"`
}

type SessionConfig struct {
	Store         string        `envconfig:"SESSION_STORE" default:"memory"`
	IdleTTL       time.Duration `envconfig:"SESSION_IDLE_TTL" default:"0"`
	SweepInterval time.Duration `envconfig:"SESSION_SWEEP_INTERVAL" default:"1m"`
}

const (
	SessionStoreMemory = "memory"
	SessionStoreRedis  = "redis"
)

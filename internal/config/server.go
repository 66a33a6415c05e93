package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	StoreRedis  = "redis"
	StoreMemory = "memory"

	PersistSync  = "sync"
	PersistAsync = "async"
)

type ServerConfig struct {
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8080"`

	StoreBackend   string        `env:"STORE_BACKEND" envDefault:"redis"`
	RedisURL       string        `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`
	RedisKeyPrefix string        `env:"REDIS_KEY_PREFIX" envDefault:"belote:"`
	RoomTTL        time.Duration `env:"ROOM_TTL" envDefault:"24h"`
	PersistMode    string        `env:"PERSIST_MODE" envDefault:"sync"`
	OpTimeout      time.Duration `env:"OP_TIMEOUT" envDefault:"5s"`

	StartDelay time.Duration `env:"START_DELAY" envDefault:"5s"`
	// DisconnectGrace overrides the table default when positive.
	DisconnectGrace time.Duration `env:"DISCONNECT_GRACE" envDefault:"0s"`

	PostgresDSN string `env:"POSTGRES_DSN"`
	NATSURL     string `env:"NATS_URL"`
	InstanceID  string `env:"INSTANCE_ID"`

	ChatRatePerSec float64 `env:"CHAT_RATE_PER_SEC" envDefault:"5"`
	ChatBurst      int     `env:"CHAT_BURST" envDefault:"10"`
}

func LoadServer() (ServerConfig, error) {
	var cfg ServerConfig
	if err := env.Parse(&cfg); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func (c ServerConfig) Validate() error {
	switch c.StoreBackend {
	case StoreRedis, StoreMemory:
	default:
		return fmt.Errorf("config: STORE_BACKEND must be %q or %q, got %q", StoreRedis, StoreMemory, c.StoreBackend)
	}
	switch c.PersistMode {
	case PersistSync, PersistAsync:
	default:
		return fmt.Errorf("config: PERSIST_MODE must be %q or %q, got %q", PersistSync, PersistAsync, c.PersistMode)
	}
	if c.StoreBackend == StoreRedis && c.RedisURL == "" {
		return fmt.Errorf("config: REDIS_URL is required for the redis store")
	}
	if c.RoomTTL <= 0 {
		return fmt.Errorf("config: ROOM_TTL must be positive")
	}
	if c.StartDelay < 0 || c.DisconnectGrace < 0 {
		return fmt.Errorf("config: START_DELAY and DISCONNECT_GRACE cannot be negative")
	}
	if c.ChatRatePerSec <= 0 || c.ChatBurst <= 0 {
		return fmt.Errorf("config: chat rate limit must be positive")
	}
	return nil
}

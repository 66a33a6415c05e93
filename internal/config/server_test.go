package config

import (
	"testing"
	"time"
)

func TestLoadServerDefaults(t *testing.T) {
	cfg, err := LoadServer()
	if err != nil {
		t.Fatalf("LoadServer() error = %v", err)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Fatalf("HTTPAddr = %q, want :8080", cfg.HTTPAddr)
	}
	if cfg.StoreBackend != StoreRedis || cfg.PersistMode != PersistSync {
		t.Fatalf("unexpected backend/mode: %q/%q", cfg.StoreBackend, cfg.PersistMode)
	}
	if cfg.RoomTTL != 24*time.Hour {
		t.Fatalf("RoomTTL = %v, want 24h", cfg.RoomTTL)
	}
	if cfg.StartDelay != 5*time.Second {
		t.Fatalf("StartDelay = %v, want 5s", cfg.StartDelay)
	}
	if cfg.DisconnectGrace != 0 {
		t.Fatalf("DisconnectGrace = %v, want 0", cfg.DisconnectGrace)
	}
}

func TestLoadServerParseTypes(t *testing.T) {
	t.Setenv("STORE_BACKEND", "memory")
	t.Setenv("PERSIST_MODE", "async")
	t.Setenv("ROOM_TTL", "2h")
	t.Setenv("DISCONNECT_GRACE", "15s")
	t.Setenv("CHAT_RATE_PER_SEC", "2.5")

	cfg, err := LoadServer()
	if err != nil {
		t.Fatalf("LoadServer() error = %v", err)
	}
	if cfg.StoreBackend != StoreMemory || cfg.PersistMode != PersistAsync {
		t.Fatalf("unexpected backend/mode: %q/%q", cfg.StoreBackend, cfg.PersistMode)
	}
	if cfg.RoomTTL != 2*time.Hour || cfg.DisconnectGrace != 15*time.Second {
		t.Fatalf("unexpected durations: %+v", cfg)
	}
	if cfg.ChatRatePerSec != 2.5 {
		t.Fatalf("ChatRatePerSec = %v, want 2.5", cfg.ChatRatePerSec)
	}
}

func TestLoadServerRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{name: "backend", key: "STORE_BACKEND", val: "etcd"},
		{name: "persist mode", key: "PERSIST_MODE", val: "eventually"},
		{name: "ttl", key: "ROOM_TTL", val: "0s"},
		{name: "grace", key: "DISCONNECT_GRACE", val: "-1s"},
		{name: "burst", key: "CHAT_BURST", val: "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			if _, err := LoadServer(); err == nil {
				t.Fatalf("LoadServer() with %s=%q expected error", tt.key, tt.val)
			}
		})
	}
}

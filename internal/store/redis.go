package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"belote-lobby/internal/game"

	"github.com/go-redis/redis/v8"
)

const (
	DefaultKeyPrefix = "belote:"
	DefaultRoomTTL   = 24 * time.Hour
)

// RedisStore keeps each room in three keys: a metadata hash, an ordered
// player list and an append-only chat list. All three share one expiry.
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

func NewRedisStore(client *redis.Client, keyPrefix string, ttl time.Duration) *RedisStore {
	if client == nil {
		panic("redis client cannot be nil for RedisStore")
	}
	if keyPrefix == "" {
		keyPrefix = DefaultKeyPrefix
	}
	if ttl <= 0 {
		ttl = DefaultRoomTTL
	}
	return &RedisStore{client: client, keyPrefix: keyPrefix, ttl: ttl}
}

// OpenRedis parses a redis:// URL and verifies the connection.
func OpenRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis: parse url: %w", err)
	}
	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}
	return client, nil
}

func (s *RedisStore) roomKey(roomID string) string {
	return fmt.Sprintf("%sroom:%s", s.keyPrefix, roomID)
}

func (s *RedisStore) playersKey(roomID string) string {
	return s.roomKey(roomID) + ":players"
}

func (s *RedisStore) chatKey(roomID string) string {
	return s.roomKey(roomID) + ":chat"
}

func (s *RedisStore) Load(ctx context.Context, roomID string) (*game.RoomSession, error) {
	var (
		metaCmd    *redis.StringStringMapCmd
		playersCmd *redis.StringSliceCmd
		chatCmd    *redis.StringSliceCmd
	)
	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		metaCmd = p.HGetAll(ctx, s.roomKey(roomID))
		playersCmd = p.LRange(ctx, s.playersKey(roomID), 0, -1)
		chatCmd = p.LRange(ctx, s.chatKey(roomID), 0, -1)
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("redis: load room %s: %w", roomID, err)
	}
	meta := metaCmd.Val()
	if len(meta) == 0 {
		return nil, ErrNotFound
	}
	room, err := decodeMeta(roomID, meta)
	if err != nil {
		return nil, err
	}
	for _, raw := range playersCmd.Val() {
		var p game.Player
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			return nil, fmt.Errorf("redis: decode player in room %s: %w", roomID, err)
		}
		room.Players = append(room.Players, p)
	}
	for _, raw := range chatCmd.Val() {
		var m game.ChatMessage
		if err := json.Unmarshal([]byte(raw), &m); err != nil {
			return nil, fmt.Errorf("redis: decode chat in room %s: %w", roomID, err)
		}
		room.Chat = append(room.Chat, m)
	}
	return room, nil
}

// Save writes metadata and the player list in full and appends chat
// messages the stored list does not have yet. Every key gets its expiry
// refreshed.
func (s *RedisStore) Save(ctx context.Context, room *game.RoomSession) error {
	meta, err := encodeMeta(room)
	if err != nil {
		return err
	}
	players := make([]interface{}, 0, len(room.Players))
	for _, p := range room.Players {
		b, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("redis: encode player %s: %w", p.ID, err)
		}
		players = append(players, string(b))
	}

	chatKey := s.chatKey(room.ID)
	stored, err := s.client.LLen(ctx, chatKey).Result()
	if err != nil {
		return fmt.Errorf("redis: chat length for room %s: %w", room.ID, err)
	}
	rewrite := stored > int64(len(room.Chat))
	start := int(stored)
	if rewrite {
		start = 0
	}
	chat := make([]interface{}, 0, len(room.Chat)-start)
	for _, m := range room.Chat[start:] {
		b, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("redis: encode chat %s: %w", m.ID, err)
		}
		chat = append(chat, string(b))
	}

	roomKey, playersKey := s.roomKey(room.ID), s.playersKey(room.ID)
	_, err = s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, roomKey, meta)
		p.Del(ctx, playersKey)
		if len(players) > 0 {
			p.RPush(ctx, playersKey, players...)
		}
		if rewrite {
			p.Del(ctx, chatKey)
		}
		if len(chat) > 0 {
			p.RPush(ctx, chatKey, chat...)
		}
		p.Expire(ctx, roomKey, s.ttl)
		p.Expire(ctx, playersKey, s.ttl)
		p.Expire(ctx, chatKey, s.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis: save room %s: %w", room.ID, err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, roomID string) error {
	err := s.client.Del(ctx, s.roomKey(roomID), s.playersKey(roomID), s.chatKey(roomID)).Err()
	if err != nil {
		return fmt.Errorf("redis: delete room %s: %w", roomID, err)
	}
	return nil
}

func (s *RedisStore) RefreshExpiry(ctx context.Context, roomID string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = s.ttl
	}
	_, err := s.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		p.Expire(ctx, s.roomKey(roomID), ttl)
		p.Expire(ctx, s.playersKey(roomID), ttl)
		p.Expire(ctx, s.chatKey(roomID), ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis: refresh expiry for room %s: %w", roomID, err)
	}
	return nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.client.Ping(ctx).Err()
}

func encodeMeta(room *game.RoomSession) (map[string]interface{}, error) {
	cfg, err := json.Marshal(room.Config)
	if err != nil {
		return nil, fmt.Errorf("redis: encode config for room %s: %w", room.ID, err)
	}
	return map[string]interface{}{
		"id":         room.ID,
		"name":       room.Name,
		"created_by": room.CreatedBy,
		"created_at": strconv.FormatInt(room.CreatedAt.UnixMilli(), 10),
		"phase":      string(room.Phase),
		"config":     string(cfg),
	}, nil
}

func decodeMeta(roomID string, meta map[string]string) (*game.RoomSession, error) {
	ms, err := strconv.ParseInt(meta["created_at"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("redis: parse created_at for room %s: %w", roomID, err)
	}
	cfg := game.DefaultTableConfig()
	if raw := meta["config"]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
			return nil, fmt.Errorf("redis: decode config for room %s: %w", roomID, err)
		}
	}
	phase := game.Phase(meta["phase"])
	if !phase.Valid() {
		return nil, fmt.Errorf("redis: room %s has unknown phase %q", roomID, meta["phase"])
	}
	room := game.NewRoomSession(roomID, meta["name"], meta["created_by"], cfg, time.UnixMilli(ms).UTC())
	room.Phase = phase
	return room, nil
}

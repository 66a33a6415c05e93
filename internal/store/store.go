package store

import (
	"context"
	"errors"
	"time"

	"belote-lobby/internal/game"
)

var ErrNotFound = errors.New("not found")

// RoomRepository is the durable mirror of room sessions. Load returns
// ErrNotFound when nothing is stored under the id. Save refreshes the
// expiry with the store's default TTL; RefreshExpiry sets it explicitly.
type RoomRepository interface {
	Load(ctx context.Context, roomID string) (*game.RoomSession, error)
	Save(ctx context.Context, room *game.RoomSession) error
	Delete(ctx context.Context, roomID string) error
	RefreshExpiry(ctx context.Context, roomID string, ttl time.Duration) error
	Ping(ctx context.Context) error
}

package store

import (
	"context"
	"sync"
	"time"

	"belote-lobby/internal/game"
)

// MemoryStore is a process-local RoomRepository for tests and single-node
// runs without Redis. Stored rooms are deep copies.
type MemoryStore struct {
	mu      sync.Mutex
	rooms   map[string]*game.RoomSession
	expires map[string]time.Time
	ttl     time.Duration
	now     func() time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultRoomTTL
	}
	return &MemoryStore{
		rooms:   map[string]*game.RoomSession{},
		expires: map[string]time.Time{},
		ttl:     ttl,
		now:     time.Now,
	}
}

func (s *MemoryStore) Load(_ context.Context, roomID string) (*game.RoomSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[roomID]
	if !ok {
		return nil, ErrNotFound
	}
	if s.now().After(s.expires[roomID]) {
		delete(s.rooms, roomID)
		delete(s.expires, roomID)
		return nil, ErrNotFound
	}
	return room.Clone(), nil
}

func (s *MemoryStore) Save(_ context.Context, room *game.RoomSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms[room.ID] = room.Clone()
	s.expires[room.ID] = s.now().Add(s.ttl)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, roomID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rooms, roomID)
	delete(s.expires, roomID)
	return nil
}

func (s *MemoryStore) RefreshExpiry(_ context.Context, roomID string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = s.ttl
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[roomID]; ok {
		s.expires[roomID] = s.now().Add(ttl)
	}
	return nil
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

// Len reports how many rooms are stored, expired or not.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rooms)
}

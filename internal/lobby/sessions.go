package lobby

import (
	"sync"
	"sync/atomic"

	"belote-lobby/internal/game"
)

// roomHandle is the per-room serialization domain. Every read or write of
// room goes through mu, including timer actions.
type roomHandle struct {
	mu      sync.Mutex
	room    *game.RoomSession
	deleted bool
	loadErr error

	// async persistence: saves run outside mu, latest version wins.
	saveMu  sync.Mutex
	version atomic.Uint64
	gone    atomic.Bool
}

// SessionStore maps room ids to live room handles. Lookups, inserts and
// removals for different rooms never wait on a room's own lock.
type SessionStore struct {
	mu    sync.RWMutex
	rooms map[string]*roomHandle
}

func NewSessionStore() *SessionStore {
	return &SessionStore{rooms: map[string]*roomHandle{}}
}

func (s *SessionStore) lookup(roomID string) *roomHandle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rooms[roomID]
}

// getOrReserve returns the live handle for roomID. When none exists it
// inserts a placeholder that is already locked by the caller, who must fill
// it or abandon it.
func (s *SessionStore) getOrReserve(roomID string) (*roomHandle, bool) {
	if h := s.lookup(roomID); h != nil {
		return h, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if h := s.rooms[roomID]; h != nil {
		return h, false
	}
	h := &roomHandle{}
	h.mu.Lock()
	s.rooms[roomID] = h
	return h, true
}

// remove drops roomID only while it still maps to h.
func (s *SessionStore) remove(roomID string, h *roomHandle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rooms[roomID] == h {
		delete(s.rooms, roomID)
	}
}

func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rooms)
}

func (s *SessionStore) Has(roomID string) bool {
	return s.lookup(roomID) != nil
}

package lobby

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"belote-lobby/internal/fanout"
	"belote-lobby/internal/game"
	"belote-lobby/internal/store"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testStart = time.Date(2024, 5, 1, 20, 0, 0, 0, time.UTC)

// recordingPub records every published event and still fans out through a
// real hub so subscribers see deliveries.
type recordingPub struct {
	*fanout.Hub
	mu     sync.Mutex
	events []fanout.Event
}

func newRecordingPub() *recordingPub {
	return &recordingPub{Hub: fanout.NewHub()}
}

func (p *recordingPub) Publish(roomID string, ev fanout.Event) {
	p.mu.Lock()
	p.events = append(p.events, ev)
	p.mu.Unlock()
	p.Hub.Publish(roomID, ev)
}

func (p *recordingPub) types(roomID string) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := []string{}
	for _, ev := range p.events {
		if ev.RoomID == roomID {
			out = append(out, ev.Type)
		}
	}
	return out
}

func (p *recordingPub) count(roomID, typ string) int {
	n := 0
	for _, t := range p.types(roomID) {
		if t == typ {
			n++
		}
	}
	return n
}

func (p *recordingPub) last(roomID, typ string) (fanout.Event, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := len(p.events) - 1; i >= 0; i-- {
		if p.events[i].RoomID == roomID && p.events[i].Type == typ {
			return p.events[i], true
		}
	}
	return fanout.Event{}, false
}

type inbox struct {
	mu     sync.Mutex
	events []fanout.Event
}

func (s *inbox) Deliver(ev fanout.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

func (s *inbox) types() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.events))
	for _, ev := range s.events {
		out = append(out, ev.Type)
	}
	return out
}

type recordingActions struct {
	mu      sync.Mutex
	actions []game.Action
}

func (r *recordingActions) Record(_ context.Context, a game.Action) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions = append(r.actions, a)
	return nil
}

func (r *recordingActions) types() []game.ActionType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]game.ActionType, 0, len(r.actions))
	for _, a := range r.actions {
		out = append(out, a.Type)
	}
	return out
}

// flakyRepo is a memory repository whose saves can be switched to fail.
type flakyRepo struct {
	*store.MemoryStore
	failSaves atomic.Bool
}

func (f *flakyRepo) Save(ctx context.Context, room *game.RoomSession) error {
	if f.failSaves.Load() {
		return errors.New("dial tcp 127.0.0.1:6379: connect: connection refused")
	}
	return f.MemoryStore.Save(ctx, room)
}

type mockRepo struct {
	mock.Mock
}

func (m *mockRepo) Load(ctx context.Context, roomID string) (*game.RoomSession, error) {
	args := m.Called(ctx, roomID)
	room, _ := args.Get(0).(*game.RoomSession)
	return room, args.Error(1)
}

func (m *mockRepo) Save(ctx context.Context, room *game.RoomSession) error {
	return m.Called(ctx, room).Error(0)
}

func (m *mockRepo) Delete(ctx context.Context, roomID string) error {
	return m.Called(ctx, roomID).Error(0)
}

func (m *mockRepo) RefreshExpiry(ctx context.Context, roomID string, ttl time.Duration) error {
	return m.Called(ctx, roomID, ttl).Error(0)
}

func (m *mockRepo) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type harness struct {
	c       *Coordinator
	repo    *flakyRepo
	pub     *recordingPub
	clock   *clockwork.FakeClock
	actions *recordingActions
}

func newHarness(t *testing.T, mutate func(*Options)) *harness {
	t.Helper()
	h := &harness{
		repo:    &flakyRepo{MemoryStore: store.NewMemoryStore(24 * time.Hour)},
		pub:     newRecordingPub(),
		clock:   clockwork.NewFakeClockAt(testStart),
		actions: &recordingActions{},
	}
	opts := Options{
		Clock:       h.clock,
		Actions:     h.actions,
		StartDelay:  5 * time.Second,
		TableConfig: game.DefaultTableConfig(),
	}
	if mutate != nil {
		mutate(&opts)
	}
	h.c = NewCoordinator(NewSessionStore(), h.repo, h.pub, opts)
	return h
}

// advance moves the fake clock and waits for every timer action that came
// due, on h.c and any extra coordinators sharing the clock.
func (h *harness) advance(d time.Duration, others ...*Coordinator) {
	h.clock.Advance(d)
	for _, c := range append([]*Coordinator{h.c}, others...) {
		c.grace.WaitDue()
		c.phase.WaitDue()
	}
}

func (h *harness) createRoom(t *testing.T, roomID string, players ...string) {
	t.Helper()
	ctx := context.Background()
	_, err := h.c.Create(ctx, roomID, "Table "+roomID, "host")
	require.NoError(t, err)
	for _, p := range players {
		_, _, err := h.c.Join(ctx, roomID, p, nil)
		require.NoError(t, err)
	}
}

func (h *harness) persisted(t *testing.T, roomID string) *game.RoomSession {
	t.Helper()
	room, err := h.repo.Load(context.Background(), roomID)
	require.NoError(t, err)
	return room
}

func playerIDs(players []game.Player) []string {
	out := make([]string, 0, len(players))
	for _, p := range players {
		out = append(out, p.ID)
	}
	return out
}

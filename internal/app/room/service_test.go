package room

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"belote-lobby/internal/game"
	"belote-lobby/internal/lobby"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockCoordinator struct {
	mock.Mock
}

func (m *mockCoordinator) Create(ctx context.Context, roomID, name, createdBy string) (*game.RoomSession, error) {
	args := m.Called(ctx, roomID, name, createdBy)
	room, _ := args.Get(0).(*game.RoomSession)
	return room, args.Error(1)
}

func (m *mockCoordinator) Snapshot(ctx context.Context, roomID string) (*game.RoomSession, error) {
	args := m.Called(ctx, roomID)
	room, _ := args.Get(0).(*game.RoomSession)
	return room, args.Error(1)
}

var created = time.Date(2024, 5, 1, 20, 0, 0, 0, time.UTC)

func newTestService(coord Coordinator, ids ...string) *Service {
	svc := NewService(coord)
	n := 0
	svc.newID = func() string {
		id := ids[n%len(ids)]
		n++
		return id
	}
	return svc
}

func TestCreateValidation(t *testing.T) {
	tests := []struct {
		name string
		req  CreateRequest
	}{
		{name: "empty name", req: CreateRequest{Name: "  ", CreatedBy: "host"}},
		{name: "empty creator", req: CreateRequest{Name: "Friday", CreatedBy: ""}},
		{name: "long name", req: CreateRequest{Name: strings.Repeat("x", maxNameLen+1), CreatedBy: "host"}},
		{name: "long creator", req: CreateRequest{Name: "Friday", CreatedBy: strings.Repeat("y", maxCreatorLen+1)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			coord := &mockCoordinator{}
			_, err := newTestService(coord, "abc").Create(context.Background(), tt.req)
			if !errors.Is(err, ErrInvalidRequest) {
				t.Fatalf("err = %v, want %v", err, ErrInvalidRequest)
			}
			coord.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestCreateRetriesOnCollision(t *testing.T) {
	coord := &mockCoordinator{}
	room := game.NewRoomSession("id2", "Friday", "host", game.DefaultTableConfig(), created)
	coord.On("Create", mock.Anything, "id1", "Friday", "host").Return(nil, lobby.ErrAlreadyExists).Once()
	coord.On("Create", mock.Anything, "id2", "Friday", "host").Return(room, nil).Once()

	resp, err := newTestService(coord, "id1", "id2").Create(context.Background(), CreateRequest{Name: " Friday ", CreatedBy: "host"})
	require.NoError(t, err)
	assert.Equal(t, "id2", resp.ID)
	assert.Equal(t, game.PhaseWaitingForPlayers, resp.Phase)
	assert.Equal(t, int64(60000), resp.Config.DisconnectGraceMS)
	assert.Empty(t, resp.Players)
	coord.AssertExpectations(t)
}

func TestCreateGivesUpAfterRepeatedCollisions(t *testing.T) {
	coord := &mockCoordinator{}
	coord.On("Create", mock.Anything, "dup", "Friday", "host").Return(nil, lobby.ErrAlreadyExists)

	_, err := newTestService(coord, "dup").Create(context.Background(), CreateRequest{Name: "Friday", CreatedBy: "host"})
	assert.ErrorIs(t, err, ErrIDExhausted)
	coord.AssertNumberOfCalls(t, "Create", createAttempts)
}

func TestCreatePropagatesPersistenceFailure(t *testing.T) {
	coord := &mockCoordinator{}
	boom := fmt.Errorf("%w: %w", lobby.ErrPersistenceUnavailable, errors.New("redis down"))
	coord.On("Create", mock.Anything, "id1", "Friday", "host").Return(nil, boom)

	_, err := newTestService(coord, "id1").Create(context.Background(), CreateRequest{Name: "Friday", CreatedBy: "host"})
	assert.ErrorIs(t, err, lobby.ErrPersistenceUnavailable)
}

func TestGetSummarizesRoom(t *testing.T) {
	room := game.NewRoomSession("r1", "Friday", "host", game.DefaultTableConfig(), created)
	for _, id := range []string{"p1", "p2", "p3", "p4"} {
		room.AddPlayer(id)
	}
	for _, id := range []string{"p1", "p3"} {
		room.ToggleReady(id)
	}
	for i := 0; i < recentChatRows+5; i++ {
		room.AppendChat(game.ChatMessage{ID: fmt.Sprintf("m%02d", i), PlayerID: "p1", Message: "hi", Timestamp: created})
	}
	coord := &mockCoordinator{}
	coord.On("Snapshot", mock.Anything, "r1").Return(room, nil)

	resp, err := newTestService(coord, "x").Get(context.Background(), "r1")
	require.NoError(t, err)
	assert.Len(t, resp.Players, 4)
	assert.Equal(t, 2, resp.ReadyCount)
	assert.False(t, resp.CanStart)
	assert.Equal(t, recentChatRows+5, resp.ChatCount)
	require.Len(t, resp.RecentChat, recentChatRows)
	assert.Equal(t, "m05", resp.RecentChat[0].ID)
}

func TestGetUnknownRoom(t *testing.T) {
	coord := &mockCoordinator{}
	coord.On("Snapshot", mock.Anything, "nope").Return(nil, lobby.ErrRoomNotFound)

	_, err := newTestService(coord, "x").Get(context.Background(), "nope")
	assert.ErrorIs(t, err, lobby.ErrRoomNotFound)

	_, err = newTestService(coord, "x").Get(context.Background(), " ")
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

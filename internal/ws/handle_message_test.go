package ws

import (
	"context"
	"encoding/json"
	"testing"

	"belote-lobby/internal/fanout"
	"belote-lobby/internal/game"
	"belote-lobby/internal/lobby"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

type mockCoordinator struct {
	mock.Mock
}

func (m *mockCoordinator) Join(ctx context.Context, roomID, playerID string, sub fanout.Subscriber) (game.Player, lobby.Welcome, error) {
	args := m.Called(ctx, roomID, playerID, sub)
	return args.Get(0).(game.Player), args.Get(1).(lobby.Welcome), args.Error(2)
}

func (m *mockCoordinator) Disconnect(ctx context.Context, roomID, playerID string) error {
	return m.Called(ctx, roomID, playerID).Error(0)
}

func (m *mockCoordinator) Leave(ctx context.Context, roomID, playerID string) error {
	return m.Called(ctx, roomID, playerID).Error(0)
}

func (m *mockCoordinator) ToggleReady(ctx context.Context, roomID, playerID string) (bool, error) {
	args := m.Called(ctx, roomID, playerID)
	return args.Bool(0), args.Error(1)
}

func (m *mockCoordinator) StartGame(ctx context.Context, roomID, playerID string) error {
	return m.Called(ctx, roomID, playerID).Error(0)
}

func (m *mockCoordinator) SendChat(ctx context.Context, roomID, playerID, text string) (game.ChatMessage, error) {
	args := m.Called(ctx, roomID, playerID, text)
	return args.Get(0).(game.ChatMessage), args.Error(1)
}

func (m *mockCoordinator) Unsubscribe(roomID string, sub fanout.Subscriber) {
	m.Called(roomID, sub)
}

func testConn(limit rate.Limit, burst int) *conn {
	return newConn(ConnContext{ConnID: "c1", RoomID: "r1", PlayerID: "p1"}, nil, rate.NewLimiter(limit, burst))
}

type wireEvent struct {
	Type string             `json:"type"`
	Data lobby.ErrorPayload `json:"data"`
}

func drain(t *testing.T, c *conn) []wireEvent {
	t.Helper()
	var out []wireEvent
	for {
		select {
		case raw := <-c.send:
			var ev wireEvent
			require.NoError(t, json.Unmarshal(raw, &ev))
			out = append(out, ev)
		default:
			return out
		}
	}
}

func TestHandleMessageRoutesCommands(t *testing.T) {
	coord := &mockCoordinator{}
	coord.On("SendChat", mock.Anything, "r1", "p1", "bonjour").Return(game.ChatMessage{ID: "m1"}, nil).Once()
	coord.On("ToggleReady", mock.Anything, "r1", "p1").Return(true, nil).Once()
	coord.On("StartGame", mock.Anything, "r1", "p1").Return(nil).Once()
	srv := NewServer(coord, Options{})
	c := testConn(rate.Inf, 1)

	srv.handleMessage(context.Background(), c, []byte(`{"type":"chat","text":"  bonjour "}`))
	srv.handleMessage(context.Background(), c, []byte(`{"type":"toggle_player_ready"}`))
	srv.handleMessage(context.Background(), c, []byte(`{"type":"start_game"}`))

	coord.AssertExpectations(t)
	assert.Empty(t, drain(t, c))
}

func TestHandleMessageLeaveClosesConnection(t *testing.T) {
	coord := &mockCoordinator{}
	coord.On("Leave", mock.Anything, "r1", "p1").Return(nil).Once()
	srv := NewServer(coord, Options{})
	c := testConn(rate.Inf, 1)

	srv.handleMessage(context.Background(), c, []byte(`{"type":"leave_room"}`))

	coord.AssertExpectations(t)
	select {
	case <-c.done:
	default:
		t.Fatal("leaving must close the socket")
	}
}

func TestHandleMessageFailedLeaveKeepsConnection(t *testing.T) {
	coord := &mockCoordinator{}
	coord.On("Leave", mock.Anything, "r1", "p1").Return(lobby.ErrPlayerNotFound).Once()
	srv := NewServer(coord, Options{})
	c := testConn(rate.Inf, 1)

	srv.handleMessage(context.Background(), c, []byte(`{"type":"leave_room"}`))

	got := drain(t, c)
	require.Len(t, got, 1)
	assert.Equal(t, "player_not_found", got[0].Data.Code)
	select {
	case <-c.done:
		t.Fatal("a rejected leave must not close the socket")
	default:
	}
}

func TestHandleMessageIgnoresBlankChat(t *testing.T) {
	coord := &mockCoordinator{}
	srv := NewServer(coord, Options{})
	c := testConn(rate.Inf, 1)

	srv.handleMessage(context.Background(), c, []byte(`{"type":"chat","text":" \t\n "}`))
	srv.handleMessage(context.Background(), c, []byte(`{"type":"chat"}`))

	coord.AssertNotCalled(t, "SendChat", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	assert.Empty(t, drain(t, c))
}

func TestHandleMessageDomainErrorGoesToSenderOnly(t *testing.T) {
	coord := &mockCoordinator{}
	coord.On("StartGame", mock.Anything, "r1", "p1").Return(&lobby.NotEnoughReadyPlayersError{Count: 2})
	srv := NewServer(coord, Options{})
	c := testConn(rate.Inf, 1)

	srv.handleMessage(context.Background(), c, []byte(`{"type":"start_game"}`))

	got := drain(t, c)
	require.Len(t, got, 1)
	assert.Equal(t, lobby.EventError, got[0].Type)
	assert.Equal(t, "not_enough_ready_players", got[0].Data.Code)
	assert.Equal(t, "2 of 4 players are ready", got[0].Data.Message)
	select {
	case <-c.done:
		t.Fatal("a domain error must not close the connection")
	default:
	}
}

func TestHandleMessageRejectsMalformedInput(t *testing.T) {
	coord := &mockCoordinator{}
	srv := NewServer(coord, Options{})
	c := testConn(rate.Inf, 1)

	srv.handleMessage(context.Background(), c, []byte(`not json`))
	srv.handleMessage(context.Background(), c, []byte(`{"type":"fold"}`))

	got := drain(t, c)
	require.Len(t, got, 2)
	assert.Equal(t, "invalid_message", got[0].Data.Code)
	assert.Equal(t, "unknown_message_type", got[1].Data.Code)
}

func TestHandleMessageRateLimited(t *testing.T) {
	coord := &mockCoordinator{}
	coord.On("ToggleReady", mock.Anything, "r1", "p1").Return(true, nil).Once()
	srv := NewServer(coord, Options{})
	c := testConn(rate.Limit(0.001), 1)

	srv.handleMessage(context.Background(), c, []byte(`{"type":"toggle_player_ready"}`))
	srv.handleMessage(context.Background(), c, []byte(`{"type":"toggle_player_ready"}`))

	coord.AssertExpectations(t)
	got := drain(t, c)
	require.Len(t, got, 1)
	assert.Equal(t, "rate_limited", got[0].Data.Code)
}

func TestDeliverClosesSlowConsumer(t *testing.T) {
	c := testConn(rate.Inf, 1)
	for i := 0; i < sendBuffer; i++ {
		c.Deliver(fanout.Event{Type: "chat", RoomID: "r1"})
	}
	c.Deliver(fanout.Event{Type: "chat", RoomID: "r1"})

	select {
	case <-c.done:
	default:
		t.Fatal("expected overflowing connection to be closed")
	}
	c.Deliver(fanout.Event{Type: "chat", RoomID: "r1"})
	assert.Len(t, c.send, sendBuffer)
}

func TestPlayerIDFromTokenIsStable(t *testing.T) {
	a := PlayerIDFromToken("token-a")
	assert.Equal(t, a, PlayerIDFromToken("token-a"))
	assert.NotEqual(t, a, PlayerIDFromToken("token-b"))
	assert.Len(t, a, 16)
}

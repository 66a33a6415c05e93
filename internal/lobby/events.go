package lobby

import (
	"time"

	"belote-lobby/internal/fanout"
	"belote-lobby/internal/game"
)

const (
	EventWelcome            = "welcome"
	EventPlayerJoined       = "player_joined"
	EventPlayerReconnected  = "player_reconnected"
	EventPlayerLeft         = "player_left"
	EventPlayerDisconnected = "player_disconnected"
	EventPlayerReadyChanged = "player_ready_changed"
	EventPhaseChanged       = "phase_changed"
	EventChat               = "chat"
	EventError              = "error"
)

// Welcome is the full snapshot a connection receives when it joins. It is
// the only reconciliation a client gets after missing events.
type Welcome struct {
	PlayerID string             `json:"player_id"`
	RoomID   string             `json:"room_id"`
	RoomName string             `json:"room_name"`
	Phase    game.Phase         `json:"phase"`
	Players  []game.Player      `json:"players"`
	Chat     []game.ChatMessage `json:"chat"`
}

type PlayersChanged struct {
	PlayerID string        `json:"player_id"`
	Players  []game.Player `json:"players"`
}

type ReadyChanged struct {
	PlayerID string        `json:"player_id"`
	IsReady  bool          `json:"is_ready"`
	Players  []game.Player `json:"players"`
}

type PhaseChanged struct {
	Phase game.Phase `json:"phase"`
}

type ChatPosted struct {
	Message game.ChatMessage `json:"message"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func newWelcome(room *game.RoomSession, playerID string) Welcome {
	chat := make([]game.ChatMessage, len(room.Chat))
	copy(chat, room.Chat)
	return Welcome{
		PlayerID: playerID,
		RoomID:   room.ID,
		RoomName: room.Name,
		Phase:    room.Phase,
		Players:  game.ClonePlayers(room.Players),
		Chat:     chat,
	}
}

func playersEvent(room *game.RoomSession, typ, playerID string, at time.Time) fanout.Event {
	return fanout.NewEventAt(room.ID, typ, PlayersChanged{
		PlayerID: playerID,
		Players:  game.ClonePlayers(room.Players),
	}, at)
}

// ErrorEvent builds the event sent to the originating connection only.
func ErrorEvent(roomID string, err error) fanout.Event {
	return fanout.NewEvent(roomID, EventError, ErrorPayload{
		Code:    ErrorCode(err),
		Message: ErrorMessage(err),
	})
}

package game

import "time"

type ActionType string

const (
	ActionRoomCreated      ActionType = "ROOM_CREATED"
	ActionRoomDeleted      ActionType = "ROOM_DELETED"
	ActionPlayerJoin       ActionType = "PLAYER_JOIN"
	ActionPlayerReconnect  ActionType = "PLAYER_RECONNECT"
	ActionPlayerDisconnect ActionType = "PLAYER_DISCONNECT"
	ActionPlayerLeave      ActionType = "PLAYER_LEAVE"
	ActionPlayerReady      ActionType = "PLAYER_READY"
	ActionPhaseChange      ActionType = "PHASE_CHANGE"
	ActionChat             ActionType = "CHAT"
)

// Action is one entry of a room's history, kept for replay and debugging.
type Action struct {
	RoomID    string         `json:"room_id"`
	Type      ActionType     `json:"type"`
	PlayerID  string         `json:"player_id,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

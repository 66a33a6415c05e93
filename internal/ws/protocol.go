package ws

// Client to server message types.
const (
	MsgChat        = "chat"
	MsgToggleReady = "toggle_player_ready"
	MsgStartGame   = "start_game"
	MsgLeave       = "leave_room"
)

// EventSession tells a client which token to reconnect with when it
// connected without one.
const EventSession = "session"

type InboundMessage struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type SessionInfo struct {
	Token    string `json:"token"`
	PlayerID string `json:"player_id"`
}

// ConnContext identifies one socket. It is fixed at upgrade time and passed
// by value to every handler.
type ConnContext struct {
	ConnID   string
	RoomID   string
	PlayerID string
}

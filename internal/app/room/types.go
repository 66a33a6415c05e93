package room

import (
	"time"

	"belote-lobby/internal/game"
)

type CreateRequest struct {
	Name      string `json:"name"`
	CreatedBy string `json:"created_by"`
}

type RoomResponse struct {
	ID         string       `json:"id"`
	Name       string       `json:"name"`
	CreatedBy  string       `json:"created_by"`
	CreatedAt  time.Time    `json:"created_at"`
	Phase      game.Phase   `json:"phase"`
	Config     ConfigView   `json:"config"`
	Players    []PlayerItem `json:"players"`
	ReadyCount int          `json:"ready_count"`
	CanStart   bool         `json:"can_start"`
	ChatCount  int          `json:"chat_count"`
	RecentChat []ChatItem   `json:"recent_chat"`
}

type ConfigView struct {
	Variant           game.Variant `json:"variant"`
	TurnTimeoutMS     int64        `json:"turn_timeout_ms"`
	BidTimeoutMS      int64        `json:"bid_timeout_ms"`
	DisconnectGraceMS int64        `json:"disconnect_grace_ms"`
	TargetScore       int          `json:"target_score"`
	IsPrivate         bool         `json:"is_private"`
}

type PlayerItem struct {
	ID             string            `json:"id"`
	Status         game.PlayerStatus `json:"status"`
	IsReadyToStart bool              `json:"is_ready_to_start"`
	DisconnectedAt *time.Time        `json:"disconnected_at,omitempty"`
}

type ChatItem struct {
	ID        string    `json:"id"`
	PlayerID  string    `json:"player_id"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

package game

import "time"

type Phase string

const (
	PhaseWaitingForPlayers Phase = "WAITING_FOR_PLAYERS"
	PhaseReadyToStart      Phase = "READY_TO_START"
	PhaseBidding           Phase = "BIDDING"
	PhasePlaying           Phase = "PLAYING"
	PhaseRoundEnd          Phase = "ROUND_END"
	PhaseGameEnd           Phase = "GAME_END"
	PhasePaused            Phase = "PAUSED"
)

func (p Phase) Valid() bool {
	switch p {
	case PhaseWaitingForPlayers, PhaseReadyToStart, PhaseBidding, PhasePlaying,
		PhaseRoundEnd, PhaseGameEnd, PhasePaused:
		return true
	default:
		return false
	}
}

type PlayerStatus string

const (
	StatusConnected    PlayerStatus = "connected"
	StatusDisconnected PlayerStatus = "disconnected"
)

type Variant string

const (
	VariantClassique Variant = "classique"
	VariantCoinche   Variant = "coinche"
	VariantContree   Variant = "contree"
)

type Position string

const (
	PositionTop    Position = "top"
	PositionRight  Position = "right"
	PositionBottom Position = "bottom"
	PositionLeft   Position = "left"
)

type TableConfig struct {
	Variant         Variant       `json:"variant"`
	TurnTimeout     time.Duration `json:"turn_timeout"`
	BidTimeout      time.Duration `json:"bid_timeout"`
	DisconnectGrace time.Duration `json:"disconnect_grace"`
	TargetScore     int           `json:"target_score"`
	IsPrivate       bool          `json:"is_private"`
}

func DefaultTableConfig() TableConfig {
	return TableConfig{
		Variant:         VariantClassique,
		TurnTimeout:     30 * time.Second,
		BidTimeout:      30 * time.Second,
		DisconnectGrace: 60 * time.Second,
		TargetScore:     1000,
		IsPrivate:       false,
	}
}

type Player struct {
	ID             string       `json:"id"`
	Status         PlayerStatus `json:"status"`
	DisconnectedAt *time.Time   `json:"disconnected_at,omitempty"`
	IsReadyToStart bool         `json:"is_ready_to_start"`
	Position       *Position    `json:"position"`
	Hand           []Card       `json:"hand"`
}

type ChatMessage struct {
	ID        string    `json:"id"`
	PlayerID  string    `json:"player_id"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// RoomSession is the authoritative state of one room. It is not safe for
// concurrent use; callers serialize access per room.
type RoomSession struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	CreatedBy string        `json:"created_by"`
	CreatedAt time.Time     `json:"created_at"`
	Config    TableConfig   `json:"config"`
	Phase     Phase         `json:"phase"`
	Players   []Player      `json:"players"`
	Chat      []ChatMessage `json:"chat"`
}

func NewRoomSession(id, name, createdBy string, cfg TableConfig, now time.Time) *RoomSession {
	return &RoomSession{
		ID:        id,
		Name:      name,
		CreatedBy: createdBy,
		CreatedAt: now,
		Config:    cfg,
		Phase:     PhaseWaitingForPlayers,
		Players:   []Player{},
		Chat:      []ChatMessage{},
	}
}

func (r *RoomSession) IsEmpty() bool {
	return len(r.Players) == 0
}

func (r *RoomSession) PlayerIndex(playerID string) int {
	for i := range r.Players {
		if r.Players[i].ID == playerID {
			return i
		}
	}
	return -1
}

// Player returns a pointer into the player list, or nil.
func (r *RoomSession) Player(playerID string) *Player {
	if i := r.PlayerIndex(playerID); i >= 0 {
		return &r.Players[i]
	}
	return nil
}

// AddPlayer appends a connected player. An existing entry is returned as is.
func (r *RoomSession) AddPlayer(playerID string) *Player {
	if p := r.Player(playerID); p != nil {
		return p
	}
	r.Players = append(r.Players, Player{ID: playerID, Status: StatusConnected})
	return &r.Players[len(r.Players)-1]
}

func (r *RoomSession) RemovePlayer(playerID string) bool {
	i := r.PlayerIndex(playerID)
	if i < 0 {
		return false
	}
	r.Players = append(r.Players[:i], r.Players[i+1:]...)
	return true
}

func (r *RoomSession) MarkDisconnected(playerID string, at time.Time) bool {
	p := r.Player(playerID)
	if p == nil {
		return false
	}
	ts := at
	p.Status = StatusDisconnected
	p.DisconnectedAt = &ts
	return true
}

func (r *RoomSession) MarkConnected(playerID string) bool {
	p := r.Player(playerID)
	if p == nil {
		return false
	}
	p.Status = StatusConnected
	p.DisconnectedAt = nil
	return true
}

func (r *RoomSession) ToggleReady(playerID string) (bool, bool) {
	p := r.Player(playerID)
	if p == nil {
		return false, false
	}
	p.IsReadyToStart = !p.IsReadyToStart
	return p.IsReadyToStart, true
}

func (r *RoomSession) AppendChat(msg ChatMessage) {
	r.Chat = append(r.Chat, msg)
}

// Clone returns a deep copy, safe to mutate or hand to another goroutine.
func (r *RoomSession) Clone() *RoomSession {
	if r == nil {
		return nil
	}
	out := *r
	out.Players = ClonePlayers(r.Players)
	out.Chat = make([]ChatMessage, len(r.Chat))
	copy(out.Chat, r.Chat)
	return &out
}

func ClonePlayers(in []Player) []Player {
	out := make([]Player, len(in))
	for i, p := range in {
		out[i] = p
		if p.DisconnectedAt != nil {
			ts := *p.DisconnectedAt
			out[i].DisconnectedAt = &ts
		}
		if p.Position != nil {
			pos := *p.Position
			out[i].Position = &pos
		}
		if p.Hand != nil {
			out[i].Hand = make([]Card, len(p.Hand))
			copy(out[i].Hand, p.Hand)
		}
	}
	return out
}

package room

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"belote-lobby/internal/game"
	"belote-lobby/internal/lobby"
	"belote-lobby/internal/store"
)

const (
	maxNameLen     = 64
	maxCreatorLen  = 64
	recentChatRows = 20
	createAttempts = 5
)

// Coordinator is the subset of lobby.Coordinator the room service needs.
type Coordinator interface {
	Create(ctx context.Context, roomID, name, createdBy string) (*game.RoomSession, error)
	Snapshot(ctx context.Context, roomID string) (*game.RoomSession, error)
}

type Service struct {
	coord Coordinator
	newID func() string
}

func NewService(coord Coordinator) *Service {
	return &Service{coord: coord, newID: store.NewRoomID}
}

func (s *Service) Create(ctx context.Context, req CreateRequest) (*RoomResponse, error) {
	name := strings.TrimSpace(req.Name)
	createdBy := strings.TrimSpace(req.CreatedBy)
	if name == "" || createdBy == "" {
		return nil, ErrInvalidRequest
	}
	if utf8.RuneCountInString(name) > maxNameLen || utf8.RuneCountInString(createdBy) > maxCreatorLen {
		return nil, ErrInvalidRequest
	}
	for i := 0; i < createAttempts; i++ {
		room, err := s.coord.Create(ctx, s.newID(), name, createdBy)
		if errors.Is(err, lobby.ErrAlreadyExists) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return toResponse(room), nil
	}
	return nil, ErrIDExhausted
}

func (s *Service) Get(ctx context.Context, roomID string) (*RoomResponse, error) {
	roomID = strings.TrimSpace(roomID)
	if roomID == "" {
		return nil, ErrInvalidRequest
	}
	room, err := s.coord.Snapshot(ctx, roomID)
	if err != nil {
		return nil, err
	}
	return toResponse(room), nil
}

func toResponse(room *game.RoomSession) *RoomResponse {
	readyCount, canStart := game.CanStartGame(room.Players)
	out := &RoomResponse{
		ID:        room.ID,
		Name:      room.Name,
		CreatedBy: room.CreatedBy,
		CreatedAt: room.CreatedAt,
		Phase:     room.Phase,
		Config: ConfigView{
			Variant:           room.Config.Variant,
			TurnTimeoutMS:     room.Config.TurnTimeout.Milliseconds(),
			BidTimeoutMS:      room.Config.BidTimeout.Milliseconds(),
			DisconnectGraceMS: room.Config.DisconnectGrace.Milliseconds(),
			TargetScore:       room.Config.TargetScore,
			IsPrivate:         room.Config.IsPrivate,
		},
		Players:    make([]PlayerItem, 0, len(room.Players)),
		ReadyCount: readyCount,
		CanStart:   canStart,
		ChatCount:  len(room.Chat),
		RecentChat: make([]ChatItem, 0, recentChatRows),
	}
	for _, p := range room.Players {
		out.Players = append(out.Players, PlayerItem{
			ID:             p.ID,
			Status:         p.Status,
			IsReadyToStart: p.IsReadyToStart,
			DisconnectedAt: p.DisconnectedAt,
		})
	}
	chat := room.Chat
	if len(chat) > recentChatRows {
		chat = chat[len(chat)-recentChatRows:]
	}
	for _, m := range chat {
		out.RecentChat = append(out.RecentChat, ChatItem{
			ID:        m.ID,
			PlayerID:  m.PlayerID,
			Message:   m.Message,
			Timestamp: m.Timestamp,
		})
	}
	return out
}

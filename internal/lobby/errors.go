package lobby

import (
	"errors"
	"fmt"

	"belote-lobby/internal/game"
)

var (
	ErrRoomNotFound           = errors.New("room_not_found")
	ErrPlayerNotFound         = errors.New("player_not_found")
	ErrAlreadyExists          = errors.New("room_already_exists")
	ErrNotEnoughReadyPlayers  = errors.New("not_enough_ready_players")
	ErrPersistenceUnavailable = errors.New("persistence_unavailable")
)

// NotEnoughReadyPlayersError carries the ready count seen at start time.
type NotEnoughReadyPlayersError struct {
	Count int
}

func (e *NotEnoughReadyPlayersError) Error() string {
	return fmt.Sprintf("not_enough_ready_players: %d of %d ready", e.Count, game.RequiredReadyPlayers)
}

func (e *NotEnoughReadyPlayersError) Is(target error) bool {
	return target == ErrNotEnoughReadyPlayers
}

func persistenceError(err error) error {
	return fmt.Errorf("%w: %w", ErrPersistenceUnavailable, err)
}

// ErrorCode maps an operation error to the code sent to clients.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrRoomNotFound):
		return ErrRoomNotFound.Error()
	case errors.Is(err, ErrPlayerNotFound):
		return ErrPlayerNotFound.Error()
	case errors.Is(err, ErrAlreadyExists):
		return ErrAlreadyExists.Error()
	case errors.Is(err, ErrNotEnoughReadyPlayers):
		return ErrNotEnoughReadyPlayers.Error()
	case errors.Is(err, ErrPersistenceUnavailable):
		return ErrPersistenceUnavailable.Error()
	default:
		return "internal_error"
	}
}

// ErrorMessage is the human readable reason paired with ErrorCode.
func ErrorMessage(err error) string {
	var notReady *NotEnoughReadyPlayersError
	switch {
	case errors.As(err, &notReady):
		return fmt.Sprintf("%d of %d players are ready", notReady.Count, game.RequiredReadyPlayers)
	case errors.Is(err, ErrRoomNotFound):
		return "Room not found"
	case errors.Is(err, ErrPlayerNotFound):
		return "Player not found in room"
	case errors.Is(err, ErrAlreadyExists):
		return "Room already exists"
	case errors.Is(err, ErrPersistenceUnavailable):
		return "Room state could not be saved, try again"
	default:
		return "Internal error"
	}
}

// IsUserError reports whether err is an expected condition to surface to
// the caller rather than log as a failure.
func IsUserError(err error) bool {
	return errors.Is(err, ErrRoomNotFound) ||
		errors.Is(err, ErrPlayerNotFound) ||
		errors.Is(err, ErrAlreadyExists) ||
		errors.Is(err, ErrNotEnoughReadyPlayers)
}

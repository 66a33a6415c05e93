package room

import "errors"

var (
	ErrInvalidRequest = errors.New("invalid_request")
	ErrIDExhausted    = errors.New("room_id_exhausted")
)

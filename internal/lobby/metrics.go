package lobby

import "expvar"

var (
	roomsCreated    = expvar.NewInt("lobby_rooms_created")
	roomsDeleted    = expvar.NewInt("lobby_rooms_deleted")
	roomsColdLoaded = expvar.NewInt("lobby_rooms_cold_loaded")
	playersJoined   = expvar.NewInt("lobby_players_joined")
	reconnects      = expvar.NewInt("lobby_players_reconnected")
	graceExpired    = expvar.NewInt("lobby_grace_expired")
	gamesStarted    = expvar.NewInt("lobby_games_started")
	chatMessages    = expvar.NewInt("lobby_chat_messages")
	persistFailures = expvar.NewInt("lobby_persist_failures")
)

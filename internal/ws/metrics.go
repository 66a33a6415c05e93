package ws

import "expvar"

var (
	connectionsActive = expvar.NewInt("ws_connections_active")
	messagesIn        = expvar.NewInt("ws_messages_in")
	slowConsumers     = expvar.NewInt("ws_slow_consumers_closed")
	rateLimited       = expvar.NewInt("ws_messages_rate_limited")
)

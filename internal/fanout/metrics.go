package fanout

import "expvar"

var (
	eventsDelivered = expvar.NewInt("fanout_events_delivered")
	relayPublished  = expvar.NewInt("fanout_relay_published")
	relayReceived   = expvar.NewInt("fanout_relay_received")
	relayErrors     = expvar.NewInt("fanout_relay_errors")
)

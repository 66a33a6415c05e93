package httptransport

import "expvar"

var (
	metricRoomCreateTotal  = expvar.NewInt("http_room_create_total")
	metricRoomCreateErrors = expvar.NewInt("http_room_create_errors_total")
	metricRoomGetTotal     = expvar.NewInt("http_room_get_total")
	metricWSUpgradeTotal   = expvar.NewInt("http_ws_upgrade_total")
)

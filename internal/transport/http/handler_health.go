package httptransport

import (
	"context"
	"encoding/json"
	"net/http"
)

// Pinger reports whether a backing service is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthHandler(store Pinger, activeRooms func() int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := store.Ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]any{"ok": false, "store": "down"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "store": "up", "active_rooms": activeRooms()})
	}
}

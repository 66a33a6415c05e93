package httptransport

import (
	"expvar"
	"fmt"
	"net/http"
	"sort"
	"strings"

	approom "belote-lobby/internal/app/room"
	"belote-lobby/internal/ws"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
)

type Deps struct {
	Rooms       *approom.Service
	Sockets     *ws.Server
	Store       Pinger
	ActiveRooms func() int
}

func NewRouter(d Deps) *chi.Mux {
	roomHandlers := NewRoomHandlers(d.Rooms)
	activeRooms := d.ActiveRooms
	if activeRooms == nil {
		activeRooms = func() int { return 0 }
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)

	r.With(APILogMiddleware()).Get("/healthz", HealthHandler(d.Store, activeRooms))

	r.Route("/api", func(r chi.Router) {
		r.Use(APILogMiddleware())
		r.With(BodyCaptureMiddleware(4096)).Post("/rooms", roomHandlers.Create())
		r.Get("/rooms/{room_id}", roomHandlers.Get())
		r.Get("/debug/vars", expvar.Handler().ServeHTTP)
	})

	// Upgraded sockets outlive the request, so they skip request logging.
	r.Get("/ws/{room_id}", func(w http.ResponseWriter, r *http.Request) {
		metricWSUpgradeTotal.Add(1)
		d.Sockets.ServeRoom(w, r, chi.URLParam(r, "room_id"))
	})
	return r
}

func LogRoutes(r chi.Router) {
	type routeDef struct {
		Method string
		Path   string
	}
	routes := make([]routeDef, 0, 8)
	err := chi.Walk(r, func(method string, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		routes = append(routes, routeDef{Method: method, Path: route})
		return nil
	})
	if err != nil {
		log.Error().Err(err).Msg("walk routes failed")
		return
	}
	sort.Slice(routes, func(i, j int) bool {
		if routes[i].Path == routes[j].Path {
			return routes[i].Method < routes[j].Method
		}
		return routes[i].Path < routes[j].Path
	})
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Registered routes (%d):\n", len(routes)))
	for _, rt := range routes {
		b.WriteString(fmt.Sprintf("  %-6s %s\n", rt.Method, rt.Path))
	}
	fmt.Print(b.String())
}

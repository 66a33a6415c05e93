package fanout

import (
	"sync"
	"time"
)

// Event is one broadcast message for a room.
type Event struct {
	Type     string `json:"type"`
	RoomID   string `json:"room_id"`
	ServerTS int64  `json:"server_ts"`
	Data     any    `json:"data,omitempty"`
}

func NewEvent(roomID, typ string, data any) Event {
	return NewEventAt(roomID, typ, data, time.Now())
}

// NewEventAt stamps the event with at instead of the wall clock.
func NewEventAt(roomID, typ string, data any, at time.Time) Event {
	return Event{Type: typ, RoomID: roomID, ServerTS: at.UnixMilli(), Data: data}
}

// Subscriber receives events for the rooms it is subscribed to. Deliver must
// not block and must not call back into the Hub.
type Subscriber interface {
	Deliver(Event)
}

// Forwarder carries locally published events to other instances.
type Forwarder interface {
	Forward(Event)
}

// Hub delivers room events to every subscriber of that room. Callers that
// need per-room ordering publish under their own per-room lock.
type Hub struct {
	mu        sync.RWMutex
	rooms     map[string]map[Subscriber]struct{}
	forwarder Forwarder
}

func NewHub() *Hub {
	return &Hub{rooms: map[string]map[Subscriber]struct{}{}}
}

// SetForwarder must be called before the hub is shared.
func (h *Hub) SetForwarder(f Forwarder) {
	h.forwarder = f
}

func (h *Hub) Subscribe(roomID string, s Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	subs := h.rooms[roomID]
	if subs == nil {
		subs = map[Subscriber]struct{}{}
		h.rooms[roomID] = subs
	}
	subs[s] = struct{}{}
}

func (h *Hub) Unsubscribe(roomID string, s Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	subs := h.rooms[roomID]
	if subs == nil {
		return
	}
	delete(subs, s)
	if len(subs) == 0 {
		delete(h.rooms, roomID)
	}
}

// Publish delivers ev to local subscribers and hands it to the forwarder.
func (h *Hub) Publish(roomID string, ev Event) {
	if ev.RoomID == "" {
		ev.RoomID = roomID
	}
	h.deliver(roomID, ev)
	if h.forwarder != nil {
		h.forwarder.Forward(ev)
	}
}

// DeliverRemote delivers an event that originated on another instance. It
// is never forwarded again.
func (h *Hub) DeliverRemote(ev Event) {
	h.deliver(ev.RoomID, ev)
}

func (h *Hub) deliver(roomID string, ev Event) {
	h.mu.RLock()
	subs := make([]Subscriber, 0, len(h.rooms[roomID]))
	for s := range h.rooms[roomID] {
		subs = append(subs, s)
	}
	h.mu.RUnlock()
	for _, s := range subs {
		s.Deliver(ev)
	}
	eventsDelivered.Add(int64(len(subs)))
}

func (h *Hub) SubscriberCount(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}

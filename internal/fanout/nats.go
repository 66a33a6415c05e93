package fanout

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

const subjectPrefix = "lobby.rooms."

type relayEnvelope struct {
	Origin string `json:"origin"`
	Event  Event  `json:"event"`
}

// NATSRelay mirrors hub events between instances over NATS. Events carry
// the publishing instance id so an instance ignores its own echoes.
type NATSRelay struct {
	nc     *nats.Conn
	hub    *Hub
	origin string
	sub    *nats.Subscription
}

func ConnectNATS(url string) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(5),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return nc, nil
}

func NewNATSRelay(nc *nats.Conn, hub *Hub, origin string) *NATSRelay {
	return &NATSRelay{nc: nc, hub: hub, origin: origin}
}

func roomSubject(roomID string) string {
	return subjectPrefix + roomID + ".events"
}

// Start subscribes to every room subject and installs the relay as the
// hub's forwarder.
func (r *NATSRelay) Start() error {
	sub, err := r.nc.Subscribe(subjectPrefix+"*.events", r.handle)
	if err != nil {
		return fmt.Errorf("subscribe room events: %w", err)
	}
	r.sub = sub
	r.hub.SetForwarder(r)
	log.Info().Str("origin", r.origin).Msg("nats_relay_started")
	return nil
}

func (r *NATSRelay) Forward(ev Event) {
	b, err := json.Marshal(relayEnvelope{Origin: r.origin, Event: ev})
	if err != nil {
		relayErrors.Add(1)
		log.Error().Err(err).Str("room_id", ev.RoomID).Msg("nats_relay_encode_failed")
		return
	}
	if err := r.nc.Publish(roomSubject(ev.RoomID), b); err != nil {
		relayErrors.Add(1)
		log.Error().Err(err).Str("room_id", ev.RoomID).Msg("nats_relay_publish_failed")
		return
	}
	relayPublished.Add(1)
}

func (r *NATSRelay) handle(msg *nats.Msg) {
	var env relayEnvelope
	if err := json.Unmarshal(msg.Data, &env); err != nil {
		relayErrors.Add(1)
		log.Warn().Err(err).Str("subject", msg.Subject).Msg("nats_relay_decode_failed")
		return
	}
	if env.Origin == r.origin {
		return
	}
	relayReceived.Add(1)
	r.hub.DeliverRemote(env.Event)
}

func (r *NATSRelay) Close() error {
	if r.sub == nil {
		return nil
	}
	return r.sub.Unsubscribe()
}

package lobby

import (
	"context"
	"errors"
	"time"

	"belote-lobby/internal/fanout"
	"belote-lobby/internal/game"
	"belote-lobby/internal/store"
	"belote-lobby/internal/timers"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

type PersistMode string

const (
	// PersistSync holds the room lock until the save returns and never
	// broadcasts a mutation that was not stored.
	PersistSync PersistMode = "sync"
	// PersistAsync saves in the background and broadcasts right away. A
	// crash can lose mutations clients already saw.
	PersistAsync PersistMode = "async"
)

const (
	DefaultStartDelay = 5 * time.Second
	defaultOpTimeout  = 5 * time.Second
)

// Broadcaster is the room fanout the coordinator publishes to.
type Broadcaster interface {
	Publish(roomID string, ev fanout.Event)
	Subscribe(roomID string, s fanout.Subscriber)
	Unsubscribe(roomID string, s fanout.Subscriber)
}

type Options struct {
	Clock       timers.Clock
	Actions     store.ActionRecorder
	StartDelay  time.Duration
	RoomTTL     time.Duration
	PersistMode PersistMode
	TableConfig game.TableConfig
	// OpTimeout bounds persistence calls made from timer actions.
	OpTimeout time.Duration
}

// Coordinator owns room state. Every operation on a room, including timer
// actions, runs under that room's lock from read through broadcast.
type Coordinator struct {
	sessions *SessionStore
	repo     store.RoomRepository
	pub      Broadcaster
	grace    *timers.GracePeriodRegistry
	phase    *timers.PhaseTimerRegistry
	clock    timers.Clock
	actions  store.ActionRecorder
	opts     Options
}

func NewCoordinator(sessions *SessionStore, repo store.RoomRepository, pub Broadcaster, opts Options) *Coordinator {
	if sessions == nil {
		sessions = NewSessionStore()
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Actions == nil {
		opts.Actions = store.NopActionLog{}
	}
	if opts.StartDelay <= 0 {
		opts.StartDelay = DefaultStartDelay
	}
	if opts.RoomTTL <= 0 {
		opts.RoomTTL = store.DefaultRoomTTL
	}
	if opts.PersistMode == "" {
		opts.PersistMode = PersistSync
	}
	if opts.TableConfig == (game.TableConfig{}) {
		opts.TableConfig = game.DefaultTableConfig()
	}
	if opts.OpTimeout <= 0 {
		opts.OpTimeout = defaultOpTimeout
	}
	return &Coordinator{
		sessions: sessions,
		repo:     repo,
		pub:      pub,
		grace:    timers.NewGracePeriodRegistry(opts.Clock),
		phase:    timers.NewPhaseTimerRegistry(opts.Clock),
		clock:    opts.Clock,
		actions:  opts.Actions,
		opts:     opts,
	}
}

// Create registers a new room and persists it with its initial expiry.
func (c *Coordinator) Create(ctx context.Context, roomID, name, createdBy string) (*game.RoomSession, error) {
	for {
		h, reserved := c.sessions.getOrReserve(roomID)
		if !reserved {
			h.mu.Lock()
			deleted := h.deleted
			h.mu.Unlock()
			if deleted {
				continue
			}
			return nil, ErrAlreadyExists
		}

		existing, err := c.repo.Load(ctx, roomID)
		switch {
		case err == nil:
			h.room = existing
			c.resumeTimers(ctx, h)
			h.mu.Unlock()
			return nil, ErrAlreadyExists
		case !errors.Is(err, store.ErrNotFound):
			c.abandon(roomID, h, persistenceError(err))
			return nil, persistenceError(err)
		}

		room := game.NewRoomSession(roomID, name, createdBy, c.opts.TableConfig, c.clock.Now())
		if err := c.repo.Save(ctx, room); err != nil {
			persistFailures.Add(1)
			c.abandon(roomID, h, persistenceError(err))
			return nil, persistenceError(err)
		}
		if err := c.repo.RefreshExpiry(ctx, roomID, c.opts.RoomTTL); err != nil {
			log.Warn().Err(err).Str("room_id", roomID).Msg("room_expiry_refresh_failed")
		}
		h.room = room
		h.mu.Unlock()

		roomsCreated.Add(1)
		log.Info().Str("room_id", roomID).Str("created_by", createdBy).Msg("room_created")
		c.record(ctx, game.Action{RoomID: roomID, Type: game.ActionRoomCreated, PlayerID: createdBy,
			Data: map[string]any{"name": name}})
		return room.Clone(), nil
	}
}

// Join seats playerID or reconnects it. When sub is non-nil it receives the
// welcome before any later room event and is then subscribed to the room.
func (c *Coordinator) Join(ctx context.Context, roomID, playerID string, sub fanout.Subscriber) (game.Player, Welcome, error) {
	h, err := c.acquire(ctx, roomID)
	if err != nil {
		return game.Player{}, Welcome{}, err
	}
	defer h.mu.Unlock()

	existing := h.room.Player(playerID)
	switch {
	case existing == nil:
		next := h.room.Clone()
		next.AddPlayer(playerID)
		if err := c.commit(ctx, h, next); err != nil {
			return game.Player{}, Welcome{}, err
		}
		playersJoined.Add(1)
		c.pub.Publish(roomID, playersEvent(next, EventPlayerJoined, playerID, c.clock.Now()))
		c.record(ctx, game.Action{RoomID: roomID, Type: game.ActionPlayerJoin, PlayerID: playerID})
		log.Info().Str("room_id", roomID).Str("player_id", playerID).Msg("player_joined")
	case existing.Status == game.StatusDisconnected:
		next := h.room.Clone()
		next.MarkConnected(playerID)
		if err := c.commit(ctx, h, next); err != nil {
			return game.Player{}, Welcome{}, err
		}
		c.grace.Cancel(roomID, playerID)
		reconnects.Add(1)
		c.pub.Publish(roomID, playersEvent(next, EventPlayerReconnected, playerID, c.clock.Now()))
		c.record(ctx, game.Action{RoomID: roomID, Type: game.ActionPlayerReconnect, PlayerID: playerID})
		log.Info().Str("room_id", roomID).Str("player_id", playerID).Msg("player_reconnected")
	default:
		log.Debug().Str("room_id", roomID).Str("player_id", playerID).Msg("duplicate_join")
	}

	welcome := newWelcome(h.room, playerID)
	if sub != nil {
		sub.Deliver(c.event(roomID, EventWelcome, welcome))
		c.pub.Subscribe(roomID, sub)
	}
	player := game.ClonePlayers([]game.Player{*h.room.Player(playerID)})[0]
	return player, welcome, nil
}

// Disconnect marks the player disconnected and arms its grace window. A
// missing room or player is not an error.
func (c *Coordinator) Disconnect(ctx context.Context, roomID, playerID string) error {
	h, err := c.acquire(ctx, roomID)
	if errors.Is(err, ErrRoomNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	defer h.mu.Unlock()

	p := h.room.Player(playerID)
	if p == nil || p.Status == game.StatusDisconnected {
		return nil
	}
	at := c.clock.Now()
	next := h.room.Clone()
	next.MarkDisconnected(playerID, at)
	if err := c.commit(ctx, h, next); err != nil {
		return err
	}
	c.pub.Publish(roomID, playersEvent(next, EventPlayerDisconnected, playerID, at))

	deadline := at.Add(next.Config.DisconnectGrace)
	c.grace.Arm(roomID, playerID, deadline, func() { c.expireGrace(roomID, playerID, at) })
	c.record(ctx, game.Action{RoomID: roomID, Type: game.ActionPlayerDisconnect, PlayerID: playerID})
	log.Info().Str("room_id", roomID).Str("player_id", playerID).Time("grace_deadline", deadline).Msg("player_disconnected")
	return nil
}

// expireGrace removes a player whose grace window ran out. It does nothing
// if the player reconnected, was already removed, or disconnected again
// after the window this timer belongs to.
func (c *Coordinator) expireGrace(roomID, playerID string, disconnectedAt time.Time) {
	ctx, cancel := context.WithTimeout(context.Background(), c.opts.OpTimeout)
	defer cancel()

	h, err := c.acquire(ctx, roomID)
	if err != nil {
		if !errors.Is(err, ErrRoomNotFound) {
			log.Error().Err(err).Str("room_id", roomID).Str("player_id", playerID).Msg("grace_expiry_load_failed")
		}
		return
	}
	defer h.mu.Unlock()

	p := h.room.Player(playerID)
	if p == nil || p.Status != game.StatusDisconnected || p.DisconnectedAt == nil || !p.DisconnectedAt.Equal(disconnectedAt) {
		return
	}
	graceExpired.Add(1)
	if err := c.removePlayer(ctx, h, roomID, playerID); err != nil {
		log.Error().Err(err).Str("room_id", roomID).Str("player_id", playerID).Msg("grace_expiry_persist_failed")
	}
}

// Leave gives the player's seat up at once, without a grace window. The last
// player leaving deletes the room.
func (c *Coordinator) Leave(ctx context.Context, roomID, playerID string) error {
	h, err := c.acquire(ctx, roomID)
	if err != nil {
		return err
	}
	defer h.mu.Unlock()

	if h.room.Player(playerID) == nil {
		return ErrPlayerNotFound
	}
	if err := c.removePlayer(ctx, h, roomID, playerID); err != nil {
		return err
	}
	c.grace.Cancel(roomID, playerID)
	return nil
}

// removePlayer drops playerID from the room, deleting the room instead when
// nobody would be left. The caller holds the room lock.
func (c *Coordinator) removePlayer(ctx context.Context, h *roomHandle, roomID, playerID string) error {
	next := h.room.Clone()
	next.RemovePlayer(playerID)
	if next.IsEmpty() {
		c.deleteRoom(ctx, h, roomID)
		c.record(ctx, game.Action{RoomID: roomID, Type: game.ActionPlayerLeave, PlayerID: playerID})
		c.record(ctx, game.Action{RoomID: roomID, Type: game.ActionRoomDeleted})
		return nil
	}
	if err := c.commit(ctx, h, next); err != nil {
		return err
	}
	c.pub.Publish(roomID, playersEvent(next, EventPlayerLeft, playerID, c.clock.Now()))
	c.record(ctx, game.Action{RoomID: roomID, Type: game.ActionPlayerLeave, PlayerID: playerID})
	log.Info().Str("room_id", roomID).Str("player_id", playerID).Msg("player_left")
	return nil
}

// ToggleReady flips the player's ready flag and returns the new value.
func (c *Coordinator) ToggleReady(ctx context.Context, roomID, playerID string) (bool, error) {
	h, err := c.acquire(ctx, roomID)
	if err != nil {
		return false, err
	}
	defer h.mu.Unlock()

	next := h.room.Clone()
	ready, ok := next.ToggleReady(playerID)
	if !ok {
		return false, ErrPlayerNotFound
	}
	if err := c.commit(ctx, h, next); err != nil {
		return false, err
	}
	c.pub.Publish(roomID, c.event(roomID, EventPlayerReadyChanged, ReadyChanged{
		PlayerID: playerID,
		IsReady:  ready,
		Players:  game.ClonePlayers(next.Players),
	}))
	c.record(ctx, game.Action{RoomID: roomID, Type: game.ActionPlayerReady, PlayerID: playerID,
		Data: map[string]any{"ready": ready}})
	return ready, nil
}

// StartGame moves the room to READY_TO_START and schedules the move to
// BIDDING. Without exactly four ready players nothing changes.
func (c *Coordinator) StartGame(ctx context.Context, roomID, playerID string) error {
	h, err := c.acquire(ctx, roomID)
	if err != nil {
		return err
	}
	defer h.mu.Unlock()

	count, ok := game.CanStartGame(h.room.Players)
	if !ok {
		return &NotEnoughReadyPlayersError{Count: count}
	}
	next := h.room.Clone()
	next.Phase = game.PhaseReadyToStart
	if err := c.commit(ctx, h, next); err != nil {
		return err
	}
	gamesStarted.Add(1)
	c.pub.Publish(roomID, c.event(roomID, EventPhaseChanged, PhaseChanged{Phase: next.Phase}))
	c.phase.Arm(roomID, c.clock.Now().Add(c.opts.StartDelay), func() { c.advanceToBidding(roomID) })
	c.record(ctx, game.Action{RoomID: roomID, Type: game.ActionPhaseChange, PlayerID: playerID,
		Data: map[string]any{"phase": string(next.Phase)}})
	log.Info().Str("room_id", roomID).Str("player_id", playerID).Msg("game_starting")
	return nil
}

// advanceToBidding is the phase timer action. It only acts on a live room
// still in READY_TO_START.
func (c *Coordinator) advanceToBidding(roomID string) {
	ctx, cancel := context.WithTimeout(context.Background(), c.opts.OpTimeout)
	defer cancel()

	h, err := c.acquire(ctx, roomID)
	if err != nil {
		if !errors.Is(err, ErrRoomNotFound) {
			log.Error().Err(err).Str("room_id", roomID).Msg("phase_advance_load_failed")
		}
		return
	}
	defer h.mu.Unlock()

	if h.room.Phase != game.PhaseReadyToStart {
		return
	}
	next := h.room.Clone()
	next.Phase = game.PhaseBidding
	if err := c.commit(ctx, h, next); err != nil {
		log.Error().Err(err).Str("room_id", roomID).Msg("phase_advance_persist_failed")
		return
	}
	c.pub.Publish(roomID, c.event(roomID, EventPhaseChanged, PhaseChanged{Phase: next.Phase}))
	c.record(ctx, game.Action{RoomID: roomID, Type: game.ActionPhaseChange,
		Data: map[string]any{"phase": string(next.Phase)}})
	log.Info().Str("room_id", roomID).Msg("bidding_started")
}

// SendChat appends a message with a server assigned id and timestamp. Text
// is expected to be validated by the caller.
func (c *Coordinator) SendChat(ctx context.Context, roomID, playerID, text string) (game.ChatMessage, error) {
	h, err := c.acquire(ctx, roomID)
	if err != nil {
		return game.ChatMessage{}, err
	}
	defer h.mu.Unlock()

	msg := game.ChatMessage{
		ID:        store.NewID(),
		PlayerID:  playerID,
		Message:   text,
		Timestamp: c.clock.Now(),
	}
	next := h.room.Clone()
	next.AppendChat(msg)
	if err := c.commit(ctx, h, next); err != nil {
		return game.ChatMessage{}, err
	}
	chatMessages.Add(1)
	c.pub.Publish(roomID, c.event(roomID, EventChat, ChatPosted{Message: msg}))
	c.record(ctx, game.Action{RoomID: roomID, Type: game.ActionChat, PlayerID: playerID,
		Data: map[string]any{"message_id": msg.ID, "message": text}})
	return msg, nil
}

// Snapshot returns a copy of the room's current state.
func (c *Coordinator) Snapshot(ctx context.Context, roomID string) (*game.RoomSession, error) {
	h, err := c.acquire(ctx, roomID)
	if err != nil {
		return nil, err
	}
	defer h.mu.Unlock()
	return h.room.Clone(), nil
}

// Unsubscribe detaches a connection from room broadcasts.
func (c *Coordinator) Unsubscribe(roomID string, sub fanout.Subscriber) {
	c.pub.Unsubscribe(roomID, sub)
}

func (c *Coordinator) ActiveRooms() int {
	return c.sessions.Len()
}

// acquire returns the locked handle for roomID, loading it from the
// repository when it is not live.
func (c *Coordinator) acquire(ctx context.Context, roomID string) (*roomHandle, error) {
	for {
		h, reserved := c.sessions.getOrReserve(roomID)
		if reserved {
			room, err := c.repo.Load(ctx, roomID)
			if err != nil {
				if errors.Is(err, store.ErrNotFound) {
					err = ErrRoomNotFound
				} else {
					err = persistenceError(err)
				}
				c.abandon(roomID, h, err)
				return nil, err
			}
			h.room = room
			roomsColdLoaded.Add(1)
			log.Debug().Str("room_id", roomID).Int("players", len(room.Players)).Msg("room_cold_loaded")
			c.resumeTimers(ctx, h)
			return h, nil
		}
		h.mu.Lock()
		if !h.deleted {
			return h, nil
		}
		err := h.loadErr
		h.mu.Unlock()
		if err != nil {
			return nil, err
		}
	}
}

// resumeTimers re-arms the timers of a room that was just loaded from the
// repository. No socket can be attached to a room that was not live, so
// players stored as connected are marked disconnected as of now and get a
// full grace window. The caller holds the room lock.
func (c *Coordinator) resumeTimers(ctx context.Context, h *roomHandle) {
	now := c.clock.Now()
	roomID := h.room.ID
	var orphaned []string
	for _, p := range h.room.Players {
		if p.Status == game.StatusConnected {
			orphaned = append(orphaned, p.ID)
		}
	}
	if len(orphaned) > 0 {
		next := h.room.Clone()
		for _, id := range orphaned {
			next.MarkDisconnected(id, now)
		}
		if err := c.commit(ctx, h, next); err != nil {
			log.Warn().Err(err).Str("room_id", roomID).Msg("cold_load_disconnect_persist_failed")
			h.room = next
		}
	}

	armed := 0
	for _, p := range h.room.Players {
		if p.Status != game.StatusDisconnected || p.DisconnectedAt == nil {
			continue
		}
		playerID, at := p.ID, *p.DisconnectedAt
		c.grace.Arm(roomID, playerID, at.Add(h.room.Config.DisconnectGrace), func() { c.expireGrace(roomID, playerID, at) })
		armed++
	}
	if h.room.Phase == game.PhaseReadyToStart {
		c.phase.Arm(roomID, now.Add(c.opts.StartDelay), func() { c.advanceToBidding(roomID) })
	}
	log.Debug().Str("room_id", roomID).Int("orphaned", len(orphaned)).Int("grace_timers", armed).Msg("room_timers_resumed")
}

// event stamps a room event with the coordinator's clock.
func (c *Coordinator) event(roomID, typ string, data any) fanout.Event {
	return fanout.NewEventAt(roomID, typ, data, c.clock.Now())
}

// abandon releases a reserved placeholder that never became a live room.
// Waiters see loadErr instead of retrying the load.
func (c *Coordinator) abandon(roomID string, h *roomHandle, err error) {
	h.deleted = true
	h.loadErr = err
	c.sessions.remove(roomID, h)
	h.mu.Unlock()
}

// commit persists next and installs it as the room's state. In sync mode a
// failed save leaves the live state untouched.
func (c *Coordinator) commit(ctx context.Context, h *roomHandle, next *game.RoomSession) error {
	if c.opts.PersistMode == PersistAsync {
		h.room = next
		c.saveAsync(h, next.Clone())
		return nil
	}
	if err := c.repo.Save(ctx, next); err != nil {
		persistFailures.Add(1)
		log.Error().Err(err).Str("room_id", next.ID).Msg("room_save_failed")
		return persistenceError(err)
	}
	h.room = next
	return nil
}

func (c *Coordinator) saveAsync(h *roomHandle, snapshot *game.RoomSession) {
	v := h.version.Add(1)
	go func() {
		h.saveMu.Lock()
		defer h.saveMu.Unlock()
		if h.gone.Load() || h.version.Load() != v {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), c.opts.OpTimeout)
		defer cancel()
		if err := c.repo.Save(ctx, snapshot); err != nil {
			persistFailures.Add(1)
			log.Error().Err(err).Str("room_id", snapshot.ID).Msg("room_async_save_failed")
		}
	}()
}

// deleteRoom drops an empty room from the repository and the session map.
// The phase timer is left armed; its guard turns it into a no-op.
func (c *Coordinator) deleteRoom(ctx context.Context, h *roomHandle, roomID string) {
	h.gone.Store(true)
	h.saveMu.Lock()
	err := c.repo.Delete(ctx, roomID)
	h.saveMu.Unlock()
	if err != nil {
		persistFailures.Add(1)
		log.Error().Err(err).Str("room_id", roomID).Msg("room_delete_failed")
	}
	c.grace.CancelRoom(roomID)
	c.sessions.remove(roomID, h)
	h.deleted = true
	h.loadErr = ErrRoomNotFound
	roomsDeleted.Add(1)
	log.Info().Str("room_id", roomID).Msg("room_deleted")
}

func (c *Coordinator) record(ctx context.Context, a game.Action) {
	if a.Timestamp.IsZero() {
		a.Timestamp = c.clock.Now()
	}
	if err := c.actions.Record(ctx, a); err != nil {
		log.Warn().Err(err).Str("room_id", a.RoomID).Str("action", string(a.Type)).Msg("action_record_failed")
	}
}

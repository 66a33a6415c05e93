package timers

import "time"

type graceKey struct {
	roomID   string
	playerID string
}

// GracePeriodRegistry tracks the pending seat release for each disconnected
// player. Re-arming a key cancels the previous timer first.
type GracePeriodRegistry struct {
	reg *registry[graceKey]
}

func NewGracePeriodRegistry(clock Clock) *GracePeriodRegistry {
	return &GracePeriodRegistry{reg: newRegistry[graceKey](clock)}
}

func (g *GracePeriodRegistry) Arm(roomID, playerID string, deadline time.Time, action func()) {
	g.reg.arm(graceKey{roomID: roomID, playerID: playerID}, deadline, action)
}

// Cancel reports whether a pending entry was removed.
func (g *GracePeriodRegistry) Cancel(roomID, playerID string) bool {
	return g.reg.cancel(graceKey{roomID: roomID, playerID: playerID})
}

// CancelRoom drops every pending entry for roomID.
func (g *GracePeriodRegistry) CancelRoom(roomID string) int {
	return g.reg.cancelWhere(func(k graceKey) bool { return k.roomID == roomID })
}

func (g *GracePeriodRegistry) Deadline(roomID, playerID string) (time.Time, bool) {
	return g.reg.pending(graceKey{roomID: roomID, playerID: playerID})
}

func (g *GracePeriodRegistry) Len() int {
	return g.reg.len()
}

// WaitDue blocks until every entry whose deadline has passed has fired and its
// action has returned.
func (g *GracePeriodRegistry) WaitDue() {
	g.reg.waitDue()
}
